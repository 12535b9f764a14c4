// Package memory is a concurrency-safe, in-process catalog.Store.
// Snapshots can be saved to and loaded from YAML, which makes it usable
// as a small file-backed catalog for the CLI.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
)

var _ catalog.Store = (*Store)(nil)

// Store holds every catalog entity in maps keyed by ID.
type Store struct {
	mu sync.RWMutex

	identifiers     map[string]*catalog.Identifier
	equivalencies   map[string]*catalog.Equivalency
	editions        map[string]*catalog.Edition
	contributors    map[string]*catalog.Contributor
	contributions   map[string]*catalog.Contribution
	subjects        map[string]*catalog.Subject
	classifications map[string]*catalog.Classification
	hyperlinks      map[string]*catalog.Hyperlink
	resources       map[string]*catalog.Resource
	representations map[string]*catalog.Representation
	libraries       map[string]*catalog.Library
	collections     map[string]*catalog.Collection
	pools           map[string]*catalog.LicensePool
	mechanisms      map[string]*catalog.DeliveryMechanism
	poolMechanisms  map[string]*catalog.PoolDeliveryMechanism
	loans           map[string]*catalog.Loan
	measurements    map[string]*catalog.Measurement
	coverage        map[string]*catalog.CoverageRecord

	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{newID: newTimeOrderedID}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) reset() {
	s.identifiers = make(map[string]*catalog.Identifier)
	s.equivalencies = make(map[string]*catalog.Equivalency)
	s.editions = make(map[string]*catalog.Edition)
	s.contributors = make(map[string]*catalog.Contributor)
	s.contributions = make(map[string]*catalog.Contribution)
	s.subjects = make(map[string]*catalog.Subject)
	s.classifications = make(map[string]*catalog.Classification)
	s.hyperlinks = make(map[string]*catalog.Hyperlink)
	s.resources = make(map[string]*catalog.Resource)
	s.representations = make(map[string]*catalog.Representation)
	s.libraries = make(map[string]*catalog.Library)
	s.collections = make(map[string]*catalog.Collection)
	s.pools = make(map[string]*catalog.LicensePool)
	s.mechanisms = make(map[string]*catalog.DeliveryMechanism)
	s.poolMechanisms = make(map[string]*catalog.PoolDeliveryMechanism)
	s.loans = make(map[string]*catalog.Loan)
	s.measurements = make(map[string]*catalog.Measurement)
	s.coverage = make(map[string]*catalog.CoverageRecord)
}

// newTimeOrderedID returns a UUIDv7 so that ID order follows insertion order.
func newTimeOrderedID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// entity is a pointer to a catalog type that can copy itself. The store
// hands out and keeps only copies, so callers never share its maps' values.
type entity[T any] interface {
	*T
	Clone() *T
}

// get looks up id in m and returns a copy, or a NotFoundError naming resource.
func get[T any, P entity[T]](m map[string]*T, resource, id string) (*T, error) {
	if v, ok := m[id]; ok {
		return P(v).Clone(), nil
	}
	return nil, errors.NewNotFoundError(resource, id)
}

// put replaces an existing entry with a copy of v, failing if it was never created.
func put[T any, P entity[T]](m map[string]*T, resource, id string, v *T) error {
	if _, ok := m[id]; !ok {
		return errors.NewNotFoundError(resource, id)
	}
	m[id] = P(v).Clone()
	return nil
}

// has reports whether id is in m, returning a NotFoundError naming resource if not.
func has[T any](m map[string]*T, resource, id string) error {
	if _, ok := m[id]; !ok {
		return errors.NewNotFoundError(resource, id)
	}
	return nil
}

// sorted returns copies of the values of m ordered by ID for stable iteration.
func sorted[T any, P entity[T]](m map[string]*T, keep func(*T) bool) []*T {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if keep == nil || keep(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]*T, len(keys))
	for i, k := range keys {
		out[i] = P(m[k]).Clone()
	}
	return out
}

// Identifiers

func (s *Store) FindOrCreateIdentifier(_ context.Context, typ, value string) (*catalog.Identifier, bool, error) {
	if typ == "" || value == "" {
		return nil, false, errors.NewValidationError("identifier", typ+"/"+value, "type and value are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.identifiers {
		if i.Type == typ && i.Value == value {
			return i.Clone(), false, nil
		}
	}
	i := &catalog.Identifier{ID: s.newID(), Type: typ, Value: value}
	s.identifiers[i.ID] = i
	return i.Clone(), true, nil
}

func (s *Store) Identifier(_ context.Context, id string) (*catalog.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.identifiers, "identifier", id)
}

func (s *Store) LookupIdentifier(_ context.Context, typ, value string) (*catalog.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.identifiers {
		if i.Type == typ && i.Value == value {
			return i.Clone(), nil
		}
	}
	return nil, errors.NewNotFoundError("identifier", typ+"/"+value)
}

func (s *Store) IdentifiersByValue(_ context.Context, typ string, values []string) ([]*catalog.Identifier, error) {
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.identifiers, func(i *catalog.Identifier) bool {
		return i.Type == typ && want[i.Value]
	}), nil
}

func (s *Store) AddEquivalency(_ context.Context, inputID, outputID, source string, strength float64) (*catalog.Equivalency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.identifiers, "identifier", inputID); err != nil {
		return nil, err
	}
	if err := has(s.identifiers, "identifier", outputID); err != nil {
		return nil, err
	}
	for _, e := range s.equivalencies {
		if e.InputID == inputID && e.OutputID == outputID && e.DataSource == source {
			e.Strength = strength
			return e.Clone(), nil
		}
	}
	e := &catalog.Equivalency{ID: s.newID(), InputID: inputID, OutputID: outputID, DataSource: source, Strength: strength}
	s.equivalencies[e.ID] = e
	return e.Clone(), nil
}

func (s *Store) Equivalencies(_ context.Context, identifierID string) ([]*catalog.Equivalency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.equivalencies, func(e *catalog.Equivalency) bool {
		return e.InputID == identifierID || e.OutputID == identifierID
	}), nil
}

// EquivalentIdentifierIDs treats equivalencies as undirected for the walk.
func (s *Store) EquivalentIdentifierIDs(_ context.Context, id string, levels int, threshold float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{id: true}
	result := []string{id}
	frontier := []string{id}
	for level := 0; level < levels && len(frontier) > 0; level++ {
		var next []string
		for _, current := range frontier {
			for _, e := range sorted(s.equivalencies, nil) {
				if e.Strength < threshold {
					continue
				}
				var other string
				switch current {
				case e.InputID:
					other = e.OutputID
				case e.OutputID:
					other = e.InputID
				default:
					continue
				}
				if !seen[other] {
					seen[other] = true
					result = append(result, other)
					next = append(next, other)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// Editions

func (s *Store) FindOrCreateEdition(_ context.Context, source, identifierID string) (*catalog.Edition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.identifiers, "identifier", identifierID); err != nil {
		return nil, false, err
	}
	for _, e := range s.editions {
		if e.DataSource == source && e.PrimaryIdentifierID == identifierID {
			return e.Clone(), false, nil
		}
	}
	e := &catalog.Edition{ID: s.newID(), DataSource: source, PrimaryIdentifierID: identifierID}
	s.editions[e.ID] = e
	return e.Clone(), true, nil
}

func (s *Store) Edition(_ context.Context, id string) (*catalog.Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.editions, "edition", id)
}

func (s *Store) LookupEdition(_ context.Context, source, identifierID string) (*catalog.Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.editions {
		if e.DataSource == source && e.PrimaryIdentifierID == identifierID {
			return e.Clone(), nil
		}
	}
	return nil, errors.NewNotFoundError("edition", source+"/"+identifierID)
}

func (s *Store) FindEditions(_ context.Context, q catalog.EditionQuery) ([]*catalog.Edition, error) {
	ids := make(map[string]bool, len(q.IdentifierIDs))
	for _, id := range q.IdentifierIDs {
		ids[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.editions, func(e *catalog.Edition) bool {
		switch {
		case q.Title != "" && !strings.EqualFold(e.Title, q.Title):
			return false
		case q.Medium != "" && e.Medium != q.Medium:
			return false
		case q.PermanentWorkID != "" && e.PermanentWorkID != q.PermanentWorkID:
			return false
		case q.Author != "" && e.Author != q.Author:
			return false
		case q.SortAuthor != "" && e.SortAuthor != q.SortAuthor:
			return false
		case len(ids) > 0 && !ids[e.PrimaryIdentifierID]:
			return false
		}
		return true
	}), nil
}

func (s *Store) UpdateEdition(_ context.Context, e *catalog.Edition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.editions, "edition", e.ID, e)
}

// Contributors

func (s *Store) FindOrCreateContributor(_ context.Context, key catalog.ContributorLookup) (*catalog.Contributor, bool, error) {
	if key.SortName == "" && key.LC == "" && key.VIAF == "" {
		return nil, false, errors.NewValidationError("contributor", nil, "sort name, LC or VIAF is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(c *catalog.Contributor) bool {
		switch {
		case key.VIAF != "":
			return c.VIAF == key.VIAF
		case key.LC != "":
			return c.LC == key.LC
		default:
			return c.SortName == key.SortName
		}
	}
	for _, c := range sorted(s.contributors, nil) {
		if match(c) {
			return c, false, nil
		}
	}
	c := &catalog.Contributor{
		ID:       s.newID(),
		SortName: key.SortName,
		LC:       key.LC,
		VIAF:     key.VIAF,
		Extra:    make(map[string]any),
	}
	s.contributors[c.ID] = c
	return c.Clone(), true, nil
}

func (s *Store) Contributor(_ context.Context, id string) (*catalog.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.contributors, "contributor", id)
}

func (s *Store) ContributorsByDisplayName(_ context.Context, displayName string) ([]*catalog.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.contributors, func(c *catalog.Contributor) bool {
		return c.DisplayName == displayName && c.SortName != ""
	}), nil
}

func (s *Store) UpdateContributor(_ context.Context, c *catalog.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.contributors, "contributor", c.ID, c)
}

func (s *Store) AddContribution(_ context.Context, editionID, contributorID, role, source string) (*catalog.Contribution, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contributions {
		if c.EditionID == editionID && c.ContributorID == contributorID && c.Role == role && c.DataSource == source {
			return c.Clone(), false, nil
		}
	}
	c := &catalog.Contribution{ID: s.newID(), EditionID: editionID, ContributorID: contributorID, Role: role, DataSource: source}
	s.contributions[c.ID] = c
	return c.Clone(), true, nil
}

func (s *Store) Contributions(_ context.Context, editionID string) ([]*catalog.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.contributions, func(c *catalog.Contribution) bool { return c.EditionID == editionID }), nil
}

func (s *Store) DeleteContribution(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.contributions, "contribution", id); err != nil {
		return err
	}
	delete(s.contributions, id)
	return nil
}
