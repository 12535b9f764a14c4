package metadata

import (
	"context"
	"slices"
	"sort"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/internal/langcode"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
)

// Metadata is a possibly partial description of one published title
// from one data source.
type Metadata struct {
	DataSource     string    `yaml:"data_source"`
	Title          string    `yaml:"title,omitempty"`
	Subtitle       string    `yaml:"subtitle,omitempty"`
	SortTitle      string    `yaml:"sort_title,omitempty"`
	Language       string    `yaml:"language,omitempty"`
	Medium         string    `yaml:"medium,omitempty"`
	Series         string    `yaml:"series,omitempty"`
	SeriesPosition *int      `yaml:"series_position,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
	Imprint        string    `yaml:"imprint,omitempty"`
	Issued         *utc.Time `yaml:"issued,omitempty"`
	Published      *utc.Time `yaml:"published,omitempty"`

	PrimaryIdentifier *IdentifierData   `yaml:"primary_identifier,omitempty"`
	Identifiers       []IdentifierData  `yaml:"identifiers,omitempty"`
	Recommendations   []IdentifierData  `yaml:"recommendations,omitempty"`
	Subjects          []SubjectData     `yaml:"subjects,omitempty"`
	Contributors      []ContributorData `yaml:"contributors,omitempty"`
	Measurements      []MeasurementData `yaml:"measurements,omitempty"`
	Links             []LinkData        `yaml:"links,omitempty"`
	Circulation       *CirculationData  `yaml:"circulation,omitempty"`

	PermanentWorkID       string    `yaml:"permanent_work_id,omitempty"`
	DataSourceLastUpdated *utc.Time `yaml:"data_source_last_updated,omitempty"`
}

// New normalizes m: the language becomes a three-letter code, the
// medium defaults to book, the primary identifier is added to the
// identifiers, and links are filtered to those that belong on an edition.
func New(m Metadata) *Metadata {
	if m.Language != "" {
		m.Language = langcode.Normalize(m.Language)
	}
	if m.Medium == "" {
		m.Medium = constants.MediumBook
	}
	m.Identifiers = slices.Clone(m.Identifiers)
	if m.PrimaryIdentifier != nil && !m.hasIdentifier(*m.PrimaryIdentifier) {
		m.Identifiers = append(m.Identifiers, *m.PrimaryIdentifier)
	}
	m.Contributors = slices.Clone(m.Contributors)
	for i := range m.Contributors {
		m.Contributors[i].normalize()
	}
	return m.WithLinks(m.Links)
}

func (m *Metadata) hasIdentifier(id IdentifierData) bool {
	for _, existing := range m.Identifiers {
		if existing.Same(id) {
			return true
		}
	}
	return false
}

// WithLinks returns a copy whose Links are the edition-level links in raw.
func (m *Metadata) WithLinks(raw []LinkData) *Metadata {
	out := *m
	out.Links = nil
	for _, link := range raw {
		if constants.IsMetadataRel(link.Rel) {
			out.Links = append(out.Links, link)
		}
	}
	return &out
}

// PrimaryAuthor returns the first contributor found in the highest
// author tier, or nil.
func (m *Metadata) PrimaryAuthor() *ContributorData {
	for _, tier := range constants.AuthorTiers() {
		for i := range m.Contributors {
			c := &m.Contributors[i]
			for _, role := range tier {
				if slices.Contains(c.Roles, role) {
					return c
				}
			}
		}
	}
	return nil
}

// Update overlays the non-empty descriptive fields of other onto m.
// Contributors are replaced unless other only has the unknown-author
// placeholder and m already knows better.
func (m *Metadata) Update(other *Metadata) {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&m.Title, other.Title)
	overlay(&m.SortTitle, other.SortTitle)
	overlay(&m.Subtitle, other.Subtitle)
	overlay(&m.Language, other.Language)
	overlay(&m.Medium, other.Medium)
	overlay(&m.Series, other.Series)
	overlay(&m.Publisher, other.Publisher)
	overlay(&m.Imprint, other.Imprint)
	if other.SeriesPosition != nil {
		m.SeriesPosition = other.SeriesPosition
	}
	if other.Issued != nil {
		m.Issued = other.Issued
	}
	if other.Published != nil {
		m.Published = other.Published
	}

	if len(other.Contributors) == 0 {
		return
	}
	if len(m.Contributors) > 0 && other.Contributors[0].SortName == constants.UnknownAuthor {
		return
	}
	m.Contributors = slices.Clone(other.Contributors)
}

// ConsolidateIdentifiers collapses duplicate identifiers into one entry
// whose weight is the median of the duplicates' weights.
func (m *Metadata) ConsolidateIdentifiers() {
	var order [][2]string
	weights := make(map[[2]string][]float64)
	for _, id := range m.Identifiers {
		k := id.Key()
		if _, ok := weights[k]; !ok {
			order = append(order, k)
		}
		weights[k] = append(weights[k], id.Weight)
	}
	out := make([]IdentifierData, 0, len(order))
	for _, k := range order {
		out = append(out, IdentifierData{Type: k[0], Identifier: k[1], Weight: median(weights[k])})
	}
	m.Identifiers = out
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// FromEdition builds enough of a record from a stored edition to look
// for matching license pools. An edition with no contributions but a
// real sort author gets that author as its primary author.
func FromEdition(ctx context.Context, store catalog.Store, edition *catalog.Edition) (*Metadata, error) {
	identifier, err := store.Identifier(ctx, edition.PrimaryIdentifierID)
	if err != nil {
		return nil, err
	}
	m := Metadata{
		DataSource:        edition.DataSource,
		Title:             edition.Title,
		Subtitle:          edition.Subtitle,
		SortTitle:         edition.SortTitle,
		Language:          edition.Language,
		Medium:            edition.Medium,
		Series:            edition.Series,
		SeriesPosition:    edition.SeriesPosition,
		Publisher:         edition.Publisher,
		Imprint:           edition.Imprint,
		Issued:            edition.Issued,
		Published:         edition.Published,
		PrimaryIdentifier: &IdentifierData{Type: identifier.Type, Identifier: identifier.Value, Weight: 1},
	}

	contributions, err := store.Contributions(ctx, edition.ID)
	if err != nil {
		return nil, err
	}
	type credit struct{ contributor, role string }
	seen := make(map[credit]bool, len(contributions))
	for _, contribution := range contributions {
		key := credit{contribution.ContributorID, contribution.Role}
		if seen[key] {
			continue
		}
		seen[key] = true
		c, err := FromContribution(ctx, store, contribution)
		if err != nil {
			return nil, err
		}
		m.Contributors = append(m.Contributors, c)
	}
	if len(contributions) == 0 && edition.SortAuthor != "" && edition.SortAuthor != constants.UnknownAuthor {
		m.Contributors = append(m.Contributors,
			NewContributorData(edition.SortAuthor, edition.Author, constants.RolePrimaryAuthor))
	}
	return New(m), nil
}

// AuthorContributors returns the contributors credited as author or
// primary author.
func (m *Metadata) AuthorContributors() []*ContributorData {
	var out []*ContributorData
	for i := range m.Contributors {
		c := &m.Contributors[i]
		if slices.Contains(c.Roles, constants.RoleAuthor) || slices.Contains(c.Roles, constants.RolePrimaryAuthor) {
			out = append(out, c)
		}
	}
	return out
}

// WorkIDTag is the medium tag used in this record's permanent work ID.
func (m *Metadata) WorkIDTag() string {
	return constants.WorkIDTag(m.Medium)
}
