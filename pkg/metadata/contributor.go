package metadata

import (
	"context"
	"slices"

	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
)

// ContributorData describes a person credited on a title.
type ContributorData struct {
	SortName      string         `yaml:"sort_name,omitempty"`
	DisplayName   string         `yaml:"display_name,omitempty"`
	FamilyName    string         `yaml:"family_name,omitempty"`
	WikipediaName string         `yaml:"wikipedia_name,omitempty"`
	Roles         []string       `yaml:"roles"`
	LC            string         `yaml:"lc,omitempty"`
	VIAF          string         `yaml:"viaf,omitempty"`
	Biography     string         `yaml:"biography,omitempty"`
	Aliases       []string       `yaml:"aliases,omitempty"`
	Extra         map[string]any `yaml:"extra,omitempty"`
}

// NewContributorData creates a contributor with the given roles, or
// the author role when none are given.
func NewContributorData(sortName, displayName string, roles ...string) ContributorData {
	c := ContributorData{SortName: sortName, DisplayName: displayName, Roles: roles}
	c.normalize()
	return c
}

func (d *ContributorData) normalize() {
	if len(d.Roles) == 0 {
		d.Roles = []string{constants.RoleAuthor}
	}
	if d.Extra == nil {
		d.Extra = make(map[string]any)
	}
}

// FromContribution describes the contributor behind a persistent contribution.
func FromContribution(ctx context.Context, store catalog.ContributorStore, contribution *catalog.Contribution) (ContributorData, error) {
	c, err := store.Contributor(ctx, contribution.ContributorID)
	if err != nil {
		return ContributorData{}, err
	}
	return ContributorData{
		SortName:      c.SortName,
		DisplayName:   c.DisplayName,
		FamilyName:    c.FamilyName,
		WikipediaName: c.WikipediaName,
		Roles:         []string{contribution.Role},
		LC:            c.LC,
		VIAF:          c.VIAF,
		Biography:     c.Biography,
		Aliases:       slices.Clone(c.Aliases),
		Extra:         make(map[string]any),
	}, nil
}

// Apply copies every non-empty field onto dest and reports whether dest
// changed. Populated fields are never blanked, aliases are only
// appended, and extra keys already on dest are left alone.
func (d *ContributorData) Apply(dest *catalog.Contributor) bool {
	changed := false
	set := func(field *string, value string) {
		if value != "" && value != *field {
			*field = value
			changed = true
		}
	}

	set(&dest.SortName, d.SortName)

	aliases := slices.Clone(dest.Aliases)
	for _, name := range append([]string{d.SortName}, d.Aliases...) {
		if name == "" || name == dest.SortName || slices.Contains(aliases, name) {
			continue
		}
		aliases = append(aliases, name)
	}
	if !slices.Equal(aliases, dest.Aliases) {
		dest.Aliases = aliases
		changed = true
	}

	if len(d.Extra) > 0 && dest.Extra == nil {
		dest.Extra = make(map[string]any, len(d.Extra))
	}
	for k, v := range d.Extra {
		if _, ok := dest.Extra[k]; !ok {
			dest.Extra[k] = v
		}
	}

	set(&dest.LC, d.LC)
	set(&dest.VIAF, d.VIAF)
	set(&dest.FamilyName, d.FamilyName)
	set(&dest.DisplayName, d.DisplayName)
	set(&dest.WikipediaName, d.WikipediaName)
	set(&dest.Biography, d.Biography)
	return changed
}

// Lookup is the key used to find this contributor in the store.
func (d *ContributorData) Lookup() catalog.ContributorLookup {
	return catalog.ContributorLookup{SortName: d.SortName, LC: d.LC, VIAF: d.VIAF}
}

// Registrable reports whether there is enough to find or create a contributor.
func (d *ContributorData) Registrable() bool {
	return d.SortName != "" || d.LC != "" || d.VIAF != ""
}

// FindSortName tries hard to fill in SortName: first from an existing
// contributor with the same display name, then through canon for each
// ISBN among identifiers, then through canon with no identifier. It
// reports whether a sort name is now known. A contributor with neither
// a sort name nor a display name is a ValidationError.
func (d *ContributorData) FindSortName(ctx context.Context, store catalog.Store, identifiers []IdentifierData, canon canonicalize.Canonicalizer) (bool, error) {
	if d.SortName != "" {
		return true, nil
	}
	if d.DisplayName == "" {
		return false, errors.NewValidationError("display_name", nil, "cannot find sort name for a contributor with no display name")
	}
	logger := logging.FromContext(ctx)

	existing, err := store.ContributorsByDisplayName(ctx, d.DisplayName)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		d.SortName = existing[0].SortName
		logger.Debug().
			Str("display_name", d.DisplayName).
			Str("sort_name", d.SortName).
			Msg("sort name taken from existing contributor")
		return true, nil
	}

	if canon == nil {
		return false, nil
	}
	for _, id := range identifiers {
		if id.Type != constants.IdentifierISBN {
			continue
		}
		identifier, _, err := id.Load(ctx, store)
		if err != nil {
			return false, err
		}
		if d.canonicalize(ctx, canon, identifier) {
			return true, nil
		}
	}
	return d.canonicalize(ctx, canon, nil), nil
}

func (d *ContributorData) canonicalize(ctx context.Context, canon canonicalize.Canonicalizer, identifier *catalog.Identifier) bool {
	logger := logging.FromContext(ctx)
	name, err := canon.CanonicalizeAuthorName(ctx, identifier, d.DisplayName)
	if err != nil || name == "" {
		event := logger.Warn().Str("display_name", d.DisplayName)
		if identifier != nil {
			event = event.Str("identifier", identifier.String())
		}
		event.AnErr("error", err).Msg("canonicalizer could not find sort name")
		return false
	}
	logger.Info().Str("display_name", d.DisplayName).Str("sort_name", name).Msg("canonicalizer found sort name")
	d.SortName = name
	return true
}
