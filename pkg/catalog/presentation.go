package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/agentstation/metalayer/internal/titles"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/workid"
)

// PresentationCalculationPolicy controls which derived edition fields
// are recomputed.
type PresentationCalculationPolicy struct {
	// SetEditionMetadata recomputes author, sort author, sort title and permanent work ID.
	SetEditionMetadata bool `yaml:"set_edition_metadata"`
	// ChooseCover re-runs cover selection.
	ChooseCover bool `yaml:"choose_cover"`
	// Verbose logs the outcome at info level when something changed.
	Verbose bool `yaml:"verbose"`
}

// DefaultPresentationPolicy recomputes everything quietly.
func DefaultPresentationPolicy() PresentationCalculationPolicy {
	return PresentationCalculationPolicy{SetEditionMetadata: true, ChooseCover: true}
}

// AuthorContributors returns the distinct contributors who belong on
// the cover: the primary author first, then other authors by sort name.
// With no authors, the first substitute or performer role present is
// used. A lone contributor always counts, whatever the role or
// however many sources credit them.
func AuthorContributors(ctx context.Context, store ContributorStore, edition *Edition) ([]*Contributor, error) {
	contributions, err := store.Contributions(ctx, edition.ID)
	if err != nil {
		return nil, err
	}
	if len(contributions) == 0 {
		return nil, nil
	}
	// Several sources may credit the same person; count people, not rows.
	people := make(map[string]bool, len(contributions))
	for _, contribution := range contributions {
		people[contribution.ContributorID] = true
	}
	if len(people) == 1 {
		c, err := store.Contributor(ctx, contributions[0].ContributorID)
		if err != nil {
			return nil, err
		}
		return []*Contributor{c}, nil
	}

	var primary *Contributor
	var others []*Contributor
	substitutes := make(map[string][]*Contributor)
	for _, contribution := range contributions {
		c, err := store.Contributor(ctx, contribution.ContributorID)
		if err != nil {
			return nil, err
		}
		role := contribution.Role
		switch {
		case primary == nil && role == constants.RolePrimaryAuthor:
			primary = c
		case role == constants.RolePrimaryAuthor || role == constants.RoleAuthor:
			others = append(others, c)
		case strings.HasPrefix(strings.ToLower(role), "author and"):
			others = append(others, c)
		case contains(constants.AuthorSubstituteRoles, role) || contains(constants.PerformerRoles, role):
			substitutes[role] = append(substitutes[role], c)
		}
	}

	if primary != nil {
		sortBySortName(others)
		return dedupe(append([]*Contributor{primary}, others...)), nil
	}
	if len(others) > 0 {
		return dedupe(others), nil
	}
	for _, role := range append(append([]string{}, constants.AuthorSubstituteRoles...), constants.PerformerRoles...) {
		if list, ok := substitutes[role]; ok {
			list = dedupe(list)
			sortBySortName(list)
			return list, nil
		}
	}
	return nil, nil
}

// CalculateAuthor turns author contributors into the display author
// string (ordered by family name) and the sort author string.
func CalculateAuthor(authors []*Contributor) (author, sortAuthor string) {
	type named struct{ family, display string }
	var displays []named
	var sortNames []string
	for _, c := range authors {
		defaultFamily, defaultDisplay := c.DefaultNames()
		display := firstNonEmpty(c.DisplayName, defaultDisplay, c.SortName)
		family := firstNonEmpty(c.FamilyName, defaultFamily, c.SortName)
		displays = append(displays, named{family, display})
		if c.SortName != "" {
			sortNames = append(sortNames, c.SortName)
		}
	}

	author = constants.UnknownAuthor
	if len(displays) > 0 {
		sort.Slice(displays, func(i, j int) bool {
			if displays[i].family != displays[j].family {
				return displays[i].family < displays[j].family
			}
			return displays[i].display < displays[j].display
		})
		parts := make([]string, len(displays))
		for i, d := range displays {
			parts[i] = d.display
		}
		author = strings.Join(parts, ", ")
	}

	sortAuthor = constants.UnknownAuthor
	if len(sortNames) > 0 {
		sort.Strings(sortNames)
		sortAuthor = strings.Join(sortNames, " ; ")
	}
	return author, sortAuthor
}

// TitleForPermanentWorkID joins title and subtitle.
func TitleForPermanentWorkID(edition *Edition) string {
	if edition.Subtitle != "" {
		return edition.Title + ": " + edition.Subtitle
	}
	return edition.Title
}

// CalculatePermanentWorkID recomputes edition.PermanentWorkID. An
// edition without a title has no permanent work ID.
func CalculatePermanentWorkID(ctx context.Context, store ContributorStore, edition *Edition) error {
	title := TitleForPermanentWorkID(edition)
	if title == "" {
		edition.PermanentWorkID = ""
		return nil
	}

	authors, err := AuthorContributors(ctx, store, edition)
	if err != nil {
		return err
	}
	author := firstNonEmpty(edition.SortAuthor, edition.Author)
	if len(authors) > 0 {
		author = authors[0].SortName
	}

	old := edition.PermanentWorkID
	edition.PermanentWorkID = workid.ForTitleAndAuthor(title, author, constants.WorkIDTag(edition.Medium))
	if old != edition.PermanentWorkID {
		logging.FromContext(ctx).Debug().
			Str("edition_id", edition.ID).
			Str("old", old).
			Str("new", edition.PermanentWorkID).
			Msg("permanent work ID changed")
	}
	return nil
}

// SetCover makes resource the edition's cover and picks a thumbnail URL.
func SetCover(ctx context.Context, store LinkStore, edition *Edition, resource *Resource) error {
	edition.CoverResourceID = resource.ID
	edition.CoverFullURL = resource.URL

	if resource.RepresentationID == "" {
		logging.FromContext(ctx).Warn().Str("resource", resource.URL).Msg("best cover has no representation")
		return nil
	}
	rep, err := store.Representation(ctx, resource.RepresentationID)
	if err != nil {
		return err
	}
	edition.CoverFullURL = rep.PublicURL()

	if rep.ImageHeight > 0 && rep.ImageHeight <= constants.MaxThumbnailHeight {
		edition.CoverThumbnailURL = rep.PublicURL()
		return nil
	}
	thumbs, err := store.Thumbnails(ctx, rep.ID)
	if err != nil {
		return err
	}
	if len(thumbs) > 0 {
		edition.CoverThumbnailURL = thumbs[0].PublicURL()
	} else {
		logging.FromContext(ctx).Warn().Str("cover", rep.PublicURL()).Msg("best cover was never thumbnailed")
	}
	if edition.CoverThumbnailURL == "" && rep.ImageHeight > 0 && rep.ImageHeight <= constants.MaxFallbackThumbnailHeight {
		edition.CoverThumbnailURL = rep.PublicURL()
	}
	return nil
}

// ChooseCover looks for a cover on the primary identifier, then on
// identifiers up to five hops away, and records that it tried.
func ChooseCover(ctx context.Context, store Store, edition *Edition) error {
	edition.CoverFullURL = ""
	edition.CoverThumbnailURL = ""

	found := false
	for _, distance := range []int{0, constants.DefaultEquivalentLevels} {
		ids, err := identifiersWithin(ctx, store, edition.PrimaryIdentifierID, distance)
		if err != nil {
			return err
		}
		best, err := BestCover(ctx, store, ids, constants.RelImage)
		if err != nil {
			return err
		}
		if best != nil {
			if err := SetCover(ctx, store, edition, best); err != nil {
				return err
			}
			found = true
			break
		}
	}
	if !found {
		edition.CoverResourceID = ""
	}

	if edition.CoverThumbnailURL == "" {
		for _, distance := range []int{0, constants.DefaultEquivalentLevels} {
			ids, err := identifiersWithin(ctx, store, edition.PrimaryIdentifierID, distance)
			if err != nil {
				return err
			}
			thumb, err := BestCover(ctx, store, ids, constants.RelThumbnailImage)
			if err != nil {
				return err
			}
			if thumb == nil {
				continue
			}
			if thumb.RepresentationID == "" {
				logging.FromContext(ctx).Warn().Str("resource", thumb.URL).Msg("best thumbnail has no representation")
			} else {
				rep, err := store.Representation(ctx, thumb.RepresentationID)
				if err != nil {
					return err
				}
				edition.CoverThumbnailURL = rep.PublicURL()
			}
			break
		}
	}

	_, err := store.UpsertCoverage(ctx, edition.PrimaryIdentifierID, edition.DataSource, constants.OperationChooseCover, nil)
	return err
}

// CalculatePresentation brings the edition's derived fields up to date
// and reports whether any of them changed. The edition is saved.
func CalculatePresentation(ctx context.Context, store Store, edition *Edition, policy PresentationCalculationPolicy) (bool, error) {
	before := presentationFields(edition)

	if policy.SetEditionMetadata {
		authors, err := AuthorContributors(ctx, store, edition)
		if err != nil {
			return false, err
		}
		edition.Author, edition.SortAuthor = CalculateAuthor(authors)
		edition.SortTitle = titles.SortTitleFor(edition.Title)
		if err := CalculatePermanentWorkID(ctx, store, edition); err != nil {
			return false, err
		}
		if _, err := store.UpsertCoverage(ctx, edition.PrimaryIdentifierID, edition.DataSource, constants.OperationSetEditionMetadata, nil); err != nil {
			return false, err
		}
	}

	if policy.ChooseCover {
		if err := ChooseCover(ctx, store, edition); err != nil {
			return false, err
		}
	}

	changed := presentationFields(edition) != before
	if err := store.UpdateEdition(ctx, edition); err != nil {
		return false, err
	}

	if policy.Verbose {
		logger := logging.FromContext(ctx)
		event := logger.Debug()
		status := "unchanged"
		if changed {
			event = logger.Info()
			status = "changed"
		}
		event.Str("status", status).
			Str("title", edition.Title).
			Str("author", edition.Author).
			Str("publisher", edition.Publisher).
			Str("permanent_work_id", edition.PermanentWorkID).
			Str("language", edition.Language).
			Str("cover", edition.CoverFullURL).
			Msg("presentation calculated")
	}
	return changed, nil
}

type presentation struct {
	author, sortAuthor, sortTitle, workID string
	cover, coverFull, coverThumb          string
}

func presentationFields(e *Edition) presentation {
	return presentation{
		author:     e.Author,
		sortAuthor: e.SortAuthor,
		sortTitle:  e.SortTitle,
		workID:     e.PermanentWorkID,
		cover:      e.CoverResourceID,
		coverFull:  e.CoverFullURL,
		coverThumb: e.CoverThumbnailURL,
	}
}

func identifiersWithin(ctx context.Context, store IdentifierStore, id string, distance int) ([]string, error) {
	if distance == 0 {
		return []string{id}, nil
	}
	return store.EquivalentIdentifierIDs(ctx, id, distance, constants.DefaultEquivalentThreshold)
}

func sortBySortName(list []*Contributor) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].SortName < list[j].SortName })
}

func dedupe(list []*Contributor) []*Contributor {
	seen := make(map[string]bool, len(list))
	out := make([]*Contributor, 0, len(list))
	for _, c := range list {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
