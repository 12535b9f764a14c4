package reconcile

import (
	"context"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/workid"
)

// CalculatePermanentWorkID sets rec.PermanentWorkID from its title and
// primary author and returns it. A record with no author, or whose
// primary author has no resolvable sort name, gets none.
func (r *Reconciler) CalculatePermanentWorkID(ctx context.Context, rec *metadata.Metadata) (string, error) {
	primary := rec.PrimaryAuthor()
	if primary == nil {
		return "", nil
	}
	if primary.SortName == "" {
		if _, err := primary.FindSortName(ctx, r.store, rec.Identifiers, r.canonicalizer); err != nil && !errors.IsValidationError(err) {
			return "", err
		}
	}
	if primary.SortName == "" {
		logging.FromContext(ctx).Debug().Str("display_name", primary.DisplayName).Msg("no sort name for primary author, no permanent work ID")
		return "", nil
	}
	title := catalog.TitleForPermanentWorkID(&catalog.Edition{Title: rec.Title, Subtitle: rec.Subtitle})
	rec.PermanentWorkID = workid.ForTitleAndAuthor(title, primary.SortName, rec.WorkIDTag())
	return rec.PermanentWorkID, nil
}

// AssociateWithIdentifiersBasedOnPermanentWorkID links rec's primary
// identifier to the primary identifiers of other editions of the same
// work and medium that come from sources which lend books. The links
// are a guess, so they are weak. It returns how many were made.
func (r *Reconciler) AssociateWithIdentifiersBasedOnPermanentWorkID(ctx context.Context, rec *metadata.Metadata) (int, error) {
	if rec.PermanentWorkID == "" || rec.PrimaryIdentifier == nil {
		return 0, nil
	}
	primary, _, err := rec.PrimaryIdentifier.Load(ctx, r.store)
	if err != nil {
		return 0, errors.WrapResource("create", "identifier", rec.PrimaryIdentifier.String(), err)
	}
	editions, err := r.store.FindEditions(ctx, catalog.EditionQuery{PermanentWorkID: rec.PermanentWorkID, Medium: rec.Medium})
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, edition := range editions {
		other, err := r.store.Identifier(ctx, edition.PrimaryIdentifierID)
		if err != nil {
			return linked, err
		}
		if other.ID == primary.ID || !constants.IsLicenseProvidingIdentifierType(other.Type) {
			continue
		}
		if _, err := r.store.AddEquivalency(ctx, primary.ID, other.ID, rec.DataSource, constants.PermanentWorkIDEquivalencyStrength); err != nil {
			return linked, errors.WrapResource("create", "equivalency", other.String(), err)
		}
		linked++
	}
	if linked > 0 {
		logging.FromContext(ctx).Info().
			Str("identifier", primary.String()).
			Str("permanent_work_id", rec.PermanentWorkID).
			Int("linked", linked).
			Msg("associated identifiers sharing a permanent work ID")
	}
	return linked, nil
}

// GuessLicensePools looks for deliverable license pools that might be
// the book rec describes and returns each candidate pool's ID with a
// confidence. Each author on the record is tried against progressively
// looser matches, stopping at the first that finds anything; a pool
// keeps the best confidence any author gave it.
func (r *Reconciler) GuessLicensePools(ctx context.Context, rec *metadata.Metadata) (map[string]float64, error) {
	potentials := make(map[string]float64)
	if rec.Title == "" {
		return potentials, nil
	}

	for _, contributor := range rec.AuthorContributors() {
		if contributor.SortName == "" {
			if _, err := contributor.FindSortName(ctx, r.store, rec.Identifiers, r.canonicalizer); err != nil && !errors.IsValidationError(err) {
				return nil, err
			}
		}
		pwid, err := r.CalculatePermanentWorkID(ctx, rec)
		if err != nil {
			return nil, err
		}

		base := catalog.EditionQuery{Title: rec.Title, Medium: constants.MediumBook}
		var tiers []guessTier
		if pwid != "" {
			q := base
			q.PermanentWorkID = pwid
			tiers = append(tiers, guessTier{q, constants.ConfidencePermanentWorkID})
		}
		if contributor.SortName != "" {
			q := base
			q.SortAuthor = contributor.SortName
			tiers = append(tiers, guessTier{q, constants.ConfidenceSortAuthor})
		}
		if contributor.DisplayName != "" {
			q := base
			q.Author = contributor.DisplayName
			tiers = append(tiers, guessTier{q, constants.ConfidenceDisplayAuthor})
		}
		unknown := base
		unknown.Author = constants.UnknownAuthor
		tiers = append(tiers,
			guessTier{unknown, constants.ConfidenceUnknownAuthor},
			guessTier{base, constants.ConfidenceTitleOnly},
		)

		for _, tier := range tiers {
			found, err := r.runGuess(ctx, tier, potentials)
			if err != nil {
				return nil, err
			}
			if found {
				break
			}
		}
	}
	return potentials, nil
}

type guessTier struct {
	query      catalog.EditionQuery
	confidence float64
}

// runGuess raises the confidence of every deliverable pool behind the
// tier's editions. It reports whether any pool was raised.
func (r *Reconciler) runGuess(ctx context.Context, tier guessTier, potentials map[string]float64) (bool, error) {
	editions, err := r.store.FindEditions(ctx, tier.query)
	if err != nil {
		return false, err
	}
	found := false
	for _, edition := range editions {
		pools, err := catalog.EditionLicensePools(ctx, r.store, edition)
		if err != nil {
			return false, err
		}
		for _, pool := range pools {
			ok, err := catalog.Deliverable(ctx, r.store, pool)
			if err != nil {
				return false, err
			}
			if ok && potentials[pool.ID] < tier.confidence {
				potentials[pool.ID] = tier.confidence
				found = true
			}
		}
	}
	return found, nil
}

// FilterRecommendations drops recommendations that are not in the
// store, and the record's own primary identifier.
func (r *Reconciler) FilterRecommendations(ctx context.Context, rec *metadata.Metadata) error {
	var types []string
	byType := make(map[string][]string)
	for _, id := range rec.Recommendations {
		if _, ok := byType[id.Type]; !ok {
			types = append(types, id.Type)
		}
		byType[id.Type] = append(byType[id.Type], id.Identifier)
	}

	var kept []metadata.IdentifierData
	for _, typ := range types {
		existing, err := r.store.IdentifiersByValue(ctx, typ, byType[typ])
		if err != nil {
			return err
		}
		for _, id := range existing {
			if rec.PrimaryIdentifier != nil && rec.PrimaryIdentifier.Matches(id) {
				continue
			}
			kept = append(kept, metadata.NewIdentifierData(id.Type, id.Value))
		}
	}
	rec.Recommendations = kept
	return nil
}
