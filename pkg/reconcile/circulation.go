package reconcile

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/pkg/analytics"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/provenance"
)

// ApplyCirculation brings the license pool for rec's title in
// collection up to date. With no collection only links and delivery
// mechanisms are processed, and supplying license counts is an error.
//
// The returned flag is true when license counts changed or the title's
// open-access status flipped.
func (r *Reconciler) ApplyCirculation(ctx context.Context, rec *metadata.CirculationData, collection *catalog.Collection, policy *metadata.ReplacementPolicy) (*catalog.LicensePool, bool, error) {
	if collection == nil && rec.HasCounts() {
		return nil, false, errors.NewValidationError("collection", nil, "cannot store circulation information without a collection")
	}
	if rec.PrimaryIdentifier == nil {
		return nil, false, errors.NewValidationError("primary_identifier", nil, "circulation data has no primary identifier")
	}
	policy = policyOrDefault(policy)
	source := rec.DataSource

	identifier, _, err := rec.PrimaryIdentifier.Load(ctx, r.store)
	if err != nil {
		return nil, false, errors.WrapResource("load", "identifier", rec.PrimaryIdentifier.String(), err)
	}
	ctx = logging.WithIdentifier(logging.WithSource(ctx, source), identifier.String())
	logger := logging.FromContext(ctx)

	var pool *catalog.LicensePool
	if collection != nil {
		if pool, err = r.LicensePool(ctx, rec, identifier, collection, policy.Analytics); err != nil {
			return nil, false, err
		}
	}

	resources := make(map[string]*catalog.Resource)
	hyperlinks := make([]*catalog.Hyperlink, len(rec.Links))
	for i, link := range rec.Links {
		if !constants.IsCirculationRel(link.Rel) {
			continue
		}
		hyperlink, resource, err := catalog.AddLink(ctx, r.store, identifier, source, linkSpec(link))
		if err != nil {
			return nil, false, errors.WrapResource("create", "hyperlink", link.Href, err)
		}
		hyperlinks[i] = hyperlink
		resources[link.Href] = resource
	}
	if policy.Mirror != nil {
		owner, err := r.PoolOwner(ctx, pool, identifier)
		if err != nil {
			return nil, false, err
		}
		for i, link := range rec.Links {
			if hyperlinks[i] == nil {
				continue
			}
			if err := r.MirrorLink(ctx, owner, source, link, hyperlinks[i], policy); err != nil {
				return nil, false, err
			}
		}
	}

	var oldMechanisms []*catalog.PoolDeliveryMechanism
	if pool != nil {
		if oldMechanisms, err = r.store.PoolDeliveryMechanisms(ctx, source, identifier.ID); err != nil {
			return nil, false, err
		}
	}
	oldOpenAccess, err := catalog.AnyOpenAccess(ctx, r.store, identifier.ID)
	if err != nil {
		return nil, false, err
	}

	current := make(map[string]bool, len(rec.Formats))
	for _, format := range rec.Formats {
		contentType := format.ContentType
		resourceID := ""
		if format.Link != nil {
			if contentType == "" {
				contentType = format.Link.MediaType
			}
			resource, ok := resources[format.Link.Href]
			if !ok && format.Link.Href != "" {
				_, resource, err = catalog.AddLink(ctx, r.store, identifier, source, linkSpec(*format.Link))
				if err != nil {
					return nil, false, errors.WrapResource("create", "hyperlink", format.Link.Href, err)
				}
				resources[format.Link.Href] = resource
			}
			if resource != nil {
				resourceID = resource.ID
			}
		}
		rights := format.RightsURI
		if rights == "" {
			rights = rec.DefaultRightsURI
		}
		lpdm, err := catalog.SetPoolDeliveryMechanism(ctx, r.store, source, identifier.ID, contentType, format.DRMScheme, rights, resourceID)
		if err != nil {
			return nil, false, errors.WrapResource("update", "delivery mechanism", contentType, err)
		}
		current[lpdm.ID] = true
	}

	if policy.Formats {
		for _, lpdm := range oldMechanisms {
			if current[lpdm.ID] {
				continue
			}
			loans, err := catalog.DeletePoolDeliveryMechanism(ctx, r.store, lpdm)
			if err != nil {
				return nil, false, errors.WrapResource("delete", "delivery mechanism", lpdm.ID, err)
			}
			for _, loan := range loans {
				logger.Info().Str("loan", loan.ID).Msg("loan was fulfilled through a format that is no longer available")
			}
		}
	}

	newOpenAccess, err := catalog.AnyOpenAccess(ctx, r.store, identifier.ID)
	if err != nil {
		return nil, false, err
	}

	availabilityChanged := false
	if pool != nil {
		// Re-read: delivery mechanism changes may have touched the pool.
		if pool, err = r.store.LicensePool(ctx, pool.ID); err != nil {
			return nil, false, err
		}
		if availabilityNeedsUpdate(rec, pool) {
			availabilityChanged, err = r.UpdateAvailability(ctx, pool, collection, Availability{
				LicensesOwned:      rec.LicensesOwned,
				LicensesAvailable:  rec.LicensesAvailable,
				LicensesReserved:   rec.LicensesReserved,
				PatronsInHoldQueue: rec.PatronsInHoldQueue,
			}, rec.LastChecked, policy.Analytics)
			if err != nil {
				return nil, false, err
			}
		} else {
			logger.Debug().Msg("circulation data is older than the license pool, counts left alone")
		}
	}

	return pool, availabilityChanged || oldOpenAccess != newOpenAccess, nil
}

// availabilityNeedsUpdate reports whether rec is at least as recent as
// what pool already knows. Missing timestamps count as newest.
func availabilityNeedsUpdate(rec *metadata.CirculationData, pool *catalog.LicensePool) bool {
	if rec.LastChecked == nil || pool.LastChecked == nil {
		return true
	}
	return !rec.LastChecked.Time.Before(pool.LastChecked.Time)
}

// LicensePool finds or creates the pool for identifier in collection.
// A new pool is open access if rec has a usable open-access link, and
// every library sharing the collection gets a title-added event.
func (r *Reconciler) LicensePool(ctx context.Context, rec *metadata.CirculationData, identifier *catalog.Identifier, collection *catalog.Collection, sink analytics.Provider) (*catalog.LicensePool, error) {
	pool, created, err := r.store.FindOrCreateLicensePool(ctx, rec.DataSource, identifier.ID, collection.ID)
	if err != nil {
		return nil, errors.WrapResource("create", "license pool", identifier.String(), err)
	}
	if !created {
		return pool, nil
	}

	pool.OpenAccess = rec.HasOpenAccessLink()
	pool.AvailabilityTime = rec.LastChecked
	pool.LastChecked = rec.LastChecked
	if err := r.store.UpdateLicensePool(ctx, pool); err != nil {
		return nil, errors.WrapResource("update", "license pool", pool.ID, err)
	}
	logging.FromContext(ctx).Info().
		Str("license_pool", pool.ID).
		Str("collection", collection.Name).
		Bool("open_access", pool.OpenAccess).
		Msg("created license pool")

	at := rec.CheckedAt()
	for _, libraryID := range collection.LibraryIDs {
		r.collect(ctx, sink, analytics.NewEvent(libraryID, pool, constants.EventDistributorTitleAdd, &at, 0, 1))
	}
	return pool, nil
}

// Availability is a set of license counts. Nil counts are left alone.
type Availability struct {
	LicensesOwned      *int
	LicensesAvailable  *int
	LicensesReserved   *int
	PatronsInHoldQueue *int
}

// UpdateAvailability writes the counts onto pool as of asOf (nil means
// now), emitting a circulation event per library for each count that
// moved. It reports whether any count changed.
func (r *Reconciler) UpdateAvailability(ctx context.Context, pool *catalog.LicensePool, collection *catalog.Collection, counts Availability, asOf *utc.Time, sink analytics.Provider) (bool, error) {
	at := utc.Now()
	if asOf != nil {
		at = *asOf
	}

	var events []analytics.Event
	changed := false
	update := func(field string, dst *int, value *int, up, down string) {
		if value == nil || *value == *dst {
			return
		}
		old := *dst
		*dst = *value
		changed = true
		r.track(provenance.ResourceLicensePool, pool.ID, pool.DataSource, field, old, *value)

		eventType := up
		if *value < old {
			eventType = down
		}
		if eventType == "" {
			return
		}
		if collection == nil {
			return
		}
		for _, libraryID := range collection.LibraryIDs {
			events = append(events, analytics.NewEvent(libraryID, pool, eventType, &at, old, *value))
		}
	}
	update("licenses_owned", &pool.LicensesOwned, counts.LicensesOwned,
		constants.EventDistributorLicenseAdd, constants.EventDistributorLicenseRemove)
	update("licenses_available", &pool.LicensesAvailable, counts.LicensesAvailable,
		constants.EventDistributorCheckin, constants.EventDistributorCheckout)
	update("licenses_reserved", &pool.LicensesReserved, counts.LicensesReserved, "", "")
	update("patrons_in_hold_queue", &pool.PatronsInHoldQueue, counts.PatronsInHoldQueue,
		constants.EventDistributorHoldPlace, constants.EventDistributorHoldRelease)

	if changed && pool.AvailabilityTime == nil {
		pool.AvailabilityTime = &at
	}
	pool.LastChecked = &at
	if err := r.store.UpdateLicensePool(ctx, pool); err != nil {
		return false, errors.WrapResource("update", "license pool", pool.ID, err)
	}

	for _, e := range events {
		r.collect(ctx, sink, e)
	}
	if changed {
		logging.FromContext(ctx).Info().
			Str("license_pool", pool.ID).
			Int("licenses_owned", pool.LicensesOwned).
			Int("licenses_available", pool.LicensesAvailable).
			Int("licenses_reserved", pool.LicensesReserved).
			Int("patrons_in_hold_queue", pool.PatronsInHoldQueue).
			Msg("availability changed")
	}
	return changed, nil
}

func linkSpec(l metadata.LinkData) catalog.LinkSpec {
	return catalog.LinkSpec{Rel: l.Rel, Href: l.Href, MediaType: l.MediaType, Content: l.Content}
}
