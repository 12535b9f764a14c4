package catalog

import (
	"context"

	"github.com/agentstation/metalayer/pkg/constants"
)

// SetPoolDeliveryMechanism upserts the mechanism for (contentType,
// drmScheme) on every pool for the identifier from source. A rights
// change recomputes the open-access status of those pools.
func SetPoolDeliveryMechanism(ctx context.Context, store CirculationStore, source, identifierID, contentType, drmScheme, rightsURI, resourceID string) (*PoolDeliveryMechanism, error) {
	mechanism, _, err := store.FindOrCreateDeliveryMechanism(ctx, contentType, drmScheme)
	if err != nil {
		return nil, err
	}
	lpdm, created, err := store.FindOrCreatePoolDeliveryMechanism(ctx, source, identifierID, mechanism.ID)
	if err != nil {
		return nil, err
	}

	dirty := created
	if lpdm.RightsURI != rightsURI {
		lpdm.RightsURI = rightsURI
		dirty = true
	}
	if resourceID != "" && lpdm.ResourceID != resourceID {
		lpdm.ResourceID = resourceID
		dirty = true
	}
	if !dirty {
		return lpdm, nil
	}
	if err := store.UpdatePoolDeliveryMechanism(ctx, lpdm); err != nil {
		return nil, err
	}
	return lpdm, RecomputeOpenAccess(ctx, store, source, identifierID)
}

// DeletePoolDeliveryMechanism removes a mechanism after clearing any
// loan fulfilled through it, then recomputes open access.
func DeletePoolDeliveryMechanism(ctx context.Context, store CirculationStore, lpdm *PoolDeliveryMechanism) ([]*Loan, error) {
	loans, err := store.LoansFulfilledBy(ctx, lpdm.ID)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		loan.FulfillmentID = ""
		if err := store.UpdateLoan(ctx, loan); err != nil {
			return nil, err
		}
	}
	if err := store.DeletePoolDeliveryMechanism(ctx, lpdm.ID); err != nil {
		return nil, err
	}
	return loans, RecomputeOpenAccess(ctx, store, lpdm.DataSource, lpdm.IdentifierID)
}

// RecomputeOpenAccess sets OpenAccess on each pool for the identifier
// from source according to the rights of its delivery mechanisms.
func RecomputeOpenAccess(ctx context.Context, store CirculationStore, source, identifierID string) error {
	mechanisms, err := store.PoolDeliveryMechanisms(ctx, source, identifierID)
	if err != nil {
		return err
	}
	open := false
	for _, m := range mechanisms {
		if constants.IsOpenAccessRights(m.RightsURI) {
			open = true
			break
		}
	}

	pools, err := store.LicensePoolsForIdentifier(ctx, identifierID)
	if err != nil {
		return err
	}
	for _, pool := range pools {
		if pool.DataSource != source || pool.OpenAccess == open {
			continue
		}
		pool.OpenAccess = open
		if err := store.UpdateLicensePool(ctx, pool); err != nil {
			return err
		}
	}
	return nil
}

// AnyOpenAccess reports whether any pool for the identifier is open access.
func AnyOpenAccess(ctx context.Context, store CirculationStore, identifierID string) (bool, error) {
	pools, err := store.LicensePoolsForIdentifier(ctx, identifierID)
	if err != nil {
		return false, err
	}
	for _, pool := range pools {
		if pool.OpenAccess {
			return true, nil
		}
	}
	return false, nil
}

// Deliverable reports whether a patron could actually get the book
// from pool: it is not suppressed, it has a license or is open access,
// and at least one delivery mechanism exists.
func Deliverable(ctx context.Context, store CirculationStore, pool *LicensePool) (bool, error) {
	if pool.Suppressed || (!pool.OpenAccess && pool.LicensesOwned <= 0) {
		return false, nil
	}
	mechanisms, err := store.PoolDeliveryMechanisms(ctx, pool.DataSource, pool.IdentifierID)
	if err != nil {
		return false, err
	}
	return len(mechanisms) > 0, nil
}

// EditionLicensePools returns the pools from the edition's own source
// for its primary identifier.
func EditionLicensePools(ctx context.Context, store CirculationStore, edition *Edition) ([]*LicensePool, error) {
	pools, err := store.LicensePoolsForIdentifier(ctx, edition.PrimaryIdentifierID)
	if err != nil {
		return nil, err
	}
	var out []*LicensePool
	for _, pool := range pools {
		if pool.DataSource == edition.DataSource {
			out = append(out, pool)
		}
	}
	return out, nil
}
