package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
)

func TestSetPoolDeliveryMechanismRecomputesOpenAccess(t *testing.T) {
	f := newFixture(t)
	coll, err := f.store.CreateCollection(f.ctx, "Gutenberg", constants.DataSourceGutenberg)
	require.NoError(t, err)
	pool, _, err := f.store.FindOrCreateLicensePool(f.ctx, constants.DataSourceGutenberg, f.identifier.ID, coll.ID)
	require.NoError(t, err)
	assert.False(t, pool.OpenAccess)

	lpdm, err := catalog.SetPoolDeliveryMechanism(f.ctx, f.store, constants.DataSourceGutenberg, f.identifier.ID,
		constants.MediaEPUB, constants.DRMNone, constants.RightsPublicDomainUSA, "")
	require.NoError(t, err)

	pool, err = f.store.LicensePool(f.ctx, pool.ID)
	require.NoError(t, err)
	assert.True(t, pool.OpenAccess)

	open, err := catalog.AnyOpenAccess(f.ctx, f.store, f.identifier.ID)
	require.NoError(t, err)
	assert.True(t, open)

	ok, err := catalog.Deliverable(f.ctx, f.store, pool)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.store.CreateLoan(f.ctx, &catalog.Loan{LicensePoolID: pool.ID, Patron: "p1", FulfillmentID: lpdm.ID}))
	cleared, err := catalog.DeletePoolDeliveryMechanism(f.ctx, f.store, lpdm)
	require.NoError(t, err)
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].FulfillmentID)

	pool, err = f.store.LicensePool(f.ctx, pool.ID)
	require.NoError(t, err)
	assert.False(t, pool.OpenAccess)

	ok, err = catalog.Deliverable(f.ctx, f.store, pool)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeliverable(t *testing.T) {
	f := newFixture(t)
	coll, err := f.store.CreateCollection(f.ctx, "OD", constants.DataSourceOverdrive)
	require.NoError(t, err)
	pool, _, err := f.store.FindOrCreateLicensePool(f.ctx, constants.DataSourceOverdrive, f.identifier.ID, coll.ID)
	require.NoError(t, err)
	_, err = catalog.SetPoolDeliveryMechanism(f.ctx, f.store, constants.DataSourceOverdrive, f.identifier.ID,
		constants.MediaEPUB, constants.DRMAdobe, constants.RightsInCopyright, "")
	require.NoError(t, err)

	tests := []struct {
		name       string
		owned      int
		suppressed bool
		want       bool
	}{
		{"owned", 2, false, true},
		{"nothing owned", 0, false, false},
		{"suppressed", 2, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool.LicensesOwned = tt.owned
			pool.Suppressed = tt.suppressed
			got, err := catalog.Deliverable(f.ctx, f.store, pool)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddLinkInlineContent(t *testing.T) {
	f := newFixture(t)
	link, resource, err := catalog.AddLink(f.ctx, f.store, f.identifier, constants.DataSourceGutenberg, catalog.LinkSpec{
		Rel:       constants.RelDescription,
		MediaType: constants.MediaText,
		Content:   "Call me Ishmael.",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.RelDescription, link.Rel)
	assert.Equal(t, catalog.GenericURI(constants.DataSourceGutenberg, f.identifier, constants.RelDescription, "Call me Ishmael."), resource.URL)

	rep, err := f.store.Representation(f.ctx, resource.RepresentationID)
	require.NoError(t, err)
	assert.Equal(t, "Call me Ishmael.", string(rep.Content))
	assert.Equal(t, 200, rep.StatusCode)

	again, _, err := catalog.AddLink(f.ctx, f.store, f.identifier, constants.DataSourceGutenberg, catalog.LinkSpec{
		Rel: constants.RelDescription, MediaType: constants.MediaText, Content: "Call me Ishmael.",
	})
	require.NoError(t, err)
	assert.Equal(t, link.ID, again.ID)
}
