package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/analytics"
	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/catalog/memory"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/workid"
)

func testApp(t *testing.T, edit func(*Config)) *App {
	t.Helper()
	config := &Config{
		StorePath:     filepath.Join(t.TempDir(), "catalog.yaml"),
		Policy:        metadata.PolicyAppendOnly,
		DataSource:    constants.DataSourceLibraryStaff,
		Canonicalizer: canonicalize.Config{Kind: canonicalize.KindHeuristic},
		LogFormat:     "json",
		LogOutput:     "discard",
	}
	if edit != nil {
		edit(config)
	}
	return &App{version: "1.2.3", config: config, logger: logging.NewNopLogger()}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := testApp(t, nil)

	// Nothing loaded yet, nothing to save.
	require.NoError(t, a.SaveStore(ctx))

	store, err := a.Store(ctx)
	require.NoError(t, err)
	_, _, err = store.FindOrCreateIdentifier(ctx, constants.IdentifierISBN, "9780142437247")
	require.NoError(t, err)
	require.NoError(t, a.SaveStore(ctx))

	reopened := testApp(t, func(c *Config) { c.StorePath = a.config.StorePath })
	store, err = reopened.Store(ctx)
	require.NoError(t, err)
	id, err := store.LookupIdentifier(ctx, constants.IdentifierISBN, "9780142437247")
	require.NoError(t, err)
	assert.Equal(t, "9780142437247", id.Value)
}

func TestCollection(t *testing.T) {
	ctx := context.Background()

	none := testApp(t, nil)
	c, err := none.Collection(ctx)
	require.NoError(t, err)
	assert.Nil(t, c)

	a := testApp(t, func(c *Config) {
		c.Collection = "Main"
		c.Libraries = []string{"Main Street", "Riverside"}
	})
	first, err := a.Collection(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.DataSourceLibraryStaff, first.DataSource)
	assert.Len(t, first.LibraryIDs, 2)

	second, err := a.Collection(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()

	a := testApp(t, func(c *Config) {
		c.Policy = metadata.PolicyLicenseSource
		c.Analytics = []analytics.ProviderConfig{{Kind: "memory"}}
	})
	policy, err := a.Policy(ctx, metadata.WithForce(true))
	require.NoError(t, err)
	assert.True(t, policy.Formats)
	assert.True(t, policy.EvenIfNotApparentlyUpdated)
	assert.NotNil(t, policy.Analytics)
	assert.Nil(t, policy.Mirror)

	bad := testApp(t, func(c *Config) {
		c.Analytics = []analytics.ProviderConfig{{Kind: "carrier-pigeon"}}
	})
	_, err = bad.Policy(ctx)
	assert.True(t, errors.IsConfigError(err))
}

func TestReconcilerUsesCanonicalizer(t *testing.T) {
	ctx := context.Background()
	a := testApp(t, nil)
	r, err := a.Reconciler(ctx)
	require.NoError(t, err)

	store, err := a.Store(ctx)
	require.NoError(t, err)
	assert.Same(t, store, r.Store())

	again, err := a.Reconciler(ctx)
	require.NoError(t, err)
	assert.Same(t, r, again)

	rec := metadata.New(metadata.Metadata{
		DataSource:   constants.DataSourceLibraryStaff,
		Title:        "Moby-Dick",
		Contributors: []metadata.ContributorData{metadata.NewContributorData("", "Herman Melville")},
	})
	id, err := r.CalculatePermanentWorkID(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, workid.ForTitleAndAuthor("Moby-Dick", "Melville, Herman", "book"), id)
}

func TestWithStore(t *testing.T) {
	store := memory.New()
	a := testApp(t, nil)
	require.NoError(t, WithStore(store)(a))
	got, err := a.Store(context.Background())
	require.NoError(t, err)
	assert.Same(t, store, got)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"version", []string{"version"}, "metalayer 1.2.3"},
		{"workid", []string{"workid", "--title", "Moby-Dick", "--author", "Melville, Herman"},
			workid.ForTitleAndAuthor("Moby-Dick", "Melville, Herman", "book")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(t, nil)
			root := a.createRootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs(tt.args)
			require.NoError(t, root.ExecuteContext(context.Background()))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestExecuteRejectsFormat(t *testing.T) {
	a := testApp(t, nil)
	err := a.Execute(context.Background(), []string{"--format", "wide", "version"})
	assert.Error(t, err)
}
