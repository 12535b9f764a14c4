// Package appcontext holds the application context interface commands
// depend on, so they can be tested without the full app.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/csvimport"
	"github.com/agentstation/metalayer/pkg/measurement"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/reconcile"
)

// Interface is what commands need from the app. The App in
// cmd/metalayer/app implements it.
type Interface interface {
	// Store returns the catalog, loading the snapshot on first use.
	Store(ctx context.Context) (catalog.Store, error)

	// SaveStore writes the catalog back to its snapshot.
	SaveStore(ctx context.Context) error

	// Reconciler returns the merge engine bound to Store.
	Reconciler(ctx context.Context) (*reconcile.Reconciler, error)

	// Policy builds the configured replacement policy. opts are applied
	// after the configured collaborators.
	Policy(ctx context.Context, opts ...metadata.PolicyOption) (*metadata.ReplacementPolicy, error)

	// Collection returns the configured collection, creating it if it
	// does not exist. It is nil when no collection is configured.
	Collection(ctx context.Context) (*catalog.Collection, error)

	// Importer returns a feed importer attributing records to source.
	Importer(source string) (*csvimport.Importer, error)

	// Normalizer returns the measurement normalizer.
	Normalizer() (*measurement.Normalizer, error)

	// DataSource is the configured default data source.
	DataSource() string

	// OutputFormat is the configured output format.
	OutputFormat() string

	// Logger returns the configured logger.
	Logger() *zerolog.Logger

	// Version returns the application version string.
	Version() string
}
