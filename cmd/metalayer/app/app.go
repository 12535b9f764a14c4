// Package app wires configuration, logging and the catalog engines
// together for the metalayer CLI.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/metalayer/internal/appcontext"
	"github.com/agentstation/metalayer/internal/fetch"
	"github.com/agentstation/metalayer/pkg/analytics"
	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/catalog/memory"
	"github.com/agentstation/metalayer/pkg/csvimport"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/measurement"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/mirror"
	"github.com/agentstation/metalayer/pkg/provenance"
	"github.com/agentstation/metalayer/pkg/reconcile"
)

// App holds the configuration and the lazily built collaborators of
// one CLI invocation.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu         sync.Mutex
	store      *memory.Store
	reconciler *reconcile.Reconciler
	analytics  *analytics.Analytics
	uploader   mirror.Uploader
}

var _ appcontext.Interface = (*App)(nil)

// New creates an App with configuration loaded from the environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// DataSource returns the configured default data source.
func (a *App) DataSource() string {
	return a.config.DataSource
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Store returns the catalog, loading the snapshot file on first use.
func (a *App) Store(ctx context.Context) (catalog.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadStore(ctx)
}

func (a *App) loadStore(ctx context.Context) (*memory.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store := memory.New()
	if err := store.Load(a.config.StorePath); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().Str("path", a.config.StorePath).Msg("loaded catalog snapshot")
	a.store = store
	return store, nil
}

// SaveStore writes the catalog snapshot if it has been loaded.
func (a *App) SaveStore(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil
	}
	if err := a.store.Save(a.config.StorePath); err != nil {
		return err
	}
	logging.FromContext(ctx).Debug().Str("path", a.config.StorePath).Msg("saved catalog snapshot")
	return nil
}

// Reconciler returns the merge engine over Store, with the configured
// canonicalizer. Field provenance is kept in verbose mode.
func (a *App) Reconciler(ctx context.Context) (*reconcile.Reconciler, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reconciler != nil {
		return a.reconciler, nil
	}

	store, err := a.loadStore(ctx)
	if err != nil {
		return nil, err
	}
	opts := []reconcile.Option{reconcile.WithProvenance(provenance.NewTracker(a.config.Verbose))}
	canon, err := canonicalize.New(ctx, a.config.Canonicalizer)
	if err != nil {
		return nil, err
	}
	if canon != nil {
		opts = append(opts, reconcile.WithCanonicalizer(canon))
	}
	r, err := reconcile.New(store, opts...)
	if err != nil {
		return nil, err
	}
	a.reconciler = r
	return r, nil
}

// Policy builds the configured replacement policy with the configured
// analytics sinks and, when a bucket is configured, the mirror.
func (a *App) Policy(ctx context.Context, opts ...metadata.PolicyOption) (*metadata.ReplacementPolicy, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var base []metadata.PolicyOption
	if len(a.config.Analytics) > 0 {
		if a.analytics == nil {
			sinks, err := analytics.FromConfig(a.config.Analytics)
			if err != nil {
				return nil, err
			}
			a.analytics = sinks
		}
		base = append(base, metadata.WithAnalytics(a.analytics))
	}
	if a.config.MirrorEnabled() {
		if a.uploader == nil {
			uploader, err := mirror.NewMinIOUploader(ctx, a.config.MinIO)
			if err != nil {
				return nil, err
			}
			a.uploader = uploader
		}
		fetchOpts := []fetch.Option{fetch.WithTimeout(a.config.FetchTimeout)}
		if a.config.UserAgent != "" {
			fetchOpts = append(fetchOpts, fetch.WithUserAgent(a.config.UserAgent))
		}
		base = append(base, metadata.WithMirror(a.uploader, fetch.New(fetchOpts...), mirror.ImageScaler{}))
	}
	return metadata.PolicyByName(a.config.Policy, append(base, opts...)...)
}

// Collection returns the configured collection, creating it and its
// libraries on first use.
func (a *App) Collection(ctx context.Context) (*catalog.Collection, error) {
	if a.config.Collection == "" {
		return nil, nil
	}
	store, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	collection, err := store.CollectionByName(ctx, a.config.Collection)
	if err == nil || !errors.IsNotFound(err) {
		return collection, err
	}

	var libraries []string
	for _, name := range a.config.Libraries {
		lib, err := store.CreateLibrary(ctx, name)
		if err != nil {
			return nil, errors.WrapResource("create", "library", name, err)
		}
		libraries = append(libraries, lib.ID)
	}
	collection, err = store.CreateCollection(ctx, a.config.Collection, a.config.DataSource, libraries...)
	if err != nil {
		return nil, errors.WrapResource("create", "collection", a.config.Collection, err)
	}
	logging.FromContext(ctx).Info().
		Str("collection", collection.Name).
		Int("libraries", len(libraries)).
		Msg("created collection")
	return collection, nil
}

// Importer returns a feed importer for source.
func (a *App) Importer(source string) (*csvimport.Importer, error) {
	return csvimport.New(source)
}

// Normalizer returns a measurement normalizer using the configured
// percentile tables.
func (a *App) Normalizer() (*measurement.Normalizer, error) {
	return measurement.New(measurement.WithTablesFile(a.config.TablesFile))
}

// Shutdown closes analytics sinks that hold connections.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.analytics == nil {
		return nil
	}
	for _, p := range a.analytics.Providers() {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Error().Err(err).Msg("Failed to close analytics provider")
			}
		}
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets the catalog store instead of loading the snapshot.
func WithStore(store *memory.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}
