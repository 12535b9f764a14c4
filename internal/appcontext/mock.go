package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/catalog/memory"
	"github.com/agentstation/metalayer/pkg/csvimport"
	"github.com/agentstation/metalayer/pkg/measurement"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/reconcile"
)

// Mock is an Interface for tests. It serves a single in-memory store;
// each method can be overridden by setting the matching function field.
type Mock struct {
	MemoryStore *memory.Store
	Source      string
	Format      string
	Saves       int

	CollectionFunc func(ctx context.Context) (*catalog.Collection, error)
	PolicyFunc     func(ctx context.Context, opts ...metadata.PolicyOption) (*metadata.ReplacementPolicy, error)
	LoggerFunc     func() *zerolog.Logger
}

var _ Interface = (*Mock)(nil)

// NewMock returns a Mock over an empty store.
func NewMock() *Mock {
	return &Mock{MemoryStore: memory.New(), Source: "Library staff", Format: "yaml"}
}

// Store returns the mock's memory store.
func (m *Mock) Store(context.Context) (catalog.Store, error) {
	return m.MemoryStore, nil
}

// SaveStore counts saves.
func (m *Mock) SaveStore(context.Context) error {
	m.Saves++
	return nil
}

// Reconciler returns a reconciler over the memory store.
func (m *Mock) Reconciler(context.Context) (*reconcile.Reconciler, error) {
	return reconcile.New(m.MemoryStore)
}

// Policy uses PolicyFunc or an append-only policy.
func (m *Mock) Policy(ctx context.Context, opts ...metadata.PolicyOption) (*metadata.ReplacementPolicy, error) {
	if m.PolicyFunc != nil {
		return m.PolicyFunc(ctx, opts...)
	}
	return metadata.AppendOnly(opts...), nil
}

// Collection uses CollectionFunc or returns nil.
func (m *Mock) Collection(ctx context.Context) (*catalog.Collection, error) {
	if m.CollectionFunc != nil {
		return m.CollectionFunc(ctx)
	}
	return nil, nil
}

// Importer returns an importer with the default mapping.
func (m *Mock) Importer(source string) (*csvimport.Importer, error) {
	return csvimport.New(source)
}

// Normalizer returns a normalizer with the default tables.
func (m *Mock) Normalizer() (*measurement.Normalizer, error) {
	return measurement.New()
}

// DataSource returns Source.
func (m *Mock) DataSource() string { return m.Source }

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string { return m.Format }

// Logger uses LoggerFunc or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }
