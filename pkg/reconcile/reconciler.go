// Package reconcile merges normalized circulation and bibliographic
// records into the catalog. Each operation decides, field by field and
// relation by relation, whether incoming data overwrites, appends to or
// is ignored relative to what is already stored.
package reconcile

import (
	"context"

	"github.com/agentstation/metalayer/pkg/analytics"
	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/provenance"
)

// Reconciler applies records to a catalog store. It holds no state of
// its own between calls; the store is the only shared resource.
type Reconciler struct {
	store         catalog.Store
	canonicalizer canonicalize.Canonicalizer
	tracker       provenance.Tracker
}

type options struct {
	canonicalizer canonicalize.Canonicalizer
	tracker       provenance.Tracker
}

func defaultOptions() *options {
	return &options{tracker: provenance.NewTracker(false)}
}

// Option configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithCanonicalizer sets the collaborator used to turn display names
// into sort names.
func WithCanonicalizer(c canonicalize.Canonicalizer) Option {
	return func(o *options) error {
		o.canonicalizer = c
		return nil
	}
}

// WithProvenance records every field write to tracker.
func WithProvenance(tracker provenance.Tracker) Option {
	return func(o *options) error {
		if tracker == nil {
			return &errors.ValidationError{Field: "tracker", Message: "cannot be nil"}
		}
		o.tracker = tracker
		return nil
	}
}

// New creates a Reconciler over store.
func New(store catalog.Store, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Reconciler{store: store, canonicalizer: o.canonicalizer, tracker: o.tracker}, nil
}

// Store returns the underlying record store.
func (r *Reconciler) Store() catalog.Store {
	return r.store
}

// Provenance returns the tracker field writes are recorded to.
func (r *Reconciler) Provenance() provenance.Tracker {
	return r.tracker
}

func policyOrDefault(p *metadata.ReplacementPolicy) *metadata.ReplacementPolicy {
	if p == nil {
		return metadata.AppendOnly()
	}
	return p
}

func (r *Reconciler) collect(ctx context.Context, sink analytics.Provider, event analytics.Event) {
	if sink == nil {
		return
	}
	if err := sink.CollectEvent(ctx, event); err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Str("event", event.Type).
			Str("license_pool", event.PoolID).
			Msg("analytics event not collected")
	}
}

func (r *Reconciler) track(resourceType provenance.ResourceType, id, source, field string, previous, value any) {
	r.tracker.Track(resourceType, id, field, provenance.Provenance{
		Source:        source,
		Value:         value,
		PreviousValue: previous,
	})
}
