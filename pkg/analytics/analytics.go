// Package analytics collects circulation events and fans them out to
// the configured providers.
package analytics

import (
	"context"
	"errors"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/pkg/catalog"
)

// Event is one circulation event for a license pool.
type Event struct {
	Type         string   `json:"type" yaml:"type"`
	LibraryID    string   `json:"library_id,omitempty" yaml:"library_id,omitempty"`
	PoolID       string   `json:"license_pool_id" yaml:"license_pool_id"`
	DataSource   string   `json:"data_source" yaml:"data_source"`
	IdentifierID string   `json:"identifier_id" yaml:"identifier_id"`
	Time         utc.Time `json:"time" yaml:"time"`
	OldValue     int      `json:"old_value" yaml:"old_value"`
	NewValue     int      `json:"new_value" yaml:"new_value"`
}

// Delta is NewValue - OldValue.
func (e Event) Delta() int { return e.NewValue - e.OldValue }

// NewEvent builds an event for pool. A nil time means now.
func NewEvent(libraryID string, pool *catalog.LicensePool, eventType string, at *utc.Time, oldValue, newValue int) Event {
	e := Event{
		Type:      eventType,
		LibraryID: libraryID,
		OldValue:  oldValue,
		NewValue:  newValue,
	}
	if pool != nil {
		e.PoolID = pool.ID
		e.DataSource = pool.DataSource
		e.IdentifierID = pool.IdentifierID
	}
	if at != nil {
		e.Time = *at
	}
	return e
}

// Provider receives events.
type Provider interface {
	CollectEvent(ctx context.Context, event Event) error
}

// Analytics sends every event to each of its providers.
type Analytics struct {
	providers []Provider
}

var _ Provider = (*Analytics)(nil)

// New creates an Analytics over providers.
func New(providers ...Provider) *Analytics {
	return &Analytics{providers: providers}
}

// Providers returns the configured providers.
func (a *Analytics) Providers() []Provider {
	return a.providers
}

// CollectEvent stamps events without a time with now and hands them to
// every provider. One provider failing does not stop the others.
func (a *Analytics) CollectEvent(ctx context.Context, event Event) error {
	if event.Time.IsZero() {
		event.Time = utc.Now()
	}
	var errs []error
	for _, p := range a.providers {
		if err := p.CollectEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
