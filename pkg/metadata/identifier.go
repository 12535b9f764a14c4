package metadata

import (
	"context"

	"github.com/agentstation/metalayer/pkg/catalog"
)

// IdentifierData names a title in some identifier scheme.
type IdentifierData struct {
	Type       string  `yaml:"type"`
	Identifier string  `yaml:"identifier"`
	Weight     float64 `yaml:"weight,omitempty"`
}

// NewIdentifierData creates an identifier with weight 1.
func NewIdentifierData(typ, identifier string) IdentifierData {
	return IdentifierData{Type: typ, Identifier: identifier, Weight: 1}
}

// Key is the natural key (type, identifier).
func (d IdentifierData) Key() [2]string {
	return [2]string{d.Type, d.Identifier}
}

// Same reports whether d and other name the same thing.
func (d IdentifierData) Same(other IdentifierData) bool {
	return d.Key() == other.Key()
}

// Matches reports whether d names the persistent identifier.
func (d IdentifierData) Matches(id *catalog.Identifier) bool {
	return id != nil && id.Same(d.Type, d.Identifier)
}

func (d IdentifierData) String() string {
	return d.Type + "/" + d.Identifier
}

// Load finds or creates the persistent identifier.
func (d IdentifierData) Load(ctx context.Context, store catalog.IdentifierStore) (*catalog.Identifier, bool, error) {
	return store.FindOrCreateIdentifier(ctx, d.Type, d.Identifier)
}
