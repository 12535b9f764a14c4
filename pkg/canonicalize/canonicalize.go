// Package canonicalize turns an author's display name into a catalog
// sort name ("Family, Given").
package canonicalize

import (
	"context"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
)

// Canonicalizer finds the sort name for an author. The identifier, when
// given, is a book by that author and may help disambiguate. An empty
// result with a nil error means no sort name could be found.
type Canonicalizer interface {
	CanonicalizeAuthorName(ctx context.Context, identifier *catalog.Identifier, displayName string) (string, error)
}

// Chain tries each canonicalizer in turn and returns the first answer.
// Errors are logged and the next canonicalizer is tried.
type Chain []Canonicalizer

func (c Chain) CanonicalizeAuthorName(ctx context.Context, identifier *catalog.Identifier, displayName string) (string, error) {
	for _, canon := range c {
		name, err := canon.CanonicalizeAuthorName(ctx, identifier, displayName)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("display_name", displayName).Msg("canonicalizer failed")
			continue
		}
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}

// Kinds accepted by New.
const (
	KindNone      = "none"
	KindHeuristic = "heuristic"
	KindGemini    = "gemini"
)

// Config selects and configures a canonicalizer.
type Config struct {
	Kind   string `mapstructure:"kind" yaml:"kind"`
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model,omitempty"`
}

// New builds the configured canonicalizer. "none" yields nil. Gemini
// falls back to the heuristic when the model has no answer.
func New(ctx context.Context, cfg Config) (Canonicalizer, error) {
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindHeuristic:
		return Heuristic{}, nil
	case KindGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return Chain{g, Heuristic{}}, nil
	default:
		return nil, errors.NewConfigError("canonicalize", "unknown canonicalizer kind "+cfg.Kind, nil)
	}
}
