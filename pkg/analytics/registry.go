package analytics

import (
	"sort"
	"sync"

	"github.com/spf13/cast"

	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
)

// ProviderConfig names a provider kind and its settings.
type ProviderConfig struct {
	Kind    string         `mapstructure:"kind" yaml:"kind"`
	Options map[string]any `mapstructure:"options" yaml:"options,omitempty"`
}

// Factory builds a provider from its configuration.
type Factory func(cfg ProviderConfig) (Provider, error)

// Registry maps provider kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in kinds: log, memory and asynq.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("log", func(ProviderConfig) (Provider, error) {
		return NewLogProvider(logging.Default()), nil
	})
	r.Register("memory", func(ProviderConfig) (Provider, error) {
		return NewMemoryProvider(), nil
	})
	r.Register("asynq", func(cfg ProviderConfig) (Provider, error) {
		addr := cast.ToString(cfg.Options["redis_addr"])
		if addr == "" {
			return nil, errors.NewConfigError("analytics", "asynq provider requires redis_addr", nil)
		}
		return NewAsynqProvider(addr, cast.ToString(cfg.Options["queue"])), nil
	})
	return r
}

// Register adds or replaces a provider kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Kinds lists the registered provider kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs an Analytics from provider configurations. An unknown
// kind is a configuration error.
func (r *Registry) Build(cfgs []ProviderConfig) (*Analytics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := r.factories[cfg.Kind]
		if !ok {
			return nil, errors.NewConfigError("analytics", "unknown provider kind "+cfg.Kind, nil)
		}
		p, err := f(cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return New(providers...), nil
}

// FromConfig builds an Analytics using the built-in registry.
func FromConfig(cfgs []ProviderConfig) (*Analytics, error) {
	return NewRegistry().Build(cfgs)
}
