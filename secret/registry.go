package secret

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a factory. Names are unique.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("secret: invalid provider registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates the provider registered as name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

// List returns registered provider names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewResolver builds a Resolver holding one provider per registered name.
// cfgs supplies optional per-provider configuration.
func (r *Registry) NewResolver(strict bool, cfgs map[string]map[string]any) (*Resolver, error) {
	res := NewResolver(strict)
	for _, name := range r.List() {
		p, err := r.Create(name, cfgs[name])
		if err != nil {
			return nil, fmt.Errorf("secret: create %s provider: %w", name, err)
		}
		res.Register(p)
	}
	return res, nil
}

// DefaultRegistry holds the env and file providers.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	_ = r.Register("env", func(map[string]any) (Provider, error) {
		return EnvProvider{}, nil
	})
	_ = r.Register("file", func(cfg map[string]any) (Provider, error) {
		root, _ := cfg["root"].(string)
		return FileProvider{Root: root}, nil
	})
	return r
}()
