package adapters

import (
	"fmt"
	"net/http"
	"sort"
)

// ProviderConfig is the construction-time configuration for one adapter.
type ProviderConfig struct {
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Extra      map[string]string
}

// Constructor builds an adapter from its configuration.
type Constructor func(cfg ProviderConfig) (Provider, error)

// Registry maps provider names to constructors. It is immutable once
// built, so it can be shared without locking.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry copies entries into a new registry.
func NewRegistry(entries map[string]Constructor) (*Registry, error) {
	constructors := make(map[string]Constructor, len(entries))
	for name, ctor := range entries {
		if name == "" {
			return nil, ErrEmptyProviderName
		}
		if ctor == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilConstructor, name)
		}
		constructors[name] = ctor
	}
	return &Registry{constructors: constructors}, nil
}

// MustRegistry is NewRegistry for static tables; it panics on bad input.
func MustRegistry(entries map[string]Constructor) *Registry {
	r, err := NewRegistry(entries)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(name string) (Constructor, bool) {
	if r == nil {
		return nil, false
	}
	ctor, ok := r.constructors[name]
	return ctor, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named provider.
func (r *Registry) Build(name string, cfg ProviderConfig) (Provider, error) {
	ctor, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	p, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("construct provider %q: %w", name, err)
	}
	return p, nil
}
