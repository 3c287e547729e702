package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

// ErrEngineNotRegistered is returned by [Registry.Create] when no factory has
// been registered under the requested engine name.
var ErrEngineNotRegistered = errors.New("config: engine not registered")

// EngineFactory builds a VAD engine for the given detector configuration.
type EngineFactory func(vad.Config) (vad.Engine, error)

// Registry maps engine names to their constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]EngineFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]EngineFactory)}
}

// DefaultRegistry returns a registry with the built-in engines registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(EngineRMS, func(cfg vad.Config) (vad.Engine, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return vad.NewEngine(), nil
	})
	return r
}

// Register registers a factory under name. Subsequent calls with the same
// name overwrite the previous registration.
func (r *Registry) Register(name string, factory EngineFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = factory
}

// Create instantiates the engine registered under name.
// Returns [ErrEngineNotRegistered] if no factory has been registered for it.
func (r *Registry) Create(name string, cfg vad.Config) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.engines[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotRegistered, name)
	}
	return factory(cfg)
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
