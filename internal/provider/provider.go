// Package provider builds augmentation capabilities from configuration.
// Concrete providers register a factory under one or more names.
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/apalint/internal/augment"
)

// Config captures what a provider needs to construct a capability.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	// HTTPTimeout bounds a single HTTP exchange. The augmentation runner
	// applies its own per-attempt timeout on top.
	HTTPTimeout time.Duration
}

// Factory creates a capability.
type Factory func(Config) (augment.Capability, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a factory under a name and optional aliases.
func Register(name string, f Factory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		factories[strings.ToLower(n)] = f
	}
}

// Names returns the registered provider names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New returns the capability for cfg.Provider. An empty name, "none" or
// "noop" yields augment.Noop.
func New(cfg Config) (augment.Capability, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case "", "none", "noop":
		return augment.Noop{}, nil
	}
	mu.RLock()
	f := factories[name]
	mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("augmentation provider %q not registered", cfg.Provider)
	}
	return f(cfg)
}

var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
}

// ResolveModel returns model, or the provider's default when empty.
func ResolveModel(provider, model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return defaultModels[strings.ToLower(strings.TrimSpace(provider))]
}
