package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Provider type identifiers accepted in configuration.
const (
	TypeOllama     = "ollama"
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
)

// ProviderConfig describes one configured generation backend.
type ProviderConfig struct {
	Type      string // "ollama", "openai" or "openrouter"
	BaseURL   string
	Model     string
	APIKey    string // already resolved (no ${ENV} references)
	MaxTokens int
}

// RegistryConfig holds all provider configurations plus the shared pool sizing.
type RegistryConfig struct {
	Providers  map[string]ProviderConfig
	Connection ConnectionConfig
}

// Registry maps provider names to Factories.
// Factories are cheap; each call opens a fresh Generator with its own pool.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with a factory per configured provider.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	for name, pc := range cfg.Providers {
		factory, err := NewFactory(pc, cfg.Connection)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		r.Register(name, factory)
	}
	return r, nil
}

// NewFactory returns a Factory for the given provider configuration.
func NewFactory(pc ProviderConfig, conn ConnectionConfig) (Factory, error) {
	switch pc.Type {
	case TypeOllama:
		return func(ctx context.Context) (Generator, error) {
			return NewOllamaClient(OllamaConfig{
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.Model,
				MaxTokens:    pc.MaxTokens,
				Connection:   conn,
			})
		}, nil
	case TypeOpenAI:
		return func(ctx context.Context) (Generator, error) {
			if pc.APIKey == "" && pc.BaseURL == "" {
				return nil, fmt.Errorf("openai provider requires an api_key or a base_url")
			}
			return NewOpenAIClient(OpenAIConfig{
				APIKey:       pc.APIKey,
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.Model,
				MaxTokens:    pc.MaxTokens,
				Connection:   conn,
			}), nil
		}, nil
	case TypeOpenRouter:
		return func(ctx context.Context) (Generator, error) {
			if pc.APIKey == "" {
				return nil, fmt.Errorf("openrouter provider requires an api_key")
			}
			return NewOpenRouterClient(OpenAIConfig{
				APIKey:       pc.APIKey,
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.Model,
				MaxTokens:    pc.MaxTokens,
				Connection:   conn,
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q", pc.Type)
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a factory by name, replacing any existing one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	if r.logger != nil {
		r.logger.Debug("registered provider", "name", name)
	}
}

// Unregister removes a factory by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return factory, nil
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
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
