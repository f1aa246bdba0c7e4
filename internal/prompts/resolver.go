package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
)

type override struct {
	text   string
	source string
}

// Resolver resolves prompts by key.
// Resolution order: override > embedded default.
type Resolver struct {
	embedded  map[string]EmbeddedPrompt
	overrides map[string]override
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewResolver creates a new prompt resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded:  make(map[string]EmbeddedPrompt),
		overrides: make(map[string]override),
		logger:    logger,
	}
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// SetOverride replaces the prompt text for key.
func (r *Resolver) SetOverride(key, text string) {
	r.setOverride(key, override{text: text})
}

// LoadOverrideFile reads an override for key from path.
func (r *Resolver) LoadOverrideFile(key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt override: %w", err)
	}
	r.setOverride(key, override{text: string(data), source: path})
	return nil
}

func (r *Resolver) setOverride(key string, o override) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = o
	r.logger.Debug("registered prompt override", "key", key, "source", o.source)
}

// ClearOverride removes any override for key.
func (r *Resolver) ClearOverride(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, key)
}

// Resolve returns the override for key if one exists, otherwise the
// embedded default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if o, ok := r.overrides[key]; ok {
		return &ResolvedPrompt{
			Key:        key,
			Text:       o.text,
			Variables:  ExtractVariables(o.text),
			IsOverride: true,
			Hash:       HashText(o.text),
			Source:     o.source,
		}, nil
	}

	embedded, ok := r.embedded[key]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}
	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// GetEmbedded returns the embedded default for a key.
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// AllEmbedded returns all registered embedded prompts sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
