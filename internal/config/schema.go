package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds folio configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Provider    string                 `mapstructure:"provider" yaml:"provider"` // Name of the entry in Providers to use
	Providers   map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Translation TranslationCfg         `mapstructure:"translation" yaml:"translation"`
	Connection  ConnectionCfg          `mapstructure:"connection" yaml:"connection"`
	Log         LogCfg                 `mapstructure:"log" yaml:"log"`
}

// ProviderCfg configures a generation backend.
type ProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"` // "ollama", "openai", "openrouter"
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"` // supports ${ENV_VAR} syntax
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
}

// TranslationCfg controls the translation run.
type TranslationCfg struct {
	TargetLanguage string `mapstructure:"target_language" yaml:"target_language"`
	SourceLanguage string `mapstructure:"source_language" yaml:"source_language"`
	DetectSource   bool   `mapstructure:"detect_source" yaml:"detect_source"`
	// PromptFile replaces the built-in translation prompt template.
	PromptFile string `mapstructure:"prompt_file" yaml:"prompt_file"`

	MaxConcurrent     int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"` // total attempts per unit
	RetryDelay        time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	MaxRetryDelay     time.Duration `mapstructure:"max_retry_delay" yaml:"max_retry_delay"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"` // 0 disables rate limiting
	PreviewLength     int           `mapstructure:"preview_length" yaml:"preview_length"`
	ChunkSize         int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	KeepSource        bool          `mapstructure:"keep_source" yaml:"keep_source"` // emit source text for failed units
}

// ConnectionCfg sizes the HTTP connection pool shared by one run.
type ConnectionCfg struct {
	PoolSize       int           `mapstructure:"pool_size" yaml:"pool_size"`
	MaxIdlePerHost int           `mapstructure:"max_idle_per_host" yaml:"max_idle_per_host"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	KeepAlive      time.Duration `mapstructure:"keepalive" yaml:"keepalive"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// LogCfg configures the root logger.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: "ollama",
		Providers: map[string]ProviderCfg{
			"ollama": {
				Type:    "ollama",
				BaseURL: "http://localhost:11434",
				Model:   "gemma3:4b-it-qat",
			},
			"openai": {
				Type:    "openai",
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
			},
			"openrouter": {
				Type:   "openrouter",
				Model:  "anthropic/claude-sonnet-4",
				APIKey: "${OPENROUTER_API_KEY}",
			},
		},
		Translation: TranslationCfg{
			TargetLanguage:    "Korean",
			DetectSource:      true,
			MaxConcurrent:     5,
			MaxRetries:        3,
			RetryDelay:        500 * time.Millisecond,
			MaxRetryDelay:     10 * time.Second,
			Timeout:           120 * time.Second,
			MaxTokens:         2048,
			RequestsPerMinute: 0,
			PreviewLength:     100,
			ChunkSize:         1000,
		},
		Connection: ConnectionCfg{
			PoolSize:       10,
			MaxIdlePerHost: 10,
			ConnectTimeout: 10 * time.Second,
			KeepAlive:      30 * time.Second,
			IdleTimeout:    90 * time.Second,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// ActiveProvider returns the provider selected by Provider.
func (c *Config) ActiveProvider() (ProviderCfg, error) {
	cfg, ok := c.GetProvider(c.Provider)
	if !ok {
		return ProviderCfg{}, fmt.Errorf("%w: provider %q is not configured", ErrInvalidConfig, c.Provider)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot produce a working run.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if _, err := c.ActiveProvider(); err != nil {
		return err
	}
	for name, p := range c.Providers {
		switch p.Type {
		case "ollama", "openai", "openrouter":
		default:
			return fmt.Errorf("%w: provider %s has unknown type %q", ErrInvalidConfig, name, p.Type)
		}
	}

	t := c.Translation
	if t.TargetLanguage == "" {
		return fmt.Errorf("%w: translation.target_language is required", ErrInvalidConfig)
	}
	if t.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: translation.max_concurrent must be positive, got %d", ErrInvalidConfig, t.MaxConcurrent)
	}
	if t.MaxRetries <= 0 {
		return fmt.Errorf("%w: translation.max_retries must be positive, got %d", ErrInvalidConfig, t.MaxRetries)
	}
	if t.RetryDelay < 0 || t.MaxRetryDelay < 0 || t.Timeout < 0 {
		return fmt.Errorf("%w: translation delays and timeout cannot be negative", ErrInvalidConfig)
	}
	if t.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: translation.requests_per_minute cannot be negative", ErrInvalidConfig)
	}
	if t.ChunkSize < 0 || t.PreviewLength < 0 {
		return fmt.Errorf("%w: translation.chunk_size and preview_length cannot be negative", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
