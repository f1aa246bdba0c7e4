package main

import (
	"io"
	"log/slog"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
)

// env is the state shared by commands that need configuration.
type env struct {
	home   *home.Dir
	mgr    *config.Manager
	logger *slog.Logger
	level  *slog.LevelVar
}

// loadEnv resolves the home directory, loads and validates configuration
// and builds the root logger writing to logOut.
func loadEnv(cfgPath, homePath string, logOut io.Writer) (*env, error) {
	h, err := home.New(homePath)
	if err != nil {
		return nil, err
	}

	mgr, err := config.NewManager(cfgPath, h.Path())
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	logger := newLogger(logOut, cfg.Log, level)
	mgr.SetLogger(logger)

	return &env{home: h, mgr: mgr, logger: logger, level: level}, nil
}

// config returns a copy of the current configuration so commands can apply
// flag overrides without touching the shared instance.
func (e *env) config() config.Config {
	cfg := *e.mgr.Get()
	providers := make(map[string]config.ProviderCfg, len(cfg.Providers))
	for k, v := range cfg.Providers {
		providers[k] = v
	}
	cfg.Providers = providers
	return cfg
}

// watchLogLevel keeps the logger level in sync with the config file.
func (e *env) watchLogLevel() {
	if e.mgr.ConfigFile() == "" {
		return
	}
	e.mgr.OnChange(func(cfg *config.Config) {
		level := cfg.Log.SlogLevel()
		if level != e.level.Level() {
			e.level.Set(level)
			e.logger.Info("log level changed", "level", level.String())
		}
	})
	e.mgr.WatchConfig()
}

func newLogger(w io.Writer, cfg config.LogCfg, level *slog.LevelVar) *slog.Logger {
	level.Set(cfg.SlogLevel())
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
