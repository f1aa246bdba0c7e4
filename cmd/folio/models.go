package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/output"
	"github.com/jackzampolin/folio/internal/providers"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the configured Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cfgFile, homeDir, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg := e.config()
		name := modelsProvider
		if name == "" {
			name = cfg.Provider
		}
		return runModels(cmd.Context(), &cfg, name, cmd.OutOrStdout())
	},
}

func init() {
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "provider name from config (default: the active provider)")
}

func runModels(ctx context.Context, cfg *config.Config, name string, w io.Writer) error {
	p, ok := cfg.GetProvider(name)
	if !ok {
		return fmt.Errorf("provider not found: %s", name)
	}
	if p.Type != providers.TypeOllama {
		return fmt.Errorf("provider %s is of type %s; listing models is only supported for ollama", name, p.Type)
	}

	reg := cfg.ToProviderRegistryConfig()
	client, err := providers.NewOllamaClient(providers.OllamaConfig{
		BaseURL:      p.BaseURL,
		DefaultModel: p.Model,
		Connection:   reg.Connection,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if output.IsStructured(format) {
		return output.Write(w, format, models)
	}
	return output.Write(w, format, modelTable{models: models, active: p.Model})
}

type modelTable struct {
	models []providers.OllamaModel
	active string
}

func (t modelTable) Headers() []string { return []string{"Model", "Size", "Modified", "Active"} }

func (t modelTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.models))
	for _, m := range t.models {
		active := ""
		if m.Name == t.active {
			active = "*"
		}
		modified := ""
		if !m.ModifiedAt.IsZero() {
			modified = m.ModifiedAt.Format("2006-01-02")
		}
		rows = append(rows, []string{m.Name, formatBytes(m.Size), modified, active})
	}
	return rows
}

func formatBytes(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTPE"[exp])
}
