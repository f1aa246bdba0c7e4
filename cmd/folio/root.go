package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/output"
	"github.com/jackzampolin/folio/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string

	format = output.DefaultFormat
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Concurrent document translation with local or hosted LLMs",
	Long: `Folio translates documents chunk by chunk through a language model.

Input documents (.txt, .md, .epub, .pdf) are split into sections and
chunks, translated concurrently with bounded parallelism, retries and
per-request timeouts, then reassembled in document order as text or EPUB.

Backends:
  - Ollama (/api/generate)
  - Any OpenAI-compatible chat completions endpoint`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		f, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		format = f
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.folio/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "folio home directory (default: ~/.folio)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", string(output.DefaultFormat), "output format: text, yaml or json",
	)

	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(versionCmd)
}
