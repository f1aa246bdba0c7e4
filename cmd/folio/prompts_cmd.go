package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/output"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/prompts/translation"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List prompt templates and their overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := promptResolver()
		if err != nil {
			return err
		}
		var list promptList
		for _, p := range r.AllEmbedded() {
			resolved, err := r.Resolve(p.Key)
			if err != nil {
				return err
			}
			list = append(list, promptInfo{
				Key:         p.Key,
				Description: p.Description,
				Variables:   resolved.Variables,
				Hash:        resolved.Hash[:12],
				Override:    resolved.Source,
			})
		}
		return output.Write(cmd.OutOrStdout(), format, list)
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the effective text of a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := promptResolver()
		if err != nil {
			return err
		}
		resolved, err := r.Resolve(args[0])
		if err != nil {
			return err
		}
		if output.IsStructured(format) {
			return output.Write(cmd.OutOrStdout(), format, resolved)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), resolved.Text)
		return err
	},
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd)
}

// promptResolver returns a resolver with every built-in prompt registered
// and overrides from configuration applied.
func promptResolver() (*prompts.Resolver, error) {
	e, err := loadEnv(cfgFile, homeDir, rootCmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	cfg := e.config()
	r := prompts.NewResolver(e.logger)
	translation.RegisterPrompts(r)
	if err := loadPromptOverride(r, e.home, &cfg); err != nil {
		return nil, err
	}
	return r, nil
}

type promptInfo struct {
	Key         string   `json:"key" yaml:"key"`
	Description string   `json:"description" yaml:"description"`
	Variables   []string `json:"variables" yaml:"variables"`
	Hash        string   `json:"hash" yaml:"hash"`
	Override    string   `json:"override,omitempty" yaml:"override,omitempty"`
}

type promptList []promptInfo

func (l promptList) Headers() []string { return []string{"Key", "Variables", "Hash", "Override"} }

func (l promptList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{p.Key, fmt.Sprint(p.Variables), p.Hash, p.Override})
	}
	return rows
}
