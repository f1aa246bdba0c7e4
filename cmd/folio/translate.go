package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/langdetect"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/output"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/prompts/translation"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/sink"
	"github.com/jackzampolin/folio/internal/source"
	"github.com/jackzampolin/folio/internal/translate"
)

// translateOptions are the translate command's flags. Zero values defer to
// configuration.
type translateOptions struct {
	Input       string
	Output      string
	Text        string
	Target      string
	Source      string
	Provider    string
	Model       string
	Concurrency int
	ChunkSize   int
	KeepSource  bool
	NoProgress  bool
}

var translateOpts translateOptions

var translateCmd = &cobra.Command{
	Use:   "translate [input]",
	Short: "Translate a document or a snippet of text",
	Long: `Translate a document chunk by chunk and write the result next to it.

The first interrupt (Ctrl+C) stops admitting new chunks and lets the ones
already in flight finish; the partial translation is still written. A
second interrupt aborts in-flight requests.

Examples:
  folio translate book.epub                     # -> book.ko.epub
  folio translate notes.md --target ja          # -> notes.ja.md
  folio translate paper.pdf --out paper.ko.txt
  folio translate --text "Good morning" --target French`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := translateOpts
		if len(args) == 1 {
			opts.Input = args[0]
		}
		if opts.Input == "" && opts.Text == "" {
			return errors.New("an input file or --text is required")
		}

		e, err := loadEnv(cfgFile, homeDir, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		e.watchLogLevel()

		if opts.Text != "" {
			return runTranslateText(cmd.Context(), e, opts, cmd.OutOrStdout())
		}
		return runTranslate(cmd.Context(), e, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := translateCmd.Flags()
	f.StringVar(&translateOpts.Output, "out", "", "output file; .epub writes an EPUB, anything else plain text (default: <input>.<lang><ext>)")
	f.StringVar(&translateOpts.Text, "text", "", "translate this text instead of a file")
	f.StringVarP(&translateOpts.Target, "target", "t", "", "target language name or code (default: translation.target_language)")
	f.StringVarP(&translateOpts.Source, "source", "s", "", "source language (default: configured or detected)")
	f.StringVar(&translateOpts.Provider, "provider", "", "provider name from config")
	f.StringVar(&translateOpts.Model, "model", "", "model override for the provider")
	f.IntVarP(&translateOpts.Concurrency, "concurrency", "c", 0, "maximum concurrent requests")
	f.IntVar(&translateOpts.ChunkSize, "chunk-size", 0, "maximum characters per chunk")
	f.BoolVar(&translateOpts.KeepSource, "keep-source", false, "keep source text for chunks that failed to translate")
	f.BoolVar(&translateOpts.NoProgress, "no-progress", false, "log progress lines instead of drawing a progress bar")
}

// applyOverrides folds flag values into cfg and validates the result.
func applyOverrides(cfg *config.Config, opts translateOptions) error {
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.Model != "" {
		if p, ok := cfg.Providers[cfg.Provider]; ok {
			p.Model = opts.Model
			cfg.Providers[cfg.Provider] = p
		}
	}
	if opts.Target != "" {
		cfg.Translation.TargetLanguage = opts.Target
	}
	if opts.Source != "" {
		cfg.Translation.SourceLanguage = opts.Source
	}
	if opts.Concurrency != 0 {
		cfg.Translation.MaxConcurrent = opts.Concurrency
	}
	if opts.ChunkSize != 0 {
		cfg.Translation.ChunkSize = opts.ChunkSize
	}
	if opts.KeepSource {
		cfg.Translation.KeepSource = true
	}
	return cfg.Validate()
}

// newOrchestrator wires configuration into a translation orchestrator.
func newOrchestrator(cfg *config.Config, builder *translation.Builder, recorder *metrics.Recorder, logger *slog.Logger) (*translate.Orchestrator[source.Key], error) {
	registry, err := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig(), logger)
	if err != nil {
		return nil, err
	}
	factory, err := registry.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := cfg.ActiveProvider()
	if err != nil {
		return nil, err
	}

	t := cfg.Translation
	return translate.NewOrchestrator[source.Key](translate.Config{
		Factory: factory,
		Client: translate.ClientConfig{
			Model:             provider.Model,
			MaxTokens:         t.MaxTokens,
			MaxRetries:        t.MaxRetries,
			RetryDelay:        t.RetryDelay,
			MaxRetryDelay:     t.MaxRetryDelay,
			Timeout:           t.Timeout,
			RequestsPerMinute: t.RequestsPerMinute,
			Prompt:            builder.Build,
		},
		MaxConcurrent: t.MaxConcurrent,
		PreviewLength: t.PreviewLength,
		Logger:        logger,
		Metrics:       recorder,
	})
}

// newPromptBuilder resolves the translation prompt. An explicit
// translation.prompt_file wins over an override in the home directory.
func newPromptBuilder(h *home.Dir, cfg *config.Config, sourceLang string, logger *slog.Logger) (*translation.Builder, error) {
	r := prompts.NewResolver(logger)
	translation.RegisterPrompts(r)
	if err := loadPromptOverride(r, h, cfg); err != nil {
		return nil, err
	}
	return translation.NewBuilder(r, cfg.Translation.TargetLanguage, sourceLang)
}

func loadPromptOverride(r *prompts.Resolver, h *home.Dir, cfg *config.Config) error {
	path := cfg.Translation.PromptFile
	if path == "" && h != nil {
		candidate := h.PromptOverridePath(translation.UserPromptKey)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		return nil
	}
	return r.LoadOverrideFile(translation.UserPromptKey, path)
}

// sourceLanguage returns the configured source language, or one detected
// from the document when detection is enabled.
func sourceLanguage(cfg *config.Config, doc *source.Document, logger *slog.Logger) string {
	if cfg.Translation.SourceLanguage != "" {
		return cfg.Translation.SourceLanguage
	}
	if !cfg.Translation.DetectSource {
		return ""
	}
	if code := langdetect.DetectSample(doc.Texts(), 0); code != "" {
		logger.Info("detected source language", "language", translation.LanguageName(code), "code", code)
		return code
	}
	if doc.Language != "" {
		return doc.Language
	}
	logger.Debug("could not detect source language")
	return ""
}

// defaultOutputPath puts the translation next to the input, tagged with the
// target language code. PDFs become plain text.
func defaultOutputPath(input, target string, format source.Format) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	code := translation.LanguageCode(target)
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(target), " ", "-"))
	}
	switch format {
	case source.FormatEPUB:
		ext = ".epub"
	case source.FormatPDF:
		ext = ".txt"
	}
	return base + "." + code + ext
}

func runTranslateText(ctx context.Context, e *env, opts translateOptions, stdout io.Writer) error {
	cfg := e.config()
	if err := applyOverrides(&cfg, opts); err != nil {
		return err
	}

	sourceLang := cfg.Translation.SourceLanguage
	if sourceLang == "" && cfg.Translation.DetectSource {
		sourceLang = langdetect.DetectISO6391(opts.Text)
	}
	builder, err := newPromptBuilder(e.home, &cfg, sourceLang, e.logger)
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(&cfg, builder, nil, e.logger)
	if err != nil {
		return err
	}
	engine := translate.NewEngine(orch)
	defer engine.Close()

	text, err := engine.TranslateText(ctx, opts.Text)
	if err != nil {
		return err
	}
	if output.IsStructured(format) {
		return output.Write(stdout, format, textResult{
			Source:     opts.Text,
			Translated: text,
			From:       translation.LanguageName(sourceLang),
			To:         builder.Target,
		})
	}
	_, err = fmt.Fprintln(stdout, text)
	return err
}

type textResult struct {
	Source     string `json:"source" yaml:"source"`
	Translated string `json:"translated" yaml:"translated"`
	From       string `json:"from,omitempty" yaml:"from,omitempty"`
	To         string `json:"to" yaml:"to"`
}

func runTranslate(ctx context.Context, e *env, opts translateOptions, stdout, stderr io.Writer) error {
	cfg := e.config()
	if err := applyOverrides(&cfg, opts); err != nil {
		return err
	}
	logger := e.logger

	doc, err := source.Open(opts.Input)
	if err != nil {
		return err
	}
	units := doc.Units(cfg.Translation.ChunkSize)
	if len(units) == 0 {
		return fmt.Errorf("no translatable text in %s", opts.Input)
	}
	logger.Info("document loaded",
		"path", doc.Path,
		"format", doc.Format,
		"sections", len(doc.Sections),
		"units", len(units))

	outPath := opts.Output
	if outPath == "" {
		outPath = defaultOutputPath(opts.Input, cfg.Translation.TargetLanguage, doc.Format)
	}
	writer, err := sink.ForDocument(doc, outPath)
	if err != nil {
		return err
	}

	sourceLang := sourceLanguage(&cfg, doc, logger)
	builder, err := newPromptBuilder(e.home, &cfg, sourceLang, logger)
	if err != nil {
		return err
	}
	// Loading and detection can be slow; honour an interrupt that arrived meanwhile.
	if err := ctx.Err(); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	orch, err := newOrchestrator(&cfg, builder, recorder, logger)
	if err != nil {
		return err
	}
	engine := translate.NewEngine(orch)
	defer engine.Close()

	progress := newProgressReporter(stderr, len(units), logger, !opts.NoProgress && isTerminal(stderr))
	if err := engine.Start(units, progress.Report); err != nil {
		return err
	}
	sigCh, unsubscribe := notifyInterrupts()
	stop := watchInterrupts(sigCh, engine.Cancel, engine.Abort, logger)
	results, runErr := engine.Wait()
	stop()
	unsubscribe()
	progress.Finish()
	if results == nil {
		return runErr
	}

	chapters := sink.Assemble(doc, units, results, sink.AssembleOptions{KeepSource: cfg.Translation.KeepSource})
	book := sink.Book{
		Title:          doc.Title,
		Author:         doc.Author,
		Language:       translation.LanguageCode(cfg.Translation.TargetLanguage),
		SourceLanguage: translation.LanguageCode(sourceLang),
		Translator:     builder.Target,
	}
	if book.Language == "" {
		book.Language = cfg.Translation.TargetLanguage
	}
	if err := sink.WriteFile(outPath, writer, book, chapters); err != nil {
		return err
	}
	logger.Info("translation written", "path", outPath, "chapters", len(chapters))

	summary := recorder.Summary()
	report := newRunReport(summary, opts.Input, outPath, recorder.Metrics())
	if err := saveRunReport(e.home, report); err != nil {
		logger.Warn("failed to save run report", "error", err)
	}
	if err := output.Write(stdout, format, report.view()); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		logger.Warn("some units failed to translate", "failed", summary.Failed)
	}
	return nil
}

// runReport is persisted under ~/.folio/runs and summarised on stdout.
type runReport struct {
	Input   string           `json:"input" yaml:"input"`
	Output  string           `json:"output" yaml:"output"`
	Summary *metrics.Summary `json:"summary" yaml:"summary"`
	Units   []metrics.Metric `json:"units,omitempty" yaml:"units,omitempty"`
}

func newRunReport(summary *metrics.Summary, input, out string, units []metrics.Metric) *runReport {
	return &runReport{Input: input, Output: out, Summary: summary, Units: units}
}

// view drops per-unit detail for display.
func (r *runReport) view() *runSummary {
	return &runSummary{Input: r.Input, Output: r.Output, Summary: r.Summary}
}

func saveRunReport(h *home.Dir, r *runReport) error {
	if r.Summary == nil || r.Summary.RunID == "" {
		return nil
	}
	if err := h.EnsureExists(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	return os.WriteFile(h.RunReportPath(r.Summary.RunID), data, 0o644)
}

// runSummary is the stdout form of a run report.
type runSummary struct {
	Input   string           `json:"input" yaml:"input"`
	Output  string           `json:"output" yaml:"output"`
	Summary *metrics.Summary `json:"summary" yaml:"summary"`
}

func (s *runSummary) Headers() []string { return []string{"Field", "Value"} }

func (s *runSummary) Rows() [][]string {
	m := s.Summary
	rows := [][]string{
		{"Input", s.Input},
		{"Output", s.Output},
		{"Run", m.RunID},
		{"Units", fmt.Sprintf("%d", m.Total)},
		{"Succeeded", fmt.Sprintf("%d", m.Succeeded)},
		{"Failed", fmt.Sprintf("%d", m.Failed)},
		{"Cancelled", fmt.Sprintf("%d", m.Cancelled)},
		{"Empty", fmt.Sprintf("%d", m.Empty)},
		{"Retries", fmt.Sprintf("%d", m.Retries)},
		{"Tokens", fmt.Sprintf("%d", m.TotalTokens)},
		{"Latency p50/p95", fmt.Sprintf("%.2fs / %.2fs", m.LatencyP50, m.LatencyP95)},
		{"Peak in flight", fmt.Sprintf("%d", m.PeakInFlight)},
		{"Wall time", m.WallTime.Round(10 * time.Millisecond).String()},
	}
	kinds := make([]string, 0, len(m.ErrorsByType))
	for kind := range m.ErrorsByType {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		rows = append(rows, []string{"Errors (" + kind + ")", fmt.Sprintf("%d", m.ErrorsByType[kind])})
	}
	return rows
}
