package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/jackzampolin/folio/internal/source"
	"github.com/jackzampolin/folio/internal/translate"
)

// progressReporter draws a bar on terminals and logs one line per unit
// everywhere else. Failures are always logged.
type progressReporter struct {
	bar    *progressbar.ProgressBar
	logger *slog.Logger
}

func newProgressReporter(w io.Writer, total int, logger *slog.Logger, interactive bool) *progressReporter {
	p := &progressReporter{logger: logger}
	if interactive {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("translating"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

// Report is a translate.ProgressFunc.
func (p *progressReporter) Report(pr translate.Progress[source.Key]) {
	if pr.Err != nil {
		p.logger.Warn("unit failed",
			"completed", pr.Completed,
			"total", pr.Total,
			"unit", pr.ID.String(),
			"source", pr.Source,
			"error", pr.Err)
	} else if p.bar == nil {
		p.logger.Info("unit translated",
			"completed", pr.Completed,
			"total", pr.Total,
			"unit", pr.ID.String(),
			"source", pr.Source,
			"translated", pr.Translated)
	}
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish clears the bar.
func (p *progressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
