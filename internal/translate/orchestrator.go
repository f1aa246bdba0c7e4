package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/providers"
)

// DefaultMaxConcurrent is the default number of requests in flight.
const DefaultMaxConcurrent = 5

var (
	// ErrNoFactory is returned when an orchestrator has no generator factory.
	ErrNoFactory = errors.New("no generator factory configured")
	// ErrDuplicateID is returned when two units share an id.
	ErrDuplicateID = errors.New("duplicate unit id")
	// ErrUnitPanic wraps a panic recovered from a unit task.
	ErrUnitPanic = errors.New("unit task panicked")
)

// Progress describes one recorded completion.
type Progress[K comparable] struct {
	Completed int
	Total     int
	Index     int
	ID        K
	// Source and Translated are previews, truncated to PreviewLength runes.
	Source     string
	Translated string
	Err        error
}

// ProgressFunc is invoked after every recorded completion, sequentially
// and in completion order.
type ProgressFunc[K comparable] func(Progress[K])

// Config configures an Orchestrator.
type Config struct {
	// Factory opens the generator used for one run.
	Factory       providers.Factory
	Client        ClientConfig
	MaxConcurrent int
	PreviewLength int
	Logger        *slog.Logger
	// Metrics, if set, receives one metric per unit and is reset each run.
	Metrics *metrics.Recorder
}

// Orchestrator fans units out to concurrent tasks bounded by a Limiter and
// collects their outcomes.
type Orchestrator[K comparable] struct {
	factory       providers.Factory
	clientCfg     ClientConfig
	maxConcurrent int
	previewLength int
	logger        *slog.Logger
	recorder      *metrics.Recorder
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator[K comparable](cfg Config) (*Orchestrator[K], error) {
	if cfg.Factory == nil {
		return nil, ErrNoFactory
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator[K]{
		factory:       cfg.Factory,
		clientCfg:     cfg.Client,
		maxConcurrent: cfg.MaxConcurrent,
		previewLength: cfg.PreviewLength,
		logger:        logger,
		recorder:      cfg.Metrics,
	}, nil
}

type outcome[K comparable] struct {
	index       int
	id          K
	state       UnitState
	translation *Translation
	err         error
	queued      time.Duration
	total       time.Duration
}

// Run translates units concurrently and returns the recorded results.
//
// Setting signal stops admission: units still waiting for a permit are
// dropped and never recorded, while units already translating finish and
// are recorded. A nil signal is replaced by a fresh one. Cancelling ctx
// additionally interrupts in-flight requests; Run then returns the partial
// results together with the context error.
//
// Only a failure to open the generator or invalid input fails the run as a
// whole. Per-unit failures are recorded as empty translations.
func (o *Orchestrator[K]) Run(ctx context.Context, units []Unit[K], progress ProgressFunc[K], signal *Signal) (*Results[K], error) {
	if signal == nil {
		signal = NewSignal()
	}
	if err := checkUnique(units); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := o.logger.With("run_id", runID)
	start := time.Now()

	gen, err := o.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open generator: %w", err)
	}
	defer func() {
		if err := gen.Close(); err != nil {
			logger.Warn("failed to close generator", "error", err)
		}
	}()

	clientCfg := o.clientCfg
	clientCfg.Logger = logger
	client := NewClient(gen, clientCfg)
	limiter := NewLimiter(o.maxConcurrent)

	gateCtx, stopGate := signal.Context(ctx)
	defer stopGate()

	o.recorder.Start(runID, len(units))
	logger.Info("translation run started",
		"units", len(units),
		"max_concurrent", o.maxConcurrent,
		"provider", gen.Name())

	outcomes := make(chan outcome[K], len(units))
	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func(i int, u Unit[K]) {
			defer wg.Done()
			outcomes <- o.runUnit(ctx, gateCtx, i, u, client, limiter, signal, logger)
		}(i, u)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := NewResults[K](len(units))
	total := len(units)
	completed, cancelled := 0, 0
	for out := range outcomes {
		o.record(out, gen.Name())
		if out.state == StateCancelled {
			cancelled++
			continue
		}

		if out.err != nil {
			results.SetFailed(out.id, out.err)
		} else {
			results.Set(out.id, out.translation.Text)
		}
		completed++

		if progress != nil {
			translated := ""
			if out.translation != nil {
				translated = out.translation.Text
			}
			progress(Progress[K]{
				Completed:  completed,
				Total:      total,
				Index:      out.index,
				ID:         out.id,
				Source:     Preview(units[out.index].Text, o.previewLength),
				Translated: Preview(translated, o.previewLength),
				Err:        out.err,
			})
		}
	}

	o.recorder.Finish(limiter.Peak())
	logger.Info("translation run finished",
		"recorded", completed,
		"failed", len(results.Failed()),
		"cancelled", cancelled,
		"peak_in_flight", limiter.Peak(),
		"duration", time.Since(start))

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("translation run aborted: %w", err)
	}
	return results, nil
}

// runUnit drives one unit through admission and translation. It never
// panics; a panic is reported as a failed outcome.
func (o *Orchestrator[K]) runUnit(
	ctx, gateCtx context.Context,
	index int,
	u Unit[K],
	client *Client,
	limiter *Limiter,
	signal *Signal,
	logger *slog.Logger,
) (out outcome[K]) {
	out = outcome[K]{index: index, id: u.ID, state: StatePending}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("unit task panicked", "index", index, "unit", u.ID, "panic", r)
			out.state = StateFailed
			out.translation = nil
			out.err = fmt.Errorf("%w: %v", ErrUnitPanic, r)
		}
		out.total = time.Since(start)
	}()

	if signal.IsSet() {
		out.state = StateCancelled
		return out
	}
	permit, err := limiter.Acquire(gateCtx)
	if err != nil {
		out.state = StateCancelled
		return out
	}
	defer permit.Release()
	out.state = StateAdmitted
	out.queued = time.Since(start)

	if signal.IsSet() || ctx.Err() != nil {
		out.state = StateCancelled
		return out
	}

	out.state = StateTranslating
	tr, err := client.TranslateDetailed(ctx, u.Text)
	out.translation = tr
	if err != nil {
		out.state = StateFailed
		out.err = err
		return out
	}
	out.state = StateSucceeded
	return out
}

func (o *Orchestrator[K]) record(out outcome[K], provider string) {
	if o.recorder == nil {
		return
	}
	m := metrics.Metric{
		Index:        out.index,
		ItemKey:      fmt.Sprint(out.id),
		Provider:     provider,
		Model:        o.clientCfg.Model,
		QueueSeconds: out.queued.Seconds(),
		TotalSeconds: out.total.Seconds(),
	}
	switch out.state {
	case StateCancelled:
		m.State = metrics.StateCancelled
	case StateFailed:
		m.State = metrics.StateFailed
		m.ErrorType = errorType(out.err)
	default:
		m.State = metrics.StateSucceeded
	}
	if tr := out.translation; tr != nil {
		m.Attempts = tr.Attempts
		m.Empty = tr.Empty
		m.PromptTokens = tr.PromptTokens
		m.CompletionTokens = tr.CompletionTokens
		m.ExecutionSeconds = tr.Duration.Seconds()
		if tr.Model != "" {
			m.Model = tr.Model
		}
	}
	o.recorder.Record(m)
}

func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnitPanic):
		return "panic"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return providers.Classify(err).Kind.String()
	}
}

// TranslateText translates a single text with a generator opened for the
// call.
func (o *Orchestrator[K]) TranslateText(ctx context.Context, text string) (string, error) {
	gen, err := o.factory(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open generator: %w", err)
	}
	defer gen.Close()

	clientCfg := o.clientCfg
	clientCfg.Logger = o.logger
	return NewClient(gen, clientCfg).Translate(ctx, text)
}

func checkUnique[K comparable](units []Unit[K]) error {
	seen := make(map[K]struct{}, len(units))
	for _, u := range units {
		if _, ok := seen[u.ID]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateID, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}
