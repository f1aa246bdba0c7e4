package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/providers"
)

func makeUnits(n int) []Unit[string] {
	units := make([]Unit[string], n)
	for i := range units {
		units[i] = Unit[string]{ID: fmt.Sprintf("ch%02d", i), Text: fmt.Sprintf("text %d", i)}
	}
	return units
}

func newTestOrchestrator(t *testing.T, mock *providers.MockClient, k int) *Orchestrator[string] {
	t.Helper()
	orch, err := NewOrchestrator[string](Config{
		Factory:       mock.Factory(),
		Client:        fastClientConfig(),
		MaxConcurrent: k,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return orch
}

// waitStarted blocks until n generator calls have begun.
func waitStarted(t *testing.T, started <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d requests started", i, n)
		}
	}
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("never exceeds max concurrent", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Latency = 5 * time.Millisecond
		orch := newTestOrchestrator(t, mock, 3)

		results, err := orch.Run(context.Background(), makeUnits(20), nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if results.Len() != 20 {
			t.Errorf("Len() = %d, want 20", results.Len())
		}
		if peak := mock.PeakInFlight(); peak > 3 || peak < 1 {
			t.Errorf("PeakInFlight() = %d, want 1..3", peak)
		}
		if mock.CloseCount() != 1 {
			t.Errorf("generator closed %d times, want 1", mock.CloseCount())
		}
	})

	t.Run("progress counts every completion", func(t *testing.T) {
		mock := providers.NewMockClient()
		orch := newTestOrchestrator(t, mock, 2)
		units := makeUnits(5)

		var seen []Progress[string]
		results, err := orch.Run(context.Background(), units, func(p Progress[string]) {
			seen = append(seen, p)
		}, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if len(seen) != 5 {
			t.Fatalf("progress called %d times, want 5", len(seen))
		}
		for i, p := range seen {
			if p.Completed != i+1 || p.Total != 5 {
				t.Errorf("progress[%d] = %d/%d, want %d/5", i, p.Completed, p.Total, i+1)
			}
			if p.Source != units[p.Index].Text || p.ID != units[p.Index].ID {
				t.Errorf("progress[%d] does not match unit %d", i, p.Index)
			}
			if p.Translated != "mock translation" {
				t.Errorf("progress[%d].Translated = %q", i, p.Translated)
			}
		}
		for _, u := range units {
			if got, ok := results.Get(u.ID); !ok || got != "mock translation" {
				t.Errorf("result[%s] = %q, %v", u.ID, got, ok)
			}
		}
	})

	t.Run("progress previews are truncated", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = strings.Repeat("y", 300)
		orch, _ := NewOrchestrator[int](Config{Factory: mock.Factory(), Client: fastClientConfig(), PreviewLength: 10})

		var got Progress[int]
		_, err := orch.Run(context.Background(), []Unit[int]{{ID: 7, Text: strings.Repeat("x", 300)}}, func(p Progress[int]) {
			got = p
		}, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got.Source != strings.Repeat("x", 10)+"..." || got.Translated != strings.Repeat("y", 10)+"..." {
			t.Errorf("previews = %q / %q", got.Source, got.Translated)
		}
		if got.ID != 7 {
			t.Errorf("ID = %d", got.ID)
		}
	})

	t.Run("cancel before dispatch records nothing", func(t *testing.T) {
		mock := providers.NewMockClient()
		orch := newTestOrchestrator(t, mock, 2)
		signal := NewSignal()
		signal.Set()

		calls := 0
		results, err := orch.Run(context.Background(), makeUnits(5), func(Progress[string]) { calls++ }, signal)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if results.Len() != 0 || calls != 0 || mock.Calls() != 0 {
			t.Errorf("entries = %d progress = %d requests = %d, want all zero", results.Len(), calls, mock.Calls())
		}
		if mock.CloseCount() != 1 {
			t.Errorf("generator closed %d times, want 1", mock.CloseCount())
		}
	})

	t.Run("cancel after admission keeps in-flight units", func(t *testing.T) {
		units := makeUnits(5)
		mock := providers.NewMockClient()
		mock.Started = make(chan string, len(units))
		mock.Gate = make(chan struct{})
		orch := newTestOrchestrator(t, mock, 2)
		signal := NewSignal()

		type runResult struct {
			results *Results[string]
			err     error
		}
		done := make(chan runResult, 1)
		go func() {
			r, err := orch.Run(context.Background(), units, nil, signal)
			done <- runResult{r, err}
		}()

		waitStarted(t, mock.Started, 2)
		signal.Set()
		signal.Set()
		close(mock.Gate)

		var res runResult
		select {
		case res = <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
		if res.err != nil {
			t.Fatalf("Run() error = %v", res.err)
		}
		if res.results.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", res.results.Len())
		}
		if mock.Calls() != 2 {
			t.Errorf("Calls() = %d, want 2", mock.Calls())
		}
		for _, id := range res.results.Keys() {
			if got, _ := res.results.Get(id); got != "mock translation" {
				t.Errorf("result[%s] = %q", id, got)
			}
		}
	})

	t.Run("blank unit is recorded without a request", func(t *testing.T) {
		mock := providers.NewMockClient()
		orch := newTestOrchestrator(t, mock, 2)
		units := []Unit[string]{{ID: "blank", Text: "  \n "}, {ID: "real", Text: "hello"}}

		results, err := orch.Run(context.Background(), units, nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got, ok := results.Get("blank"); !ok || got != "" {
			t.Errorf("blank = %q, %v", got, ok)
		}
		if results.Err("blank") != nil {
			t.Errorf("blank unit should not be a failure: %v", results.Err("blank"))
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})

	t.Run("failures are isolated", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Respond = func(ctx context.Context, call int, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
			if req.Prompt == "text 1" {
				return nil, providers.NewRemoteError(500, "nope")
			}
			return &providers.GenerateResult{Text: "ok:" + req.Prompt}, nil
		}
		orch := newTestOrchestrator(t, mock, 2)

		var errs int
		results, err := orch.Run(context.Background(), makeUnits(3), func(p Progress[string]) {
			if p.Err != nil {
				errs++
			}
		}, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if results.Len() != 3 {
			t.Fatalf("Len() = %d, want 3", results.Len())
		}
		if got, _ := results.Get("ch01"); got != "" {
			t.Errorf("failed unit = %q, want empty", got)
		}
		if !providers.IsRemote(results.Err("ch01")) {
			t.Errorf("Err(ch01) = %v", results.Err("ch01"))
		}
		if got, _ := results.Get("ch02"); got != "ok:text 2" {
			t.Errorf("ch02 = %q", got)
		}
		if errs != 1 {
			t.Errorf("progress reported %d errors, want 1", errs)
		}
	})

	t.Run("panic in a unit is recovered", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Respond = func(ctx context.Context, call int, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
			if req.Prompt == "text 0" {
				panic("unexpected")
			}
			return &providers.GenerateResult{Text: "ok"}, nil
		}
		orch := newTestOrchestrator(t, mock, 1)

		results, err := orch.Run(context.Background(), makeUnits(3), nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if results.Len() != 3 {
			t.Fatalf("Len() = %d, want 3", results.Len())
		}
		if !errors.Is(results.Err("ch00"), ErrUnitPanic) {
			t.Errorf("Err(ch00) = %v", results.Err("ch00"))
		}
		if got, _ := results.Get("ch02"); got != "ok" {
			t.Errorf("ch02 = %q", got)
		}
	})

	t.Run("generator open failure is fatal", func(t *testing.T) {
		openErr := errors.New("no route to host")
		orch, _ := NewOrchestrator[string](Config{
			Factory: func(ctx context.Context) (providers.Generator, error) { return nil, openErr },
		})
		results, err := orch.Run(context.Background(), makeUnits(2), nil, nil)
		if !errors.Is(err, openErr) || results != nil {
			t.Errorf("Run() = %v, %v", results, err)
		}
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		mock := providers.NewMockClient()
		orch := newTestOrchestrator(t, mock, 2)
		units := []Unit[string]{{ID: "a", Text: "x"}, {ID: "a", Text: "y"}}
		if _, err := orch.Run(context.Background(), units, nil, nil); !errors.Is(err, ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got %v", err)
		}
		if mock.CloseCount() != 0 {
			t.Error("generator should not be opened for invalid input")
		}
	})

	t.Run("context cancel aborts in-flight requests", func(t *testing.T) {
		units := makeUnits(5)
		mock := providers.NewMockClient()
		mock.Started = make(chan string, len(units))
		mock.Gate = make(chan struct{})
		orch := newTestOrchestrator(t, mock, 2)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		type runResult struct {
			results *Results[string]
			err     error
		}
		done := make(chan runResult, 1)
		go func() {
			r, err := orch.Run(ctx, units, nil, nil)
			done <- runResult{r, err}
		}()

		waitStarted(t, mock.Started, 2)
		cancel()

		res := <-done
		if !errors.Is(res.err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", res.err)
		}
		if res.results.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", res.results.Len())
		}
		for _, id := range res.results.Keys() {
			if !errors.Is(res.results.Err(id), context.Canceled) {
				t.Errorf("Err(%s) = %v", id, res.results.Err(id))
			}
		}
		if mock.CloseCount() != 1 {
			t.Errorf("generator closed %d times, want 1", mock.CloseCount())
		}
	})

	t.Run("empty input", func(t *testing.T) {
		mock := providers.NewMockClient()
		orch := newTestOrchestrator(t, mock, 2)
		results, err := orch.Run(context.Background(), nil, nil, nil)
		if err != nil || results.Len() != 0 {
			t.Errorf("Run(nil) = %d entries, %v", results.Len(), err)
		}
	})
}

func TestOrchestrator_Metrics(t *testing.T) {
	mock := providers.NewMockClient()
	mock.FailTimes = 1
	recorder := metrics.NewRecorder()
	orch, err := NewOrchestrator[string](Config{
		Factory:       mock.Factory(),
		Client:        ClientConfig{MaxRetries: 2, RetryDelay: time.Millisecond},
		MaxConcurrent: 1,
		Metrics:       recorder,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	units := []Unit[string]{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}, {ID: "c", Text: " "}}
	if _, err := orch.Run(context.Background(), units, nil, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s := recorder.Summary()
	if s.Total != 3 || s.Recorded != 3 || s.Succeeded != 3 || s.Empty != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Attempts != 3 || s.Retries != 1 {
		t.Errorf("attempts = %d retries = %d, want 3 and 1", s.Attempts, s.Retries)
	}
	if s.PeakInFlight != 1 {
		t.Errorf("PeakInFlight = %d, want 1", s.PeakInFlight)
	}
}

func TestOrchestrator_TranslateText(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = " hola "
	orch := newTestOrchestrator(t, mock, 1)

	got, err := orch.TranslateText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("TranslateText() error = %v", err)
	}
	if got != "hola" {
		t.Errorf("TranslateText() = %q", got)
	}
	if mock.CloseCount() != 1 {
		t.Errorf("generator closed %d times, want 1", mock.CloseCount())
	}
}

func TestNewOrchestrator_RequiresFactory(t *testing.T) {
	if _, err := NewOrchestrator[string](Config{}); !errors.Is(err, ErrNoFactory) {
		t.Errorf("expected ErrNoFactory, got %v", err)
	}
}
