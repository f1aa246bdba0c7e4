package metrics

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	metrics := []Metric{
		{State: StateSucceeded, Attempts: 1, PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14, TotalSeconds: 1},
		{State: StateSucceeded, Attempts: 3, PromptTokens: 8, CompletionTokens: 2, TotalTokens: 10, TotalSeconds: 3},
		{State: StateSucceeded, Empty: true},
		{State: StateFailed, Attempts: 3, ErrorType: "timeout", TotalSeconds: 2},
		{State: StateCancelled},
	}

	s := Summarize(metrics)

	if s.Recorded != 4 || s.Succeeded != 3 || s.Failed != 1 || s.Cancelled != 1 || s.Empty != 1 {
		t.Errorf("counts = recorded %d succeeded %d failed %d cancelled %d empty %d",
			s.Recorded, s.Succeeded, s.Failed, s.Cancelled, s.Empty)
	}
	if s.Attempts != 7 || s.Retries != 4 {
		t.Errorf("attempts = %d retries = %d, want 7 and 4", s.Attempts, s.Retries)
	}
	if s.TotalTokens != 24 {
		t.Errorf("TotalTokens = %d, want 24", s.TotalTokens)
	}
	if s.ErrorsByType["timeout"] != 1 {
		t.Errorf("ErrorsByType = %v", s.ErrorsByType)
	}
	if s.LatencyMax != 3 || s.LatencyAvg != 2 || s.LatencyP50 != 2 {
		t.Errorf("latency avg=%v p50=%v max=%v", s.LatencyAvg, s.LatencyP50, s.LatencyMax)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{4}, 95, 4},
		{"median of odd", []float64{1, 2, 3}, 50, 2},
		{"interpolated", []float64{1, 2, 3, 4}, 50, 2.5},
		{"max", []float64{1, 2, 3, 4}, 100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentile(tt.values, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("percentile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Start("run-1", 3)
	r.Record(Metric{Index: 0, State: StateSucceeded, PromptTokens: 2, CompletionTokens: 3, Attempts: 1})
	r.Record(Metric{Index: 1, State: StateFailed, Attempts: 2, ErrorType: "remote"})
	r.Finish(2)

	got := r.Metrics()
	if len(got) != 2 {
		t.Fatalf("got %d metrics, want 2", len(got))
	}
	if got[0].RunID != "run-1" {
		t.Errorf("RunID = %q", got[0].RunID)
	}
	if got[0].TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", got[0].TotalTokens)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	s := r.Summary()
	if s.RunID != "run-1" || s.Total != 3 || s.PeakInFlight != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.WallTime < 0 {
		t.Errorf("WallTime = %v", s.WallTime)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.Start("x", 1)
	r.Record(Metric{State: StateSucceeded})
	r.Finish(1)
	if r.Metrics() != nil {
		t.Error("nil recorder should have no metrics")
	}
	if s := r.Summary(); s.Recorded != 0 {
		t.Errorf("nil recorder summary = %+v", s)
	}
}
