package metrics

import (
	"sync"
	"time"
)

// Recorder collects metrics for one translation run in memory.
// A nil *Recorder is valid and discards everything.
type Recorder struct {
	mu           sync.Mutex
	runID        string
	total        int
	started      time.Time
	finished     time.Time
	peakInFlight int
	metrics      []Metric
}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start resets the recorder for a new run.
func (r *Recorder) Start(runID string, total int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = runID
	r.total = total
	r.started = time.Now()
	r.finished = time.Time{}
	r.peakInFlight = 0
	r.metrics = make([]Metric, 0, total)
}

// Record stores a single metric.
func (r *Recorder) Record(m Metric) {
	if r == nil {
		return
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.TotalTokens == 0 {
		m.TotalTokens = m.PromptTokens + m.CompletionTokens
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.RunID == "" {
		m.RunID = r.runID
	}
	r.metrics = append(r.metrics, m)
}

// Finish marks the run as complete.
func (r *Recorder) Finish(peakInFlight int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = time.Now()
	r.peakInFlight = peakInFlight
}

// Metrics returns a copy of the recorded metrics in recording order.
func (r *Recorder) Metrics() []Metric {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Metric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Summary aggregates everything recorded so far.
func (r *Recorder) Summary() *Summary {
	if r == nil {
		return &Summary{ErrorsByType: map[string]int{}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summarize(r.metrics)
	s.RunID = r.runID
	s.Total = r.total
	s.PeakInFlight = r.peakInFlight
	if !r.started.IsZero() {
		end := r.finished
		if end.IsZero() {
			end = time.Now()
		}
		s.WallTime = end.Sub(r.started)
	}
	return s
}
