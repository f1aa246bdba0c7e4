package metrics

import (
	"sort"
	"time"
)

// Summary provides an aggregate view of a translation run.
type Summary struct {
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Counts
	Total     int `json:"total" yaml:"total"`
	Recorded  int `json:"recorded" yaml:"recorded"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Cancelled int `json:"cancelled" yaml:"cancelled"`
	Empty     int `json:"empty" yaml:"empty"`

	// Requests
	Attempts int `json:"attempts" yaml:"attempts"`
	Retries  int `json:"retries" yaml:"retries"`

	// Tokens
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`

	// Latency of recorded units (seconds)
	LatencyAvg float64 `json:"latency_avg" yaml:"latency_avg"`
	LatencyP50 float64 `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95" yaml:"latency_p95"`
	LatencyMax float64 `json:"latency_max" yaml:"latency_max"`

	WallTime     time.Duration  `json:"wall_time" yaml:"wall_time"`
	PeakInFlight int            `json:"peak_in_flight" yaml:"peak_in_flight"`
	ErrorsByType map[string]int `json:"errors_by_type,omitempty" yaml:"errors_by_type,omitempty"`
}

// Summarize aggregates a set of metrics. Run-level fields (RunID, Total,
// WallTime, PeakInFlight) are left for the caller.
func Summarize(metrics []Metric) *Summary {
	s := &Summary{ErrorsByType: make(map[string]int)}

	var latencies []float64
	for _, m := range metrics {
		switch m.State {
		case StateCancelled:
			s.Cancelled++
			continue
		case StateSucceeded:
			s.Succeeded++
		case StateFailed:
			s.Failed++
			if m.ErrorType != "" {
				s.ErrorsByType[m.ErrorType]++
			}
		}
		s.Recorded++
		if m.Empty {
			s.Empty++
		}

		s.Attempts += m.Attempts
		if m.Attempts > 1 {
			s.Retries += m.Attempts - 1
		}

		s.PromptTokens += m.PromptTokens
		s.CompletionTokens += m.CompletionTokens
		s.TotalTokens += m.TotalTokens

		if m.TotalSeconds > 0 {
			latencies = append(latencies, m.TotalSeconds)
		}
	}

	if len(latencies) > 0 {
		sort.Float64s(latencies)

		var sum float64
		for _, l := range latencies {
			sum += l
		}
		s.LatencyAvg = sum / float64(len(latencies))
		s.LatencyMax = latencies[len(latencies)-1]
		s.LatencyP50 = percentile(latencies, 50)
		s.LatencyP95 = percentile(latencies, 95)
	}

	return s
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
