// Package translate runs many independent translation requests against a
// generation backend with bounded concurrency, retries, progress reporting
// and cooperative cancellation.
package translate

import (
	"sync"
)

// Unit is one piece of source text to translate. ID is caller-defined and
// is used verbatim as the result key.
type Unit[K comparable] struct {
	ID   K
	Text string
}

// UnitState tracks a unit through a run.
type UnitState int

const (
	StatePending UnitState = iota
	StateAdmitted
	StateTranslating
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s UnitState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAdmitted:
		return "admitted"
	case StateTranslating:
		return "translating"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Entry pairs a unit with its outcome.
type Entry[K comparable] struct {
	ID     K
	Source string
	Text   string
	Err    error
}

// Results maps unit ids to translated text. Failed units map to "" and
// keep their cause in Err. Each id is written at most once.
type Results[K comparable] struct {
	mu    sync.RWMutex
	texts map[K]string
	errs  map[K]error
	order []K
}

// NewResults creates an empty result set.
func NewResults[K comparable](capacity int) *Results[K] {
	if capacity < 0 {
		capacity = 0
	}
	return &Results[K]{
		texts: make(map[K]string, capacity),
		errs:  make(map[K]error),
		order: make([]K, 0, capacity),
	}
}

// Set records a successful translation. It returns false if id was
// already recorded.
func (r *Results[K]) Set(id K, text string) bool {
	return r.record(id, text, nil)
}

// SetFailed records a failed unit as an empty translation.
func (r *Results[K]) SetFailed(id K, err error) bool {
	return r.record(id, "", err)
}

func (r *Results[K]) record(id K, text string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.texts[id]; ok {
		return false
	}
	r.texts[id] = text
	if err != nil {
		r.errs[id] = err
	}
	r.order = append(r.order, id)
	return true
}

// Get returns the text recorded for id.
func (r *Results[K]) Get(id K) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	text, ok := r.texts[id]
	return text, ok
}

// Err returns the failure recorded for id, or nil.
func (r *Results[K]) Err(id K) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errs[id]
}

// Len returns the number of recorded units.
func (r *Results[K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.texts)
}

// Keys returns recorded ids in completion order.
func (r *Results[K]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]K, len(r.order))
	copy(out, r.order)
	return out
}

// Failed returns the ids of failed units in completion order.
func (r *Results[K]) Failed() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []K
	for _, id := range r.order {
		if _, ok := r.errs[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Map returns a snapshot of all recorded translations.
func (r *Results[K]) Map() map[K]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[K]string, len(r.texts))
	for id, text := range r.texts {
		out[id] = text
	}
	return out
}

// Ordered returns the recorded entries in the order of units. Units that
// were never recorded are skipped.
func (r *Results[K]) Ordered(units []Unit[K]) []Entry[K] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry[K], 0, len(r.texts))
	for _, u := range units {
		text, ok := r.texts[u.ID]
		if !ok {
			continue
		}
		out = append(out, Entry[K]{
			ID:     u.ID,
			Source: u.Text,
			Text:   text,
			Err:    r.errs[u.ID],
		})
	}
	return out
}
