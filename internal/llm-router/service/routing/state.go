// Package routing keeps the process-wide record of backend outcomes that
// biases the order in which later requests try backends.
package routing

import (
	"sort"
	"sync"
)

type Stats struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// Snapshot is a point-in-time copy of the state.
type Snapshot struct {
	LastSuccessful string           `json:"lastSuccessful,omitempty"`
	Failed         []string         `json:"failed"`
	Stats          map[string]Stats `json:"stats"`
}

// State is shared by every request and safe for concurrent use. Each method
// is atomic with respect to the others.
type State struct {
	mu             sync.Mutex
	backends       []string
	lastSuccessful string
	failed         map[string]struct{}
	stats          map[string]*Stats
}

// NewState creates the state for the given backends in registry order.
func NewState(backends []string) *State {
	return &State{
		backends: append([]string(nil), backends...),
		failed:   make(map[string]struct{}),
		stats:    make(map[string]*Stats),
	}
}

func (s *State) RecordSuccess(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSuccessful = id
	delete(s.failed, id)
	s.statsFor(id).Successes++
}

func (s *State) RecordFailure(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed[id] = struct{}{}
	s.statsFor(id).Failures++
}

// NextSequence returns every configured backend once. The last successful
// backend comes first unless it is excludeFailed; the rest follow in circular
// registry order starting right after excludeFailed. An empty or unknown
// excludeFailed starts the circle at index 0.
func (s *State) NextSequence(excludeFailed string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.backends)
	out := make([]string, 0, n)

	pinned := ""
	if s.lastSuccessful != "" && s.lastSuccessful != excludeFailed {
		pinned = s.lastSuccessful
		out = append(out, pinned)
	}

	start := 0
	for i, id := range s.backends {
		if excludeFailed != "" && id == excludeFailed {
			start = (i + 1) % n
			break
		}
	}

	for i := 0; i < n; i++ {
		id := s.backends[(start+i)%n]
		if id == pinned {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *State) LastSuccessful() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccessful
}

func (s *State) IsFailed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[id]
	return ok
}

func (s *State) Stats(id string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[id]; ok {
		return *st
	}
	return Stats{}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		LastSuccessful: s.lastSuccessful,
		Failed:         make([]string, 0, len(s.failed)),
		Stats:          make(map[string]Stats, len(s.stats)),
	}
	for id := range s.failed {
		snap.Failed = append(snap.Failed, id)
	}
	sort.Strings(snap.Failed)
	for id, st := range s.stats {
		snap.Stats[id] = *st
	}
	return snap
}

func (s *State) statsFor(id string) *Stats {
	st, ok := s.stats[id]
	if !ok {
		st = &Stats{}
		s.stats[id] = st
	}
	return st
}
