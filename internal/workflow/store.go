package workflow

import "sync"

// Store holds the state of the current run. It is safe for concurrent use:
// one writer (the stream consumer) and any number of snapshot readers.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore returns a store holding an idle run.
func NewStore(runID string) *Store {
	return &Store{state: NewState(runID)}
}

// Reset discards the previous run entirely and starts an idle one.
func (s *Store) Reset(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = NewState(runID)
}

// Apply folds ev into the current state.
func (s *Store) Apply(ev Event) (State, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, res := Apply(s.state, ev)
	s.state = next
	return next.Clone(), res
}

// RecordDecodeFailure counts a line that could not be decoded.
func (s *Store) RecordDecodeFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Diagnostics.DecodeFailures++
}

// Fail records a transport-level error. It is a no-op once the run has finished.
func (s *Store) Fail(detail string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state, _ = Apply(s.state, RunError{Detail: detail})
	}
	return s.state.Clone()
}

// ToggleExpanded flips the detail view of step i.
func (s *Store) ToggleExpanded(i int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.ToggleExpanded(i)
	return s.state.Clone()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}
