package provision

import (
	"fmt"
	"sync"

	"openclaw-setup/internal/domain"
)

// ProgressSink receives every accepted stage transition.
type ProgressSink interface {
	StageChanged(stage domain.Stage, status domain.StageStatus)
}

// Tracker holds the status of every stage for the current run.
type Tracker struct {
	mu     sync.Mutex
	status map[domain.Stage]domain.StageStatus
	sink   ProgressSink
}

// NewTracker creates a Tracker with every stage pending. sink may be nil.
func NewTracker(sink ProgressSink) *Tracker {
	t := &Tracker{sink: sink}
	t.Reset()
	return t
}

// Reset puts every stage back to pending.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.status = make(map[domain.Stage]domain.StageStatus, len(domain.Stages()))
	for _, s := range domain.Stages() {
		t.status[s] = domain.StatusPending
	}
	t.mu.Unlock()

	if t.sink != nil {
		for _, s := range domain.Stages() {
			t.sink.StageChanged(s, domain.StatusPending)
		}
	}
}

// Set moves stage to status. Regressions and moves out of a terminal state
// return ErrInvalidTransition and leave the stage untouched.
func (t *Tracker) Set(stage domain.Stage, status domain.StageStatus) error {
	t.mu.Lock()
	cur, ok := t.status[stage]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("stage %q: %w", stage, domain.ErrNotFound)
	}
	if !domain.CanTransition(cur, status) {
		t.mu.Unlock()
		return fmt.Errorf("stage %s %s -> %s: %w", stage, cur, status, domain.ErrInvalidTransition)
	}
	t.status[stage] = status
	t.mu.Unlock()

	if t.sink != nil {
		t.sink.StageChanged(stage, status)
	}
	return nil
}

// Status returns the status of one stage.
func (t *Tracker) Status(stage domain.Stage) domain.StageStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status[stage]
}

// Snapshot returns every stage in display order.
func (t *Tracker) Snapshot() []domain.StageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.StageState, 0, len(t.status))
	for _, s := range domain.Stages() {
		out = append(out, domain.StageState{Stage: s, Status: t.status[s]})
	}
	return out
}
