package domain

import (
	"context"
	"time"
)

// RunOutcome is the final result of one provisioning run.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomeFailed  RunOutcome = "failed"
	OutcomeWarning RunOutcome = "warning"
)

// RunRecord is one provisioning run kept in the local history.
type RunRecord struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Outcome    RunOutcome   `json:"outcome"`
	Provider   string       `json:"provider,omitempty"`
	AuthChoice string       `json:"auth_choice,omitempty"`
	Error      string       `json:"error,omitempty"`
	Stages     []StageState `json:"stages"`
}

// Duration is the wall time of the run.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunHistory stores finished runs.
type RunHistory interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
