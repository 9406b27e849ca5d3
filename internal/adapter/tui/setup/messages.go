// Package setup implements the Bubble Tea setup wizard for an OpenClaw
// gateway: the five wizard steps, the run progress view, device approval and
// the status dashboard.
package setup

import (
	"openclaw-setup/internal/usecase/dashboard"
	"openclaw-setup/internal/usecase/provision"
)

// runDoneMsg carries the outcome of a provisioning run.
type runDoneMsg struct {
	res *provision.Result
	err error
}

// refreshDoneMsg carries a dashboard snapshot.
type refreshDoneMsg struct {
	snap dashboard.Snapshot
}

// approveDoneMsg reports a device approval.
type approveDoneMsg struct {
	id  string
	err error
}

// outputMsg carries the result of an admin action whose output is shown in
// the modal. lang selects the code block highlighting.
type outputMsg struct {
	title  string
	lang   string
	output string
	notice string
	err    error
}

// tokenMsg carries a revealed gateway token.
type tokenMsg struct {
	token  string
	copied bool
	err    error
}

// copiedMsg reports a clipboard copy.
type copiedMsg struct {
	what string
	err  error
}
