package domain

// Stage is one step of the provisioning progress timeline.
type Stage string

const (
	StageOnboard   Stage = "onboard"
	StageToken     Stage = "token"
	StageChannels  Stage = "channels"
	StageTailscale Stage = "tailscale"
	StageGateway   Stage = "gateway"
	StageHealth    Stage = "health"
)

// Stages returns every stage in display order.
func Stages() []Stage {
	return []Stage{StageOnboard, StageToken, StageChannels, StageTailscale, StageGateway, StageHealth}
}

// Label returns the human-readable stage name.
func (s Stage) Label() string {
	switch s {
	case StageOnboard:
		return "Onboarding"
	case StageToken:
		return "Gateway token"
	case StageChannels:
		return "Channels"
	case StageTailscale:
		return "Tailscale"
	case StageGateway:
		return "Starting gateway"
	case StageHealth:
		return "Health check"
	}
	return string(s)
}

// StageStatus is the state of a single stage within one run.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusActive  StageStatus = "active"
	StatusDone    StageStatus = "done"
	StatusError   StageStatus = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s StageStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransition reports whether a stage may move from -> to within a run.
// Stages only move forward: pending -> active -> done|error. A pending stage
// may also complete or fail directly (e.g. a skipped Tailscale stage).
func CanTransition(from, to StageStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusDone || to == StatusError
	case StatusActive:
		return to == StatusDone || to == StatusError
	}
	return false
}

// StageState pairs a stage with its current status.
type StageState struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
}
