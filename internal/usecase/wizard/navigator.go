package wizard

import (
	"sync"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/validate"
)

// TotalSteps is the number of wizard steps.
const TotalSteps = 5

// Step numbers.
const (
	StepProvider = iota + 1
	StepChannels
	StepTailscale
	StepAdvanced
	StepReview
)

// StepNames returns the display name of each step, index 0 = step 1.
func StepNames() []string {
	return []string{"AI Provider", "Channels", "Tailscale", "Advanced", "Review & Run"}
}

// StepView is the render state of one step in the progress indicator.
type StepView struct {
	Number    int
	Name      string
	Active    bool
	Completed bool
	// Connector is the line leading from this step to the next one.
	Connector bool
}

// NavigatorView receives navigator output.
type NavigatorView interface {
	RenderSteps(steps []StepView)
	RenderReview(items []ReviewItem)
	ScrollTop()
}

// Navigator is the linear state machine over the wizard steps.
type Navigator struct {
	mu        sync.Mutex
	state     *State
	view      NavigatorView
	current   int
	completed [TotalSteps + 1]bool
}

// NewNavigator creates a Navigator positioned on step 1.
func NewNavigator(state *State, view NavigatorView) *Navigator {
	if view == nil {
		view = NopView{}
	}
	n := &Navigator{state: state, view: view, current: StepProvider}
	n.view.RenderSteps(n.stepsLocked())
	return n
}

// Current returns the active step number.
func (n *Navigator) Current() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Completed reports whether step is marked completed.
func (n *Navigator) Completed(step int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if step < 1 || step > TotalSteps {
		return false
	}
	return n.completed[step]
}

// GoToStep activates step. It is a no-op returning false when step is
// outside [1, TotalSteps]. Entering the last step rebuilds the review summary.
func (n *Navigator) GoToStep(step int) bool {
	if step < 1 || step > TotalSteps {
		return false
	}

	n.mu.Lock()
	n.current = step
	for s := 1; s <= TotalSteps; s++ {
		n.completed[s] = s < step
	}
	steps := n.stepsLocked()
	n.mu.Unlock()

	n.view.RenderSteps(steps)
	if step == TotalSteps {
		form, selected := n.state.Snapshot()
		n.view.RenderReview(BuildReview(form, selected))
	}
	n.view.ScrollTop()
	return true
}

// Next advances one step. Leaving step 1 requires a passing auth-secret
// validation; on failure the step is unchanged and ErrValidation is returned.
func (n *Navigator) Next() error {
	cur := n.Current()
	if cur == StepProvider {
		form := n.state.Form()
		if r := validate.AuthSecret(form.AuthChoice, form.AuthSecret); !r.OK {
			return domain.NewDomainError("Navigator.Next", domain.ErrValidation, r.Message)
		}
	}
	n.GoToStep(cur + 1)
	return nil
}

// Back moves one step backwards.
func (n *Navigator) Back() bool {
	return n.GoToStep(n.Current() - 1)
}

// Click handles a direct step-indicator selection. Earlier and completed
// steps are reachable; steps ahead are not.
func (n *Navigator) Click(step int) bool {
	n.mu.Lock()
	reachable := step >= 1 && step <= TotalSteps && (step <= n.current || n.completed[step])
	n.mu.Unlock()
	if !reachable {
		return false
	}
	return n.GoToStep(step)
}

// Steps returns the current indicator state.
func (n *Navigator) Steps() []StepView {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stepsLocked()
}

func (n *Navigator) stepsLocked() []StepView {
	names := StepNames()
	out := make([]StepView, TotalSteps)
	for i := range out {
		s := i + 1
		out[i] = StepView{
			Number:    s,
			Name:      names[i],
			Active:    s == n.current,
			Completed: n.completed[s],
			Connector: s < TotalSteps && s < n.current,
		}
	}
	return out
}
