package wizard

import (
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/validate"
)

// Auth input hints.
const (
	HintOAuth        = "No API key needed, uses OAuth / device login at gateway start."
	HintSetupToken   = `Run "claude setup-token" locally and paste the result here.`
	PlaceholderOAuth = "(leave empty for OAuth)"
	PlaceholderToken = "Paste setup-token value"
	PlaceholderKey   = "Paste API key or token here"
)

// AuthHint is the help text and placeholder for the secret input.
type AuthHint struct {
	Text        string
	Placeholder string
}

// HintFor returns the hint for an auth choice.
func HintFor(choice string) AuthHint {
	switch {
	case domain.IsOAuthChoice(choice):
		return AuthHint{Text: HintOAuth, Placeholder: PlaceholderOAuth}
	case choice == domain.SetupTokenChoice:
		return AuthHint{Text: HintSetupToken, Placeholder: PlaceholderToken}
	default:
		return AuthHint{Placeholder: PlaceholderKey}
	}
}

// SelectorView receives provider selector output.
type SelectorView interface {
	RenderProviders(groups []domain.ProviderGroup, selected string)
	RenderAuthOptions(options []domain.AuthOption, selected string)
	RenderAuthHint(hint AuthHint)
	RenderAuthValidation(r validate.Result)
}

// Selector binds provider groups and auth methods to the wizard state.
type Selector struct {
	state *State
	view  SelectorView
}

// NewSelector creates a Selector. A nil view discards output.
func NewSelector(state *State, view SelectorView) *Selector {
	if view == nil {
		view = NopView{}
	}
	return &Selector{state: state, view: view}
}

// SetGroups replaces the provider groups, keeping the current selection when
// the group is still offered. A dropped group takes its auth choice and
// secret with it.
func (s *Selector) SetGroups(groups []domain.ProviderGroup) {
	s.state.mu.Lock()
	s.state.groups = groups
	selected, dropped := "", false
	if s.state.selected != nil {
		if g := domain.FindGroup(groups, s.state.selected.Value); g != nil {
			s.state.selected = g
			selected = g.Value
		} else {
			s.state.selected = nil
			s.state.form.Provider = ""
			s.state.form.AuthChoice = ""
			s.state.form.AuthSecret = ""
			dropped = true
		}
	}
	s.state.mu.Unlock()

	s.view.RenderProviders(groups, selected)
	if dropped {
		s.view.RenderAuthOptions(nil, "")
		s.view.RenderAuthHint(HintFor(""))
	}
}

// Select records group as the chosen provider. The secret is always cleared.
// A group offering exactly one auth method has that method applied through
// SetChoice, the same path a manual pick takes.
func (s *Selector) Select(group domain.ProviderGroup) {
	g := group
	s.state.mu.Lock()
	s.state.selected = &g
	s.state.form.Provider = g.Value
	s.state.form.AuthChoice = ""
	s.state.form.AuthSecret = ""
	groups := s.state.groups
	s.state.mu.Unlock()

	s.view.RenderProviders(groups, g.Value)
	s.view.RenderAuthOptions(g.Options, "")

	if len(g.Options) == 1 {
		s.SetChoice(g.Options[0].Value)
		return
	}
	s.view.RenderAuthHint(HintFor(""))
	s.view.RenderAuthValidation(validate.AuthSecret("", ""))
}

// SelectByValue selects the group with the given value.
func (s *Selector) SelectByValue(value string) bool {
	g := domain.FindGroup(s.state.Groups(), value)
	if g == nil {
		return false
	}
	s.Select(*g)
	return true
}

// SetChoice applies an auth method and refreshes the hint and validation.
func (s *Selector) SetChoice(choice string) validate.Result {
	var opts []domain.AuthOption
	s.state.mu.Lock()
	s.state.form.AuthChoice = choice
	secret := s.state.form.AuthSecret
	if s.state.selected != nil {
		opts = s.state.selected.Options
	}
	s.state.mu.Unlock()

	s.view.RenderAuthOptions(opts, choice)
	s.view.RenderAuthHint(HintFor(choice))
	r := validate.AuthSecret(choice, secret)
	s.view.RenderAuthValidation(r)
	return r
}

// SetSecret records the secret and revalidates it.
func (s *Selector) SetSecret(secret string) validate.Result {
	s.state.mu.Lock()
	s.state.form.AuthSecret = secret
	choice := s.state.form.AuthChoice
	s.state.mu.Unlock()

	r := validate.AuthSecret(choice, secret)
	s.view.RenderAuthValidation(r)
	return r
}

// NopView discards all wizard output.
type NopView struct{}

func (NopView) RenderSteps([]StepView) {}
func (NopView) RenderReview([]ReviewItem) {}
func (NopView) ScrollTop() {}
func (NopView) RenderProviders([]domain.ProviderGroup, string) {}
func (NopView) RenderAuthOptions([]domain.AuthOption, string) {}
func (NopView) RenderAuthHint(AuthHint) {}
func (NopView) RenderAuthValidation(validate.Result) {}
