package wizard

import (
	"sync"

	"openclaw-setup/internal/domain"
)

// State is the form data and provider selection shared by the navigator,
// the selector and the run orchestrator. All access goes through the
// mutex because runs and dashboard refreshes complete on their own goroutines.
type State struct {
	mu       sync.RWMutex
	form     Form
	groups   []domain.ProviderGroup
	selected *domain.ProviderGroup
}

// NewState creates a State seeded with form.
func NewState(form Form) *State {
	return &State{form: form}
}

// Form returns a copy of the current form.
func (s *State) Form() Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}

// Update mutates the form under the lock.
func (s *State) Update(fn func(f *Form)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.form)
}

// Groups returns the provider groups last received from the gateway.
func (s *State) Groups() []domain.ProviderGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups
}

// Selected returns the selected provider group, or nil.
func (s *State) Selected() *domain.ProviderGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Snapshot returns the form and selection together.
func (s *State) Snapshot() (Form, *domain.ProviderGroup) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form, s.selected
}
