package form

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/usecase/validate"
)

// Kind is the input style of a field.
type Kind int

const (
	KindText Kind = iota
	KindSecret
	KindToggle
	KindChoice
)

// ChangedMsg is sent whenever a field's value changes.
type ChangedMsg struct {
	Key   string
	Value string
}

// SubmitMsg is sent when Enter is pressed on a field.
type SubmitMsg struct {
	Key   string
	Value string
}

// Field is one wizard input: a text or secret line, an on/off toggle or a
// left/right choice between fixed options.
type Field struct {
	Kind        Kind
	Key         string
	Label       string
	Description string
	Input       textinput.Model
	Options     []string

	choice  int
	checked bool
	result  validate.Result
	focused bool
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = 50
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	return ti
}

// NewTextField creates a text input field.
func NewTextField(key, label, placeholder string) Field {
	return Field{Kind: KindText, Key: key, Label: label, Input: newInput(placeholder)}
}

// NewSecretField creates a masked input field.
func NewSecretField(key, label, placeholder string) Field {
	ti := newInput(placeholder)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return Field{Kind: KindSecret, Key: key, Label: label, Input: ti}
}

// NewToggleField creates an on/off field toggled with Space.
func NewToggleField(key, label string, on bool) Field {
	return Field{Kind: KindToggle, Key: key, Label: label, checked: on}
}

// NewChoiceField creates a field cycling through options with Left/Right.
func NewChoiceField(key, label string, options []string, selected string) Field {
	f := Field{Kind: KindChoice, Key: key, Label: label, Options: options}
	for i, o := range options {
		if o == selected {
			f.choice = i
		}
	}
	return f
}

// Focus gives the field keyboard focus.
func (f *Field) Focus() tea.Cmd {
	f.focused = true
	if f.isText() {
		return f.Input.Focus()
	}
	return nil
}

// Blur removes keyboard focus.
func (f *Field) Blur() {
	f.focused = false
	if f.isText() {
		f.Input.Blur()
	}
}

// Focused reports whether the field has focus.
func (f Field) Focused() bool {
	return f.focused
}

func (f Field) isText() bool {
	return f.Kind == KindText || f.Kind == KindSecret
}

// Value returns the trimmed text, "true"/"false" for toggles or the selected
// option.
func (f Field) Value() string {
	switch f.Kind {
	case KindToggle:
		return strconv.FormatBool(f.checked)
	case KindChoice:
		if len(f.Options) == 0 {
			return ""
		}
		return f.Options[f.choice]
	}
	return strings.TrimSpace(f.Input.Value())
}

// Checked reports the toggle state.
func (f Field) Checked() bool {
	return f.checked
}

// SetValue replaces the value without emitting ChangedMsg.
func (f *Field) SetValue(v string) {
	switch f.Kind {
	case KindToggle:
		f.checked = v == "true"
	case KindChoice:
		for i, o := range f.Options {
			if o == v {
				f.choice = i
			}
		}
	default:
		f.Input.SetValue(v)
	}
}

// SetPlaceholder replaces the text placeholder.
func (f *Field) SetPlaceholder(p string) {
	f.Input.Placeholder = p
}

// SetResult shows an inline validation result under the input.
func (f *Field) SetResult(r validate.Result) {
	f.result = r
}

// Result returns the last validation result.
func (f Field) Result() validate.Result {
	return f.result
}

// Update handles input events for a focused field.
func (f Field) Update(msg tea.Msg) (Field, tea.Cmd) {
	if !f.focused {
		return f, nil
	}
	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey && keyMsg.Type == tea.KeyEnter {
		return f, f.emit(SubmitMsg{Key: f.Key, Value: f.Value()})
	}

	switch f.Kind {
	case KindToggle:
		if isKey && (keyMsg.String() == " " || keyMsg.String() == "x") {
			f.checked = !f.checked
			return f, f.changed()
		}
		return f, nil
	case KindChoice:
		if !isKey || len(f.Options) == 0 {
			return f, nil
		}
		switch keyMsg.String() {
		case "left", "h":
			f.choice = (f.choice - 1 + len(f.Options)) % len(f.Options)
			return f, f.changed()
		case "right", "l", " ":
			f.choice = (f.choice + 1) % len(f.Options)
			return f, f.changed()
		}
		return f, nil
	}

	before := f.Input.Value()
	var cmd tea.Cmd
	f.Input, cmd = f.Input.Update(msg)
	if f.Input.Value() != before {
		return f, tea.Batch(cmd, f.changed())
	}
	return f, cmd
}

func (f Field) changed() tea.Cmd {
	return f.emit(ChangedMsg{Key: f.Key, Value: f.Value()})
}

func (f Field) emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the field.
func (f Field) View() string {
	cursor := "  "
	label := theme.Bold.Render(f.Label)
	if f.focused {
		cursor = theme.Selected.Render(theme.SymbolCursor + " ")
		label = theme.Selected.Render(f.Label)
	}

	var input string
	switch f.Kind {
	case KindToggle:
		box := "[ ]"
		if f.checked {
			box = "[x]"
		}
		return cursor + box + " " + label + f.resultLine()
	case KindChoice:
		value := f.Value()
		if f.focused {
			value = "‹ " + value + " ›"
		}
		input = theme.TextInfo.Render(value)
	default:
		input = f.Input.View()
	}

	parts := []string{cursor + label}
	if f.Description != "" {
		parts = append(parts, "  "+theme.TextMuted.Render(f.Description))
	}
	parts = append(parts, "  "+input)
	if line := f.resultLine(); line != "" {
		parts = append(parts, strings.TrimPrefix(line, "\n"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (f Field) resultLine() string {
	return ResultLine(f.result)
}

// ResultLine renders a validation result, or "" when it carries no message.
func ResultLine(r validate.Result) string {
	if r.Message == "" {
		return ""
	}
	switch r.Severity {
	case validate.SeverityValid:
		return "\n    " + theme.TextSuccess.Render(theme.SymbolSuccess+" "+r.Message)
	case validate.SeverityWarning:
		return "\n    " + theme.TextWarning.Render(theme.SymbolWarning+" "+r.Message)
	case validate.SeverityInvalid:
		return "\n    " + theme.TextError.Render(theme.SymbolError+" "+r.Message)
	}
	return "\n    " + theme.TextMuted.Render(r.Message)
}
