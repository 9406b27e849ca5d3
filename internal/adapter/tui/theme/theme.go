// Package theme holds the colors, glyphs and styles shared by the setup
// wizard and the plain CLI output.
//
// Colors are adaptive; lipgloss drops them entirely when NO_COLOR is set or
// the output is not a terminal.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette. The accent is the OpenClaw claw red.
var (
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#b71c1c", Dark: "#ff6e5a"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#00695c", Dark: "#4dd0c4"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#81c784"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#ef6c00", Dark: "#ffb74d"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#e57373"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6d6d6d", Dark: "#a0a0a0"}
	ColorFaint   = lipgloss.AdaptiveColor{Light: "#a8a8a8", Dark: "#6b6b6b"}

	ColorBorder       = lipgloss.AdaptiveColor{Light: "#c4c4c4", Dark: "#5a5a5a"}
	ColorBorderActive = ColorAccent

	ColorBarBg = lipgloss.AdaptiveColor{Light: "#eeeeee", Dark: "#262626"}
	ColorTabBg = lipgloss.AdaptiveColor{Light: "#dddddd", Dark: "#303030"}
	ColorTabFg = lipgloss.AdaptiveColor{Light: "#5c5c5c", Dark: "#a8a8a8"}
	ColorOnAcc = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1a1a1a"}
)

// Glyphs, reassigned by InitSymbols.
var (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolWarning  = "⚠"
	SymbolInfo     = "●"
	SymbolPending  = "○"
	SymbolArrowR   = "→"
	SymbolBullet   = "•"
	SymbolEllipsis = "…"
	SymbolCursor   = "›"
	SymbolLine     = "─"
)

// Text.
var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextAccent  = lipgloss.NewStyle().Foreground(ColorAccent)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	// Title heads each wizard step.
	Title = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).MarginBottom(1)

	// Selected marks the highlighted row of a choice list.
	Selected = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
)

// Frames.
var (
	BorderNormal = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	BorderActive = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorderActive)

	// LogBox frames command output from the gateway.
	LogBox = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
)

// Chrome: the tab strip and the key-hint bar.
var (
	TabNormal = lipgloss.NewStyle().
			Foreground(ColorTabFg).
			Background(ColorTabBg).
			Padding(0, 2)

	TabActive = TabNormal.
			Foreground(ColorOnAcc).
			Background(ColorAccent).
			Bold(true)

	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFaint).
			Background(ColorBarBg).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)

	InputPrompt      = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	InputPlaceholder = lipgloss.NewStyle().Foreground(ColorFaint)
)

// Step indicator and run timeline.
var (
	StepActive  = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StepDone    = lipgloss.NewStyle().Foreground(ColorSuccess)
	StepPending = lipgloss.NewStyle().Foreground(ColorMuted)

	TimelineFill  = lipgloss.NewStyle().Foreground(ColorInfo)
	TimelineTrack = lipgloss.NewStyle().Foreground(ColorFaint)
)

// Dashboard panels.
var (
	PanelCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelLabel = lipgloss.NewStyle().Foreground(ColorMuted)
	PanelValue = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
)

// MaxContentWidth caps the wizard body on wide terminals.
const MaxContentWidth = 100

// MinTabWidth is the narrowest terminal that still shows tab labels.
const MinTabWidth = 60

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
