package setup

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"openclaw-setup/internal/usecase/session"
)

// runCmd starts a provisioning run.
func runCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Run(ctx)
		return runDoneMsg{res: res, err: err}
	}
}

// refreshCmd reloads the dashboard panels and provider groups.
func refreshCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{snap: s.Refresh(ctx)}
	}
}

// approveCmd approves one pending device.
func approveCmd(ctx context.Context, s *session.Session, id string) tea.Cmd {
	return func() tea.Msg {
		return approveDoneMsg{id: id, err: s.Poller.Approve(ctx, id)}
	}
}

// pairCmd approves a pairing code for a channel.
func pairCmd(ctx context.Context, s *session.Session, channel, code string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.ApprovePairing(ctx, channel, code)
		msg := outputMsg{title: "Pairing " + channel, err: err}
		if res != nil {
			msg.output = res.Message()
		}
		if err == nil {
			msg.notice = fmt.Sprintf("Pairing code approved for %s", channel)
		}
		return msg
	}
}

// consoleCmd runs a console command. Output is shown even when the command
// failed, since that output usually explains why.
func consoleCmd(ctx context.Context, s *session.Session, command, arg string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Admin.Console(ctx, command, arg)
		title := command
		if arg != "" {
			title += " " + arg
		}
		msg := outputMsg{title: title, err: err}
		if res != nil {
			msg.output = res.Output
			if msg.output == "" {
				msg.output = res.Error
			}
		}
		return msg
	}
}

// configCmd loads the raw gateway config.
func configCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		cfg, err := s.Admin.LoadConfig(ctx)
		msg := outputMsg{title: "Gateway config", lang: "json", err: err}
		if cfg != nil {
			msg.output = cfg.Content
			if cfg.Path != "" {
				msg.title += " (" + cfg.Path + ")"
			}
		}
		return msg
	}
}

// tokenCmd reveals the gateway token and copies it to the clipboard.
func tokenCmd(ctx context.Context, s *session.Session, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		token, err := s.Admin.RevealToken(ctx)
		if err != nil {
			return tokenMsg{err: err}
		}
		copied := copyFn != nil && copyFn(token) == nil
		return tokenMsg{token: token, copied: copied}
	}
}

// resetCmd wipes the gateway configuration.
func resetCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Admin.Reset(ctx)
		msg := outputMsg{title: "Reset", err: err}
		if res != nil {
			msg.output = res.Message()
		}
		if err == nil {
			msg.notice = "Configuration reset. Run the wizard again to set up."
		}
		return msg
	}
}

// copyCmd copies text to the clipboard.
func copyCmd(copyFn func(string) error, what, text string) tea.Cmd {
	return func() tea.Msg {
		if copyFn == nil {
			return copiedMsg{what: what, err: fmt.Errorf("clipboard unavailable")}
		}
		return copiedMsg{what: what, err: copyFn(text)}
	}
}
