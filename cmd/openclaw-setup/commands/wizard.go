package commands

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/setup"
	"openclaw-setup/internal/usecase/session"
)

// Wizard returns the command that starts the interactive setup wizard.
func Wizard(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Start the interactive setup wizard",
		Long: `Start the interactive setup wizard.

The wizard walks through provider, channel and Tailscale settings, runs
the setup on the gateway and then shows the dashboard with pending
devices. Answers from the config file's defaults section are prefilled.

Logs are written to openclaw-setup.log next to the state database while
the wizard owns the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWizard(cmd, opts)
		},
	}
}

func runWizard(cmd *cobra.Command, opts *globalOptions) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts, modeTUI)
	if err != nil {
		return err
	}
	defer a.Close()

	form, err := a.form("")
	if err != nil {
		return err
	}

	bridge := setup.NewBridge()
	sess := a.session(form, session.Views{
		Navigator: bridge,
		Selector:  bridge,
		Presenter: bridge,
		Progress:  bridge,
		Devices:   bridge,
	})
	defer sess.Close()

	var copyFn func(string) error
	if !clipboard.Unsupported {
		copyFn = clipboard.WriteAll
	}

	m := setup.New(ctx, sess, bridge, setup.Options{
		Gateway: a.cfg.Gateway.BaseURL,
		Copy:    copyFn,
	})
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	bridge.SetSender(p.Send)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return nil
}
