package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

var pairingChannels = []string{"telegram", "discord", "slack"}

// Pair returns the command that approves a channel pairing code.
func Pair(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <channel> <code>",
		Short: "Approve a pairing code sent by a channel bot",
		Long: `Approve the pairing code a chat bot sent you after you messaged it.

Channel is one of: telegram, discord, slack.

Example:
  openclaw-setup pair telegram ABC123`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: pairingChannels,
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := strings.ToLower(strings.TrimSpace(args[0]))
			if !slices.Contains(pairingChannels, channel) {
				return domain.NewDomainError("pair", domain.ErrValidation,
					fmt.Sprintf("unknown channel %q (want %s)", args[0], strings.Join(pairingChannels, ", ")))
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			res, err := sess.ApprovePairing(ctx, channel, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.TextSuccess.Render(theme.SymbolSuccess)+" Pairing code approved for "+channel)
			if msg := strings.TrimSpace(res.Message()); msg != "" {
				fmt.Fprintln(out, theme.LogBox.Render(msg))
			}
			return nil
		},
	}
}
