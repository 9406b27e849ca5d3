package commands

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
)

// Token returns the command that reveals the gateway access token.
func Token(opts *globalOptions) *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the gateway access token",
		Long: `Fetch the gateway access token and print it. The token is also
stored in the state database so later sessions authenticate with it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			token, err := sess.Admin.RevealToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)

			if copyToClipboard {
				if clipboard.Unsupported {
					fmt.Fprintln(cmd.ErrOrStderr(), theme.TextWarning.Render(theme.SymbolWarning)+" No clipboard available")
					return nil
				}
				if err := clipboard.WriteAll(token); err != nil {
					return fmt.Errorf("copy token: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), theme.TextSuccess.Render(theme.SymbolSuccess)+" Copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Also copy the token to the clipboard")
	return cmd
}
