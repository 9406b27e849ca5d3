package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

// Reset returns the command that wipes the gateway configuration.
func Reset(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the gateway configuration",
		Long: `Delete the gateway configuration so setup can run again.

Asks for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := confirm(cmd, "Reset the gateway configuration? [y/N] ")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			res, err := sess.Admin.Reset(cmd.Context())
			printAction(cmd, res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.TextSuccess.Render(theme.SymbolSuccess)+" Gateway configuration reset")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// confirm asks a yes/no question on the command's input. EOF counts as no.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, domain.WrapOp("confirm", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
