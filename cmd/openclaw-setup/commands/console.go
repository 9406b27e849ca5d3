package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/domain"
)

// Console returns the command that runs an allow-listed gateway command.
func Console(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "console <command> [arg]",
		Short: "Run a gateway console command",
		Long: `Run one of the gateway's allow-listed console commands and print
its output. The gateway decides which commands are allowed.

Examples:
  openclaw-setup console ` + domain.ConsoleDoctor + `
  openclaw-setup console ` + domain.ConsoleGatewayRestart,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 2 {
				arg = args[1]
			}
			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			res, err := sess.Admin.Console(cmd.Context(), args[0], arg)
			printAction(cmd, res)
			return err
		},
	}
}

// printAction writes the output of a console-style result. It is printed
// even when the command failed since it usually explains why; the error
// text itself is reported through the returned error.
func printAction(cmd *cobra.Command, res *domain.ActionResult) {
	if res == nil {
		return
	}
	if out := strings.TrimRight(res.Output, "\n"); out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
}
