// Package commands defines the openclaw-setup command tree.
//
// Each file holds one cobra command: flag binding and argument checks live
// in the command constructor, the work happens against an app built from the
// loaded configuration.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/adapter/tui/uxerror"
	"openclaw-setup/internal/domain"
)

// DefaultConfigPath is used when neither --config nor OPENCLAW_SETUP_CONFIG
// is set.
const DefaultConfigPath = "openclaw-setup.yaml"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	baseURL    string
	logLevel   string
}

func defaultConfigPath() string {
	if p := os.Getenv("OPENCLAW_SETUP_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Root returns the root command. Without a subcommand it starts the
// interactive wizard.
func Root() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "openclaw-setup",
		Short: "Set up and manage an OpenClaw gateway",
		Long: `Set up and manage an OpenClaw gateway through its setup API.

Run without a command to start the interactive setup wizard.

Configuration is read from openclaw-setup.yaml (or --config) and
OPENCLAW_SETUP_* environment variables override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWizard(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "Path to the configuration file")
	pf.StringVar(&opts.baseURL, "base-url", "", "Gateway base URL (overrides gateway.base_url)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Setup
	cmd.AddCommand(Wizard(opts))
	cmd.AddCommand(Run(opts))

	// Gateway operations
	cmd.AddCommand(Status(opts))
	cmd.AddCommand(Devices(opts))
	cmd.AddCommand(Pair(opts))
	cmd.AddCommand(Console(opts))
	cmd.AddCommand(Config(opts))
	cmd.AddCommand(Token(opts))
	cmd.AddCommand(Import(opts))
	cmd.AddCommand(Reset(opts))

	// Local
	cmd.AddCommand(History(opts))
	cmd.AddCommand(Doctor(opts))
	cmd.AddCommand(Version())

	return cmd
}

// Execute runs the command tree with args and returns the process exit code.
// Errors are printed in their user-facing form.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := Root()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(errOut, err)
		return 1
	}
	return 0
}

// printError writes err with recovery hints.
func printError(w io.Writer, err error) {
	fe := uxerror.Humanize(err)
	fmt.Fprintln(w, theme.TextError.Render(theme.SymbolError+" ")+fe.Render())
	if fe.Message != "" && fe.Raw != "" && fe.Raw != fe.Message {
		fmt.Fprintln(w, theme.TextMuted.Render("  ("+fe.Raw+")"))
	}
	if code := domain.ErrorCodeOf(err); code != domain.CodeUnknown {
		fmt.Fprintln(w, theme.Dim.Render("  code: "+string(code)))
	}
}
