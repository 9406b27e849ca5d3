package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/dashboard"
)

// statusReport is the structured form of the status command.
type statusReport struct {
	Gateway    string                  `json:"gateway"              yaml:"gateway"`
	Configured bool                    `json:"configured"           yaml:"configured"`
	Version    string                  `json:"version,omitempty"    yaml:"version,omitempty"`
	Channels   []string                `json:"channels"             yaml:"channels"`
	Tailscale  *domain.TailscaleStatus `json:"tailscale,omitempty"  yaml:"tailscale,omitempty"`
	Providers  []domain.ProviderGroup  `json:"providers,omitempty"  yaml:"providers,omitempty"`
}

// Status returns the command that shows the gateway dashboard panels.
//
// Optional flags:
//
//	--output, -o: table, json or yaml
//	--providers: include the provider groups offered by the gateway
func Status(opts *globalOptions) *cobra.Command {
	var format string
	var providers bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway status, channels and Tailscale state",
		Long: `Show the gateway status, version, enabled channels and Tailscale state.

Each panel is fetched independently; a panel the gateway did not answer
shows its "not configured" default.

Examples:
  openclaw-setup status
  openclaw-setup status --providers -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := newOutputWriter(cmd, format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.plainSession()
			defer sess.Close()
			snap := sess.Refresh(cmd.Context())

			report := newStatusReport(a.cfg.Gateway.BaseURL, snap, providers)
			if err := w.Write(report, statusTable(snap, providers)); err != nil {
				return err
			}
			if format == formatTable && unreachable(snap) {
				fmt.Fprintln(cmd.ErrOrStderr(), theme.TextWarning.Render(theme.SymbolWarning)+
					" The gateway did not answer; rerun with --log-level debug for details")
			}
			return nil
		},
	}

	addOutputFlag(cmd, &format)
	cmd.Flags().BoolVar(&providers, "providers", false, "Include the provider groups offered by the gateway")

	return cmd
}

func newStatusReport(gateway string, snap dashboard.Snapshot, providers bool) statusReport {
	r := statusReport{
		Gateway:    gateway,
		Configured: snap.Configured,
		Version:    snap.Version,
		Channels:   snap.Channels,
		Tailscale:  snap.Tailscale,
	}
	if r.Channels == nil {
		r.Channels = []string{}
	}
	if providers {
		r.Providers = snap.Groups
	}
	return r
}

func statusTable(snap dashboard.Snapshot, providers bool) tableData {
	t := tableData{
		Headers: []string{"Panel", "Value"},
		Rows: [][]string{
			{"Gateway", snap.GatewayLabel()},
			{"Version", snap.VersionLabel()},
			{"Channels", snap.ChannelsLabel()},
			{"Tailscale", snap.TailscaleLabel()},
		},
	}
	if providers {
		for _, g := range snap.Groups {
			labels := make([]string, 0, len(g.Options))
			for _, o := range g.Options {
				labels = append(labels, o.Value)
			}
			t.Rows = append(t.Rows, []string{"Provider " + g.Label, strings.Join(labels, ", ")})
		}
	}
	return t
}

// unreachable reports whether every panel came back empty, which in
// practice means the status call itself failed.
func unreachable(snap dashboard.Snapshot) bool {
	return !snap.Configured && snap.Version == "" && len(snap.Groups) == 0
}
