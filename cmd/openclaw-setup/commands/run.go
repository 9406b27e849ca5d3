package commands

import (
	"github.com/spf13/cobra"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/provision"
	"openclaw-setup/internal/usecase/session"
	"openclaw-setup/internal/usecase/validate"
	"openclaw-setup/internal/usecase/wizard"
)

// Run returns the command that runs setup without the interactive wizard.
//
// Optional flags:
//
//	--answers, -a: YAML file with wizard answers (overrides config defaults)
//	--watch-devices: keep polling for pending devices after a successful run
func Run(opts *globalOptions) *cobra.Command {
	var answersPath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run setup non-interactively",
		Long: `Run setup on the gateway without the interactive wizard.

Answers come from the defaults section of the config file, optionally
overridden by an answers file with the same keys as the wizard form:

  flow: quickstart
  provider: openai
  auth_choice: openai-api-key
  auth_secret: sk-...
  telegram:
    enabled: true
    token: "123456:ABC..."

Examples:
  # Run with the configured defaults
  openclaw-setup run

  # Run with an answers file and watch for devices afterwards
  openclaw-setup run -a answers.yaml --watch-devices`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, opts, answersPath, watch)
		},
	}

	cmd.Flags().StringVarP(&answersPath, "answers", "a", "", "YAML file with wizard answers")
	cmd.Flags().BoolVar(&watch, "watch-devices", false, "Keep polling for pending devices after setup")

	return cmd
}

func runSetup(cmd *cobra.Command, opts *globalOptions, answersPath string, watch bool) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts, modeCLI)
	if err != nil {
		return err
	}
	defer a.Close()

	form, err := a.form(answersPath)
	if err != nil {
		return err
	}

	pr := newPrinter(cmd.OutOrStdout())
	defer pr.close()
	if !watch {
		pr.detach()
	}
	sess := a.session(form, session.Views{Presenter: pr, Progress: pr, Devices: pr})
	defer sess.Close()

	snap := sess.Refresh(ctx)
	if len(snap.Groups) == 0 && form.AuthChoice != "" {
		pr.Notify(provision.NoticeWarning, "Gateway returned no providers; sending the auth choice as given")
	}
	if snap.Configured {
		pr.Notify(provision.NoticeInfo, "Gateway is already configured; running setup again")
	}
	if err := applySelection(sess, form); err != nil {
		return err
	}
	for _, w := range channelWarnings(sess.State.Form()) {
		pr.Notify(provision.NoticeWarning, w)
	}

	res, err := sess.Run(ctx)
	if err != nil {
		if domain.IsRetryableError(err) {
			pr.Notify(provision.NoticeInfo, "The run can be retried as is: openclaw-setup run")
		}
		return err
	}
	a.logger.Info("setup run finished", "run_id", res.RunID, "warnings", len(res.Warnings))

	if watch && res.Poller != nil {
		pr.Notify(provision.NoticeInfo, "Watching for pending devices, press Ctrl+C to stop")
		select {
		case <-ctx.Done():
		case <-res.Poller.Done():
		}
	}
	return nil
}

// channelWarnings returns the advisory token checks for enabled channels.
// They never block a run; the gateway has the final say.
func channelWarnings(f wizard.Form) []string {
	var out []string
	check := func(name string, enabled bool, r validate.Result) {
		if enabled && r.Severity != validate.SeverityValid && r.Message != "" {
			out = append(out, name+": "+r.Message)
		}
	}
	check("Telegram", f.Telegram.Enabled, validate.TelegramToken(f.Telegram.Token))
	check("Discord", f.Discord.Enabled, validate.DiscordToken(f.Discord.Token))
	check("Tailscale", f.Tailscale.Enabled, validate.TailscaleKey(f.Tailscale.AuthKey))
	return out
}
