package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/session"
	"openclaw-setup/internal/usecase/wizard"
)

type devicesReport struct {
	Pending []string `json:"pending" yaml:"pending"`
}

// Devices returns the command that lists pending device pairing requests.
//
// Optional flags:
//
//	--watch, -w: keep polling until interrupted
//	--output, -o: table, json or yaml (ignored with --watch)
func Devices(opts *globalOptions) *cobra.Command {
	var watch bool
	var format string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List pending device pairing requests",
		Long: `List devices waiting for approval on the gateway.

Examples:
  # List once
  openclaw-setup devices

  # Keep polling and print changes
  openclaw-setup devices --watch

  # Approve a request
  openclaw-setup devices approve 3f2c9a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			if watch {
				pr := newPrinter(cmd.OutOrStdout())
				defer pr.close()
				sess := a.session(wizard.DefaultForm(), session.Views{Devices: pr})
				defer sess.Close()
				h := sess.StartPolling(ctx)
				select {
				case <-ctx.Done():
				case <-h.Done():
				}
				return nil
			}

			w, err := newOutputWriter(cmd, format)
			if err != nil {
				return err
			}
			sess := a.plainSession()
			defer sess.Close()
			if err := sess.Poller.Poll(ctx); err != nil {
				return err
			}
			ids := sess.Poller.Pending()
			if format == formatTable && len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), theme.TextMuted.Render(pairing.EmptyMessage))
				return nil
			}
			return w.Write(devicesReport{Pending: ids}, idTable(ids))
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling and print changes")
	addOutputFlag(cmd, &format)
	cmd.AddCommand(devicesApprove(opts))

	return cmd
}

func idTable(ids []string) tableData {
	t := tableData{Headers: []string{"Request ID"}}
	for _, id := range ids {
		t.Rows = append(t.Rows, []string{id})
	}
	return t
}

func devicesApprove(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "approve [request-id...]",
		Short: "Approve pending device requests",
		Long: `Approve one or more pending device requests by ID, or every
pending request with --all.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return domain.NewDomainError("devices.approve", domain.ErrValidation,
					"pass request IDs or --all, not both")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, modeCLI)
			if err != nil {
				return err
			}
			defer a.Close()

			pr := newPrinter(cmd.OutOrStdout())
			defer pr.close()
			sess := a.session(wizard.DefaultForm(), session.Views{Devices: pr})
			defer sess.Close()

			ids := args
			if all {
				if err := sess.Poller.Poll(ctx); err != nil {
					return err
				}
				ids = sess.Poller.Pending()
			}

			var errs []error
			for _, id := range ids {
				if err := sess.Poller.Approve(ctx, id); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Approve every pending request")
	return cmd
}
