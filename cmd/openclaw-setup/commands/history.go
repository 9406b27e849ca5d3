package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

// History returns the command that lists past setup runs from the local
// state database.
func History(opts *globalOptions) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past setup runs",
		Long: `List setup runs recorded in the local state database, newest first.

Examples:
  openclaw-setup history
  openclaw-setup history --limit 5 -o json`,
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

			st, err := a.requireStore()
			if err != nil {
				return err
			}
			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if format == formatTable && len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), theme.TextMuted.Render("No setup runs recorded yet"))
				return nil
			}
			if runs == nil {
				runs = []domain.RunRecord{}
			}
			return w.Write(runs, historyTable(runs))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of runs to show (default 20)")
	addOutputFlag(cmd, &format)

	return cmd
}

func historyTable(runs []domain.RunRecord) tableData {
	t := tableData{Headers: []string{"Run", "Started", "Duration", "Outcome", "Auth", "Error"}}
	for _, r := range runs {
		auth := r.AuthChoice
		if r.Provider != "" {
			auth = r.Provider + "/" + auth
		}
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second).String(),
			outcomeLabel(r.Outcome),
			auth,
			r.Error,
		})
	}
	return t
}

func outcomeLabel(o domain.RunOutcome) string {
	switch o {
	case domain.OutcomeSuccess:
		return theme.SymbolSuccess + " " + string(o)
	case domain.OutcomeWarning:
		return theme.SymbolWarning + " " + string(o)
	case domain.OutcomeFailed:
		return theme.SymbolError + " " + string(o)
	}
	return string(o)
}
