package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// tableData is rendered as a bordered table in table mode.
type tableData struct {
	Headers []string
	Rows    [][]string
}

// outputWriter renders command results in the selected format.
type outputWriter struct {
	format string
	out    io.Writer
}

func addOutputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", formatTable, "Output format: table, json, yaml")
}

func newOutputWriter(cmd *cobra.Command, format string) (*outputWriter, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return nil, domain.NewDomainError("output", domain.ErrValidation,
			fmt.Sprintf("unknown output format %q (want table, json or yaml)", format))
	}
	return &outputWriter{format: format, out: cmd.OutOrStdout()}, nil
}

// Write renders data. In table mode, tbl is rendered; the structured
// formats marshal data itself.
func (o *outputWriter) Write(data any, tbl tableData) error {
	switch o.format {
	case formatJSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, err = fmt.Fprintln(o.out, string(b))
		return err
	case formatYAML:
		b, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = o.out.Write(b)
		return err
	}
	return o.renderTable(tbl)
}

func (o *outputWriter) renderTable(data tableData) error {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(data.Headers...).
		Rows(data.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	_, err := fmt.Fprintln(o.out, t.Render())
	return err
}
