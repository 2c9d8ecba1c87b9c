package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"go-query-cache/internal/model"
	"go-query-cache/internal/pipeline"
)

const tabPadding = 2

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// isWriterTerminal reports whether w is a terminal.
func isWriterTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderTable prints res as a bordered table on a terminal and as aligned
// plain text otherwise.
func renderTable(w io.Writer, res *model.Result) error {
	if isWriterTerminal(w) {
		_, err := fmt.Fprintln(w, styledTable(res))
		return err
	}
	return plainTable(w, res)
}

func styledTable(res *model.Result) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(res.ColumnNames()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col < len(res.Columns) && isNumeric(res.Columns[col].Type) {
				return numberStyle
			}
			return cellStyle
		})
	for _, row := range res.Rows {
		t.Row(cells(row)...)
	}
	return t.Render()
}

func plainTable(w io.Writer, res *model.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.ColumnNames(), "\t"))
	for _, row := range res.Rows {
		fmt.Fprintln(tw, strings.Join(cells(row), "\t"))
	}
	return tw.Flush()
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			out[i] = pipeline.NullLabel
			continue
		}
		out[i] = model.FormatValue(v)
	}
	return out
}

func isNumeric(t model.ColumnType) bool {
	return t == model.TypeInteger || t == model.TypeFloat
}
