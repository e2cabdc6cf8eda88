package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/rodaine/table"
)

// RenderTable renders rows (one value per column, in column order) for rich mode
func RenderTable(w io.Writer, columns []Column, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	headers := make([]any, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Underline(true)
	tbl := table.New(headers...).
		WithWriter(w).
		WithHeaderFormatter(func(format string, vals ...any) string {
			return headerStyle.Render(fmt.Sprintf(format, vals...))
		})

	for _, row := range rows {
		cells := make([]any, len(columns))
		for i, col := range columns {
			var value string
			if i < len(row) {
				value = row[i]
			}
			if col.Width > 0 {
				value = TruncateString(value, col.Width)
			}
			cells[i] = value
		}
		tbl.AddRow(cells...)
	}

	tbl.Print()
}

// TruncateString shortens s to maxLen runes, ending in "..." when there is room
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
