package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RecordsTable renders query results as a minimal table: one header row,
// one row per record.
type RecordsTable struct {
	display *DisplayContext
	columns []string
	records []map[string]any
}

// NewRecordsTable creates a table over records. Columns are shown in the
// given order; keys present on records but not listed, such as expanded
// relationships, are appended in sorted order.
func NewRecordsTable(display *DisplayContext, columns []string, records []map[string]any) *RecordsTable {
	return &RecordsTable{
		display: display,
		columns: RecordColumns(columns, records),
		records: records,
	}
}

// RecordColumns returns columns followed by every other key found on records.
func RecordColumns(columns []string, records []map[string]any) []string {
	out := append([]string(nil), columns...)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}
	var extra []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Columns returns the rendered column order.
func (t *RecordsTable) Columns() []string {
	return t.columns
}

// Render generates the table output as a string.
func (t *RecordsTable) Render() string {
	if len(t.records) == 0 {
		return ""
	}
	width := t.display.CellWidth(len(t.columns), 8)

	rows := make([][]string, len(t.records))
	for i, rec := range t.records {
		row := make([]string, len(t.columns))
		for j, col := range t.columns {
			row[j] = TruncateWithEllipsis(FormatValue(rec[col]), width)
		}
		rows[i] = row
	}

	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = strings.ToUpper(c)
	}

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if row == table.HeaderRow {
				style = Bold
			}
			if col < len(t.columns)-1 {
				style = style.PaddingRight(2)
			}
			return style
		}).
		Rows(rows...)

	return tbl.Render()
}

// FormatValue renders one record value for a table cell. Expanded to-one
// relationships show their primary key, to-many relationships their size.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		if id, ok := val["id"]; ok {
			return fmt.Sprintf("#%v", id)
		}
		return fmt.Sprintf("{%d fields}", len(val))
	case []map[string]any:
		return fmt.Sprintf("[%d]", len(val))
	case []any:
		return fmt.Sprintf("[%d]", len(val))
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// TruncateWithEllipsis truncates a string to maxLen, adding ellipsis if needed.
// It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}

	truncated := s[:maxLen-3]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
