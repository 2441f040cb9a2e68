// ABOUTME: Output rendering for CLI commands
// ABOUTME: Draws result sets and schema memory as lipgloss tables on a terminal, JSON otherwise
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/harper/chat2db/internal/core"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/models"
)

const maxCellWidth = 40

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// resolveFormat turns "auto" into table on a terminal and json elsewhere
func resolveFormat(w io.Writer, format string) string {
	if format != formatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return formatTable
	}
	return formatJSON
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}

// renderTable draws one result set
func renderTable(columns []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(columns...).
		Rows(rows...)
	return t.String()
}

// renderOutcome prints an execution outcome: each table in batch order,
// or the status message when there are none
func renderOutcome(w io.Writer, format string, outcome *executor.Outcome) error {
	if outcome == nil {
		return nil
	}
	if format == formatJSON {
		return printJSON(w, outcome)
	}
	if len(outcome.Tables) == 0 {
		fmt.Fprintln(w, outcome.Message)
		return nil
	}
	for i, tbl := range outcome.Tables {
		if len(outcome.Tables) > 1 {
			fmt.Fprintf(w, "Result %d of %d\n", i+1, len(outcome.Tables))
		}
		rows := make([][]string, len(tbl.Rows))
		for r, row := range tbl.Rows {
			cells := make([]string, len(row))
			for c, v := range row {
				cells[c] = truncate(formatCell(v), maxCellWidth)
			}
			rows[r] = cells
		}
		fmt.Fprintln(w, renderTable(tbl.Columns, rows))
		fmt.Fprintf(w, "(%d row(s))\n", len(tbl.Rows))
	}
	return nil
}

// renderSync summarizes a schema memory update
func renderSync(w io.Writer, res *core.SyncResult) {
	if res == nil || !res.Changed() {
		return
	}
	var parts []string
	if res.Added > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) added", res.Added))
	}
	if res.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) removed", res.Removed))
	}
	fmt.Fprintln(w, noticeStyle.Render("Schema memory updated: "+strings.Join(parts, ", ")))
}

// renderTurn prints an assistant reply and whatever its SQL produced
func renderTurn(w io.Writer, format string, turn *core.Turn) error {
	if format == formatJSON {
		return printJSON(w, struct {
			*core.Turn
			ExecutionError string `json:"execution_error,omitempty"`
		}{turn, turn.ExecError()})
	}
	fmt.Fprintln(w, replyStyle.Render(turn.Reply))
	if turn.ExecErr != nil {
		fmt.Fprintln(w, errorStyle.Render("Execution failed: "+turn.ExecError()))
		return nil
	}
	if err := renderOutcome(w, format, turn.Outcome); err != nil {
		return err
	}
	renderSync(w, turn.Sync)
	return nil
}

// renderSchema prints schema memory entries, one row per table
func renderSchema(w io.Writer, format string, entries []models.TableSchema) error {
	if format == formatJSON {
		if entries == nil {
			entries = []models.TableSchema{}
		}
		return printJSON(w, entries)
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		cols := make([]string, len(e.Columns))
		for j, c := range e.Columns {
			cols[j] = describeColumn(c)
		}
		rows[i] = []string{e.Database, e.Table, strings.Join(cols, "\n")}
	}
	fmt.Fprintln(w, renderTable([]string{"DATABASE", "TABLE", "COLUMNS"}, rows))
	return nil
}

// renderList prints a single-column listing
func renderList(w io.Writer, format, header string, items []string) error {
	if format == formatJSON {
		if items == nil {
			items = []string{}
		}
		return printJSON(w, items)
	}
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item}
	}
	fmt.Fprintln(w, renderTable([]string{header}, rows))
	return nil
}

func describeColumn(c models.ColumnFact) string {
	s := fmt.Sprintf("%s %s %s", c.Name, c.DataType, c.Nullability)
	if c.IsPrimaryKey {
		s += " PK"
	}
	if c.ForeignKey != "" {
		s += " FK " + c.ForeignKey
	}
	return s
}

// formatCell renders one driver value for display
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
