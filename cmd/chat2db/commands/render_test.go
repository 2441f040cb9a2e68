// ABOUTME: Tests for CLI output rendering
// ABOUTME: Checks format resolution, outcome tables, schema listings and cell formatting

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harper/chat2db/internal/core"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/models"
)

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer

	if got := resolveFormat(&buf, formatAuto); got != formatJSON {
		t.Errorf("auto on a buffer = %q, want json", got)
	}
	if got := resolveFormat(&buf, formatTable); got != formatTable {
		t.Errorf("explicit table = %q", got)
	}
}

func TestRenderOutcome_Message(t *testing.T) {
	var buf bytes.Buffer
	err := renderOutcome(&buf, formatTable, &executor.Outcome{Message: executor.SuccessMessage, Batches: 2})
	if err != nil {
		t.Fatalf("renderOutcome() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != executor.SuccessMessage {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRenderOutcome_Tables(t *testing.T) {
	outcome := &executor.Outcome{
		Tables: []executor.Table{
			{Columns: []string{"EmpID", "Name"}, Rows: [][]any{{int64(1), "Ada"}, {int64(2), nil}}},
			{Columns: []string{"Total"}, Rows: [][]any{{int64(2)}}},
		},
		Batches: 2,
	}

	var buf bytes.Buffer
	if err := renderOutcome(&buf, formatTable, outcome); err != nil {
		t.Fatalf("renderOutcome() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Result 1 of 2", "Result 2 of 2", "EmpID", "Ada", "NULL", "Total", "(2 row(s))"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderOutcome_JSON(t *testing.T) {
	outcome := &executor.Outcome{
		Tables:  []executor.Table{{Columns: []string{"n"}, Rows: [][]any{{int64(7)}}}},
		Batches: 1,
	}

	var buf bytes.Buffer
	if err := renderOutcome(&buf, formatJSON, outcome); err != nil {
		t.Fatalf("renderOutcome() error = %v", err)
	}

	var decoded struct {
		Tables []struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		} `json:"tables"`
		Batches int `json:"batches"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Batches != 1 || len(decoded.Tables) != 1 || decoded.Tables[0].Rows[0][0] != float64(7) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRenderTurn(t *testing.T) {
	t.Run("execution failure", func(t *testing.T) {
		var buf bytes.Buffer
		turn := &core.Turn{Reply: "SELECT * FROM Missing", IsSQL: true, ExecErr: errors.New("Invalid object name 'Missing'")}
		if err := renderTurn(&buf, formatTable, turn); err != nil {
			t.Fatalf("renderTurn() error = %v", err)
		}
		if !strings.Contains(buf.String(), "Execution failed") || !strings.Contains(buf.String(), "Missing") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("json carries the execution error", func(t *testing.T) {
		var buf bytes.Buffer
		turn := &core.Turn{Reply: "SELECT 1", IsSQL: true, ExecErr: errors.New("boom")}
		if err := renderTurn(&buf, formatJSON, turn); err != nil {
			t.Fatalf("renderTurn() error = %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if decoded["reply"] != "SELECT 1" || decoded["execution_error"] != "boom" {
			t.Errorf("decoded = %v", decoded)
		}
	})

	t.Run("schema change notice", func(t *testing.T) {
		var buf bytes.Buffer
		turn := &core.Turn{
			Reply:   "DROP TABLE HR.dbo.Employees",
			IsSQL:   true,
			Outcome: &executor.Outcome{Message: executor.SuccessMessage, Batches: 1},
			Sync:    &core.SyncResult{Removed: 1},
		}
		if err := renderTurn(&buf, formatTable, turn); err != nil {
			t.Fatalf("renderTurn() error = %v", err)
		}
		if !strings.Contains(buf.String(), "1 table(s) removed") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestRenderSchema(t *testing.T) {
	entries := []models.TableSchema{{
		Database: "HR",
		Table:    "Employees",
		Columns: []models.ColumnFact{
			{Name: "EmpID", DataType: "int", Nullability: models.NotNullable, IsPrimaryKey: true},
			{Name: "DeptID", DataType: "int", Nullability: models.Nullable, ForeignKey: "Departments(DeptID)"},
		},
	}}

	var buf bytes.Buffer
	if err := renderSchema(&buf, formatTable, entries); err != nil {
		t.Fatalf("renderSchema() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"DATABASE", "Employees", "EmpID int NOT NULL PK", "FK Departments(DeptID)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := renderSchema(&buf, formatJSON, nil); err != nil {
		t.Fatalf("renderSchema() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON listing = %q, want []", buf.String())
	}
}

func TestFormatCell(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"bytes", []byte("abc"), "abc"},
		{"time", ts, "2026-03-01T09:30:00Z"},
		{"int", int64(42), "42"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCell(tt.in); got != tt.want {
				t.Errorf("formatCell(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
