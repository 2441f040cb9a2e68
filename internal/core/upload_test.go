// ABOUTME: Tests for the admin upload state machine
// ABOUTME: Covers the full upload-to-schema-memory path and rejected transitions
package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/storage"
)

const employeesUpload = "CREATE TABLE Employees (EmpID int PRIMARY KEY, Name varchar(50) NOT NULL);"

const employeesScript = `USE master;
GO
IF DB_ID(N'HR') IS NULL
    EXEC('CREATE DATABASE HR');
GO
USE HR;
GO
IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = N'Employees')
    EXEC('CREATE TABLE Employees (EmpID int PRIMARY KEY, Name varchar(50) NOT NULL)');
GO`

func TestUploadFlow_EndToEnd(t *testing.T) {
	h := newHarness(t,
		"This is a schema definition. Is EmpID the only key?",
		"\n"+employeesScript+"\n\n",
	)
	ctx := context.Background()

	flow, err := h.mediator.NewUploadFlow(h.admin, "HR")
	if err != nil {
		t.Fatalf("NewUploadFlow() error = %v", err)
	}

	question, err := flow.Ingest(ctx, "employees.sql", employeesUpload)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !strings.Contains(question, "EmpID") || flow.State() != StateClarifying {
		t.Fatalf("question = %q, state = %s", question, flow.State())
	}
	if !strings.Contains(h.completer.lastInput(), "Here is some uploaded content:\n"+employeesUpload) {
		t.Error("clarification prompt should embed the upload")
	}

	if err := flow.Clarify("Yes, EmpID is the key. Database is HR."); err != nil {
		t.Fatalf("Clarify() error = %v", err)
	}
	if flow.State() != StateAwaitingConfirmation {
		t.Fatalf("state = %s", flow.State())
	}

	final, err := flow.Confirm(ctx)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if final != employeesScript {
		t.Errorf("final SQL should be trimmed, got %q", final)
	}
	prompt := h.completer.lastInput()
	if !strings.Contains(prompt, "IF DB_ID(N'HR') IS NULL") || !strings.Contains(prompt, "Yes, EmpID is the key.") {
		t.Errorf("generation prompt missing database or clarification:\n%s", prompt)
	}
	if len(h.schema.Load()) != 0 {
		t.Fatal("nothing may be persisted before execution")
	}

	res, err := flow.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if flow.State() != StateExecuted || !res.Suggestion.Executed || res.Sync.Added != 1 {
		t.Errorf("state = %s, result = %+v", flow.State(), res)
	}
	if flow.Suggestion().FinalSQL != "" {
		t.Error("the suggestion should be discarded after execution")
	}

	raw, err := h.backend.ReadDocument(storage.SchemaMemoryDocument)
	if err != nil {
		t.Fatal(err)
	}
	var stored []struct {
		Database string            `json:"database"`
		Table    string            `json:"table"`
		Columns  []json.RawMessage `json:"columns"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("schema memory is not JSON: %v", err)
	}
	if len(stored) != 1 || stored[0].Database != "HR" || stored[0].Table != "Employees" {
		t.Fatalf("stored = %+v", stored)
	}
	wantCols := []string{`["EmpID","int","NULL",true]`, `["Name","varchar(50)","NOT NULL",false]`}
	for i, want := range wantCols {
		if got := compactJSON(t, stored[0].Columns[i]); got != want {
			t.Errorf("column %d = %s, want %s", i, got, want)
		}
	}

	global := h.conversations.LoadGlobal()
	if len(global) != 1 || global[0].Role != "admin" {
		t.Fatalf("global log = %+v", global)
	}
	for _, part := range []string{"[#clarification]", "Database: HR", "File: employees.sql", "Generated SQL:\n" + employeesScript} {
		if !strings.Contains(global[0].Content, part) {
			t.Errorf("annotation missing %q:\n%s", part, global[0].Content)
		}
	}
}

func TestUploadFlow_DropScript(t *testing.T) {
	h := newHarness(t, "Confirm dropping Employees?", "USE HR;\nGO\nDROP TABLE Employees;\nGO")
	if _, err := h.schema.Save(hrTables()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	flow, _ := h.mediator.NewUploadFlow(h.admin, "")

	if _, err := flow.Ingest(ctx, "drop.sql", "DROP TABLE Employees;"); err != nil {
		t.Fatal(err)
	}
	if err := flow.Clarify("yes"); err != nil {
		t.Fatal(err)
	}
	if _, err := flow.Confirm(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.completer.lastInput(), DefaultUploadDatabase) {
		t.Error("generation prompt should use the placeholder database when none is selected")
	}
	res, err := flow.Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sync.Removed != 1 || res.Database != "HR" {
		t.Errorf("result = %+v", res)
	}
	if len(h.conversations.LoadGlobal()) != 0 {
		t.Error("drops are not annotated")
	}
}

func TestUploadFlow_RejectsOutOfOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	flow, _ := h.mediator.NewUploadFlow(h.admin, "HR")

	if err := flow.Clarify("x"); !errs.IsInvalidState(err) {
		t.Errorf("Clarify() error = %v, want invalid state", err)
	}
	if _, err := flow.Confirm(ctx); !errs.IsInvalidState(err) {
		t.Errorf("Confirm() error = %v, want invalid state", err)
	}
	if _, err := flow.Execute(ctx); !errs.IsInvalidState(err) {
		t.Errorf("Execute() error = %v, want invalid state", err)
	}
	if flow.State() != StateAwaitingUpload {
		t.Errorf("state = %s", flow.State())
	}
}

func TestUploadFlow_FailuresKeepState(t *testing.T) {
	h := newHarness(t, "questions?", employeesScript)
	ctx := context.Background()
	flow, _ := h.mediator.NewUploadFlow(h.admin, "HR")

	if _, err := flow.Ingest(ctx, "e.sql", "  "); !errs.IsInvalidInput(err) {
		t.Errorf("empty upload error = %v", err)
	}
	if _, err := flow.Ingest(ctx, "e.sql", employeesUpload); err != nil {
		t.Fatal(err)
	}
	if err := flow.Clarify(" "); !errs.IsInvalidInput(err) || flow.State() != StateClarifying {
		t.Errorf("empty clarification: err = %v, state = %s", err, flow.State())
	}
	if err := flow.Clarify("looks right"); err != nil {
		t.Fatal(err)
	}
	if _, err := flow.Confirm(ctx); err != nil {
		t.Fatal(err)
	}

	h.engine.failOn = "CREATE TABLE"
	if _, err := flow.Execute(ctx); !errs.IsQueryFailed(err) {
		t.Fatalf("Execute() error = %v, want query failed", err)
	}
	if flow.State() != StateConfirmedUnexecuted || flow.Suggestion().FinalSQL == "" {
		t.Errorf("state after failure = %s", flow.State())
	}
	if len(h.schema.Load()) != 0 || len(h.conversations.LoadGlobal()) != 0 {
		t.Error("a failed execution must not persist anything")
	}

	h.engine.failOn = ""
	if _, err := flow.Execute(ctx); err != nil {
		t.Fatalf("retry Execute() error = %v", err)
	}
	if len(h.schema.Load()) != 1 {
		t.Error("retry should persist the table")
	}
}

func TestUploadFlow_CompletionFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.completer.err = errs.New(errs.ErrKindUpstream, "LLM Error 500: boom")
	flow, _ := h.mediator.NewUploadFlow(h.admin, "HR")

	if _, err := flow.Ingest(context.Background(), "e.sql", employeesUpload); !errs.IsUpstream(err) {
		t.Fatalf("error = %v, want upstream", err)
	}
	if flow.State() != StateAwaitingUpload {
		t.Errorf("state = %s", flow.State())
	}
}

func TestUploadFlow_RequiresAdmin(t *testing.T) {
	h := newHarness(t)
	if _, err := h.mediator.NewUploadFlow(h.user, ""); !errs.IsInvalidInput(err) {
		t.Errorf("error = %v, want invalid input", err)
	}
}

func TestUploadState_String(t *testing.T) {
	if StateConfirmedUnexecuted.String() != "CONFIRMED_UNEXECUTED" {
		t.Errorf("String() = %s", StateConfirmedUnexecuted)
	}
}

func compactJSON(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}
