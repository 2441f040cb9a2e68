// ABOUTME: Shared fakes for the core tests
// ABOUTME: Scripted completion service, recording executor, canned catalog and in-memory stores
package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/storage"
)

// scriptedCompleter returns replies in order and records every request
type scriptedCompleter struct {
	replies []string
	err     error
	calls   [][]models.Message
}

func (c *scriptedCompleter) Complete(_ context.Context, msgs []models.Message) (string, error) {
	c.calls = append(c.calls, msgs)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

// lastInput is the final user message of the most recent call
func (c *scriptedCompleter) lastInput() string {
	if len(c.calls) == 0 {
		return ""
	}
	msgs := c.calls[len(c.calls)-1]
	return msgs[len(msgs)-1].Content
}

// recordingEngine records scripts and fails those containing failOn
type recordingEngine struct {
	scripts []string
	failOn  string
	outcome *executor.Outcome
}

func (e *recordingEngine) Execute(_ context.Context, raw string) (*executor.Outcome, error) {
	e.scripts = append(e.scripts, raw)
	if e.failOn != "" && strings.Contains(raw, e.failOn) {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "batch 2 failed", errors.New("Invalid object name 'Missing'."))
	}
	if e.outcome != nil {
		return e.outcome, nil
	}
	return &executor.Outcome{Message: executor.SuccessMessage, Batches: 1}, nil
}

type staticLister []string

func (s staticLister) ListDatabases(context.Context) ([]string, error) { return s, nil }

type staticExtractor map[string][]models.TableSchema

func (s staticExtractor) ExtractSchema(_ context.Context, db string) ([]models.TableSchema, error) {
	tables, ok := s[db]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no database %s", db)
	}
	return tables, nil
}

// harness wires a Mediator over in-memory stores
type harness struct {
	backend       *storage.MemoryBackend
	schema        *storage.SchemaStore
	conversations *storage.ConversationStore
	users         *storage.UserRegistry
	completer     *scriptedCompleter
	engine        *recordingEngine
	mediator      *Mediator
	admin         models.User
	user          models.User
}

func newHarness(t *testing.T, replies ...string) *harness {
	t.Helper()
	h := &harness{backend: storage.NewMemoryBackend()}
	h.schema = storage.NewSchemaStore(h.backend, nil)
	h.conversations = storage.NewConversationStore(h.backend, 0, nil)
	h.users = storage.NewUserRegistry(h.backend, nil)
	h.completer = &scriptedCompleter{replies: replies}
	h.engine = &recordingEngine{}

	admin, err := h.users.Register("root", models.UserRoleAdmin)
	if err != nil {
		t.Fatalf("Register(admin) error = %v", err)
	}
	user, err := h.users.Register("analyst", models.UserRoleUser)
	if err != nil {
		t.Fatalf("Register(user) error = %v", err)
	}
	h.admin, h.user = *admin, *user

	assembler := NewAssembler(h.schema, h.conversations, h.users)
	h.mediator = NewMediator(MediatorConfig{
		Assembler:     assembler,
		Completer:     h.completer,
		Engine:        h.engine,
		Synchronizer:  NewSynchronizer(nil, h.schema, h.conversations, nil),
		Conversations: h.conversations,
		Schema:        h.schema,
		Databases:     staticLister{"HR", "Sales", "Scratch"},
	})
	return h
}

func hrTables() []models.TableSchema {
	return []models.TableSchema{
		{Database: "HR", Table: "Employees", Columns: []models.ColumnFact{
			{Name: "EmpID", DataType: "int", Nullability: models.NotNullable, IsPrimaryKey: true},
			{Name: "DeptID", DataType: "int", Nullability: models.Nullable, ForeignKey: "Departments(DeptID)"},
		}},
		{Database: "HR", Table: "Departments", Columns: []models.ColumnFact{
			{Name: "DeptID", DataType: "int", Nullability: models.NotNullable, IsPrimaryKey: true},
		}},
	}
}
