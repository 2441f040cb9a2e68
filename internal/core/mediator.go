// ABOUTME: Mediator runs one chat turn from natural language to executed SQL
// ABOUTME: Persists session memory, executes SQL replies, and keeps schema memory in sync for admins
package core

import (
	"context"
	"sort"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/llm"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/storage"
)

// sqlPrefixes mark a reply as SQL to execute
var sqlPrefixes = []string{"use", "select", "insert", "update", "delete", "create", "drop"}

// schemaTriggers mark an admin reply as one that may change schema memory
var schemaTriggers = []string{"create table", "drop table", "delete"}

// Executor runs a SQL script
type Executor interface {
	Execute(ctx context.Context, raw string) (*executor.Outcome, error)
}

// DatabaseLister lists databases on the live server
type DatabaseLister interface {
	ListDatabases(ctx context.Context) ([]string, error)
}

// Session identifies who is asking and which database they selected
type Session struct {
	User     models.User
	Database string
}

// Turn is the result of one Ask
type Turn struct {
	Reply   string            `json:"reply"`
	IsSQL   bool              `json:"is_sql"`
	Outcome *executor.Outcome `json:"outcome,omitempty"`
	Sync    *SyncResult       `json:"sync,omitempty"`
	// ExecErr is set when the SQL reply failed to execute. The turn itself
	// still succeeded and its memory was saved.
	ExecErr error `json:"-"`
}

// ExecError returns the execution failure text, empty when none
func (t *Turn) ExecError() string {
	if t.ExecErr == nil {
		return ""
	}
	return t.ExecErr.Error()
}

// Execution is the result of running a script directly
type Execution struct {
	Outcome *executor.Outcome `json:"outcome"`
	Sync    *SyncResult       `json:"sync,omitempty"`
}

// MediatorConfig holds a Mediator's collaborators
type MediatorConfig struct {
	Assembler     *Assembler
	Completer     llm.Completer
	Engine        Executor
	Synchronizer  *Synchronizer
	Conversations *storage.ConversationStore
	Schema        *storage.SchemaStore
	Databases     DatabaseLister
	Logger        *logger.Logger
}

// Mediator drives chat turns and direct execution
type Mediator struct {
	assembler     *Assembler
	completer     llm.Completer
	engine        Executor
	sync          *Synchronizer
	conversations *storage.ConversationStore
	schema        *storage.SchemaStore
	databases     DatabaseLister
	log           *logger.Logger
}

// NewMediator creates a Mediator
func NewMediator(cfg MediatorConfig) *Mediator {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Mediator{
		assembler:     cfg.Assembler,
		completer:     cfg.Completer,
		engine:        cfg.Engine,
		sync:          cfg.Synchronizer,
		conversations: cfg.Conversations,
		schema:        cfg.Schema,
		databases:     cfg.Databases,
		log:           log.With().Str("component", "mediator").Logger(),
	}
}

// Ask sends input through the completion service. The exchange is saved
// to the session's memory before any SQL runs. A SQL reply is executed;
// its failure is reported on the Turn, not as an error.
func (m *Mediator) Ask(ctx context.Context, sess Session, input string) (*Turn, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "message is empty")
	}

	memory := m.conversations.LoadUser(sess.User.ID)
	msgs := m.assembler.BuildMessages(ctx, Request{
		Input:            input,
		Session:          memory,
		IsAdmin:          sess.User.IsAdmin(),
		SelectedDatabase: sess.Database,
	})

	reply, err := m.completer.Complete(ctx, msgs)
	if err != nil {
		return nil, err
	}

	memory = append(memory,
		models.Message{Role: models.RoleUser, Content: input},
		models.Message{Role: models.RoleAssistant, Content: reply},
	)
	if err := m.conversations.SaveUser(sess.User.ID, memory); err != nil {
		m.log.WarnErr("failed to save session memory", err)
	}

	turn := &Turn{Reply: reply, IsSQL: IsSQLReply(reply)}
	if !turn.IsSQL {
		return turn, nil
	}

	turn.Outcome, turn.ExecErr = m.engine.Execute(ctx, reply)
	if turn.ExecErr != nil {
		m.log.WarnErr("generated SQL failed", turn.ExecErr)
		return turn, nil
	}

	if sess.User.IsAdmin() && mentionsSchemaChange(reply) {
		sync, err := m.sync.Apply(reply)
		if err != nil {
			m.log.WarnErr("failed to update schema memory", err)
		}
		turn.Sync = sync
	}
	return turn, nil
}

// Execute runs a script directly and applies its schema effects once it
// has succeeded
func (m *Mediator) Execute(ctx context.Context, sql string) (*Execution, error) {
	outcome, err := m.engine.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	sync, err := m.sync.Apply(sql)
	if err != nil {
		return &Execution{Outcome: outcome}, err
	}
	return &Execution{Outcome: outcome, Sync: sync}, nil
}

// AvailableDatabases lists live databases that also appear in schema memory
func (m *Mediator) AvailableDatabases(ctx context.Context) ([]string, error) {
	live, err := m.databases.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, db := range m.schema.Databases() {
		known[db] = true
	}
	var out []string
	for _, db := range live {
		if known[db] {
			out = append(out, db)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Assembler exposes the context assembler for the import and upload flows
func (m *Mediator) Assembler() *Assembler {
	return m.assembler
}

// IsSQLReply reports whether reply should be executed as SQL
func IsSQLReply(reply string) bool {
	lower := strings.ToLower(strings.TrimSpace(reply))
	for _, p := range sqlPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func mentionsSchemaChange(reply string) bool {
	lower := strings.ToLower(reply)
	for _, t := range schemaTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
