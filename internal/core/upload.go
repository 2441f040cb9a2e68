// ABOUTME: UploadFlow is the admin's upload, clarify, confirm and execute state machine
// ABOUTME: Nothing reaches durable memory until the generated SQL has executed successfully
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/sqlparse"
)

// DefaultUploadDatabase names the target database when the admin has not selected one
const DefaultUploadDatabase = "YourDatabase"

// UploadState is a step of the upload flow
type UploadState int

const (
	StateAwaitingUpload UploadState = iota
	StateClarifying
	StateAwaitingConfirmation
	StateConfirmedUnexecuted
	StateExecuted
)

func (s UploadState) String() string {
	switch s {
	case StateAwaitingUpload:
		return "AWAITING_UPLOAD"
	case StateClarifying:
		return "CLARIFYING"
	case StateAwaitingConfirmation:
		return "AWAITING_CONFIRMATION"
	case StateConfirmedUnexecuted:
		return "CONFIRMED_UNEXECUTED"
	case StateExecuted:
		return "EXECUTED"
	default:
		return "UNKNOWN"
	}
}

// Suggestion is the pending schema suggestion carried through the flow
type Suggestion struct {
	Filename         string `json:"filename"`
	RawContent       string `json:"raw_content"`
	ClarificationMsg string `json:"clarification_msg"`
	ClarifiedContent string `json:"clarified_content"`
	Confirmed        bool   `json:"confirmed"`
	Executed         bool   `json:"executed"`
	FinalSQL         string `json:"final_sql"`
}

// UploadResult is returned by a successful Execute
type UploadResult struct {
	Suggestion Suggestion        `json:"suggestion"`
	Database   string            `json:"database"`
	Outcome    *executor.Outcome `json:"outcome"`
	Sync       *SyncResult       `json:"sync"`
}

// UploadFlow is owned by one admin session and is not safe for concurrent use
type UploadFlow struct {
	admin      models.User
	database   string
	mediator   *Mediator
	analyzer   sqlparse.Analyzer
	state      UploadState
	suggestion Suggestion
	log        *logger.Logger
}

// NewUploadFlow starts a flow for admin targeting database (may be empty)
func (m *Mediator) NewUploadFlow(admin models.User, database string) (*UploadFlow, error) {
	if !admin.IsAdmin() {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "user %s is not an admin", admin.Username)
	}
	return &UploadFlow{
		admin:    admin,
		database: database,
		mediator: m,
		analyzer: m.sync.analyzer,
		state:    StateAwaitingUpload,
		log:      m.log.With().Str("flow", "upload").Logger(),
	}, nil
}

// State returns the current step
func (f *UploadFlow) State() UploadState {
	return f.state
}

// Suggestion returns a copy of the pending suggestion
func (f *UploadFlow) Suggestion() Suggestion {
	return f.suggestion
}

// Reset abandons the pending suggestion
func (f *UploadFlow) Reset() {
	f.state = StateAwaitingUpload
	f.suggestion = Suggestion{}
}

// Ingest takes uploaded content and asks the model to review it. Returns
// the model's clarification questions.
func (f *UploadFlow) Ingest(ctx context.Context, filename, content string) (string, error) {
	if f.state != StateAwaitingUpload && f.state != StateExecuted {
		return "", f.transitionError("ingest")
	}
	if strings.TrimSpace(content) == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "uploaded content is empty")
	}

	reply, err := f.complete(ctx, uploadClarificationPrompt(content))
	if err != nil {
		return "", err
	}

	f.suggestion = Suggestion{Filename: filename, RawContent: content, ClarificationMsg: reply}
	f.state = StateClarifying
	return reply, nil
}

// Clarify records the admin's answers to the clarification questions
func (f *UploadFlow) Clarify(clarified string) error {
	if f.state != StateClarifying {
		return f.transitionError("clarify")
	}
	if strings.TrimSpace(clarified) == "" {
		return errs.New(errs.ErrKindInvalidInput, "clarification is empty")
	}
	f.suggestion.ClarifiedContent = clarified
	f.state = StateAwaitingConfirmation
	return nil
}

// Confirm asks the model for the final T-SQL and returns it
func (f *UploadFlow) Confirm(ctx context.Context) (string, error) {
	if f.state != StateAwaitingConfirmation {
		return "", f.transitionError("confirm")
	}

	reply, err := f.complete(ctx, sqlGenerationPrompt(f.suggestion.ClarifiedContent, f.suggestion.RawContent, f.targetDatabase()))
	if err != nil {
		return "", err
	}
	final := strings.TrimSpace(reply)
	if final == "" {
		return "", errs.New(errs.ErrKindUpstream, "model returned no SQL")
	}

	f.suggestion.FinalSQL = final
	f.suggestion.Confirmed = true
	f.state = StateConfirmedUnexecuted
	return final, nil
}

// Execute runs the confirmed SQL. On success created tables are merged
// into schema memory and recorded in the annotation log, or, when the
// script creates nothing, its drops are removed from schema memory.
func (f *UploadFlow) Execute(ctx context.Context) (*UploadResult, error) {
	if f.state != StateConfirmedUnexecuted {
		return nil, f.transitionError("execute")
	}

	final := f.suggestion.FinalSQL
	outcome, err := f.mediator.engine.Execute(ctx, final)
	if err != nil {
		return nil, err
	}

	sync, err := f.mediator.sync.Apply(final)
	if err != nil {
		return nil, err
	}

	db := f.database
	if db == "" {
		if resolved, ok := f.analyzer.ResolveDatabase(final); ok {
			db = resolved
		}
	}
	if len(sync.Created) > 0 {
		note := fmt.Sprintf("[#clarification]\nDatabase: %s\nFile: %s\nClarification:\n%s\nGenerated SQL:\n%s",
			db, f.suggestion.Filename, f.suggestion.ClarifiedContent, final)
		if err := f.mediator.sync.Annotate(note); err != nil {
			return nil, err
		}
	}

	f.suggestion.Executed = true
	result := &UploadResult{Suggestion: f.suggestion, Database: db, Outcome: outcome, Sync: sync}
	f.log.Infof("upload %s executed: %d tables added, %d removed", f.suggestion.Filename, sync.Added, sync.Removed)

	f.suggestion = Suggestion{}
	f.state = StateExecuted
	return result, nil
}

func (f *UploadFlow) targetDatabase() string {
	if f.database != "" {
		return f.database
	}
	return DefaultUploadDatabase
}

// complete sends prompt with the admin's memory and no selected database
func (f *UploadFlow) complete(ctx context.Context, prompt string) (string, error) {
	msgs := f.mediator.assembler.BuildMessages(ctx, Request{
		Input:   prompt,
		Session: f.mediator.conversations.LoadUser(f.admin.ID),
		IsAdmin: true,
	})
	return f.mediator.completer.Complete(ctx, msgs)
}

func (f *UploadFlow) transitionError(action string) error {
	return errs.Newf(errs.ErrKindInvalidState, "cannot %s while %s", action, f.state)
}
