// ABOUTME: LiveImport reads a live catalog and clarifies it with the model before trusting it
// ABOUTME: Each round re-sends the full question/answer history until the model accepts the schema
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
)

// SchemaExtractor reads table metadata from a live database
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, db string) ([]models.TableSchema, error)
}

// ImportState is a step of a live import
type ImportState int

const (
	ImportExtracted ImportState = iota
	ImportClarifying
	ImportSaved
)

func (s ImportState) String() string {
	switch s {
	case ImportExtracted:
		return "EXTRACTED"
	case ImportClarifying:
		return "CLARIFYING"
	case ImportSaved:
		return "SAVED"
	default:
		return "UNKNOWN"
	}
}

// ClarificationPair is one model question and the admin's answer
type ClarificationPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LiveImport is owned by one admin session and is not safe for concurrent use
type LiveImport struct {
	database string
	tables   []models.TableSchema
	summary  string
	history  []ClarificationPair
	reply    string
	state    ImportState
	mediator *Mediator
	log      *logger.Logger
}

// StartImport extracts db's catalog, summarizes it and asks the model to
// review the summary. When the model accepts straight away the schema is
// saved before StartImport returns.
func (m *Mediator) StartImport(ctx context.Context, extractor SchemaExtractor, db string) (*LiveImport, error) {
	if strings.TrimSpace(db) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "database name is required")
	}
	tables, err := extractor.ExtractSchema(ctx, db)
	if err != nil {
		return nil, err
	}

	imp := &LiveImport{
		database: db,
		tables:   tables,
		state:    ImportExtracted,
		mediator: m,
		log:      m.log.With().Str("flow", "import").Str("database", db).Logger(),
	}
	imp.log.Infof("extracted %d tables", len(tables))

	summary, err := NewSummarizer(m.assembler, m.completer, m.log).Summarize(ctx, db, tables)
	if err != nil {
		return nil, err
	}
	imp.summary = summary

	reply, err := imp.complete(ctx, liveReviewPrompt(db, summary))
	if err != nil {
		return nil, err
	}
	imp.reply = reply
	imp.state = ImportClarifying

	if accepted(reply) {
		if err := imp.save(); err != nil {
			return nil, err
		}
	}
	return imp, nil
}

// Answer replies to the model's latest question and returns its next
// message. A failed call leaves the history as it was.
func (imp *LiveImport) Answer(ctx context.Context, answer string) (string, error) {
	if imp.state != ImportClarifying {
		return "", errs.Newf(errs.ErrKindInvalidState, "cannot answer while %s", imp.state)
	}
	if strings.TrimSpace(answer) == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "answer is empty")
	}

	history := append(imp.History(), ClarificationPair{Question: imp.reply, Answer: answer})
	reply, err := imp.complete(ctx, liveFollowupPrompt(imp.database, formatHistory(history)))
	if err != nil {
		return "", err
	}
	imp.history = history
	imp.reply = reply

	if accepted(reply) {
		if err := imp.save(); err != nil {
			return "", err
		}
	}
	return reply, nil
}

// Done reports whether the schema has been accepted and saved
func (imp *LiveImport) Done() bool { return imp.state == ImportSaved }

// State returns the current step
func (imp *LiveImport) State() ImportState { return imp.state }

// Reply is the model's latest message
func (imp *LiveImport) Reply() string { return imp.reply }

// Summary is the generated catalog summary
func (imp *LiveImport) Summary() string { return imp.summary }

// Tables are the extracted table schemas
func (imp *LiveImport) Tables() []models.TableSchema { return imp.tables }

// History returns a copy of the clarification rounds so far
func (imp *LiveImport) History() []ClarificationPair {
	out := make([]ClarificationPair, len(imp.history))
	copy(out, imp.history)
	return out
}

// save replaces the database's schema memory and records the dialogue
func (imp *LiveImport) save() error {
	if err := imp.mediator.schema.ReplaceDatabase(imp.database, imp.tables); err != nil {
		return err
	}
	note := fmt.Sprintf("[#clarification]\nDatabase: %s\n%s\n\n[#summary]\n%s", imp.database, formatHistory(imp.history), imp.summary)
	if err := imp.mediator.sync.Annotate(note); err != nil {
		return err
	}
	imp.state = ImportSaved
	imp.log.Infof("schema accepted after %d clarification rounds", len(imp.history))
	return nil
}

func (imp *LiveImport) complete(ctx context.Context, prompt string) (string, error) {
	msgs := imp.mediator.assembler.BuildMessages(ctx, Request{Input: prompt, IsAdmin: true})
	return imp.mediator.completer.Complete(ctx, msgs)
}

func accepted(reply string) bool {
	return strings.Contains(strings.ToLower(reply), strings.ToLower(SchemaLooksGood))
}

func formatHistory(history []ClarificationPair) string {
	blocks := make([]string, len(history))
	for i, p := range history {
		blocks[i] = fmt.Sprintf("Model: %s\nAdmin: %s", p.Question, p.Answer)
	}
	return strings.Join(blocks, "\n\n")
}
