// ABOUTME: Summarizer condenses a database catalog into a short description
// ABOUTME: Tables are summarised in batches, then the batch summaries are merged into one
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/llm"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
)

// SummaryBatchSize is how many tables go into one batch prompt
const SummaryBatchSize = 25

// Summarizer produces schema summaries through the completion service
type Summarizer struct {
	assembler *Assembler
	completer llm.Completer
	batchSize int
	log       *logger.Logger
}

// NewSummarizer creates a Summarizer
func NewSummarizer(assembler *Assembler, completer llm.Completer, log *logger.Logger) *Summarizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Summarizer{assembler: assembler, completer: completer, batchSize: SummaryBatchSize, log: log}
}

// Summarize describes db from its tables. One completion per batch of
// tables, then one for the overall summary.
func (s *Summarizer) Summarize(ctx context.Context, db string, tables []models.TableSchema) (string, error) {
	if len(tables) == 0 {
		return "", errs.Newf(errs.ErrKindNotFound, "database %s has no tables to summarize", db)
	}

	lines := make([]string, len(tables))
	for i, t := range tables {
		lines[i] = TableLine(t)
	}

	var partials []string
	for start := 0; start < len(lines); start += s.batchSize {
		end := min(start+s.batchSize, len(lines))
		s.log.Debugf("summarizing tables %d-%d of %d", start+1, end, len(lines))
		summary, err := s.complete(ctx, summaryBatchPrompt(db, lines[start:end]))
		if err != nil {
			return "", err
		}
		partials = append(partials, strings.TrimSpace(summary))
	}

	final, err := s.complete(ctx, summaryFinalPrompt(db, partials))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(final), nil
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	msgs := s.assembler.BuildMessages(ctx, Request{Input: prompt, IsAdmin: true})
	return s.completer.Complete(ctx, msgs)
}

// TableLine renders a table as "Table: T, Columns: a (int), b (varchar)"
func TableLine(t models.TableSchema) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("%s (%s)", c.Name, c.DataType)
	}
	return fmt.Sprintf("Table: %s, Columns: %s", t.Table, strings.Join(cols, ", "))
}
