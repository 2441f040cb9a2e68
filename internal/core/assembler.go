// ABOUTME: Assembler builds the ordered message list for every completion call
// ABOUTME: Layers system contract, admin, schema and global memory, budgeted retrieval, and the session
package core

import (
	"context"

	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/retrieval"
	"github.com/harper/chat2db/internal/storage"
)

// Request is one completion call's inputs. Session identity and the
// selected database are passed in rather than read from shared state.
type Request struct {
	Input            string
	Session          []models.Message
	IsAdmin          bool
	SelectedDatabase string
}

// Assembler assembles context from the memory tiers
type Assembler struct {
	schema        *storage.SchemaStore
	conversations *storage.ConversationStore
	users         *storage.UserRegistry
	retriever     retrieval.Retriever
	budget        int
	counter       retrieval.TokenCounter
	log           *logger.Logger
}

// AssemblerOption customises an Assembler
type AssemblerOption func(*Assembler)

// WithRetriever sets the retrieval service; the default returns nothing
func WithRetriever(r retrieval.Retriever) AssemblerOption {
	return func(a *Assembler) {
		if r != nil {
			a.retriever = r
		}
	}
}

// WithTokenBudget sets the retrieved-context budget
func WithTokenBudget(budget int, counter retrieval.TokenCounter) AssemblerOption {
	return func(a *Assembler) {
		if budget > 0 {
			a.budget = budget
		}
		if counter != nil {
			a.counter = counter
		}
	}
}

// WithAssemblerLogger sets the logger
func WithAssemblerLogger(l *logger.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssembler creates an Assembler over the durable stores
func NewAssembler(schema *storage.SchemaStore, conversations *storage.ConversationStore, users *storage.UserRegistry, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		schema:        schema,
		conversations: conversations,
		users:         users,
		retriever:     retrieval.Nop{},
		budget:        retrieval.DefaultTokenBudget,
		counter:       retrieval.ApproxTokens,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildMessages returns the messages for one call, in this order:
// system contract, admin memory, schema memory, global annotations,
// retrieved chunks, session memory, selected-database reminder, input.
func (a *Assembler) BuildMessages(ctx context.Context, req Request) []models.Message {
	msgs := []models.Message{{Role: models.RoleSystem, Content: SystemPrompt(req.IsAdmin, req.SelectedDatabase)}}

	msgs = append(msgs, Sanitize(a.adminMemory())...)
	msgs = append(msgs, Sanitize(a.schema.Messages())...)
	msgs = append(msgs, Sanitize(annotationsAsSystem(a.conversations.LoadGlobal()))...)
	msgs = append(msgs, Sanitize(a.retrieved(ctx, req.Input))...)
	msgs = append(msgs, Sanitize(req.Session)...)

	if req.SelectedDatabase != "" {
		msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: SelectedDatabaseReminder(req.SelectedDatabase)})
	}
	return append(msgs, models.Message{Role: models.RoleUser, Content: req.Input})
}

// adminMemory is the first registered admin's conversation memory
func (a *Assembler) adminMemory() []models.Message {
	if a.users == nil {
		return nil
	}
	admin, ok := a.users.FirstAdmin()
	if !ok {
		return nil
	}
	return a.conversations.LoadUser(admin.ID)
}

// retrieved returns budgeted chunks as system messages. Retrieval
// failures degrade to no chunks.
func (a *Assembler) retrieved(ctx context.Context, input string) []models.Message {
	candidates, err := a.retriever.Query(ctx, input)
	if err != nil {
		a.log.WarnErr("retrieval failed, continuing without context chunks", err)
		return nil
	}
	chunks, used := retrieval.SelectWithinBudget(candidates, a.budget, a.counter)
	if len(chunks) > 0 {
		a.log.Debugf("retrieved %d chunks, %d tokens", len(chunks), used)
	}
	out := make([]models.Message, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, models.Message{Role: models.RoleSystem, Content: c.Content})
	}
	return out
}

// annotationsAsSystem presents admin annotation entries to the model as
// system messages; other roles pass through unchanged.
func annotationsAsSystem(entries []models.Message) []models.Message {
	out := make([]models.Message, len(entries))
	for i, e := range entries {
		if e.Role == models.RoleAdmin {
			e.Role = models.RoleSystem
		}
		out[i] = e
	}
	return out
}

// Sanitize keeps only entries the completion service accepts
func Sanitize(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !models.IsCompletionRole(m.Role) {
			continue
		}
		out = append(out, models.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
