// ABOUTME: ConversationStore keeps per-user rolling transcripts and the global annotation log
// ABOUTME: Transcripts are capped to the most recent messages; the global log is append-only
package storage

import (
	"encoding/json"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
)

// DefaultUserMemoryLimit is the transcript cap (five exchanges)
const DefaultUserMemoryLimit = 10

// ConversationStore persists transcripts and annotations
type ConversationStore struct {
	backend Backend
	limit   int
	log     *logger.Logger
}

// NewConversationStore creates a store; limit <= 0 uses DefaultUserMemoryLimit
func NewConversationStore(backend Backend, limit int, log *logger.Logger) *ConversationStore {
	if limit <= 0 {
		limit = DefaultUserMemoryLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ConversationStore{backend: backend, limit: limit, log: log}
}

// Limit returns the transcript cap
func (s *ConversationStore) Limit() int {
	return s.limit
}

// LoadUser returns at most Limit() recent messages of the user's transcript
func (s *ConversationStore) LoadUser(userID string) []models.Message {
	return models.LastN(s.readMessages(UserMemoryDocument(userID)), s.limit)
}

// SaveUser truncates msgs to the most recent Limit() before writing
func (s *ConversationStore) SaveUser(userID string, msgs []models.Message) error {
	return s.writeMessages(UserMemoryDocument(userID), models.LastN(msgs, s.limit))
}

// LoadGlobal returns the full annotation log
func (s *ConversationStore) LoadGlobal() []models.Message {
	return s.readMessages(GlobalMemoryDocument)
}

// SaveGlobal replaces the annotation log without truncation
func (s *ConversationStore) SaveGlobal(msgs []models.Message) error {
	return s.writeMessages(GlobalMemoryDocument, msgs)
}

// AppendGlobal adds one entry to the end of the annotation log
func (s *ConversationStore) AppendGlobal(entry models.Message) error {
	return s.SaveGlobal(append(s.LoadGlobal(), entry))
}

// readMessages fails open: missing or malformed documents are empty
func (s *ConversationStore) readMessages(name string) []models.Message {
	data, err := s.backend.ReadDocument(name)
	if err != nil {
		s.log.WarnErr("memory document unreadable, treating as empty", err)
		return []models.Message{}
	}
	if len(data) == 0 {
		return []models.Message{}
	}

	var msgs []models.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		s.log.WarnErr("memory document malformed, treating as empty", err)
		return []models.Message{}
	}
	return msgs
}

func (s *ConversationStore) writeMessages(name string, msgs []models.Message) error {
	if msgs == nil {
		msgs = []models.Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrKindPersistence, "failed to encode "+name, err)
	}
	if err := s.backend.WriteDocument(name, data); err != nil {
		return errs.Wrap(errs.ErrKindPersistence, "failed to save "+name, err)
	}
	return nil
}
