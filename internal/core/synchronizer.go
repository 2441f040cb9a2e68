// ABOUTME: Synchronizer keeps schema memory consistent with executed SQL
// ABOUTME: CREATE TABLE effects are merged in, DROP TABLE/DATABASE effects are filtered out
package core

import (
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/sqlparse"
	"github.com/harper/chat2db/internal/storage"
)

// SyncResult describes what one Apply changed
type SyncResult struct {
	Created []models.TableSchema `json:"created,omitempty"`
	Drops   sqlparse.Drops       `json:"drops"`
	Added   int                  `json:"added"`
	Removed int                  `json:"removed"`
}

// Changed reports whether schema memory was modified
func (r *SyncResult) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Synchronizer applies executed SQL to schema memory
type Synchronizer struct {
	analyzer      sqlparse.Analyzer
	schema        *storage.SchemaStore
	conversations *storage.ConversationStore
	log           *logger.Logger
}

// NewSynchronizer creates a Synchronizer; a nil analyzer uses the structural one
func NewSynchronizer(analyzer sqlparse.Analyzer, schema *storage.SchemaStore, conversations *storage.ConversationStore, log *logger.Logger) *Synchronizer {
	if analyzer == nil {
		analyzer = sqlparse.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Synchronizer{analyzer: analyzer, schema: schema, conversations: conversations, log: log}
}

// Apply re-parses sql that has already executed successfully. When it
// creates tables they are merged into schema memory; only when it
// creates nothing are its drops removed.
func (s *Synchronizer) Apply(sql string) (*SyncResult, error) {
	result := &SyncResult{}

	if creates := s.analyzer.ParseCreates(sql); len(creates) > 0 {
		result.Created = creates
		added, err := s.schema.Save(creates)
		if err != nil {
			return nil, err
		}
		result.Added = added
		s.log.Infof("schema memory: %d of %d created tables added", added, len(creates))
		return result, nil
	}

	drops := s.analyzer.ParseDrops(sql)
	result.Drops = drops
	if drops.Empty() {
		return result, nil
	}

	tables := make([]string, 0, len(drops.Tables))
	for _, t := range drops.Tables {
		tables = append(tables, t.Table)
	}
	removed, err := s.schema.RemoveWhere(storage.MatchDrops(tables, drops.Databases))
	if err != nil {
		return nil, err
	}
	result.Removed = removed
	s.log.Infof("schema memory: %d entries removed by drops", removed)
	return result, nil
}

// Annotate appends one admin entry to the global annotation log
func (s *Synchronizer) Annotate(content string) error {
	return s.conversations.AppendGlobal(models.Message{Role: models.RoleAdmin, Content: content})
}
