// ABOUTME: SchemaStore persists verified table schemas as the schema memory document
// ABOUTME: Merges by case-insensitive (database, table) key and renders entries as system messages
package storage

import (
	"encoding/json"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
)

// SchemaStore is the durable set of known table schemas
type SchemaStore struct {
	backend Backend
	log     *logger.Logger
}

// NewSchemaStore creates a store over backend
func NewSchemaStore(backend Backend, log *logger.Logger) *SchemaStore {
	if log == nil {
		log = logger.Nop()
	}
	return &SchemaStore{backend: backend, log: log}
}

// Load returns every stored entry. A missing or unreadable document yields
// an empty set.
func (s *SchemaStore) Load() []models.TableSchema {
	data, err := s.backend.ReadDocument(SchemaMemoryDocument)
	if err != nil {
		s.log.WarnErr("schema memory unreadable, treating as empty", err)
		return []models.TableSchema{}
	}
	if len(data) == 0 {
		return []models.TableSchema{}
	}

	var entries []models.TableSchema
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.WarnErr("schema memory malformed, treating as empty", err)
		return []models.TableSchema{}
	}
	return entries
}

// Save merges entries into the stored set. An entry whose key already
// exists is ignored; the first entry for a key wins.
func (s *SchemaStore) Save(entries []models.TableSchema) (added int, err error) {
	current := s.Load()
	seen := make(map[models.SchemaKey]bool, len(current)+len(entries))
	for _, e := range current {
		seen[e.Key()] = true
	}

	for _, e := range entries {
		if !e.Valid() || seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		current = append(current, e)
		added++
	}

	return added, s.write(current)
}

// RemoveWhere drops every entry matching pred and rewrites the document
func (s *SchemaStore) RemoveWhere(pred func(models.TableSchema) bool) (removed int, err error) {
	current := s.Load()
	kept := current[:0]
	for _, e := range current {
		if pred(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.write(kept)
}

// MatchDrops builds a RemoveWhere predicate. An entry matches when its
// table name equals one of tables or its database equals one of
// databases; both comparisons are exact.
func MatchDrops(tables, databases []string) func(models.TableSchema) bool {
	tableSet := make(map[string]bool, len(tables))
	for _, t := range tables {
		tableSet[t] = true
	}
	dbSet := make(map[string]bool, len(databases))
	for _, d := range databases {
		dbSet[d] = true
	}
	return func(e models.TableSchema) bool {
		return tableSet[e.Table] || dbSet[e.Database]
	}
}

// ReplaceDatabase swaps every entry of db for entries. Used when a live
// catalog import is accepted.
func (s *SchemaStore) ReplaceDatabase(db string, entries []models.TableSchema) error {
	target := strings.ToLower(strings.TrimSpace(db))
	current := s.Load()

	kept := make([]models.TableSchema, 0, len(current)+len(entries))
	for _, e := range current {
		if strings.ToLower(strings.TrimSpace(e.Database)) != target {
			kept = append(kept, e)
		}
	}

	seen := map[models.SchemaKey]bool{}
	for _, e := range entries {
		if !e.Valid() || seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		kept = append(kept, e)
	}
	return s.write(kept)
}

// Databases lists distinct database names in first-seen order
func (s *SchemaStore) Databases() []string {
	seen := map[string]bool{}
	var dbs []string
	for _, e := range s.Load() {
		db := strings.TrimSpace(e.Database)
		key := strings.ToLower(db)
		if db == "" || seen[key] {
			continue
		}
		seen[key] = true
		dbs = append(dbs, db)
	}
	return dbs
}

// Messages renders the store as system messages for the completion service
func (s *SchemaStore) Messages() []models.Message {
	return ToMessages(s.Load())
}

// ToMessages emits one system message per entry, skipping entries without
// a database or table and repeats of an already emitted key.
func ToMessages(entries []models.TableSchema) []models.Message {
	seen := map[models.SchemaKey]bool{}
	msgs := make([]models.Message, 0, len(entries))
	for _, e := range entries {
		if !e.Valid() || seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: e.Describe()})
	}
	return msgs
}

func (s *SchemaStore) write(entries []models.TableSchema) error {
	canonical := make([]models.TableSchema, len(entries))
	for i, e := range entries {
		canonical[i] = e.Canonical()
	}
	data, err := json.MarshalIndent(canonical, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrKindPersistence, "failed to encode schema memory", err)
	}
	if err := s.backend.WriteDocument(SchemaMemoryDocument, data); err != nil {
		return errs.Wrap(errs.ErrKindPersistence, "failed to save schema memory", err)
	}
	return nil
}
