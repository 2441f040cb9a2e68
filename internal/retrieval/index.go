// ABOUTME: SQLite-backed retrieval index over ingested document chunks
// ABOUTME: Ranks by cosine similarity of stored embeddings, or by query-term overlap without an embedder
package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/llm"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	_ "modernc.org/sqlite"
)

// DefaultCandidates caps how many ranked chunks a query returns
const DefaultCandidates = 30

// IndexFile is the database file name inside the data directory
const IndexFile = "retrieval.db"

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    content TEXT NOT NULL,
    vector BLOB,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Retriever returns ranked context chunks for a query
type Retriever interface {
	Query(ctx context.Context, text string) ([]models.Chunk, error)
}

// Nop is a retriever with no index; it always returns no chunks
type Nop struct{}

func (Nop) Query(context.Context, string) ([]models.Chunk, error) {
	return []models.Chunk{}, nil
}

// Index stores chunks in SQLite
type Index struct {
	conn       *sql.DB
	chunker    *Chunker
	embedder   llm.Embedder
	candidates int
	log        *logger.Logger
}

// Option configures an Index
type Option func(*Index)

// WithEmbedder enables vector ranking
func WithEmbedder(e llm.Embedder) Option {
	return func(ix *Index) { ix.embedder = e }
}

// WithCandidates sets the per-query result cap
func WithCandidates(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.candidates = n
		}
	}
}

// WithLogger sets the logger used for fail-open warnings
func WithLogger(l *logger.Logger) Option {
	return func(ix *Index) { ix.log = l }
}

// Open opens or creates the index at path
func Open(path string, opts ...Option) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping index: %w", err)
	}
	return newIndex(conn, opts)
}

// OpenInMemory creates an in-memory index (for testing)
func OpenInMemory(opts ...Option) (*Index, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory index: %w", err)
	}
	// Each pooled connection would see its own empty :memory: database
	conn.SetMaxOpenConns(1)
	return newIndex(conn, opts)
}

func newIndex(conn *sql.DB, opts []Option) (*Index, error) {
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	ix := &Index{
		conn:       conn,
		chunker:    NewChunker(),
		candidates: DefaultCandidates,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Close closes the database connection
func (ix *Index) Close() error {
	if ix.conn != nil {
		return ix.conn.Close()
	}
	return nil
}

// Ingest chunks text, embeds each chunk when an embedder is configured and
// stores the chunks. Nothing is stored if any embedding fails.
func (ix *Index) Ingest(ctx context.Context, source, text string) (int, error) {
	pieces := ix.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "no text to index in %s", source)
	}

	vectors := make([][]byte, len(pieces))
	if ix.embedder != nil {
		for i, p := range pieces {
			vec, err := ix.embedder.GenerateEmbedding(p)
			if err != nil {
				return 0, errs.Wrap(errs.ErrKindUpstream, "failed to embed chunk", err)
			}
			vectors[i] = vectorToBlob(vec)
		}
	}

	tx, err := ix.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindPersistence, "failed to begin index transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for i, p := range pieces {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, source, content, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
			"chunk_"+uuid.New().String(), source, p, vectors[i], now)
		if err != nil {
			return 0, errs.Wrap(errs.ErrKindPersistence, "failed to store chunk", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.Wrap(errs.ErrKindPersistence, "failed to commit chunks", err)
	}
	return len(pieces), nil
}

// Count returns the number of stored chunks
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Query ranks stored chunks against text and returns at most the
// configured number of candidates. An empty index yields no chunks.
func (ix *Index) Query(ctx context.Context, text string) ([]models.Chunk, error) {
	rows, err := ix.conn.QueryContext(ctx, `SELECT id, source, content, vector FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindPersistence, "failed to read index", err)
	}
	defer func() { _ = rows.Close() }()

	type stored struct {
		chunk  models.Chunk
		vector []float64
	}
	var all []stored
	for rows.Next() {
		var s stored
		var blob []byte
		if err := rows.Scan(&s.chunk.ChunkID, &s.chunk.Source, &s.chunk.Content, &blob); err != nil {
			return nil, errs.Wrap(errs.ErrKindPersistence, "failed to scan chunk", err)
		}
		s.vector = blobToVector(blob)
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindPersistence, "failed to read index", err)
	}
	if len(all) == 0 {
		return []models.Chunk{}, nil
	}

	var queryVec []float64
	if ix.embedder != nil {
		queryVec, err = ix.embedder.GenerateEmbedding(text)
		if err != nil {
			ix.log.WarnErr("query embedding failed, ranking by term overlap", err)
			queryVec = nil
		}
	}

	terms := termSet(text)
	results := make([]models.Chunk, 0, len(all))
	for _, s := range all {
		c := s.chunk
		if queryVec != nil {
			c.Score = CosineSimilarity(queryVec, s.vector)
		} else {
			c.Score = termOverlap(terms, c.Content)
			if c.Score == 0 {
				continue
			}
		}
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > ix.candidates {
		results = results[:ix.candidates]
	}
	return results, nil
}

// termSet returns the distinct lowercase word terms of text
func termSet(text string) map[string]bool {
	terms := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		if len(w) > 1 {
			terms[w] = true
		}
	}
	return terms
}

// termOverlap is the fraction of query terms present in content
func termOverlap(query map[string]bool, content string) float64 {
	if len(query) == 0 {
		return 0
	}
	have := termSet(content)
	hits := 0
	for t := range query {
		if have[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	if vector == nil {
		return nil
	}
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
