// ABOUTME: Tests for the SQLite retrieval index
// ABOUTME: Uses an in-memory database and a deterministic fake embedder
package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/chat2db/internal/errs"
)

// keywordEmbedder maps text onto a fixed vocabulary so similarity is predictable
type keywordEmbedder struct {
	vocab []string
	fail  bool
}

func (e *keywordEmbedder) GenerateEmbedding(text string) ([]float64, error) {
	if e.fail {
		return nil, errors.New("embedding service down")
	}
	lower := strings.ToLower(text)
	vec := make([]float64, len(e.vocab))
	for i, w := range e.vocab {
		vec[i] = float64(strings.Count(lower, w))
	}
	return vec, nil
}

func TestIndex_EmptyReturnsNothing(t *testing.T) {
	ix, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = ix.Close() }()

	got, err := ix.Query(context.Background(), "employees")
	if err != nil || len(got) != 0 {
		t.Errorf("Query() on empty index = %v, %v", got, err)
	}
}

func TestIndex_TermOverlapRanking(t *testing.T) {
	ix, _ := OpenInMemory()
	defer func() { _ = ix.Close() }()
	ctx := context.Background()

	docs := map[string]string{
		"payroll.txt": "Payroll runs monthly and stores salary amounts.",
		"hr.txt":      "Employees belong to departments. Employee salary is confidential.",
		"misc.txt":    "The cafeteria opens at noon.",
	}
	for _, src := range []string{"payroll.txt", "hr.txt", "misc.txt"} {
		if _, err := ix.Ingest(ctx, src, docs[src]); err != nil {
			t.Fatalf("Ingest(%s) error = %v", src, err)
		}
	}
	if n, _ := ix.Count(ctx); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	got, err := ix.Query(ctx, "employees salary departments")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matching chunks, got %d", len(got))
	}
	if got[0].Source != "hr.txt" || got[1].Source != "payroll.txt" {
		t.Errorf("ranking = %s, %s", got[0].Source, got[1].Source)
	}
}

func TestIndex_EmbeddingRanking(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"employee", "order", "invoice"}}
	ix, _ := OpenInMemory(WithEmbedder(emb), WithCandidates(2))
	defer func() { _ = ix.Close() }()
	ctx := context.Background()

	_, _ = ix.Ingest(ctx, "a", "order order invoice")
	_, _ = ix.Ingest(ctx, "b", "employee employee")
	_, _ = ix.Ingest(ctx, "c", "invoice")

	got, err := ix.Query(ctx, "which employee")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidate cap not applied: %d results", len(got))
	}
	if got[0].Source != "b" {
		t.Errorf("top result = %s, want b", got[0].Source)
	}
}

func TestIndex_IngestEmbeddingFailureStoresNothing(t *testing.T) {
	ix, _ := OpenInMemory(WithEmbedder(&keywordEmbedder{fail: true}))
	defer func() { _ = ix.Close() }()
	ctx := context.Background()

	if _, err := ix.Ingest(ctx, "a", "some text"); !errs.IsUpstream(err) {
		t.Errorf("error = %v, want upstream", err)
	}
	if n, _ := ix.Count(ctx); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestIndex_QueryEmbeddingFailureFallsBack(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"employee"}}
	ix, _ := OpenInMemory(WithEmbedder(emb))
	defer func() { _ = ix.Close() }()
	ctx := context.Background()

	_, _ = ix.Ingest(ctx, "hr", "employee records")
	emb.fail = true

	got, err := ix.Query(ctx, "employee")
	if err != nil || len(got) != 1 {
		t.Errorf("Query() = %v, %v; want one term-overlap match", got, err)
	}
}

func TestIndex_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", IndexFile)
	ix, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_, _ = ix.Ingest(context.Background(), "x", "persisted chunk")
	_ = ix.Close()

	ix, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = ix.Close() }()
	if n, _ := ix.Count(context.Background()); n != 1 {
		t.Errorf("Count() after reopen = %d, want 1", n)
	}
}

func TestNop(t *testing.T) {
	got, err := Nop{}.Query(context.Background(), "anything")
	if err != nil || len(got) != 0 {
		t.Errorf("Nop.Query() = %v, %v", got, err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if s := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); s != 1 {
		t.Errorf("identical vectors = %f", s)
	}
	if s := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); s != 0 {
		t.Errorf("orthogonal vectors = %f", s)
	}
	if s := CosineSimilarity([]float64{1}, []float64{1, 2}); s != 0 {
		t.Errorf("mismatched lengths = %f", s)
	}
}
