// ABOUTME: Tests for document chunking
// ABOUTME: Verifies size limits, paragraph preference and overlap between chunks
package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_SmallTextIsOneChunk(t *testing.T) {
	got := NewChunker().Split("Employees hold staff records.\n\nDepartments group employees.")
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(got), got)
	}
	if got[0] != "Employees hold staff records.\nDepartments group employees." {
		t.Errorf("chunk = %q", got[0])
	}
}

func TestChunker_RespectsSize(t *testing.T) {
	para := strings.Repeat("word ", 30) // 150 runes
	text := strings.Join([]string{para, para, para, para, para}, "\n\n")

	c := &Chunker{Size: 200, Overlap: 20}
	chunks := c.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > 200 {
			t.Errorf("chunk %d has %d runes, limit 200", i, n)
		}
	}
}

func TestChunker_Overlap(t *testing.T) {
	c := &Chunker{Size: 40, Overlap: 10}
	chunks := c.Split("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n\nbbbbbbbbbbbbbbbbbbbb")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %q", chunks)
	}
	if !strings.HasPrefix(chunks[1], "aaaaaaaaaa\n") {
		t.Errorf("second chunk should start with the previous tail: %q", chunks[1])
	}
}

func TestChunker_HardCutsLongSentences(t *testing.T) {
	c := &Chunker{Size: 10, Overlap: 0}
	chunks := c.Split(strings.Repeat("é", 25))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if utf8.RuneCountInString(chunks[2]) != 5 {
		t.Errorf("last chunk = %q", chunks[2])
	}
}

func TestChunker_Empty(t *testing.T) {
	if got := NewChunker().Split("  \n\n  "); len(got) != 0 {
		t.Errorf("expected no chunks, got %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one. Third")
	if len(got) != 3 || got[0] != "First one." || got[2] != "Third" {
		t.Errorf("splitSentences() = %q", got)
	}
}
