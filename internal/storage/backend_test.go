// ABOUTME: Tests for the document backends
// ABOUTME: Verifies missing documents read as nil and file writes replace atomically
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}

	data, err := b.ReadDocument("absent.json")
	if err != nil || data != nil {
		t.Fatalf("missing document = (%q, %v), want (nil, nil)", data, err)
	}

	if err := b.WriteDocument("doc.json", []byte(`[1]`)); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	if err := b.WriteDocument("doc.json", []byte(`[2]`)); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}

	data, err = b.ReadDocument("doc.json")
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if string(data) != `[2]` {
		t.Errorf("ReadDocument() = %s, want [2]", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the document in %s, found %d entries", dir, len(entries))
	}
}

func TestMemoryBackend_CopiesData(t *testing.T) {
	b := NewMemoryBackend()
	buf := []byte("abc")
	_ = b.WriteDocument("x", buf)
	buf[0] = 'z'

	got, _ := b.ReadDocument("x")
	if string(got) != "abc" {
		t.Errorf("stored data was aliased: %s", got)
	}
	if names := b.Names(); len(names) != 1 || names[0] != "x" {
		t.Errorf("Names() = %v", names)
	}
}

func TestUserMemoryDocument(t *testing.T) {
	if got := UserMemoryDocument("42"); got != "memory_42.json" {
		t.Errorf("UserMemoryDocument() = %q", got)
	}
}
