// ABOUTME: Backend abstracts where chat2db keeps its JSON memory documents
// ABOUTME: FileBackend writes a data directory atomically; MemoryBackend serves tests
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Document names
const (
	UsersDocument        = "users.json"
	SchemaMemoryDocument = "schema_memory.json"
	GlobalMemoryDocument = "global_memory.json"
)

// UserMemoryDocument returns the document name of one user's transcript
func UserMemoryDocument(userID string) string {
	return fmt.Sprintf("memory_%s.json", userID)
}

// Backend reads and replaces whole documents. ReadDocument returns nil
// data and a nil error when the document does not exist.
type Backend interface {
	ReadDocument(name string) ([]byte, error)
	WriteDocument(name string, data []byte) error
}

// FileBackend stores each document as a file in one directory. Writes go
// to a temp file that is renamed over the target. There is no
// cross-process locking: two processes saving the same document can lose
// an update.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend creates dir if needed
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the data directory
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) ReadDocument(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (b *FileBackend) WriteDocument(name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(b.dir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// MemoryBackend keeps documents in a map
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (b *MemoryBackend) ReadDocument(name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.docs[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *MemoryBackend) WriteDocument(name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	b.docs[name] = stored
	return nil
}

// Names lists stored document names in sorted order
func (b *MemoryBackend) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.docs))
	for name := range b.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
