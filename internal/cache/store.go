package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Producer writes a complete artifact to dest. dest keeps the final file's
// extension so tools that infer container formats from it behave.
type Producer func(ctx context.Context, dest string) error

// Store persists cache artifacts addressed by a relative key such as
// "headshots/660271.jpg".
type Store interface {
	Exists(key string) bool
	Get(key string) (string, error)
	Put(ctx context.Context, key string, produce Producer) (string, error)
}

// ErrNotCached is returned by Store.Get for keys that have not been published.
var ErrNotCached = errors.New("not cached")

// FSStore keeps artifacts as plain files beneath Root.
type FSStore struct {
	Root string
}

// NewFSStore returns a filesystem store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

// Path returns the final location for key.
func (s *FSStore) Path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

// Exists reports whether a non-empty file is published at key.
func (s *FSStore) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// Get returns the path for a published key.
func (s *FSStore) Get(key string) (string, error) {
	if !s.Exists(key) {
		return "", fmt.Errorf("%s: %w", key, ErrNotCached)
	}
	return s.Path(key), nil
}

// Put runs produce against a temp file in the destination directory and
// renames it into place once it holds data. On failure the temp file is
// removed and nothing appears at the final path.
func (s *FSStore) Put(ctx context.Context, key string, produce Producer) (string, error) {
	final := s.Path(key)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure cache dir: %w", err)
	}

	ext := filepath.Ext(final)
	stem := strings.TrimSuffix(filepath.Base(final), ext)
	tmp, err := os.CreateTemp(dir, "."+stem+".partial-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := produce(ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("stat produced file: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(tmpPath)
		return "", errors.New("produced an empty file")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("publish %s: %w", key, err)
	}
	return final, nil
}

// MemStore keeps artifacts in memory. Paths it returns use the mem:// scheme
// and cannot be opened; it exists for exercising cache semantics in tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: map[string][]byte{}}
}

func (s *MemStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func (s *MemStore) Get(key string) (string, error) {
	if !s.Exists(key) {
		return "", fmt.Errorf("%s: %w", key, ErrNotCached)
	}
	return "mem://" + key, nil
}

// Bytes returns the stored content for key.
func (s *MemStore) Bytes(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entries[key]
	return data, ok
}

func (s *MemStore) Put(ctx context.Context, key string, produce Producer) (string, error) {
	tmp, err := os.CreateTemp("", "memstore-*"+filepath.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := produce(ctx, tmpPath); err != nil {
		return "", err
	}
	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("read produced file: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("produced an empty file")
	}

	s.mu.Lock()
	s.entries[key] = data
	s.mu.Unlock()
	return "mem://" + key, nil
}

var (
	_ Store = (*FSStore)(nil)
	_ Store = (*MemStore)(nil)
)
