// Package storage persists session state as JSON files: a collection
// is a directory, a record is one file. Writes go through a temp file
// rename and an advisory lock, so concurrent sessions cannot tear a
// record.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store is a directory-backed record store.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*fileLock
}

// New creates a store rooted at dir. The directory is created on the
// first write.
func New(dir string) *Store {
	return &Store{dir: dir, locks: make(map[string]*fileLock)}
}

func (s *Store) recordPath(collection, id string) string {
	return filepath.Join(s.dir, collection, id+".json")
}

// Get unmarshals a record into v.
func (s *Store) Get(ctx context.Context, collection, id string, v any) error {
	data, err := os.ReadFile(s.recordPath(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read record %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record %s/%s: %w", collection, id, err)
	}
	return nil
}

// Put writes a record atomically, replacing any previous value.
func (s *Store) Put(ctx context.Context, collection, id string, v any) error {
	path := s.recordPath(collection, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}

	lock := s.lockFor(path)
	if err := lock.acquire(); err != nil {
		return fmt.Errorf("lock record %s/%s: %w", collection, id, err)
	}
	defer lock.release()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s/%s: %w", collection, id, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write record %s/%s: %w", collection, id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit record %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	path := s.recordPath(collection, id)

	lock := s.lockFor(path)
	if err := lock.acquire(); err != nil {
		return fmt.Errorf("lock record %s/%s: %w", collection, id, err)
	}
	defer lock.release()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete record %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns the record ids in a collection. A missing collection
// lists as empty.
func (s *Store) List(ctx context.Context, collection string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// Scan calls fn with each record in a collection. Unreadable files are
// skipped; an fn error stops the scan.
func (s *Store) Scan(ctx context.Context, collection string, fn func(id string, raw json.RawMessage) error) error {
	ids, err := s.List(ctx, collection)
	if err != nil {
		return err
	}

	for _, id := range ids {
		data, err := os.ReadFile(s.recordPath(collection, id))
		if err != nil {
			continue
		}
		if err := fn(id, json.RawMessage(data)); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether a record is present.
func (s *Store) Exists(ctx context.Context, collection, id string) bool {
	_, err := os.Stat(s.recordPath(collection, id))
	return err == nil
}

func (s *Store) lockFor(path string) *fileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[path]
	if !ok {
		lock = &fileLock{path: path}
		s.locks[path] = lock
	}
	return lock
}
