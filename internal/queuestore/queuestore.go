// Package queuestore implements the default boundary.Queue adapter: a
// single JSON file holding the full queue snapshot. Real deployments back
// boundary.Queue with SQL storage, explicitly out of scope here (spec.md
// §1); no teacher file persists anything; this follows the stdlib-only
// style the teacher uses for everything that isn't wrapping a C binding.
package queuestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/friendsincode/audioengine/pkg/passage"
)

// FileStore persists a queue snapshot to a single JSON file, guarding reads
// and writes with a mutex since the engine may Save from a command handler
// goroutine while a concurrent Load happens at startup.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. The file need not exist yet;
// Load on a missing file returns an empty queue.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type snapshotEntry struct {
	ID        passage.EntryID   `json:"id"`
	Passage   passage.Passage   `json:"passage"`
	PlayOrder int64             `json:"play_order"`
	Overrides *passage.Overrides `json:"overrides,omitempty"`
}

// Load implements boundary.Queue.
func (s *FileStore) Load(ctx context.Context) ([]passage.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queuestore: read %s: %w", s.path, err)
	}

	var snapshot []snapshotEntry
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("queuestore: decode %s: %w", s.path, err)
	}

	entries := make([]passage.QueueEntry, 0, len(snapshot))
	for _, se := range snapshot {
		entries = append(entries, passage.QueueEntry{
			ID:        se.ID,
			Passage:   se.Passage,
			PlayOrder: se.PlayOrder,
			Overrides: se.Overrides,
		})
	}
	return entries, nil
}

// Save implements boundary.Queue. It writes to a temp file in the same
// directory and renames over the target so a crash mid-write never leaves a
// truncated snapshot on disk.
func (s *FileStore) Save(ctx context.Context, entries []passage.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]snapshotEntry, 0, len(entries))
	for _, e := range entries {
		snapshot = append(snapshot, snapshotEntry{
			ID:        e.ID,
			Passage:   e.Passage,
			PlayOrder: e.PlayOrder,
			Overrides: e.Overrides,
		})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("queuestore: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".queuestore-*.tmp")
	if err != nil {
		return fmt.Errorf("queuestore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("queuestore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("queuestore: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("queuestore: rename into place: %w", err)
	}
	return nil
}
