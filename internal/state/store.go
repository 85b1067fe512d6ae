// Package state persists the trader's portfolio snapshot as a JSON document.
//
// Writes are full-snapshot overwrites made atomic via a temp file and
// rename, so a reader never observes a torn document on POSIX filesystems.
package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Zetan9/birzhAIbot/internal/model"
)

// FileStore reads and writes the snapshot at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given path, creating the parent
// directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("state dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Save marshals state and atomically replaces the snapshot file.
func (s *FileStore) Save(state *model.TraderState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("state marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state rename: %w", err)
	}
	return nil
}

// Load reads the snapshot. Returns nil, nil when no snapshot exists yet.
// A corrupt document is reported as an error; callers fall back to a fresh
// portfolio and keep running.
func (s *FileStore) Load() (*model.TraderState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Printf("[state] no snapshot at %s, starting fresh", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state read: %w", err)
	}

	var state model.TraderState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("state parse: %w", err)
	}
	if state.Positions == nil {
		state.Positions = make(map[string]model.Position)
	}
	return &state, nil
}
