package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Store persists a State snapshot as a JSON file. Save is a full overwrite
// via an atomic rename; callers read-modify-write the whole snapshot under
// the single-writer assumption.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. A missing file yields an empty default
// state, never an error.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	return &st, nil
}

// Save overwrites the durable copy, stamping a fresh update timestamp.
// The write is temp-file + fsync + validate + rename so a crash can never
// leave a torn state file behind.
func (s *Store) Save(st *State) error {
	st.LastUpdated = time.Now().UTC()

	content, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".skillnet-state-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read temp file for validation: %w", err)
	}
	var probe State
	if err := json.Unmarshal(written, &probe); err != nil {
		return fmt.Errorf("state validation failed: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}

	slog.Debug("state saved",
		slog.Int("candidates", len(st.Candidates)),
		slog.Int("processed", len(st.Processed)))
	return nil
}
