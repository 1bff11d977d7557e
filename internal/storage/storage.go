// Package storage persists admin-tuned settings across restarts. Only the
// tunables live here; conversation state is memory-only on purpose.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Settings are the values admins can change at runtime.
type Settings struct {
	ReplyTargetRatio float64 `json:"reply_target_ratio"`
	GapMinSeconds    int     `json:"gap_min_seconds"`
}

// Store reads and writes a single JSON settings file. Writes are atomic
// (temp file plus rename) so a crash mid-write never corrupts the file.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Load returns the persisted settings. A missing file is not an error; the
// second return value reports whether anything was loaded.
func (s *Store) Load() (Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("storage: read %s: %w", s.path, err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, false, fmt.Errorf("storage: parse %s: %w", s.path, err)
	}
	return settings, true, nil
}

// Save writes settings to disk atomically.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: rename temp file: %w", err)
	}
	log.Printf("[STORAGE] settings saved to %s", s.path)
	return nil
}
