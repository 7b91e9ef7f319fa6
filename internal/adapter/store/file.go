package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/acazau/gridpilot/internal/core/domain"
)

// FileRestoreStore persists sell restore payloads as one JSON file per
// key under a data directory. Payloads must survive a process restart,
// an overdue restore is detected from the persisted timestamp.
type FileRestoreStore struct {
	dir string
}

func NewFileRestoreStore(dir string) (*FileRestoreStore, error) {
	if dir == "" {
		return nil, errors.New("restore store: data dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("restore store: %w", err)
	}
	return &FileRestoreStore{dir: dir}, nil
}

func (s *FileRestoreStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileRestoreStore) Load(key string) (*domain.RestorePayload, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("restore store: load %s: %w", key, err)
	}
	var payload domain.RestorePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("restore store: decode %s: %w", key, err)
	}
	return &payload, nil
}

func (s *FileRestoreStore) Save(key string, payload domain.RestorePayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("restore store: encode %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("restore store: save %s: %w", key, err)
	}
	return nil
}

func (s *FileRestoreStore) Remove(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileRestoreStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("restore store: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	return keys, nil
}
