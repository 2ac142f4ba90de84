package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// jsonStore keeps the history as a JSON array of URL strings.
type jsonStore struct {
	path string
}

func newJSONStore(path string) *jsonStore {
	return &jsonStore{path: path}
}

// Load reads the whole history file.
func (j *jsonStore) Load() ([]string, error) {
	raw, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", j.path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, j.path, err)
	}
	return urls, nil
}

// Save overwrites the history atomically via a temp file in the same directory.
func (j *jsonStore) Save(urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	payload, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(j.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

func (j *jsonStore) Close() error { return nil }
