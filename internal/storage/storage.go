package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Package storage persists the seen-URL history between runs.

// Store loads and saves the ordered list of seen URLs.
type Store interface {
	// Load returns the persisted history. A missing history is empty; a
	// corrupt one is reported with ErrCorrupt so callers can start fresh.
	Load() ([]string, error)
	// Save overwrites the persisted history with urls.
	Save(urls []string) error
	Close() error
}

// ErrCorrupt marks a history that exists but cannot be decoded.
var ErrCorrupt = errors.New("history corrupted")

// Supported storage types.
const (
	TypeJSON  = "json"
	TypeBBolt = "bbolt"
	TypeNone  = "none"
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case TypeNone, "disabled":
		return noopStore{}, nil
	case "", TypeJSON:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("json storage requires a path")
		}
		return newJSONStore(path), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error            { return nil }
func (noopStore) Load() ([]string, error) { return nil, nil }
func (noopStore) Save([]string) error     { return nil }
