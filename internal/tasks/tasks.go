// Package tasks loads the want-to-buy scans to run.
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
)

// ErrNoFile is returned by Load when the tasks file does not exist.
var ErrNoFile = errors.New("tasks file not found")

type fileFormat struct {
	Tasks []domain.Task `json:"tasks" yaml:"tasks"`
}

// Load reads tasks from a YAML or JSON file.
func Load(path string) ([]domain.Task, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoFile
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	var file fileFormat
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &file)
	default:
		err = yaml.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode tasks file %s: %w", path, err)
	}
	if len(file.Tasks) == 0 {
		return nil, fmt.Errorf("tasks file %s contains no tasks", path)
	}

	out := make([]domain.Task, 0, len(file.Tasks))
	names := make(map[string]struct{}, len(file.Tasks))
	for i := range file.Tasks {
		t := sanitize(file.Tasks[i])
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		key := strings.ToLower(t.Name)
		if _, dup := names[key]; dup {
			return nil, fmt.Errorf("duplicate task name %q", t.Name)
		}
		names[key] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Default is the single task used when no tasks file is configured.
func Default(itemName string, sites []string) []domain.Task {
	t := sanitize(domain.Task{Name: itemName, Query: itemName, Sites: sites})
	if t.Query == "" {
		return nil
	}
	return []domain.Task{t}
}

// SitesFor returns the task's own sites, or fallback when it has none.
func SitesFor(t domain.Task, fallback []string) []string {
	if len(t.Sites) > 0 {
		return t.Sites
	}
	return fallback
}

func sanitize(t domain.Task) domain.Task {
	t.Name = strings.TrimSpace(t.Name)
	t.Query = strings.TrimSpace(t.Query)
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	t.Description = strings.TrimSpace(t.Description)
	if t.Name == "" {
		t.Name = t.Query
	}

	var sites []string
	for _, s := range t.Sites {
		if s = strings.TrimSpace(s); s != "" {
			sites = append(sites, s)
		}
	}
	t.Sites = sites
	return t
}

func validate(t domain.Task) error {
	if t.Query == "" {
		return errors.New("query is required")
	}
	if t.MaxPrice != nil && *t.MaxPrice < 0 {
		return fmt.Errorf("task %q: max_price must not be negative", t.Name)
	}
	return nil
}
