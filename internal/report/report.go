// Package report keeps the durable record of confirmed matches and renders
// the Markdown and HTML views of it.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

// Entry is one confirmed match in the results history.
type Entry struct {
	URL       string    `json:"url"`
	FoundItem bool      `json:"found_item"`
	ItemName  string    `json:"item_name"`
	Price     string    `json:"price"`
	Reasoning string    `json:"reasoning"`
	Task      string    `json:"task"`
	Timestamp time.Time `json:"timestamp"`
}

// Paths locates the history file and the generated views.
type Paths struct {
	JSON     string
	Markdown string
	HTML     string
}

// DefaultPaths places results.json under dir.
func DefaultPaths(dir, markdown, html string) Paths {
	return Paths{
		JSON:     filepath.Join(dir, "results.json"),
		Markdown: markdown,
		HTML:     html,
	}
}

// Presenter appends matches and regenerates the views.
type Presenter struct {
	paths Paths
	now   func() time.Time
	log   logger.Logger
}

// New builds a presenter.
func New(paths Paths, log logger.Logger) *Presenter {
	return &Presenter{paths: paths, now: time.Now, log: logger.Ensure(log)}
}

// Files lists every path Save may write, for version-control publishing.
func (p *Presenter) Files() []string {
	var out []string
	for _, f := range []string{p.paths.JSON, p.paths.Markdown, p.paths.HTML} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Save appends hits to the history under taskName and rewrites the views.
// An empty hits slice is a no-op.
func (p *Presenter) Save(hits []domain.ClassificationResult, taskName string) error {
	if len(hits) == 0 {
		return nil
	}

	history := p.load()
	ts := p.now().UTC()
	for _, h := range hits {
		history = append(history, Entry{
			URL:       h.URL,
			FoundItem: h.FoundItem,
			ItemName:  h.ItemName,
			Price:     h.Price,
			Reasoning: h.Reasoning,
			Task:      taskName,
			Timestamp: ts,
		})
	}

	payload, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := writeFile(p.paths.JSON, payload); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	sorted := newestFirst(history)
	var errs []error
	if p.paths.Markdown != "" {
		var buf bytes.Buffer
		if err := renderMarkdown(&buf, sorted, p.now()); err != nil {
			errs = append(errs, err)
		} else if err := writeFile(p.paths.Markdown, buf.Bytes()); err != nil {
			errs = append(errs, fmt.Errorf("write markdown: %w", err))
		}
	}
	if p.paths.HTML != "" {
		var buf bytes.Buffer
		if err := renderHTML(&buf, sorted); err != nil {
			errs = append(errs, err)
		} else if err := writeFile(p.paths.HTML, buf.Bytes()); err != nil {
			errs = append(errs, fmt.Errorf("write html: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.log.InfoObj("results saved", "report", map[string]any{
		"task":  taskName,
		"added": len(hits),
		"total": len(history),
	})
	return nil
}

// load reads the history; a missing or unreadable file counts as empty.
func (p *Presenter) load() []Entry {
	raw, err := os.ReadFile(p.paths.JSON)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		p.log.ErrorObj("read results history", "report_error", map[string]any{"error": err.Error()})
		return nil
	}

	var history []Entry
	if err := json.Unmarshal(raw, &history); err != nil {
		p.log.ErrorObj("results history corrupted, starting fresh", "report_error", map[string]any{
			"path":  p.paths.JSON,
			"error": err.Error(),
		})
		return nil
	}
	return history
}

func newestFirst(history []Entry) []Entry {
	out := make([]Entry, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// writeFile replaces path via a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
