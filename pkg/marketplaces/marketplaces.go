package marketplaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Package marketplaces loads per-site search templates (YAML/JSON) that extend
// or override the built-in marketplace list.

// Fetch modes for a marketplace's pages.
const (
	FetchRender = "render"
	FetchHTTP   = "http"

	queryPlaceholder = "{q}"
)

// Marketplace describes how to search one site.
type Marketplace struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Domain    string `json:"domain" yaml:"domain"`
	SearchURL string `json:"search_url" yaml:"search_url"`
	Fetch     string `json:"fetch" yaml:"fetch"`
	Enabled   *bool  `json:"enabled" yaml:"enabled"`
}

type registryFile struct {
	Marketplaces []Marketplace `json:"marketplaces" yaml:"marketplaces"`
}

// Registry holds validated marketplace entries in file order.
type Registry struct {
	mu      sync.RWMutex
	entries []Marketplace
	idx     map[string]Marketplace
}

// LoadRegistry reads the marketplaces file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("marketplaces file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open marketplaces file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read marketplaces file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Marketplaces) == 0 {
		return nil, errors.New("marketplaces file contains no marketplaces entries")
	}
	return NewRegistry(reg.Marketplaces)
}

// NewRegistry validates entries and indexes them by id.
func NewRegistry(entries []Marketplace) (*Registry, error) {
	r := &Registry{
		entries: make([]Marketplace, 0, len(entries)),
		idx:     make(map[string]Marketplace, len(entries)),
	}
	for i := range entries {
		m := sanitize(entries[i])
		if err := validate(m); err != nil {
			return nil, fmt.Errorf("marketplaces[%d]: %w", i, err)
		}
		if _, exists := r.idx[m.ID]; exists {
			return nil, fmt.Errorf("duplicate marketplace id %q", m.ID)
		}
		r.entries = append(r.entries, m)
		r.idx[m.ID] = m
	}
	return r, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("marketplaces file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s marketplaces: %w", name, err)
	}
	return reg, nil
}

func sanitize(m Marketplace) Marketplace {
	m.ID = strings.ToLower(strings.TrimSpace(m.ID))
	m.Name = strings.TrimSpace(m.Name)
	m.Domain = strings.ToLower(strings.TrimSpace(m.Domain))
	m.Domain = strings.TrimPrefix(strings.TrimPrefix(m.Domain, "https://"), "http://")
	m.Domain = strings.TrimPrefix(strings.TrimSuffix(m.Domain, "/"), "www.")
	m.SearchURL = strings.TrimSpace(m.SearchURL)
	m.Fetch = strings.ToLower(strings.TrimSpace(m.Fetch))

	if m.Domain == "" {
		m.Domain = m.ID
	}
	if m.Name == "" {
		m.Name = m.Domain
	}
	if m.Fetch == "" {
		m.Fetch = FetchRender
	}
	if m.Enabled == nil {
		def := true
		m.Enabled = &def
	}
	return m
}

func validate(m Marketplace) error {
	if m.ID == "" {
		return errors.New("id is required")
	}
	if m.SearchURL == "" {
		return fmt.Errorf("search_url is required for marketplace %q", m.ID)
	}
	if !strings.Contains(m.SearchURL, queryPlaceholder) {
		return fmt.Errorf("search_url for marketplace %q must contain %s", m.ID, queryPlaceholder)
	}
	switch m.Fetch {
	case FetchRender, FetchHTTP:
	default:
		return fmt.Errorf("fetch for marketplace %q must be %s or %s", m.ID, FetchRender, FetchHTTP)
	}
	return nil
}

// ByID returns the entry for id, if loaded.
func (r *Registry) ByID(id string) (Marketplace, bool) {
	if r == nil {
		return Marketplace{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.idx[strings.ToLower(strings.TrimSpace(id))]
	return m, ok
}

// Enabled returns the enabled entries in file order.
func (r *Registry) Enabled() []Marketplace {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Marketplace, 0, len(r.entries))
	for _, m := range r.entries {
		if m.Enabled == nil || *m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Templates maps each enabled domain to its search URL template.
func (r *Registry) Templates() map[string]string {
	enabled := r.Enabled()
	out := make(map[string]string, len(enabled))
	for _, m := range enabled {
		out[m.Domain] = m.SearchURL
	}
	return out
}

// HTTPDomains lists enabled domains that must be fetched without the browser.
func (r *Registry) HTTPDomains() []string {
	var out []string
	for _, m := range r.Enabled() {
		if m.Fetch == FetchHTTP {
			out = append(out, m.Domain)
		}
	}
	return out
}
