// Package seenset holds the ordered set of listing URLs already processed.
package seenset

import "sync"

// Set is an insertion-ordered set of URLs. Safe for concurrent use; the
// orchestrator is the single owner, workers only call Add.
type Set struct {
	mu      sync.RWMutex
	order   []string
	idx     map[string]struct{}
	initial int
}

// New builds a set from persisted history, collapsing duplicates.
func New(urls []string) *Set {
	s := &Set{idx: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.add(u)
	}
	s.initial = len(s.order)
	return s
}

// Has reports whether url was already seen.
func (s *Set) Has(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.idx[url]
	return ok
}

// Add records url. It returns false when url is empty or already present.
func (s *Set) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(url)
}

func (s *Set) add(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s.idx[url]; ok {
		return false
	}
	s.idx[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Remove drops urls added during this run. Entries loaded from history are kept.
func (s *Set) Remove(urls ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := s.idx[u]; ok {
			drop[u] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := s.order[:s.initial]
	removed := 0
	for _, u := range s.order[s.initial:] {
		if _, ok := drop[u]; ok {
			delete(s.idx, u)
			removed++
			continue
		}
		kept = append(kept, u)
	}
	s.order = kept
	return removed
}

// Len returns the number of URLs in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// URLs returns a copy of the set in insertion order.
func (s *Set) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Added returns the URLs recorded since the set was loaded.
func (s *Set) Added() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order)-s.initial)
	copy(out, s.order[s.initial:])
	return out
}
