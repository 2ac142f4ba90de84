package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter serializes requests per host and spaces them by the
// politeness delay.
type hostLimiter struct {
	every time.Duration

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

type hostSlot struct {
	sem chan struct{}
	lim *rate.Limiter
}

func newHostLimiter(every time.Duration) *hostLimiter {
	return &hostLimiter{every: every, hosts: make(map[string]*hostSlot)}
}

func (h *hostLimiter) slot(host string) *hostSlot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.hosts[host]
	if !ok {
		limit := rate.Inf
		if h.every > 0 {
			limit = rate.Every(h.every)
		}
		s = &hostSlot{sem: make(chan struct{}, 1), lim: rate.NewLimiter(limit, 1)}
		h.hosts[host] = s
	}
	return s
}

// acquire blocks until host is free and its rate allows another request.
// The returned func releases the host.
func (h *hostLimiter) acquire(ctx context.Context, host string) (func(), error) {
	s := h.slot(host)
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := s.lim.Wait(ctx); err != nil {
		<-s.sem
		return nil, err
	}
	return func() { <-s.sem }, nil
}
