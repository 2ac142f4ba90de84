// Package browser owns the single headless Chrome session shared by a run.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("browser session closed")

// Config configures the session.
type Config struct {
	// RemoteURL is the DevTools WebSocket of an existing Chrome. Empty
	// launches a local one.
	RemoteURL string
	Headless  bool
	// IdleWait is how long the network must stay quiet before the page
	// counts as rendered.
	IdleWait time.Duration
	Log      logger.Logger
}

// Session renders pages one at a time through one browser.
type Session struct {
	cfg     Config
	log     logger.Logger
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// Open launches (or connects to) Chrome.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = time.Second
	}
	log := logger.Ensure(cfg.Log)

	wsURL := cfg.RemoteURL
	var l *launcher.Launcher
	if wsURL == "" {
		l = launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("connect chrome: %w", err)
	}

	log.InfoObj("browser session opened", "browser", map[string]any{
		"remote":   cfg.RemoteURL != "",
		"headless": cfg.Headless,
	})
	return &Session{cfg: cfg, log: log, browser: b, lnch: l}, nil
}

// Render navigates to url in a fresh stealth tab, waits for the network to
// settle and returns the page HTML. ctx bounds the whole render.
func (s *Session) Render(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.browser == nil {
		return "", ErrClosed
	}

	p, err := stealth.Page(s.browser.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("open tab: %w", err)
	}
	// The tab is closed even when ctx is already done.
	defer func() { _ = p.Context(context.WithoutCancel(ctx)).Close() }()

	waitIdle := p.WaitRequestIdle(s.cfg.IdleWait, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		s.log.DebugObj("wait load interrupted", "browser", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
	}
	waitIdle()

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read html %s: %w", url, err)
	}
	return html, nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}
