// Package fetcher retrieves the text of marketplace pages, rendering them in
// the shared browser first and falling back to plain HTTP for sites known to
// block automation.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adda-Baaj/bazaar-sniper/internal/links"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/httpclient"
)

// Status is the outcome of a fetch.
type Status int

const (
	// StatusUnreachable means no path produced any text. Worth retrying later.
	StatusUnreachable Status = iota
	// StatusInsufficient means text came back but below the minimum length,
	// usually a block page or consent wall.
	StatusInsufficient
	// StatusContent means usable text.
	StatusContent
)

func (s Status) String() string {
	switch s {
	case StatusContent:
		return "content"
	case StatusInsufficient:
		return "insufficient"
	default:
		return "unreachable"
	}
}

// Paths a result can come from.
const (
	ViaRender = "render"
	ViaHTTP   = "http"
)

// Result is the typed outcome of Fetch. Content is truncated to the cap;
// Links holds the raw same-site hrefs of the accepted page.
type Result struct {
	Status  Status
	Content string
	Links   []string
	Via     string
}

// Renderer renders a URL to HTML. Implemented by browser.Session.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Config tunes the fetcher.
type Config struct {
	RenderTimeout    time.Duration
	HTTPTimeout      time.Duration
	MinContentLength int
	MaxContentBytes  int
	FallbackDomains  []string
	PolitenessDelay  time.Duration
}

// browserHeaders mimic a desktop browser for the HTTP fallback.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "sv-SE,sv;q=0.9,en-US;q=0.8,en;q=0.7,de;q=0.6",
	"Cache-Control":   "no-cache",
	"Referer":         "https://www.google.com/",
}

// Fetcher implements the render-then-fallback strategy.
type Fetcher struct {
	renderer Renderer
	http     httpclient.Client
	cfg      Config
	fallback map[string]struct{}
	limiter  *hostLimiter
	extract  *extractor
	log      logger.Logger
}

// New builds a fetcher. renderer or client may be nil to disable that path.
func New(renderer Renderer, client httpclient.Client, cfg Config, log logger.Logger) *Fetcher {
	fallback := make(map[string]struct{}, len(cfg.FallbackDomains))
	for _, d := range cfg.FallbackDomains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			fallback[d] = struct{}{}
		}
	}
	return &Fetcher{
		renderer: renderer,
		http:     client,
		cfg:      cfg,
		fallback: fallback,
		limiter:  newHostLimiter(cfg.PolitenessDelay),
		extract:  newExtractor(),
		log:      logger.Ensure(log),
	}
}

// usesFallback reports whether host or one of its parents is allow-listed.
func (f *Fetcher) usesFallback(host string) bool {
	for host != "" {
		if _, ok := f.fallback[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// Fetch never returns an error; failures are folded into Result.Status.
func (f *Fetcher) Fetch(ctx context.Context, url string) Result {
	host := links.Host(url)
	release, err := f.limiter.acquire(ctx, host)
	if err != nil {
		return Result{Status: StatusUnreachable}
	}
	defer release()

	best := Result{Status: StatusUnreachable}

	if f.renderer != nil {
		res := f.attempt(ctx, url, ViaRender, f.cfg.RenderTimeout, f.render)
		if res.Status == StatusContent {
			return res
		}
		best = pick(best, res)
	}

	if f.http != nil && (f.renderer == nil || f.usesFallback(host)) {
		if ctx.Err() != nil {
			return best
		}
		res := f.attempt(ctx, url, ViaHTTP, f.cfg.HTTPTimeout, f.get)
		if res.Status == StatusContent {
			return res
		}
		best = pick(best, res)
	}

	f.log.DebugObj("fetch gave no usable content", "fetch_miss", map[string]any{
		"url":    url,
		"status": best.Status.String(),
	})
	return best
}

func pick(a, b Result) Result {
	if b.Status > a.Status {
		return b
	}
	return a
}

func (f *Fetcher) attempt(ctx context.Context, url, via string, timeout time.Duration, get func(context.Context, string) (string, error)) Result {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	html, err := get(callCtx, url)
	if err != nil {
		f.log.WarnObj("fetch path failed", "fetch_error", map[string]any{
			"url":   url,
			"via":   via,
			"error": err.Error(),
		})
		return Result{Status: StatusUnreachable, Via: via}
	}
	return f.accept(url, html, via)
}

// accept applies the minimum-length gate to the extracted text.
func (f *Fetcher) accept(url, html, via string) Result {
	text := f.extract.text(html, url)
	if text == "" {
		return Result{Status: StatusUnreachable, Via: via}
	}
	if utf8.RuneCountInString(text) < f.cfg.MinContentLength {
		return Result{Status: StatusInsufficient, Content: text, Via: via}
	}

	hrefs, err := links.FromHTML(url, html)
	if err != nil {
		f.log.DebugObj("link scan failed", "fetch_links", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
	}
	return Result{
		Status:  StatusContent,
		Content: truncate(text, f.cfg.MaxContentBytes),
		Links:   hrefs,
		Via:     via,
	}
}

func (f *Fetcher) render(ctx context.Context, url string) (string, error) {
	return f.renderer.Render(ctx, url)
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	resp, err := f.http.Get(ctx, url, browserHeaders)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return string(resp.Body()), nil
}
