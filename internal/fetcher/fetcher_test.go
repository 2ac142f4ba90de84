package fetcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/pkg/httpclient"
)

type stubRenderer struct {
	html  string
	err   error
	calls int
}

func (s *stubRenderer) Render(context.Context, string) (string, error) {
	s.calls++
	return s.html, s.err
}

type stubResponse struct {
	status int
	body   string
}

func (r stubResponse) Body() []byte    { return []byte(r.body) }
func (r stubResponse) StatusCode() int { return r.status }

type stubHTTP struct {
	resp    stubResponse
	err     error
	calls   int
	headers map[string]string
}

func (s *stubHTTP) Get(_ context.Context, _ string, headers map[string]string) (httpclient.Response, error) {
	s.calls++
	s.headers = headers
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubHTTP) Post(context.Context, string, map[string]string, []byte) (httpclient.Response, error) {
	return nil, errors.New("not used")
}

func longPage() string {
	return `<html><head><script>track()</script></head><body><h1>XTZ 12.17 Edge</h1><p>` +
		strings.Repeat("Fint skick, hämtas i Göteborg. ", 20) +
		`</p><a href="/item/1?id=1">ad</a><a href="https://other.test/item/2">elsewhere</a></body></html>`
}

const shortPage = `<html><body><p>Please accept cookies</p></body></html>`

func testConfig() Config {
	return Config{
		RenderTimeout:    time.Second,
		HTTPTimeout:      time.Second,
		MinContentLength: 300,
		MaxContentBytes:  20000,
		FallbackDomains:  []string{"blocket.se"},
	}
}

func TestFetchRenderedContent(t *testing.T) {
	r := &stubRenderer{html: longPage()}
	h := &stubHTTP{}
	f := New(r, h, testConfig(), nil)

	res := f.Fetch(context.Background(), "https://x.test/s?q=xtz")
	if res.Status != StatusContent || res.Via != ViaRender {
		t.Fatalf("result = %+v", res)
	}
	if strings.Contains(res.Content, "track()") {
		t.Fatalf("script leaked into content")
	}
	if !strings.Contains(res.Content, "XTZ 12.17 Edge") {
		t.Fatalf("heading missing from content: %q", res.Content)
	}
	if len(res.Links) != 1 || res.Links[0] != "/item/1?id=1" {
		t.Fatalf("links = %v", res.Links)
	}
	if h.calls != 0 {
		t.Fatalf("http fallback should not run after a good render")
	}
}

func TestFetchShortContentIsInsufficient(t *testing.T) {
	h := &stubHTTP{resp: stubResponse{status: 200, body: longPage()}}
	f := New(&stubRenderer{html: shortPage}, h, testConfig(), nil)

	res := f.Fetch(context.Background(), "https://x.test/item/1")
	if res.Status != StatusInsufficient || res.Content == "" {
		t.Fatalf("result = %+v", res)
	}
	if h.calls != 0 {
		t.Fatalf("x.test is not allow-listed for the http fallback")
	}
}

func TestFetchFallbackForBlockingDomain(t *testing.T) {
	h := &stubHTTP{resp: stubResponse{status: 200, body: longPage()}}
	f := New(&stubRenderer{err: errors.New("blocked")}, h, testConfig(), nil)

	res := f.Fetch(context.Background(), "https://www.blocket.se/annons/1")
	if res.Status != StatusContent || res.Via != ViaHTTP {
		t.Fatalf("result = %+v", res)
	}
	if h.headers["User-Agent"] == "" {
		t.Fatalf("fallback must send browser headers")
	}
}

func TestFetchFallbackKeepsBestOutcome(t *testing.T) {
	h := &stubHTTP{resp: stubResponse{status: 403, body: "forbidden"}}
	f := New(&stubRenderer{html: shortPage}, h, testConfig(), nil)

	res := f.Fetch(context.Background(), "https://blocket.se/annons/1")
	if res.Status != StatusInsufficient || res.Via != ViaRender {
		t.Fatalf("result = %+v", res)
	}
	if h.calls != 1 {
		t.Fatalf("http calls = %d, want 1", h.calls)
	}
}

func TestFetchUnreachable(t *testing.T) {
	h := &stubHTTP{err: errors.New("timeout")}
	f := New(&stubRenderer{err: errors.New("timeout")}, h, testConfig(), nil)

	res := f.Fetch(context.Background(), "https://finn.blocket.se/x")
	if res.Status != StatusUnreachable || res.Content != "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestFetchTruncatesContent(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContentBytes = 120
	f := New(&stubRenderer{html: longPage()}, nil, cfg, nil)

	res := f.Fetch(context.Background(), "https://x.test/item/1")
	if res.Status != StatusContent {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Content) > 120 {
		t.Fatalf("content length %d exceeds cap", len(res.Content))
	}
}

func TestFetchHTTPOnlyWithoutRenderer(t *testing.T) {
	h := &stubHTTP{resp: stubResponse{status: 200, body: longPage()}}
	f := New(nil, h, testConfig(), nil)

	if res := f.Fetch(context.Background(), "https://x.test/item/1"); res.Status != StatusContent || res.Via != ViaHTTP {
		t.Fatalf("result = %+v", res)
	}
}

func TestHostLimiterSerializes(t *testing.T) {
	l := newHostLimiter(0)
	release, err := l.acquire(context.Background(), "x.test")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.acquire(ctx, "x.test"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second acquire on a busy host should wait, got %v", err)
	}
	if r2, err := l.acquire(context.Background(), "y.test"); err != nil {
		t.Fatalf("other hosts must not be blocked: %v", err)
	} else {
		r2()
	}

	release()
	r3, err := l.acquire(context.Background(), "x.test")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	r3()
}

func TestTruncateKeepsRunes(t *testing.T) {
	got := truncate("ååå", 3)
	if got != "å" {
		t.Fatalf("truncate = %q", got)
	}
}
