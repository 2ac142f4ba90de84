package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

func TestClosedSessionRejectsRender(t *testing.T) {
	s := &Session{closed: true}
	if _, err := s.Render(context.Background(), "https://example.com"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Render on closed session = %v, want ErrClosed", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := &Session{}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.Render(context.Background(), "https://example.com"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Render after Close = %v, want ErrClosed", err)
	}
}

func openLocal(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("needs a local chrome")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("chrome not installed")
	}
	s, err := Open(context.Background(), Config{Headless: true, IdleWait: 200 * time.Millisecond})
	if err != nil {
		t.Skipf("chrome did not start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRenderHonoursDeadline(t *testing.T) {
	s := openLocal(t)

	stall := make(chan struct{})
	defer close(stall)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-stall:
			case <-r.Context().Done():
			}
			return
		}
		fmt.Fprint(w, "<html><body><a href=\"/item/1\">XTZ 12.17 Edge</a></body></html>")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := s.Render(ctx, srv.URL+"/slow"); err == nil {
		t.Fatalf("expected render of a stalled page to fail")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("render ran past its deadline: %s", elapsed)
	}

	done, cancelDone := context.WithCancel(context.Background())
	cancelDone()
	if _, err := s.Render(done, srv.URL); err == nil {
		t.Fatalf("expected render with a cancelled context to fail")
	}

	html, err := s.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("render after timeouts: %v", err)
	}
	if !strings.Contains(html, "XTZ 12.17 Edge") {
		t.Fatalf("unexpected html %q", html)
	}
}
