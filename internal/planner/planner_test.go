package planner

import (
	"context"
	"testing"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
)

type fakeGenerator struct {
	calls int
	sites []string
	pages []domain.SearchPageSource
	ok    bool
}

func (f *fakeGenerator) GenerateSearchURLs(_ context.Context, _ string, sites []string) ([]domain.SearchPageSource, bool) {
	f.calls++
	f.sites = sites
	return f.pages, f.ok
}

func TestPlanTemplatedSitesMakeNoCalls(t *testing.T) {
	gen := &fakeGenerator{ok: true}
	p := New(nil, gen, nil)

	got := p.Plan(context.Background(), "XTZ 12.17 Edge", []string{"blocket.se", "https://www.finn.no/", "blocket.se"})
	if gen.calls != 0 {
		t.Fatalf("generator called %d times", gen.calls)
	}
	if len(got) != 2 {
		t.Fatalf("pages = %+v", got)
	}
	if got[0].SearchURL != "https://www.blocket.se/annonser/hela_sverige?q=XTZ+12.17+Edge" {
		t.Fatalf("blocket url = %s", got[0].SearchURL)
	}
	if got[1].SiteName != "finn.no" {
		t.Fatalf("site name = %s", got[1].SiteName)
	}
}

func TestPlanExtraTemplate(t *testing.T) {
	p := New(map[string]string{"templated.test": "https://templated.test/s?q={q}"}, nil, nil)

	got := p.Plan(context.Background(), "a&b", []string{"templated.test"})
	if len(got) != 1 || got[0].SearchURL != "https://templated.test/s?q=a%26b" {
		t.Fatalf("pages = %+v", got)
	}
}

func TestPlanMergesGeneratedPages(t *testing.T) {
	gen := &fakeGenerator{ok: true, pages: []domain.SearchPageSource{
		{SiteName: "new.test", SearchURL: "https://new.test/search?q=xtz"},
		{SiteName: "evil.test", SearchURL: "https://evil.test/?q=xtz"},
		{SiteName: "broken", SearchURL: "javascript:alert(1)"},
	}}
	p := New(nil, gen, nil)

	got := p.Plan(context.Background(), "xtz", []string{"tradera.com", "new.test"})
	if gen.calls != 1 || len(gen.sites) != 1 || gen.sites[0] != "new.test" {
		t.Fatalf("generator got %v (%d calls)", gen.sites, gen.calls)
	}
	if len(got) != 2 || got[1].SearchURL != "https://new.test/search?q=xtz" {
		t.Fatalf("pages = %+v", got)
	}
}

func TestPlanGeneratorFailureKeepsTemplates(t *testing.T) {
	p := New(nil, &fakeGenerator{ok: false}, nil)

	got := p.Plan(context.Background(), "xtz", []string{"dba.dk", "unknown.test"})
	if len(got) != 1 || got[0].SiteName != "dba.dk" {
		t.Fatalf("pages = %+v", got)
	}
}

func TestPlanTotalFailureIsEmpty(t *testing.T) {
	p := New(nil, &fakeGenerator{ok: false}, nil)

	if got := p.Plan(context.Background(), "xtz", []string{"unknown.test"}); len(got) != 0 {
		t.Fatalf("expected empty plan, got %+v", got)
	}
	if got := p.Plan(context.Background(), "  ", []string{"blocket.se"}); len(got) != 0 {
		t.Fatalf("expected empty plan for empty query, got %+v", got)
	}
}
