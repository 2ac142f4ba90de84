// Package planner turns a query and a list of marketplaces into search
// result pages to harvest.
package planner

import (
	"context"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/links"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

// QueryPlaceholder is replaced by the percent-encoded query in a template.
const QueryPlaceholder = "{q}"

// DefaultTemplates covers the marketplaces the tool ships with.
var DefaultTemplates = map[string]string{
	"blocket.se":       "https://www.blocket.se/annonser/hela_sverige?q={q}",
	"tradera.com":      "https://www.tradera.com/search?q={q}",
	"hifitorget.se":    "https://hifitorget.se/index.php?mod=search&searchstring={q}",
	"kleinanzeigen.de": "https://www.kleinanzeigen.de/s-suchanfrage.html?keywords={q}",
	"ebay.de":          "https://www.ebay.de/sch/i.html?_nkw={q}",
	"dba.dk":           "https://www.dba.dk/soeg/?soeg={q}",
	"finn.no":          "https://www.finn.no/bap/forsale/search.html?q={q}",
}

// URLGenerator proposes search pages for sites without a template. The bool
// is false when no answer could be obtained.
type URLGenerator interface {
	GenerateSearchURLs(ctx context.Context, query string, sites []string) ([]domain.SearchPageSource, bool)
}

// Planner resolves templated sites locally and asks the generator for the rest.
type Planner struct {
	templates map[string]string
	generator URLGenerator
	log       logger.Logger
}

// New builds a planner. Extra templates override the defaults per site;
// generator may be nil, in which case unknown sites are dropped.
func New(extra map[string]string, generator URLGenerator, log logger.Logger) *Planner {
	templates := make(map[string]string, len(DefaultTemplates)+len(extra))
	for site, tpl := range DefaultTemplates {
		templates[site] = tpl
	}
	for site, tpl := range extra {
		if key := SiteKey(site); key != "" && strings.Contains(tpl, QueryPlaceholder) {
			templates[key] = tpl
		}
	}
	return &Planner{templates: templates, generator: generator, log: logger.Ensure(log)}
}

// SiteKey reduces a site entry ("https://www.Blocket.se/", "blocket.se") to
// its bare lower-case host.
func SiteKey(site string) string {
	s := strings.ToLower(strings.TrimSpace(site))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return links.Host(s)
}

// Plan never fails: sites that cannot be resolved are logged and skipped.
func (p *Planner) Plan(ctx context.Context, query string, sites []string) []domain.SearchPageSource {
	query = strings.TrimSpace(query)
	if query == "" {
		p.log.WarnObj("empty query, nothing to plan", "planner", nil)
		return nil
	}

	var (
		out       []domain.SearchPageSource
		remainder []string
		seenSite  = map[string]struct{}{}
	)
	for _, site := range sites {
		key := SiteKey(site)
		if key == "" {
			continue
		}
		if _, dup := seenSite[key]; dup {
			continue
		}
		seenSite[key] = struct{}{}

		tpl, ok := p.templates[key]
		if !ok {
			remainder = append(remainder, key)
			continue
		}
		out = append(out, domain.SearchPageSource{
			SiteName:  key,
			SearchURL: strings.ReplaceAll(tpl, QueryPlaceholder, url.QueryEscape(query)),
		})
	}

	if len(remainder) == 0 {
		return out
	}
	if p.generator == nil {
		p.log.WarnObj("no template and no generator for sites", "planner_skip", map[string]any{
			"sites": remainder,
		})
		return out
	}

	generated, ok := p.generator.GenerateSearchURLs(ctx, query, remainder)
	if !ok {
		p.log.WarnObj("search url generation failed, sites dropped", "planner_skip", map[string]any{
			"sites":   remainder,
			"planned": len(out),
		})
		return out
	}

	wanted := make(map[string]struct{}, len(remainder))
	for _, s := range remainder {
		wanted[s] = struct{}{}
	}
	for _, src := range generated {
		u := links.Normalize(src.SearchURL, src.SearchURL)
		host := links.Host(u)
		if u == "" {
			continue
		}
		if _, ok := wanted[host]; !ok {
			p.log.DebugObj("generated url for unrequested site dropped", "planner_skip", map[string]any{
				"url": src.SearchURL,
			})
			continue
		}
		delete(wanted, host)
		out = append(out, domain.SearchPageSource{SiteName: host, SearchURL: u})
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for s := range wanted {
			missing = append(missing, s)
		}
		p.log.InfoObj("generator skipped some sites", "planner_partial", map[string]any{
			"sites": missing,
		})
	}
	return out
}
