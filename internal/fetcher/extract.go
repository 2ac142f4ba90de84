package fetcher

import (
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// extractor turns raw HTML into markdown text. Scripts, styles and
// attributes outside the UGC policy are stripped first.
type extractor struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

func newExtractor() *extractor {
	return &extractor{
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (e *extractor) text(html, pageURL string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	clean := e.policy.Sanitize(html)
	out, err := e.md.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(out) == "" {
		return strings.TrimSpace(e.plain(clean))
	}
	return strings.TrimSpace(out)
}

// plain drops every tag; used when markdown conversion fails.
func (e *extractor) plain(html string) string {
	return bluemonday.StrictPolicy().Sanitize(html)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
