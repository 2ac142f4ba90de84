package links

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromHTML returns the raw href values of anchors in html that point to the
// same site as pageURL. Relative references are kept as-is; pass the result
// through Filter to resolve them.
func FromHTML(pageURL, html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		abs := Normalize(pageURL, href)
		if abs == "" || !SameSite(pageURL, abs) {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs, nil
}
