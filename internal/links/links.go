// Package links turns raw hyperlinks from a search-results page into
// candidate listing URLs.
package links

import (
	"net/url"
	"strings"
)

// MinAdLinkLength rejects stub links such as "/item/" on their own.
const MinAdLinkLength = 20

// adKeywords are path/query fragments that listing URLs on the supported
// marketplaces carry.
var adKeywords = []string{"/annons/", "/item/", "/s-anzeige/", "/advert/", "/itm/"}

// Normalize resolves href against base. Empty or non-http(s) references
// yield an empty string and should be discarded.
func Normalize(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	abs := baseURL.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if abs.Host == "" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

// IsAdLink reports whether u looks like a listing detail page.
func IsAdLink(u string) bool {
	if len(u) < MinAdLinkLength {
		return false
	}
	for _, kw := range adKeywords {
		if strings.Contains(u, kw) {
			return true
		}
	}
	return hasIDQueryKey(u)
}

// hasIDQueryKey reports whether the query string carries a literal "id" key.
func hasIDQueryKey(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return strings.Contains(u, "id=")
	}
	for _, pair := range strings.Split(parsed.RawQuery, "&") {
		if strings.HasPrefix(pair, "id=") {
			return true
		}
	}
	return false
}

// Filter normalizes hrefs against base, keeps plausible listing URLs and
// drops duplicates. Discovery order is kept for the survivors.
func Filter(base string, hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		abs := Normalize(base, href)
		if abs == "" || !IsAdLink(abs) {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

// SameSite reports whether a and b share a host, ignoring a leading "www.".
func SameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return bareHost(ua.Hostname()) == bareHost(ub.Hostname())
}

// Host returns the lower-cased host of u without a leading "www.".
func Host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return bareHost(parsed.Hostname())
}

func bareHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}
