package links

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://x.test/s", "/item/42", "https://x.test/item/42"},
		{"https://x.test/s/list?q=1", "detail/7", "https://x.test/s/detail/7"},
		{"https://x.test/s", "https://other.test/itm/9#photos", "https://other.test/itm/9"},
		{"https://x.test/s", "//cdn.x.test/annons/1", "https://cdn.x.test/annons/1"},
		{"https://x.test/s", "", ""},
		{"https://x.test/s", "   ", ""},
		{"https://x.test/s", "javascript:void(0)", ""},
		{"https://x.test/s", "mailto:seller@x.test", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.base, tc.href); got != tc.want {
			t.Errorf("Normalize(%q, %q) = %q, want %q", tc.base, tc.href, got, tc.want)
		}
	}
}

func TestIsAdLinkBoundaries(t *testing.T) {
	short := "http://a/item/"
	if len(short) != 14 {
		t.Fatalf("fixture length = %d", len(short))
	}
	if IsAdLink(short) {
		t.Errorf("14-character URL must be rejected")
	}

	ok := "https://ab.test/item/1234"
	if len(ok) != 25 {
		t.Fatalf("fixture length = %d", len(ok))
	}
	if !IsAdLink(ok) {
		t.Errorf("25-character URL with /item/ must be accepted")
	}

	noKeyword := "https://ab.test/about/123"
	if len(noKeyword) != 25 {
		t.Fatalf("fixture length = %d", len(noKeyword))
	}
	if IsAdLink(noKeyword) {
		t.Errorf("25-character URL without keyword must be rejected")
	}
}

func TestIsAdLinkKeywords(t *testing.T) {
	accepted := []string{
		"https://www.blocket.se/annons/stockholm/xtz/123",
		"https://www.kleinanzeigen.de/s-anzeige/xtz-edge/2745",
		"https://www.ebay.de/itm/1234567890",
		"https://www.finn.no/bap/forsale/ad.html?finnkode=1&id=77",
		"https://hifitorget.se/index.php?id=12345",
	}
	for _, u := range accepted {
		if !IsAdLink(u) {
			t.Errorf("IsAdLink(%q) = false", u)
		}
	}
	if IsAdLink("https://hifitorget.se/index.php?userid=12345") {
		t.Errorf("userid= must not count as an id key")
	}
}

func TestFilterDeduplicates(t *testing.T) {
	base := "https://x.test/search?q=xtz"
	hrefs := []string{
		"/item/1?id=1",
		"/item/1?id=1",
		"https://x.test/item/1?id=1#top",
		"/about",
		"",
		"/item/2",
	}

	got := Filter(base, hrefs)
	if len(got) != 2 {
		t.Fatalf("Filter = %v", got)
	}
	if got[0] != "https://x.test/item/1?id=1" || got[1] != "https://x.test/item/2" {
		t.Fatalf("Filter = %v", got)
	}
}

func TestFromHTMLKeepsInternalLinks(t *testing.T) {
	page := `<html><body>
<a href="/item/1?id=1">XTZ</a>
<a href="https://www.x.test/item/3">www alias</a>
<a href="https://tracker.test/item/2">external</a>
<a href="#reviews">anchor</a>
<a>no href</a>
</body></html>`

	hrefs, err := FromHTML("https://x.test/search", page)
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	joined := strings.Join(hrefs, " ")
	if len(hrefs) != 2 || !strings.Contains(joined, "/item/1?id=1") || !strings.Contains(joined, "www.x.test/item/3") {
		t.Fatalf("FromHTML = %v", hrefs)
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://WWW.Blocket.se/annons/1"); got != "blocket.se" {
		t.Fatalf("Host = %q", got)
	}
}
