package ai

import (
	"regexp"
	"strings"
)

const (
	// MaxFieldLength bounds short fields such as item and site names.
	MaxFieldLength = 200
	// MaxURLLength bounds URLs echoed back for correlation.
	MaxURLLength = 500
)

var (
	// Letters, digits, whitespace and a fixed punctuation/currency set survive.
	textDisallowed = regexp.MustCompile(`[^\p{L}\p{N}\s&+/.,\-!?()@#$€£%:]`)
	urlDisallowed  = regexp.MustCompile(`[^A-Za-z0-9\-._~:/?\[\]@!$&()*+,;=%]`)
	delimiterRun   = regexp.MustCompile(`-{3,}`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	spaceRuns      = regexp.MustCompile(`[ \t\r\f\v]+`)
	absoluteLink   = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}|\\^` + "`" + `]+`)
)

// Sanitize filters untrusted text through the allow-list, neutralizes
// prompt section delimiters and truncates to max runes.
func Sanitize(text string, max int) string {
	if text == "" {
		return ""
	}
	clean := textDisallowed.ReplaceAllString(text, "")
	clean = NeutralizeDelimiters(clean)
	clean = spaceRuns.ReplaceAllString(clean, " ")
	clean = blankRuns.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(truncateRunes(clean, max))
}

// SanitizePage is Sanitize for rendered page content. Absolute links keep
// the URL character set so the model can copy them back verbatim; the text
// around them goes through the text allow-list.
func SanitizePage(text string, max int) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range absoluteLink.FindAllStringIndex(text, -1) {
		b.WriteString(textDisallowed.ReplaceAllString(text[last:loc[0]], ""))
		b.WriteString(urlDisallowed.ReplaceAllString(text[loc[0]:loc[1]], ""))
		last = loc[1]
	}
	b.WriteString(textDisallowed.ReplaceAllString(text[last:], ""))

	clean := NeutralizeDelimiters(b.String())
	clean = spaceRuns.ReplaceAllString(clean, " ")
	clean = blankRuns.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(truncateRunes(clean, max))
}

// SanitizeURL keeps only URL characters; whitespace cannot survive so a URL
// can never open a new prompt line.
func SanitizeURL(u string) string {
	clean := urlDisallowed.ReplaceAllString(strings.TrimSpace(u), "")
	return truncateRunes(clean, MaxURLLength)
}

// NeutralizeDelimiters collapses dash runs so page content cannot forge an
// ad boundary.
func NeutralizeDelimiters(text string) string {
	return delimiterRun.ReplaceAllString(text, "-")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
