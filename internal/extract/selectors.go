package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// firstMatch tries each selector in order and returns the first non-empty
// selection. Schema drift on the target site is mitigated by listing the
// historical selector variants after the current one.
func firstMatch(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if s := doc.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return doc.Find(selectors[len(selectors)-1])
}

// firstText returns the trimmed text of the first selector that yields a
// non-empty string.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// digits strips every non-digit rune from s.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
