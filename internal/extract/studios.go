// Package extract parses the target site's HTML documents into catalog
// records. Extractors never fetch; they operate on raw bodies handed to
// them by the orchestrator.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"medialib/internal/catalog"
)

// Extractor holds the site-specific selector knobs shared by the three
// extraction entry points.
type Extractor struct {
	// CategoryPath is the href segment an anchor must contain to qualify
	// as a studio link, e.g. "/category/".
	CategoryPath string
	// EmbedHosts is the allowlist of embed player hosts recognized on
	// detail pages.
	EmbedHosts []string
}

// New builds an Extractor with defaults for the observed site.
func New() *Extractor {
	return &Extractor{
		CategoryPath: "/category/",
		EmbedHosts:   []string{"74k.io", "88z.io"},
	}
}

// Studios scans the navigation/footer region for studio links. Anchors
// qualify only with non-empty visible text and an href containing the
// category path segment. Duplicates are allowed here; the store
// de-duplicates via upsert-by-URL. A page with no matches yields an empty
// slice, never an error.
func (e *Extractor) Studios(html []byte) []catalog.StudioCandidate {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var studios []catalog.StudioCandidate
	firstMatch(doc, ".footer-widget .menu a", ".footer-widget a").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if name != "" && href != "" && strings.Contains(href, e.CategoryPath) {
			studios = append(studios, catalog.StudioCandidate{Name: name, URL: href})
		}
	})
	return studios
}

// parseDoc is shared by the extractors that must surface parse failures.
func parseDoc(html []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
