// Package seed supplies the static studio seed list used when discovery
// yields nothing (or before a first crawl has run).
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"medialib/internal/catalog"
)

// Load reads a JSON seed file: an array of {"name": ..., "url": ...}
// objects. An empty path returns the built-in defaults.
func Load(path string) ([]catalog.Studio, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var entries []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	studios := make([]catalog.Studio, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.URL == "" {
			continue
		}
		studios = append(studios, catalog.Studio{Name: e.Name, URL: e.URL, SourceListingURL: e.URL})
	}
	return studios, nil
}

// Default returns the known-good studio listing URLs observed on the
// target site, used to bootstrap empty catalogs.
func Default() []catalog.Studio {
	return []catalog.Studio{
		{Name: "8TeenBoy", URL: "https://gay.xtapes.in/category/372149/", SourceListingURL: "https://gay.xtapes.in/category/372149/"},
		{Name: "ActiveDuty", URL: "https://gay.xtapes.in/category/243876/", SourceListingURL: "https://gay.xtapes.in/category/243876/"},
		{Name: "Ayor", URL: "https://gay.xtapes.in/category/30884/", SourceListingURL: "https://gay.xtapes.in/category/30884/"},
	}
}
