// Package catalog defines core types shared across subsystems.
package catalog

import "time"

// UnknownStudioName is the sentinel studio that receives videos whose
// studio could not be determined at creation time.
const UnknownStudioName = "Unknown"

// Studio is a content category identified by its listing URL.
type Studio struct {
	URL              string    `json:"url"`
	Name             string    `json:"name"`
	SourceListingURL string    `json:"source_listing_url,omitempty"`
	VideoCount       int       `json:"video_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// StudioCandidate is a studio link as observed during discovery, before
// de-duplication by the store.
type StudioCandidate struct {
	Name string
	URL  string
}

// Video is one catalog entry keyed by its detail-page URL.
type Video struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	StudioURL      string    `json:"studio_url"`
	PosterImageURL string    `json:"poster_image_url,omitempty"`
	Duration       string    `json:"duration,omitempty"`
	ViewCount      int       `json:"view_count"`
	Rating         string    `json:"rating,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	StreamingURL   string    `json:"streaming_url,omitempty"`
	FinalMediaURL  string    `json:"final_media_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Resolved reports whether the video already carries an embed URL and is
// therefore skipped by enrichment sweeps.
func (v Video) Resolved() bool {
	return v.StreamingURL != ""
}

// VideoSummary is the subset of Video fields available on a listing page.
type VideoSummary struct {
	URL            string
	Title          string
	PosterImageURL string
	Duration       string
	ViewCount      int
	Rating         string
}

// ListingPage is the result of parsing one paginated listing document.
type ListingPage struct {
	Videos      []VideoSummary
	HasNextPage bool
}

// VideoDetail carries the extended metadata parsed from a detail page.
type VideoDetail struct {
	Title            string
	PosterImageURL   string
	Duration         string
	ViewCount        int
	Rating           string
	Tags             []string
	IframeCandidates []string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
