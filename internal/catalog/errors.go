package catalog

import (
	"errors"
	"fmt"
)

// ErrStopped signals that the cooperative stop latch was observed before
// the next unit of work started. Already-completed upserts stay committed.
var ErrStopped = errors.New("crawl stopped")

// ErrNotFound is returned by store lookups for unknown identities.
var ErrNotFound = errors.New("not found")

// FetchError wraps the last underlying error after retries are exhausted.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// ParseError signals that a page defeated both the primary and fallback
// selectors for a required field.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}
