// Package resolve follows embed-iframe URLs one hop to the first directly
// playable media URL.
package resolve

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"medialib/internal/catalog"
	"medialib/internal/metrics"
)

// Resolver fetches embed pages via the shared Fetcher and scans them for
// direct media URLs.
type Resolver struct {
	fetcher   catalog.Fetcher
	extension string
	literalRe *regexp.Regexp
	logger    *zap.Logger
}

// New builds a Resolver recognizing URLs with the given media extension
// (".mp4" when empty).
func New(fetcher catalog.Fetcher, extension string, logger *zap.Logger) *Resolver {
	if extension == "" {
		extension = ".mp4"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher:   fetcher,
		extension: extension,
		literalRe: regexp.MustCompile(`["']([^"']*` + regexp.QuoteMeta(extension) + `[^"']*)["']`),
		logger:    logger,
	}
}

// Resolve iterates candidates in priority order and returns the first
// direct media URL found. Exhaustion and cooperative cancellation both
// yield an empty string with no error: the caller leaves the video
// unresolved and a later sweep retries it.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) (string, error) {
	for _, embedURL := range candidates {
		if ctx.Err() != nil {
			metrics.ObserveResolve("miss")
			return "", nil
		}

		body, err := r.fetcher.Fetch(ctx, embedURL)
		if err != nil {
			r.logger.Warn("embed page fetch failed", zap.String("url", embedURL), zap.Error(err))
			metrics.ObserveResolve("error")
			continue
		}

		if mediaURL := r.scan(body); mediaURL != "" {
			metrics.ObserveResolve("hit")
			return mediaURL, nil
		}
	}
	metrics.ObserveResolve("miss")
	return "", nil
}

// scan collects candidates from <source> tags first, then from quoted
// URL literals in inline scripts. Source tags always win.
func (r *Resolver) scan(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	var fromSources string
	doc.Find("video source").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src != "" && strings.Contains(src, r.extension) {
			fromSources = src
			return false
		}
		return true
	})
	if fromSources != "" {
		return fromSources
	}

	var fromScripts string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, match := range r.literalRe.FindAllStringSubmatch(s.Text(), -1) {
			if url := match[1]; strings.HasPrefix(url, "http") {
				fromScripts = url
				return false
			}
		}
		return true
	})
	return fromScripts
}
