// Package fetch implements the catalog Fetcher using gocolly, with a
// browser-like header set and bounded exponential-backoff retry.
package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"medialib/internal/catalog"
	"medialib/internal/metrics"
)

// Config controls fetcher behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	PerHostRPS  float64
}

// Fetcher implements catalog.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       *hostLimiter
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       newHostLimiter(cfg.PerHostRPS),
		logger:        logger,
	}
}

// Fetch performs up to MaxAttempts GETs for url, sleeping
// BackoffBase * 2^attempt between failures. Cancellation is sampled
// before every attempt and during the backoff sleep.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.ObserveFetch(url, false, time.Since(start))
			return nil, context.Cause(ctx)
		}
		if attempt > 0 {
			metrics.IncFetchRetry()
		}

		if err := f.limiter.Wait(ctx, url); err != nil {
			metrics.ObserveFetch(url, false, time.Since(start))
			if cause := context.Cause(ctx); cause != nil {
				return nil, cause
			}
			return nil, &catalog.FetchError{URL: url, Cause: err}
		}

		body, err := f.attempt(ctx, url)
		if err == nil {
			metrics.ObserveFetch(url, true, time.Since(start))
			return body, nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", f.cfg.MaxAttempts),
			zap.Error(err),
		)

		if attempt < f.cfg.MaxAttempts-1 {
			backoff := f.cfg.BackoffBase << attempt
			if stopped := sleep(ctx, backoff); stopped {
				metrics.ObserveFetch(url, false, time.Since(start))
				return nil, context.Cause(ctx)
			}
		}
	}

	metrics.ObserveFetch(url, false, time.Since(start))
	return nil, &catalog.FetchError{URL: url, Cause: lastErr}
}

// attempt runs one GET through a cloned collector.
func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, values := range browserHeaders() {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case err := <-done:
		if err != nil {
			return nil, err
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		return body, nil
	}
}

// sleep waits for d, returning true if the context finished first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
