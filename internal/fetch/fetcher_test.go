package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medialib/internal/catalog"
)

func testConfig() Config {
	return Config{
		UserAgent:   "test-agent",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: 10 * time.Millisecond,
	}
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.UserAgent())
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := New(testConfig(), nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", string(body))
}

func TestFetchRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := New(testConfig(), nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "recovered", string(body))
	require.EqualValues(t, 3, calls.Load())
}

func TestFetchExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.BackoffBase = 30 * time.Millisecond

	f := New(cfg, nil)
	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *catalog.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, srv.URL, fetchErr.URL)
	require.EqualValues(t, 3, calls.Load(), "all attempts must be consumed before giving up")
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond,
		"two inter-attempt delays of base and 2x base")
}

func TestFetchHonorsCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("should not be fetched"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(catalog.ErrStopped)

	f := New(testConfig(), nil)
	_, err := f.Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, catalog.ErrStopped)
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.BackoffBase = 5 * time.Second

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel(catalog.ErrStopped)
	}()

	f := New(cfg, nil)
	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, catalog.ErrStopped)
	require.Less(t, time.Since(start), time.Second, "backoff sleep must end early on cancellation")
}

func TestHostLimiterUnlimitedByDefault(t *testing.T) {
	l := newHostLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://example.org/page"))
	}
	require.Less(t, time.Since(start), time.Second)
}
