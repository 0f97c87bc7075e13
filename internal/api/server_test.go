package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"medialib/internal/catalog"
	"medialib/internal/crawl"
	"medialib/internal/extract"
	"medialib/internal/resolve"
	storemem "medialib/internal/store/memory"
)

type noRouteFetcher struct{}

func (noRouteFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	return nil, &catalog.FetchError{URL: u, Cause: errors.New("no route")}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *storemem.Store) {
	t.Helper()
	store := storemem.New(nil)
	fetcher := noRouteFetcher{}
	orch := crawl.New(crawl.Config{BaseURL: "https://example.org"},
		fetcher, extract.New(), resolve.New(fetcher, "", nil), store, nil, nil, nil, nil)
	return NewServer(store, orch, nil, cfg), store
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rec := doRequest(s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListStudios(t *testing.T) {
	s, store := newTestServer(t, Config{})
	require.NoError(t, store.UpsertStudio(context.Background(),
		catalog.Studio{URL: "https://example.org/category/alpha/", Name: "Alpha"}))

	rec := doRequest(s, http.MethodGet, "/api/studios")
	require.Equal(t, http.StatusOK, rec.Code)

	var studios []catalog.Studio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &studios))
	require.Len(t, studios, 1)
	require.Equal(t, "Alpha", studios[0].Name)
}

func TestGetVideoByEscapedIdentity(t *testing.T) {
	s, store := newTestServer(t, Config{})
	videoURL := "https://example.org/video-one/"
	require.NoError(t, store.UpsertVideo(context.Background(),
		catalog.Video{URL: videoURL, Title: "Video One"}))

	rec := doRequest(s, http.MethodGet, "/api/videos/"+url.QueryEscape(videoURL))
	require.Equal(t, http.StatusOK, rec.Code)

	var video catalog.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &video))
	require.Equal(t, "Video One", video.Title)
}

func TestGetVideoNotFound(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rec := doRequest(s, http.MethodGet, "/api/videos/"+url.QueryEscape("https://example.org/missing/"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStreamRequiresResolvedVideo(t *testing.T) {
	s, store := newTestServer(t, Config{})
	unresolved := "https://example.org/pending/"
	resolved := "https://example.org/done/"
	require.NoError(t, store.UpsertVideo(context.Background(), catalog.Video{URL: unresolved, Title: "P"}))
	require.NoError(t, store.UpsertVideo(context.Background(), catalog.Video{
		URL: resolved, Title: "D",
		StreamingURL:  "https://74k.io/embed/x",
		FinalMediaURL: "https://m.example.org/x.mp4",
	}))

	rec := doRequest(s, http.MethodGet, "/api/stream/"+url.QueryEscape(unresolved))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/stream/"+url.QueryEscape(resolved))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "https://74k.io/embed/x", payload["streaming_url"])
	require.Equal(t, "https://m.example.org/x.mp4", payload["final_media_url"])
}

func TestListVideosUnresolvedQuery(t *testing.T) {
	s, store := newTestServer(t, Config{})
	require.NoError(t, store.UpsertVideo(context.Background(),
		catalog.Video{URL: "a", Title: "A", StreamingURL: "https://74k.io/x"}))
	require.NoError(t, store.UpsertVideo(context.Background(), catalog.Video{URL: "b", Title: "B"}))

	rec := doRequest(s, http.MethodGet, "/api/videos?unresolved=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var videos []catalog.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &videos))
	require.Len(t, videos, 1)
	require.Equal(t, "b", videos[0].URL)
}

func TestScrapeTriggersReturnAccepted(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := doRequest(s, http.MethodPost, "/api/scrape/studios")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(s, http.MethodPost,
		"/api/scrape/videos/"+url.QueryEscape("https://example.org/category/alpha/"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/scrape/enrich")
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestScrapeStopFlipsOrchestrator(t *testing.T) {
	store := storemem.New(nil)
	fetcher := noRouteFetcher{}
	orch := crawl.New(crawl.Config{BaseURL: "https://example.org"},
		fetcher, extract.New(), resolve.New(fetcher, "", nil), store, nil, nil, nil, nil)
	s := NewServer(store, orch, nil, Config{})

	rec := doRequest(s, http.MethodPost, "/api/scrape/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, orch.Stopped())
}

func TestAPIKeyMiddleware(t *testing.T) {
	s, _ := newTestServer(t, Config{AuthEnabled: true, APIKey: "secret"})

	rec := doRequest(s, http.MethodGet, "/api/studios")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/studios", nil)
	req.Header.Set("X-API-Key", "secret")
	ok := httptest.NewRecorder()
	s.Handler().ServeHTTP(ok, req)
	require.Equal(t, http.StatusOK, ok.Code)
}
