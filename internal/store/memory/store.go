// Package memory provides an in-memory Store for development, tests and
// environments without a durable database.
package memory

import (
	"context"
	"sort"
	"sync"

	"medialib/internal/catalog"
)

// Store keeps the catalog in maps keyed by natural URL identity.
type Store struct {
	mu      sync.RWMutex
	studios map[string]catalog.Studio
	videos  map[string]catalog.Video
	clock   catalog.Clock
}

// New constructs an empty Store.
func New(clock catalog.Clock) *Store {
	if clock == nil {
		clock = catalog.SystemClock{}
	}
	return &Store{
		studios: make(map[string]catalog.Studio),
		videos:  make(map[string]catalog.Video),
		clock:   clock,
	}
}

// UpsertStudio inserts the studio or refreshes its non-empty fields.
// VideoCount is owned by AddStudioVideoCount and is never reset here.
func (s *Store) UpsertStudio(_ context.Context, studio catalog.Studio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.studios[studio.URL]
	if !ok {
		if studio.CreatedAt.IsZero() {
			studio.CreatedAt = s.clock.Now()
		}
		s.studios[studio.URL] = studio
		return nil
	}
	// The sentinel name only materializes missing rows; it never
	// replaces a real name learned from discovery.
	if studio.Name != "" && studio.Name != catalog.UnknownStudioName {
		existing.Name = studio.Name
	}
	if studio.SourceListingURL != "" {
		existing.SourceListingURL = studio.SourceListingURL
	}
	s.studios[studio.URL] = existing
	return nil
}

// UpsertVideo inserts the video or merges it into the stored record.
// Non-empty incoming fields win; empty ones never clobber stored values.
func (s *Store) UpsertVideo(_ context.Context, video catalog.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.videos[video.URL]
	if !ok {
		if video.CreatedAt.IsZero() {
			video.CreatedAt = s.clock.Now()
		}
		s.videos[video.URL] = video
		return nil
	}
	s.videos[video.URL] = merge(existing, video)
	return nil
}

func merge(dst, src catalog.Video) catalog.Video {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.StudioURL != "" {
		dst.StudioURL = src.StudioURL
	}
	if src.PosterImageURL != "" {
		dst.PosterImageURL = src.PosterImageURL
	}
	if src.Duration != "" {
		dst.Duration = src.Duration
	}
	if src.ViewCount > 0 {
		dst.ViewCount = src.ViewCount
	}
	if src.Rating != "" {
		dst.Rating = src.Rating
	}
	if len(src.Tags) > 0 {
		dst.Tags = append([]string(nil), src.Tags...)
	}
	if src.StreamingURL != "" {
		dst.StreamingURL = src.StreamingURL
	}
	if src.FinalMediaURL != "" {
		dst.FinalMediaURL = src.FinalMediaURL
	}
	return dst
}

// AddStudioVideoCount additively bumps a studio's video count.
func (s *Store) AddStudioVideoCount(_ context.Context, studioURL string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	studio, ok := s.studios[studioURL]
	if !ok {
		return catalog.ErrNotFound
	}
	studio.VideoCount += delta
	s.studios[studioURL] = studio
	return nil
}

// ListStudios returns all studios ordered by name.
func (s *Store) ListStudios(_ context.Context) ([]catalog.Studio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Studio, 0, len(s.studios))
	for _, studio := range s.studios {
		out = append(out, studio)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListVideos returns videos matching the filter, newest first.
func (s *Store) ListVideos(_ context.Context, filter catalog.VideoFilter) ([]catalog.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Video, 0, len(s.videos))
	for _, video := range s.videos {
		if filter.StudioURL != "" && video.StudioURL != filter.StudioURL {
			continue
		}
		if filter.UnresolvedOnly && video.Resolved() {
			continue
		}
		out = append(out, video)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].URL < out[j].URL
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetVideo fetches one video by URL.
func (s *Store) GetVideo(_ context.Context, url string) (catalog.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[url]
	if !ok {
		return catalog.Video{}, catalog.ErrNotFound
	}
	return video, nil
}

// Snapshot returns copies of the maps for test assertions.
func (s *Store) Snapshot() (map[string]catalog.Studio, map[string]catalog.Video) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	studios := make(map[string]catalog.Studio, len(s.studios))
	for k, v := range s.studios {
		studios[k] = v
	}
	videos := make(map[string]catalog.Video, len(s.videos))
	for k, v := range s.videos {
		videos[k] = v
	}
	return studios, videos
}

var _ catalog.Store = (*Store)(nil)
