package catalog

import "context"

// Fetcher retrieves a page body. It is the sole point of network I/O and
// the sole point where cancellation is sampled during a fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// VideoFilter narrows ListVideos results. Zero value means "all videos".
type VideoFilter struct {
	StudioURL      string
	UnresolvedOnly bool
	Limit          int
}

// Store is the persistence gateway. Upserts are keyed by natural URL
// identity; non-empty enrichment fields win last-write, empty ones never
// clobber stored values.
type Store interface {
	UpsertStudio(ctx context.Context, studio Studio) error
	UpsertVideo(ctx context.Context, video Video) error
	AddStudioVideoCount(ctx context.Context, studioURL string, delta int) error
	ListStudios(ctx context.Context) ([]Studio, error)
	ListVideos(ctx context.Context, filter VideoFilter) ([]Video, error)
	GetVideo(ctx context.Context, url string) (Video, error)
}

// BlobStore archives raw page bodies and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes catalog events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
