// Package postgres provides the Postgres-backed Store implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medialib/internal/catalog"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists the catalog in Postgres using natural-key upserts.
type Store struct {
	pool pgxIface
}

// New creates a Store backed by a new connection pool.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool pgxIface) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the catalog tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS studios (
	url TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	source_listing_url TEXT NOT NULL DEFAULT '',
	video_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS videos (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	studio_url TEXT NOT NULL DEFAULT '',
	poster_image_url TEXT NOT NULL DEFAULT '',
	duration TEXT NOT NULL DEFAULT '',
	view_count INTEGER NOT NULL DEFAULT 0,
	rating TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	streaming_url TEXT NOT NULL DEFAULT '',
	final_media_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS videos_studio_url_idx ON videos (studio_url);
CREATE INDEX IF NOT EXISTS videos_unresolved_idx ON videos (created_at) WHERE streaming_url = '';
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertStudio inserts or refreshes a studio row. Non-empty incoming
// fields win; video_count stays untouched on conflict.
func (s *Store) UpsertStudio(ctx context.Context, studio catalog.Studio) error {
	const query = `
INSERT INTO studios (url, name, source_listing_url, video_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (url) DO UPDATE SET
	name = COALESCE(NULLIF(NULLIF(EXCLUDED.name, ''), 'Unknown'), studios.name),
	source_listing_url = COALESCE(NULLIF(EXCLUDED.source_listing_url, ''), studios.source_listing_url)
`
	if _, err := s.pool.Exec(ctx, query,
		studio.URL, studio.Name, studio.SourceListingURL, studio.VideoCount,
	); err != nil {
		return fmt.Errorf("upsert studio: %w", err)
	}
	return nil
}

// UpsertVideo inserts or merges a video row. Empty enrichment fields
// never clobber stored values.
func (s *Store) UpsertVideo(ctx context.Context, video catalog.Video) error {
	const query = `
INSERT INTO videos (
	url, title, studio_url, poster_image_url, duration,
	view_count, rating, tags, streaming_url, final_media_url
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (url) DO UPDATE SET
	title = COALESCE(NULLIF(EXCLUDED.title, ''), videos.title),
	studio_url = COALESCE(NULLIF(EXCLUDED.studio_url, ''), videos.studio_url),
	poster_image_url = COALESCE(NULLIF(EXCLUDED.poster_image_url, ''), videos.poster_image_url),
	duration = COALESCE(NULLIF(EXCLUDED.duration, ''), videos.duration),
	view_count = CASE WHEN EXCLUDED.view_count > 0 THEN EXCLUDED.view_count ELSE videos.view_count END,
	rating = COALESCE(NULLIF(EXCLUDED.rating, ''), videos.rating),
	tags = CASE WHEN cardinality(EXCLUDED.tags) > 0 THEN EXCLUDED.tags ELSE videos.tags END,
	streaming_url = COALESCE(NULLIF(EXCLUDED.streaming_url, ''), videos.streaming_url),
	final_media_url = COALESCE(NULLIF(EXCLUDED.final_media_url, ''), videos.final_media_url)
`
	tags := video.Tags
	if tags == nil {
		tags = []string{}
	}
	if _, err := s.pool.Exec(ctx, query,
		video.URL, video.Title, video.StudioURL, video.PosterImageURL, video.Duration,
		video.ViewCount, video.Rating, tags, video.StreamingURL, video.FinalMediaURL,
	); err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}
	return nil
}

// AddStudioVideoCount additively bumps a studio's video count.
func (s *Store) AddStudioVideoCount(ctx context.Context, studioURL string, delta int) error {
	const query = `UPDATE studios SET video_count = video_count + $2 WHERE url = $1`
	tag, err := s.pool.Exec(ctx, query, studioURL, delta)
	if err != nil {
		return fmt.Errorf("update studio video count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// ListStudios returns all studios ordered by name.
func (s *Store) ListStudios(ctx context.Context) ([]catalog.Studio, error) {
	const query = `
SELECT url, name, source_listing_url, video_count, created_at
FROM studios ORDER BY name`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list studios: %w", err)
	}
	defer rows.Close()

	var out []catalog.Studio
	for rows.Next() {
		var st catalog.Studio
		if err := rows.Scan(&st.URL, &st.Name, &st.SourceListingURL, &st.VideoCount, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate studios: %w", err)
	}
	return out, nil
}

// ListVideos returns videos matching the filter, newest first.
func (s *Store) ListVideos(ctx context.Context, filter catalog.VideoFilter) ([]catalog.Video, error) {
	query := `
SELECT url, title, studio_url, poster_image_url, duration,
	view_count, rating, tags, streaming_url, final_media_url, created_at
FROM videos WHERE 1=1`
	var args []any
	if filter.StudioURL != "" {
		args = append(args, filter.StudioURL)
		query += fmt.Sprintf(" AND studio_url = $%d", len(args))
	}
	if filter.UnresolvedOnly {
		query += " AND streaming_url = ''"
	}
	query += " ORDER BY created_at DESC, url"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var out []catalog.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return out, nil
}

// GetVideo fetches one video by URL.
func (s *Store) GetVideo(ctx context.Context, url string) (catalog.Video, error) {
	const query = `
SELECT url, title, studio_url, poster_image_url, duration,
	view_count, rating, tags, streaming_url, final_media_url, created_at
FROM videos WHERE url = $1`
	v, err := scanVideo(s.pool.QueryRow(ctx, query, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Video{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Video{}, err
	}
	return v, nil
}

func scanVideo(row pgx.Row) (catalog.Video, error) {
	var v catalog.Video
	if err := row.Scan(
		&v.URL, &v.Title, &v.StudioURL, &v.PosterImageURL, &v.Duration,
		&v.ViewCount, &v.Rating, &v.Tags, &v.StreamingURL, &v.FinalMediaURL, &v.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Video{}, err
		}
		return catalog.Video{}, fmt.Errorf("scan video: %w", err)
	}
	return v, nil
}

var _ catalog.Store = (*Store)(nil)
