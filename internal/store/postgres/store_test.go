package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"medialib/internal/catalog"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return mock, store
}

func TestUpsertStudioExecutesOnConflict(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	studio := catalog.Studio{
		URL:              "https://example.org/category/alpha/",
		Name:             "Alpha",
		SourceListingURL: "https://example.org/category/alpha/",
	}

	mock.ExpectExec("INSERT INTO studios").
		WithArgs(studio.URL, studio.Name, studio.SourceListingURL, studio.VideoCount).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertStudio(context.Background(), studio))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVideoPassesEmptyTagsAsEmptyArray(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	video := catalog.Video{URL: "https://example.org/v/", Title: "V", StudioURL: "s"}

	mock.ExpectExec("INSERT INTO videos").
		WithArgs(
			video.URL, video.Title, video.StudioURL, "", "",
			0, "", []string{}, "", "",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertVideo(context.Background(), video))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStudioVideoCountUnknownStudio(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	mock.ExpectExec("UPDATE studios SET video_count").
		WithArgs("missing", 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.AddStudioVideoCount(context.Background(), "missing", 3)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListVideosBuildsFilterClauses(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"url", "title", "studio_url", "poster_image_url", "duration",
		"view_count", "rating", "tags", "streaming_url", "final_media_url", "created_at",
	}).AddRow(
		"https://example.org/v/", "V", "s", "", "",
		0, "", []string{}, "", "", now,
	)

	mock.ExpectQuery("FROM videos WHERE 1=1 AND studio_url = \\$1 AND streaming_url = ''").
		WithArgs("s", 5).
		WillReturnRows(rows)

	videos, err := store.ListVideos(context.Background(), catalog.VideoFilter{
		StudioURL:      "s",
		UnresolvedOnly: true,
		Limit:          5,
	})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	require.Equal(t, "V", videos[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVideoNotFound(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	mock.ExpectQuery("FROM videos WHERE url = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetVideo(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestGetVideoScansRow(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"url", "title", "studio_url", "poster_image_url", "duration",
		"view_count", "rating", "tags", "streaming_url", "final_media_url", "created_at",
	}).AddRow(
		"https://example.org/v/", "V", "s", "p", "10:00",
		42, "90%", []string{"a"}, "https://74k.io/e", "https://m.example.org/v.mp4", now,
	)

	mock.ExpectQuery("FROM videos WHERE url = \\$1").
		WithArgs("https://example.org/v/").
		WillReturnRows(rows)

	video, err := store.GetVideo(context.Background(), "https://example.org/v/")
	require.NoError(t, err)
	require.Equal(t, 42, video.ViewCount)
	require.Equal(t, []string{"a"}, video.Tags)
	require.True(t, video.Resolved())
	require.NoError(t, mock.ExpectationsWereMet())
}
