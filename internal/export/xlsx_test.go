package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"medialib/internal/catalog"
	storemem "medialib/internal/store/memory"
)

func TestWorkbookWritesBothSheets(t *testing.T) {
	ctx := context.Background()
	store := storemem.New(nil)

	require.NoError(t, store.UpsertStudio(ctx, catalog.Studio{
		URL: "https://example.org/category/alpha/", Name: "Alpha",
	}))
	require.NoError(t, store.UpsertVideo(ctx, catalog.Video{
		URL:   "https://example.org/video-1/",
		Title: "Video One",
		Tags:  []string{"a", "b"},
	}))

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, Workbook(ctx, store, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.ElementsMatch(t, []string{"Studios", "Videos"}, f.GetSheetList())

	name, err := f.GetCellValue("Studios", "A2")
	require.NoError(t, err)
	require.Equal(t, "Alpha", name)

	title, err := f.GetCellValue("Videos", "A2")
	require.NoError(t, err)
	require.Equal(t, "Video One", title)

	tags, err := f.GetCellValue("Videos", "G2")
	require.NoError(t, err)
	require.Equal(t, "a, b", tags)
}
