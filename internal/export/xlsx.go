// Package export writes catalog snapshots to spreadsheet files for
// offline review.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"medialib/internal/catalog"
)

const (
	studiosSheet = "Studios"
	videosSheet  = "Videos"
)

// Workbook renders the full catalog into a single .xlsx file with one
// sheet for studios and one for videos.
func Workbook(ctx context.Context, store catalog.Store, path string) error {
	studios, err := store.ListStudios(ctx)
	if err != nil {
		return fmt.Errorf("listing studios: %w", err)
	}
	videos, err := store.ListVideos(ctx, catalog.VideoFilter{})
	if err != nil {
		return fmt.Errorf("listing videos: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", studiosSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(videosSheet); err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}

	if err := writeStudios(f, studios); err != nil {
		return err
	}
	if err := writeVideos(f, videos); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeStudios(f *excelize.File, studios []catalog.Studio) error {
	header := []any{"Name", "URL", "Source Listing", "Video Count", "Created At"}
	if err := f.SetSheetRow(studiosSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing studio header: %w", err)
	}
	for i, s := range studios {
		row := []any{s.Name, s.URL, s.SourceListingURL, s.VideoCount, s.CreatedAt}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(studiosSheet, cell, &row); err != nil {
			return fmt.Errorf("writing studio row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeVideos(f *excelize.File, videos []catalog.Video) error {
	header := []any{
		"Title", "URL", "Studio", "Duration", "Views", "Rating",
		"Tags", "Streaming URL", "Final Media URL", "Created At",
	}
	if err := f.SetSheetRow(videosSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing video header: %w", err)
	}
	for i, v := range videos {
		row := []any{
			v.Title, v.URL, v.StudioURL, v.Duration, v.ViewCount, v.Rating,
			strings.Join(v.Tags, ", "), v.StreamingURL, v.FinalMediaURL, v.CreatedAt,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(videosSheet, cell, &row); err != nil {
			return fmt.Errorf("writing video row %d: %w", i+2, err)
		}
	}
	return nil
}
