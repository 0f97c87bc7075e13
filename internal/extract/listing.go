package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"medialib/internal/catalog"
)

// listingContainers are the known listing markup variants, newest first.
var listingContainers = []string{"ul.videos-listing li", "ul.listing-videos li"}

// nextLinks are the known "next page" anchor variants.
var nextLinks = []string{"a.next-page", "a.next"}

// Listing parses one paginated listing document. Items missing a title or
// a detail URL are skipped silently; every other field is best-effort.
// HasNextPage is true iff a next-page link with a non-empty href exists —
// the sole pagination-termination signal.
func (e *Extractor) Listing(html []byte) catalog.ListingPage {
	var page catalog.ListingPage
	doc, err := parseDoc(html)
	if err != nil {
		return page
	}

	firstMatch(doc, listingContainers...).Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find("a span").First().Text())
		href, _ := item.Find("a").First().Attr("href")
		if title == "" || href == "" {
			return
		}

		poster, _ := item.Find("img").First().Attr("src")
		views, _ := strconv.Atoi(digits(item.Find(".views-infos").First().Text()))

		rating := strings.TrimSpace(item.Find(".rating-infos").First().Text())
		if rating == "" {
			rating = strings.TrimSpace(item.Find(".rating").First().Text())
		}

		page.Videos = append(page.Videos, catalog.VideoSummary{
			URL:            href,
			Title:          title,
			PosterImageURL: poster,
			Duration:       strings.TrimSpace(item.Find(".time-infos").First().Text()),
			ViewCount:      views,
			Rating:         rating,
		})
	})

	for _, sel := range nextLinks {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			page.HasNextPage = true
			break
		}
	}
	return page
}
