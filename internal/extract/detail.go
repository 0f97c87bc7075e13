package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"medialib/internal/catalog"
)

// Detail parses a video detail page. The title is the only required
// field: when both the schema-typed heading and the first h1 are empty,
// the page is considered unrecoverable and a ParseError is returned.
func (e *Extractor) Detail(pageURL string, html []byte) (catalog.VideoDetail, error) {
	doc, err := parseDoc(html)
	if err != nil {
		return catalog.VideoDetail{}, &catalog.ParseError{URL: pageURL, Reason: err.Error()}
	}

	title := firstText(doc, `h1[itemprop="name"] span`, "h1")
	if title == "" {
		return catalog.VideoDetail{}, &catalog.ParseError{URL: pageURL, Reason: "no title found"}
	}

	poster, _ := doc.Find("img").First().Attr("src")
	views, _ := strconv.Atoi(digits(doc.Find(".views-infos").First().Text()))

	detail := catalog.VideoDetail{
		Title:          title,
		PosterImageURL: poster,
		Duration:       strings.TrimSpace(doc.Find(".time-infos").First().Text()),
		ViewCount:      views,
		Rating:         firstText(doc, ".rating", ".rating-infos"),
	}

	doc.Find("#cat-tag a").Each(func(_ int, s *goquery.Selection) {
		if tag := strings.TrimSpace(s.Text()); tag != "" {
			detail.Tags = append(detail.Tags, tag)
		}
	})

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		for _, host := range e.EmbedHosts {
			if strings.Contains(src, host) {
				detail.IframeCandidates = append(detail.IframeCandidates, src)
				return
			}
		}
	})

	return detail, nil
}
