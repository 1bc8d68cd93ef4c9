package discovery

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractListingLinks fetches a listing page and returns the absolute URLs
// of anchors matching pattern, in first-seen order, deduplicated and capped
// at max (max <= 0 means no cap). Pagination is not followed.
func ExtractListingLinks(ctx context.Context, f Fetcher, pageURL string, pattern *regexp.Regexp, max int) ([]string, error) {
	doc, err := f.FetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return ListingLinks(doc, pageURL, pattern, max), nil
}

// ListingLinks does the work of ExtractListingLinks on an already parsed
// page. A nil pattern accepts every http(s) link.
func ListingLinks(doc *goquery.Document, pageURL string, pattern *regexp.Regexp, max int) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []string

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}

		ref, err := base.Parse(href)
		if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
			return true
		}
		full := ref.String()

		if seen[full] {
			return true
		}
		if pattern != nil && !pattern.MatchString(full) {
			return true
		}

		seen[full] = true
		out = append(out, full)

		return max <= 0 || len(out) < max
	})

	return out
}
