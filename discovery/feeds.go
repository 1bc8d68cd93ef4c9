package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsharvest/fetcher"
)

// Fetcher is the subset of *fetcher.Client that discovery needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// FeedPathGuesses are the conventional feed locations tried, in order, when
// a page advertises no feed of its own.
var FeedPathGuesses = []string{"feed", "rss", "rss.xml", "feeds", "index.xml", "atom.xml"}

// ErrEmptyFeed is wrapped by a ParseError when a feed parsed cleanly but
// contained no entries.
var ErrEmptyFeed = errors.New("feed has no entries")

// ParseError reports a feed (or page) that was fetched but could not be
// turned into entries.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DiscoverFeeds returns candidate feed URLs for a site. Feeds advertised via
// <link type="...rss..."> win; otherwise the conventional paths are guessed
// without checking that they exist. The result is deduplicated and keeps
// first-seen order.
func DiscoverFeeds(ctx context.Context, f Fetcher, seedURL string) ([]string, error) {
	doc, err := f.FetchDocument(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	return FeedLinks(doc, seedURL), nil
}

// FeedLinks does the work of DiscoverFeeds on an already parsed page.
func FeedLinks(doc *goquery.Document, seedURL string) []string {
	base, err := url.Parse(seedURL)
	if err != nil {
		base = nil
	}

	var found []string
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || !strings.Contains(typ, "rss") {
			return
		}
		found = append(found, resolve(base, href))
	})

	if len(found) == 0 {
		found = GuessFeedURLs(seedURL)
	}

	return dedupe(found)
}

// GuessFeedURLs appends each of FeedPathGuesses to the seed URL's path,
// treating the path as a directory. Query and fragment are dropped.
func GuessFeedURLs(seedURL string) []string {
	base, err := url.Parse(seedURL)
	if err != nil {
		out := make([]string, 0, len(FeedPathGuesses))
		for _, g := range FeedPathGuesses {
			out = append(out, strings.TrimRight(seedURL, "/")+"/"+g)
		}
		return out
	}

	dir := *base
	dir.RawQuery = ""
	dir.Fragment = ""
	dir.RawPath = ""
	if !strings.HasSuffix(dir.Path, "/") {
		dir.Path += "/"
	}

	out := make([]string, 0, len(FeedPathGuesses))
	for _, g := range FeedPathGuesses {
		out = append(out, dir.ResolveReference(&url.URL{Path: g}).String())
	}
	return out
}

// ParseFeed fetches a feed through the shared fetcher (so headers and pacing
// apply) and parses it as RSS, Atom or JSON Feed. A feed that cannot be
// parsed, or parses with no entries, is reported as a *ParseError.
func ParseFeed(ctx context.Context, f Fetcher, feedURL string) (*gofeed.Feed, error) {
	resp, err := f.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &ParseError{URL: feedURL, Err: err}
	}
	if len(feed.Items) == 0 {
		return nil, &ParseError{URL: feedURL, Err: ErrEmptyFeed}
	}

	return feed, nil
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := base.Parse(href)
	if err != nil {
		return href
	}
	return ref.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
