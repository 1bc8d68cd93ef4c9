package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsharvest/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned bodies by URL and 404s everything else.
type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*fetcher.Response, error) {
	s.calls = append(s.calls, url)
	body, ok := s.pages[url]
	if !ok {
		return nil, &fetcher.FetchError{URL: url, StatusCode: http.StatusNotFound, Err: fetcher.ErrHTTPStatus}
	}
	return &fetcher.Response{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (s *stubFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := s.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
}

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title>
<item><title>First story headline</title><link>https://example.com/a</link></item>
<item><title>Second story headline</title><link>https://example.com/b</link></item>
</channel></rss>`

// TestDiscoverFeeds_AdvertisedLinks verifies <link type=...rss...> discovery
func TestDiscoverFeeds_AdvertisedLinks(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.com/news/": `<html><head>
			<link rel="alternate" type="application/rss+xml" href="/feed.xml">
			<link rel="alternate" type="application/RSS+XML" href="https://cdn.example.com/all.rss">
			<link rel="alternate" type="application/rss+xml" href="/feed.xml">
			<link rel="stylesheet" type="text/css" href="/style.css">
		</head><body></body></html>`,
	}}

	feeds, err := DiscoverFeeds(context.Background(), f, "https://example.com/news/")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/feed.xml",
		"https://cdn.example.com/all.rss",
	}, feeds)
}

// TestDiscoverFeeds_GuessesConventionalPaths verifies the six guesses are
// produced when the page advertises nothing
func TestDiscoverFeeds_GuessesConventionalPaths(t *testing.T) {
	tests := []struct {
		name string
		seed string
		base string
	}{
		{name: "root with slash", seed: "https://example.com/", base: "https://example.com/"},
		{name: "root without slash", seed: "https://example.com", base: "https://example.com/"},
		{name: "section path", seed: "https://example.com/ai", base: "https://example.com/ai/"},
		{name: "query dropped", seed: "https://example.com/blog/?utm_source=x", base: "https://example.com/blog/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{pages: map[string]string{
				tt.seed: `<html><head><title>No feeds here</title></head></html>`,
			}}

			feeds, err := DiscoverFeeds(context.Background(), f, tt.seed)
			require.NoError(t, err)

			expected := make([]string, 0, len(FeedPathGuesses))
			for _, g := range FeedPathGuesses {
				expected = append(expected, tt.base+g)
			}
			assert.Equal(t, expected, feeds)
			assert.Len(t, feeds, 6)
		})
	}
}

// TestDiscoverFeeds_SeedFetchFails verifies the fetch error is returned
func TestDiscoverFeeds_SeedFetchFails(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{}}

	feeds, err := DiscoverFeeds(context.Background(), f, "https://example.com/")
	assert.Nil(t, feeds)

	var fetchErr *fetcher.FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

// TestParseFeed_Valid verifies a feed with entries parses
func TestParseFeed_Valid(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://example.com/feed": rssFixture}}

	feed, err := ParseFeed(context.Background(), f, "https://example.com/feed")
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "First story headline", feed.Items[0].Title)
}

// TestParseFeed_Malformed verifies garbage becomes a ParseError
func TestParseFeed_Malformed(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://example.com/feed": "this is not a feed"}}

	_, err := ParseFeed(context.Background(), f, "https://example.com/feed")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "https://example.com/feed", parseErr.URL)
}

// TestParseFeed_Empty verifies a feed without entries is a ParseError
func TestParseFeed_Empty(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.com/feed": `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`,
	}}

	_, err := ParseFeed(context.Background(), f, "https://example.com/feed")
	assert.ErrorIs(t, err, ErrEmptyFeed)
}

// TestParseFeed_ThroughHTTP verifies ParseFeed against a real server and
// fetcher client
func TestParseFeed_ThroughHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer server.Close()

	client := fetcher.New(fetcher.Options{HostInterval: -1})
	feed, err := ParseFeed(context.Background(), client, server.URL+"/feed")
	require.NoError(t, err)
	assert.Len(t, feed.Items, 2)
}

// TestExtractListingLinks_FilterOrderDedupeCap verifies the listing scraper
func TestExtractListingLinks_FilterOrderDedupeCap(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://www.example.com/technology/": `<html><body>
			<a href="/technology/story-one/">One</a>
			<a href="/about">About</a>
			<a href="https://www.example.com/technology/story-two">Two</a>
			<a href="/technology/story-one/">One again</a>
			<a href="mailto:desk@example.com">Mail</a>
			<a href="/technology/story-three?ref=home">Three (query)</a>
			<a href="/technology/story-four">Four</a>
			<a href="/technology/story-five">Five</a>
		</body></html>`,
	}}
	pattern := regexp.MustCompile(`^https?://www\.example\.com/technology/[^#?]+/?$`)

	links, err := ExtractListingLinks(context.Background(), f, "https://www.example.com/technology/", pattern, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.example.com/technology/story-one/",
		"https://www.example.com/technology/story-two",
		"https://www.example.com/technology/story-four",
	}, links)
}

// TestListingLinks_NilPatternNoCap verifies every http(s) link is kept
func TestListingLinks_NilPatternNoCap(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<a href="/a">a</a><a href="/b">b</a><a href="javascript:void(0)">x</a>`))
	require.NoError(t, err)

	links := ListingLinks(doc, "https://example.com/", nil, 0)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, links)
}
