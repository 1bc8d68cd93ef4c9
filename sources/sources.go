package sources

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Custom errors for source configuration
var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrUnknownStrategy     = errors.New("strategy type must be rss, feed, autodiscover, or scrape")
	ErrMissingURL          = errors.New("url is required")
	ErrMissingLinkPattern  = errors.New("scrape strategy requires link_regex")
	ErrNoStrategies        = errors.New("source has no strategies")
	ErrMissingCategoryName = errors.New("source has no category")
)

// ConfigError reports a single malformed category or source entry. The
// entry is dropped; the rest of the configuration still loads.
type ConfigError struct {
	Entry string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config entry %q: %v", e.Entry, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Kind names a discovery strategy.
type Kind string

const (
	KindFeed         Kind = "feed"
	KindAutoDiscover Kind = "autodiscover"
	KindScrape       Kind = "scrape"
)

// ParseKind maps a configured strategy type, including its aliases, to a
// Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rss", "atom", "feed":
		return KindFeed, nil
	case "autodiscover", "auto":
		return KindAutoDiscover, nil
	case "scrape", "listing":
		return KindScrape, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Strategy is one way of finding a source's articles. URL is the feed for
// KindFeed, the seed page for KindAutoDiscover and the listing page for
// KindScrape. LinkPattern is only used by KindScrape.
type Strategy struct {
	Kind        Kind
	URL         string
	LinkPattern *regexp.Regexp
}

// Feed returns a direct feed strategy.
func Feed(feedURL string) Strategy {
	return Strategy{Kind: KindFeed, URL: feedURL}
}

// AutoDiscover returns a strategy that looks for feeds advertised by a page.
func AutoDiscover(seedURL string) Strategy {
	return Strategy{Kind: KindAutoDiscover, URL: seedURL}
}

// Scrape returns a listing page strategy.
func Scrape(listingURL string, pattern *regexp.Regexp) Strategy {
	return Strategy{Kind: KindScrape, URL: listingURL, LinkPattern: pattern}
}

func (s Strategy) String() string {
	return string(s.Kind) + " " + s.URL
}

// Validate checks that the strategy has everything its kind needs.
func (s Strategy) Validate() error {
	switch s.Kind {
	case KindFeed, KindAutoDiscover, KindScrape:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Kind)
	}
	if err := validateURL(s.URL); err != nil {
		return err
	}
	if s.Kind == KindScrape && s.LinkPattern == nil {
		return ErrMissingLinkPattern
	}
	return nil
}

// SourceConfig describes one news source: where to look, in which order,
// and which category its articles belong to. It is not modified after
// loading.
type SourceConfig struct {
	Key        string
	Name       string
	Category   string
	Strategies []Strategy
	// Body selectors tuned to this source's markup, tried before the
	// generic heuristic.
	Selectors []string
}

// Validate returns a *ConfigError describing the first problem found.
func (c SourceConfig) Validate() error {
	entry := c.Key
	if entry == "" {
		entry = c.Name
	}
	if c.Key == "" {
		return &ConfigError{Entry: entry, Err: errors.New("source key is required")}
	}
	if c.Category == "" {
		return &ConfigError{Entry: entry, Err: ErrMissingCategoryName}
	}
	if len(c.Strategies) == 0 {
		return &ConfigError{Entry: entry, Err: ErrNoStrategies}
	}
	for i, s := range c.Strategies {
		if err := s.Validate(); err != nil {
			return &ConfigError{Entry: entry, Err: fmt.Errorf("strategy %d: %w", i+1, err)}
		}
	}
	return nil
}

// DefaultLinkPattern picks article-looking links off a homepage. It matches
// the path only, so a host such as news.example.com does not match every
// link on the page.
var DefaultLinkPattern = regexp.MustCompile(`(?i)^https?://[^/]+/.*(article|news|blog)`)

// FromCategoryURL builds the source for one URL listed under a category.
// The key and name are the URL's host without a leading "www.". Strategies
// are tried in the order feed, autodiscover, scrape.
func FromCategoryURL(category, rawURL string) (SourceConfig, error) {
	if err := validateURL(rawURL); err != nil {
		return SourceConfig{}, &ConfigError{Entry: category + ": " + rawURL, Err: err}
	}
	u, _ := url.Parse(rawURL)
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	return SourceConfig{
		Key:      host,
		Name:     host,
		Category: category,
		Strategies: []Strategy{
			Feed(rawURL),
			AutoDiscover(rawURL),
			Scrape(rawURL, DefaultLinkPattern),
		},
	}, nil
}

// Keys returns the source keys in order.
func Keys(cfgs []SourceConfig) []string {
	out := make([]string, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, c.Key)
	}
	return out
}

// InCategories returns the sources whose category is one of names, in
// their original order.
func InCategories(cfgs []SourceConfig, names []string) []SourceConfig {
	var out []SourceConfig
	for _, c := range cfgs {
		if slices.Contains(names, c.Category) {
			out = append(out, c)
		}
	}
	return out
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: must be an absolute http(s) URL", raw)
	}
	return nil
}
