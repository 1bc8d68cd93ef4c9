package newsharvest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/newsfeed"
	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/sources"
	"golang.org/x/sync/errgroup"
)

// StrategyRunner runs one discovery strategy for a source and returns at
// most maxArticles articles. An error means the strategy failed outright; an empty
// slice with a nil error means it found nothing.
type StrategyRunner interface {
	Run(ctx context.Context, src sources.SourceConfig, strategy sources.Strategy, maxArticles int) ([]newsfeed.Article, error)
}

// Pipeline is the StrategyRunner that talks to the network. It is safe for
// concurrent use.
type Pipeline struct {
	fetcher   discovery.Fetcher
	extractor *scraper.Extractor
	config    *Config
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. A nil extractor gets the default one and
// a nil config gets DefaultConfig.
func NewPipeline(f discovery.Fetcher, extractor *scraper.Extractor, config *Config) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if extractor == nil {
		extractor = scraper.NewExtractor(scraper.ExtractorOptions{Logger: config.logger()})
	}

	return &Pipeline{
		fetcher:   f,
		extractor: extractor,
		config:    config,
		logger:    config.logger(),
	}
}

// Run implements StrategyRunner.
func (p *Pipeline) Run(ctx context.Context, src sources.SourceConfig, strategy sources.Strategy, maxArticles int) ([]newsfeed.Article, error) {
	switch strategy.Kind {
	case sources.KindFeed:
		return p.runFeed(ctx, src, strategy.URL, maxArticles)
	case sources.KindAutoDiscover:
		return p.runAutoDiscover(ctx, src, strategy.URL, maxArticles)
	case sources.KindScrape:
		return p.runScrape(ctx, src, strategy, maxArticles)
	}
	return nil, fmt.Errorf("%w: %q", sources.ErrUnknownStrategy, strategy.Kind)
}

// runFeed maps the first maxArticles feed entries to articles and fetches
// each article's page for its body. A page that cannot be fetched leaves the
// content empty.
func (p *Pipeline) runFeed(ctx context.Context, src sources.SourceConfig, feedURL string, maxArticles int) ([]newsfeed.Article, error) {
	feed, err := discovery.ParseFeed(ctx, p.fetcher, feedURL)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if len(items) > maxArticles {
		items = items[:maxArticles]
	}

	var candidates []newsfeed.Article
	for _, item := range items {
		if a, ok := FeedItemToArticle(item, src, p.config); ok {
			candidates = append(candidates, a)
		}
	}

	extractor := p.extractor.WithProfile(src.Key, src.Selectors)
	bodies := forEach(ctx, p.config.ArticleConcurrency, len(candidates), func(ctx context.Context, i int) *string {
		body := p.fetchBody(ctx, extractor, src, candidates[i].URL)
		return &body
	})
	for i := range candidates {
		if bodies[i] != nil {
			candidates[i].Content = *bodies[i]
		}
	}

	return candidates, nil
}

// runAutoDiscover tries each feed the seed page leads to and returns the
// first one that yields articles.
func (p *Pipeline) runAutoDiscover(ctx context.Context, src sources.SourceConfig, seedURL string, maxArticles int) ([]newsfeed.Article, error) {
	feeds, err := discovery.DiscoverFeeds(ctx, p.fetcher, seedURL)
	if err != nil {
		return nil, err
	}

	for _, feedURL := range feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		articles, err := p.runFeed(ctx, src, feedURL, maxArticles)
		if err != nil {
			p.logger.Debug("discovered feed failed", "source", src.Key, "feed", feedURL, "error", err)
			continue
		}
		if len(articles) > 0 {
			p.logger.Debug("using discovered feed", "source", src.Key, "feed", feedURL)
			return articles, nil
		}
	}

	return nil, nil
}

// runScrape collects up to three candidate links per wanted article from
// the listing page and scrapes them in order until maxArticles are kept.
// Each round fetches only as many pages as are still missing.
func (p *Pipeline) runScrape(ctx context.Context, src sources.SourceConfig, strategy sources.Strategy, maxArticles int) ([]newsfeed.Article, error) {
	links, err := discovery.ExtractListingLinks(ctx, p.fetcher, strategy.URL, strategy.LinkPattern, maxArticles*3)
	if err != nil {
		return nil, err
	}

	extractor := p.extractor.WithProfile(src.Key, src.Selectors)

	var out []newsfeed.Article
	next := 0
	for next < len(links) && len(out) < maxArticles {
		if err := ctx.Err(); err != nil {
			return out, nil
		}

		n := min(maxArticles-len(out), len(links)-next)
		batch := links[next : next+n]
		next += n

		results := forEach(ctx, p.config.ArticleConcurrency, len(batch), func(ctx context.Context, i int) *newsfeed.Article {
			a, err := p.scrapeArticle(ctx, extractor, src, batch[i])
			if err != nil {
				p.logger.Debug("skipping article", "source", src.Key, "url", batch[i], "error", err)
				return nil
			}
			return a
		})
		for _, a := range results {
			if a != nil && len(out) < maxArticles {
				out = append(out, *a)
			}
		}
	}

	return out, nil
}

// scrapeArticle builds an article from its own page.
func (p *Pipeline) scrapeArticle(ctx context.Context, extractor *scraper.Extractor, src sources.SourceConfig, pageURL string) (*newsfeed.Article, error) {
	doc, err := p.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	meta := scraper.ExtractMeta(doc, pageURL)
	if len([]rune(meta.Title)) < p.config.MinTitleLen {
		return nil, &scraper.NoContentError{URL: pageURL, Field: "title"}
	}

	link := meta.Canonical
	if link == "" {
		link = pageURL
	}

	return &newsfeed.Article{
		Title:         meta.Title,
		Description:   scraper.Clamp(meta.Description, p.config.DescriptionCap),
		URL:           link,
		Source:        src.Name,
		Category:      src.Category,
		PublishedDate: meta.Published,
		Author:        meta.Author,
		Content:       extractor.ExtractBody(doc, src.Key),
	}, nil
}

func (p *Pipeline) fetchBody(ctx context.Context, extractor *scraper.Extractor, src sources.SourceConfig, pageURL string) string {
	doc, err := p.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		p.logger.Debug("article page unavailable", "source", src.Key, "url", pageURL, "error", err)
		return ""
	}
	body, err := extractor.RequireBody(doc, src.Key, pageURL)
	if err != nil {
		p.logger.Debug("article page has no body", "source", src.Key, "url", pageURL, "error", err)
	}
	return body
}

// forEach runs fn for 0..n-1 with at most limit calls in flight. Results
// keep their index; a call that never ran leaves nil.
func forEach[T any](ctx context.Context, limit, n int, fn func(context.Context, int) *T) []*T {
	results := make([]*T, n)

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
