// Package newsharvest collects recent news articles, grouped by category,
// from a configured set of sources. Each source lists discovery strategies
// (a direct feed, feed autodiscovery from a homepage, or scraping a listing
// page) that are tried in order until one yields articles.
package newsharvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pevans/newsharvest/newsfeed"
	"github.com/pevans/newsharvest/sources"
	"golang.org/x/sync/errgroup"
)

// ErrNoArticles is returned by RequireArticles when a run collected
// nothing at all.
var ErrNoArticles = errors.New("no articles collected")

// Config holds harvest settings.
type Config struct {
	// Per-source article cap.
	MaxArticles int
	// Sources harvested at the same time.
	SourceConcurrency int
	// Article pages fetched at the same time within one strategy.
	ArticleConcurrency int
	// Apply the AI keyword filter to general technology categories.
	AIOnly bool
	// Filter used when AIOnly is set; nil means DefaultAIKeywords.
	Filter         *KeywordFilter
	MinTitleLen    int
	DescriptionCap int
	Logger         *slog.Logger
}

// DefaultConfig returns the default harvest configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxArticles:        8,
		SourceConcurrency:  4,
		ArticleConcurrency: 2,
		AIOnly:             true,
		MinTitleLen:        6,
		DescriptionCap:     300,
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Harvester runs sources through their strategies and assembles the
// results.
type Harvester struct {
	runner StrategyRunner
	config *Config
	filter *KeywordFilter
	logger *slog.Logger
	now    func() time.Time
}

// New creates a harvester. A nil config gets DefaultConfig.
func New(runner StrategyRunner, config *Config) *Harvester {
	if config == nil {
		config = DefaultConfig()
	}

	filter := config.Filter
	if filter == nil {
		filter = NewKeywordFilter(nil, false)
	}

	return &Harvester{
		runner: runner,
		config: config,
		filter: filter,
		logger: config.logger(),
		now:    time.Now,
	}
}

type sourceResult struct {
	outcome  newsfeed.SourceOutcome
	articles []newsfeed.Article
}

// Harvest processes every source, at most SourceConcurrency at a time, and
// returns the combined result. Categories and articles appear in source
// order regardless of which source finished first, and every category
// named by a source is present even when it ended up empty. A failing or
// panicking source never affects the others. When ctx is cancelled,
// sources that already finished keep their articles and the rest are
// recorded with the cancellation error.
func (h *Harvester) Harvest(ctx context.Context, srcs []sources.SourceConfig) *newsfeed.RunResult {
	result := newsfeed.NewRunResult(h.now())
	for _, src := range srcs {
		result.EnsureCategory(src.Category)
	}

	h.logger.Info("harvest started", "run_id", result.RunID, "sources", len(srcs))

	results := make([]sourceResult, len(srcs))
	started := make([]bool, len(srcs))

	var g errgroup.Group
	g.SetLimit(max(h.config.SourceConcurrency, 1))
	for i, src := range srcs {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			results[i] = h.harvestIsolated(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range srcs {
		r := results[i]
		if !started[i] {
			r.outcome = newOutcome(src)
			r.outcome.Error = ctx.Err().Error()
		}
		result.Record(r.outcome, r.articles)
	}

	h.logger.Info("harvest finished",
		"run_id", result.RunID,
		"articles", result.Total(),
		"categories", len(result.Categories()),
		"elapsed", time.Since(result.ScrapedAt).Round(time.Millisecond))

	return result
}

func (h *Harvester) harvestIsolated(ctx context.Context, src sources.SourceConfig) (r sourceResult) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("source panicked", "source", src.Key, "panic", p)
			r = sourceResult{outcome: newOutcome(src)}
			r.outcome.Error = fmt.Sprintf("panic: %v", p)
		}
	}()

	outcome, articles := h.HarvestSource(ctx, src)
	return sourceResult{outcome: outcome, articles: articles}
}

// HarvestSource tries src's strategies in order and returns the articles of
// the first one that yields any after filtering. A strategy that errors
// or panics is logged and counts as having found nothing.
func (h *Harvester) HarvestSource(ctx context.Context, src sources.SourceConfig) (newsfeed.SourceOutcome, []newsfeed.Article) {
	outcome := newOutcome(src)
	log := h.logger.With("source", src.Key, "category", src.Category)

	for _, strategy := range src.Strategies {
		if err := ctx.Err(); err != nil {
			outcome.Error = err.Error()
			return outcome, nil
		}

		articles, err := h.runStrategy(ctx, src, strategy)
		if err != nil {
			log.Warn("strategy failed", "strategy", strategy.String(), "error", err)
			continue
		}

		articles = h.accept(src, articles)
		if len(articles) == 0 {
			log.Info("strategy found no articles", "strategy", strategy.String())
			continue
		}

		log.Info("strategy succeeded", "strategy", strategy.String(), "articles", len(articles))
		outcome.Strategy = string(strategy.Kind)
		outcome.Articles = len(articles)
		return outcome, articles
	}

	if err := ctx.Err(); err != nil {
		outcome.Error = err.Error()
	} else {
		outcome.Error = "all strategies failed"
	}
	log.Warn("no articles from source", "strategies", len(src.Strategies))
	return outcome, nil
}

func (h *Harvester) runStrategy(ctx context.Context, src sources.SourceConfig, strategy sources.Strategy) (articles []newsfeed.Article, err error) {
	defer func() {
		if p := recover(); p != nil {
			articles, err = nil, fmt.Errorf("strategy panicked: %v", p)
		}
	}()
	return h.runner.Run(ctx, src, strategy, h.config.MaxArticles)
}

// accept drops articles that break the output rules, applies the AI filter
// where it is due, and caps the result at MaxArticles.
func (h *Harvester) accept(src sources.SourceConfig, articles []newsfeed.Article) []newsfeed.Article {
	var out []newsfeed.Article
	for _, a := range articles {
		if a.URL == "" || len([]rune(a.Title)) < h.config.MinTitleLen {
			continue
		}
		a.Category = src.Category
		if a.Source == "" {
			a.Source = src.Name
		}
		out = append(out, a)
	}

	if h.config.AIOnly && AppliesTo(src.Category) {
		before := len(out)
		out = h.filter.Apply(out)
		if dropped := before - len(out); dropped > 0 {
			h.logger.Debug("AI filter dropped articles", "source", src.Key, "dropped", dropped)
		}
	}

	if len(out) > h.config.MaxArticles {
		out = out[:h.config.MaxArticles]
	}
	return out
}

func newOutcome(src sources.SourceConfig) newsfeed.SourceOutcome {
	return newsfeed.SourceOutcome{
		Key:      src.Key,
		Name:     src.Name,
		Category: src.Category,
	}
}

// RequireArticles returns ErrNoArticles when result holds no articles.
func RequireArticles(result *newsfeed.RunResult) error {
	if result.Total() == 0 {
		return ErrNoArticles
	}
	return nil
}
