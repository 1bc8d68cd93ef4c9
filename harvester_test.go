package newsharvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pevans/newsharvest/newsfeed"
	"github.com/pevans/newsharvest/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner answers strategies by URL and counts calls.
type stubRunner struct {
	mu      sync.Mutex
	results map[string][]newsfeed.Article
	errs    map[string]error
	panics  map[string]bool
	calls   map[string]int
	block   map[string]chan struct{}
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		results: map[string][]newsfeed.Article{},
		errs:    map[string]error{},
		panics:  map[string]bool{},
		calls:   map[string]int{},
		block:   map[string]chan struct{}{},
	}
}

func (s *stubRunner) Run(ctx context.Context, src sources.SourceConfig, strategy sources.Strategy, maxArticles int) ([]newsfeed.Article, error) {
	s.mu.Lock()
	s.calls[strategy.URL]++
	res, err, boom, wait := s.results[strategy.URL], s.errs[strategy.URL], s.panics[strategy.URL], s.block[strategy.URL]
	s.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if boom {
		panic("boom")
	}
	if len(res) > maxArticles {
		res = res[:maxArticles]
	}
	return res, err
}

func (s *stubRunner) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// Test helper: build n articles with distinct URLs under prefix
func makeArticles(prefix string, n int) []newsfeed.Article {
	var out []newsfeed.Article
	for i := 0; i < n; i++ {
		out = append(out, newsfeed.Article{
			Title: fmt.Sprintf("%s machine learning story %d", prefix, i),
			URL:   fmt.Sprintf("https://%s.example.com/%d", prefix, i),
		})
	}
	return out
}

// Test helper: a quiet harvester over runner
func newTestHarvester(runner StrategyRunner, mutate func(*Config)) *Harvester {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if mutate != nil {
		mutate(cfg)
	}
	h := New(runner, cfg)
	h.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return h
}

func source(key, category string, strategies ...sources.Strategy) sources.SourceConfig {
	return sources.SourceConfig{Key: key, Name: key + " News", Category: category, Strategies: strategies}
}

// TestHarvestSource_FirstSuccessWins verifies later strategies are not run
func TestHarvestSource_FirstSuccessWins(t *testing.T) {
	runner := newStubRunner()
	runner.results["https://a.example.com/feed"] = makeArticles("a", 3)
	runner.results["https://a.example.com/"] = makeArticles("b", 3)

	h := newTestHarvester(runner, nil)
	src := source("a", "AI/Technology",
		sources.Feed("https://a.example.com/feed"),
		sources.AutoDiscover("https://a.example.com/"))

	outcome, articles := h.HarvestSource(context.Background(), src)

	assert.Len(t, articles, 3)
	assert.Equal(t, "feed", outcome.Strategy)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, 1, runner.callCount("https://a.example.com/feed"))
	assert.Equal(t, 0, runner.callCount("https://a.example.com/"))
}

// TestHarvestSource_FallsThrough verifies errors and empty results move on
func TestHarvestSource_FallsThrough(t *testing.T) {
	runner := newStubRunner()
	runner.errs["https://a.example.com/feed"] = errors.New("503")
	runner.results["https://a.example.com/"] = nil
	runner.results["https://a.example.com/news"] = makeArticles("a", 2)

	h := newTestHarvester(runner, nil)
	src := source("a", "AI/Research",
		sources.Feed("https://a.example.com/feed"),
		sources.AutoDiscover("https://a.example.com/"),
		sources.Scrape("https://a.example.com/news", sources.DefaultLinkPattern))

	outcome, articles := h.HarvestSource(context.Background(), src)

	assert.Len(t, articles, 2)
	assert.Equal(t, "scrape", outcome.Strategy)
	for _, u := range []string{"https://a.example.com/feed", "https://a.example.com/", "https://a.example.com/news"} {
		assert.Equal(t, 1, runner.callCount(u), u)
	}
}

// TestHarvestSource_AllFail verifies a source with nothing is reported
func TestHarvestSource_AllFail(t *testing.T) {
	runner := newStubRunner()
	runner.errs["https://a.example.com/feed"] = errors.New("boom")

	h := newTestHarvester(runner, nil)
	outcome, articles := h.HarvestSource(context.Background(), source("a", "AI/Research", sources.Feed("https://a.example.com/feed")))

	assert.Empty(t, articles)
	assert.Empty(t, outcome.Strategy)
	assert.Equal(t, "all strategies failed", outcome.Error)
}

// TestHarvestSource_StrategyPanic verifies a panicking strategy is skipped
func TestHarvestSource_StrategyPanic(t *testing.T) {
	runner := newStubRunner()
	runner.panics["https://a.example.com/feed"] = true
	runner.results["https://a.example.com/"] = makeArticles("a", 1)

	h := newTestHarvester(runner, nil)
	outcome, articles := h.HarvestSource(context.Background(), source("a", "AI/Research",
		sources.Feed("https://a.example.com/feed"),
		sources.AutoDiscover("https://a.example.com/")))

	assert.Len(t, articles, 1)
	assert.Equal(t, "autodiscover", outcome.Strategy)
}

// TestHarvestSource_AIFilter verifies the filter only applies to Technology
func TestHarvestSource_AIFilter(t *testing.T) {
	gpu := []newsfeed.Article{{Title: "New GPU card released", URL: "https://hw.example.com/gpu"}}

	runner := newStubRunner()
	runner.results["https://hw.example.com/feed"] = gpu

	h := newTestHarvester(runner, nil)

	_, articles := h.HarvestSource(context.Background(), source("hw", "Technology", sources.Feed("https://hw.example.com/feed")))
	assert.Empty(t, articles, "general technology requires an AI keyword")

	_, articles = h.HarvestSource(context.Background(), source("hw", "AI/Technology", sources.Feed("https://hw.example.com/feed")))
	assert.Len(t, articles, 1, "AI categories are not filtered")

	off := newTestHarvester(runner, func(c *Config) { c.AIOnly = false })
	_, articles = off.HarvestSource(context.Background(), source("hw", "Technology", sources.Feed("https://hw.example.com/feed")))
	assert.Len(t, articles, 1, "filter disabled")
}

// TestHarvestSource_FilteredToNothingFallsThrough verifies the next strategy runs
func TestHarvestSource_FilteredToNothingFallsThrough(t *testing.T) {
	runner := newStubRunner()
	runner.results["https://hw.example.com/feed"] = []newsfeed.Article{{Title: "New GPU card released", URL: "https://hw.example.com/gpu"}}
	runner.results["https://hw.example.com/"] = []newsfeed.Article{{Title: "OpenAI opens an office", URL: "https://hw.example.com/openai"}}

	h := newTestHarvester(runner, nil)
	outcome, articles := h.HarvestSource(context.Background(), source("hw", "Technology",
		sources.Feed("https://hw.example.com/feed"),
		sources.AutoDiscover("https://hw.example.com/")))

	require.Len(t, articles, 1)
	assert.Equal(t, "https://hw.example.com/openai", articles[0].URL)
	assert.Equal(t, "autodiscover", outcome.Strategy)
}

// TestHarvestSource_OutputRules verifies short titles and missing links are dropped
func TestHarvestSource_OutputRules(t *testing.T) {
	runner := newStubRunner()
	runner.results["https://a.example.com/feed"] = []newsfeed.Article{
		{Title: "Tiny", URL: "https://a.example.com/1"},
		{Title: "No link but a long title"},
		{Title: "A proper AI headline", URL: "https://a.example.com/2", Category: "Wrong"},
	}

	h := newTestHarvester(runner, nil)
	_, articles := h.HarvestSource(context.Background(), source("a", "AI/Research", sources.Feed("https://a.example.com/feed")))

	require.Len(t, articles, 1)
	assert.Equal(t, "https://a.example.com/2", articles[0].URL)
	assert.Equal(t, "AI/Research", articles[0].Category, "category always comes from the source")
	assert.Equal(t, "a News", articles[0].Source)
}

// TestHarvestSource_Cap verifies at most MaxArticles articles per source
func TestHarvestSource_Cap(t *testing.T) {
	runner := newStubRunner()
	runner.results["https://a.example.com/feed"] = makeArticles("a", 20)

	h := newTestHarvester(runner, func(c *Config) { c.MaxArticles = 5 })
	_, articles := h.HarvestSource(context.Background(), source("a", "AI/Research", sources.Feed("https://a.example.com/feed")))

	assert.Len(t, articles, 5)
}

// TestHarvest_ConfigOrder verifies categories and articles follow source order
func TestHarvest_ConfigOrder(t *testing.T) {
	runner := newStubRunner()
	slow := make(chan struct{})
	runner.block["https://first.example.com/feed"] = slow
	runner.results["https://first.example.com/feed"] = makeArticles("first", 2)
	runner.results["https://second.example.com/feed"] = makeArticles("second", 2)
	runner.results["https://third.example.com/feed"] = makeArticles("third", 1)

	srcs := []sources.SourceConfig{
		source("first", "AI/Research", sources.Feed("https://first.example.com/feed")),
		source("second", "AI/Technology", sources.Feed("https://second.example.com/feed")),
		source("third", "AI/Research", sources.Feed("https://third.example.com/feed")),
	}

	// Let the later sources finish first.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(slow)
	}()

	h := newTestHarvester(runner, nil)
	result := h.Harvest(context.Background(), srcs)

	assert.Equal(t, []string{"AI/Research", "AI/Technology"}, result.Categories())
	research := result.Articles("AI/Research")
	require.Len(t, research, 3)
	assert.Equal(t, "https://first.example.com/0", research[0].URL)
	assert.Equal(t, "https://third.example.com/0", research[2].URL)
	assert.Equal(t, 5, result.Total())

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, "first", result.Outcomes[0].Key)
	assert.Equal(t, "third", result.Outcomes[2].Key)
}

// TestHarvest_EmptyCategoryKept verifies a category with nothing is still reported
func TestHarvest_EmptyCategoryKept(t *testing.T) {
	runner := newStubRunner()
	runner.errs["https://down.example.com/feed"] = errors.New("offline")
	runner.results["https://up.example.com/feed"] = makeArticles("up", 1)

	h := newTestHarvester(runner, nil)
	result := h.Harvest(context.Background(), []sources.SourceConfig{
		source("down", "AI/Trends", sources.Feed("https://down.example.com/feed")),
		source("up", "AI/Research", sources.Feed("https://up.example.com/feed")),
	})

	assert.Equal(t, []string{"AI/Trends", "AI/Research"}, result.Categories())
	assert.Empty(t, result.Articles("AI/Trends"))
	assert.NoError(t, RequireArticles(result))
}

// TestHarvest_DedupesAcrossSources verifies one URL per category
func TestHarvest_DedupesAcrossSources(t *testing.T) {
	runner := newStubRunner()
	shared := makeArticles("shared", 2)
	runner.results["https://one.example.com/feed"] = shared
	runner.results["https://two.example.com/feed"] = shared

	h := newTestHarvester(runner, nil)
	result := h.Harvest(context.Background(), []sources.SourceConfig{
		source("one", "AI/Research", sources.Feed("https://one.example.com/feed")),
		source("two", "AI/Research", sources.Feed("https://two.example.com/feed")),
	})

	assert.Equal(t, 2, result.Total())
	assert.Equal(t, 2, result.Outcomes[0].Articles)
	assert.Equal(t, 0, result.Outcomes[1].Articles)
}

// TestHarvest_PanicIsolation verifies a panicking source does not stop the others
func TestHarvest_PanicIsolation(t *testing.T) {
	runner := newStubRunner()
	runner.results["https://bad.example.com/feed"] = makeArticles("bad", 1)
	runner.results["https://ok.example.com/feed"] = makeArticles("ok", 2)

	h := newTestHarvester(runner, nil)
	// Without a filter, filtering the Technology source panics after its
	// strategy has returned.
	h.filter = nil

	result := h.Harvest(context.Background(), []sources.SourceConfig{
		source("bad", "Technology", sources.Feed("https://bad.example.com/feed")),
		source("ok", "AI/Research", sources.Feed("https://ok.example.com/feed")),
	})

	assert.Equal(t, 2, result.Total())
	require.Len(t, result.Outcomes, 2)
	assert.Contains(t, result.Outcomes[0].Error, "panic")
	assert.Empty(t, result.Outcomes[1].Error)
}

// TestHarvest_Cancelled verifies finished sources survive cancellation
func TestHarvest_Cancelled(t *testing.T) {
	runner := newStubRunner()
	runner.results["https://fast.example.com/feed"] = makeArticles("fast", 2)
	runner.block["https://slow.example.com/feed"] = make(chan struct{})

	h := newTestHarvester(runner, func(c *Config) { c.SourceConcurrency = 2 })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result := h.Harvest(ctx, []sources.SourceConfig{
		source("fast", "AI/Research", sources.Feed("https://fast.example.com/feed")),
		source("slow", "AI/Trends", sources.Feed("https://slow.example.com/feed")),
	})

	assert.Len(t, result.Articles("AI/Research"), 2)
	assert.Empty(t, result.Articles("AI/Trends"))
	require.Len(t, result.Outcomes, 2)
	assert.NotEmpty(t, result.Outcomes[1].Error)
}

// TestRequireArticles verifies an empty run is reported
func TestRequireArticles(t *testing.T) {
	h := newTestHarvester(newStubRunner(), nil)
	result := h.Harvest(context.Background(), []sources.SourceConfig{
		source("a", "AI/Research", sources.Feed("https://a.example.com/feed")),
	})

	assert.ErrorIs(t, RequireArticles(result), ErrNoArticles)
	assert.Equal(t, []string{"AI/Research"}, result.Categories())
}
