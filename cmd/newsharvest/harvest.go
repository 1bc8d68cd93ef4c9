package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/fetcher"
	"github.com/pevans/newsharvest/newsfeed"
	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/sources"
)

// handleHarvest runs a harvest and returns the process exit code.
func handleHarvest(args []string) int {
	fs := flag.NewFlagSet("newsharvest", flag.ExitOnError)
	fs.Usage = printUsage
	categoriesFile := fs.String("config", "", "Categories file")
	settingsFile := fs.String("settings", "", "Settings file")
	var categories stringList
	fs.Var(&categories, "category", "Category to harvest (repeatable)")
	listCategories := fs.Bool("list-categories", false, "List configured categories and exit")
	maxArticles := fs.Int("max-articles", 0, "Articles per source")
	output := fs.String("output", "", "Report directory or database")
	toStdout := fs.Bool("stdout", false, "Print the aggregate JSON document to stdout")
	noSave := fs.Bool("no-save", false, "Do not write reports")
	builtin := fs.Bool("builtin", false, "Add the built-in sources to the configured categories")
	all := fs.Bool("all", false, "Disable the AI-only filter")
	fs.Parse(args)

	cfg := loadSettings(*settingsFile)
	if *categoriesFile != "" {
		cfg.Harvest.CategoriesFile = *categoriesFile
	}
	if *maxArticles > 0 {
		cfg.Harvest.MaxArticles = *maxArticles
	}
	if *output != "" {
		cfg.Storage.DSN = *output
	}
	if *all {
		off := false
		cfg.Harvest.AIOnly = &off
	}

	logger := newLogger(cfg.Log.Level)

	catalog := loadCatalog(cfg.Harvest.CategoriesFile, *builtin)

	if *listCategories {
		printCategories(os.Stdout, catalog)
		return 0
	}

	srcs, ok := selectSources(os.Stderr, catalog, categories)
	if !ok {
		return 1
	}
	if len(srcs) == 0 {
		logger.Warn("no sources configured", "categories_file", cfg.Harvest.CategoriesFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Harvest.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Harvest.RunTimeout)
		defer cancel()
	}

	result := newHarvester(cfg, logger).Harvest(ctx, srcs)
	if ctx.Err() != nil {
		logger.Warn("harvest interrupted, keeping completed sources", "error", ctx.Err())
	}

	if !*noSave {
		store, closeStore, err := openStore(cfg.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open report storage: %v\n", err)
			return 1
		}
		err = newsfeed.SaveAll(store, result)
		closeStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save reports: %v\n", err)
			return 1
		}
	}

	if *toStdout {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to marshal JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	}

	printSummary(os.Stderr, result, cfg.Storage, !*noSave)

	if err := newsharvest.RequireArticles(result); err != nil {
		if errors.Is(err, newsharvest.ErrNoArticles) {
			fmt.Fprintln(os.Stderr, "No articles found.")
			return 2
		}
		return 1
	}
	return 0
}

// selectSources resolves the named categories. Unknown names are reported
// as warnings along with the available categories and contribute nothing;
// ok is false only when names were given and none of them resolved.
func selectSources(w io.Writer, catalog *sources.Catalog, names []string) ([]sources.SourceConfig, bool) {
	srcs, errs := catalog.Select(names)
	if len(errs) == 0 {
		return srcs, true
	}

	for _, err := range errs {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
	fmt.Fprintln(w)
	printCategories(w, catalog)

	if len(srcs) == 0 {
		fmt.Fprintln(w, "Error: no known categories selected")
		return nil, false
	}
	return srcs, true
}

// loadCatalog reads the categories file. A file that cannot be read is
// reported and the run continues with no sources. With builtin set, the
// built-in sources are merged into the file's categories, or used alone
// when the file is unusable.
func loadCatalog(path string, builtin bool) *sources.Catalog {
	catalog, entryErrs, err := sources.LoadFile(path)
	if err != nil {
		if builtin {
			return sources.Builtin()
		}
		fmt.Fprintf(os.Stderr, "Error: failed to load categories: %v\n", err)
		return &sources.Catalog{}
	}
	for _, e := range entryErrs {
		fmt.Fprintf(os.Stderr, "Warning: skipping %v\n", e)
	}
	if builtin {
		return catalog.Merge(sources.Builtin())
	}
	return catalog
}

// newHarvester wires the fetcher, extractor and pipeline from settings.
func newHarvester(cfg *config.FileConfig, logger *slog.Logger) *newsharvest.Harvester {
	client := fetcher.New(fetcher.Options{
		Timeout:       cfg.HTTP.Timeout,
		UserAgent:     cfg.HTTP.UserAgent,
		HostInterval:  cfg.HTTP.HostInterval,
		RespectRobots: cfg.HTTP.RespectRobots,
		Logger:        logger,
	})

	extractor := scraper.NewExtractor(scraper.ExtractorOptions{
		MinWords:            cfg.Harvest.MinParagraphWords,
		BodyCap:             cfg.Harvest.BodyCap,
		ReadabilityFallback: cfg.Harvest.ReadabilityFallback,
		Logger:              logger,
	})

	hc := &newsharvest.Config{
		MaxArticles:        cfg.Harvest.MaxArticles,
		SourceConcurrency:  cfg.Harvest.SourceConcurrency,
		ArticleConcurrency: cfg.Harvest.ArticleConcurrency,
		AIOnly:             cfg.Harvest.AIOnly == nil || *cfg.Harvest.AIOnly,
		Filter:             newsharvest.NewKeywordFilter(nil, cfg.Harvest.WordBoundary),
		MinTitleLen:        cfg.Harvest.MinTitleLen,
		DescriptionCap:     cfg.Harvest.DescriptionCap,
		Logger:             logger,
	}

	return newsharvest.New(newsharvest.NewPipeline(client, extractor, hc), hc)
}
