package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/newsfeed"
)

// loadSettings resolves settings with precedence:
// 1. Environment variables (highest priority)
// 2. Settings file (-settings, or ~/.newsharvest/config.yaml)
// 3. Default values (lowest priority)
// Command-line flags are applied on top by the caller.
func loadSettings(path string) *config.FileConfig {
	var (
		fileCfg *config.FileConfig
		err     error
	)
	if path != "" {
		fileCfg, err = config.LoadConfigFileFrom(path)
	} else {
		fileCfg, err = config.LoadConfigFile()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load settings file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Continuing with defaults and environment variables...\n\n")
	}

	cfg := config.Merge(config.Defaults(), fileCfg)
	applyEnv(cfg)
	return cfg
}

// applyEnv overlays NEWSHARVEST_* environment variables onto cfg.
func applyEnv(cfg *config.FileConfig) {
	h := &cfg.HTTP
	h.Timeout = getEnvDuration("NEWSHARVEST_TIMEOUT", h.Timeout)
	h.UserAgent = getEnv("NEWSHARVEST_USER_AGENT", h.UserAgent)
	h.HostInterval = getEnvDuration("NEWSHARVEST_HOST_INTERVAL", h.HostInterval)
	h.RespectRobots = getEnvBool("NEWSHARVEST_RESPECT_ROBOTS", h.RespectRobots)

	hv := &cfg.Harvest
	hv.CategoriesFile = getEnv("NEWSHARVEST_CATEGORIES_FILE", hv.CategoriesFile)
	hv.MaxArticles = getEnvInt("NEWSHARVEST_MAX_ARTICLES", hv.MaxArticles)
	hv.SourceConcurrency = getEnvInt("NEWSHARVEST_SOURCE_CONCURRENCY", hv.SourceConcurrency)
	hv.ArticleConcurrency = getEnvInt("NEWSHARVEST_ARTICLE_CONCURRENCY", hv.ArticleConcurrency)
	hv.RunTimeout = getEnvDuration("NEWSHARVEST_RUN_TIMEOUT", hv.RunTimeout)
	aiOnly := hv.AIOnly == nil || *hv.AIOnly
	aiOnly = getEnvBool("NEWSHARVEST_AI_ONLY", aiOnly)
	hv.AIOnly = &aiOnly
	hv.WordBoundary = getEnvBool("NEWSHARVEST_WORD_BOUNDARY", hv.WordBoundary)
	hv.ReadabilityFallback = getEnvBool("NEWSHARVEST_READABILITY", hv.ReadabilityFallback)

	cfg.Storage.Type = getEnv("NEWSHARVEST_STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.DSN = getEnv("NEWSHARVEST_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Log.Level = getEnv("NEWSHARVEST_LOG_LEVEL", cfg.Log.Level)
}

// newLogger returns a text logger on stderr at the named level. Unknown
// levels fall back to info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openStore opens the configured report store. The returned close function
// is always safe to call.
func openStore(cfg config.StorageConfig) (newsfeed.Store, func(), error) {
	switch cfg.Type {
	case "", "file":
		store, err := newsfeed.NewFileStore(cfg.DSN)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil
	case "sqlite":
		store, err := newsfeed.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	}
	return nil, func() {}, fmt.Errorf("unknown storage type %q (want file or sqlite)", cfg.Type)
}
