package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/newsharvest/api"
	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/newsfeed"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fileCfg, err := config.LoadConfigFile()
	if err != nil {
		logger.Warn("failed to load settings file, using defaults", "error", err)
	}
	cfg := config.Merge(config.Defaults(), fileCfg)

	storageType := getEnv("NEWSHARVEST_STORAGE_TYPE", cfg.Storage.Type)
	dsn := getEnv("NEWSHARVEST_STORAGE_DSN", cfg.Storage.DSN)
	addr := getEnv("NEWSHARVEST_API_ADDR", "localhost:8080")

	var store newsfeed.Store
	switch storageType {
	case "sqlite":
		s, err := newsfeed.NewSQLiteStore(dsn)
		if err != nil {
			logger.Error("failed to open report database", "dsn", dsn, "error", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	default:
		s, err := newsfeed.NewFileStore(dsn)
		if err != nil {
			logger.Error("failed to open report directory", "dsn", dsn, "error", err)
			os.Exit(1)
		}
		store = s
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewAPIServer(store).SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting report API", "addr", "http://"+addr+"/api/v1/categories", "storage", storageType, "dsn", dsn)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
