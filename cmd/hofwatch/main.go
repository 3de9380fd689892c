// Package main wires together the hofwatch service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/api"
	"github.com/mfbot/hofwatch/internal/archive"
	gcsarchive "github.com/mfbot/hofwatch/internal/archive/gcs"
	"github.com/mfbot/hofwatch/internal/blob"
	"github.com/mfbot/hofwatch/internal/clock/system"
	"github.com/mfbot/hofwatch/internal/config"
	"github.com/mfbot/hofwatch/internal/ingest"
	"github.com/mfbot/hofwatch/internal/logging"
	"github.com/mfbot/hofwatch/internal/metrics"
	"github.com/mfbot/hofwatch/internal/publisher"
	memorypublisher "github.com/mfbot/hofwatch/internal/publisher/memory"
	pubsubpublisher "github.com/mfbot/hofwatch/internal/publisher/pubsub"
	randsystem "github.com/mfbot/hofwatch/internal/rand/system"
	"github.com/mfbot/hofwatch/internal/resolver"
	"github.com/mfbot/hofwatch/internal/scheduler"
	"github.com/mfbot/hofwatch/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeMins) * time.Minute,
	})
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema bootstrap failed", zap.Error(err))
	}

	codec, err := blob.NewCodec(cfg.Blob.ZstdLevel)
	if err != nil {
		logger.Fatal("blob codec init failed", zap.Error(err))
	}

	events, err := newEventPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("event publisher init failed", zap.Error(err))
	}
	defer func() {
		if closeErr := events.Close(); closeErr != nil {
			logger.Warn("event publisher close failed", zap.Error(closeErr))
		}
	}()

	rawArchive, err := newArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}
	defer func() {
		if closeErr := rawArchive.Close(); closeErr != nil {
			logger.Warn("archive close failed", zap.Error(closeErr))
		}
	}()

	clock := system.New()
	rng := randsystem.New()
	res := resolver.New(store, logger)
	sched := scheduler.New(store, clock, scheduler.Config{
		PlayerLease: cfg.PlayerLease(),
		HofLease:    cfg.HofLease(),
		HofCycle:    cfg.HofCycle(),
		ClaimCap:    cfg.Scheduler.ClaimCap,
		HofPageSize: cfg.Game.HofPageSize,
	}, logger)
	pipeline := ingest.New(store, res, codec, clock, rng, events, rawArchive, logger)

	server := api.NewServer(api.Deps{
		Scheduler:  sched,
		Reporter:   pipeline,
		Resolver:   res,
		Advice:     store,
		BugReports: store,
		Clock:      clock,
		Ready:      store.Ping,
	}, cfg, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}

func newEventPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (publisher.Provider, error) {
	switch cfg.Events.Provider {
	case "pubsub":
		return pubsubpublisher.New(ctx, cfg.Events.ProjectID, cfg.Events.TopicID)
	case "memory":
		return memorypublisher.New(), nil
	default:
		logger.Info("event publishing disabled")
		return publisher.NoOp{}, nil
	}
}

func newArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (archive.Provider, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		return gcsarchive.New(ctx, gcsarchive.Config{
			Bucket: cfg.Archive.GCSBucket,
			Prefix: cfg.Archive.Prefix,
		})
	default:
		logger.Info("raw report archival disabled")
		return archive.NoOp{}, nil
	}
}
