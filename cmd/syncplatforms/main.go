package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/build"
	"github.com/gapcatalog/builder/internal/config"
	"github.com/gapcatalog/builder/internal/platforms"
	"github.com/gapcatalog/builder/internal/ratelimit"
	"github.com/gapcatalog/builder/internal/seeds"
)

func main() {
	apply := flag.Bool("apply", false, "Append newly indexed studies to the platform seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	sources := platforms.Sources(cfg.PlatformIndexes)
	if len(sources) == 0 {
		logger.Fatal("no platform indexes configured, set CATALOG_PLATFORM_INDEXES")
	}

	assigned, err := seeds.LoadPlatforms(cfg.PlatformsFile)
	if err != nil {
		logger.Warn("platform seed unavailable, treating every indexed study as new",
			zap.String("path", cfg.PlatformsFile), zap.Error(err))
		assigned = map[string][]string{}
	}

	limits, err := ratelimit.LoadSourceConfigsFile(cfg.RateLimitsFile)
	if err != nil {
		logger.Fatal("load rate limits", zap.Error(err))
	}
	client := platforms.NewClient(ratelimit.NewLimiter(limits.For("platform_index")))

	diffs, err := platforms.NewSyncer(client, logger).Sync(context.Background(), sources, assigned)
	if err != nil {
		logger.Fatal("platform sync failed", zap.Error(err))
	}

	reportPath := filepath.Join(cfg.OutDir, "platform-sync.json")
	if err := build.WriteJSON(reportPath, diffs); err != nil {
		logger.Fatal("write sync report", zap.String("path", reportPath), zap.Error(err))
	}

	pending := 0
	for _, diff := range diffs {
		pending += len(diff.New)
	}
	if pending == 0 {
		logger.Info("platform memberships up to date", zap.String("report", reportPath))
		return
	}

	if !*apply {
		logger.Info("unassigned studies found, rerun with -apply to record them",
			zap.Int("new", pending), zap.String("report", reportPath))
		return
	}

	added, err := platforms.Apply(cfg.PlatformsFile, diffs)
	if err != nil {
		logger.Fatal("apply platform diffs", zap.String("path", cfg.PlatformsFile), zap.Error(err))
	}
	logger.Info("platform seed updated",
		zap.String("path", cfg.PlatformsFile), zap.Int("added", added))
}
