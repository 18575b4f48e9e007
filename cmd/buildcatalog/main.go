package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/build"
	"github.com/gapcatalog/builder/internal/config"
	"github.com/gapcatalog/builder/internal/database"
	"github.com/gapcatalog/builder/internal/migrations"
	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/ratelimit"
	"github.com/gapcatalog/builder/internal/repositories"
	"github.com/gapcatalog/builder/internal/resolve"
	"github.com/gapcatalog/builder/internal/seeds"
	"github.com/gapcatalog/builder/internal/sources/dbgapftp"
	"github.com/gapcatalog/builder/internal/sources/gap"
	"github.com/gapcatalog/builder/internal/sources/sra"
)

func main() {
	ids := flag.String("ids", "", "Comma-separated study accessions to build instead of the full archive listing")
	schedule := flag.String("schedule", "", "Cron expression for repeated builds (overrides CATALOG_SCHEDULE)")
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

	if *schedule != "" {
		cfg.Schedule = *schedule
	}
	subset := splitIDs(*ids)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule == "" {
		if err := runBuild(ctx, cfg, logger, subset); err != nil {
			logger.Fatal("catalog build failed", zap.Error(err))
		}
		return
	}

	runOnce := func() {
		if err := runBuild(ctx, cfg, logger, subset); err != nil {
			logger.Error("catalog build failed", zap.Error(err))
		}
	}

	// First build right away, then on the schedule.
	runOnce()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, runOnce); err != nil {
		logger.Fatal("invalid schedule", zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	scheduler.Start()
	logger.Info("build scheduler started", zap.String("schedule", cfg.Schedule))

	<-ctx.Done()
	logger.Info("shutting down")
	<-scheduler.Stop().Done()
}

// splitIDs turns the -ids flag into a subset, nil when unset.
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// runBuild assembles the source clients, runs one sequential build, writes
// the JSON artifacts, and mirrors the result into SQLite.
func runBuild(ctx context.Context, cfg *config.Config, logger *zap.Logger, subset []string) error {
	limits, err := ratelimit.LoadSourceConfigsFile(cfg.RateLimitsFile)
	if err != nil {
		return fmt.Errorf("load rate limits: %w", err)
	}

	seed, err := seeds.LoadStudyCSV(cfg.StudiesCSV)
	if err != nil {
		return fmt.Errorf("load study csv: %w", err)
	}

	platforms := loadPlatforms(cfg.PlatformsFile, logger)
	registry := loadRegistry(cfg.RegistryFile, logger)

	// E-utilities clients share one limiter so the pacing budget holds
	// across the summary and sequencing endpoints.
	eutils := ratelimit.NewLimiter(limits.For("eutils"))
	archive := dbgapftp.NewClient(cfg.FTPBaseURL, ratelimit.NewLimiter(limits.For("dbgap_ftp")))
	summary := gap.NewClient(cfg.EutilsBaseURL, eutils, cfg.EutilsTool, cfg.EutilsEmail, cfg.EutilsAPIKey)
	sequence := sra.NewClient(cfg.EutilsBaseURL, eutils, cfg.EutilsTool, cfg.EutilsEmail, cfg.EutilsAPIKey)

	resolver, err := resolve.New(archive, summary, sequence, seed, resolve.Options{
		Platforms:           platforms,
		RegistryLinks:       registry,
		MaxDescriptionRunes: cfg.MaxDescriptionRunes,
	})
	if err != nil {
		return err
	}

	builder := build.New(archive, resolver, logger, build.Options{
		Platforms:     platforms,
		ProgressEvery: cfg.ProgressEvery,
	})

	var res *build.Result
	if len(subset) > 0 {
		res, err = builder.BuildSubset(ctx, subset)
	} else {
		res, err = builder.Build(ctx)
	}
	if err != nil {
		return err
	}

	if err := build.WriteStudies(filepath.Join(cfg.OutDir, "studies.json"), res.Studies); err != nil {
		return err
	}
	if err := build.WritePlatformView(filepath.Join(cfg.OutDir, "platforms.json"), res.Studies); err != nil {
		return err
	}
	logger.Info("catalog artifacts written",
		zap.String("dir", cfg.OutDir),
		zap.Int("studies", len(res.Studies)))

	return persist(ctx, cfg, logger, res, platforms)
}

// loadPlatforms reads the platform seed, warning instead of failing when the
// file is absent so a fresh checkout can still build.
func loadPlatforms(path string, logger *zap.Logger) map[string][]string {
	platforms, err := seeds.LoadPlatforms(path)
	if err != nil {
		logger.Warn("platform seed unavailable, continuing without memberships",
			zap.String("path", path), zap.Error(err))
		return map[string][]string{}
	}
	return platforms
}

// loadRegistry reads the trial-registry links, warning instead of failing
// when the file is absent.
func loadRegistry(path string, logger *zap.Logger) map[string]string {
	links, err := seeds.LoadRegistryLinks(path)
	if err != nil {
		logger.Warn("registry links unavailable, continuing without them",
			zap.String("path", path), zap.Error(err))
		return map[string]string{}
	}
	return links
}

// persist mirrors the catalog into SQLite and records the run.
func persist(ctx context.Context, cfg *config.Config, logger *zap.Logger, res *build.Result, platforms map[string][]string) error {
	db, err := database.Open(cfg.DBPath, cfg.DBDebug)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if err := repositories.UpsertStudies(ctx, db, res.Studies); err != nil {
		return fmt.Errorf("upsert studies: %w", err)
	}

	var assignments []*models.PlatformAssignment
	for id, tags := range platforms {
		for _, tag := range tags {
			assignments = append(assignments, &models.PlatformAssignment{DbGapID: id, Platform: tag})
		}
	}
	if err := repositories.UpsertPlatformAssignments(ctx, db, assignments); err != nil {
		return fmt.Errorf("upsert platform assignments: %w", err)
	}

	run := res.Run(time.Now().UTC().Format("20060102-150405"))
	snapshot, err := cfg.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot config: %w", err)
	}
	run.ConfigSnapshot = &snapshot
	if err := repositories.SaveBuildRun(ctx, db, run); err != nil {
		return fmt.Errorf("save build run: %w", err)
	}

	logger.Info("catalog persisted",
		zap.String("db", cfg.DBPath),
		zap.String("runId", run.RunID),
		zap.Int("studies", len(res.Studies)))
	return nil
}
