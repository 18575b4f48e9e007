package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/build"
	"github.com/gapcatalog/builder/internal/config"
	"github.com/gapcatalog/builder/internal/database"
	"github.com/gapcatalog/builder/internal/enrich"
	"github.com/gapcatalog/builder/internal/migrations"
	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/ratelimit"
	"github.com/gapcatalog/builder/internal/repositories"
	"github.com/gapcatalog/builder/internal/sources/dbgapftp"
	"github.com/gapcatalog/builder/internal/sources/pubmed"
	"github.com/gapcatalog/builder/internal/sources/reporter"
)

func main() {
	catalog := flag.String("catalog", "", "Path to studies.json (default <out dir>/studies.json)")
	skipCitations := flag.Bool("skip-citations", false, "Skip the curated-citation pass")
	skipGrants := flag.Bool("skip-grants", false, "Skip the grant-derived publication pass")
	persist := flag.Bool("db", false, "Also persist publications into the catalog database")
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

	path := *catalog
	if path == "" {
		path = filepath.Join(cfg.OutDir, "studies.json")
	}
	studies, err := build.LoadStudies(path)
	if err != nil {
		logger.Fatal("load catalog", zap.String("path", path), zap.Error(err))
	}
	logger.Info("catalog loaded", zap.String("path", path), zap.Int("studies", len(studies)))

	limits, err := ratelimit.LoadSourceConfigsFile(cfg.RateLimitsFile)
	if err != nil {
		logger.Fatal("load rate limits", zap.Error(err))
	}
	lookup := pubmed.NewClient(cfg.EutilsBaseURL, ratelimit.NewLimiter(limits.For("eutils")),
		cfg.EutilsTool, cfg.EutilsEmail, cfg.EutilsAPIKey)

	ctx := context.Background()

	var db *bun.DB
	if *persist {
		db, err = database.Open(cfg.DBPath, cfg.DBDebug)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		if err := migrations.RunMigrations(ctx, db, logger); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
	}

	if !*skipCitations {
		archive := dbgapftp.NewClient(cfg.FTPBaseURL, ratelimit.NewLimiter(limits.For("dbgap_ftp")))
		report, err := enrich.NewCitations(archive, lookup, logger).Run(ctx, studies)
		if err != nil {
			logger.Fatal("citation enrichment failed", zap.Error(err))
		}
		writeReport(cfg, logger, "publications.json", report)
		persistReport(ctx, db, models.SourcePubMed, report, logger)
	}

	if !*skipGrants {
		registry := reporter.NewClient(cfg.ReporterBaseURL, ratelimit.NewLimiter(limits.For("nih_reporter")))
		report, err := enrich.NewGrants(registry, lookup, logger).Run(ctx, studies)
		if err != nil {
			logger.Fatal("grant enrichment failed", zap.Error(err))
		}
		writeReport(cfg, logger, "grant-publications.json", report)
		persistReport(ctx, db, models.SourceReporter, report, logger)
	}
}

func writeReport(cfg *config.Config, logger *zap.Logger, name string, report *enrich.Report) {
	path := filepath.Join(cfg.OutDir, name)
	if err := build.WriteJSON(path, report.Publications); err != nil {
		logger.Fatal("write publications", zap.String("path", path), zap.Error(err))
	}
	logger.Info("publications written",
		zap.String("path", path),
		zap.Int("publications", report.PublicationCount()),
		zap.Int("studiesMissingCitations", len(report.NotFound)))
}

// persistReport replaces each study's rows for the given source. A study
// that fails to persist is logged and skipped so one bad id cannot sink
// the whole pass.
func persistReport(ctx context.Context, db *bun.DB, source models.DataSource, report *enrich.Report, logger *zap.Logger) {
	if db == nil {
		return
	}
	for id, pubs := range report.Publications {
		if err := repositories.ReplacePublications(ctx, db, id, source, pubs); err != nil {
			logger.Warn("publication persistence failed",
				zap.String("phsId", id), zap.String("source", string(source)), zap.Error(err))
		}
	}
}
