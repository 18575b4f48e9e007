package main

import (
	"flag"
	"log"
	"math"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/build"
	"github.com/gapcatalog/builder/internal/classify"
	"github.com/gapcatalog/builder/internal/config"
)

func main() {
	src := flag.String("src", "source/dbgap-variables", "Directory of per-study var_report.xml trees")
	rulesDir := flag.String("rules", "rules", "Directory of classification rule files")
	out := flag.String("out", "out", "Output directory for classification artifacts")
	study := flag.String("study", "", "Restrict classification to one study accession")
	reparse := flag.Bool("reparse", false, "Re-parse the XML reports even when the table cache exists")
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

	tables := loadOrParse(logger, *src, *out, *reparse)

	classifications, err := classify.NewClassifier(*rulesDir, logger).Classify(tables, *study)
	if err != nil {
		logger.Fatal("classification failed", zap.Error(err))
	}
	classPath := filepath.Join(*out, "classifications.json")
	if err := build.WriteJSON(classPath, classifications); err != nil {
		logger.Fatal("write classifications", zap.String("path", classPath), zap.Error(err))
	}

	coverage := classify.Coverage(tables, classifications, *study)
	coveragePath := filepath.Join(*out, "coverage-report.json")
	if err := build.WriteJSON(coveragePath, coverage); err != nil {
		logger.Fatal("write coverage report", zap.String("path", coveragePath), zap.Error(err))
	}

	summarize(logger, coverage, classPath, coveragePath)
}

// loadOrParse reuses the parsed-table cache when present; the cache always
// covers the full source tree so a later -study run needs no reparse.
func loadOrParse(logger *zap.Logger, src, out string, reparse bool) []*classify.ParsedTable {
	cachePath := filepath.Join(out, "parsed-tables.json")

	if !reparse {
		if tables, err := classify.LoadTables(cachePath); err == nil {
			logger.Info("table cache loaded",
				zap.String("path", cachePath), zap.Int("tables", len(tables)))
			return tables
		}
	}

	tables, err := classify.NewParser(logger).ParseAll(src, "")
	if err != nil {
		logger.Fatal("parse variable reports", zap.String("src", src), zap.Error(err))
	}
	if err := classify.SaveTables(cachePath, tables); err != nil {
		logger.Fatal("save table cache", zap.String("path", cachePath), zap.Error(err))
	}
	logger.Info("table cache written",
		zap.String("path", cachePath), zap.Int("tables", len(tables)))
	return tables
}

func summarize(logger *zap.Logger, coverage []classify.CoverageStats, classPath, coveragePath string) {
	var classified, total int
	concepts := map[string]struct{}{}
	for _, stats := range coverage {
		classified += stats.ClassifiedVariables
		total += stats.TotalVariables
		for concept := range stats.Concepts {
			concepts[concept] = struct{}{}
		}
	}
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(classified)/float64(total)*1000) / 10
	}
	logger.Info("classification coverage",
		zap.Int("studies", len(coverage)),
		zap.Int("classifiedVariables", classified),
		zap.Int("totalVariables", total),
		zap.Float64("rate", rate),
		zap.Int("concepts", len(concepts)),
		zap.String("classifications", classPath),
		zap.String("coverageReport", coveragePath))
}
