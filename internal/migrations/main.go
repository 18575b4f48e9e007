// Package migrations registers the catalog schema with bun's migrator.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/models"
)

var Migrations = migrate.NewMigrations()

// catalogModels lists every persisted entity in creation order; drops
// run in reverse.
var catalogModels = []interface{}{
	(*models.Study)(nil),
	(*models.Publication)(nil),
	(*models.PlatformAssignment)(nil),
	(*models.BuildRun)(nil),
}

type index struct {
	name   string
	target string
	unique bool
}

// catalogIndexes back the catalog's read paths: family lookups, the
// participant and citation sort orders, publication joins, and the
// assignment uniqueness the membership upsert relies on.
var catalogIndexes = []index{
	{name: "idx_studies_parent", target: "studies(parent_study_id)"},
	{name: "idx_studies_focus", target: "studies(focus)"},
	{name: "idx_studies_participants", target: "studies(participant_count DESC)"},
	{name: "idx_publications_study", target: "publications(study_id)"},
	{name: "idx_publications_pubmed", target: "publications(pubmed_id)"},
	{name: "idx_publications_citations", target: "publications(citation_count DESC)"},
	{name: "idx_assignments_study_platform", target: "platform_assignments(dbgap_id, platform)", unique: true},
	{name: "idx_build_runs_start", target: "build_runs(start_time DESC)"},
}

func init() {
	Migrations.MustRegister(createTables, dropTables)
	Migrations.MustRegister(createIndexes, dropIndexes)
}

func createTables(ctx context.Context, db *bun.DB) error {
	for _, model := range catalogModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func dropTables(ctx context.Context, db *bun.DB) error {
	for i := len(catalogModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(catalogModels[i]).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func createIndexes(ctx context.Context, db *bun.DB) error {
	for _, idx := range catalogIndexes {
		kind := "INDEX"
		if idx.unique {
			kind = "UNIQUE INDEX"
		}
		stmt := fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s", kind, idx.name, idx.target)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func dropIndexes(ctx context.Context, db *bun.DB) error {
	for i := len(catalogIndexes) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "DROP INDEX IF EXISTS "+catalogIndexes[i].name); err != nil {
			return err
		}
	}
	return nil
}

// RunMigrations initializes the migration bookkeeping and applies every
// pending step.
func RunMigrations(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if group.IsZero() {
		logger.Debug("schema up to date")
		return nil
	}
	logger.Info("schema migrated", zap.String("group", group.String()))
	return nil
}
