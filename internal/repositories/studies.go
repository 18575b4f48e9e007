package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/gapcatalog/builder/internal/models"
)

// GetStudyByDbGapID fetches a study by bare identifier with its
// publications, highest citation counts first.
func GetStudyByDbGapID(ctx context.Context, db *bun.DB, dbGapID string) (*models.Study, error) {
	study := new(models.Study)
	err := db.NewSelect().
		Model(study).
		Where("dbgap_id = ?", dbGapID).
		Relation("Publications", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("citation_count DESC")
		}).
		Scan(ctx)

	return study, err
}

// ListPlatformStudies returns the studies carrying a platform tag, most
// participants first. The platforms column stores a JSON array, so the
// match is on the quoted tag.
func ListPlatformStudies(ctx context.Context, db *bun.DB, platform string, limit int) ([]*models.Study, error) {
	var studies []*models.Study
	q := db.NewSelect().
		Model(&studies).
		Where("platforms LIKE ?", "%\""+platform+"\"%").
		OrderExpr("participant_count DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(ctx)

	return studies, err
}

// UpsertStudies performs a batch upsert keyed by the dbGaP identifier.
func UpsertStudies(ctx context.Context, db *bun.DB, studies []*models.Study) error {
	if len(studies) == 0 {
		return nil
	}

	_, err := db.NewInsert().
		Model(&studies).
		On("CONFLICT (dbgap_id) DO UPDATE").
		Set("accession = EXCLUDED.accession").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("focus = EXCLUDED.focus").
		Set("study_designs = EXCLUDED.study_designs").
		Set("data_types = EXCLUDED.data_types").
		Set("consent_codes = EXCLUDED.consent_codes").
		Set("consent_long_names = EXCLUDED.consent_long_names").
		Set("participant_count = EXCLUDED.participant_count").
		Set("parent_study_id = EXCLUDED.parent_study_id").
		Set("parent_study_name = EXCLUDED.parent_study_name").
		Set("num_children = EXCLUDED.num_children").
		Set("platforms = EXCLUDED.platforms").
		Set("registry_url = EXCLUDED.registry_url").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)

	return err
}

// InsertStudyWithPublications inserts a study and its publications in one
// transaction.
func InsertStudyWithPublications(ctx context.Context, db *bun.DB, study *models.Study, pubs []*models.Publication) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(study).Exec(ctx); err != nil {
			return err
		}

		for _, p := range pubs {
			p.StudyID = study.ID
		}

		if len(pubs) > 0 {
			if _, err := tx.NewInsert().Model(&pubs).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}

// ReplacePublications swaps a study's publications from one source for a
// fresh set, leaving the other source's rows untouched.
func ReplacePublications(ctx context.Context, db *bun.DB, dbGapID string, source models.DataSource, pubs []*models.Publication) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		study := new(models.Study)
		if err := tx.NewSelect().
			Model(study).
			Column("id").
			Where("dbgap_id = ?", dbGapID).
			Scan(ctx); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*models.Publication)(nil)).
			Where("study_id = ? AND source = ?", study.ID, source).
			Exec(ctx); err != nil {
			return err
		}

		for _, p := range pubs {
			p.StudyID = study.ID
			p.Source = source
		}

		if len(pubs) > 0 {
			if _, err := tx.NewInsert().Model(&pubs).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}

// UpsertPlatformAssignments records platform memberships, ignoring pairs
// already present.
func UpsertPlatformAssignments(ctx context.Context, db *bun.DB, assignments []*models.PlatformAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	_, err := db.NewInsert().
		Model(&assignments).
		On("CONFLICT (dbgap_id, platform) DO NOTHING").
		Exec(ctx)

	return err
}

// SaveBuildRun records a build run, updating the row when the run id was
// already registered.
func SaveBuildRun(ctx context.Context, db *bun.DB, run *models.BuildRun) error {
	_, err := db.NewInsert().
		Model(run).
		On("CONFLICT (run_id) DO UPDATE").
		Set("end_time = EXCLUDED.end_time").
		Set("status = EXCLUDED.status").
		Set("processed = EXCLUDED.processed").
		Set("accepted = EXCLUDED.accepted").
		Set("skipped_incomplete = EXCLUDED.skipped_incomplete").
		Set("skipped_unavailable = EXCLUDED.skipped_unavailable").
		Set("unreachable_log = EXCLUDED.unreachable_log").
		Set("config_snapshot = EXCLUDED.config_snapshot").
		Exec(ctx)

	return err
}
