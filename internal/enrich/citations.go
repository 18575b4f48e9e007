package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/models"
)

// Citations is the curated-citation pass: each study document's publication
// id list resolves through the bibliographic index.
type Citations struct {
	archive ArchiveSource
	lookup  CitationLookup
	log     *zap.Logger
}

// NewCitations assembles the curated-citation pass.
func NewCitations(archive ArchiveSource, lookup CitationLookup, logger *zap.Logger) *Citations {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Citations{archive: archive, lookup: lookup, log: logger}
}

// Run enriches every catalog study that lists publication ids. Failures on
// one study never abort the pass; the study is logged and skipped.
func (c *Citations) Run(ctx context.Context, studies []*models.Study) (*Report, error) {
	report := newReport()

	for _, st := range studies {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		rec, err := c.archive.Record(ctx, st.DbGapID)
		if err != nil {
			c.log.Warn("study document unreachable",
				zap.String("phsId", st.DbGapID), zap.Error(err))
			continue
		}
		if rec == nil || len(rec.PubmedIDs) == 0 {
			continue
		}

		batch, err := c.lookup.Summaries(ctx, rec.PubmedIDs)
		if err != nil {
			c.log.Warn("citation lookup failed",
				zap.String("phsId", st.DbGapID), zap.Error(err))
			continue
		}

		if pubs := publications(batch.Summaries, models.SourcePubMed); len(pubs) > 0 {
			report.Publications[st.DbGapID] = pubs
		}
		if len(batch.NotFound) > 0 {
			report.NotFound[st.DbGapID] = batch.NotFound
			c.log.Warn("publication ids unresolved",
				zap.String("phsId", st.DbGapID), zap.Strings("pmids", batch.NotFound))
		}
		if len(batch.Failed) > 0 {
			c.log.Warn("citation batches skipped",
				zap.String("phsId", st.DbGapID), zap.Int("pmids", len(batch.Failed)))
		}
	}

	c.log.Info("citation enrichment finished",
		zap.Int("studies", len(report.Publications)),
		zap.Int("publications", report.PublicationCount()))
	return report, nil
}
