package enrich

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/models"
)

var parentheticalPattern = regexp.MustCompile(`\s*\([^)]*\)`)

// CleanSearchPhrase reduces a study title to a grants-registry query.
// Catalog prefixes before the first colon and parenthetical acronyms drop
// out; whitespace collapses to single spaces.
func CleanSearchPhrase(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		title = title[i+1:]
	}
	title = parentheticalPattern.ReplaceAllString(title, " ")
	return strings.Join(strings.Fields(title), " ")
}

// Grants is the grant-linked publication pass: study titles match funded
// projects, and the projects' linked publications resolve through the
// bibliographic index. Lower precision than the curated citations, so
// every row is tagged with its registry source.
type Grants struct {
	registry GrantsSource
	lookup   CitationLookup
	log      *zap.Logger
}

// NewGrants assembles the grant-linked pass.
func NewGrants(registry GrantsSource, lookup CitationLookup, logger *zap.Logger) *Grants {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grants{registry: registry, lookup: lookup, log: logger}
}

// Run enriches every catalog study whose title matches funded projects.
// Failures on one study never abort the pass.
func (g *Grants) Run(ctx context.Context, studies []*models.Study) (*Report, error) {
	report := newReport()

	for _, st := range studies {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		phrase := CleanSearchPhrase(st.Title)
		if phrase == "" {
			continue
		}

		projects, err := g.registry.Projects(ctx, phrase)
		if err != nil {
			g.log.Warn("project search failed",
				zap.String("phsId", st.DbGapID), zap.Error(err))
			continue
		}
		if len(projects) == 0 {
			continue
		}

		pmids, err := g.registry.Publications(ctx, projects)
		if err != nil {
			g.log.Warn("grant publication search failed",
				zap.String("phsId", st.DbGapID), zap.Error(err))
			continue
		}
		if len(pmids) == 0 {
			continue
		}

		batch, err := g.lookup.Summaries(ctx, pmids)
		if err != nil {
			g.log.Warn("grant citation lookup failed",
				zap.String("phsId", st.DbGapID), zap.Error(err))
			continue
		}

		if pubs := publications(batch.Summaries, models.SourceReporter); len(pubs) > 0 {
			report.Publications[st.DbGapID] = pubs
		}
		if len(batch.NotFound) > 0 {
			report.NotFound[st.DbGapID] = batch.NotFound
		}
	}

	g.log.Info("grant enrichment finished",
		zap.Int("studies", len(report.Publications)),
		zap.Int("publications", report.PublicationCount()))
	return report, nil
}
