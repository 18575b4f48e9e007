// Package build drives a full catalog run: it enumerates candidate study
// identifiers, resolves each one sequentially, links parents to children
// and materializes the catalog artifacts.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/resolve"
)

// ArchiveLister enumerates every study identifier the archive publishes.
type ArchiveLister interface {
	ListStudies(ctx context.Context) ([]string, error)
}

// StudyResolver is the per-identifier resolution surface the builder drives.
type StudyResolver interface {
	Resolve(ctx context.Context, id string) *resolve.Outcome
}

const defaultProgressEvery = 25

// Stats summarizes one catalog build for the run report. Unreachable maps
// each source to the identifiers it failed on, so an operator can decide
// whether to accept the partial catalog or rerun.
type Stats struct {
	Processed          int                            `json:"processed"`
	Accepted           int                            `json:"accepted"`
	SkippedIncomplete  int                            `json:"skippedIncomplete"`
	SkippedUnavailable int                            `json:"skippedUnavailable"`
	Unreachable        map[models.DataSource][]string `json:"unreachable,omitempty"`
}

// Result is the materialized catalog plus its statistics.
type Result struct {
	Studies   []*models.Study
	Stats     Stats
	StartTime time.Time
	EndTime   time.Time
}

// Run converts the result into a build_runs row for persistence.
func (r *Result) Run(runID string) *models.BuildRun {
	end := r.EndTime
	run := &models.BuildRun{
		RunID:              runID,
		StartTime:          r.StartTime,
		EndTime:            &end,
		Status:             models.RunCompleted,
		Processed:          r.Stats.Processed,
		Accepted:           r.Stats.Accepted,
		SkippedIncomplete:  r.Stats.SkippedIncomplete,
		SkippedUnavailable: r.Stats.SkippedUnavailable,
	}
	if len(r.Stats.Unreachable) > 0 {
		if data, err := json.Marshal(r.Stats.Unreachable); err == nil {
			log := string(data)
			run.UnreachableLog = &log
		}
	}
	return run
}

// Options configures a catalog build.
type Options struct {
	// Platforms contributes membership identifiers to the candidate set;
	// onboarded studies occasionally precede their archive listing.
	Platforms map[string][]string
	// ProgressEvery is the progress log interval in studies.
	ProgressEvery int
}

// Builder runs the sequential catalog pipeline. One identifier resolves
// fully before the next begins; the source clients' inter-request delays
// make parallel fan-out pointless.
type Builder struct {
	lister        ArchiveLister
	resolver      StudyResolver
	log           *zap.Logger
	platforms     map[string][]string
	progressEvery int
}

// New assembles a builder around an archive lister and a resolver.
func New(lister ArchiveLister, resolver StudyResolver, logger *zap.Logger, opts Options) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	progressEvery := opts.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = defaultProgressEvery
	}

	return &Builder{
		lister:        lister,
		resolver:      resolver,
		log:           logger,
		platforms:     opts.Platforms,
		progressEvery: progressEvery,
	}
}

// Build resolves every identifier the archive lists plus the platform
// memberships, and returns the accepted catalog.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	listed, err := b.lister.ListStudies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archive studies: %w", err)
	}

	return b.run(ctx, b.candidates(listed))
}

// BuildSubset resolves exactly the given identifiers, for incremental and
// test builds.
func (b *Builder) BuildSubset(ctx context.Context, ids []string) (*Result, error) {
	return b.run(ctx, dedupe(ids))
}

// candidates unions the archive enumeration with the platform-assignment
// identifiers, deduplicated and sorted.
func (b *Builder) candidates(listed []string) []string {
	ids := dedupe(listed)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for id := range b.platforms {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

func (b *Builder) run(ctx context.Context, ids []string) (*Result, error) {
	res := &Result{
		StartTime: time.Now(),
		Stats:     Stats{Unreachable: make(map[models.DataSource][]string)},
	}

	b.log.Info("catalog build started", zap.Int("candidates", len(ids)))

	for i, id := range ids {
		select {
		case <-ctx.Done():
			res.EndTime = time.Now()
			return res, ctx.Err()
		default:
		}

		out := b.resolver.Resolve(ctx, id)
		res.Stats.Processed++

		switch out.Verdict {
		case resolve.VerdictAccepted:
			res.Stats.Accepted++
			res.Studies = append(res.Studies, out.Study)
		case resolve.VerdictIncomplete:
			res.Stats.SkippedIncomplete++
		default:
			res.Stats.SkippedUnavailable++
		}

		for _, src := range out.Unreachable {
			res.Stats.Unreachable[src] = append(res.Stats.Unreachable[src], id)
			b.log.Warn("source unreachable",
				zap.String("phsId", id),
				zap.String("source", string(src)))
		}

		if (i+1)%b.progressEvery == 0 {
			b.log.Info("catalog build progress",
				zap.Int("processed", i+1),
				zap.Int("total", len(ids)),
				zap.Int("accepted", res.Stats.Accepted))
		}
	}

	linkFamilies(res.Studies)
	sortStudies(res.Studies)

	res.EndTime = time.Now()
	b.log.Info("catalog build finished",
		zap.Int("processed", res.Stats.Processed),
		zap.Int("accepted", res.Stats.Accepted),
		zap.Int("skippedIncomplete", res.Stats.SkippedIncomplete),
		zap.Int("skippedUnavailable", res.Stats.SkippedUnavailable),
		zap.Duration("took", res.EndTime.Sub(res.StartTime)))

	return res, nil
}

// linkFamilies fills child counts and parent display names. It runs after
// the full pass because children routinely resolve before their parents.
func linkFamilies(studies []*models.Study) {
	byID := make(map[string]*models.Study, len(studies))
	for _, st := range studies {
		byID[st.DbGapID] = st
	}

	for _, st := range studies {
		if st.ParentStudyID == "" {
			continue
		}
		parent, ok := byID[st.ParentStudyID]
		if !ok || parent == st {
			continue
		}
		parent.NumChildren++
		st.ParentStudyName = parent.Title
	}
}

func sortStudies(studies []*models.Study) {
	sort.Slice(studies, func(i, j int) bool {
		return studies[i].DbGapID < studies[j].DbGapID
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
