// Package platforms reconciles the local platform-assignment table against
// the public dataset indexes of the cloud platforms. Sync only discovers
// and appends; assignments are never removed automatically.
package platforms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/ratelimit"
	"github.com/gapcatalog/builder/internal/seeds"
)

// IndexSource describes one platform's public dataset index.
type IndexSource struct {
	Platform string
	URL      string
}

// Sources converts a platform-to-URL mapping into a stable source list.
func Sources(urls map[string]string) []IndexSource {
	out := make([]IndexSource, 0, len(urls))
	for platform, url := range urls {
		if url == "" {
			continue
		}
		out = append(out, IndexSource{Platform: platform, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

var studyIDPattern = regexp.MustCompile(`phs\d+`)

// Client fetches platform dataset indexes. The payload format varies per
// platform (JSON, TSV, HTML); study identifiers are extracted from the raw
// document, which every format embeds literally.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
}

// NewClient creates an index client.
func NewClient(limiter ratelimit.Limiter) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
	}
}

// StudyIDs fetches an index document and extracts every study identifier,
// deduplicated in appearance order.
func (c *Client) StudyIDs(ctx context.Context, url string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	matches := studyIDPattern.FindAllString(string(body), -1)
	ids := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, id := range matches {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// IndexClient is the fetch surface the syncer drives.
type IndexClient interface {
	StudyIDs(ctx context.Context, url string) ([]string, error)
}

// Diff is the sync outcome for one platform.
type Diff struct {
	Platform string   `json:"platform"`
	Indexed  int      `json:"indexed"`
	Known    int      `json:"known"`
	New      []string `json:"new,omitempty"`
}

// Syncer diffs platform indexes against the local assignment table.
type Syncer struct {
	client IndexClient
	log    *zap.Logger
}

// NewSyncer assembles a syncer.
func NewSyncer(client IndexClient, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{client: client, log: logger}
}

// Sync fetches every source index and reports studies not yet assigned to
// that platform. An unreachable index skips its platform and the pass
// continues.
func (s *Syncer) Sync(ctx context.Context, sources []IndexSource, assigned map[string][]string) ([]Diff, error) {
	diffs := make([]Diff, 0, len(sources))

	for _, src := range sources {
		select {
		case <-ctx.Done():
			return diffs, ctx.Err()
		default:
		}

		ids, err := s.client.StudyIDs(ctx, src.URL)
		if err != nil {
			s.log.Warn("platform index unreachable",
				zap.String("platform", src.Platform), zap.Error(err))
			continue
		}

		diff := Diff{Platform: src.Platform, Indexed: len(ids)}
		for _, id := range ids {
			if hasTag(assigned[id], src.Platform) {
				diff.Known++
				continue
			}
			diff.New = append(diff.New, id)
		}
		sort.Strings(diff.New)

		s.log.Info("platform index synced",
			zap.String("platform", src.Platform),
			zap.Int("indexed", diff.Indexed),
			zap.Int("known", diff.Known),
			zap.Int("new", len(diff.New)))
		diffs = append(diffs, diff)
	}

	return diffs, nil
}

// Apply appends every discovered assignment to the table file and returns
// how many rows were written.
func Apply(path string, diffs []Diff) (int, error) {
	var rows []models.PlatformAssignment
	for _, diff := range diffs {
		for _, id := range diff.New {
			rows = append(rows, models.PlatformAssignment{DbGapID: id, Platform: diff.Platform})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := seeds.AppendPlatforms(path, rows); err != nil {
		return 0, fmt.Errorf("append assignments: %w", err)
	}
	return len(rows), nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
