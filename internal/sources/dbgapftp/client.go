// Package dbgapftp reads study metadata from the dbGaP archive directory,
// served as HTML listings and study-config XML over HTTPS.
package dbgapftp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gapcatalog/builder/internal/dbgap"
	"github.com/gapcatalog/builder/internal/ratelimit"
)

const defaultBaseURL = "https://ftp.ncbi.nlm.nih.gov/dbgap/studies"

var studyDirPattern = regexp.MustCompile(`href="(phs\d+)/"`)

// Client fetches archive listings and study-config documents. One instance
// covers one build pass: documents are cached per identifier, so the
// resolver and the publication enricher share a single download.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string

	mu   sync.Mutex
	docs map[string]string
}

// NewClient creates an archive client. An empty baseURL selects the public
// NCBI mirror.
func NewClient(baseURL string, limiter ratelimit.Limiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		docs:       make(map[string]string),
	}
}

// ListStudies enumerates every study directory at the archive root, in
// listing order and deduplicated.
func (c *Client) ListStudies(ctx context.Context) ([]string, error) {
	listing, found, err := c.get(ctx, c.baseURL+"/")
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("archive root not found")
	}

	matches := studyDirPattern.FindAllStringSubmatch(listing, -1)
	ids := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids, nil
}

// Versions returns the release tags present for one study. found=false
// means the archive has no directory for the identifier.
func (c *Client) Versions(ctx context.Context, id string) ([]string, bool, error) {
	listing, found, err := c.get(ctx, c.baseURL+"/"+id+"/")
	if err != nil {
		return nil, false, fmt.Errorf("list versions for %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return dbgap.ParseVersionTags(listing, id), true, nil
}

// StudyDocument fetches the newest release's study-config document, cached
// per identifier for the lifetime of the client. found=false means the
// archive has no usable release for this study.
func (c *Client) StudyDocument(ctx context.Context, id string) (string, bool, error) {
	c.mu.Lock()
	if doc, ok := c.docs[id]; ok {
		c.mu.Unlock()
		return doc, doc != "", nil
	}
	c.mu.Unlock()

	tags, found, err := c.Versions(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !found {
		c.cache(id, "")
		return "", false, nil
	}

	url, ok := dbgap.LatestExchangeURL(c.baseURL, id, tags)
	if !ok {
		c.cache(id, "")
		return "", false, nil
	}

	doc, found, err := c.get(ctx, url)
	if err != nil {
		return "", false, fmt.Errorf("fetch study document for %s: %w", id, err)
	}
	if !found {
		c.cache(id, "")
		return "", false, nil
	}

	c.cache(id, doc)
	return doc, true, nil
}

// Record assembles the archive's view of one study. A nil record with nil
// error means the archive has no entry for the identifier.
func (c *Client) Record(ctx context.Context, id string) (*Record, error) {
	doc, found, err := c.StudyDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return MapRecord(doc), nil
}

func (c *Client) cache(id, doc string) {
	c.mu.Lock()
	c.docs[id] = doc
	c.mu.Unlock()
}

// get fetches one URL with the provider delay applied. found=false means
// the path does not exist on the mirror; transport failures and non-2xx
// answers come back as errors.
func (c *Client) get(ctx context.Context, url string) (string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read body: %w", err)
	}
	return string(body), true, nil
}
