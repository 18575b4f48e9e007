// Package reporter queries the NIH RePORTER v2 API to connect studies to
// the grants that funded them and from there to grant-derived publications.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gapcatalog/builder/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.reporter.nih.gov/v2"

	// page size for search endpoints; RePORTER rejects larger limits
	pageLimit = 500

	// the API refuses offsets past this point, so pagination stops there
	maxOffset = 9999
)

// Client handles RePORTER API requests.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string
}

// NewClient creates a RePORTER client. An empty baseURL selects the public
// endpoint.
func NewClient(baseURL string, limiter ratelimit.Limiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
		baseURL:    baseURL,
	}
}

// Projects finds the distinct grant core project numbers whose project
// title matches the phrase.
func (c *Client) Projects(ctx context.Context, phrase string) ([]string, error) {
	if phrase == "" {
		return nil, nil
	}

	nums := make([]string, 0)
	seen := make(map[string]bool)

	for offset := 0; offset <= maxOffset; offset += pageLimit {
		req := projectSearchRequest{
			Criteria: projectCriteria{
				AdvancedTextSearch: &advancedTextSearch{
					Operator:    "and",
					SearchField: "projecttitle",
					SearchText:  phrase,
				},
			},
			IncludeFields: []string{"CoreProjectNum"},
			Offset:        offset,
			Limit:         pageLimit,
		}

		var resp projectSearchResponse
		if err := c.postJSON(ctx, "/projects/search", req, &resp); err != nil {
			return nil, fmt.Errorf("search projects: %w", err)
		}

		for _, r := range resp.Results {
			if r.CoreProjectNum == "" || seen[r.CoreProjectNum] {
				continue
			}
			seen[r.CoreProjectNum] = true
			nums = append(nums, r.CoreProjectNum)
		}

		if offset+pageLimit >= resp.Meta.Total || len(resp.Results) == 0 {
			break
		}
	}
	return nums, nil
}

// Publications lists the pmids RePORTER links to the given core project
// numbers, deduplicated.
func (c *Client) Publications(ctx context.Context, coreProjectNums []string) ([]string, error) {
	if len(coreProjectNums) == 0 {
		return nil, nil
	}

	pmids := make([]string, 0)
	seen := make(map[string]bool)

	for offset := 0; offset <= maxOffset; offset += pageLimit {
		req := publicationSearchRequest{
			Criteria: publicationCriteria{CoreProjectNums: coreProjectNums},
			Offset:   offset,
			Limit:    pageLimit,
		}

		var resp publicationSearchResponse
		if err := c.postJSON(ctx, "/publications/search", req, &resp); err != nil {
			return nil, fmt.Errorf("search publications: %w", err)
		}

		for _, r := range resp.Results {
			if r.PMID == 0 {
				continue
			}
			pmid := strconv.FormatInt(r.PMID, 10)
			if seen[pmid] {
				continue
			}
			seen[pmid] = true
			pmids = append(pmids, pmid)
		}

		if offset+pageLimit >= resp.Meta.Total || len(resp.Results) == 0 {
			break
		}
	}
	return pmids, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
