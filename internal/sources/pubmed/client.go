// Package pubmed fetches bibliographic summaries for publication ids in
// batches (eutils esummary db=pubmed).
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gapcatalog/builder/internal/ratelimit"
)

const (
	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultTool    = "gapcatalog-builder"

	// eutils rejects id lists beyond 500 entries per request
	batchLimit = 500
)

// Client handles bibliographic API requests.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string
	tool       string
	email      string
	apiKey     string
}

// NewClient creates a bibliographic client.
func NewClient(baseURL string, limiter ratelimit.Limiter, tool, email, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if tool == "" {
		tool = defaultTool
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
		baseURL:    baseURL,
		tool:       tool,
		email:      email,
		apiKey:     apiKey,
	}
}

// Summaries fetches bibliographic summaries for a pmid list, batching the
// requests under the provider's id-list cap. Input order and duplicates do
// not matter; ids the index cannot resolve land in NotFound. A batch that
// fails outright is skipped and its ids land in Failed; an error comes
// back only when no batch succeeded.
func (c *Client) Summaries(ctx context.Context, pmids []string) (*BatchResult, error) {
	unique := make([]string, 0, len(pmids))
	seen := make(map[string]bool, len(pmids))
	for _, pmid := range pmids {
		pmid = strings.TrimSpace(pmid)
		if pmid == "" || seen[pmid] {
			continue
		}
		seen[pmid] = true
		unique = append(unique, pmid)
	}

	result := &BatchResult{}
	var firstErr error
	batches, failures := 0, 0
	for start := 0; start < len(unique); start += batchLimit {
		end := start + batchLimit
		if end > len(unique) {
			end = len(unique)
		}

		batches++
		if err := c.fetchBatch(ctx, unique[start:end], result); err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			result.Failed = append(result.Failed, unique[start:end]...)
		}
	}
	if batches > 0 && failures == batches {
		return nil, firstErr
	}
	return result, nil
}

// fetchBatch posts one esummary request. The id list rides in the form
// body; long lists overflow a GET URL.
func (c *Client) fetchBatch(ctx context.Context, pmids []string, result *BatchResult) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("db", "pubmed")
	form.Set("id", strings.Join(pmids, ","))
	form.Set("retmode", "json")
	form.Set("tool", c.tool)
	if c.email != "" {
		form.Set("email", c.email)
	}
	if c.apiKey != "" {
		form.Set("api_key", c.apiKey)
	}

	u := fmt.Sprintf("%s/esummary.fcgi", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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

	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	for _, pmid := range pmids {
		raw, ok := envelope.Result[pmid]
		if !ok {
			result.NotFound = append(result.NotFound, pmid)
			continue
		}
		var summary articleSummary
		if err := json.Unmarshal(raw, &summary); err != nil || summary.Error != "" || summary.Title == "" {
			result.NotFound = append(result.NotFound, pmid)
			continue
		}
		result.Summaries = append(result.Summaries, mapSummary(pmid, summary))
	}
	return nil
}

func mapSummary(pmid string, s articleSummary) Summary {
	sum := Summary{
		PubmedID:      pmid,
		Title:         s.Title,
		Journal:       s.Source,
		CitationCount: s.PmcRefCount.Value,
	}
	if len(s.PubDate) >= 4 {
		sum.Year = s.PubDate[:4]
	}

	names := make([]string, 0, len(s.Authors))
	for _, a := range s.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	sum.Authors = strings.Join(names, ", ")

	for _, id := range s.ArticleIDs {
		if id.IDType == "doi" {
			sum.DOI = id.Value
			break
		}
	}
	return sum
}
