// Package gap queries the legacy dbGaP summary index through NCBI eutils
// (esearch/esummary against db=gap).
package gap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gapcatalog/builder/internal/ratelimit"
)

const (
	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultTool    = "gapcatalog-builder"
)

// Client handles summary-index API requests.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string
	tool       string
	email      string
	apiKey     string
}

// NewClient creates a summary-index client. Empty baseURL and tool fall
// back to the public endpoint and the default tool tag.
func NewClient(baseURL string, limiter ratelimit.Limiter, tool, email, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if tool == "" {
		tool = defaultTool
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		baseURL:    baseURL,
		tool:       tool,
		email:      email,
		apiKey:     apiKey,
	}
}

// Record looks up one study in the summary index. A nil record with nil
// error means the index has no entry for the identifier.
func (c *Client) Record(ctx context.Context, id string) (*Record, error) {
	uids, err := c.search(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", id, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	doc, err := c.summary(ctx, uids[0])
	if err != nil {
		return nil, fmt.Errorf("summary %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return mapRecord(doc), nil
}

// search resolves a study identifier to summary uids.
func (c *Client) search(ctx context.Context, term string) ([]string, error) {
	params := c.params()
	params.Set("term", term)

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		ESearchResult struct {
			IdList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	return envelope.ESearchResult.IdList, nil
}

// summary fetches the DocumentSummary for one uid. The envelope keys
// documents by uid; an absent key means the index has no entry.
func (c *Client) summary(ctx context.Context, uid string) (*studySummary, error) {
	params := c.params()
	params.Set("id", uid)

	body, err := c.get(ctx, "esummary.fcgi", params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode summary envelope: %w", err)
	}

	raw, ok := envelope.Result[uid]
	if !ok {
		return nil, nil
	}
	var doc studySummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", uid, err)
	}
	return &doc, nil
}

// get runs one rate-limited GET against an endpoint and returns the body.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, nil
}

// params carries the fields every summary-index call sends.
func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("db", "gap")
	params.Set("retmode", "json")
	params.Set("tool", c.tool)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}
