// Package sra derives sequencing data types for a study from the Sequence
// Read Archive when neither the archive directory nor the summary index
// reports any. Library strategies translate into catalog data-type terms.
package sra

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gapcatalog/builder/internal/ratelimit"
)

const (
	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultTool    = "gapcatalog-builder"

	// eutils caps id-list requests at 500 entries; one batch of runs is
	// plenty to learn which strategies a study used.
	batchLimit = 500
)

// strategyTerms translates SRA library strategies into catalog data-type
// terms. Strategies missing here carry no catalog meaning and are dropped.
var strategyTerms = map[string]string{
	"WGS":              "WGS",
	"WXS":              "WES",
	"RNA-Seq":          "RNA-Seq",
	"miRNA-Seq":        "miRNA-Seq",
	"Bisulfite-Seq":    "Methylation (Seq)",
	"ChIP-Seq":         "ChIP-Seq",
	"Targeted-Capture": "Targeted Sequencing",
	"AMPLICON":         "Amplicon Sequencing",
}

// Client handles Sequence Read Archive API requests.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string
	tool       string
	email      string
	apiKey     string
}

// NewClient creates a sequence-archive client.
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

type experimentPackageSet struct {
	XMLName  xml.Name            `xml:"EXPERIMENT_PACKAGE_SET"`
	Packages []experimentPackage `xml:"EXPERIMENT_PACKAGE"`
}

type experimentPackage struct {
	Strategy string `xml:"EXPERIMENT>DESIGN>LIBRARY_DESCRIPTOR>LIBRARY_STRATEGY"`
}

// DataTypes returns the sorted catalog data-type terms derived from the
// study's sequencing runs. An empty slice with nil error means the archive
// holds no runs for the identifier.
func (c *Client) DataTypes(ctx context.Context, id string) ([]string, error) {
	uids, err := c.search(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", id, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	strategies, err := c.strategies(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("fetch runs for %s: %w", id, err)
	}

	seen := make(map[string]bool)
	terms := make([]string, 0, len(strategies))
	for _, s := range strategies {
		term, ok := strategyTerms[s]
		if !ok || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms, nil
}

// search lists run uids registered under a study identifier.
func (c *Client) search(ctx context.Context, term string) ([]string, error) {
	params := c.params()
	params.Set("term", term)
	params.Set("retmax", fmt.Sprintf("%d", batchLimit))
	params.Set("retmode", "json")

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

// strategies pulls the library strategy out of every experiment package in
// one efetch batch.
func (c *Client) strategies(ctx context.Context, uids []string) ([]string, error) {
	params := c.params()
	params.Set("id", strings.Join(uids, ","))
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var set experimentPackageSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode experiment packages: %w", err)
	}

	out := make([]string, 0, len(set.Packages))
	for _, pkg := range set.Packages {
		if s := strings.TrimSpace(pkg.Strategy); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
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

// params carries the fields every archive call sends.
func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("db", "sra")
	params.Set("tool", c.tool)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}
