// Package enrich attaches publication data to an already-built catalog:
// curated citations listed in the archive study documents, and
// grant-linked publications discovered through the grants registry. Both
// passes run against the materialized catalog and write artifacts of
// their own; neither mutates studies.json.
package enrich

import (
	"context"
	"sort"
	"strconv"

	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/sources/dbgapftp"
	"github.com/gapcatalog/builder/internal/sources/pubmed"
)

// ArchiveSource supplies the study document fields, including the curated
// publication id list.
type ArchiveSource interface {
	Record(ctx context.Context, id string) (*dbgapftp.Record, error)
}

// CitationLookup is the batched surface of the bibliographic client.
type CitationLookup interface {
	Summaries(ctx context.Context, pmids []string) (*pubmed.BatchResult, error)
}

// GrantsSource is the grants-registry surface the grant pass drives.
type GrantsSource interface {
	Projects(ctx context.Context, phrase string) ([]string, error)
	Publications(ctx context.Context, coreProjectNums []string) ([]string, error)
}

// Report is the outcome of one enrichment pass. Publications holds the
// per-study artifact payload; NotFound keeps the ids the bibliographic
// index could not resolve, so they are never dropped silently.
type Report struct {
	Publications map[string][]*models.Publication
	NotFound     map[string][]string
}

func newReport() *Report {
	return &Report{
		Publications: make(map[string][]*models.Publication),
		NotFound:     make(map[string][]string),
	}
}

// PublicationCount totals the resolved publications across all studies.
func (r *Report) PublicationCount() int {
	n := 0
	for _, pubs := range r.Publications {
		n += len(pubs)
	}
	return n
}

// publications converts summaries into catalog publication rows, most
// cited first.
func publications(summaries []pubmed.Summary, source models.DataSource) []*models.Publication {
	pubs := make([]*models.Publication, 0, len(summaries))
	for _, s := range summaries {
		pubs = append(pubs, toPublication(s, source))
	}

	sort.SliceStable(pubs, func(i, j int) bool {
		return pubs[i].CitationCount > pubs[j].CitationCount
	})
	return pubs
}

func toPublication(s pubmed.Summary, source models.DataSource) *models.Publication {
	pub := &models.Publication{
		Title:         s.Title,
		Authors:       s.Authors,
		Journal:       s.Journal,
		CitationCount: s.CitationCount,
		Source:        source,
	}
	if s.PubmedID != "" {
		pmid := s.PubmedID
		pub.PubmedID = &pmid
	}
	if year, err := strconv.Atoi(s.Year); err == nil && year > 0 {
		pub.PublicationYear = &year
	}
	if s.DOI != "" {
		doi := s.DOI
		pub.DOI = &doi
	}
	return pub
}
