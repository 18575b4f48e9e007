package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Publication represents a paper associated with a study.
type Publication struct {
	bun.BaseModel `bun:"table:publications,alias:pb"`

	ID              int64      `bun:"id,pk,autoincrement" json:"-"`
	StudyID         int64      `bun:"study_id,notnull" json:"-"`
	PubmedID        *string    `bun:"pubmed_id" json:"pubmedId,omitempty"`
	Title           string     `bun:"title,notnull" json:"title"`
	Authors         string     `bun:"authors" json:"authors"`
	Journal         string     `bun:"journal" json:"journal"`
	PublicationYear *int       `bun:"publication_year" json:"publicationYear,omitempty"`
	DOI             *string    `bun:"doi" json:"doi,omitempty"`
	CitationCount   int        `bun:"citation_count,default:0" json:"citationCount"`
	Source          DataSource `bun:"source,notnull" json:"source,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`

	Study *Study `bun:"rel:belongs-to,join:study_id=id" json:"-"`
}

// PubmedURL returns the full PubMed URL.
func (p *Publication) PubmedURL() string {
	if p.PubmedID == nil {
		return ""
	}
	return "https://pubmed.ncbi.nlm.nih.gov/" + *p.PubmedID
}

// IsGrantDerived reports whether the entry came from the grants registry
// rather than the curated citation list.
func (p *Publication) IsGrantDerived() bool {
	return p.Source == SourceReporter
}
