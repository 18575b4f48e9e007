package pubmed

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Summary is the bibliographic record kept for one article.
type Summary struct {
	PubmedID      string
	Title         string
	Authors       string
	Journal       string
	Year          string
	DOI           string
	CitationCount int
}

// BatchResult is the outcome of a batched lookup: summaries for the pmids
// the index knows, the pmids it does not, and the pmids of batches that
// failed outright.
type BatchResult struct {
	Summaries []Summary
	NotFound  []string
	Failed    []string
}

// FlexibleInt tolerates the esummary quirk of emitting counts as numbers
// or as (possibly empty) strings.
type FlexibleInt struct {
	Value int
}

func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		f.Value = num
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		cleaned := strings.ReplaceAll(strings.TrimSpace(str), ",", "")
		if cleaned == "" {
			f.Value = 0
			return nil
		}
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return err
		}
		f.Value = n
		return nil
	}
	f.Value = 0
	return nil
}

// articleSummary mirrors one DocumentSummary from esummary db=pubmed.
type articleSummary struct {
	UID         string          `json:"uid"`
	Title       string          `json:"title"`
	Authors     []articleAuthor `json:"authors"`
	Source      string          `json:"source"`
	PubDate     string          `json:"pubdate"`
	PmcRefCount FlexibleInt     `json:"pmcrefcount"`
	ArticleIDs  []articleID     `json:"articleids"`
	Error       string          `json:"error"`
}

type articleAuthor struct {
	Name string `json:"name"`
}

type articleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
