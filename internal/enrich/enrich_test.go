package enrich

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/sources/dbgapftp"
	"github.com/gapcatalog/builder/internal/sources/pubmed"
)

type fakeArchive struct {
	records map[string]*dbgapftp.Record
	err     error
}

func (f *fakeArchive) Record(ctx context.Context, id string) (*dbgapftp.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

type fakeLookup struct {
	summaries map[string]pubmed.Summary
	err       error
	calls     int
}

func (f *fakeLookup) Summaries(ctx context.Context, pmids []string) (*pubmed.BatchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	result := &pubmed.BatchResult{}
	for _, pmid := range pmids {
		if s, ok := f.summaries[pmid]; ok {
			result.Summaries = append(result.Summaries, s)
		} else {
			result.NotFound = append(result.NotFound, pmid)
		}
	}
	return result, nil
}

type fakeRegistry struct {
	projects map[string][]string
	pubs     map[string][]string
	phrases  []string
	projErr  error
	pubCalls int
}

func (f *fakeRegistry) Projects(ctx context.Context, phrase string) ([]string, error) {
	f.phrases = append(f.phrases, phrase)
	if f.projErr != nil {
		return nil, f.projErr
	}
	return f.projects[phrase], nil
}

func (f *fakeRegistry) Publications(ctx context.Context, coreProjectNums []string) ([]string, error) {
	f.pubCalls++
	return f.pubs[strings.Join(coreProjectNums, ",")], nil
}

func TestCitationsRun(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000001": {PubmedIDs: []string{"17568782", "17903301", "99999999"}},
	}}
	lookup := &fakeLookup{summaries: map[string]pubmed.Summary{
		"17568782": {PubmedID: "17568782", Title: "Framingham epidemiology", Authors: "Mahmood SS", Journal: "Lancet", Year: "2014", CitationCount: 412},
		"17903301": {PubmedID: "17903301", Title: "GWAS of blood pressure", Journal: "BMC Med Genet", Year: "2007", CitationCount: 9000},
	}}

	studies := []*models.Study{
		{DbGapID: "phs000001", Title: "Framingham Cohort"},
		{DbGapID: "phs000002", Title: "No Documents Here"},
	}

	c := NewCitations(archive, lookup, zap.NewNop())
	report, err := c.Run(context.Background(), studies)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if lookup.calls != 1 {
		t.Errorf("lookup called %d times, want 1 (studies without ids skip)", lookup.calls)
	}

	pubs := report.Publications["phs000001"]
	if len(pubs) != 2 {
		t.Fatalf("got %d publications, want 2", len(pubs))
	}
	if pubs[0].CitationCount != 9000 || pubs[1].CitationCount != 412 {
		t.Errorf("publications not sorted by citations: %d, %d", pubs[0].CitationCount, pubs[1].CitationCount)
	}
	if pubs[0].Source != models.SourcePubMed {
		t.Errorf("source = %q", pubs[0].Source)
	}
	if pubs[1].PubmedID == nil || *pubs[1].PubmedID != "17568782" {
		t.Errorf("pubmed id = %v", pubs[1].PubmedID)
	}
	if pubs[1].PublicationYear == nil || *pubs[1].PublicationYear != 2014 {
		t.Errorf("publication year = %v", pubs[1].PublicationYear)
	}
	if pubs[1].Authors != "Mahmood SS" {
		t.Errorf("authors = %q", pubs[1].Authors)
	}

	if !reflect.DeepEqual(report.NotFound["phs000001"], []string{"99999999"}) {
		t.Errorf("not-found ids = %v, must be recorded", report.NotFound)
	}
	if report.PublicationCount() != 2 {
		t.Errorf("publication count = %d", report.PublicationCount())
	}
}

func TestCitationsToleratesStudyFailures(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000001": {PubmedIDs: []string{"1"}},
		"phs000002": {PubmedIDs: []string{"2"}},
	}}
	lookup := &fakeLookup{err: errors.New("eutils down")}

	studies := []*models.Study{
		{DbGapID: "phs000001"},
		{DbGapID: "phs000002"},
	}

	c := NewCitations(archive, lookup, zap.NewNop())
	report, err := c.Run(context.Background(), studies)
	if err != nil {
		t.Fatalf("per-study failures must not abort the pass: %v", err)
	}
	if lookup.calls != 2 {
		t.Errorf("lookup called %d times, want 2 (pass continues after failure)", lookup.calls)
	}
	if len(report.Publications) != 0 {
		t.Errorf("publications = %v", report.Publications)
	}
}

func TestCitationsArchiveUnreachable(t *testing.T) {
	archive := &fakeArchive{err: errors.New("ftp down")}
	lookup := &fakeLookup{}

	c := NewCitations(archive, lookup, zap.NewNop())
	report, err := c.Run(context.Background(), []*models.Study{{DbGapID: "phs000001"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if lookup.calls != 0 || len(report.Publications) != 0 {
		t.Errorf("unreachable archive must skip the study, got calls=%d report=%+v", lookup.calls, report)
	}
}

func TestGrantsRun(t *testing.T) {
	registry := &fakeRegistry{
		projects: map[string][]string{
			"Whole Genome Sequencing of Heart Cohort": {"5R01HL123456"},
		},
		pubs: map[string][]string{
			"5R01HL123456": {"30000001", "30000002"},
		},
	}
	lookup := &fakeLookup{summaries: map[string]pubmed.Summary{
		"30000001": {PubmedID: "30000001", Title: "Grant paper one", CitationCount: 1},
		"30000002": {PubmedID: "30000002", Title: "Grant paper two", CitationCount: 7},
	}}

	studies := []*models.Study{{
		DbGapID: "phs000001",
		Title:   "NHLBI TOPMed: Whole Genome Sequencing (WGS) of Heart Cohort",
	}}

	g := NewGrants(registry, lookup, zap.NewNop())
	report, err := g.Run(context.Background(), studies)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !reflect.DeepEqual(registry.phrases, []string{"Whole Genome Sequencing of Heart Cohort"}) {
		t.Errorf("search phrases = %v", registry.phrases)
	}

	pubs := report.Publications["phs000001"]
	if len(pubs) != 2 {
		t.Fatalf("got %d publications, want 2", len(pubs))
	}
	if pubs[0].CitationCount != 7 {
		t.Errorf("publications not sorted by citations: %+v", pubs[0])
	}
	if !pubs[0].IsGrantDerived() {
		t.Errorf("grant-linked publication not tagged: %q", pubs[0].Source)
	}
}

func TestGrantsSkipsStudiesWithoutProjects(t *testing.T) {
	registry := &fakeRegistry{}
	lookup := &fakeLookup{}

	g := NewGrants(registry, lookup, zap.NewNop())
	report, err := g.Run(context.Background(), []*models.Study{{DbGapID: "phs000001", Title: "Unfunded Study"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if registry.pubCalls != 0 || lookup.calls != 0 {
		t.Errorf("downstream lookups ran without projects: pubCalls=%d lookups=%d", registry.pubCalls, lookup.calls)
	}
	if len(report.Publications) != 0 {
		t.Errorf("publications = %v", report.Publications)
	}
}

func TestCleanSearchPhrase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NHLBI TOPMed: Whole Genome Sequencing (WGS) of Cohort", "Whole Genome Sequencing of Cohort"},
		{"Framingham Heart Study", "Framingham Heart Study"},
		{"Study (A) (B) End", "Study End"},
		{"Prefix:   ", ""},
		{"", ""},
		{"Multi  spaced   title", "Multi spaced title"},
	}

	for _, tt := range tests {
		if got := CleanSearchPhrase(tt.in); got != tt.want {
			t.Errorf("CleanSearchPhrase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
