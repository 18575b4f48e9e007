package resolve

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/seeds"
	"github.com/gapcatalog/builder/internal/sources/dbgapftp"
	"github.com/gapcatalog/builder/internal/sources/gap"
)

type fakeArchive struct {
	records map[string]*dbgapftp.Record
	err     error
	calls   int
}

func (f *fakeArchive) Record(ctx context.Context, id string) (*dbgapftp.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

type fakeSummary struct {
	records map[string]*gap.Record
	err     error
	calls   int
}

func (f *fakeSummary) Record(ctx context.Context, id string) (*gap.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

type fakeSequence struct {
	types map[string][]string
	err   error
	calls int
}

func (f *fakeSequence) DataTypes(ctx context.Context, id string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.types[id], nil
}

func newTestResolver(t *testing.T, archive *fakeArchive, summary *fakeSummary, sequence *fakeSequence, rows []seeds.StudyRow, opts Options) *Resolver {
	t.Helper()

	r, err := New(archive, summary, sequence, seeds.NewStudyCache(rows), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestNewRequiresSeedCache(t *testing.T) {
	_, err := New(&fakeArchive{}, &fakeSummary{}, &fakeSequence{}, nil, Options{})
	if err == nil {
		t.Fatal("expected error for nil study cache")
	}
}

func TestResolveMergesAllSources(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000001": {
			Accession:    "phs000001.v3.p1",
			Title:        "Test Study",
			Description:  "A cohort description.",
			ConsentCodes: []string{"GRU"},
			ConsentNames: map[string]string{"GRU": "General Research Use"},
			StudyDesigns: []string{"Prospective Longitudinal Cohort"},
		},
	}}
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000001": {
			Accession:        "phs000001.v2.p1",
			Title:            "Older Title",
			Focus:            "Heart Disease",
			DataTypes:        []string{"WGS", "RNA-Seq"},
			ParticipantCount: 100,
		},
	}}
	sequence := &fakeSequence{}

	r := newTestResolver(t, archive, summary, sequence, nil, Options{})

	out := r.Resolve(context.Background(), "phs000001")
	if out.Verdict != VerdictAccepted {
		t.Fatalf("verdict = %q, want accepted", out.Verdict)
	}
	if len(out.Unreachable) != 0 {
		t.Fatalf("unexpected unreachable sources: %v", out.Unreachable)
	}

	st := out.Study
	if st.Title != "Test Study" {
		t.Errorf("title = %q, want archive title", st.Title)
	}
	if st.Accession != "phs000001.v3.p1" {
		t.Errorf("accession = %q, want archive accession", st.Accession)
	}
	if st.Description != "A cohort description." {
		t.Errorf("description = %q", st.Description)
	}
	if !reflect.DeepEqual(st.ConsentCodes, models.StringArray{"GRU"}) {
		t.Errorf("consent codes = %v", st.ConsentCodes)
	}
	if st.ConsentLongNames["GRU"] != "General Research Use" {
		t.Errorf("consent long names = %v", st.ConsentLongNames)
	}
	if !reflect.DeepEqual(st.StudyDesigns, models.StringArray{"Prospective Longitudinal Cohort"}) {
		t.Errorf("study designs = %v", st.StudyDesigns)
	}
	if !reflect.DeepEqual(st.DataTypes, models.StringArray{"RNA-Seq", "WGS"}) {
		t.Errorf("data types = %v, want sorted summary types", st.DataTypes)
	}
	if st.ParticipantCount != 100 {
		t.Errorf("participant count = %d, want 100", st.ParticipantCount)
	}
	if st.Focus != "Heart Disease" {
		t.Errorf("focus = %q", st.Focus)
	}
	if st.RegistryURL != "" {
		t.Errorf("registry url = %q, want empty", st.RegistryURL)
	}
	if !reflect.DeepEqual(st.Platforms, models.StringArray{"dbGaP"}) {
		t.Errorf("platforms = %v, want default", st.Platforms)
	}
	if sequence.calls != 0 {
		t.Errorf("sequence archive consulted %d times despite curated data types", sequence.calls)
	}
}

func TestResolveFallsBackToSummaryAndSeed(t *testing.T) {
	archive := &fakeArchive{}
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000002": {
			Accession:        "phs000002.v1.p1",
			Title:            "Summary Title",
			StudyDesigns:     []string{"Case-Control"},
			ParticipantCount: 50,
		},
	}}
	sequence := &fakeSequence{}
	rows := []seeds.StudyRow{{
		Accession:   "phs000002.v1.p1",
		Name:        "Seed Name",
		Description: "Seed description text.",
		Consent:     "HMB-IRB --- Health/Medical/Biomedical (IRB)",
	}}

	r := newTestResolver(t, archive, summary, sequence, rows, Options{})

	out := r.Resolve(context.Background(), "phs000002")
	if out.Verdict != VerdictAccepted {
		t.Fatalf("verdict = %q, want accepted", out.Verdict)
	}

	st := out.Study
	if st.Title != "Summary Title" {
		t.Errorf("title = %q, want summary title over seed name", st.Title)
	}
	if st.Accession != "phs000002.v1.p1" {
		t.Errorf("accession = %q", st.Accession)
	}
	if st.Description != "Seed description text." {
		t.Errorf("description = %q, want seed fallback", st.Description)
	}
	if !reflect.DeepEqual(st.ConsentCodes, models.StringArray{"HMB-IRB"}) {
		t.Errorf("consent codes = %v, want seed fallback", st.ConsentCodes)
	}
	if st.ConsentLongNames["HMB-IRB"] != "Health/Medical/Biomedical (IRB)" {
		t.Errorf("consent long names = %v", st.ConsentLongNames)
	}
	if !reflect.DeepEqual(st.StudyDesigns, models.StringArray{"Case-Control"}) {
		t.Errorf("study designs = %v, want summary fallback", st.StudyDesigns)
	}
}

func TestResolveSeedOnlyStudy(t *testing.T) {
	archive := &fakeArchive{err: errors.New("connection refused")}
	summary := &fakeSummary{err: errors.New("503")}
	sequence := &fakeSequence{err: errors.New("503")}
	rows := []seeds.StudyRow{{
		Accession:   "phs000777.v2.p1",
		Name:        "Seeded Study",
		Content:     "4 phenotype datasets, 21 variables, 120 subjects, 120 samples",
		Consent:     "GRU --- General Research Use",
		Design:      "Cohort",
		Disease:     "Carcinoma, Merkel Cell",
		DataTypes:   "WGS, WGS, RNA-Seq",
		Description: "Kept offline.",
	}}

	r := newTestResolver(t, archive, summary, sequence, rows, Options{})

	out := r.Resolve(context.Background(), "phs000777")
	if out.Verdict != VerdictAccepted {
		t.Fatalf("verdict = %q, want accepted from seed data alone", out.Verdict)
	}

	want := []models.DataSource{models.SourceArchive, models.SourceSummary, models.SourceSRA}
	if !reflect.DeepEqual(out.Unreachable, want) {
		t.Errorf("unreachable = %v, want %v", out.Unreachable, want)
	}

	st := out.Study
	if st.Title != "Seeded Study" {
		t.Errorf("title = %q", st.Title)
	}
	if st.ParticipantCount != 120 {
		t.Errorf("participant count = %d, want 120 from content string", st.ParticipantCount)
	}
	if st.Focus != "Carcinoma, Merkel Cell" {
		t.Errorf("focus = %q, commas must survive", st.Focus)
	}
	if !reflect.DeepEqual(st.DataTypes, models.StringArray{"RNA-Seq", "WGS"}) {
		t.Errorf("data types = %v, want deduplicated seed types", st.DataTypes)
	}
	if !reflect.DeepEqual(st.StudyDesigns, models.StringArray{"Cohort"}) {
		t.Errorf("study designs = %v", st.StudyDesigns)
	}
}

func TestResolvePlatformStudyWithoutParticipants(t *testing.T) {
	records := map[string]*dbgapftp.Record{
		"phs000003": {Accession: "phs000003.v1.p1", Title: "Platform Study"},
		"phs000004": {Accession: "phs000004.v1.p1", Title: "Regular Study"},
	}
	archive := &fakeArchive{records: records}
	summary := &fakeSummary{}
	sequence := &fakeSequence{}

	r := newTestResolver(t, archive, summary, sequence, nil, Options{
		Platforms: map[string][]string{"phs000003": {"AnVIL"}},
	})

	out := r.Resolve(context.Background(), "phs000003")
	if out.Verdict != VerdictAccepted {
		t.Fatalf("platform study verdict = %q, want accepted despite zero participants", out.Verdict)
	}
	if !reflect.DeepEqual(out.Study.Platforms, models.StringArray{"AnVIL"}) {
		t.Errorf("platforms = %v", out.Study.Platforms)
	}

	out = r.Resolve(context.Background(), "phs000004")
	if out.Verdict != VerdictIncomplete {
		t.Fatalf("non-platform verdict = %q, want incomplete", out.Verdict)
	}
	if out.Study != nil {
		t.Error("incomplete outcome must not carry a study")
	}
}

func TestResolveMultiplePlatformTags(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000005": {Accession: "phs000005.v1.p1", Title: "Shared Study"},
	}}

	r := newTestResolver(t, archive, &fakeSummary{}, &fakeSequence{}, nil, Options{
		Platforms:     map[string][]string{"phs000005": {"AnVIL", "BDC"}},
		RegistryLinks: map[string]string{"phs000005": "https://clinicaltrials.gov/study/NCT00005"},
	})

	out := r.Resolve(context.Background(), "phs000005")
	if out.Verdict != VerdictAccepted {
		t.Fatalf("verdict = %q", out.Verdict)
	}
	if !reflect.DeepEqual(out.Study.Platforms, models.StringArray{"AnVIL", "BDC"}) {
		t.Errorf("platforms = %v, want both tags on one study", out.Study.Platforms)
	}
	if out.Study.RegistryURL != "https://clinicaltrials.gov/study/NCT00005" {
		t.Errorf("registry url = %q", out.Study.RegistryURL)
	}
}

func TestResolveCachesOutcomes(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000006": {Accession: "phs000006.v1.p1", Title: "Cached Study"},
	}}
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000006": {ParticipantCount: 10},
	}}

	r := newTestResolver(t, archive, summary, &fakeSequence{}, nil, Options{})

	first := r.Resolve(context.Background(), "phs000006")
	second := r.Resolve(context.Background(), "phs000006")
	if first != second {
		t.Error("repeated lookups must return the cached outcome")
	}
	if archive.calls != 1 || summary.calls != 1 {
		t.Errorf("sources consulted archive=%d summary=%d times, want 1 each", archive.calls, summary.calls)
	}
}

func TestResolveMalformedIdentifier(t *testing.T) {
	archive := &fakeArchive{}
	summary := &fakeSummary{}
	sequence := &fakeSequence{}

	r := newTestResolver(t, archive, summary, sequence, nil, Options{})

	for _, id := range []string{"", "phs", "PHS000001", "phs000001.v1.p1", "12345"} {
		out := r.Resolve(context.Background(), id)
		if out.Verdict != VerdictUnavailable {
			t.Errorf("Resolve(%q) verdict = %q, want unavailable", id, out.Verdict)
		}
	}
	if archive.calls != 0 || summary.calls != 0 || sequence.calls != 0 {
		t.Errorf("malformed identifiers must not reach the network: archive=%d summary=%d sequence=%d",
			archive.calls, summary.calls, sequence.calls)
	}
}

func TestResolveUnknownIdentifier(t *testing.T) {
	r := newTestResolver(t, &fakeArchive{}, &fakeSummary{}, &fakeSequence{}, nil, Options{})

	out := r.Resolve(context.Background(), "phs999999")
	if out.Verdict != VerdictUnavailable {
		t.Fatalf("verdict = %q, want unavailable when no source knows the id", out.Verdict)
	}
	if out.Study != nil {
		t.Error("unavailable outcome must not carry a study")
	}
}

func TestResolveSequenceArchiveFallback(t *testing.T) {
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000008": {Title: "Seq Study", ParticipantCount: 30},
	}}
	sequence := &fakeSequence{types: map[string][]string{
		"phs000008": {"WGS", "RNA-Seq", "WES"},
	}}
	rows := []seeds.StudyRow{{Accession: "phs000008.v1.p1", DataTypes: "RNA-Seq"}}

	r := newTestResolver(t, &fakeArchive{}, summary, sequence, rows, Options{})

	out := r.Resolve(context.Background(), "phs000008")
	if out.Verdict != VerdictAccepted {
		t.Fatalf("verdict = %q", out.Verdict)
	}
	if sequence.calls != 1 {
		t.Fatalf("sequence archive consulted %d times, want 1", sequence.calls)
	}
	if !reflect.DeepEqual(out.Study.DataTypes, models.StringArray{"RNA-Seq", "WES", "WGS"}) {
		t.Errorf("data types = %v, want merged and sorted without duplicates", out.Study.DataTypes)
	}
}

func TestResolveSynthesizesSNPArrayTerm(t *testing.T) {
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000009": {
			Title:            "Array Study",
			DataTypes:        []string{"WGS"},
			Instruments:      []string{"Illumina HumanOmni2.5-8"},
			ParticipantCount: 40,
		},
		"phs000010": {
			Title:            "Curated Array Study",
			DataTypes:        []string{"SNP Genotypes (Array)"},
			Instruments:      []string{"Affymetrix 6.0"},
			ParticipantCount: 40,
		},
		"phs000011": {
			Title:            "Sequencer Study",
			DataTypes:        []string{"WGS"},
			Instruments:      []string{"PacBio Sequel II"},
			ParticipantCount: 40,
		},
	}}

	r := newTestResolver(t, &fakeArchive{}, summary, &fakeSequence{}, nil, Options{})

	out := r.Resolve(context.Background(), "phs000009")
	if !reflect.DeepEqual(out.Study.DataTypes, models.StringArray{"SNP Genotypes (Array)", "WGS"}) {
		t.Errorf("data types = %v, want synthesized array term", out.Study.DataTypes)
	}

	out = r.Resolve(context.Background(), "phs000010")
	if !reflect.DeepEqual(out.Study.DataTypes, models.StringArray{"SNP Genotypes (Array)"}) {
		t.Errorf("data types = %v, existing term must not duplicate", out.Study.DataTypes)
	}

	out = r.Resolve(context.Background(), "phs000011")
	if !reflect.DeepEqual(out.Study.DataTypes, models.StringArray{"WGS"}) {
		t.Errorf("data types = %v, non-array instruments must not synthesize", out.Study.DataTypes)
	}
}

func TestResolveGeneratesMissingConsentNames(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000012": {
			Accession:    "phs000012.v1.p1",
			Title:        "Consent Study",
			ConsentCodes: []string{"HMB-IRB", "DS-CVD"},
			ConsentNames: map[string]string{"DS-CVD": "Disease-Specific (Cardiovascular Disease)"},
		},
	}}
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000012": {ParticipantCount: 5},
	}}

	r := newTestResolver(t, archive, summary, &fakeSequence{}, nil, Options{})

	out := r.Resolve(context.Background(), "phs000012")
	st := out.Study
	if st.ConsentLongNames["HMB-IRB"] != "Health/Medical/Biomedical (IRB)" {
		t.Errorf("generated long name = %q", st.ConsentLongNames["HMB-IRB"])
	}
	if st.ConsentLongNames["DS-CVD"] != "Disease-Specific (Cardiovascular Disease)" {
		t.Errorf("curated long name overwritten: %q", st.ConsentLongNames["DS-CVD"])
	}
	if err := st.Validate(); err != nil {
		t.Errorf("accepted study fails validation: %v", err)
	}
}

func TestResolveParentStudy(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000013": {
			Accession:       "phs000013.v4.p2",
			Title:           "Child Study",
			ParentAccession: "phs000007",
		},
	}}
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000013": {ParticipantCount: 12},
	}}

	r := newTestResolver(t, archive, summary, &fakeSequence{}, nil, Options{})

	out := r.Resolve(context.Background(), "phs000013")
	if out.Study.ParentStudyID != "phs000007" {
		t.Errorf("parent study id = %q", out.Study.ParentStudyID)
	}
}

func TestResolveSanitizesDescription(t *testing.T) {
	archive := &fakeArchive{records: map[string]*dbgapftp.Record{
		"phs000014": {
			Accession:   "phs000014.v1.p1",
			Title:       "Markup Study",
			Description: `<script>alert(1)</script><p>The ﬁrst cohort enrolled across many centers over several years.</p>`,
		},
	}}
	summary := &fakeSummary{records: map[string]*gap.Record{
		"phs000014": {ParticipantCount: 9},
	}}

	r := newTestResolver(t, archive, summary, &fakeSequence{}, nil, Options{MaxDescriptionRunes: 40})

	out := r.Resolve(context.Background(), "phs000014")
	desc := out.Study.Description
	if strings.Contains(desc, "script") || strings.Contains(desc, "alert") {
		t.Errorf("description kept unsafe markup: %q", desc)
	}
	if strings.Contains(desc, "ﬁ") {
		t.Errorf("description kept ligature: %q", desc)
	}
	if !strings.HasSuffix(desc, "...") {
		t.Errorf("description not truncated: %q", desc)
	}
}
