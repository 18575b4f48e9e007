package gap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

// mockLimiter admits every request immediately.
type mockLimiter struct{}

func (mockLimiter) Wait(_ context.Context) error { return nil }
func (mockLimiter) Allow() bool                  { return true }
func (mockLimiter) Reserve() time.Duration       { return 0 }
func (mockLimiter) Reset()                       {}

const summaryJSON = `{
 "header": {"type": "esummary", "version": "0.3"},
 "result": {
  "uids": ["267"],
  "267": {
   "d_study_id": "phs000007.v30.p11",
   "d_study_name": "Framingham Cohort",
   "d_study_content": "4 phenotype datasets, 21 variables, 7173 samples sequenced, 14428 subjects, 14428 samples",
   "d_study_design": "Prospective Longitudinal Cohort",
   "d_study_types": "Phenotypes, SNP Genotypes, Phenotypes",
   "d_disease_list": [
    {"d_disease_name": "Hypertension", "d_is_primary": "N"},
    {"d_disease_name": "Cardiovascular Disease", "d_is_primary": "Y"}
   ],
   "d_genotype_platforms": [
    {"d_platform_name": "Affymetrix 500K"},
    {"d_platform_name": ""}
   ]
  }
 }
}`

func newTestServer(t *testing.T, searchBody string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(searchBody))
		case "/esummary.fcgi":
			if r.URL.Query().Get("db") != "gap" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(summaryJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRecordMapsSummaryFields(t *testing.T) {
	ts := newTestServer(t, `{"esearchresult":{"count":"1","retmax":"1","idlist":["267"]}}`)
	client := NewClient(ts.URL, mockLimiter{}, "", "", "")

	rec, err := client.Record(context.Background(), "phs000007")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record")
	}

	if rec.Accession != "phs000007.v30.p11" {
		t.Errorf("unexpected accession: %q", rec.Accession)
	}
	if rec.Title != "Framingham Cohort" {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.ParticipantCount != 14428 {
		t.Errorf("expected subjects marker to win over samples sequenced, got %d", rec.ParticipantCount)
	}
	if rec.Focus != "Cardiovascular Disease" {
		t.Errorf("expected primary disease, got %q", rec.Focus)
	}
	if !reflect.DeepEqual(rec.DataTypes, []string{"Phenotypes", "SNP Genotypes"}) {
		t.Errorf("unexpected data types: %v", rec.DataTypes)
	}
	if !reflect.DeepEqual(rec.StudyDesigns, []string{"Prospective Longitudinal Cohort"}) {
		t.Errorf("unexpected designs: %v", rec.StudyDesigns)
	}
	if !reflect.DeepEqual(rec.Instruments, []string{"Affymetrix 500K"}) {
		t.Errorf("unexpected instruments: %v", rec.Instruments)
	}
}

func TestRecordAbsentFromIndex(t *testing.T) {
	ts := newTestServer(t, `{"esearchresult":{"count":"0","retmax":"0","idlist":[]}}`)
	client := NewClient(ts.URL, mockLimiter{}, "", "", "")

	rec, err := client.Record(context.Background(), "phs999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestRecordServerFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)
	client := NewClient(ts.URL, mockLimiter{}, "", "", "")

	if _, err := client.Record(context.Background(), "phs000007"); err == nil {
		t.Fatalf("expected error for unavailable index")
	}
}

func TestPrimaryDiseaseFallsBackToFirst(t *testing.T) {
	got := primaryDisease([]studyDisease{
		{Name: "Asthma", Primary: "N"},
		{Name: "COPD", Primary: "N"},
	})
	if got != "Asthma" {
		t.Errorf("primaryDisease = %q, want Asthma", got)
	}
	if got := primaryDisease(nil); got != "" {
		t.Errorf("primaryDisease(nil) = %q", got)
	}
}
