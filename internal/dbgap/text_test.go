package dbgap

import (
	"strings"
	"testing"
)

func TestCleanDocTextCollapsesTabRuns(t *testing.T) {
	in := "The cohort enrolled in 1948.\n\n\tExam cycles repeat\tbiennially."
	want := "The cohort enrolled in 1948. Exam cycles repeat biennially."
	if got := CleanDocText(in); got != want {
		t.Errorf("CleanDocText = %q, want %q", got, want)
	}
}

func TestCleanDocTextRewritesStudyLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"relative",
			`See <a href="./study.cgi?study_id=phs000007.v30.p11">the parent study</a>.`,
			`See <a href="https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id=phs000007.v30.p11">the parent study</a>.`,
		},
		{
			"bare",
			`study.cgi?study_id=phs000401`,
			`https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id=phs000401`,
		},
		{
			"site absolute path",
			`href="/projects/gap/cgi-bin/study.cgi?study_id=phs000200.v12.p3"`,
			`href="https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id=phs000200.v12.p3"`,
		},
		{
			"already external stays put",
			`https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id=phs000007`,
			`https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id=phs000007`,
		},
		{
			"unrelated text untouched",
			"Subjects were genotyped on two platforms.",
			"Subjects were genotyped on two platforms.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDocText(tt.in); got != tt.want {
				t.Errorf("CleanDocText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTextExpandsLigatures(t *testing.T) {
	if got := NormalizeText("pulmonary ﬁbrosis aﬀects"); got != "pulmonary fibrosis affects" {
		t.Errorf("NormalizeText = %q", got)
	}
}

func TestNormalizeTextComposesNFC(t *testing.T) {
	// "e" + combining acute accent composes to a single code point
	if got := NormalizeText("Ménière"); got != "Ménière" {
		t.Errorf("NormalizeText = %q", got)
	}
}

func TestSanitizeDescriptionStripsUnsafeMarkup(t *testing.T) {
	in := `<p>Cohort text</p><script>alert(1)</script>`
	got := SanitizeDescription(in, 0)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("expected script removed, got %q", got)
	}
	if !strings.Contains(got, "<p>Cohort text</p>") {
		t.Errorf("expected paragraph kept, got %q", got)
	}
}

func TestSanitizeDescriptionTruncatesOnWordBoundary(t *testing.T) {
	got := SanitizeDescription("alpha beta gamma delta", 10)
	if got != "alpha..." {
		t.Errorf("SanitizeDescription = %q, want %q", got, "alpha...")
	}
}

func TestSanitizeDescriptionKeepsShortInput(t *testing.T) {
	if got := SanitizeDescription("short text", 100); got != "short text" {
		t.Errorf("SanitizeDescription = %q", got)
	}
	if got := SanitizeDescription("unbounded text", 0); got != "unbounded text" {
		t.Errorf("SanitizeDescription with no bound = %q", got)
	}
}

func TestSanitizeDescriptionRuneBounded(t *testing.T) {
	got := SanitizeDescription("ααααα βββββ γγγγγ", 8)
	if got != "ααααα..." {
		t.Errorf("SanitizeDescription = %q", got)
	}
}
