package dbgap

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const studyCgiBase = "https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id="

// studyCgiPattern matches study browser links in any of the forms archive
// documents carry: bare "study.cgi?study_id=...", the "./" relative form,
// the site-absolute path, or the already-external URL.
var studyCgiPattern = regexp.MustCompile(`(?:https?://www\.ncbi\.nlm\.nih\.gov)?(?:\./|/projects/gap/cgi-bin/)?study\.cgi\?study_id=(phs\d+(?:\.v\d+(?:\.p\d+)?)?)`)

// ligatures expands the single-codepoint ligatures that PDF-derived
// description text occasionally carries.
var ligatures = strings.NewReplacer(
	"ﬁ", "fi", "ﬂ", "fl", "ﬀ", "ff", "ﬃ", "ffi", "ﬄ", "ffl", "ﬆ", "st",
	"œ", "oe", "æ", "ae",
)

var descriptionPolicy = bluemonday.UGCPolicy()

// CleanDocText post-processes free text pulled from an archive study
// document: collapses the literal tab runs the source embeds and rewrites
// internal study browser links into their external URL form. Everything
// else passes through unchanged.
func CleanDocText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\n\n\t", " ")
	text = strings.ReplaceAll(text, "\t", " ")
	return studyCgiPattern.ReplaceAllString(text, studyCgiBase+"$1")
}

// NormalizeText folds text to NFC and expands typographic ligatures.
func NormalizeText(s string) string {
	s = ligatures.Replace(s)
	out, _, err := transform.String(norm.NFC, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeDescription strips unsafe markup from a description and bounds
// its length. Truncation backs up to a word boundary and appends an
// ellipsis; maxRunes <= 0 disables the bound.
func SanitizeDescription(s string, maxRunes int) string {
	s = strings.TrimSpace(descriptionPolicy.Sanitize(s))
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	runes := []rune(s)
	truncated := string(runes[:maxRunes])
	if i := strings.LastIndex(truncated, " "); i > 0 {
		truncated = truncated[:i]
	}
	return strings.TrimRight(truncated, " ,.;:") + "..."
}
