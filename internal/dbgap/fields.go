package dbgap

import (
	"regexp"
	"strconv"
	"strings"
)

// NotProvided is the placeholder dbGaP emits for fields without curated data.
const NotProvided = "Not Provided"

var studyIDPattern = regexp.MustCompile(`^phs\d+$`)

// ValidID reports whether s is a bare study identifier (phs + digits,
// no version suffix).
func ValidID(s string) bool {
	return studyIDPattern.MatchString(s)
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == NotProvided
}

// ParseCommaList splits a comma-separated field into trimmed entries.
// "Not Provided" and empty input both mean no entries.
func ParseCommaList(raw string) []string {
	if isBlank(raw) {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseDataTypes parses a comma-separated data-type field and drops
// duplicates, keeping first-seen order.
func ParseDataTypes(raw string) []string {
	entries := ParseCommaList(raw)
	out := make([]string, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// ParseFocus returns the disease/focus term as-is. Commas are part of the
// term ("Carcinoma, Merkel Cell"), so no splitting happens here.
func ParseFocus(raw string) string {
	if isBlank(raw) {
		return ""
	}
	return strings.TrimSpace(raw)
}

// ParseStudyDesign wraps the single study-design value in a list.
func ParseStudyDesign(raw string) []string {
	if isBlank(raw) {
		return []string{}
	}
	return []string{strings.TrimSpace(raw)}
}

// ParseParticipantCount extracts the subject total from a summary content
// string such as "4 phenotype datasets, 21 variables, 705 subjects, 705
// samples". Only the " subjects" marker counts; "samples sequenced" totals
// that precede it must be ignored. Returns 0 when no count is present.
func ParseParticipantCount(content string) int {
	idx := strings.Index(content, " subjects")
	if idx <= 0 {
		return 0
	}

	start := idx
	for start > 0 && content[start-1] >= '0' && content[start-1] <= '9' {
		start--
	}
	if start == idx {
		return 0
	}

	n, err := strconv.Atoi(content[start:idx])
	if err != nil {
		return 0
	}
	return n
}
