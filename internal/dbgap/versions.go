package dbgap

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var versionTagPattern = regexp.MustCompile(`v(\d+)\.p(\d+)`)

// ParseVersionTags pulls every release tag (vN.pM) for one identifier out
// of an archive directory listing, deduplicated in listing order. Listings
// repeat each subdirectory name in href and anchor text.
func ParseVersionTags(listing, id string) []string {
	re := regexp.MustCompile(regexp.QuoteMeta(id) + `\.(v\d+\.p\d+)/`)

	matches := re.FindAllStringSubmatch(listing, -1)
	tags := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		tags = append(tags, m[1])
	}
	return tags
}

// SortVersions orders release tags newest first, comparing version and
// participant-set numbers numerically so v10 sorts above v9. The input
// slice is never modified.
func SortVersions(tags []string) []string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)

	sort.SliceStable(sorted, func(i, j int) bool {
		vi, pi, oki := splitVersionTag(sorted[i])
		vj, pj, okj := splitVersionTag(sorted[j])
		if oki != okj {
			return oki
		}
		if vi != vj {
			return vi > vj
		}
		return pi > pj
	})
	return sorted
}

func splitVersionTag(tag string) (version, participantSet int, ok bool) {
	m := versionTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, 0, false
	}
	v, _ := strconv.Atoi(m[1])
	p, _ := strconv.Atoi(m[2])
	return v, p, true
}

// Accession joins an identifier and a release tag into the full accession.
func Accession(id, tag string) string {
	return id + "." + tag
}

// StripVersion reduces a versioned accession to the bare identifier.
func StripVersion(accession string) string {
	if i := strings.IndexByte(accession, '.'); i >= 0 {
		return accession[:i]
	}
	return accession
}

// LatestExchangeURL builds the study-config document URL for the newest
// release of a study. The version list may arrive in any order. Returns
// false when no usable release tag exists.
func LatestExchangeURL(root, id string, tags []string) (string, bool) {
	sorted := SortVersions(tags)
	if len(sorted) == 0 {
		return "", false
	}
	if _, _, ok := splitVersionTag(sorted[0]); !ok {
		return "", false
	}

	acc := Accession(id, sorted[0])
	return fmt.Sprintf("%s/%s/%s/GapExchange_%s.xml", strings.TrimSuffix(root, "/"), id, acc, acc), true
}
