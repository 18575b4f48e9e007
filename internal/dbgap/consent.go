package dbgap

import "regexp"

// Consent descriptor entries look like
//
//	GRU --- General Research Use, DS-CVD --- Disease-Specific (Cardiovascular Disease, IRB)
//
// The long-form descriptions contain free commas, so entries are recognized
// by their "CODE ---" delimiter instead of being split on commas.
var consentEntryPattern = regexp.MustCompile(`([A-Z][A-Za-z0-9-]*)\s*---`)

// ParseConsentCodes extracts the short consent tokens from a descriptor
// string, in source order and with duplicates kept. "Not Provided" and
// empty input yield no codes.
func ParseConsentCodes(raw string) []string {
	if isBlank(raw) {
		return []string{}
	}

	matches := consentEntryPattern.FindAllStringSubmatch(raw, -1)
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, m[1])
	}
	return codes
}
