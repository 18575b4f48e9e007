// Package consent generates display long names for dbGaP consent codes.
// Archive study documents usually carry curated long names; this package
// covers records that arrive with bare codes only.
package consent

import "strings"

// baseNames maps the leading token of a consent code to its long form.
var baseNames = map[string]string{
	"NRES": "No Restrictions",
	"GRU":  "General Research Use",
	"HMB":  "Health/Medical/Biomedical",
	"DS":   "Disease-Specific",
	"POA":  "Population Origins/Ancestry",
}

// modifiers are the use-limitation tokens that follow a base. They stay
// abbreviated inside the parenthetical, matching curated dbGaP names.
var modifiers = map[string]bool{
	"IRB":  true,
	"PUB":  true,
	"COL":  true,
	"NPU":  true,
	"MDS":  true,
	"GSO":  true,
	"RD":   true,
	"NMDS": true,
}

// LongName expands a consent code such as "DS-CVD-IRB" into its display
// form, "Disease-Specific (CVD, IRB)". Disease abbreviations after a DS
// base keep their hyphens until the first known modifier. Codes with an
// unknown base come back verbatim.
func LongName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}

	parts := strings.Split(code, "-")
	base, ok := baseNames[parts[0]]
	if !ok {
		return code
	}

	rest := parts[1:]
	var qualifiers []string
	if parts[0] == "DS" {
		var disease []string
		for len(rest) > 0 && !modifiers[rest[0]] {
			disease = append(disease, rest[0])
			rest = rest[1:]
		}
		if len(disease) > 0 {
			qualifiers = append(qualifiers, strings.Join(disease, "-"))
		}
	}
	qualifiers = append(qualifiers, rest...)

	if len(qualifiers) == 0 {
		return base
	}
	return base + " (" + strings.Join(qualifiers, ", ") + ")"
}

// Names builds the code-to-long-name map for a code list. Blank codes are
// skipped; duplicates collapse to one entry.
func Names(codes []string) map[string]string {
	out := make(map[string]string, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		out[code] = LongName(code)
	}
	return out
}
