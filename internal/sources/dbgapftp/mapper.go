package dbgapftp

import (
	"regexp"

	"github.com/gapcatalog/builder/internal/dbgap"
)

var (
	consentGroupPattern = regexp.MustCompile(`<ConsentGroup\s[^>]*>`)
	pubmedPattern       = regexp.MustCompile(`<Pubmed\s[^>]*?\bpmid="(\d+)"`)
)

// MapRecord pulls study metadata out of a study-config document. Fields
// the document lacks stay at their zero value; the resolver decides what
// other sources fill in.
func MapRecord(doc string) *Record {
	rec := &Record{ConsentNames: make(map[string]string)}

	if acc, ok := dbgap.ExtractAttr(doc, "Study", "accession"); ok {
		rec.Accession = acc
	}
	if parent, ok := dbgap.ExtractAttr(doc, "Study", "parentStudy"); ok {
		rec.ParentAccession = dbgap.StripVersion(parent)
	}
	if title, ok := dbgap.ExtractElement(doc, "StudyNameEntrez"); ok {
		rec.Title = title
	}
	if desc, ok := dbgap.ExtractElement(doc, "Description"); ok {
		rec.Description = dbgap.CleanDocText(desc)
	}
	rec.StudyDesigns = dbgap.ExtractElements(doc, "StudyType")
	rec.Instruments = dbgap.ExtractElements(doc, "Platform")

	for _, tag := range consentGroupPattern.FindAllString(doc, -1) {
		code, ok := dbgap.ExtractAttr(tag, "ConsentGroup", "shortName")
		if !ok {
			continue
		}
		rec.ConsentCodes = append(rec.ConsentCodes, code)
		if long, ok := dbgap.ExtractAttr(tag, "ConsentGroup", "longName"); ok {
			rec.ConsentNames[code] = long
		}
	}
	// Older documents write consent as "CODE --- description" text instead
	// of attributed groups.
	if len(rec.ConsentCodes) == 0 {
		if text, ok := dbgap.ExtractElement(doc, "StudyConsents"); ok {
			rec.ConsentCodes = dbgap.ParseConsentCodes(text)
		}
	}

	seen := make(map[string]bool)
	for _, m := range pubmedPattern.FindAllStringSubmatch(doc, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		rec.PubmedIDs = append(rec.PubmedIDs, m[1])
	}

	return rec
}
