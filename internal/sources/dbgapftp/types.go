package dbgapftp

// Record is the archive's view of one study, mapped from the newest
// release's study-config document.
type Record struct {
	Accession       string
	Title           string
	Description     string
	ConsentCodes    []string
	ConsentNames    map[string]string
	StudyDesigns    []string
	Instruments     []string
	ParentAccession string
	PubmedIDs       []string
}
