package gap

import "github.com/gapcatalog/builder/internal/dbgap"

// mapRecord converts a DocumentSummary to the merge-layer record. The
// participant count comes out of the free-text content field; its " subjects"
// marker is the only trustworthy total there.
func mapRecord(s *studySummary) *Record {
	rec := &Record{
		Accession:        s.DStudyID,
		Title:            s.DStudyName,
		StudyDesigns:     dbgap.ParseStudyDesign(s.DStudyDesign),
		DataTypes:        dbgap.ParseDataTypes(s.DStudyTypes),
		ParticipantCount: dbgap.ParseParticipantCount(s.DStudyContent),
		Focus:            primaryDisease(s.DDiseaseList),
	}
	for _, p := range s.DPlatformList {
		if p.Name != "" {
			rec.Instruments = append(rec.Instruments, p.Name)
		}
	}
	return rec
}

// primaryDisease picks the disease flagged primary, falling back to the
// first listed one.
func primaryDisease(diseases []studyDisease) string {
	for _, d := range diseases {
		if d.Primary == "Y" {
			return dbgap.ParseFocus(d.Name)
		}
	}
	if len(diseases) > 0 {
		return dbgap.ParseFocus(diseases[0].Name)
	}
	return ""
}
