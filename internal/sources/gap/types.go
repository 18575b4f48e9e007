package gap

// Record is the legacy summary's view of one study.
type Record struct {
	Accession        string
	Title            string
	Focus            string
	StudyDesigns     []string
	DataTypes        []string
	Instruments      []string
	ParticipantCount int
}

// studySummary mirrors one DocumentSummary from esummary db=gap.
type studySummary struct {
	DStudyID      string         `json:"d_study_id"`
	DStudyName    string         `json:"d_study_name"`
	DStudyContent string         `json:"d_study_content"`
	DStudyDesign  string         `json:"d_study_design"`
	DStudyTypes   string         `json:"d_study_types"`
	DDiseaseList  []studyDisease `json:"d_disease_list"`
	DPlatformList []gapPlatform  `json:"d_genotype_platforms"`
}

type studyDisease struct {
	Name    string `json:"d_disease_name"`
	Primary string `json:"d_is_primary"`
}

type gapPlatform struct {
	Name string `json:"d_platform_name"`
}
