package reporter

type searchMeta struct {
	Total int `json:"total"`
}

type advancedTextSearch struct {
	Operator    string `json:"operator"`
	SearchField string `json:"search_field"`
	SearchText  string `json:"search_text"`
}

type projectCriteria struct {
	AdvancedTextSearch *advancedTextSearch `json:"advanced_text_search,omitempty"`
}

type projectSearchRequest struct {
	Criteria      projectCriteria `json:"criteria"`
	IncludeFields []string        `json:"include_fields,omitempty"`
	Offset        int             `json:"offset"`
	Limit         int             `json:"limit"`
}

type projectResult struct {
	CoreProjectNum string `json:"core_project_num"`
}

type projectSearchResponse struct {
	Meta    searchMeta      `json:"meta"`
	Results []projectResult `json:"results"`
}

type publicationCriteria struct {
	CoreProjectNums []string `json:"core_project_nums"`
}

type publicationSearchRequest struct {
	Criteria publicationCriteria `json:"criteria"`
	Offset   int                 `json:"offset"`
	Limit    int                 `json:"limit"`
}

type publicationResult struct {
	PMID int64 `json:"pmid"`
}

type publicationSearchResponse struct {
	Meta    searchMeta          `json:"meta"`
	Results []publicationResult `json:"results"`
}
