package classify

import (
	"math"
	"sort"
)

// CoverageStats summarizes classification coverage for one study.
type CoverageStats struct {
	StudyID               string         `json:"studyId"`
	StudyName             string         `json:"studyName"`
	TotalTables           int            `json:"totalTables"`
	ClassifiedTables      int            `json:"classifiedTables"`
	UnclassifiedTables    int            `json:"unclassifiedTables"`
	TotalVariables        int            `json:"totalVariables"`
	ClassifiedVariables   int            `json:"classifiedVariables"`
	UnclassifiedVariables int            `json:"unclassifiedVariables"`
	ClassificationRate    float64        `json:"classificationRate"`
	Concepts              map[string]int `json:"concepts"`
}

// Coverage computes per-study coverage statistics, ordered by study
// identifier. A non-empty studyFilter restricts the report to that
// study.
func Coverage(tables []*ParsedTable, classifications []Classification, studyFilter string) []CoverageStats {
	tablesByStudy := make(map[string][]*ParsedTable)
	for _, t := range tables {
		tablesByStudy[t.StudyID] = append(tablesByStudy[t.StudyID], t)
	}
	classByStudy := make(map[string][]Classification)
	for _, c := range classifications {
		classByStudy[c.StudyID] = append(classByStudy[c.StudyID], c)
	}

	studyIDs := make([]string, 0, len(tablesByStudy))
	for id := range tablesByStudy {
		if studyFilter != "" && id != studyFilter {
			continue
		}
		studyIDs = append(studyIDs, id)
	}
	sort.Strings(studyIDs)

	stats := make([]CoverageStats, 0, len(studyIDs))
	for _, id := range studyIDs {
		stats = append(stats, studyCoverage(tablesByStudy[id], classByStudy[id]))
	}
	return stats
}

// studyCoverage computes the stats for a single study. The variable rate
// is a percentage rounded to one decimal.
func studyCoverage(tables []*ParsedTable, classifications []Classification) CoverageStats {
	stats := CoverageStats{
		StudyID:     tables[0].StudyID,
		StudyName:   tables[0].StudyName,
		TotalTables: len(tables),
		Concepts:    make(map[string]int),
	}

	classifiedIDs := make(map[string]bool, len(classifications))
	for _, c := range classifications {
		classifiedIDs[c.DatasetID] = true
		stats.ClassifiedVariables += c.VariableCount
		stats.Concepts[c.Concept] += c.VariableCount
	}

	for _, t := range tables {
		stats.TotalVariables += t.VariableCount
		if classifiedIDs[t.DatasetID] {
			stats.ClassifiedTables++
		}
	}

	stats.UnclassifiedTables = stats.TotalTables - stats.ClassifiedTables
	stats.UnclassifiedVariables = stats.TotalVariables - stats.ClassifiedVariables
	if stats.TotalVariables > 0 {
		rate := float64(stats.ClassifiedVariables) / float64(stats.TotalVariables) * 100
		stats.ClassificationRate = math.Round(rate*10) / 10
	}
	return stats
}
