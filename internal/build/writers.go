package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gapcatalog/builder/internal/models"
)

// WriteStudies writes the canonical study catalog as an identifier-sorted
// JSON array.
func WriteStudies(path string, studies []*models.Study) error {
	return WriteJSON(path, studies)
}

// LoadStudies reads a previously written catalog back, for the enrichment
// passes that run as separate processes.
func LoadStudies(path string) ([]*models.Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var studies []*models.Study
	if err := json.Unmarshal(data, &studies); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return studies, nil
}

// PlatformSummary is the per-platform aggregate behind the platform
// listing page.
type PlatformSummary struct {
	Platform     string   `json:"platform"`
	StudyCount   int      `json:"studyCount"`
	Participants int      `json:"participants"`
	ConsentCodes []string `json:"consentCodes"`
	DataTypes    []string `json:"dataTypes"`
}

// PlatformView aggregates the catalog per platform tag: study counts,
// participant totals and the unions of consent codes and data types.
func PlatformView(studies []*models.Study) []PlatformSummary {
	type agg struct {
		count        int
		participants int
		consents     map[string]bool
		dataTypes    map[string]bool
	}

	byTag := make(map[string]*agg)
	for _, st := range studies {
		for _, tag := range st.Platforms {
			a := byTag[tag]
			if a == nil {
				a = &agg{consents: map[string]bool{}, dataTypes: map[string]bool{}}
				byTag[tag] = a
			}
			a.count++
			a.participants += st.ParticipantCount
			for _, c := range st.ConsentCodes {
				a.consents[c] = true
			}
			for _, dt := range st.DataTypes {
				a.dataTypes[dt] = true
			}
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	view := make([]PlatformSummary, 0, len(tags))
	for _, tag := range tags {
		a := byTag[tag]
		view = append(view, PlatformSummary{
			Platform:     tag,
			StudyCount:   a.count,
			Participants: a.participants,
			ConsentCodes: sortedKeys(a.consents),
			DataTypes:    sortedKeys(a.dataTypes),
		})
	}
	return view
}

// WritePlatformView writes the platform aggregate next to the catalog.
func WritePlatformView(path string, studies []*models.Study) error {
	return WriteJSON(path, PlatformView(studies))
}

// WriteJSON writes v as indented JSON, creating parent directories as
// needed.
func WriteJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
