package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// defaultRulesName is the basename of the shared rule set applied after
// a study's own rules, and the rule-source prefix for its matches.
const defaultRulesName = "_default"

// Rule assigns tables whose name or description matches a regular
// expression to a concept.
type Rule struct {
	MatchField  string
	Pattern     string
	Concept     string
	Domain      string
	Rationale   string
	Description string
}

// UnmarshalJSON decodes the rule-file entry shape, where the matcher is
// a single-key object naming the field to match.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		Match       map[string]string `json:"match"`
		Concept     string            `json:"concept"`
		Domain      string            `json:"domain"`
		Rationale   string            `json:"rationale"`
		Description string            `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Match) != 1 {
		return fmt.Errorf("rule match must name exactly one field, got %d", len(raw.Match))
	}

	for field, pattern := range raw.Match {
		r.MatchField = field
		r.Pattern = pattern
	}
	r.Concept = raw.Concept
	r.Domain = raw.Domain
	r.Rationale = raw.Rationale
	r.Description = raw.Description
	return nil
}

// RuleFile is one study's authored rule set, or the default set shared
// by all studies.
type RuleFile struct {
	StudyID   string `json:"studyId"`
	StudyName string `json:"studyName"`
	Rules     []Rule `json:"rules"`
}

// LoadRules reads the study-specific and default rule sets from dir, in
// that order. Absent files yield empty sets; malformed files are an
// error.
func LoadRules(dir, studyID string) ([]Rule, []Rule, error) {
	study, err := loadRuleFile(filepath.Join(dir, studyID+".json"))
	if err != nil {
		return nil, nil, err
	}
	def, err := loadRuleFile(filepath.Join(dir, defaultRulesName+".json"))
	if err != nil {
		return nil, nil, err
	}
	return study, def, nil
}

func loadRuleFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rf RuleFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", filepath.Base(path), err)
	}
	return rf.Rules, nil
}
