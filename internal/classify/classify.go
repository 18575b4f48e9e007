// Package classify parses dbGaP variable reports and assigns dataset
// tables to concepts using authored per-study rule files.
package classify

import (
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

// Classification records one dataset table assigned to a concept, with
// the rule that produced the match.
type Classification struct {
	StudyID       string     `json:"studyId"`
	DatasetID     string     `json:"datasetId"`
	TableName     string     `json:"tableName"`
	Concept       string     `json:"concept"`
	Domain        string     `json:"domain"`
	Phase         int        `json:"phase"`
	RuleSource    string     `json:"ruleSource"`
	VariableCount int        `json:"variableCount"`
	Variables     []Variable `json:"variables"`
}

// Classifier matches parsed tables against the rule files in a directory.
type Classifier struct {
	rulesDir string
	log      *zap.Logger
}

// NewClassifier returns a classifier reading rule files from rulesDir.
func NewClassifier(rulesDir string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{rulesDir: rulesDir, log: logger}
}

// Classify assigns concepts to tables. Study-specific rules are tried
// before the defaults and the first matching rule wins. A non-empty
// studyFilter restricts the pass to that study.
func (c *Classifier) Classify(tables []*ParsedTable, studyFilter string) ([]Classification, error) {
	byStudy := make(map[string][]*ParsedTable)
	for _, t := range tables {
		byStudy[t.StudyID] = append(byStudy[t.StudyID], t)
	}

	studyIDs := make([]string, 0, len(byStudy))
	for id := range byStudy {
		if studyFilter != "" && id != studyFilter {
			continue
		}
		studyIDs = append(studyIDs, id)
	}
	sort.Strings(studyIDs)

	var out []Classification
	unclassifiedTables, unclassifiedVars := 0, 0

	for _, studyID := range studyIDs {
		studyRules, defaultRules, err := LoadRules(c.rulesDir, studyID)
		if err != nil {
			return nil, err
		}
		own, err := compileRules(studyRules)
		if err != nil {
			return nil, fmt.Errorf("rules for %s: %w", studyID, err)
		}
		defaults, err := compileRules(defaultRules)
		if err != nil {
			return nil, fmt.Errorf("default rules: %w", err)
		}

		for _, table := range byStudy[studyID] {
			rule := firstMatch(table, own)
			prefix := studyID
			if rule == nil {
				rule = firstMatch(table, defaults)
				prefix = defaultRulesName
			}
			if rule == nil {
				unclassifiedTables++
				unclassifiedVars += table.VariableCount
				continue
			}

			out = append(out, Classification{
				StudyID:       studyID,
				DatasetID:     table.DatasetID,
				TableName:     table.TableName,
				Concept:       rule.Concept,
				Domain:        rule.Domain,
				Phase:         1,
				RuleSource:    fmt.Sprintf("%s:%s:%s", prefix, rule.MatchField, rule.Pattern),
				VariableCount: table.VariableCount,
				Variables:     table.Variables,
			})
		}
	}

	c.log.Info("classification finished",
		zap.Int("classified", len(out)),
		zap.Int("unclassifiedTables", unclassifiedTables),
		zap.Int("unclassifiedVariables", unclassifiedVars))

	return out, nil
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule pattern %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledRule{Rule: rule, re: re})
	}
	return compiled, nil
}

// firstMatch returns the first rule matching the table, or nil. Rules
// naming a field the matcher does not know are skipped.
func firstMatch(table *ParsedTable, rules []compiledRule) *compiledRule {
	for i := range rules {
		rule := &rules[i]

		var value string
		switch rule.MatchField {
		case "tableName":
			value = table.TableName
		case "description":
			value = table.Description
		default:
			continue
		}

		if rule.re.MatchString(value) {
			return rule
		}
	}
	return nil
}
