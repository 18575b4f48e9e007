package classify

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Variable is one dataset column extracted from a variable report.
type Variable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ID          string `json:"id"`
}

// ParsedTable is one dataset table extracted from a var_report.xml file,
// with its deduplicated variable list.
type ParsedTable struct {
	StudyID       string     `json:"studyId"`
	DatasetID     string     `json:"datasetId"`
	TableName     string     `json:"tableName"`
	StudyName     string     `json:"studyName"`
	Description   string     `json:"description"`
	Variables     []Variable `json:"variables"`
	VariableCount int        `json:"variableCount"`
	FilePath      string     `json:"filePath"`
}

// varReport mirrors the attributes and elements read from a
// var_report.xml document.
type varReport struct {
	StudyID     string           `xml:"study_id,attr"`
	DatasetID   string           `xml:"dataset_id,attr"`
	Name        string           `xml:"name,attr"`
	StudyName   string           `xml:"study_name,attr"`
	Description string           `xml:"description"`
	Variables   []reportVariable `xml:"variable"`
}

type reportVariable struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"var_name,attr"`
	Description string `xml:"description"`
}

// ParseFile parses one var_report.xml file. dirStudyID supplies the
// study identifier when the document omits its study_id attribute.
func ParseFile(path, dirStudyID string) (*ParsedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read var report: %w", err)
	}

	var doc varReport
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse var report: %w", err)
	}

	studyID := dirStudyID
	if doc.StudyID != "" {
		studyID, _, _ = strings.Cut(doc.StudyID, ".")
	}

	// Consent-group variants of the same variable repeat the var_name;
	// the first occurrence wins.
	seen := make(map[string]bool, len(doc.Variables))
	variables := make([]Variable, 0, len(doc.Variables))
	for _, v := range doc.Variables {
		if v.Name == "" || seen[v.Name] {
			continue
		}
		seen[v.Name] = true
		variables = append(variables, Variable{
			Name:        v.Name,
			Description: trimContextTag(v.Description),
			ID:          v.ID,
		})
	}
	sort.Slice(variables, func(i, j int) bool { return variables[i].Name < variables[j].Name })

	return &ParsedTable{
		StudyID:       studyID,
		DatasetID:     doc.DatasetID,
		TableName:     doc.Name,
		StudyName:     doc.StudyName,
		Description:   strings.TrimSpace(doc.Description),
		Variables:     variables,
		VariableCount: len(variables),
		FilePath:      path,
	}, nil
}

// trimContextTag drops the trailing "[TableName. Visit N]" marker some
// variable descriptions carry.
func trimContextTag(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, " ["); i > 0 {
		return raw[:i]
	}
	return raw
}

const progressEvery = 50

// Parser extracts tables from a tree of variable reports laid out one
// subdirectory per study.
type Parser struct {
	log *zap.Logger
}

// NewParser returns a parser logging through the given logger.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{log: logger}
}

// ParseStudy parses every *.var_report.xml file in one study directory.
// Files that fail to parse are logged and skipped.
func (p *Parser) ParseStudy(dir string) []*ParsedTable {
	dirStudyID := filepath.Base(dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		p.log.Warn("read study directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	tables := make([]*ParsedTable, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".var_report.xml") {
			continue
		}

		table, err := ParseFile(filepath.Join(dir, name), dirStudyID)
		if err != nil {
			p.log.Warn("skipping unparseable var report",
				zap.String("study", dirStudyID),
				zap.String("file", name),
				zap.Error(err))
			continue
		}
		// Cached paths stay relative to the source root.
		table.FilePath = filepath.Join(dirStudyID, name)
		tables = append(tables, table)
	}
	return tables
}

// ParseAll parses variable reports for every phs* study directory under
// root. A non-empty studyFilter restricts the walk to that one study.
func (p *Parser) ParseAll(root, studyFilter string) ([]*ParsedTable, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "phs") {
			dirs = append(dirs, entry.Name())
		}
	}

	if studyFilter != "" {
		found := false
		for _, name := range dirs {
			if name == studyFilter {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("study directory not found: %s", studyFilter)
		}
		dirs = []string{studyFilter}
	}

	var tables []*ParsedTable
	start := time.Now()
	for i, name := range dirs {
		tables = append(tables, p.ParseStudy(filepath.Join(root, name))...)

		if (i+1)%progressEvery == 0 || i+1 == len(dirs) {
			p.log.Info("parsing variable reports",
				zap.Int("studies", i+1),
				zap.Int("total", len(dirs)),
				zap.Int("tables", len(tables)),
				zap.Duration("elapsed", time.Since(start)))
		}
	}
	return tables, nil
}

// SaveTables writes the parsed-table cache so later runs can skip the
// XML pass.
func SaveTables(path string, tables []*ParsedTable) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(tables); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// LoadTables reads a previously saved parsed-table cache.
func LoadTables(path string) ([]*ParsedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table cache: %w", err)
	}

	var tables []*ParsedTable
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse table cache %s: %w", path, err)
	}
	return tables, nil
}
