// Package seeds loads the local seed files that back a catalog build: the
// platform membership TSV, the registry link CSV and the legacy per-study
// metadata dump used as the offline fallback source.
package seeds

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gapcatalog/builder/internal/dbgap"
)

// StudyRow is one record of the legacy metadata dump. All fields keep
// their raw CSV form; parsing into list fields happens at merge time.
type StudyRow struct {
	Accession   string
	Name        string
	Description string
	Consent     string
	Content     string
	Design      string
	Disease     string
	DataTypes   string
}

// StudyCache indexes the legacy dump by bare study identifier.
type StudyCache struct {
	rows map[string]StudyRow
}

// NewStudyCache builds a cache from already-parsed rows, keyed by bare
// identifier. Later rows for the same study win.
func NewStudyCache(rows []StudyRow) *StudyCache {
	cache := &StudyCache{rows: make(map[string]StudyRow, len(rows))}
	for _, row := range rows {
		if row.Accession == "" {
			continue
		}
		cache.rows[dbgap.StripVersion(row.Accession)] = row
	}
	return cache
}

// LoadStudyCSV reads the legacy metadata dump. Row keys are the accession
// column with its version suffix stripped; later rows for the same study
// win, matching the dump's newest-last layout.
func LoadStudyCSV(path string) (*StudyCache, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open study csv: %w", err)
	}
	defer file.Close()

	cache, err := readStudyCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse study csv %s: %w", path, err)
	}
	return cache, nil
}

func readStudyCSV(r io.Reader) (*StudyCache, error) {
	bufReader := bufio.NewReader(r)

	// Skip UTF-8 BOM if present
	if bom, err := bufReader.Peek(3); err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}
	if _, ok := colIdx["accession"]; !ok {
		return nil, fmt.Errorf("missing accession column")
	}

	field := func(row []string, name string) string {
		if idx, ok := colIdx[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	rows := make(map[string]StudyRow)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}

		sr := StudyRow{
			Accession:   field(row, "accession"),
			Name:        field(row, "name"),
			Description: field(row, "description"),
			Consent:     field(row, "consent"),
			Content:     field(row, "content"),
			Design:      field(row, "design"),
			Disease:     field(row, "disease"),
			DataTypes:   field(row, "data_types"),
		}
		if sr.Accession == "" {
			continue
		}
		rows[dbgap.StripVersion(sr.Accession)] = sr
	}

	return &StudyCache{rows: rows}, nil
}

// Lookup returns the cached row for a bare study identifier.
func (c *StudyCache) Lookup(id string) (StudyRow, bool) {
	row, ok := c.rows[id]
	return row, ok
}

// Len reports how many studies the cache holds.
func (c *StudyCache) Len() int {
	return len(c.rows)
}
