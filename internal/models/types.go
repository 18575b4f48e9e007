package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Platform identifies a cloud data initiative that onboarded a study.
type Platform string

const (
	PlatformAnVIL  Platform = "AnVIL"
	PlatformBDC    Platform = "BDC"
	PlatformCRDC   Platform = "CRDC"
	PlatformKF     Platform = "KFDRC"
	PlatformDirect Platform = "dbGaP"
)

// DataSource records which provider a field or publication came from.
type DataSource string

const (
	SourceArchive  DataSource = "dbgap_ftp"
	SourceSummary  DataSource = "gap_summary"
	SourceSRA      DataSource = "sra"
	SourcePubMed   DataSource = "pubmed"
	SourceReporter DataSource = "nih_reporter"
	SourceSeedCSV  DataSource = "seed_csv"
)

// Run status for build_runs rows.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StringArray stores a slice of strings in a SQLite TEXT column as JSON.
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	// A nil slice would serialize to null; store an empty array instead.
	if s == nil {
		s = StringArray{}
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	return scanJSON(src, s, "StringArray")
}

// StringMap stores a string-to-string map in a SQLite TEXT column as JSON.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		m = StringMap{}
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	return scanJSON(src, m, "StringMap")
}

// scanJSON decodes a TEXT column into dst. The driver hands JSON back as
// either []byte or string depending on how the row was written.
func scanJSON(src, dst interface{}, what string) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("scan %s: unsupported column type %T", what, src)
	}
}
