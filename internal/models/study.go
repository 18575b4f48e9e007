package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/uptrace/bun"
)

var phsIDPattern = regexp.MustCompile(`^phs\d+$`)

// Study is the canonical merged record for one dbGaP study.
type Study struct {
	bun.BaseModel `bun:"table:studies,alias:st"`

	ID               int64       `bun:"id,pk,autoincrement" json:"-"`
	DbGapID          string      `bun:"dbgap_id,unique,notnull" json:"dbGapId"`
	Accession        string      `bun:"accession,notnull" json:"studyAccession"`
	Title            string      `bun:"title,notnull" json:"title"`
	Description      string      `bun:"description" json:"description"`
	Focus            string      `bun:"focus" json:"focus"`
	StudyDesigns     StringArray `bun:"study_designs,type:json,notnull" json:"studyDesigns"`
	DataTypes        StringArray `bun:"data_types,type:json,notnull" json:"dataTypes"`
	ConsentCodes     StringArray `bun:"consent_codes,type:json,notnull" json:"consentCodes"`
	ConsentLongNames StringMap   `bun:"consent_long_names,type:json,notnull" json:"consentLongNames"`
	ParticipantCount int         `bun:"participant_count,default:0" json:"participantCount"`
	ParentStudyID    string      `bun:"parent_study_id" json:"parentStudyId,omitempty"`
	ParentStudyName  string      `bun:"parent_study_name" json:"parentStudyName,omitempty"`
	NumChildren      int         `bun:"num_children,default:0" json:"numChildren"`
	Platforms        StringArray `bun:"platforms,type:json,notnull" json:"platforms"`
	RegistryURL      string      `bun:"registry_url" json:"registryUrl,omitempty"`
	CreatedAt        time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
	UpdatedAt        time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`

	Publications []*Publication `bun:"rel:has-many,join:id=study_id" json:"publications,omitempty"`
}

// BeforeUpdate updates the timestamp on modifications.
func (s *Study) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	s.UpdatedAt = time.Now()
	return nil
}

// Validate checks the invariants a catalog entry must satisfy.
func (s *Study) Validate() error {
	if !phsIDPattern.MatchString(s.DbGapID) {
		return fmt.Errorf("invalid dbGaP identifier: %q", s.DbGapID)
	}
	if s.Accession == "" {
		return errors.New("accession is required")
	}
	if s.Title == "" {
		return errors.New("title is required")
	}
	if s.ParticipantCount < 0 {
		return errors.New("participant count must not be negative")
	}
	if len(s.Platforms) == 0 {
		return errors.New("at least one platform is required")
	}
	if len(s.ConsentCodes) != len(s.ConsentLongNames) {
		return errors.New("consent codes and long names must cover the same codes")
	}
	for _, code := range s.ConsentCodes {
		if _, ok := s.ConsentLongNames[code]; !ok {
			return fmt.Errorf("consent code %s has no long name", code)
		}
	}
	return nil
}

// DbGapURL returns the public dbGaP study page for the resolved accession.
func (s *Study) DbGapURL() string {
	if s.Accession == "" {
		return ""
	}
	return "https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/study.cgi?study_id=" + s.Accession
}

// IsSubstudy reports whether the study declares a parent.
func (s *Study) IsSubstudy() bool {
	return s.ParentStudyID != ""
}

// HasPlatform reports whether the study carries the given platform tag.
func (s *Study) HasPlatform(tag string) bool {
	for _, p := range s.Platforms {
		if p == tag {
			return true
		}
	}
	return false
}

// AddPlatform appends a platform tag unless it is already present.
func (s *Study) AddPlatform(tag string) {
	if tag == "" || s.HasPlatform(tag) {
		return
	}
	s.Platforms = append(s.Platforms, tag)
}
