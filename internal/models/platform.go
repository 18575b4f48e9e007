package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// PlatformAssignment links one study identifier to one platform tag.
// The same identifier may appear under several platforms.
type PlatformAssignment struct {
	bun.BaseModel `bun:"table:platform_assignments,alias:pa"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	DbGapID   string    `bun:"dbgap_id,notnull" json:"dbGapId"`
	Platform  string    `bun:"platform,notnull" json:"platform"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Validate checks that both key columns are present.
func (a *PlatformAssignment) Validate() error {
	if a.DbGapID == "" {
		return errors.New("dbGaP identifier is required")
	}
	if a.Platform == "" {
		return errors.New("platform is required")
	}
	return nil
}
