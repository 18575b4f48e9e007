package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BuildRun tracks one catalog build and its outcome counts.
type BuildRun struct {
	bun.BaseModel `bun:"table:build_runs,alias:br"`

	ID                 int64      `bun:"id,pk,autoincrement" json:"id"`
	RunID              string     `bun:"run_id,unique,notnull" json:"runId"`
	StartTime          time.Time  `bun:"start_time,notnull" json:"startTime"`
	EndTime            *time.Time `bun:"end_time" json:"endTime,omitempty"`
	Status             RunStatus  `bun:"status,notnull" json:"status"`
	Processed          int        `bun:"processed,default:0" json:"processed"`
	Accepted           int        `bun:"accepted,default:0" json:"accepted"`
	SkippedIncomplete  int        `bun:"skipped_incomplete,default:0" json:"skippedIncomplete"`
	SkippedUnavailable int        `bun:"skipped_unavailable,default:0" json:"skippedUnavailable"`
	UnreachableLog     *string    `bun:"unreachable_log" json:"unreachableLog,omitempty"`
	ConfigSnapshot     *string    `bun:"config_snapshot" json:"configSnapshot,omitempty"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Duration returns the wall-clock run time, zero while still running.
func (r *BuildRun) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// AcceptRate returns accepted/processed, 0 when nothing was processed.
func (r *BuildRun) AcceptRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Processed)
}
