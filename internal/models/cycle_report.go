package models

import (
	"time"

	"gorm.io/datatypes"
)

// CycleReport is the persisted outcome of one collect-aggregate-score-generate
// pass. One row per cycle date; re-running a cycle upserts the same row.
type CycleReport struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CycleDate time.Time `gorm:"type:date;uniqueIndex;not null" json:"cycle_date"`

	Status string `gorm:"type:varchar(20);not null;default:'running';index" json:"status"`

	SignalsCollected int `gorm:"not null;default:0" json:"signals_collected"`
	TrendsProcessed  int `gorm:"not null;default:0" json:"trends_processed"`
	TrendsCreated    int `gorm:"not null;default:0" json:"trends_created"`
	TrendsQualified  int `gorm:"not null;default:0" json:"trends_qualified"`

	CampaignsGenerated      int `gorm:"not null;default:0" json:"campaigns_generated"`
	CampaignsBelowThreshold int `gorm:"not null;default:0" json:"campaigns_below_threshold"`
	FallbacksUsed           int `gorm:"not null;default:0" json:"fallbacks_used"`
	TrendsArchived          int `gorm:"not null;default:0" json:"trends_archived"`

	// FailedSources is a JSON array of source names that did not report this
	// cycle; Failures is a JSON array of human-readable failure notes.
	FailedSources datatypes.JSON `gorm:"type:jsonb" json:"failed_sources"`
	Failures      datatypes.JSON `gorm:"type:jsonb" json:"failures"`

	DeadlineExceeded bool `gorm:"not null;default:false" json:"deadline_exceeded"`

	StartedAt  time.Time  `gorm:"type:timestamptz;not null" json:"started_at"`
	FinishedAt *time.Time `gorm:"type:timestamptz" json:"finished_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (CycleReport) TableName() string {
	return "cycle_reports"
}

const (
	CycleStatusRunning   = "running"
	CycleStatusCompleted = "completed"
)
