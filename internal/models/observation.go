package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Observation is one cycle's volume/velocity snapshot for a trend. There is
// at most one row per (trend_id, cycle_date); re-ingestion for the same date
// is an upsert.
type Observation struct {
	ID      uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TrendID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_observations_trend_cycle,priority:1" json:"trend_id"`

	CycleDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_observations_trend_cycle,priority:2;index" json:"cycle_date"`

	Volume   int64   `gorm:"not null" json:"volume"`
	Velocity float64 `gorm:"not null" json:"velocity"`

	// PlatformBreakdown maps source id to the volume it contributed this
	// cycle. Sources that did not report are absent, not zero.
	PlatformBreakdown datatypes.JSON `gorm:"type:jsonb" json:"platform_breakdown"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Observation) TableName() string {
	return "observations"
}
