package models

import "time"

// SourceHealth records the last known state of a signal source, one row per
// collector. A source that failed a cycle is marked here rather than
// reporting zero volume.
type SourceHealth struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	SourceType string `gorm:"type:varchar(30);not null" json:"source_type"`
	Endpoint   string `gorm:"type:varchar(500)" json:"endpoint"`

	Enabled      bool    `gorm:"not null;default:true" json:"enabled"`
	HealthStatus string  `gorm:"type:varchar(20);not null;default:'unknown'" json:"health_status"`
	LastError    *string `gorm:"type:text" json:"last_error,omitempty"`

	LastPollAt       *time.Time `gorm:"type:timestamptz" json:"last_poll_at,omitempty"`
	LastCycleDate    *time.Time `gorm:"type:date" json:"last_cycle_date,omitempty"`
	SignalsLastCycle int        `gorm:"not null;default:0" json:"signals_last_cycle"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (SourceHealth) TableName() string {
	return "source_health"
}
