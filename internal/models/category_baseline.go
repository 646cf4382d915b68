package models

import "time"

// CategoryBaseline is the rolling per-category volume baseline used to
// normalize volume scores. One row per (category, cycle_date).
type CategoryBaseline struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Category  string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_category_baselines_cat_cycle,priority:1" json:"category"`
	CycleDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_category_baselines_cat_cycle,priority:2" json:"cycle_date"`

	AvgVolume  float64 `gorm:"not null" json:"avg_volume"`
	TrendCount int     `gorm:"not null;default:0" json:"trend_count"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (CategoryBaseline) TableName() string {
	return "category_baselines"
}
