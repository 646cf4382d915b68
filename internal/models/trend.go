package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Trend is the canonical, deduplicated entity for a real-world topic,
// tracked across sources and processing cycles.
type Trend struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TrendKey string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"trend_key"`

	Title       string `gorm:"type:varchar(500);not null;index" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(100);index" json:"category"`

	// Platforms, Keywords and SourceURLs are JSON string arrays.
	Platforms  datatypes.JSON `gorm:"type:jsonb" json:"platforms"`
	Keywords   datatypes.JSON `gorm:"type:jsonb" json:"keywords"`
	SourceURLs datatypes.JSON `gorm:"type:jsonb" json:"source_urls"`

	// Derived scores, written only by the scoring stage. Overall score is on
	// a 0-100 scale; component scores are 0-1 (velocity is signed -1..1).
	Score            float64 `gorm:"not null;default:0;index" json:"score"`
	VolumeScore      float64 `gorm:"not null;default:0" json:"volume_score"`
	VelocityScore    float64 `gorm:"not null;default:0" json:"velocity_score"`
	BrandSafetyScore float64 `gorm:"not null;default:0" json:"brand_safety_score"`
	// SustainabilityScore stays NULL until the trend has at least two
	// observations; such trends are never forwarded to generation.
	SustainabilityScore *float64 `gorm:"index" json:"sustainability_score"`

	IsAnalyzed  bool `gorm:"not null;default:false;index" json:"is_analyzed"`
	IsBrandSafe bool `gorm:"not null;default:true;index" json:"is_brand_safe"`
	IsRising    bool `gorm:"not null;default:false" json:"is_rising"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	FirstSeenAt time.Time `gorm:"type:timestamptz;not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"type:timestamptz;not null;index" json:"last_seen_at"`
	AnalyzedAt  *time.Time `gorm:"type:timestamptz" json:"analyzed_at,omitempty"`

	Observations []Observation `gorm:"foreignKey:TrendID" json:"observations,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Trend) TableName() string {
	return "trends"
}

const (
	TrendStatusActive   = "active"
	TrendStatusArchived = "archived"
)
