package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Angle is one concrete execution variant within a campaign. Angles are
// created atomically together with their parent campaign.
type Angle struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignID uuid.UUID `gorm:"type:uuid;not null;index" json:"campaign_id"`
	TrendID    uuid.UUID `gorm:"type:uuid;not null;index" json:"trend_id"`

	Title          string `gorm:"type:varchar(500);not null" json:"title"`
	Description    string `gorm:"type:text;not null" json:"description"`
	TargetAudience string `gorm:"type:varchar(200)" json:"target_audience"`
	KeyMessage     string `gorm:"type:varchar(1000)" json:"key_message"`

	SupportingData datatypes.JSON `gorm:"type:jsonb" json:"supporting_data"`

	QualityScore   float64 `gorm:"not null;default:0" json:"quality_score"`
	EffortRequired string  `gorm:"type:varchar(20);not null;default:'medium'" json:"effort_required"`
	TimelineDays   int     `gorm:"not null;default:0" json:"timeline_days"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Angle) TableName() string {
	return "angles"
}
