package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Campaign is a generated PR concept tied to exactly one trend. Immutable
// after creation except for status and the view/download counters.
type Campaign struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TrendID uuid.UUID `gorm:"type:uuid;not null;index" json:"trend_id"`

	Title    string `gorm:"type:varchar(500);not null;index" json:"title"`
	Headline string `gorm:"type:varchar(1000);not null" json:"headline"`
	Brief    string `gorm:"type:text;not null" json:"brief"`

	CampaignType   string `gorm:"type:varchar(50);not null;index" json:"campaign_type"`
	TargetAudience string `gorm:"type:varchar(200)" json:"target_audience"`

	// TargetIndustries, SuggestedChannels, KeyMessages, MediaHooks,
	// ContentSuggestions and RequiredSkills are JSON string arrays.
	TargetIndustries   datatypes.JSON `gorm:"type:jsonb" json:"target_industries"`
	SuggestedChannels  datatypes.JSON `gorm:"type:jsonb" json:"suggested_channels"`
	KeyMessages        datatypes.JSON `gorm:"type:jsonb" json:"key_messages"`
	MediaHooks         datatypes.JSON `gorm:"type:jsonb" json:"media_hooks"`
	ContentSuggestions datatypes.JSON `gorm:"type:jsonb" json:"content_suggestions"`
	CallToAction       string         `gorm:"type:varchar(500)" json:"call_to_action"`

	PotentialScore   float64 `gorm:"not null;default:0;index" json:"potential_score"`
	ViralityScore    float64 `gorm:"not null;default:0" json:"virality_score"`
	BrandSafetyScore float64 `gorm:"not null;default:0" json:"brand_safety_score"`
	FeasibilityScore float64 `gorm:"not null;default:0" json:"feasibility_score"`
	OverallScore     float64 `gorm:"not null;default:0;index" json:"overall_score"`

	// Execution requirements.
	BudgetMinUSD   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"budget_min_usd"`
	BudgetMaxUSD   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"budget_max_usd"`
	TeamSize       int             `gorm:"not null;default:0" json:"team_size"`
	TimelineWeeks  int             `gorm:"not null;default:0" json:"timeline_weeks"`
	RequiredSkills datatypes.JSON  `gorm:"type:jsonb" json:"required_skills"`

	GenerationModel string         `gorm:"type:varchar(100)" json:"generation_model"`
	GenerationMeta  datatypes.JSON `gorm:"type:jsonb" json:"generation_meta"`

	Status        string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	ViewCount     int    `gorm:"not null;default:0" json:"view_count"`
	DownloadCount int    `gorm:"not null;default:0" json:"download_count"`

	Angles []Angle `gorm:"foreignKey:CampaignID" json:"angles,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusReady     = "ready"
	CampaignStatusActive    = "active"
	CampaignStatusCompleted = "completed"
	CampaignStatusArchived  = "archived"
)

const (
	CampaignTypeReactive          = "reactive"
	CampaignTypeProactive         = "proactive"
	CampaignTypeSeasonal          = "seasonal"
	CampaignTypeNewsJacking       = "news_jacking"
	CampaignTypeThoughtLeadership = "thought_leadership"
)
