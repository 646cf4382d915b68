package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationAttempt is the single-flight ledger for campaign generation.
// The unique (trend_id, cycle_date) index is what makes the claim atomic:
// claiming is an insert that either lands or conflicts, never a
// read-then-write.
type GenerationAttempt struct {
	ID      uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TrendID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_generation_attempts_trend_cycle,priority:1" json:"trend_id"`

	CycleDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_generation_attempts_trend_cycle,priority:2" json:"cycle_date"`

	Status       string  `gorm:"type:varchar(30);not null;index" json:"status"`
	ProviderUsed string  `gorm:"type:varchar(50)" json:"provider_used"`
	RetryCount   int     `gorm:"not null;default:0" json:"retry_count"`
	LastError    *string `gorm:"type:text" json:"last_error,omitempty"`

	CampaignCount int `gorm:"not null;default:0" json:"campaign_count"`
	// BelowThreshold counts drafts that were generated but discarded for
	// scoring under the minimum campaign score.
	BelowThreshold int `gorm:"not null;default:0" json:"below_threshold"`

	ClaimedAt   time.Time  `gorm:"type:timestamptz;not null" json:"claimed_at"`
	CompletedAt *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (GenerationAttempt) TableName() string {
	return "generation_attempts"
}

const (
	AttemptStatusInFlight           = "in_flight"
	AttemptStatusSucceeded          = "succeeded"
	AttemptStatusFailedFallbackUsed = "failed_fallback_used"
	AttemptStatusFailedTerminal     = "failed_terminal"
)
