package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trendscout/internal/models"
)

// Repository is the persistence surface shared by the aggregation, scoring,
// generation and cycle packages. All timestamps are UTC; cycle dates are
// date-only values.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Trends
	CreateTrend(ctx context.Context, item *models.Trend) error
	UpdateTrend(ctx context.Context, item *models.Trend) error
	GetTrendByID(ctx context.Context, id uuid.UUID) (*models.Trend, error)
	GetTrendByKey(ctx context.Context, key string) (*models.Trend, error)
	ListTrends(ctx context.Context, params ListTrendsParams) ([]models.Trend, error)
	CountTrends(ctx context.Context, params ListTrendsParams) (int64, error)
	ListActiveTrends(ctx context.Context) ([]models.Trend, error)
	ListQualifiedTrends(ctx context.Context, minScore float64, limit int) ([]models.Trend, error)
	UpdateTrendScores(ctx context.Context, id uuid.UUID, update TrendScoreUpdate) error
	ArchiveInactiveTrends(ctx context.Context, lastSeenBefore time.Time) (int64, error)

	// Observations
	UpsertObservation(ctx context.Context, item *models.Observation) error
	ListObservationsByTrendID(ctx context.Context, trendID uuid.UUID, limit int) ([]models.Observation, error)

	// Category baselines
	UpsertCategoryBaseline(ctx context.Context, item *models.CategoryBaseline) error
	AvgCategoryVolumeSince(ctx context.Context, category string, since time.Time) (float64, error)

	// Campaigns
	CreateCampaignWithAngles(ctx context.Context, campaign *models.Campaign, angles []models.Angle) error
	GetCampaignByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, params ListCampaignsParams) ([]models.Campaign, error)
	CountCampaigns(ctx context.Context, params ListCampaignsParams) (int64, error)
	ListCampaignsByTrendID(ctx context.Context, trendID uuid.UUID) ([]models.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error
	IncrementCampaignViews(ctx context.Context, id uuid.UUID) error
	IncrementCampaignDownloads(ctx context.Context, id uuid.UUID) error
	ArchiveStaleDraftCampaigns(ctx context.Context, createdBefore time.Time) (int64, error)

	// Generation attempts (single-flight ledger)
	ClaimGenerationAttempt(ctx context.Context, trendID uuid.UUID, cycleDate time.Time) (*models.GenerationAttempt, bool, error)
	CompleteGenerationAttempt(ctx context.Context, item *models.GenerationAttempt) error
	GetGenerationAttempt(ctx context.Context, trendID uuid.UUID, cycleDate time.Time) (*models.GenerationAttempt, error)
	ListGenerationAttempts(ctx context.Context, params ListGenerationAttemptsParams) ([]models.GenerationAttempt, error)

	// Source health
	UpsertSourceHealth(ctx context.Context, item *models.SourceHealth) error
	ListSourceHealth(ctx context.Context) ([]models.SourceHealth, error)

	// Cycle reports
	UpsertCycleReport(ctx context.Context, item *models.CycleReport) error
	GetCycleReportByDate(ctx context.Context, cycleDate time.Time) (*models.CycleReport, error)
	ListCycleReports(ctx context.Context, limit int) ([]models.CycleReport, error)
}

// TrendScoreUpdate carries everything the scoring stage writes back to a
// trend in one statement. A nil SustainabilityScore stays NULL.
type TrendScoreUpdate struct {
	Score               float64
	VolumeScore         float64
	VelocityScore       float64
	BrandSafetyScore    float64
	SustainabilityScore *float64
	IsRising            bool
	IsBrandSafe         bool
	AnalyzedAt          time.Time
}

type ListTrendsParams struct {
	Limit       int
	Offset      int
	Status      *string
	Category    *string
	MinScore    *float64
	IsRising    *bool
	IsBrandSafe *bool
	// Platform filters to trends observed on the given source id.
	Platform *string
	// Sustainable keeps only trends whose sustainability score is known.
	Sustainable *bool
	Search      *string
	OrderBy     string
	Asc         *bool
}

type ListCampaignsParams struct {
	Limit        int
	Offset       int
	Status       *string
	CampaignType *string
	TrendID      *uuid.UUID
	MinOverall   *float64
	OrderBy      string
	Asc          *bool
}

type ListGenerationAttemptsParams struct {
	Limit     int
	Offset    int
	Status    *string
	CycleDate *time.Time
}
