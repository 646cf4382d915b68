package gormrepository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trendscout/internal/models"
	"trendscout/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Trends -----------------------------------------------------------------

func (s *Store) CreateTrend(ctx context.Context, item *models.Trend) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateTrend(ctx context.Context, item *models.Trend) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetTrendByID(ctx context.Context, id uuid.UUID) (*models.Trend, error) {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil, nil
	}
	var item models.Trend
	err := s.db.WithContext(ctx).Model(&models.Trend{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetTrendByKey(ctx context.Context, key string) (*models.Trend, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.Trend
	err := s.db.WithContext(ctx).Model(&models.Trend{}).Where("trend_key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) trendsQuery(ctx context.Context, params repository.ListTrendsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Trend{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.MinScore != nil {
		query = query.Where("score >= ?", *params.MinScore)
	}
	if params.IsRising != nil {
		query = query.Where("is_rising = ?", *params.IsRising)
	}
	if params.IsBrandSafe != nil {
		query = query.Where("is_brand_safe = ?", *params.IsBrandSafe)
	}
	if params.Platform != nil && strings.TrimSpace(*params.Platform) != "" {
		raw, _ := json.Marshal([]string{strings.TrimSpace(*params.Platform)})
		query = query.Where("platforms @> ?", datatypes.JSON(raw))
	}
	if params.Sustainable != nil && *params.Sustainable {
		query = query.Where("sustainability_score IS NOT NULL")
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		like := "%" + strings.TrimSpace(*params.Search) + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}
	return query
}

func (s *Store) ListTrends(ctx context.Context, params repository.ListTrendsParams) ([]models.Trend, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.trendsQuery(ctx, params), params.OrderBy, params.Asc, "score")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Trend
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrends(ctx context.Context, params repository.ListTrendsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.trendsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListActiveTrends(ctx context.Context) ([]models.Trend, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trend
	if err := s.db.WithContext(ctx).
		Model(&models.Trend{}).
		Where("status = ?", models.TrendStatusActive).
		Order("last_seen_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListQualifiedTrends(ctx context.Context, minScore float64, limit int) ([]models.Trend, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Trend
	if err := s.db.WithContext(ctx).
		Model(&models.Trend{}).
		Where("status = ?", models.TrendStatusActive).
		Where("is_brand_safe = ?", true).
		Where("sustainability_score IS NOT NULL").
		Where("score >= ?", minScore).
		Order("score desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateTrendScores(ctx context.Context, id uuid.UUID, update repository.TrendScoreUpdate) error {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil
	}
	values := map[string]any{
		"score":                update.Score,
		"volume_score":         update.VolumeScore,
		"velocity_score":       update.VelocityScore,
		"brand_safety_score":   update.BrandSafetyScore,
		"sustainability_score": update.SustainabilityScore,
		"is_rising":            update.IsRising,
		"is_brand_safe":        update.IsBrandSafe,
		"is_analyzed":          true,
		"analyzed_at":          update.AnalyzedAt,
		"updated_at":           time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Model(&models.Trend{}).
		Where("id = ?", id).
		Updates(values).
		Error
}

func (s *Store) ArchiveInactiveTrends(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	if s == nil || s.db == nil || lastSeenBefore.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Trend{}).
		Where("status = ?", models.TrendStatusActive).
		Where("last_seen_at < ?", lastSeenBefore).
		Updates(map[string]any{"status": models.TrendStatusArchived, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// --- Observations -----------------------------------------------------------

func (s *Store) UpsertObservation(ctx context.Context, item *models.Observation) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trend_id"}, {Name: "cycle_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"volume",
			"velocity",
			"platform_breakdown",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListObservationsByTrendID(ctx context.Context, trendID uuid.UUID, limit int) ([]models.Observation, error) {
	if s == nil || s.db == nil || trendID == uuid.Nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 30)
	var items []models.Observation
	if err := s.db.WithContext(ctx).
		Model(&models.Observation{}).
		Where("trend_id = ?", trendID).
		Order("cycle_date desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Category baselines -----------------------------------------------------

func (s *Store) UpsertCategoryBaseline(ctx context.Context, item *models.CategoryBaseline) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Category) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category"}, {Name: "cycle_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"avg_volume",
			"trend_count",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) AvgCategoryVolumeSince(ctx context.Context, category string, since time.Time) (float64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return 0, nil
	}
	var avg *float64
	err := s.db.WithContext(ctx).
		Model(&models.CategoryBaseline{}).
		Select("AVG(avg_volume)").
		Where("category = ?", category).
		Where("cycle_date >= ?", since).
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// --- Campaigns --------------------------------------------------------------

func (s *Store) CreateCampaignWithAngles(ctx context.Context, campaign *models.Campaign, angles []models.Angle) error {
	if s == nil || s.db == nil || campaign == nil {
		return nil
	}
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}
		for i := range angles {
			if angles[i].ID == uuid.Nil {
				angles[i].ID = uuid.New()
			}
			angles[i].CampaignID = campaign.ID
			angles[i].TrendID = campaign.TrendID
		}
		if len(angles) == 0 {
			return nil
		}
		return tx.Create(&angles).Error
	})
}

func (s *Store) GetCampaignByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil, nil
	}
	var item models.Campaign
	err := s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Preload("Angles").
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) campaignsQuery(ctx context.Context, params repository.ListCampaignsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Campaign{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.CampaignType != nil && strings.TrimSpace(*params.CampaignType) != "" {
		query = query.Where("campaign_type = ?", strings.TrimSpace(*params.CampaignType))
	}
	if params.TrendID != nil && *params.TrendID != uuid.Nil {
		query = query.Where("trend_id = ?", *params.TrendID)
	}
	if params.MinOverall != nil {
		query = query.Where("overall_score >= ?", *params.MinOverall)
	}
	return query
}

func (s *Store) ListCampaigns(ctx context.Context, params repository.ListCampaignsParams) ([]models.Campaign, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.campaignsQuery(ctx, params), params.OrderBy, params.Asc, "overall_score")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Campaign
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCampaigns(ctx context.Context, params repository.ListCampaignsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.campaignsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListCampaignsByTrendID(ctx context.Context, trendID uuid.UUID) ([]models.Campaign, error) {
	if s == nil || s.db == nil || trendID == uuid.Nil {
		return nil, nil
	}
	var items []models.Campaign
	if err := s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Preload("Angles").
		Where("trend_id = ?", trendID).
		Order("overall_score desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).
		Error
}

func (s *Store) IncrementCampaignViews(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).
		Error
}

func (s *Store) IncrementCampaignDownloads(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.db == nil || id == uuid.Nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).
		Error
}

func (s *Store) ArchiveStaleDraftCampaigns(ctx context.Context, createdBefore time.Time) (int64, error) {
	if s == nil || s.db == nil || createdBefore.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("status = ?", models.CampaignStatusDraft).
		Where("created_at < ?", createdBefore).
		Updates(map[string]any{"status": models.CampaignStatusArchived, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// --- Generation attempts ----------------------------------------------------

// staleClaimAfter is how long an in_flight claim blocks re-claims. A process
// that dies mid-generation leaves its row in_flight; after this long the next
// cycle may take the row over.
const staleClaimAfter = 2 * time.Hour

// ClaimGenerationAttempt inserts the (trend, cycle) attempt row and reports
// whether this caller won the claim. On conflict the existing row is
// returned; failed and stale in_flight attempts are re-claimed with a
// conditional update so two concurrent re-claimers cannot both win.
func (s *Store) ClaimGenerationAttempt(ctx context.Context, trendID uuid.UUID, cycleDate time.Time) (*models.GenerationAttempt, bool, error) {
	if s == nil || s.db == nil || trendID == uuid.Nil {
		return nil, false, nil
	}
	now := time.Now().UTC()
	item := models.GenerationAttempt{
		TrendID:   trendID,
		CycleDate: cycleDate,
		Status:    models.AttemptStatusInFlight,
		ClaimedAt: now,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trend_id"}, {Name: "cycle_date"}},
		DoNothing: true,
	}).Create(&item)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &item, true, nil
	}

	existing, err := s.GetGenerationAttempt(ctx, trendID, cycleDate)
	if err != nil || existing == nil {
		return existing, false, err
	}
	reclaimable := existing.Status == models.AttemptStatusFailedFallbackUsed ||
		existing.Status == models.AttemptStatusFailedTerminal ||
		(existing.Status == models.AttemptStatusInFlight && now.Sub(existing.ClaimedAt) >= staleClaimAfter)
	if !reclaimable {
		return existing, false, nil
	}

	res = s.db.WithContext(ctx).
		Model(&models.GenerationAttempt{}).
		Where("id = ? AND status = ? AND claimed_at = ?", existing.ID, existing.Status, existing.ClaimedAt).
		Updates(map[string]any{
			"status":       models.AttemptStatusInFlight,
			"claimed_at":   now,
			"completed_at": nil,
			"last_error":   nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return existing, false, nil
	}
	existing.Status = models.AttemptStatusInFlight
	existing.ClaimedAt = now
	existing.CompletedAt = nil
	existing.LastError = nil
	return existing, true, nil
}

func (s *Store) CompleteGenerationAttempt(ctx context.Context, item *models.GenerationAttempt) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.GenerationAttempt{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"status":          item.Status,
			"provider_used":   item.ProviderUsed,
			"retry_count":     item.RetryCount,
			"last_error":      item.LastError,
			"campaign_count":  item.CampaignCount,
			"below_threshold": item.BelowThreshold,
			"completed_at":    item.CompletedAt,
			"updated_at":      time.Now().UTC(),
		}).
		Error
}

func (s *Store) GetGenerationAttempt(ctx context.Context, trendID uuid.UUID, cycleDate time.Time) (*models.GenerationAttempt, error) {
	if s == nil || s.db == nil || trendID == uuid.Nil {
		return nil, nil
	}
	var item models.GenerationAttempt
	err := s.db.WithContext(ctx).
		Model(&models.GenerationAttempt{}).
		Where("trend_id = ? AND cycle_date = ?", trendID, cycleDate).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListGenerationAttempts(ctx context.Context, params repository.ListGenerationAttemptsParams) ([]models.GenerationAttempt, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.GenerationAttempt{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.CycleDate != nil && !params.CycleDate.IsZero() {
		query = query.Where("cycle_date = ?", *params.CycleDate)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.GenerationAttempt
	if err := query.Order("claimed_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Source health ----------------------------------------------------------

func (s *Store) UpsertSourceHealth(ctx context.Context, item *models.SourceHealth) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source_type",
			"endpoint",
			"enabled",
			"health_status",
			"last_error",
			"last_poll_at",
			"last_cycle_date",
			"signals_last_cycle",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListSourceHealth(ctx context.Context) ([]models.SourceHealth, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SourceHealth
	if err := s.db.WithContext(ctx).
		Model(&models.SourceHealth{}).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Cycle reports ----------------------------------------------------------

func (s *Store) UpsertCycleReport(ctx context.Context, item *models.CycleReport) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cycle_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"signals_collected",
			"trends_processed",
			"trends_created",
			"trends_qualified",
			"campaigns_generated",
			"campaigns_below_threshold",
			"fallbacks_used",
			"trends_archived",
			"failed_sources",
			"failures",
			"deadline_exceeded",
			"started_at",
			"finished_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetCycleReportByDate(ctx context.Context, cycleDate time.Time) (*models.CycleReport, error) {
	if s == nil || s.db == nil || cycleDate.IsZero() {
		return nil, nil
	}
	var item models.CycleReport
	err := s.db.WithContext(ctx).
		Model(&models.CycleReport{}).
		Where("cycle_date = ?", cycleDate).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCycleReports(ctx context.Context, limit int) ([]models.CycleReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 30)
	var items []models.CycleReport
	if err := s.db.WithContext(ctx).
		Model(&models.CycleReport{}).
		Order("cycle_date desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
