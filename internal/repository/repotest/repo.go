// Package repotest provides an in-memory Repository used by package tests.
// Semantics mirror the SQL store closely enough for pipeline logic tests:
// upserts key on the same unique columns and the generation attempt claim is
// atomic under the store mutex.
package repotest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trendscout/internal/models"
	"trendscout/internal/repository"
)

type Store struct {
	mu sync.Mutex

	Trends       map[uuid.UUID]*models.Trend
	Observations map[string]*models.Observation
	Baselines    map[string]*models.CategoryBaseline
	Campaigns    map[uuid.UUID]*models.Campaign
	Attempts     map[string]*models.GenerationAttempt
	Sources      map[string]*models.SourceHealth
	Reports      map[string]*models.CycleReport

	nextAttemptID uint64
	nextObsID     uint64
}

// staleClaimAfter matches the SQL store: an in_flight claim this old may be
// taken over.
const staleClaimAfter = 2 * time.Hour

func New() *Store {
	return &Store{
		Trends:       map[uuid.UUID]*models.Trend{},
		Observations: map[string]*models.Observation{},
		Baselines:    map[string]*models.CategoryBaseline{},
		Campaigns:    map[uuid.UUID]*models.Campaign{},
		Attempts:     map[string]*models.GenerationAttempt{},
		Sources:      map[string]*models.SourceHealth{},
		Reports:      map[string]*models.CycleReport{},
	}
}

func jsonArrayContains(raw []byte, want string) bool {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return false
	}
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func obsKey(trendID uuid.UUID, date time.Time) string {
	return trendID.String() + "|" + date.Format("2006-01-02")
}

func baselineKey(category string, date time.Time) string {
	return category + "|" + date.Format("2006-01-02")
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- Trends -----------------------------------------------------------------

func (s *Store) CreateTrend(ctx context.Context, item *models.Trend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	s.Trends[item.ID] = &cp
	return nil
}

func (s *Store) UpdateTrend(ctx context.Context, item *models.Trend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.Trends[item.ID] = &cp
	return nil
}

func (s *Store) GetTrendByID(ctx context.Context, id uuid.UUID) (*models.Trend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.Trends[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) GetTrendByKey(ctx context.Context, key string) (*models.Trend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Trends {
		if t.TrendKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListTrends(ctx context.Context, params repository.ListTrendsParams) ([]models.Trend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trend
	for _, t := range s.Trends {
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.Category != nil && t.Category != *params.Category {
			continue
		}
		if params.MinScore != nil && t.Score < *params.MinScore {
			continue
		}
		if params.IsRising != nil && t.IsRising != *params.IsRising {
			continue
		}
		if params.Sustainable != nil && *params.Sustainable && t.SustainabilityScore == nil {
			continue
		}
		if params.Platform != nil && !jsonArrayContains(t.Platforms, *params.Platform) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *Store) CountTrends(ctx context.Context, params repository.ListTrendsParams) (int64, error) {
	items, _ := s.ListTrends(ctx, params)
	return int64(len(items)), nil
}

func (s *Store) ListActiveTrends(ctx context.Context) ([]models.Trend, error) {
	status := models.TrendStatusActive
	return s.ListTrends(ctx, repository.ListTrendsParams{Status: &status})
}

func (s *Store) ListQualifiedTrends(ctx context.Context, minScore float64, limit int) ([]models.Trend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trend
	for _, t := range s.Trends {
		if t.Status != models.TrendStatusActive || !t.IsBrandSafe {
			continue
		}
		if t.SustainabilityScore == nil || t.Score < minScore {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateTrendScores(ctx context.Context, id uuid.UUID, update repository.TrendScoreUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Trends[id]
	if !ok {
		return nil
	}
	t.Score = update.Score
	t.VolumeScore = update.VolumeScore
	t.VelocityScore = update.VelocityScore
	t.BrandSafetyScore = update.BrandSafetyScore
	t.SustainabilityScore = update.SustainabilityScore
	t.IsRising = update.IsRising
	t.IsBrandSafe = update.IsBrandSafe
	t.IsAnalyzed = true
	ts := update.AnalyzedAt
	t.AnalyzedAt = &ts
	return nil
}

func (s *Store) ArchiveInactiveTrends(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.Trends {
		if t.Status == models.TrendStatusActive && t.LastSeenAt.Before(lastSeenBefore) {
			t.Status = models.TrendStatusArchived
			n++
		}
	}
	return n, nil
}

// --- Observations -----------------------------------------------------------

func (s *Store) UpsertObservation(ctx context.Context, item *models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := obsKey(item.TrendID, item.CycleDate)
	if existing, ok := s.Observations[key]; ok {
		existing.Volume = item.Volume
		existing.Velocity = item.Velocity
		existing.PlatformBreakdown = item.PlatformBreakdown
		return nil
	}
	s.nextObsID++
	cp := *item
	cp.ID = s.nextObsID
	s.Observations[key] = &cp
	return nil
}

func (s *Store) ListObservationsByTrendID(ctx context.Context, trendID uuid.UUID, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Observation
	for _, obs := range s.Observations {
		if obs.TrendID == trendID {
			out = append(out, *obs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleDate.After(out[j].CycleDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Category baselines -----------------------------------------------------

func (s *Store) UpsertCategoryBaseline(ctx context.Context, item *models.CategoryBaseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.Baselines[baselineKey(item.Category, item.CycleDate)] = &cp
	return nil
}

func (s *Store) AvgCategoryVolumeSince(ctx context.Context, category string, since time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, n := 0.0, 0
	for _, b := range s.Baselines {
		if b.Category == category && !b.CycleDate.Before(since) {
			sum += b.AvgVolume
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// --- Campaigns --------------------------------------------------------------

func (s *Store) CreateCampaignWithAngles(ctx context.Context, campaign *models.Campaign, angles []models.Angle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	for i := range angles {
		if angles[i].ID == uuid.Nil {
			angles[i].ID = uuid.New()
		}
		angles[i].CampaignID = campaign.ID
		angles[i].TrendID = campaign.TrendID
	}
	cp := *campaign
	cp.Angles = append([]models.Angle(nil), angles...)
	cp.CreatedAt = time.Now().UTC()
	s.Campaigns[campaign.ID] = &cp
	return nil
}

func (s *Store) GetCampaignByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListCampaigns(ctx context.Context, params repository.ListCampaignsParams) ([]models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Campaign
	for _, c := range s.Campaigns {
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		if params.CampaignType != nil && c.CampaignType != *params.CampaignType {
			continue
		}
		if params.TrendID != nil && c.TrendID != *params.TrendID {
			continue
		}
		if params.MinOverall != nil && c.OverallScore < *params.MinOverall {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverallScore > out[j].OverallScore })
	return out, nil
}

func (s *Store) CountCampaigns(ctx context.Context, params repository.ListCampaignsParams) (int64, error) {
	items, _ := s.ListCampaigns(ctx, params)
	return int64(len(items)), nil
}

func (s *Store) ListCampaignsByTrendID(ctx context.Context, trendID uuid.UUID) ([]models.Campaign, error) {
	return s.ListCampaigns(ctx, repository.ListCampaignsParams{TrendID: &trendID})
}

func (s *Store) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (s *Store) IncrementCampaignViews(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Campaigns[id]; ok {
		c.ViewCount++
	}
	return nil
}

func (s *Store) IncrementCampaignDownloads(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Campaigns[id]; ok {
		c.DownloadCount++
	}
	return nil
}

func (s *Store) ArchiveStaleDraftCampaigns(ctx context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.Campaigns {
		if c.Status == models.CampaignStatusDraft && c.CreatedAt.Before(createdBefore) {
			c.Status = models.CampaignStatusArchived
			n++
		}
	}
	return n, nil
}

// --- Generation attempts ----------------------------------------------------

func (s *Store) ClaimGenerationAttempt(ctx context.Context, trendID uuid.UUID, cycleDate time.Time) (*models.GenerationAttempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := obsKey(trendID, cycleDate)
	now := time.Now().UTC()
	if existing, ok := s.Attempts[key]; ok {
		if existing.Status == models.AttemptStatusFailedFallbackUsed ||
			existing.Status == models.AttemptStatusFailedTerminal ||
			(existing.Status == models.AttemptStatusInFlight && now.Sub(existing.ClaimedAt) >= staleClaimAfter) {
			existing.Status = models.AttemptStatusInFlight
			existing.ClaimedAt = now
			existing.CompletedAt = nil
			existing.LastError = nil
			cp := *existing
			return &cp, true, nil
		}
		cp := *existing
		return &cp, false, nil
	}
	s.nextAttemptID++
	item := &models.GenerationAttempt{
		ID:        s.nextAttemptID,
		TrendID:   trendID,
		CycleDate: cycleDate,
		Status:    models.AttemptStatusInFlight,
		ClaimedAt: now,
	}
	s.Attempts[key] = item
	cp := *item
	return &cp, true, nil
}

func (s *Store) CompleteGenerationAttempt(ctx context.Context, item *models.GenerationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Attempts {
		if existing.ID == item.ID {
			existing.Status = item.Status
			existing.ProviderUsed = item.ProviderUsed
			existing.RetryCount = item.RetryCount
			existing.LastError = item.LastError
			existing.CampaignCount = item.CampaignCount
			existing.BelowThreshold = item.BelowThreshold
			existing.CompletedAt = item.CompletedAt
			return nil
		}
	}
	return nil
}

func (s *Store) GetGenerationAttempt(ctx context.Context, trendID uuid.UUID, cycleDate time.Time) (*models.GenerationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.Attempts[obsKey(trendID, cycleDate)]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListGenerationAttempts(ctx context.Context, params repository.ListGenerationAttemptsParams) ([]models.GenerationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GenerationAttempt
	for _, item := range s.Attempts {
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		if params.CycleDate != nil && !item.CycleDate.Equal(*params.CycleDate) {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Source health ----------------------------------------------------------

func (s *Store) UpsertSourceHealth(ctx context.Context, item *models.SourceHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	cp := *item
	s.Sources[item.Name] = &cp
	return nil
}

func (s *Store) ListSourceHealth(ctx context.Context) ([]models.SourceHealth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SourceHealth
	for _, item := range s.Sources {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Cycle reports ----------------------------------------------------------

func (s *Store) UpsertCycleReport(ctx context.Context, item *models.CycleReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.Reports[item.CycleDate.Format("2006-01-02")] = &cp
	return nil
}

func (s *Store) GetCycleReportByDate(ctx context.Context, cycleDate time.Time) (*models.CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.Reports[cycleDate.Format("2006-01-02")]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListCycleReports(ctx context.Context, limit int) ([]models.CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CycleReport
	for _, item := range s.Reports {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleDate.After(out[j].CycleDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.Repository = (*Store)(nil)
