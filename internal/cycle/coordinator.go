package cycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"trendscout/internal/aggregator"
	"trendscout/internal/collector"
	"trendscout/internal/config"
	"trendscout/internal/generation"
	"trendscout/internal/models"
	"trendscout/internal/repository"
	"trendscout/internal/safety"
	"trendscout/internal/scoring"
)

// Coordinator drives the daily pipeline: collect, aggregate, score,
// generate, finalize. Stages run strictly in order; within the collect and
// generate stages work fans out, with a barrier before the next stage.
type Coordinator struct {
	Repo       repository.Repository
	Logger     *zap.Logger
	Collectors []collector.Collector
	Aggregator *aggregator.Aggregator
	Scorer     *scoring.Engine
	Safety     *safety.Checker
	Generator  *generation.Orchestrator

	Cfg        config.CycleConfig
	ScoringCfg config.ScoringConfig

	mu sync.Mutex
}

// Run executes one full cycle for the given date. Re-running a date is safe:
// observations and the report upsert, and generation is single-flight per
// (trend, date). Only one cycle runs at a time per process.
func (c *Coordinator) Run(ctx context.Context, cycleDate time.Time) (*models.CycleReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cycleDate = truncateToDay(cycleDate)
	startedAt := time.Now().UTC()

	deadline := c.Cfg.Deadline
	if deadline <= 0 {
		deadline = 30 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	report := &models.CycleReport{
		CycleDate: cycleDate,
		Status:    models.CycleStatusRunning,
		StartedAt: startedAt,
	}
	if err := c.Repo.UpsertCycleReport(ctx, report); err != nil {
		return nil, err
	}
	if c.Logger != nil {
		c.Logger.Info("cycle started", zap.String("cycle_date", cycleDate.Format("2006-01-02")))
	}

	var failures []string

	signals, failedSources := c.collect(runCtx, cycleDate)
	report.SignalsCollected = len(signals)

	aggRes, err := c.Aggregator.Ingest(runCtx, cycleDate, signals)
	if err != nil {
		failures = append(failures, fmt.Sprintf("aggregate: %v", err))
	}
	report.TrendsCreated = aggRes.TrendsCreated

	scored, err := c.score(runCtx, cycleDate)
	if err != nil {
		failures = append(failures, fmt.Sprintf("score: %v", err))
	}
	report.TrendsProcessed = scored

	genStats := c.generate(runCtx, cycleDate)
	report.TrendsQualified = genStats.qualified
	report.CampaignsGenerated = genStats.campaigns
	report.CampaignsBelowThreshold = genStats.belowThreshold
	report.FallbacksUsed = genStats.fallbacks
	failures = append(failures, genStats.failures...)

	archived, err := c.finalize(ctx, cycleDate)
	if err != nil {
		failures = append(failures, fmt.Sprintf("finalize: %v", err))
	}
	report.TrendsArchived = archived

	finishedAt := time.Now().UTC()
	report.Status = models.CycleStatusCompleted
	report.FinishedAt = &finishedAt
	report.DeadlineExceeded = runCtx.Err() != nil
	report.FailedSources = toJSON(failedSources)
	report.Failures = toJSON(failures)

	// The report write uses the parent ctx so a blown deadline still gets
	// recorded.
	if err := c.Repo.UpsertCycleReport(ctx, report); err != nil {
		return report, err
	}
	if c.Logger != nil {
		c.Logger.Info("cycle finished",
			zap.String("cycle_date", cycleDate.Format("2006-01-02")),
			zap.Int("signals", report.SignalsCollected),
			zap.Int("trends_processed", report.TrendsProcessed),
			zap.Int("campaigns", report.CampaignsGenerated),
			zap.Int("fallbacks", report.FallbacksUsed),
			zap.Bool("deadline_exceeded", report.DeadlineExceeded),
			zap.Duration("took", finishedAt.Sub(startedAt)))
	}
	return report, nil
}

// collect fans out to every collector in parallel. A collector failure marks
// the source failed and moves on; it never sinks the cycle.
func (c *Coordinator) collect(ctx context.Context, cycleDate time.Time) ([]models.Signal, []string) {
	type result struct {
		name    string
		signals []models.Signal
		err     error
	}
	results := make(chan result, len(c.Collectors))

	var wg sync.WaitGroup
	for _, col := range c.Collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			signals, err := col.Fetch(ctx, cycleDate)
			results <- result{name: col.Name(), signals: signals, err: err}
		}(col)
	}
	wg.Wait()
	close(results)

	var all []models.Signal
	var failed []string
	perSource := map[string]int{}
	for res := range results {
		if res.err != nil {
			failed = append(failed, res.name)
			if c.Logger != nil {
				c.Logger.Warn("collector failed", zap.String("source", res.name), zap.Error(res.err))
			}
		}
		all = append(all, res.signals...)
		perSource[res.name] = len(res.signals)
	}

	for _, col := range c.Collectors {
		health := col.Health()
		var lastErr *string
		if health.LastError != "" {
			msg := health.LastError
			lastErr = &msg
		}
		var lastPoll *time.Time
		if !health.LastPollAt.IsZero() {
			ts := health.LastPollAt
			lastPoll = &ts
		}
		cd := cycleDate
		if err := c.Repo.UpsertSourceHealth(ctx, &models.SourceHealth{
			Name:             col.Name(),
			SourceType:       health.SourceType,
			Endpoint:         health.Endpoint,
			Enabled:          health.Enabled,
			HealthStatus:     health.Status,
			LastError:        lastErr,
			LastPollAt:       lastPoll,
			LastCycleDate:    &cd,
			SignalsLastCycle: perSource[col.Name()],
		}); err != nil && c.Logger != nil {
			c.Logger.Warn("source health upsert failed", zap.String("source", col.Name()), zap.Error(err))
		}
	}
	return all, failed
}

// score walks every active trend, computes its scores against the trailing
// category baseline and writes them back. It also refreshes the per-category
// baselines for this cycle from the latest observations.
func (c *Coordinator) score(ctx context.Context, cycleDate time.Time) (int, error) {
	trends, err := c.Repo.ListActiveTrends(ctx)
	if err != nil {
		return 0, err
	}

	baselineWindow := c.ScoringCfg.BaselineWindowDays
	if baselineWindow <= 0 {
		baselineWindow = 7
	}
	baselineSince := cycleDate.AddDate(0, 0, -baselineWindow)

	obsWindow := c.ScoringCfg.WindowDays
	if obsWindow <= 0 {
		obsWindow = 7
	}

	type categoryStat struct {
		totalVolume float64
		count       int
	}
	categoryStats := map[string]*categoryStat{}

	processed := 0
	for i := range trends {
		trend := &trends[i]
		observations, err := c.Repo.ListObservationsByTrendID(ctx, trend.ID, obsWindow)
		if err != nil {
			return processed, err
		}
		baseline, err := c.Repo.AvgCategoryVolumeSince(ctx, trend.Category, baselineSince)
		if err != nil {
			return processed, err
		}

		var keywords []string
		if len(trend.Keywords) > 0 {
			_ = json.Unmarshal(trend.Keywords, &keywords)
		}
		safetyScore := c.Safety.Score(append([]string{trend.Title, trend.Description}, keywords...)...)

		res := c.Scorer.Score(observations, baseline, safetyScore)
		if err := c.Repo.UpdateTrendScores(ctx, trend.ID, repository.TrendScoreUpdate{
			Score:               res.Overall,
			VolumeScore:         res.Volume,
			VelocityScore:       res.Velocity,
			BrandSafetyScore:    res.BrandSafety,
			SustainabilityScore: res.Sustainability,
			IsRising:            res.IsRising,
			IsBrandSafe:         res.IsBrandSafe,
			AnalyzedAt:          time.Now().UTC(),
		}); err != nil {
			return processed, err
		}
		processed++

		// Latest observation feeds next cycle's baseline.
		for _, obs := range observations {
			if truncateToDay(obs.CycleDate).Equal(cycleDate) {
				stat, ok := categoryStats[trend.Category]
				if !ok {
					stat = &categoryStat{}
					categoryStats[trend.Category] = stat
				}
				stat.totalVolume += float64(obs.Volume)
				stat.count++
				break
			}
		}
	}

	for category, stat := range categoryStats {
		if stat.count == 0 {
			continue
		}
		if err := c.Repo.UpsertCategoryBaseline(ctx, &models.CategoryBaseline{
			Category:   category,
			CycleDate:  cycleDate,
			AvgVolume:  stat.totalVolume / float64(stat.count),
			TrendCount: stat.count,
		}); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

type generateStats struct {
	qualified      int
	campaigns      int
	belowThreshold int
	fallbacks      int
	failures       []string
}

// generate runs campaign generation for the top qualified trends with a
// bounded worker pool.
func (c *Coordinator) generate(ctx context.Context, cycleDate time.Time) generateStats {
	var stats generateStats

	limit := c.Cfg.TopTrendsPerCycle
	if limit <= 0 {
		limit = 10
	}
	trends, err := c.Repo.ListQualifiedTrends(ctx, c.ScoringCfg.MinTrendScore, limit)
	if err != nil {
		stats.failures = append(stats.failures, fmt.Sprintf("list qualified trends: %v", err))
		return stats
	}
	stats.qualified = len(trends)
	if len(trends) == 0 {
		return stats
	}

	workers := c.Generator.Cfg.MaxConcurrent
	if workers <= 0 {
		workers = 3
	}
	sem := make(chan struct{}, workers)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range trends {
		trend := &trends[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := c.Generator.GenerateForTrend(ctx, trend, cycleDate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.failures = append(stats.failures, fmt.Sprintf("generate %s: %v", trend.Title, err))
				return
			}
			if outcome.AlreadyDone {
				return
			}
			stats.campaigns += len(outcome.Campaigns)
			if outcome.Attempt != nil {
				stats.belowThreshold += outcome.Attempt.BelowThreshold
			}
			if outcome.FallbackUsed {
				stats.fallbacks++
			}
		}()
	}
	wg.Wait()
	return stats
}

// finalize archives trends that stopped appearing and drafts nobody touched.
func (c *Coordinator) finalize(ctx context.Context, cycleDate time.Time) (int, error) {
	after := c.Cfg.ArchiveAfterCycles
	if after <= 0 {
		after = 7
	}
	archived, err := c.Repo.ArchiveInactiveTrends(ctx, cycleDate.AddDate(0, 0, -after))
	if err != nil {
		return 0, err
	}
	if c.Cfg.ArchiveDraftsAfter > 0 {
		if _, err := c.Repo.ArchiveStaleDraftCampaigns(ctx, time.Now().UTC().Add(-c.Cfg.ArchiveDraftsAfter)); err != nil {
			return int(archived), err
		}
	}
	return int(archived), nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toJSON(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}
