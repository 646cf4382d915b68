package cycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendscout/internal/aggregator"
	"trendscout/internal/collector"
	"trendscout/internal/config"
	"trendscout/internal/generation"
	"trendscout/internal/models"
	"trendscout/internal/repository/repotest"
	"trendscout/internal/safety"
	"trendscout/internal/scoring"
)

type fakeCollector struct {
	name    string
	signals []models.Signal
	err     error
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Fetch(ctx context.Context, cycleDate time.Time) ([]models.Signal, error) {
	return f.signals, f.err
}

func (f *fakeCollector) Health() collector.Health {
	status := collector.HealthOK
	lastErr := ""
	if f.err != nil {
		status = collector.HealthFailed
		lastErr = f.err.Error()
	}
	return collector.Health{
		SourceType: "fake",
		Endpoint:   "https://example.test/" + f.name,
		Enabled:    true,
		Status:     status,
		LastError:  lastErr,
		LastPollAt: time.Now().UTC(),
	}
}

type fakeGenProvider struct{ calls int }

func (f *fakeGenProvider) Name() string { return "openai" }

func (f *fakeGenProvider) Generate(ctx context.Context, trend generation.TrendContext, maxCampaigns int) ([]generation.Draft, error) {
	f.calls++
	return []generation.Draft{{
		Title:            "Campaign for " + trend.Title,
		Headline:         "H",
		Brief:            "B",
		CampaignType:     models.CampaignTypeReactive,
		PotentialScore:   0.8,
		ViralityScore:    0.7,
		BrandSafetyScore: 0.9,
		FeasibilityScore: 0.8,
	}}, nil
}

func newTestCoordinator(repo *repotest.Store, collectors ...collector.Collector) (*Coordinator, *fakeGenProvider) {
	scoringCfg := config.ScoringConfig{
		VolumeWeight:         0.25,
		VelocityWeight:       0.20,
		SustainabilityWeight: 0.35,
		BrandSafetyWeight:    0.20,
		MinTrendScore:        30,
		SafetyFloor:          0.5,
		WindowDays:           7,
		CollapseDropPct:      0.6,
		BaselineWindowDays:   7,
	}
	checker := &safety.Checker{Floor: 0.5}
	provider := &fakeGenProvider{}
	return &Coordinator{
		Repo:       repo,
		Collectors: collectors,
		Aggregator: &aggregator.Aggregator{Repo: repo, Sim: aggregator.TokenSetSimilarity{}, Cutoff: 0.82},
		Scorer:     &scoring.Engine{Cfg: scoringCfg},
		Safety:     checker,
		Generator: &generation.Orchestrator{
			Repo:      repo,
			Safety:    checker,
			Providers: []generation.Provider{provider, &generation.TemplateProvider{MaxAngles: 5}},
			Cfg: config.GenerationConfig{
				MaxRetries:           1,
				BackoffBase:          time.Millisecond,
				MaxConcurrent:        3,
				MaxCampaignsPerTrend: 5,
				MaxAnglesPerCampaign: 5,
				MinCampaignScore:     60,
			},
		},
		Cfg: config.CycleConfig{
			Deadline:           time.Minute,
			ArchiveAfterCycles: 7,
			TopTrendsPerCycle:  10,
		},
		ScoringCfg: scoringCfg,
	}, provider
}

func daySignal(source, label string, volume int64, day int) models.Signal {
	return models.Signal{
		SourceID:   source,
		RawLabel:   label,
		ObservedAt: time.Date(2026, 8, day, 11, 0, 0, 0, time.UTC),
		RawVolume:  volume,
		Category:   "science",
	}
}

func TestRun_FullCycle(t *testing.T) {
	repo := repotest.New()
	ctx := context.Background()

	// Day one seeds the trend and its first observation.
	good := &fakeCollector{name: "google_trends", signals: []models.Signal{
		daySignal("google_trends", "Solar Eclipse Viewing", 100000, 14),
	}}
	broken := &fakeCollector{name: "newsapi", err: errors.New("http 502")}
	coord, _ := newTestCoordinator(repo, good, broken)

	dayOne, err := coord.Run(ctx, time.Date(2026, 8, 14, 6, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("day one: %v", err)
	}
	if dayOne.SignalsCollected != 1 {
		t.Fatalf("signals=%d want 1 with one source down", dayOne.SignalsCollected)
	}
	if dayOne.TrendsCreated != 1 {
		t.Fatalf("trends_created=%d want 1", dayOne.TrendsCreated)
	}
	if string(dayOne.FailedSources) != `["newsapi"]` {
		t.Fatalf("failed_sources=%s want [\"newsapi\"]", dayOne.FailedSources)
	}
	if dayOne.Status != models.CycleStatusCompleted || dayOne.FinishedAt == nil {
		t.Fatalf("report not completed: %+v", dayOne)
	}
	// One observation is not enough history to qualify for generation.
	if dayOne.TrendsQualified != 0 {
		t.Fatalf("qualified=%d want 0 on first sighting", dayOne.TrendsQualified)
	}

	// Day two grows the trend; now it has history and should generate.
	good.signals = []models.Signal{daySignal("google_trends", "Solar Eclipse Viewing", 120000, 15)}
	dayTwo, err := coord.Run(ctx, time.Date(2026, 8, 15, 6, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("day two: %v", err)
	}
	if dayTwo.TrendsProcessed != 1 {
		t.Fatalf("trends_processed=%d want 1", dayTwo.TrendsProcessed)
	}
	if dayTwo.TrendsQualified != 1 {
		t.Fatalf("qualified=%d want 1", dayTwo.TrendsQualified)
	}
	if dayTwo.CampaignsGenerated != 1 {
		t.Fatalf("campaigns=%d want 1", dayTwo.CampaignsGenerated)
	}
	if dayTwo.DeadlineExceeded {
		t.Fatalf("deadline_exceeded set on a fast run")
	}

	sources, _ := repo.ListSourceHealth(ctx)
	if len(sources) != 2 {
		t.Fatalf("source health rows=%d want 2", len(sources))
	}
	for _, src := range sources {
		if src.Name == "newsapi" {
			if src.HealthStatus != collector.HealthFailed || src.LastError == nil {
				t.Fatalf("failed source not recorded: %+v", src)
			}
		}
		if src.Name == "google_trends" && src.SignalsLastCycle != 1 {
			t.Fatalf("signals_last_cycle=%d want 1", src.SignalsLastCycle)
		}
	}
}

func TestRun_RerunSameDateDoesNotDuplicate(t *testing.T) {
	repo := repotest.New()
	ctx := context.Background()

	good := &fakeCollector{name: "google_trends", signals: []models.Signal{
		daySignal("google_trends", "Solar Eclipse Viewing", 100000, 14),
	}}
	coord, provider := newTestCoordinator(repo, good)

	if _, err := coord.Run(ctx, time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("day one: %v", err)
	}
	good.signals = []models.Signal{daySignal("google_trends", "Solar Eclipse Viewing", 120000, 15)}
	if _, err := coord.Run(ctx, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("day two: %v", err)
	}

	rerun, err := coord.Run(ctx, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if rerun.CampaignsGenerated != 0 {
		t.Fatalf("rerun generated %d campaigns, generation is single-flight per date", rerun.CampaignsGenerated)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times across reruns, want 1", provider.calls)
	}
	if len(repo.Campaigns) != 1 {
		t.Fatalf("campaigns persisted=%d want 1", len(repo.Campaigns))
	}
}

type downGenProvider struct{ calls int }

func (f *downGenProvider) Name() string { return "openai" }

func (f *downGenProvider) Generate(ctx context.Context, trend generation.TrendContext, maxCampaigns int) ([]generation.Draft, error) {
	f.calls++
	return nil, errors.New("upstream 503")
}

func TestRun_BlownDeadlineStillYieldsCampaigns(t *testing.T) {
	repo := repotest.New()
	ctx := context.Background()

	good := &fakeCollector{name: "google_trends", signals: []models.Signal{
		daySignal("google_trends", "Solar Eclipse Viewing", 100000, 14),
	}}
	coord, _ := newTestCoordinator(repo, good)
	if _, err := coord.Run(ctx, time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("day one: %v", err)
	}

	// Day two runs against an instantly expired budget with the model
	// provider down.
	good.signals = []models.Signal{daySignal("google_trends", "Solar Eclipse Viewing", 120000, 15)}
	coord.Cfg.Deadline = time.Nanosecond
	coord.Generator.Providers = []generation.Provider{&downGenProvider{}, &generation.TemplateProvider{MaxAngles: 5}}

	report, err := coord.Run(ctx, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("day two: %v", err)
	}
	if !report.DeadlineExceeded {
		t.Fatalf("deadline_exceeded not set")
	}
	if report.FallbacksUsed != 1 {
		t.Fatalf("fallbacks=%d want 1", report.FallbacksUsed)
	}
	if report.CampaignsGenerated == 0 {
		t.Fatalf("blown deadline left the qualified trend without campaigns")
	}
	for _, attempt := range repo.Attempts {
		if attempt.Status == models.AttemptStatusInFlight {
			t.Fatalf("attempt left in_flight after the deadline")
		}
		if attempt.Status != models.AttemptStatusFailedFallbackUsed {
			t.Fatalf("attempt status=%s want failed_fallback_used", attempt.Status)
		}
	}
}

func TestRun_ArchivesInactiveTrends(t *testing.T) {
	repo := repotest.New()
	ctx := context.Background()

	stale := &models.Trend{
		TrendKey:    "old-meme-format",
		Title:       "Old Meme Format",
		Status:      models.TrendStatusActive,
		FirstSeenAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		LastSeenAt:  time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.CreateTrend(ctx, stale); err != nil {
		t.Fatalf("seed: %v", err)
	}

	coord, _ := newTestCoordinator(repo, &fakeCollector{name: "google_trends"})
	report, err := coord.Run(ctx, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TrendsArchived != 1 {
		t.Fatalf("archived=%d want 1", report.TrendsArchived)
	}

	got, _ := repo.GetTrendByID(ctx, stale.ID)
	if got.Status != models.TrendStatusArchived {
		t.Fatalf("status=%s want archived", got.Status)
	}
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2026, 8, 15, 23, 59, 59, 0, time.FixedZone("UTC+5", 5*3600))
	got := truncateToDay(in)
	want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("truncateToDay=%v want %v", got, want)
	}
}
