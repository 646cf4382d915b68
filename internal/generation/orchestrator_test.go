package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"trendscout/internal/config"
	"trendscout/internal/models"
	"trendscout/internal/repository/repotest"
	"trendscout/internal/safety"
)

type fakeProvider struct {
	name   string
	drafts []Draft
	errs   []error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, trend TrendContext, maxCampaigns int) ([]Draft, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.drafts, nil
}

func goodDraft(title string) Draft {
	return Draft{
		Title:            title,
		Headline:         "A headline",
		Brief:            "A brief",
		CampaignType:     models.CampaignTypeReactive,
		PotentialScore:   0.8,
		ViralityScore:    0.7,
		BrandSafetyScore: 0.9,
		FeasibilityScore: 0.8,
	}
}

func testOrchestrator(repo *repotest.Store, providers ...Provider) *Orchestrator {
	return &Orchestrator{
		Repo:      repo,
		Safety:    &safety.Checker{Floor: 0.5},
		Providers: providers,
		Cfg: config.GenerationConfig{
			MaxRetries:           2,
			BackoffBase:          time.Millisecond,
			MaxCampaignsPerTrend: 5,
			MaxAnglesPerCampaign: 5,
			MinCampaignScore:     60,
		},
	}
}

func testTrend() *models.Trend {
	return &models.Trend{
		ID:       uuid.New(),
		TrendKey: "solar-eclipse-viewing",
		Title:    "Solar Eclipse Viewing",
		Category: "science",
		Score:    72,
		Status:   models.TrendStatusActive,
	}
}

func TestGenerateForTrend_Succeeds(t *testing.T) {
	repo := repotest.New()
	provider := &fakeProvider{name: "openai", drafts: []Draft{goodDraft("Eclipse watch party kit")}}
	o := testOrchestrator(repo, provider)

	outcome, err := o.GenerateForTrend(context.Background(), testTrend(), cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.AlreadyDone || outcome.FallbackUsed {
		t.Fatalf("outcome flags: already_done=%v fallback=%v", outcome.AlreadyDone, outcome.FallbackUsed)
	}
	if outcome.Attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("status=%s want succeeded", outcome.Attempt.Status)
	}
	if outcome.Attempt.ProviderUsed != "openai" {
		t.Fatalf("provider_used=%s want openai", outcome.Attempt.ProviderUsed)
	}
	if len(outcome.Campaigns) != 1 {
		t.Fatalf("campaigns=%d want 1", len(outcome.Campaigns))
	}
	if outcome.Attempt.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
}

func TestGenerateForTrend_SingleFlight(t *testing.T) {
	repo := repotest.New()
	provider := &fakeProvider{name: "openai", drafts: []Draft{goodDraft("First claim wins")}}
	o := testOrchestrator(repo, provider)
	trend := testTrend()

	first, err := o.GenerateForTrend(context.Background(), trend, cycleDate())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := o.GenerateForTrend(context.Background(), trend, cycleDate())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.AlreadyDone {
		t.Fatalf("second call not reported as already done")
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
	if len(second.Campaigns) != len(first.Campaigns) {
		t.Fatalf("second call returned %d campaigns, first persisted %d", len(second.Campaigns), len(first.Campaigns))
	}
}

func TestGenerateForTrend_RetryThenSuccess(t *testing.T) {
	repo := repotest.New()
	provider := &fakeProvider{
		name:   "openai",
		drafts: []Draft{goodDraft("Third attempt lands")},
		errs: []error{
			classify("openai", ErrKindServer, errors.New("upstream 502")),
			classify("openai", ErrKindRateLimited, errors.New("429")),
		},
	}
	o := testOrchestrator(repo, provider)

	outcome, err := o.GenerateForTrend(context.Background(), testTrend(), cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("status=%s want succeeded after retries", outcome.Attempt.Status)
	}
	if outcome.Attempt.RetryCount != 2 {
		t.Fatalf("retry_count=%d want 2", outcome.Attempt.RetryCount)
	}
	if provider.calls != 3 {
		t.Fatalf("provider called %d times, want 3", provider.calls)
	}
}

func TestGenerateForTrend_AuthSkipsToNextProvider(t *testing.T) {
	repo := repotest.New()
	broken := &fakeProvider{
		name: "openai",
		errs: []error{classify("openai", ErrKindAuth, errors.New("401"))},
	}
	backup := &fakeProvider{name: "anthropic", drafts: []Draft{goodDraft("Backup delivers")}}
	o := testOrchestrator(repo, broken, backup)

	outcome, err := o.GenerateForTrend(context.Background(), testTrend(), cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if broken.calls != 1 {
		t.Fatalf("auth failure retried: %d calls", broken.calls)
	}
	if outcome.Attempt.ProviderUsed != "anthropic" {
		t.Fatalf("provider_used=%s want anthropic", outcome.Attempt.ProviderUsed)
	}
	if outcome.Attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("status=%s want succeeded", outcome.Attempt.Status)
	}
}

func TestGenerateForTrend_TemplateFallback(t *testing.T) {
	repo := repotest.New()
	broken := &fakeProvider{
		name: "openai",
		errs: []error{
			classify("openai", ErrKindServer, errors.New("down")),
			classify("openai", ErrKindServer, errors.New("down")),
			classify("openai", ErrKindServer, errors.New("down")),
		},
	}
	o := testOrchestrator(repo, broken, &TemplateProvider{MaxAngles: 5})

	outcome, err := o.GenerateForTrend(context.Background(), testTrend(), cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.FallbackUsed {
		t.Fatalf("fallback not reported")
	}
	if outcome.Attempt.Status != models.AttemptStatusFailedFallbackUsed {
		t.Fatalf("status=%s want failed_fallback_used", outcome.Attempt.Status)
	}
	if outcome.Attempt.ProviderUsed != "template" {
		t.Fatalf("provider_used=%s want template", outcome.Attempt.ProviderUsed)
	}
	if len(outcome.Campaigns) == 0 {
		t.Fatalf("template fallback persisted no campaigns")
	}
}

func TestGenerateForTrend_TerminalFailureIsReclaimable(t *testing.T) {
	repo := repotest.New()
	broken := &fakeProvider{
		name: "openai",
		errs: []error{
			classify("openai", ErrKindServer, errors.New("down")),
			classify("openai", ErrKindServer, errors.New("down")),
			classify("openai", ErrKindServer, errors.New("down")),
		},
	}
	o := testOrchestrator(repo, broken)
	trend := testTrend()

	outcome, err := o.GenerateForTrend(context.Background(), trend, cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Attempt.Status != models.AttemptStatusFailedTerminal {
		t.Fatalf("status=%s want failed_terminal", outcome.Attempt.Status)
	}
	if outcome.Attempt.LastError == nil {
		t.Fatalf("last_error not recorded")
	}

	// A failed attempt must not block the next run.
	fixed := testOrchestrator(repo, &fakeProvider{name: "openai", drafts: []Draft{goodDraft("Recovered")}})
	retried, err := fixed.GenerateForTrend(context.Background(), trend, cycleDate())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.AlreadyDone {
		t.Fatalf("failed attempt was not reclaimable")
	}
	if retried.Attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("status=%s want succeeded after reclaim", retried.Attempt.Status)
	}
}

func TestGenerateForTrend_DeadlineResolvesViaTemplate(t *testing.T) {
	repo := repotest.New()
	provider := &fakeProvider{
		name: "openai",
		errs: []error{classify("openai", ErrKindServer, errors.New("down"))},
	}
	o := testOrchestrator(repo, provider)
	trend := testTrend()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := o.GenerateForTrend(ctx, trend, cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.FallbackUsed {
		t.Fatalf("expired cycle context did not resolve via fallback")
	}
	if outcome.Attempt.Status != models.AttemptStatusFailedFallbackUsed {
		t.Fatalf("status=%s want failed_fallback_used", outcome.Attempt.Status)
	}
	if outcome.Attempt.ProviderUsed != "template" {
		t.Fatalf("provider_used=%s want template", outcome.Attempt.ProviderUsed)
	}
	if len(outcome.Campaigns) == 0 {
		t.Fatalf("no campaigns persisted on the deadline path")
	}

	// The ledger row must not be left in_flight when the cycle context is
	// already dead, or the trend and date pair is locked forever.
	stored, err := repo.GetGenerationAttempt(context.Background(), trend.ID, cycleDate())
	if err != nil || stored == nil {
		t.Fatalf("attempt not stored: %v", err)
	}
	if stored.Status != models.AttemptStatusFailedFallbackUsed {
		t.Fatalf("stored status=%s want failed_fallback_used", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Fatalf("completed_at not recorded")
	}
}

func TestGenerateForTrend_StaleClaimTakenOver(t *testing.T) {
	repo := repotest.New()
	trend := testTrend()
	if _, claimed, err := repo.ClaimGenerationAttempt(context.Background(), trend.ID, cycleDate()); err != nil || !claimed {
		t.Fatalf("seed claim: claimed=%v err=%v", claimed, err)
	}

	o := testOrchestrator(repo, &fakeProvider{name: "openai", drafts: []Draft{goodDraft("Takes over")}})
	outcome, err := o.GenerateForTrend(context.Background(), trend, cycleDate())
	if err != nil {
		t.Fatalf("fresh claim run: %v", err)
	}
	if !outcome.AlreadyDone {
		t.Fatalf("fresh in_flight claim was taken over")
	}

	for _, attempt := range repo.Attempts {
		attempt.ClaimedAt = attempt.ClaimedAt.Add(-3 * time.Hour)
	}
	outcome, err = o.GenerateForTrend(context.Background(), trend, cycleDate())
	if err != nil {
		t.Fatalf("stale claim run: %v", err)
	}
	if outcome.AlreadyDone {
		t.Fatalf("stale in_flight claim not reclaimed")
	}
	if outcome.Attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("status=%s want succeeded after takeover", outcome.Attempt.Status)
	}
}

func TestGenerateForTrend_BelowThresholdDiscarded(t *testing.T) {
	repo := repotest.New()
	weak := goodDraft("Weak idea")
	weak.PotentialScore = 0.2
	weak.ViralityScore = 0.2
	weak.FeasibilityScore = 0.3
	provider := &fakeProvider{name: "openai", drafts: []Draft{weak, goodDraft("Strong idea")}}
	o := testOrchestrator(repo, provider)

	outcome, err := o.GenerateForTrend(context.Background(), testTrend(), cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Attempt.BelowThreshold != 1 {
		t.Fatalf("below_threshold=%d want 1", outcome.Attempt.BelowThreshold)
	}
	if len(outcome.Campaigns) != 1 || outcome.Campaigns[0].Title != "Strong idea" {
		t.Fatalf("campaigns=%v, want only the strong draft", outcome.Campaigns)
	}
}

func TestGenerateForTrend_UnsafeDraftsRegenerated(t *testing.T) {
	repo := repotest.New()
	unsafe := goodDraft("Exploit the massacre death coverage")
	provider := &fakeProvider{name: "openai", drafts: []Draft{unsafe}}
	o := testOrchestrator(repo, provider, &TemplateProvider{MaxAngles: 5})

	outcome, err := o.GenerateForTrend(context.Background(), testTrend(), cycleDate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(outcome.Campaigns) == 0 {
		t.Fatalf("no campaigns after safety regeneration")
	}
	for _, c := range outcome.Campaigns {
		if strings.Contains(strings.ToLower(c.Title), "massacre") {
			t.Fatalf("unsafe draft persisted: %q", c.Title)
		}
	}
	// The attempt records the provider that produced usable output context;
	// the model provider stays attributed even though its drafts were
	// replaced.
	if outcome.Attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("status=%s want succeeded", outcome.Attempt.Status)
	}
}

func TestOverallScore(t *testing.T) {
	draft := Draft{PotentialScore: 1, ViralityScore: 1, BrandSafetyScore: 1, FeasibilityScore: 1}
	if got := overallScore(draft); got != 100 {
		t.Fatalf("score=%.2f want 100", got)
	}
	draft = Draft{PotentialScore: 0.5, ViralityScore: 0.5, BrandSafetyScore: 0.5, FeasibilityScore: 0.5}
	if got := overallScore(draft); got != 50 {
		t.Fatalf("score=%.2f want 50", got)
	}
	// Out-of-range self-assessments are clamped, not trusted.
	draft = Draft{PotentialScore: 7, ViralityScore: -3, BrandSafetyScore: 1, FeasibilityScore: 1}
	if got := overallScore(draft); got != 70 {
		t.Fatalf("score=%.2f want 70", got)
	}
}

func cycleDate() time.Time {
	return time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
}
