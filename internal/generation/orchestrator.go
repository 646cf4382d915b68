package generation

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"trendscout/internal/config"
	"trendscout/internal/models"
	"trendscout/internal/repository"
	"trendscout/internal/safety"
)

// Orchestrator owns campaign generation for one trend: the single-flight
// claim, the provider chain with retries, the safety re-scan of model output
// and the score gate before persistence.
type Orchestrator struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Safety    *safety.Checker
	Providers []Provider
	Limiter   *rate.Limiter
	Cfg       config.GenerationConfig
}

// Outcome reports what one generation call did. AlreadyDone means another
// claimant owns (or finished) this trend and cycle; Campaigns then holds
// whatever that claimant persisted.
type Outcome struct {
	Attempt      *models.GenerationAttempt
	Campaigns    []models.Campaign
	AlreadyDone  bool
	FallbackUsed bool
}

func (o *Orchestrator) GenerateForTrend(ctx context.Context, trend *models.Trend, cycleDate time.Time) (Outcome, error) {
	attempt, claimed, err := o.Repo.ClaimGenerationAttempt(ctx, trend.ID, cycleDate)
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		existing, err := o.Repo.ListCampaignsByTrendID(ctx, trend.ID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Attempt: attempt, Campaigns: existing, AlreadyDone: true}, nil
	}

	outcome := o.run(ctx, trend, attempt)

	now := time.Now().UTC()
	attempt.CompletedAt = &now
	// The ledger write must survive a blown cycle deadline, or the row stays
	// in_flight and blocks every later claim for this trend and date.
	if err := o.Repo.CompleteGenerationAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, trend *models.Trend, attempt *models.GenerationAttempt) Outcome {
	trendCtx := trendContext(trend)

	drafts, provider, retries, chainErr := o.runChain(ctx, trendCtx)
	attempt.RetryCount = retries

	deadlineHit := false
	if chainErr != nil && ctx.Err() != nil {
		// The cycle deadline expired mid-chain. The trend still gets its
		// campaigns from the template; the remaining work runs detached from
		// the dead cycle context.
		deadlineHit = true
		ctx = context.WithoutCancel(ctx)
		if o.Logger != nil {
			o.Logger.Warn("cycle deadline hit mid-generation, resolving from template",
				zap.String("trend", trend.Title))
		}
		tpl := &TemplateProvider{MaxAngles: o.Cfg.MaxAnglesPerCampaign}
		if tplDrafts, err := tpl.Generate(ctx, trendCtx, o.Cfg.MaxCampaignsPerTrend); err == nil {
			drafts, provider, chainErr = tplDrafts, tpl, nil
		}
	}
	if chainErr != nil {
		msg := chainErr.Error()
		attempt.Status = models.AttemptStatusFailedTerminal
		attempt.LastError = &msg
		if o.Logger != nil {
			o.Logger.Error("generation chain exhausted",
				zap.String("trend", trend.Title),
				zap.Error(chainErr))
		}
		return Outcome{Attempt: attempt}
	}

	fallbackUsed := deadlineHit || (provider != nil && provider.Name() == "template" && len(o.Providers) > 1)
	attempt.ProviderUsed = provider.Name()

	drafts = o.rescreenDrafts(ctx, trendCtx, drafts, provider)

	campaigns, belowThreshold := o.persistDrafts(ctx, trend, drafts, provider.Name())
	attempt.CampaignCount = len(campaigns)
	attempt.BelowThreshold = belowThreshold

	if fallbackUsed {
		attempt.Status = models.AttemptStatusFailedFallbackUsed
	} else {
		attempt.Status = models.AttemptStatusSucceeded
	}

	if o.Logger != nil {
		o.Logger.Info("generation finished",
			zap.String("trend", trend.Title),
			zap.String("provider", provider.Name()),
			zap.Int("campaigns", len(campaigns)),
			zap.Int("below_threshold", belowThreshold),
			zap.Int("retries", retries),
			zap.Bool("fallback", fallbackUsed))
	}
	return Outcome{Attempt: attempt, Campaigns: campaigns, FallbackUsed: fallbackUsed}
}

// runChain walks the provider chain. Retryable failures get up to MaxRetries
// extra attempts with jittered exponential backoff; auth and bad-response
// failures skip straight to the next provider.
func (o *Orchestrator) runChain(ctx context.Context, trend TrendContext) ([]Draft, Provider, int, error) {
	maxCampaigns := o.Cfg.MaxCampaignsPerTrend
	if maxCampaigns <= 0 {
		maxCampaigns = 5
	}

	totalRetries := 0
	var lastErr error
	for _, provider := range o.Providers {
		attempts := 1 + o.Cfg.MaxRetries
		for attempt := 0; attempt < attempts; attempt++ {
			if attempt > 0 {
				totalRetries++
				if err := o.backoff(ctx, attempt); err != nil {
					return nil, nil, totalRetries, err
				}
			}
			if o.Limiter != nil {
				if err := o.Limiter.Wait(ctx); err != nil {
					return nil, nil, totalRetries, err
				}
			}

			drafts, err := provider.Generate(ctx, trend, maxCampaigns)
			if err == nil {
				return drafts, provider, totalRetries, nil
			}
			perr := AsProviderError(provider.Name(), err)
			lastErr = perr
			if o.Logger != nil {
				o.Logger.Warn("provider call failed",
					zap.String("provider", provider.Name()),
					zap.String("kind", string(perr.Kind)),
					zap.Int("attempt", attempt+1),
					zap.Error(perr.Err))
			}
			if !perr.Retryable() {
				break
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, nil, totalRetries, lastErr
}

func (o *Orchestrator) backoff(ctx context.Context, attempt int) error {
	base := o.Cfg.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << (attempt - 1)
	delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// rescreenDrafts runs the brand safety checker over provider output. If a
// model provider returned nothing safe, the template gets one shot; drafts
// still unsafe after that are discarded.
func (o *Orchestrator) rescreenDrafts(ctx context.Context, trend TrendContext, drafts []Draft, provider Provider) []Draft {
	safe := o.filterSafe(drafts)
	if len(safe) > 0 || provider == nil || provider.Name() == "template" {
		return safe
	}
	if o.Logger != nil {
		o.Logger.Warn("all provider drafts failed safety rescreen, regenerating from template",
			zap.String("provider", provider.Name()))
	}
	regenerated, err := (&TemplateProvider{MaxAngles: o.Cfg.MaxAnglesPerCampaign}).Generate(ctx, trend, o.Cfg.MaxCampaignsPerTrend)
	if err != nil {
		return nil
	}
	return o.filterSafe(regenerated)
}

func (o *Orchestrator) filterSafe(drafts []Draft) []Draft {
	if o.Safety == nil {
		return drafts
	}
	out := drafts[:0]
	for _, draft := range drafts {
		texts := append([]string{draft.Title, draft.Headline, draft.Brief}, draft.ContentSuggestions...)
		if o.Safety.IsSafe(texts...) {
			out = append(out, draft)
		}
	}
	return out
}

// persistDrafts scores each draft and stores the ones clearing the minimum
// campaign score, newest drafts first up to the per-trend cap.
func (o *Orchestrator) persistDrafts(ctx context.Context, trend *models.Trend, drafts []Draft, providerName string) ([]models.Campaign, int) {
	minScore := o.Cfg.MinCampaignScore
	if minScore <= 0 {
		minScore = 60
	}
	maxCampaigns := o.Cfg.MaxCampaignsPerTrend
	if maxCampaigns <= 0 {
		maxCampaigns = 5
	}
	maxAngles := o.Cfg.MaxAnglesPerCampaign
	if maxAngles <= 0 {
		maxAngles = 5
	}

	var campaigns []models.Campaign
	belowThreshold := 0
	for _, draft := range drafts {
		if len(campaigns) >= maxCampaigns {
			break
		}
		overall := overallScore(draft)
		if overall < minScore {
			belowThreshold++
			continue
		}

		campaign, angles := draftToModels(trend, draft, providerName, overall, maxAngles)
		if err := o.Repo.CreateCampaignWithAngles(ctx, campaign, angles); err != nil {
			if o.Logger != nil {
				o.Logger.Error("persist campaign failed",
					zap.String("title", draft.Title),
					zap.Error(err))
			}
			continue
		}
		campaign.Angles = angles
		campaigns = append(campaigns, *campaign)
	}
	return campaigns, belowThreshold
}

// overallScore combines the draft's self-assessed components into the 0-100
// campaign score: potential 40%, virality 30%, safety 20%, feasibility 10%.
func overallScore(draft Draft) float64 {
	score := 100 * (0.4*clamp01(draft.PotentialScore) +
		0.3*clamp01(draft.ViralityScore) +
		0.2*clamp01(draft.BrandSafetyScore) +
		0.1*clamp01(draft.FeasibilityScore))
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func draftToModels(trend *models.Trend, draft Draft, providerName string, overall float64, maxAngles int) (*models.Campaign, []models.Angle) {
	meta, _ := json.Marshal(map[string]any{
		"provider":    providerName,
		"trend_score": trend.Score,
	})
	campaign := &models.Campaign{
		TrendID:            trend.ID,
		Title:              draft.Title,
		Headline:           draft.Headline,
		Brief:              draft.Brief,
		CampaignType:       draft.CampaignType,
		TargetAudience:     draft.TargetAudience,
		TargetIndustries:   mustJSONArray(draft.TargetIndustries),
		SuggestedChannels:  mustJSONArray(draft.SuggestedChannels),
		KeyMessages:        mustJSONArray(draft.KeyMessages),
		MediaHooks:         mustJSONArray(draft.MediaHooks),
		ContentSuggestions: mustJSONArray(draft.ContentSuggestions),
		CallToAction:       draft.CallToAction,
		PotentialScore:     clamp01(draft.PotentialScore),
		ViralityScore:      clamp01(draft.ViralityScore),
		BrandSafetyScore:   clamp01(draft.BrandSafetyScore),
		FeasibilityScore:   clamp01(draft.FeasibilityScore),
		OverallScore:       overall,
		BudgetMinUSD:       decimal.NewFromFloat(draft.BudgetMinUSD),
		BudgetMaxUSD:       decimal.NewFromFloat(draft.BudgetMaxUSD),
		TeamSize:           draft.TeamSize,
		TimelineWeeks:      draft.TimelineWeeks,
		RequiredSkills:     mustJSONArray(draft.RequiredSkills),
		GenerationModel:    providerName,
		GenerationMeta:     datatypes.JSON(meta),
		Status:             models.CampaignStatusDraft,
	}

	angleDrafts := draft.Angles
	if len(angleDrafts) > maxAngles {
		angleDrafts = angleDrafts[:maxAngles]
	}
	angles := make([]models.Angle, 0, len(angleDrafts))
	for _, ad := range angleDrafts {
		angles = append(angles, models.Angle{
			TrendID:        trend.ID,
			Title:          ad.Title,
			Description:    ad.Description,
			TargetAudience: ad.TargetAudience,
			KeyMessage:     ad.KeyMessage,
			QualityScore:   clamp01(ad.QualityScore),
			EffortRequired: normalizeEffort(ad.EffortRequired),
			TimelineDays:   ad.TimelineDays,
		})
	}
	return campaign, angles
}

func normalizeEffort(raw string) string {
	switch raw {
	case "low", "medium", "high":
		return raw
	default:
		return "medium"
	}
}

func mustJSONArray(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}

func trendContext(trend *models.Trend) TrendContext {
	var keywords []string
	if len(trend.Keywords) > 0 {
		_ = json.Unmarshal(trend.Keywords, &keywords)
	}
	return TrendContext{
		Title:       trend.Title,
		Description: trend.Description,
		Category:    trend.Category,
		Keywords:    keywords,
		Score:       trend.Score,
		IsRising:    trend.IsRising,
	}
}
