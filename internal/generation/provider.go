package generation

import (
	"context"
	"errors"
	"fmt"
)

// TrendContext is the slice of a trend a provider needs to write campaigns.
type TrendContext struct {
	Title       string
	Description string
	Category    string
	Keywords    []string
	Score       float64
	IsRising    bool
}

// Draft is a provider's proposed campaign before scoring gates and
// persistence. Score fields are the provider's self-assessment on 0..1.
type Draft struct {
	Title              string       `json:"title"`
	Headline           string       `json:"headline"`
	Brief              string       `json:"brief"`
	CampaignType       string       `json:"campaign_type"`
	TargetAudience     string       `json:"target_audience"`
	TargetIndustries   []string     `json:"target_industries"`
	SuggestedChannels  []string     `json:"suggested_channels"`
	KeyMessages        []string     `json:"key_messages"`
	MediaHooks         []string     `json:"media_hooks"`
	ContentSuggestions []string     `json:"content_suggestions"`
	CallToAction       string       `json:"call_to_action"`
	PotentialScore     float64      `json:"potential_score"`
	ViralityScore      float64      `json:"virality_score"`
	BrandSafetyScore   float64      `json:"brand_safety_score"`
	FeasibilityScore   float64      `json:"feasibility_score"`
	BudgetMinUSD       float64      `json:"budget_min_usd"`
	BudgetMaxUSD       float64      `json:"budget_max_usd"`
	TeamSize           int          `json:"team_size"`
	TimelineWeeks      int          `json:"timeline_weeks"`
	RequiredSkills     []string     `json:"required_skills"`
	Angles             []AngleDraft `json:"angles"`
}

type AngleDraft struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	TargetAudience string  `json:"target_audience"`
	KeyMessage     string  `json:"key_message"`
	QualityScore   float64 `json:"quality_score"`
	EffortRequired string  `json:"effort_required"`
	TimelineDays   int     `json:"timeline_days"`
}

// Provider generates campaign drafts for one trend. Implementations must
// respect ctx and classify their failures as ProviderError so the
// orchestrator can decide between retrying and moving down the chain.
type Provider interface {
	Name() string
	Generate(ctx context.Context, trend TrendContext, maxCampaigns int) ([]Draft, error)
}

type ErrorKind string

const (
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindAuth        ErrorKind = "auth"
	ErrKindServer      ErrorKind = "server"
	ErrKindBadResponse ErrorKind = "bad_response"
)

type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the same provider is worth another attempt.
// Auth failures and unparseable output will not improve on retry; the chain
// moves on instead.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrKindTimeout, ErrKindRateLimited, ErrKindServer:
		return true
	default:
		return false
	}
}

func classify(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// AsProviderError normalizes arbitrary provider failures; anything
// unclassified is treated as a server fault and retried.
func AsProviderError(provider string, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classify(provider, ErrKindTimeout, err)
	}
	return classify(provider, ErrKindServer, err)
}
