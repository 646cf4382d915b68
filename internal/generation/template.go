package generation

import (
	"context"
	"fmt"
	"strings"
)

// TemplateProvider is the terminal fallback. It never fails and produces
// deterministic, lower-scored drafts from the trend itself, so a cycle still
// yields usable concepts when every model provider is down.
type TemplateProvider struct {
	MaxAngles int
}

func (p *TemplateProvider) Name() string { return "template" }

func (p *TemplateProvider) Generate(ctx context.Context, trend TrendContext, maxCampaigns int) ([]Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(trend.Title)
	if topic == "" {
		topic = "the trending topic"
	}

	drafts := []Draft{
		{
			Title:              fmt.Sprintf("Rapid Response: %s", topic),
			Headline:           fmt.Sprintf("Our take on %s, while the conversation is live", topic),
			Brief:              fmt.Sprintf("A same-day reactive statement positioning the brand inside the %s conversation. Publish a short expert comment, pitch it to reporters already covering the story, and amplify through owned social channels.", topic),
			CampaignType:       "reactive",
			TargetAudience:     "journalists and industry watchers",
			SuggestedChannels:  []string{"press_release", "twitter", "linkedin"},
			KeyMessages:        []string{fmt.Sprintf("We understand what %s means for our audience", topic)},
			MediaHooks:         []string{fmt.Sprintf("Expert commentary on %s available today", topic)},
			ContentSuggestions: []string{"short founder quote", "explainer thread", "media pitch email"},
			CallToAction:       "Read our full statement",
			PotentialScore:     0.65,
			ViralityScore:      0.55,
			BrandSafetyScore:   0.9,
			FeasibilityScore:   0.9,
			BudgetMinUSD:       1000,
			BudgetMaxUSD:       5000,
			TeamSize:           2,
			TimelineWeeks:      1,
			RequiredSkills:     []string{"pr_writing", "media_relations"},
			Angles: []AngleDraft{
				{
					Title:          "Same-day expert comment",
					Description:    fmt.Sprintf("Draft and distribute a two-paragraph expert comment on %s within hours.", topic),
					TargetAudience: "journalists on the story",
					KeyMessage:     "We are the credible voice on this",
					QualityScore:   0.6,
					EffortRequired: "low",
					TimelineDays:   1,
				},
				{
					Title:          "Social amplification push",
					Description:    "Repackage the comment as a thread and an executive post.",
					TargetAudience: "existing followers",
					KeyMessage:     "Follow us for the sharpest take",
					QualityScore:   0.55,
					EffortRequired: "low",
					TimelineDays:   2,
				},
			},
		},
		{
			Title:              fmt.Sprintf("By the Numbers: %s", topic),
			Headline:           fmt.Sprintf("What the data really says about %s", topic),
			Brief:              fmt.Sprintf("A data-led thought leadership piece that grounds the %s conversation in evidence. Compile internal or public data, publish a short report, and offer the findings to trade press as an exclusive.", topic),
			CampaignType:       "thought_leadership",
			TargetAudience:     "industry analysts and trade press",
			SuggestedChannels:  []string{"blog", "linkedin", "email_newsletter"},
			KeyMessages:        []string{fmt.Sprintf("The real story behind %s is in the data", topic)},
			MediaHooks:         []string{"exclusive first look at the numbers"},
			ContentSuggestions: []string{"data report", "infographic", "webinar"},
			CallToAction:       "Download the report",
			PotentialScore:     0.6,
			ViralityScore:      0.45,
			BrandSafetyScore:   0.95,
			FeasibilityScore:   0.7,
			BudgetMinUSD:       3000,
			BudgetMaxUSD:       15000,
			TeamSize:           3,
			TimelineWeeks:      3,
			RequiredSkills:     []string{"data_analysis", "content_writing", "design"},
			Angles: []AngleDraft{
				{
					Title:          "Exclusive data briefing",
					Description:    "Offer one outlet a pre-publication look at the findings.",
					TargetAudience: "trade press",
					KeyMessage:     "We have the numbers nobody else has",
					QualityScore:   0.6,
					EffortRequired: "medium",
					TimelineDays:   10,
				},
			},
		},
		{
			Title:              fmt.Sprintf("Join the Moment: %s", topic),
			Headline:           fmt.Sprintf("A creative brand activation around %s", topic),
			Brief:              fmt.Sprintf("A light-touch creative campaign that rides the %s wave: a branded challenge, giveaway or interactive piece that invites the audience to participate rather than just watch.", topic),
			CampaignType:       "proactive",
			TargetAudience:     "social-first consumers",
			SuggestedChannels:  []string{"instagram", "tiktok", "youtube"},
			KeyMessages:        []string{fmt.Sprintf("Our brand belongs in the %s conversation", topic)},
			MediaHooks:         []string{"user-generated content roundup"},
			ContentSuggestions: []string{"short-form video", "branded challenge", "giveaway"},
			CallToAction:       "Join the challenge",
			PotentialScore:     0.55,
			ViralityScore:      0.65,
			BrandSafetyScore:   0.85,
			FeasibilityScore:   0.6,
			BudgetMinUSD:       5000,
			BudgetMaxUSD:       25000,
			TeamSize:           4,
			TimelineWeeks:      2,
			RequiredSkills:     []string{"creative_direction", "video_production", "community_management"},
			Angles: []AngleDraft{
				{
					Title:          "Creator seeding",
					Description:    "Brief a handful of mid-size creators to kick off the challenge.",
					TargetAudience: "creator audiences",
					KeyMessage:     "This is the fun way into the moment",
					QualityScore:   0.55,
					EffortRequired: "medium",
					TimelineDays:   7,
				},
			},
		},
	}

	if maxCampaigns > 0 && len(drafts) > maxCampaigns {
		drafts = drafts[:maxCampaigns]
	}
	if p.MaxAngles > 0 {
		for i := range drafts {
			if len(drafts[i].Angles) > p.MaxAngles {
				drafts[i].Angles = drafts[i].Angles[:p.MaxAngles]
			}
		}
	}
	return drafts, nil
}
