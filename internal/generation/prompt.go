package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are a senior PR strategist. You turn trending topics into ` +
	`actionable PR campaign concepts for brands. You respond with strict JSON only, ` +
	`no markdown fences, no commentary.`

// buildPrompt renders the user message for one trend. The JSON schema in the
// prompt mirrors the Draft struct so responses unmarshal directly.
func buildPrompt(trend TrendContext, maxCampaigns, maxAngles int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trending topic: %s\n", trend.Title)
	if trend.Description != "" {
		fmt.Fprintf(&sb, "Context: %s\n", trend.Description)
	}
	if trend.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", trend.Category)
	}
	if len(trend.Keywords) > 0 {
		fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(trend.Keywords, ", "))
	}
	fmt.Fprintf(&sb, "Trend score: %.0f/100, rising: %t\n\n", trend.Score, trend.IsRising)

	fmt.Fprintf(&sb, "Propose up to %d distinct PR campaign concepts a brand could run on this topic. ", maxCampaigns)
	fmt.Fprintf(&sb, "Each campaign gets up to %d execution angles. ", maxAngles)
	sb.WriteString(`Campaign types must be one of: reactive, proactive, seasonal, news_jacking, thought_leadership. ` +
		`All score fields are 0.0-1.0. Budgets are USD. ` +
		`Respond with a JSON object of this exact shape:
{"campaigns":[{"title":"","headline":"","brief":"","campaign_type":"","target_audience":"",` +
		`"target_industries":[],"suggested_channels":[],"key_messages":[],"media_hooks":[],` +
		`"content_suggestions":[],"call_to_action":"","potential_score":0.0,"virality_score":0.0,` +
		`"brand_safety_score":0.0,"feasibility_score":0.0,"budget_min_usd":0,"budget_max_usd":0,` +
		`"team_size":0,"timeline_weeks":0,"required_skills":[],` +
		`"angles":[{"title":"","description":"","target_audience":"","key_message":"",` +
		`"quality_score":0.0,"effort_required":"low|medium|high","timeline_days":0}]}]}`)
	return sb.String()
}

// parseDrafts extracts campaign drafts from raw model output, tolerating
// accidental code fences and leading prose around the JSON object.
func parseDrafts(raw string) ([]Draft, error) {
	cleaned := strings.TrimSpace(raw)
	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndex(cleaned, "}"); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	var parsed struct {
		Campaigns []Draft `json:"campaigns"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal campaigns: %w", err)
	}

	drafts := parsed.Campaigns[:0]
	for _, draft := range parsed.Campaigns {
		if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Brief) == "" {
			continue
		}
		if !validCampaignType(draft.CampaignType) {
			draft.CampaignType = "reactive"
		}
		drafts = append(drafts, draft)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no usable campaigns in response")
	}
	return drafts, nil
}

func validCampaignType(t string) bool {
	switch t {
	case "reactive", "proactive", "seasonal", "news_jacking", "thought_leadership":
		return true
	default:
		return false
	}
}
