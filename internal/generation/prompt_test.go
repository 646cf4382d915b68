package generation

import (
	"context"
	"strings"
	"testing"
)

func TestParseDrafts_CleanJSON(t *testing.T) {
	raw := `{"campaigns":[{"title":"T","brief":"B","campaign_type":"proactive","potential_score":0.7}]}`
	drafts, err := parseDrafts(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Title != "T" || drafts[0].CampaignType != "proactive" {
		t.Fatalf("drafts=%+v", drafts)
	}
}

func TestParseDrafts_StripsFencesAndProse(t *testing.T) {
	raw := "Sure, here are the campaigns:\n```json\n" +
		`{"campaigns":[{"title":"T","brief":"B","campaign_type":"seasonal"}]}` +
		"\n```\nLet me know if you need more."
	drafts, err := parseDrafts(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(drafts) != 1 || drafts[0].CampaignType != "seasonal" {
		t.Fatalf("drafts=%+v", drafts)
	}
}

func TestParseDrafts_CoercesInvalidType(t *testing.T) {
	raw := `{"campaigns":[{"title":"T","brief":"B","campaign_type":"viral_blitz"}]}`
	drafts, err := parseDrafts(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if drafts[0].CampaignType != "reactive" {
		t.Fatalf("campaign_type=%q want coerced to reactive", drafts[0].CampaignType)
	}
}

func TestParseDrafts_DropsEmptyDrafts(t *testing.T) {
	raw := `{"campaigns":[{"title":"","brief":"B"},{"title":"T","brief":""},{"title":"Keep","brief":"B"}]}`
	drafts, err := parseDrafts(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Title != "Keep" {
		t.Fatalf("drafts=%+v want only the complete draft", drafts)
	}
}

func TestParseDrafts_Errors(t *testing.T) {
	if _, err := parseDrafts("not json at all"); err == nil {
		t.Fatalf("want error for non-JSON input")
	}
	if _, err := parseDrafts(`{"campaigns":[]}`); err == nil {
		t.Fatalf("want error for empty campaign list")
	}
	if _, err := parseDrafts(`{"campaigns":[{"title":"","brief":""}]}`); err == nil {
		t.Fatalf("want error when every draft is unusable")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(TrendContext{
		Title:    "Solar Eclipse Viewing",
		Category: "science",
		Keywords: []string{"eclipse", "astronomy"},
		Score:    72,
		IsRising: true,
	}, 3, 4)

	for _, want := range []string{
		"Solar Eclipse Viewing",
		"Category: science",
		"eclipse, astronomy",
		"up to 3 distinct",
		"up to 4 execution angles",
		`"campaigns":[`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestTemplateProvider_ClearsScoreGate(t *testing.T) {
	p := &TemplateProvider{MaxAngles: 3}
	drafts, err := p.Generate(context.Background(), TrendContext{Title: "Marathon Season", Category: "sports"}, 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) == 0 {
		t.Fatalf("template produced no drafts")
	}
	for _, d := range drafts {
		if got := overallScore(d); got < 60 {
			t.Fatalf("template draft %q scores %.1f, below the persistence gate", d.Title, got)
		}
		if !validCampaignType(d.CampaignType) {
			t.Fatalf("template draft %q has invalid type %q", d.Title, d.CampaignType)
		}
		if len(d.Angles) > 3 {
			t.Fatalf("template draft %q has %d angles, cap is 3", d.Title, len(d.Angles))
		}
	}
}

func TestTemplateProvider_RespectsMaxCampaigns(t *testing.T) {
	p := &TemplateProvider{MaxAngles: 5}
	drafts, err := p.Generate(context.Background(), TrendContext{Title: "Anything"}, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("drafts=%d want capped at 1", len(drafts))
	}
}
