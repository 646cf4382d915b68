package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr=%q want :8080", cfg.Server.HTTPAddr)
	}
	if cfg.Scoring.MinTrendScore != 30 {
		t.Fatalf("min_trend_score=%.1f want 30", cfg.Scoring.MinTrendScore)
	}
	if cfg.Scoring.VolumeWeight+cfg.Scoring.VelocityWeight+cfg.Scoring.SustainabilityWeight+cfg.Scoring.BrandSafetyWeight != 1.0 {
		t.Fatalf("scoring weights do not sum to 1")
	}
	if cfg.Generation.MaxRetries != 2 || cfg.Generation.MaxConcurrent != 3 {
		t.Fatalf("generation defaults: %+v", cfg.Generation)
	}
	if cfg.Generation.RequestTimeout != 60*time.Second {
		t.Fatalf("request_timeout=%v want 60s", cfg.Generation.RequestTimeout)
	}
	if cfg.Cycle.Deadline != 30*time.Minute {
		t.Fatalf("deadline=%v want 30m", cfg.Cycle.Deadline)
	}
	if !cfg.Sources.GoogleTrends.Enabled || cfg.Sources.Bluesky.Enabled {
		t.Fatalf("source enablement defaults: google=%v bluesky=%v",
			cfg.Sources.GoogleTrends.Enabled, cfg.Sources.Bluesky.Enabled)
	}
	if len(cfg.Sources.Reddit.Subreddits) == 0 {
		t.Fatalf("default subreddit list empty")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TS_SCORING_MIN_TREND_SCORE", "45")
	t.Setenv("TS_SERVER_HTTP_ADDR", ":9999")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scoring.MinTrendScore != 45 {
		t.Fatalf("min_trend_score=%.1f want env override 45", cfg.Scoring.MinTrendScore)
	}
	if cfg.Server.HTTPAddr != ":9999" {
		t.Fatalf("http_addr=%q want env override :9999", cfg.Server.HTTPAddr)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte("server:\n  http_addr: \":7070\"\nscoring:\n  safety_floor: 0.7\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":7070" {
		t.Fatalf("http_addr=%q want :7070 from file", cfg.Server.HTTPAddr)
	}
	if cfg.Scoring.SafetyFloor != 0.7 {
		t.Fatalf("safety_floor=%.2f want 0.7 from file", cfg.Scoring.SafetyFloor)
	}
	// Untouched keys keep their defaults.
	if cfg.Scoring.MinTrendScore != 30 {
		t.Fatalf("min_trend_score=%.1f want default 30", cfg.Scoring.MinTrendScore)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatalf("want error for a missing config file")
	}
}
