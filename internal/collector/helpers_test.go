package collector

import (
	"reflect"
	"testing"
	"time"
)

func TestParseApproxTraffic(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"200,000+", 200000},
		{"2M+", 2000000},
		{"2.5M+", 2500000},
		{"50K+", 50000},
		{"1.5K+", 1500},
		{"1,500", 1500},
		{"", 1000},
		{"garbage", 1000},
		{"-20", 1000},
	}
	for _, tc := range cases {
		if got := parseApproxTraffic(tc.raw); got != tc.want {
			t.Fatalf("parseApproxTraffic(%q)=%d want %d", tc.raw, got, tc.want)
		}
	}
}

func TestRankVelocity(t *testing.T) {
	if got := rankVelocity(0, 10); got != 1.0 {
		t.Fatalf("top rank velocity=%.2f want 1.0", got)
	}
	if got := rankVelocity(9, 10); got != 0.1 {
		t.Fatalf("bottom rank velocity=%.2f want 0.1", got)
	}
	if got := rankVelocity(0, 0); got != 0 {
		t.Fatalf("empty feed velocity=%.2f want 0", got)
	}
}

func TestHeadlineVolume(t *testing.T) {
	if got := headlineVolume(1000, 0); got != 100000 {
		t.Fatalf("rank 0 volume=%d want 100000", got)
	}
	if top, low := headlineVolume(1000, 0), headlineVolume(1000, 10); low >= top {
		t.Fatalf("rank decay missing: rank10=%d rank0=%d", low, top)
	}
	// Decay floors at 20% so deep headlines keep some weight.
	if got := headlineVolume(1000, 50); got != 20000 {
		t.Fatalf("floored volume=%d want 20000", got)
	}
	if got := headlineVolume(0, 0); got != 5000 {
		t.Fatalf("missing total fallback=%d want 5000", got)
	}
}

func TestHeadlineKeywords(t *testing.T) {
	got := headlineKeywords("EU Passes Sweeping AI Act, Tech Firms React!")
	want := []string{"passes", "sweeping", "tech", "firms", "react"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keywords=%v want %v", got, want)
	}

	long := headlineKeywords("first second third fourth fifth sixth seventh eighth ninth tenth")
	if len(long) != 8 {
		t.Fatalf("keywords=%d want capped at 8", len(long))
	}
}

func TestRedditVelocity(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	twoHoursAgo := float64(now.Add(-2 * time.Hour).Unix())

	if got := redditVelocity(500, twoHoursAgo, now); got != 0.25 {
		t.Fatalf("velocity=%.4f want 0.25 for 250/hour", got)
	}
	if got := redditVelocity(50000, twoHoursAgo, now); got != 1 {
		t.Fatalf("velocity=%.4f want clamped to 1", got)
	}
	if got := redditVelocity(500, 0, now); got != 0 {
		t.Fatalf("velocity=%.4f want 0 without a post time", got)
	}
	// Very fresh posts read as at least 30 minutes old.
	fresh := float64(now.Add(-1 * time.Minute).Unix())
	if got := redditVelocity(100, fresh, now); got != 0.2 {
		t.Fatalf("velocity=%.4f want 0.2 with the half-hour age floor", got)
	}
}

func TestCategoryForSubreddit(t *testing.T) {
	cases := map[string]string{
		"worldnews":         "news",
		"Technology":        "technology",
		"movies":            "entertainment",
		"nba":               "sports",
		"mildlyinteresting": "general",
	}
	for sub, want := range cases {
		if got := categoryForSubreddit(sub); got != want {
			t.Fatalf("categoryForSubreddit(%q)=%q want %q", sub, got, want)
		}
	}
}

func TestCleanSubreddits(t *testing.T) {
	got := cleanSubreddits([]string{"r/News", " technology ", "news", "", "r/"})
	want := []string{"news", "technology"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("subreddits=%v want %v", got, want)
	}
}

func TestExtractHashtags(t *testing.T) {
	got := extractHashtags("watching the #Eclipse2026 with #friends!! #aa #notashashtag# yes #ValidTag")
	want := []string{"eclipse2026", "friends", "notashashtag", "validtag"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("hashtags=%v want %v", got, want)
	}
	if tags := extractHashtags("no tags here"); len(tags) != 0 {
		t.Fatalf("hashtags=%v want none", tags)
	}
}
