package category

import (
	"context"
	"errors"
	"testing"
)

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		title       string
		description string
		keywords    []string
		want        string
	}{
		{"NASA Asteroid Mission", "the telescope spotted it first", nil, "science"},
		{"Champions League Final", "", []string{"soccer", "goal"}, "sports"},
		{"New iPhone Announced", "fresh smartphone lineup", nil, "technology"},
		{"Quarterly Earnings Beat", "stock up after the report", nil, "business"},
		{"Something Completely Unmatched", "", nil, ""},
		{"", "", nil, ""},
	}
	for _, tc := range cases {
		got, err := KeywordClassifier{}.Classify(context.Background(), tc.title, tc.description, tc.keywords)
		if err != nil {
			t.Fatalf("classify %q: %v", tc.title, err)
		}
		if got != tc.want {
			t.Fatalf("classify %q = %q want %q", tc.title, got, tc.want)
		}
	}
}

func TestKeywordClassifier_WholeTokenMatching(t *testing.T) {
	// "appetite" must not trip the "app" indicator.
	got, _ := KeywordClassifier{}.Classify(context.Background(), "Appetite for Change", "", nil)
	if got != "" {
		t.Fatalf("classify=%q want no opinion for a substring-only hit", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"science", "science"},
		{" Technology. ", "technology"},
		{`"sports"`, "sports"},
		{"news", "news"},
		{"finance", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.raw); got != tc.want {
			t.Fatalf("Normalize(%q)=%q want %q", tc.raw, got, tc.want)
		}
	}
}

func TestAIClassifier_UsesModelAnswer(t *testing.T) {
	c := &AIClassifier{Chat: func(ctx context.Context, system, user string) (string, error) {
		return "Science.", nil
	}}
	got, err := c.Classify(context.Background(), "Mystery Topic", "", nil)
	if err != nil || got != "science" {
		t.Fatalf("classify=%q err=%v want science", got, err)
	}
}

func TestAIClassifier_FallsBackOnError(t *testing.T) {
	c := &AIClassifier{Chat: func(ctx context.Context, system, user string) (string, error) {
		return "", errors.New("model down")
	}}
	got, err := c.Classify(context.Background(), "NASA Telescope Results", "", nil)
	if err != nil || got != "science" {
		t.Fatalf("classify=%q err=%v want keyword fallback science", got, err)
	}
}

func TestAIClassifier_FallsBackOnUnknownAnswer(t *testing.T) {
	c := &AIClassifier{Chat: func(ctx context.Context, system, user string) (string, error) {
		return "i cannot classify this content", nil
	}}
	got, err := c.Classify(context.Background(), "World Cup Final Tonight", "", nil)
	if err != nil || got != "sports" {
		t.Fatalf("classify=%q err=%v want keyword fallback sports", got, err)
	}
}
