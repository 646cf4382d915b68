// Package category assigns topic categories to trends. The category keys the
// per-category volume baseline in scoring, so a trend carrying only its
// source's default ("general", "news") gets reclassified from its actual
// content.
package category

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Classifier names the topic category for a piece of trend content. An empty
// result means the classifier has no opinion and the caller should keep the
// category it already has.
type Classifier interface {
	Classify(ctx context.Context, title, description string, keywords []string) (string, error)
}

// taxonomy maps each category to the tokens that indicate it. Matching is
// whole-token, so "technology" content is recognized without tripping on
// substrings.
var taxonomy = map[string][]string{
	"technology": {
		"ai", "app", "software", "tech", "iphone", "android", "chip", "robot",
		"crypto", "startup", "cyber", "gadget", "smartphone", "browser", "cloud",
	},
	"business": {
		"market", "stock", "earnings", "economy", "inflation", "merger", "ipo",
		"layoffs", "bank", "tariff", "ceo", "acquisition", "revenue",
	},
	"entertainment": {
		"movie", "film", "album", "tour", "concert", "celebrity", "netflix",
		"trailer", "music", "song", "actor", "actress", "premiere", "streaming",
	},
	"sports": {
		"cup", "league", "match", "playoff", "final", "olympics", "championship",
		"goal", "coach", "tournament", "nba", "nfl", "soccer", "transfer",
	},
	"science": {
		"space", "nasa", "spacex", "climate", "research", "study", "telescope",
		"eclipse", "asteroid", "physics", "species", "fossil", "quantum",
	},
	"health": {
		"health", "vaccine", "virus", "outbreak", "fda", "cancer", "hospital",
		"diet", "mental", "fitness", "epidemic", "surgery",
	},
	"politics": {
		"election", "senate", "congress", "president", "vote", "bill", "policy",
		"parliament", "minister", "ballot", "referendum",
	},
}

// sourceCategories are the per-source defaults collectors emit; a model
// answer naming one of them is accepted too.
var sourceCategories = map[string]struct{}{
	"general": {},
	"news":    {},
}

// Normalize cleans a raw category answer and checks it against the known
// set. Unknown answers normalize to "".
func Normalize(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Trim(cleaned, `."'`)
	if _, ok := taxonomy[cleaned]; ok {
		return cleaned
	}
	if _, ok := sourceCategories[cleaned]; ok {
		return cleaned
	}
	return ""
}

// KeywordClassifier scores content tokens against the taxonomy and picks the
// category with the most hits. No hits means no opinion.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(ctx context.Context, title, description string, keywords []string) (string, error) {
	tokens := tokenSet(title, description, keywords)
	if len(tokens) == 0 {
		return "", nil
	}

	best, bestHits := "", 0
	names := make([]string, 0, len(taxonomy))
	for name := range taxonomy {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hits := 0
		for _, indicator := range taxonomy[name] {
			if _, ok := tokens[indicator]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = name, hits
		}
	}
	return best, nil
}

// ChatFunc runs a one-shot model completion and returns the raw answer.
type ChatFunc func(ctx context.Context, system, user string) (string, error)

const systemPrompt = "You are a topic classifier for a PR intelligence tool. " +
	"Answer with exactly one lowercase word from this list and nothing else: " +
	"technology, business, entertainment, sports, science, health, politics, news, general."

// AIClassifier asks a model for the category and falls back to the keyword
// taxonomy when the model is unavailable or answers outside the known set.
type AIClassifier struct {
	Chat     ChatFunc
	Fallback KeywordClassifier
}

func (c *AIClassifier) Classify(ctx context.Context, title, description string, keywords []string) (string, error) {
	if c.Chat != nil {
		answer, err := c.Chat(ctx, systemPrompt, buildPrompt(title, description, keywords))
		if err == nil {
			if got := Normalize(answer); got != "" {
				return got, nil
			}
		}
	}
	return c.Fallback.Classify(ctx, title, description, keywords)
}

func buildPrompt(title, description string, keywords []string) string {
	var sb strings.Builder
	sb.WriteString("Topic: ")
	sb.WriteString(title)
	if description != "" {
		sb.WriteString("\nContext: ")
		if len(description) > 300 {
			description = description[:300]
		}
		sb.WriteString(description)
	}
	if len(keywords) > 0 {
		sb.WriteString("\nKeywords: ")
		sb.WriteString(strings.Join(keywords, ", "))
	}
	return sb.String()
}

func tokenSet(title, description string, keywords []string) map[string]struct{} {
	out := map[string]struct{}{}
	add := func(text string) {
		var sb strings.Builder
		for _, r := range strings.ToLower(text) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				sb.WriteRune(r)
			} else {
				sb.WriteRune(' ')
			}
		}
		for _, f := range strings.Fields(sb.String()) {
			out[f] = struct{}{}
		}
	}
	add(title)
	add(description)
	for _, kw := range keywords {
		add(kw)
	}
	return out
}
