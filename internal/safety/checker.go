package safety

import (
	"strings"
)

// Checker scores text for brand safety on a 0..1 scale. The score starts at
// 1.0 and each matched risk group deducts once, no matter how many of its
// keywords appear.
type Checker struct {
	Floor float64
}

type riskGroup struct {
	name      string
	deduction float64
	keywords  []string
}

var riskGroups = []riskGroup{
	{
		name:      "violence",
		deduction: 0.4,
		keywords:  []string{"murder", "shooting", "attack", "killed", "violence", "terrorist", "terrorism", "bombing", "massacre", "assault"},
	},
	{
		name:      "death",
		deduction: 0.3,
		keywords:  []string{"death", "dead", "dies", "died", "fatal", "suicide", "overdose"},
	},
	{
		name:      "disaster",
		deduction: 0.2,
		keywords:  []string{"disaster", "earthquake", "hurricane", "wildfire", "flood", "crash", "explosion", "tragedy"},
	},
	{
		name:      "scandal",
		deduction: 0.2,
		keywords:  []string{"scandal", "fraud", "lawsuit", "arrested", "indicted", "corruption", "abuse", "allegations"},
	},
	{
		name:      "adult",
		deduction: 0.5,
		keywords:  []string{"nsfw", "explicit", "porn", "onlyfans", "nude"},
	},
	{
		name:      "drugs",
		deduction: 0.25,
		keywords:  []string{"cocaine", "heroin", "fentanyl", "meth", "cartel", "trafficking"},
	},
	{
		name:      "hate",
		deduction: 0.5,
		keywords:  []string{"racist", "racism", "nazi", "hate crime", "slur", "antisemitic"},
	},
}

// Score evaluates the combined text fields of a topic. Matching is
// case-insensitive on whole tokens so "skill" does not trip "kill".
func (c *Checker) Score(texts ...string) float64 {
	tokens := map[string]struct{}{}
	var joined strings.Builder
	for _, text := range texts {
		lower := strings.ToLower(text)
		joined.WriteString(lower)
		joined.WriteByte(' ')
		for _, field := range strings.FieldsFunc(lower, func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
		}) {
			tokens[field] = struct{}{}
		}
	}
	full := joined.String()

	score := 1.0
	for _, group := range riskGroups {
		for _, kw := range group.keywords {
			hit := false
			if strings.ContainsRune(kw, ' ') {
				hit = strings.Contains(full, kw)
			} else {
				_, hit = tokens[kw]
			}
			if hit {
				score -= group.deduction
				break
			}
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// IsSafe applies the configured floor, defaulting to 0.5.
func (c *Checker) IsSafe(texts ...string) bool {
	floor := 0.5
	if c != nil && c.Floor > 0 {
		floor = c.Floor
	}
	return c.Score(texts...) >= floor
}
