package aggregator

import (
	"strings"
	"unicode"
)

// stopwords are dropped when deriving trend keys so that phrasings like
// "the X announcement" and "X announcement" collapse to one identity.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "with": {}, "is": {}, "are": {},
	"was": {}, "be": {}, "as": {}, "by": {}, "from": {}, "this": {},
	"that": {}, "its": {}, "it": {}, "new": {}, "breaking": {},
}

// Tokens normalizes a raw label into its comparable token set: lowercased,
// punctuation stripped, stopwords removed, order preserved.
func Tokens(label string) []string {
	var sb strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}
	fields := strings.Fields(sb.String())
	out := make([]string, 0, len(fields))
	seen := map[string]struct{}{}
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// TrendKey derives the canonical identity key for a label. Labels whose
// normalized form is empty have no identity and must be dropped upstream.
func TrendKey(label string) string {
	return strings.Join(Tokens(label), "-")
}
