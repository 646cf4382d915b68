package aggregator

// Similarity scores how likely two normalized token sets describe the same
// real-world topic, on a 0..1 scale.
type Similarity interface {
	Score(a, b []string) float64
}

// TokenSetSimilarity blends Jaccard overlap with containment, so a short
// label that is wholly contained in a longer one ("iphone 17" vs
// "apple iphone 17 launch event") still scores high.
type TokenSetSimilarity struct{}

func (TokenSetSimilarity) Score(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	inter := 0
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		if _, dup := setB[tok]; dup {
			continue
		}
		setB[tok] = struct{}{}
		if _, ok := setA[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	jaccard := float64(inter) / float64(union)

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	containment := float64(inter) / float64(smaller)

	// Containment alone is too eager for one-token overlaps; require the
	// smaller set to have some substance before trusting it.
	if smaller >= 2 && containment > jaccard {
		return jaccard + (containment-jaccard)*0.7
	}
	return jaccard
}
