package aggregator

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"trendscout/internal/category"
	"trendscout/internal/models"
	"trendscout/internal/repository"
)

// Aggregator resolves raw per-source signals into canonical trends and
// writes one observation per trend per cycle. Ingest is idempotent for a
// given cycle date: re-running it overwrites the same observation rows
// instead of stacking new ones.
type Aggregator struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Sim    Similarity

	// Classifier reassigns a new trend's category from its content; when it
	// has no opinion the best signal's source category stands.
	Classifier category.Classifier

	// Cutoff is the minimum similarity for merging a new label into an
	// existing trend.
	Cutoff float64

	// MaxPerSource caps how many deduped signals a single source may
	// contribute to one cycle; zero means unlimited.
	MaxPerSource int

	mu sync.Mutex
}

type Result struct {
	SignalsIn      int
	SignalsDropped int
	TrendsCreated  int
	TrendsUpdated  int
}

const maxSourceURLs = 20

func (a *Aggregator) Ingest(ctx context.Context, cycleDate time.Time, signals []models.Signal) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := Result{SignalsIn: len(signals)}

	groups := a.groupSignals(signals, &res)
	if len(groups) == 0 {
		return res, nil
	}

	existing, err := a.Repo.ListActiveTrends(ctx)
	if err != nil {
		return res, err
	}
	index := newTrendIndex(existing)

	// Deterministic processing order keeps merges stable across runs.
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		trend, created, err := a.resolveTrend(ctx, index, key, group)
		if err != nil {
			return res, err
		}
		if created {
			res.TrendsCreated++
		} else {
			res.TrendsUpdated++
		}
		if err := a.writeObservation(ctx, trend, cycleDate, group); err != nil {
			return res, err
		}
	}
	return res, nil
}

type signalGroup struct {
	tokens  []string
	signals []models.Signal
}

// groupSignals drops malformed signals, dedups within each source by
// identity keeping the highest-volume copy, then groups across sources by
// trend key.
func (a *Aggregator) groupSignals(signals []models.Signal, res *Result) map[string]*signalGroup {
	bySourceKey := map[string]models.Signal{}
	for _, sig := range signals {
		key := TrendKey(sig.RawLabel)
		if key == "" || sig.SourceID == "" || sig.ObservedAt.IsZero() || sig.RawVolume < 0 {
			res.SignalsDropped++
			if a.Logger != nil {
				a.Logger.Debug("dropping malformed signal",
					zap.String("source", sig.SourceID),
					zap.String("label", sig.RawLabel))
			}
			continue
		}
		dedupKey := sig.SourceID + "\x00" + key
		if prev, ok := bySourceKey[dedupKey]; ok {
			res.SignalsDropped++
			if prev.RawVolume >= sig.RawVolume {
				continue
			}
		}
		bySourceKey[dedupKey] = sig
	}
	bySourceKey = a.capPerSource(bySourceKey, res)

	groups := map[string]*signalGroup{}
	for dedupKey, sig := range bySourceKey {
		key := dedupKey[strings.IndexByte(dedupKey, '\x00')+1:]
		group, ok := groups[key]
		if !ok {
			group = &signalGroup{tokens: Tokens(sig.RawLabel)}
			groups[key] = group
		}
		group.signals = append(group.signals, sig)
	}
	return groups
}

// capPerSource keeps each source's highest-volume signals so one noisy
// source cannot flood a cycle.
func (a *Aggregator) capPerSource(bySourceKey map[string]models.Signal, res *Result) map[string]models.Signal {
	if a.MaxPerSource <= 0 {
		return bySourceKey
	}
	bySource := map[string][]string{}
	for dedupKey, sig := range bySourceKey {
		bySource[sig.SourceID] = append(bySource[sig.SourceID], dedupKey)
	}
	for _, keys := range bySource {
		if len(keys) <= a.MaxPerSource {
			continue
		}
		sort.Slice(keys, func(i, j int) bool {
			si, sj := bySourceKey[keys[i]], bySourceKey[keys[j]]
			if si.RawVolume != sj.RawVolume {
				return si.RawVolume > sj.RawVolume
			}
			return keys[i] < keys[j]
		})
		for _, key := range keys[a.MaxPerSource:] {
			delete(bySourceKey, key)
			res.SignalsDropped++
		}
	}
	return bySourceKey
}

func (a *Aggregator) resolveTrend(ctx context.Context, index *trendIndex, key string, group *signalGroup) (*models.Trend, bool, error) {
	best := group.signals[0]
	for _, sig := range group.signals[1:] {
		if sig.RawVolume > best.RawVolume {
			best = sig
		}
	}
	lastSeen := maxObservedAt(group.signals)

	trend := index.match(key, group.tokens, a.Sim, a.Cutoff)
	if trend == nil {
		trend = &models.Trend{
			ID:          uuid.New(),
			TrendKey:    key,
			Title:       best.RawLabel,
			Description: best.Description,
			Category:    a.categorize(ctx, best, group),
			Platforms:   toJSONArray(sourceIDs(group.signals)),
			Keywords:    toJSONArray(collectKeywords(group.signals)),
			SourceURLs:  toJSONArray(collectURLs(group.signals)),
			Status:      models.TrendStatusActive,
			IsBrandSafe: true,
			FirstSeenAt: lastSeen,
			LastSeenAt:  lastSeen,
		}
		if err := a.Repo.CreateTrend(ctx, trend); err != nil {
			return nil, false, err
		}
		index.add(trend)
		return trend, true, nil
	}

	trend.Platforms = unionJSONArray(trend.Platforms, sourceIDs(group.signals), 0)
	trend.Keywords = unionJSONArray(trend.Keywords, collectKeywords(group.signals), 0)
	trend.SourceURLs = unionJSONArray(trend.SourceURLs, collectURLs(group.signals), maxSourceURLs)
	if trend.Description == "" {
		trend.Description = best.Description
	}
	if lastSeen.After(trend.LastSeenAt) {
		trend.LastSeenAt = lastSeen
	}
	if err := a.Repo.UpdateTrend(ctx, trend); err != nil {
		return nil, false, err
	}
	return trend, false, nil
}

func (a *Aggregator) categorize(ctx context.Context, best models.Signal, group *signalGroup) string {
	if a.Classifier == nil {
		return best.Category
	}
	got, err := a.Classifier.Classify(ctx, best.RawLabel, best.Description, collectKeywords(group.signals))
	if err != nil || got == "" {
		return best.Category
	}
	return got
}

func (a *Aggregator) writeObservation(ctx context.Context, trend *models.Trend, cycleDate time.Time, group *signalGroup) error {
	var volume int64
	breakdown := map[string]int64{}
	weightedVel := 0.0
	for _, sig := range group.signals {
		volume += sig.RawVolume
		breakdown[sig.SourceID] += sig.RawVolume
		weightedVel += sig.RawVelocity * float64(sig.RawVolume)
	}
	velocity := 0.0
	if volume > 0 {
		velocity = weightedVel / float64(volume)
	}
	raw, _ := json.Marshal(breakdown)
	return a.Repo.UpsertObservation(ctx, &models.Observation{
		TrendID:           trend.ID,
		CycleDate:         cycleDate,
		Volume:            volume,
		Velocity:          velocity,
		PlatformBreakdown: datatypes.JSON(raw),
	})
}

// trendIndex holds the cycle's view of active trends for identity matching.
// Each trend is matched on its key tokens plus the keywords it accumulated
// from earlier merges, so alternate phrasings keep attracting new signals.
type trendIndex struct {
	byKey  map[string]*models.Trend
	trends []*models.Trend
	tokens [][]string
}

func newTrendIndex(existing []models.Trend) *trendIndex {
	idx := &trendIndex{byKey: make(map[string]*models.Trend, len(existing))}
	for i := range existing {
		idx.add(&existing[i])
	}
	return idx
}

func (idx *trendIndex) add(trend *models.Trend) {
	idx.byKey[trend.TrendKey] = trend
	idx.trends = append(idx.trends, trend)
	idx.tokens = append(idx.tokens, matchTokens(trend))
}

func matchTokens(trend *models.Trend) []string {
	tokens := strings.Split(trend.TrendKey, "-")
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		seen[tok] = struct{}{}
	}
	var keywords []string
	if len(trend.Keywords) > 0 {
		_ = json.Unmarshal(trend.Keywords, &keywords)
	}
	for _, kw := range keywords {
		for _, tok := range Tokens(kw) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// match resolves by exact key first, then by best similarity above the
// cutoff. Ties on similarity go to the most recently seen trend.
func (idx *trendIndex) match(key string, tokens []string, sim Similarity, cutoff float64) *models.Trend {
	if trend, ok := idx.byKey[key]; ok {
		return trend
	}
	if sim == nil || cutoff <= 0 {
		return nil
	}
	var best *models.Trend
	bestScore := 0.0
	for i, trend := range idx.trends {
		score := sim.Score(tokens, idx.tokens[i])
		if score < cutoff || score < bestScore {
			continue
		}
		if score == bestScore && best != nil && !trend.LastSeenAt.After(best.LastSeenAt) {
			continue
		}
		best = trend
		bestScore = score
	}
	return best
}

func maxObservedAt(signals []models.Signal) time.Time {
	var out time.Time
	for _, sig := range signals {
		if sig.ObservedAt.After(out) {
			out = sig.ObservedAt
		}
	}
	return out
}

func sourceIDs(signals []models.Signal) []string {
	out := make([]string, 0, len(signals))
	seen := map[string]struct{}{}
	for _, sig := range signals {
		if _, dup := seen[sig.SourceID]; dup {
			continue
		}
		seen[sig.SourceID] = struct{}{}
		out = append(out, sig.SourceID)
	}
	sort.Strings(out)
	return out
}

func collectKeywords(signals []models.Signal) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, sig := range signals {
		for _, kw := range sig.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}

func collectURLs(signals []models.Signal) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, sig := range signals {
		for _, u := range sig.URLs {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func toJSONArray(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}

func unionJSONArray(existing datatypes.JSON, add []string, limit int) datatypes.JSON {
	var current []string
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &current)
	}
	seen := map[string]struct{}{}
	for _, item := range current {
		seen[item] = struct{}{}
	}
	for _, item := range add {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		current = append(current, item)
	}
	if limit > 0 && len(current) > limit {
		current = current[len(current)-limit:]
	}
	return toJSONArray(current)
}
