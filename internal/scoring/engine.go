package scoring

import (
	"math"
	"sort"

	"trendscout/internal/config"
	"trendscout/internal/models"
)

// Engine computes trend scores from observation history. Scoring is pure:
// the cycle coordinator loads observations and baselines, the engine only
// does arithmetic.
type Engine struct {
	Cfg config.ScoringConfig
}

// Result carries the component and overall scores for one trend.
// Sustainability stays nil until at least two observations exist; such
// trends never qualify for generation regardless of the overall score.
type Result struct {
	Overall        float64
	Volume         float64
	Velocity       float64
	Sustainability *float64
	BrandSafety    float64
	IsRising       bool
	IsBrandSafe    bool
	Collapsed      bool
}

// Score evaluates a trend from its observations (any order), the trailing
// average volume of its category and its brand safety score. The overall
// score is 0-100; component scores are 0-1 except velocity which is signed
// -1..1.
func (e *Engine) Score(observations []models.Observation, baselineAvg, safety float64) Result {
	obs := append([]models.Observation(nil), observations...)
	sort.Slice(obs, func(i, j int) bool {
		return obs[i].CycleDate.Before(obs[j].CycleDate)
	})

	res := Result{
		BrandSafety: clamp01(safety),
		IsBrandSafe: safety >= e.Cfg.SafetyFloor,
	}

	var latest int64
	if len(obs) > 0 {
		latest = obs[len(obs)-1].Volume
	}
	res.Volume = e.volumeScore(latest, baselineAvg)
	res.Velocity = e.velocityScore(obs)
	res.IsRising = res.Velocity > 0

	if len(obs) >= 2 {
		sus, collapsed := e.sustainabilityScore(obs)
		res.Sustainability = &sus
		res.Collapsed = collapsed
	}

	res.Overall = e.overall(res)
	return res
}

// volumeScore compares the latest volume against the category baseline on a
// log scale, saturating at ten times the baseline. Without a baseline an
// absolute scale is used so brand new categories still score.
func (e *Engine) volumeScore(volume int64, baselineAvg float64) float64 {
	if volume <= 0 {
		return 0
	}
	denom := math.Log1p(10 * baselineAvg)
	if baselineAvg <= 0 {
		denom = math.Log1p(100000)
	}
	if denom <= 0 {
		return 0
	}
	return clamp01(math.Log1p(float64(volume)) / denom)
}

// velocityScore is the relative volume change between the two most recent
// observations, clipped to -1..1. A single observation reads as flat.
func (e *Engine) velocityScore(obs []models.Observation) float64 {
	if len(obs) < 2 {
		return 0
	}
	prev := float64(obs[len(obs)-2].Volume)
	cur := float64(obs[len(obs)-1].Volume)
	denom := prev
	if denom < 1 {
		denom = 1
	}
	vel := (cur - prev) / denom
	if vel > 1 {
		return 1
	}
	if vel < -1 {
		return -1
	}
	return vel
}

// sustainabilityScore measures whether volume holds up across the recent
// window. Steadiness counts the share of cycle-over-cycle steps that kept at
// least 80% of the prior volume; growth rewards a positive log slope. A
// collapse (any step losing more than the configured drop share) caps the
// component hard and flags the trend.
func (e *Engine) sustainabilityScore(obs []models.Observation) (float64, bool) {
	window := e.Cfg.WindowDays
	if window <= 0 {
		window = 7
	}
	if len(obs) > window {
		obs = obs[len(obs)-window:]
	}

	dropFloor := 1 - e.Cfg.CollapseDropPct
	if e.Cfg.CollapseDropPct <= 0 {
		dropFloor = 0.4
	}

	steps := len(obs) - 1
	steady := 0
	slopeSum := 0.0
	collapsed := false
	for i := 1; i < len(obs); i++ {
		prev := float64(obs[i-1].Volume)
		cur := float64(obs[i].Volume)
		if prev < 1 {
			prev = 1
		}
		if cur < 1 {
			cur = 1
		}
		ratio := cur / prev
		if ratio >= 0.8 {
			steady++
		}
		if ratio < dropFloor {
			collapsed = true
		}
		slopeSum += math.Log(ratio)
	}

	steadiness := float64(steady) / float64(steps)
	growth := clamp01(0.5 + slopeSum/float64(steps))
	score := 0.6*steadiness + 0.4*growth
	if collapsed {
		score *= 0.2
	}
	return clamp01(score), collapsed
}

// overall combines the components into the 0-100 trend score. Velocity is
// mapped from -1..1 onto 0..1 first. With no sustainability component yet,
// the remaining weights are renormalized. A collapsed trend keeps only a
// fraction of its combined score so spike-and-crash topics fall out of the
// qualified set.
func (e *Engine) overall(res Result) float64 {
	velNorm := (res.Velocity + 1) / 2

	wVol := e.Cfg.VolumeWeight
	wVel := e.Cfg.VelocityWeight
	wSus := e.Cfg.SustainabilityWeight
	wSaf := e.Cfg.BrandSafetyWeight

	sum := wVol*res.Volume + wVel*velNorm + wSaf*res.BrandSafety
	weight := wVol + wVel + wSaf
	if res.Sustainability != nil {
		sum += wSus * *res.Sustainability
		weight += wSus
	}
	if weight <= 0 {
		return 0
	}
	score := 100 * sum / weight
	if res.Collapsed {
		score *= 0.3
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
