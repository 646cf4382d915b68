package scoring

import (
	"math"
	"testing"
	"time"

	"trendscout/internal/config"
	"trendscout/internal/models"
)

func testEngine() *Engine {
	return &Engine{Cfg: config.ScoringConfig{
		VolumeWeight:         0.25,
		VelocityWeight:       0.20,
		SustainabilityWeight: 0.35,
		BrandSafetyWeight:    0.20,
		MinTrendScore:        30,
		SafetyFloor:          0.5,
		WindowDays:           7,
		CollapseDropPct:      0.6,
	}}
}

func dayObs(day int, volume int64) models.Observation {
	return models.Observation{
		CycleDate: time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Volume:    volume,
	}
}

func TestScore_SteadyGrowthQualifies(t *testing.T) {
	e := testEngine()
	res := e.Score([]models.Observation{
		dayObs(1, 1000),
		dayObs(2, 1200),
	}, 800, 0.9)

	if res.Overall < e.Cfg.MinTrendScore {
		t.Fatalf("overall=%.2f want >= %.0f", res.Overall, e.Cfg.MinTrendScore)
	}
	if !res.IsRising {
		t.Fatalf("IsRising=false for growing volume")
	}
	if res.Sustainability == nil {
		t.Fatalf("sustainability nil with two observations")
	}
	if res.Collapsed {
		t.Fatalf("collapsed=true for a 20%% rise")
	}
	if math.Abs(res.Velocity-0.2) > 1e-9 {
		t.Fatalf("velocity=%.4f want 0.2", res.Velocity)
	}
}

func TestScore_SpikeCollapseDisqualifies(t *testing.T) {
	e := testEngine()
	res := e.Score([]models.Observation{
		dayObs(1, 5000),
		dayObs(2, 400),
	}, 800, 0.9)

	if !res.Collapsed {
		t.Fatalf("collapsed=false for a 92%% drop")
	}
	if res.Overall >= e.Cfg.MinTrendScore {
		t.Fatalf("overall=%.2f want < %.0f", res.Overall, e.Cfg.MinTrendScore)
	}
	if res.IsRising {
		t.Fatalf("IsRising=true for falling volume")
	}
}

func TestScore_SingleObservation(t *testing.T) {
	e := testEngine()
	res := e.Score([]models.Observation{dayObs(1, 3000)}, 800, 0.9)

	if res.Sustainability != nil {
		t.Fatalf("sustainability=%v want nil with one observation", *res.Sustainability)
	}
	if res.Velocity != 0 {
		t.Fatalf("velocity=%.4f want 0 with one observation", res.Velocity)
	}
	if res.IsRising {
		t.Fatalf("IsRising=true with one observation")
	}
}

func TestScore_SafetyFloor(t *testing.T) {
	e := testEngine()
	res := e.Score([]models.Observation{
		dayObs(1, 1000),
		dayObs(2, 1500),
	}, 800, 0.3)

	if res.IsBrandSafe {
		t.Fatalf("IsBrandSafe=true at safety 0.3 with floor 0.5")
	}
	if res.BrandSafety != 0.3 {
		t.Fatalf("brand safety=%.2f want 0.3", res.BrandSafety)
	}
}

func TestScore_SortsObservationsByDate(t *testing.T) {
	e := testEngine()
	// Latest cycle delivered first; the engine must still read 1200 as the
	// most recent volume.
	asGiven := e.Score([]models.Observation{
		dayObs(2, 1200),
		dayObs(1, 1000),
	}, 800, 0.9)
	sorted := e.Score([]models.Observation{
		dayObs(1, 1000),
		dayObs(2, 1200),
	}, 800, 0.9)

	if asGiven.Overall != sorted.Overall {
		t.Fatalf("order dependent score: %.4f vs %.4f", asGiven.Overall, sorted.Overall)
	}
	if asGiven.Velocity != sorted.Velocity {
		t.Fatalf("order dependent velocity: %.4f vs %.4f", asGiven.Velocity, sorted.Velocity)
	}
}

func TestVolumeScore_NoBaselineUsesAbsoluteScale(t *testing.T) {
	e := testEngine()
	withBaseline := e.volumeScore(1200, 800)
	noBaseline := e.volumeScore(1200, 0)

	if noBaseline <= 0 || noBaseline >= 1 {
		t.Fatalf("absolute volume score=%.4f want in (0,1)", noBaseline)
	}
	if withBaseline <= noBaseline {
		t.Fatalf("baseline score %.4f not above absolute score %.4f", withBaseline, noBaseline)
	}
	if e.volumeScore(0, 800) != 0 {
		t.Fatalf("zero volume should score 0")
	}
}

func TestVelocityScore_Clipping(t *testing.T) {
	e := testEngine()
	up := e.velocityScore([]models.Observation{dayObs(1, 100), dayObs(2, 1000)})
	if up != 1 {
		t.Fatalf("velocity=%.4f want clipped to 1", up)
	}
	down := e.velocityScore([]models.Observation{dayObs(1, 1000), dayObs(2, 0)})
	if down != -1 {
		t.Fatalf("velocity=%.4f want clipped to -1", down)
	}
}

func TestSustainability_WindowLimitsHistory(t *testing.T) {
	e := testEngine()
	e.Cfg.WindowDays = 3

	// The crash on day 2 falls outside a 3-day window ending day 6.
	obs := []models.Observation{
		dayObs(1, 5000),
		dayObs(2, 400),
		dayObs(4, 450),
		dayObs(5, 500),
		dayObs(6, 520),
	}
	sus, collapsed := e.sustainabilityScore(sortedCopy(obs))
	if collapsed {
		t.Fatalf("collapse outside the window still flagged")
	}
	if sus < 0.5 {
		t.Fatalf("sustainability=%.4f want >= 0.5 for steady recent window", sus)
	}
}

func sortedCopy(obs []models.Observation) []models.Observation {
	out := append([]models.Observation(nil), obs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CycleDate.Before(out[j-1].CycleDate); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
