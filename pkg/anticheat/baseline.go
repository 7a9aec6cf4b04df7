package anticheat

import (
	"context"
	"math"
)

// BaselineStore persists per-player historical profiles across sessions.
// Implementations live in pkg/store; the analyzer treats a missing
// baseline as "no history", never as an error.
type BaselineStore interface {
	SaveBaseline(ctx context.Context, playerID string, p *Profile) error
	LoadBaseline(ctx context.Context, playerID string) (*Profile, error)
}

// Divergence thresholds for play-style comparison.
const (
	responseDivergence   = 0.5 // relative change in mean response time
	commDivergence       = 0.4 // relative change in communication frequency
	complexityDivergence = 0.3 // absolute change in strategic complexity
	divergenceQuorum     = 2   // dimensions that must diverge together
)

// detectPlayStyleInconsistency compares the current profile with the
// player's stored baseline. One dimension drifting is mood; two or more
// drifting together suggests a different person (or script) at the keys.
func detectPlayStyleInconsistency(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorPlayStyle}
	p, base := dc.Profile, dc.Baseline
	if p == nil || base == nil || p.Samples < minProfileSamples || base.Samples < minProfileSamples {
		return ind
	}

	divergent := map[string]float64{}

	if d := relativeChange(p.MeanResponse, base.MeanResponse); d > responseDivergence {
		divergent["response_time"] = d
	}
	if d := relativeChange(p.CommFrequency, base.CommFrequency); d > commDivergence {
		divergent["comm_frequency"] = d
	}
	if d := math.Abs(p.StrategicComplexity - base.StrategicComplexity); d > complexityDivergence {
		divergent["strategic_complexity"] = d
	}

	if len(divergent) < divergenceQuorum {
		return ind
	}
	ind.Detected = true
	ind.Confidence = clamp01(float64(len(divergent)) / 3.0)
	ind.Evidence = map[string]any{"divergent": divergent}
	return ind
}

func relativeChange(cur, base float64) float64 {
	if base == 0 {
		if cur == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(cur-base) / math.Abs(base)
}
