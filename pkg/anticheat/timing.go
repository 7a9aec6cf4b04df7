package anticheat

import (
	"context"
	"fmt"

	"github.com/tryfairplay/arbiter/pkg/game"
)

// Thresholds for the timing detectors.
const (
	fastFractionThreshold = 0.7 // share of responses under the fast threshold
	uniformityCVThreshold = 0.3 // coefficient of variation implying bot-like cadence
	reactionThreshold     = 3.0 // seconds to a strategic event implying foreknowledge
	reactionMinSamples    = 3
)

// detectFastResponse flags bot-like play: a large share of responses
// under the fast threshold combined with unnaturally uniform timing.
// Either signal alone is normal for a quick player; together they are not.
func detectFastResponse(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorFastResponse}
	p := dc.Profile
	if p == nil || p.Samples < minProfileSamples {
		return ind
	}

	if p.DecisionConfidence > fastFractionThreshold && p.ResponseCV < uniformityCVThreshold {
		ind.Detected = true
		// Scale by how far past both thresholds the behavior sits.
		excess := (p.DecisionConfidence - fastFractionThreshold) / (1 - fastFractionThreshold)
		uniformity := 1 - p.ResponseCV/uniformityCVThreshold
		ind.Confidence = clamp01(0.5 + 0.25*excess + 0.25*uniformity)
		ind.Evidence = map[string]any{
			"fast_fraction": p.DecisionConfidence,
			"response_cv":   p.ResponseCV,
			"samples":       p.Samples,
		}
	}
	return ind
}

// detectSuspiciousReaction flags reflexive responses to strategic events.
// An event here is an elimination-shaped action by someone else (a kill,
// or the round's closing vote); reacting to several of those in under
// three seconds on average implies foreknowledge.
func detectSuspiciousReaction(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorSuspiciousReaction}

	var reactions []float64
	for i, a := range dc.Log {
		if a.ActorID == dc.PlayerID || !strategicEvent(dc.Log, i) {
			continue
		}
		for _, next := range dc.Log[i+1:] {
			if next.ActorID != dc.PlayerID {
				continue
			}
			d := next.Timestamp.Sub(a.Timestamp).Seconds()
			if d >= 0 {
				reactions = append(reactions, d)
			}
			break
		}
	}

	if len(reactions) < reactionMinSamples {
		return ind
	}
	avg := mean(reactions)
	if avg >= reactionThreshold {
		return ind
	}

	ind.Detected = true
	ind.Confidence = clamp01(1 - avg/reactionThreshold)
	ind.Evidence = map[string]any{
		"avg_reaction_seconds": avg,
		"samples":              len(reactions),
		"detail":               fmt.Sprintf("average reaction %.2fs across %d strategic events", avg, len(reactions)),
	}
	return ind
}

// strategicEvent reports whether log[i] is an elimination-shaped moment:
// a kill, or the last vote of its round.
func strategicEvent(log []game.Action, i int) bool {
	a := log[i]
	switch a.Type {
	case game.ActionKill:
		return true
	case game.ActionVote:
		for _, later := range log[i+1:] {
			if later.Type == game.ActionVote && later.Round == a.Round {
				return false
			}
		}
		return true
	}
	return false
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
