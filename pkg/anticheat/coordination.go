package anticheat

import (
	"context"
	"math"

	"github.com/tryfairplay/arbiter/pkg/game"
)

const (
	voteCoordWindow     = 5.0 // seconds between matching votes
	voteCoordStrength   = 0.3 // minimum average coordination strength
	voteCoordRoundShare = 0.5 // minimum share of rounds showing coordination

	coordActionWindow = 10.0 // seconds, either side
	coordActionOthers = 2    // distinct other actors required per occurrence
	coordActionShare  = 0.3  // share of subject actions that must co-occur
)

// detectVoteCoordination flags paired voting: the subject and another
// player repeatedly voting for the same target within a short window,
// round after round.
func detectVoteCoordination(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorVoteCoordination}

	// Subject votes grouped by round, with the other votes kept for the
	// window comparison.
	type roundVotes struct {
		own    []game.Action
		others []game.Action
	}
	rounds := map[int]*roundVotes{}
	for _, a := range dc.Log {
		if a.Type != game.ActionVote {
			continue
		}
		rv := rounds[a.Round]
		if rv == nil {
			rv = &roundVotes{}
			rounds[a.Round] = rv
		}
		if a.ActorID == dc.PlayerID {
			rv.own = append(rv.own, a)
		} else {
			rv.others = append(rv.others, a)
		}
	}

	window := dc.VoteWindow
	if window <= 0 {
		window = voteCoordWindow
	}

	votedRounds, coordRounds := 0, 0
	strengthSum := 0.0
	partners := map[string]int{}

	for _, rv := range rounds {
		if len(rv.own) == 0 {
			continue
		}
		votedRounds++
		coordinated := 0
		for _, own := range rv.own {
			for _, other := range rv.others {
				if other.Payload.TargetID != own.Payload.TargetID {
					continue
				}
				if math.Abs(other.Timestamp.Sub(own.Timestamp).Seconds()) <= window {
					coordinated++
					partners[other.ActorID]++
					break
				}
			}
		}
		if coordinated > 0 {
			coordRounds++
			strengthSum += float64(coordinated) / float64(len(rv.own))
		}
	}

	if votedRounds == 0 {
		return ind
	}
	avgStrength := strengthSum / float64(votedRounds)
	roundShare := float64(coordRounds) / float64(votedRounds)
	if avgStrength <= voteCoordStrength || roundShare <= voteCoordRoundShare {
		return ind
	}

	ind.Detected = true
	ind.Confidence = clamp01(avgStrength * roundShare)
	ind.Evidence = map[string]any{
		"avg_strength":      avgStrength,
		"coordinated_share": roundShare,
		"rounds_voted":      votedRounds,
		"partners":          partners,
	}
	return ind
}

// detectCoordinatedActions flags lockstep play beyond voting: multiple
// other players performing the same action type within a ten-second
// window of the subject's action, for a large share of the subject's
// actions.
func detectCoordinatedActions(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorCoordinatedActions}

	var own []game.Action
	for _, a := range dc.Log {
		if a.ActorID == dc.PlayerID && a.Type != game.ActionChat {
			own = append(own, a)
		}
	}
	if len(own) == 0 {
		return ind
	}

	occurrences := 0
	for _, mine := range own {
		actors := map[string]bool{}
		for _, other := range dc.Log {
			if other.ActorID == dc.PlayerID || other.Type != mine.Type {
				continue
			}
			if math.Abs(other.Timestamp.Sub(mine.Timestamp).Seconds()) <= coordActionWindow {
				actors[other.ActorID] = true
			}
		}
		if len(actors) >= coordActionOthers {
			occurrences++
		}
	}

	share := float64(occurrences) / float64(len(own))
	if share <= coordActionShare {
		return ind
	}

	ind.Detected = true
	ind.Confidence = clamp01(share)
	ind.Evidence = map[string]any{
		"lockstep_share": share,
		"occurrences":    occurrences,
		"actions":        len(own),
	}
	return ind
}

// detectBandwagon is an extension point. It reports only the clearest
// case: the subject always voting for a target that already held votes,
// never first. Anything subtler stays undetected for now.
func detectBandwagon(_ context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorBandwagon}

	votes, trailing := 0, 0
	seen := map[int]map[string]bool{} // round -> targets already voted for
	for _, a := range dc.Log {
		if a.Type != game.ActionVote {
			continue
		}
		if seen[a.Round] == nil {
			seen[a.Round] = map[string]bool{}
		}
		if a.ActorID == dc.PlayerID {
			votes++
			if seen[a.Round][a.Payload.TargetID] {
				trailing++
			}
		}
		seen[a.Round][a.Payload.TargetID] = true
	}

	if votes < minProfileSamples || trailing != votes {
		return ind
	}
	ind.Detected = true
	ind.Confidence = 0.3
	ind.Evidence = map[string]any{"trailing_votes": trailing, "votes": votes}
	return ind
}

// detectVoteTimingSync is an extension point; conservative no-op.
func detectVoteTimingSync(context.Context, *Context) Indicator {
	return Indicator{Type: IndicatorVoteTimingSync}
}

// detectRoleMismatch is an extension point; conservative no-op.
func detectRoleMismatch(context.Context, *Context) Indicator {
	return Indicator{Type: IndicatorRoleMismatch}
}
