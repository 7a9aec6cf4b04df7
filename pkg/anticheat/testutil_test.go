package anticheat

import (
	"fmt"
	"time"

	"github.com/tryfairplay/arbiter/pkg/game"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var actionSeq int

func at(offset time.Duration) time.Time { return t0.Add(offset) }

func act(actor string, t game.ActionType, round int, ts time.Time, p game.Payload) game.Action {
	actionSeq++
	return game.Action{
		ID:        fmt.Sprintf("a-%d", actionSeq),
		ActorID:   actor,
		Type:      t,
		Payload:   p,
		Timestamp: ts,
		Round:     round,
		Phase:     game.PhaseDay,
	}
}

func vote(actor, target string, round int, ts time.Time) game.Action {
	return act(actor, game.ActionVote, round, ts, game.Payload{TargetID: target})
}

func chat(actor, text string, round int, ts time.Time) game.Action {
	return act(actor, game.ActionChat, round, ts, game.Payload{Text: text})
}

func kill(actor, target string, round int, ts time.Time) game.Action {
	return act(actor, game.ActionKill, round, ts, game.Payload{TargetID: target})
}

func find(indicators []Indicator, t IndicatorType) Indicator {
	for _, ind := range indicators {
		if ind.Type == t {
			return ind
		}
	}
	return Indicator{Type: t}
}

// steadyProfile fabricates a profile with enough samples for every
// detector to engage.
func steadyProfile(playerID string) *Profile {
	return &Profile{
		PlayerID:            playerID,
		Samples:             10,
		MeanResponse:        8,
		ResponseVariance:    9,
		ResponseCV:          0.4,
		VotingConsistency:   0.9,
		CommFrequency:       12,
		DecisionConfidence:  0.2,
		RoleAdherence:       1,
		StrategicComplexity: 0.5,
		ActionRate:          1.5,
	}
}
