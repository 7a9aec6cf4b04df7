package anticheat

import (
	"math"

	"github.com/tryfairplay/arbiter/pkg/game"
)

// minProfileSamples is the floor below which statistics degrade to safe
// defaults instead of being computed from noise.
const minProfileSamples = 5

// fastResponseThreshold separates deliberate play from reflexive or
// scripted responses, in seconds.
const fastResponseThreshold = 2.0

// Profile is a derived statistical view of one player's behavior in one
// session. It is ephemeral: recomputed per analysis request and never
// treated as authoritative state.
type Profile struct {
	PlayerID string `json:"player_id"`
	Samples  int    `json:"samples"`

	// Response latency in seconds, measured from the previous action in
	// the session log to the player's own next action.
	MeanResponse     float64 `json:"mean_response"`
	ResponseVariance float64 `json:"response_variance"`
	ResponseCV       float64 `json:"response_cv"`

	// VotingConsistency is 1 minus the fraction of votes the player
	// changed within a round.
	VotingConsistency float64 `json:"voting_consistency"`

	// CommFrequency is chat messages per elapsed hour.
	CommFrequency float64 `json:"comm_frequency"`

	// DecisionConfidence is the fraction of responses under the fast
	// threshold.
	DecisionConfidence float64 `json:"decision_confidence"`

	// RoleAdherence stays 1.0 for logged actions since the processor
	// rejects role-illegal moves before they reach the log. It is kept
	// as a feature dimension for baselines imported from elsewhere.
	RoleAdherence float64 `json:"role_adherence"`

	// StrategicComplexity measures action-type diversity, 0 to 1.
	StrategicComplexity float64 `json:"strategic_complexity"`

	// ActionRate is actions per minute over the log span.
	ActionRate float64 `json:"action_rate"`
}

// BuildProfile aggregates the session log into a statistical profile for
// one player. Sparse logs degrade to defaults: zero timing stats, full
// consistency and adherence, zero confidence.
func BuildProfile(playerID string, log []game.Action) *Profile {
	p := &Profile{
		PlayerID:          playerID,
		VotingConsistency: 1.0,
		RoleAdherence:     1.0,
	}
	if len(log) == 0 {
		return p
	}

	var (
		latencies   []float64
		chatCount   int
		ownCount    int
		voteCount   int
		voteChanges int
		lastVote    = map[int]string{} // round -> last target
		typesSeen   = map[game.ActionType]bool{}
	)

	for i, a := range log {
		if a.ActorID != playerID {
			continue
		}
		ownCount++
		if i > 0 {
			d := a.Timestamp.Sub(log[i-1].Timestamp).Seconds()
			if d >= 0 {
				latencies = append(latencies, d)
			}
		}
		switch a.Type {
		case game.ActionChat:
			chatCount++
		case game.ActionVote:
			voteCount++
			if prev, ok := lastVote[a.Round]; ok && prev != a.Payload.TargetID {
				voteChanges++
			}
			lastVote[a.Round] = a.Payload.TargetID
		}
		if a.Type != game.ActionChat {
			typesSeen[a.Type] = true
		}
	}

	p.Samples = len(latencies)
	if p.Samples >= minProfileSamples {
		p.MeanResponse = mean(latencies)
		p.ResponseVariance = variance(latencies, p.MeanResponse)
		if p.MeanResponse > 0 {
			p.ResponseCV = math.Sqrt(p.ResponseVariance) / p.MeanResponse
		}
		fast := 0
		for _, d := range latencies {
			if d < fastResponseThreshold {
				fast++
			}
		}
		p.DecisionConfidence = float64(fast) / float64(p.Samples)
	}

	if voteCount > 0 {
		p.VotingConsistency = 1.0 - float64(voteChanges)/float64(voteCount)
	}

	elapsed := log[len(log)-1].Timestamp.Sub(log[0].Timestamp)
	hours := elapsed.Hours()
	if hours < 1.0/60 {
		hours = 1.0 / 60
	}
	p.CommFrequency = float64(chatCount) / hours

	if ownCount > 0 {
		minutes := elapsed.Minutes()
		if minutes < 1 {
			minutes = 1
		}
		p.ActionRate = float64(ownCount) / minutes
	}

	// Four non-chat action types is the effective ceiling per game mode.
	p.StrategicComplexity = float64(len(typesSeen)) / 4.0
	if p.StrategicComplexity > 1 {
		p.StrategicComplexity = 1
	}
	return p
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}
