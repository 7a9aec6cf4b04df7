// Package anticheat performs behavioral cheat detection over a session's
// action log. It is strictly read-only with respect to game state: the
// engine never consults detection output, and detection never mutates
// game truth. Verdicts are advisory and enforcement is the caller's call.
package anticheat

import (
	"time"

	"github.com/tryfairplay/arbiter/pkg/game"
)

// IndicatorType names one detection signal.
type IndicatorType string

const (
	IndicatorFastResponse       IndicatorType = "consistent_fast_response"
	IndicatorSuspiciousReaction IndicatorType = "suspicious_reaction"
	IndicatorVoteCoordination   IndicatorType = "vote_coordination"
	IndicatorKnowledgeLeakage   IndicatorType = "knowledge_leakage"
	IndicatorCoordinatedActions IndicatorType = "coordinated_actions"
	IndicatorStatisticalAnomaly IndicatorType = "statistical_anomaly"
	IndicatorPlayStyle          IndicatorType = "play_style_inconsistency"

	// Extension points. Conservative for now: they report only the most
	// clear-cut cases and otherwise stay silent.
	IndicatorBandwagon      IndicatorType = "bandwagon_following"
	IndicatorVoteTimingSync IndicatorType = "vote_timing_sync"
	IndicatorRoleMismatch   IndicatorType = "role_performance_mismatch"
)

// Indicator is one detector's verdict. Confidence is meaningful only
// when Detected is true; undetected indicators carry confidence 0.
type Indicator struct {
	Type       IndicatorType  `json:"type"`
	Detected   bool           `json:"detected"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence,omitempty"`
}

// RecommendedAction is one rung of the enforcement ladder. The engine
// never applies these itself.
type RecommendedAction string

const (
	ActionNone        RecommendedAction = "no_action"
	ActionWarning     RecommendedAction = "warning"
	ActionMonitor     RecommendedAction = "close_monitoring"
	ActionRestrict    RecommendedAction = "temporary_restriction"
	ActionGameTimeout RecommendedAction = "game_timeout"
	ActionRemove      RecommendedAction = "remove_from_game"
)

// Result is the full verdict for one player in one session.
type Result struct {
	PlayerID      string            `json:"player_id"`
	SessionID     string            `json:"session_id"`
	Indicators    []Indicator       `json:"indicators"`
	Probability   float64           `json:"probability"`
	Action        RecommendedAction `json:"recommended_action"`
	Severity      int               `json:"severity"`
	FalsePositive float64           `json:"false_positive_estimate"`
	AnalyzedAt    time.Time         `json:"analyzed_at"`
}

// Context is the immutable input to one detector run. Everything here is
// a snapshot: detectors hold no locks and share no mutable state.
type Context struct {
	SessionID string
	PlayerID  string
	Role      game.Role

	Profile  *Profile
	Baseline *Profile // nil when no history is stored for the player
	Log      []game.Action

	Anomaly *AnomalyIndex // nil disables the statistical detector
	Now     time.Time

	// VoteWindow overrides the vote coordination window in seconds.
	// Zero keeps the built-in default.
	VoteWindow float64
}
