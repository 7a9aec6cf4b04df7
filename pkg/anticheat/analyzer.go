package anticheat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tryfairplay/arbiter/pkg/game"
)

// SessionSource is the slice of the game side the analyzer needs: an
// immutable log snapshot plus a read-only session view. *game.Manager
// satisfies it.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (*game.Session, error)
	SnapshotLog(ctx context.Context, sessionID string) ([]game.Action, error)
}

// Analyzer wires profile building, the detector battery, and aggregation
// into the one inbound operation the API layer calls. It reads game
// state, never writes it.
type Analyzer struct {
	source    SessionSource
	registry  *Registry
	baselines BaselineStore // optional
	anomaly   *AnomalyIndex // optional
	voteWin   float64
	now       func() time.Time
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithBaselineStore enables play-style comparison and baseline updates.
func WithBaselineStore(s BaselineStore) AnalyzerOption {
	return func(a *Analyzer) { a.baselines = s }
}

// WithAnomalyIndex enables the statistical outlier detector.
func WithAnomalyIndex(idx *AnomalyIndex) AnalyzerOption {
	return func(a *Analyzer) { a.anomaly = idx }
}

// WithVoteWindow overrides the vote coordination window in seconds.
func WithVoteWindow(seconds float64) AnalyzerOption {
	return func(a *Analyzer) { a.voteWin = seconds }
}

// WithClock overrides time for tests.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer builds an analyzer around a session source and a detector
// registry.
func NewAnalyzer(source SessionSource, registry *Registry, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		source:   source,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SessionPlayers lists the player IDs of a session, for callers that
// sweep a whole session through AnalyzePlayer.
func (a *Analyzer) SessionPlayers(ctx context.Context, sessionID string) ([]string, error) {
	s, err := a.source.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// AnalyzePlayer produces a cheat-detection verdict for one player in one
// session. The analysis runs entirely on snapshots and never blocks the
// session's write path.
func (a *Analyzer) AnalyzePlayer(ctx context.Context, sessionID, playerID string) (*Result, error) {
	s, err := a.source.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	player := s.PlayerByID(playerID)
	if player == nil {
		return nil, fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
	}
	actions, err := a.source.SnapshotLog(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	profile := BuildProfile(playerID, actions)
	baseline := a.loadBaseline(ctx, playerID)

	dc := &Context{
		SessionID:  sessionID,
		PlayerID:   playerID,
		Role:       player.Role,
		Profile:    profile,
		Baseline:   baseline,
		Log:        actions,
		Anomaly:    a.anomaly,
		Now:        a.now(),
		VoteWindow: a.voteWin,
	}
	indicators := a.registry.Run(ctx, dc)

	result := a.registry.Aggregate(AggregateInput{
		PlayerID:    playerID,
		SessionID:   sessionID,
		Indicators:  indicators,
		HasBaseline: baseline != nil,
		Complexity:  profile.StrategicComplexity,
		Now:         dc.Now,
	})

	a.record(ctx, sessionID, profile)
	return result, nil
}

func (a *Analyzer) loadBaseline(ctx context.Context, playerID string) *Profile {
	if a.baselines == nil {
		return nil
	}
	base, err := a.baselines.LoadBaseline(ctx, playerID)
	if err != nil {
		// Missing history is the common case for new players; anything
		// else is worth a line in the log but never fails the analysis.
		if !errors.Is(err, game.ErrNotFound) {
			log.Printf("[WARN] load baseline player_id=%s: %v", playerID, err)
		}
		return nil
	}
	return base
}

// record feeds the fresh observation back into history. Profiles below
// the sample floor are skipped; they would only add noise.
func (a *Analyzer) record(ctx context.Context, sessionID string, p *Profile) {
	if p.Samples < minProfileSamples {
		return
	}
	if a.baselines != nil {
		if err := a.baselines.SaveBaseline(ctx, p.PlayerID, p); err != nil {
			log.Printf("[WARN] save baseline player_id=%s: %v", p.PlayerID, err)
		}
	}
	if a.anomaly != nil {
		id := sessionID + ":" + p.PlayerID
		if err := a.anomaly.Add(ctx, id, p); err != nil {
			log.Printf("[WARN] index profile player_id=%s: %v", p.PlayerID, err)
		}
	}
}
