package anticheat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tryfairplay/arbiter/pkg/game"
)

type fakeSource struct {
	session *game.Session
	log     []game.Action
}

func (f *fakeSource) GetSession(_ context.Context, id string) (*game.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, game.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeSource) SnapshotLog(_ context.Context, id string) ([]game.Action, error) {
	if f.session == nil || f.session.ID != id {
		return nil, game.ErrNotFound
	}
	return f.log, nil
}

type memBaselines struct {
	mu   sync.Mutex
	data map[string]*Profile
}

func (m *memBaselines) SaveBaseline(_ context.Context, playerID string, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]*Profile{}
	}
	m.data[playerID] = p
	return nil
}

func (m *memBaselines) LoadBaseline(_ context.Context, playerID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.data[playerID]; ok {
		return p, nil
	}
	return nil, game.ErrNotFound
}

func sessionWith(players ...*game.Player) *game.Session {
	return &game.Session{
		ID:      "s1",
		Type:    game.GameSocialDeduction,
		Status:  game.StatusActive,
		Players: players,
	}
}

func TestAnalyzePlayerUnknownSessionAndPlayer(t *testing.T) {
	src := &fakeSource{session: sessionWith(&game.Player{ID: "p1", Role: game.RoleCivilian})}
	a := NewAnalyzer(src, NewRegistry())

	if _, err := a.AnalyzePlayer(context.Background(), "missing", "p1"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("missing session: err = %v", err)
	}
	if _, err := a.AnalyzePlayer(context.Background(), "s1", "ghost"); !errors.Is(err, game.ErrUnknownPlayer) {
		t.Errorf("missing player: err = %v", err)
	}
}

func TestAnalyzePlayerQuietLog(t *testing.T) {
	src := &fakeSource{
		session: sessionWith(&game.Player{ID: "p1", Role: game.RoleCivilian}),
		log:     []game.Action{chat("p1", "good morning", 1, t0)},
	}
	a := NewAnalyzer(src, NewRegistry())

	res, err := a.AnalyzePlayer(context.Background(), "s1", "p1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Probability != 0 || res.Action != ActionNone {
		t.Fatalf("quiet log scored %+v", res)
	}
	if res.PlayerID != "p1" || res.SessionID != "s1" {
		t.Errorf("identity fields wrong: %+v", res)
	}
	// Fresh player, no stored history.
	if res.FalsePositive < 0.4 {
		t.Errorf("false-positive estimate %.2f missing the no-baseline factor", res.FalsePositive)
	}
}

func TestAnalyzePlayerFlagsLeakyCivilian(t *testing.T) {
	src := &fakeSource{
		session: sessionWith(
			&game.Player{ID: "p1", Role: game.RoleCivilian},
			&game.Player{ID: "p2", Role: game.RoleMafia},
		),
		log: []game.Action{
			chat("p1", "our team should kill the detective tonight", 1, at(0)),
		},
	}
	a := NewAnalyzer(src, NewRegistry())

	res, err := a.AnalyzePlayer(context.Background(), "s1", "p1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	leak := find(res.Indicators, IndicatorKnowledgeLeakage)
	if !leak.Detected {
		t.Fatal("knowledge leak not in the verdict")
	}
	if res.Probability < 0.9 {
		t.Errorf("probability = %.2f, want >= 0.9 for a pure leak verdict", res.Probability)
	}
	if res.Action != ActionRemove || res.Severity != 5 {
		t.Errorf("recommendation = %s/%d, want remove_from_game/5", res.Action, res.Severity)
	}
}

func TestAnalyzePlayerRecordsBaseline(t *testing.T) {
	var log []game.Action
	ts := t0
	for i := 0; i < 8; i++ {
		log = append(log, chat("other", "event", 1, ts))
		ts = ts.Add(4 * time.Second)
		log = append(log, chat("p1", "reply", 1, ts))
		ts = ts.Add(time.Minute)
	}
	src := &fakeSource{
		session: sessionWith(&game.Player{ID: "p1", Role: game.RoleCivilian}),
		log:     log,
	}
	baselines := &memBaselines{}
	a := NewAnalyzer(src, NewRegistry(), WithBaselineStore(baselines))

	if _, err := a.AnalyzePlayer(context.Background(), "s1", "p1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	stored, err := baselines.LoadBaseline(context.Background(), "p1")
	if err != nil {
		t.Fatalf("baseline not stored: %v", err)
	}
	if stored.Samples < minProfileSamples {
		t.Errorf("stored baseline has %d samples", stored.Samples)
	}

	// Second run now sees history; false-positive estimate drops.
	res, err := a.AnalyzePlayer(context.Background(), "s1", "p1")
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if res.FalsePositive >= 0.4 {
		t.Errorf("estimate %.2f still carries the no-baseline factor", res.FalsePositive)
	}
}

func TestAnalyzePlayerNeverMutatesGameState(t *testing.T) {
	session := sessionWith(&game.Player{ID: "p1", Role: game.RoleCivilian, Status: game.PlayerAlive})
	src := &fakeSource{
		session: session,
		log:     []game.Action{chat("p1", "hello", 1, t0)},
	}
	a := NewAnalyzer(src, NewRegistry())

	if _, err := a.AnalyzePlayer(context.Background(), "s1", "p1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if session.Status != game.StatusActive || !session.Players[0].Alive() {
		t.Fatal("analysis mutated the session")
	}
}
