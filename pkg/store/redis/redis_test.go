package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/game"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := NewWithClient(client, WithArchiveTTL(time.Minute))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	sess := &game.Session{
		ID:     "s1",
		Type:   game.GameTaskImpostor,
		Status: game.StatusActive,
		Phase:  game.PhaseTasks,
		Round:  2,
		Players: []*game.Player{
			{ID: "p1", Name: "ann", Role: game.RoleCrew, Status: game.PlayerAlive},
		},
		State: game.GameState{TaskImpostor: &game.TaskImpostorState{
			TasksTotal:     12,
			TasksCompleted: 3,
			TasksDone:      map[string]int{"p1": 3},
		}},
	}
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Round != 2 || got.State.TaskImpostor.TasksDone["p1"] != 3 {
		t.Fatalf("round trip lost state: %+v", got)
	}

	if _, err := s.LoadSession(ctx, "missing"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("missing session: err = %v", err)
	}
}

func TestActionLogAppendOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < 4; i++ {
		a := game.Action{
			ID:        string(rune('a' + i)),
			ActorID:   "p1",
			Type:      game.ActionVote,
			Round:     1,
			Timestamp: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}
		if err := s.AppendAction(ctx, "s1", a); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	acts, err := s.ListActions(ctx, "s1")
	if err != nil || len(acts) != 4 {
		t.Fatalf("got %d actions, err %v", len(acts), err)
	}
	for i, a := range acts {
		if a.ID != string(rune('a'+i)) {
			t.Fatalf("append order broken at %d: %s", i, a.ID)
		}
	}
}

func TestArchiveSetsExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	s.SaveSession(ctx, &game.Session{ID: "s1", Type: game.GameChallengeHunt})
	s.AppendAction(ctx, "s1", game.Action{ID: "a1"})

	if err := s.ArchiveSession(ctx, "s1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if mr.TTL(sessionKey("s1")) != time.Minute {
		t.Errorf("session ttl = %v", mr.TTL(sessionKey("s1")))
	}
	if mr.TTL(actionsKey("s1")) != time.Minute {
		t.Errorf("actions ttl = %v", mr.TTL(actionsKey("s1")))
	}

	// Still readable until expiry.
	if _, err := s.LoadSession(ctx, "s1"); err != nil {
		t.Fatalf("read after archive: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.LoadSession(ctx, "s1"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("expired session still loads: %v", err)
	}

	if err := s.ArchiveSession(ctx, "missing"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("archive missing: err = %v", err)
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.LoadBaseline(ctx, "p1"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("missing baseline: err = %v", err)
	}

	p := &anticheat.Profile{PlayerID: "p1", Samples: 12, MeanResponse: 6.5, CommFrequency: 20}
	if err := s.SaveBaseline(ctx, "p1", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadBaseline(ctx, "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Samples != 12 || got.MeanResponse != 6.5 {
		t.Fatalf("round trip lost fields: %+v", got)
	}
}
