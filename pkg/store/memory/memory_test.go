package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/game"
)

func testSession(id string) *game.Session {
	return &game.Session{
		ID:     id,
		Type:   game.GameSocialDeduction,
		Status: game.StatusActive,
		Players: []*game.Player{
			{ID: "p1", Name: "ann", Status: game.PlayerAlive},
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	if err := s.SaveSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "s1" || len(got.Players) != 1 {
		t.Fatalf("loaded %+v", got)
	}

	// The stored copy is isolated from caller mutations, both ways.
	got.Players[0].Status = game.PlayerEliminated
	again, _ := s.LoadSession(ctx, "s1")
	if !again.Players[0].Alive() {
		t.Error("mutation through a loaded copy reached the store")
	}

	if _, err := s.LoadSession(ctx, "missing"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("missing session: err = %v", err)
	}
}

func TestArchiveAndSweep(t *testing.T) {
	ctx := context.Background()
	s := New(WithMaxAge(time.Millisecond), WithCleanupInterval(time.Hour))
	defer s.Close()

	s.SaveSession(ctx, testSession("s1"))
	s.AppendAction(ctx, "s1", game.Action{ID: "a1"})
	if err := s.ArchiveSession(ctx, "s1"); err != nil {
		t.Fatalf("archive: %v", err)
	}

	// Archived but not yet swept: still readable.
	if _, err := s.LoadSession(ctx, "s1"); err != nil {
		t.Fatalf("read after archive: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	s.cleanup()

	if _, err := s.LoadSession(ctx, "s1"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("swept session still loads: %v", err)
	}
	acts, _ := s.ListActions(ctx, "s1")
	if len(acts) != 0 {
		t.Errorf("swept session kept %d actions", len(acts))
	}

	if err := s.ArchiveSession(ctx, "missing"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("archive missing: err = %v", err)
	}
}

func TestActionsPreserveOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.AppendAction(ctx, "s1", game.Action{ID: string(rune('a' + i)), Round: 1})
	}
	acts, err := s.ListActions(ctx, "s1")
	if err != nil || len(acts) != 5 {
		t.Fatalf("got %d actions, err %v", len(acts), err)
	}
	for i, a := range acts {
		if a.ID != string(rune('a'+i)) {
			t.Fatalf("order broken at %d: %s", i, a.ID)
		}
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	if _, err := s.LoadBaseline(ctx, "p1"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("missing baseline: err = %v", err)
	}

	p := &anticheat.Profile{PlayerID: "p1", Samples: 9, MeanResponse: 4.2}
	if err := s.SaveBaseline(ctx, "p1", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadBaseline(ctx, "p1")
	if err != nil || got.MeanResponse != 4.2 {
		t.Fatalf("load: %+v, %v", got, err)
	}

	// Survives session sweeps.
	s.cleanup()
	if _, err := s.LoadBaseline(ctx, "p1"); err != nil {
		t.Errorf("baseline swept with sessions: %v", err)
	}
}
