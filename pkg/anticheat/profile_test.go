package anticheat

import (
	"math"
	"testing"
	"time"

	"github.com/tryfairplay/arbiter/pkg/game"
)

func TestBuildProfileEmptyLogDefaults(t *testing.T) {
	p := BuildProfile("p1", nil)

	if p.Samples != 0 || p.MeanResponse != 0 || p.DecisionConfidence != 0 {
		t.Errorf("timing stats not at defaults: %+v", p)
	}
	if p.VotingConsistency != 1 || p.RoleAdherence != 1 {
		t.Errorf("consistency defaults wrong: %+v", p)
	}
}

func TestBuildProfileBelowSampleFloorKeepsDefaults(t *testing.T) {
	log := []game.Action{
		chat("other", "hi", 1, at(0)),
		vote("p1", "p2", 1, at(2*time.Second)),
		vote("p1", "p3", 1, at(4*time.Second)),
	}
	p := BuildProfile("p1", log)

	if p.Samples >= minProfileSamples {
		t.Fatalf("samples = %d, expected below floor", p.Samples)
	}
	if p.MeanResponse != 0 || p.DecisionConfidence != 0 {
		t.Errorf("sparse profile computed timing stats: %+v", p)
	}
	// Vote bookkeeping still works below the floor.
	if p.VotingConsistency != 0.5 {
		t.Errorf("voting consistency = %.2f, want 0.5 after one change in two votes", p.VotingConsistency)
	}
}

func TestBuildProfileTimingStats(t *testing.T) {
	var log []game.Action
	ts := t0
	// Six exchanges with a steady 2s trigger-to-response gap.
	for i := 0; i < 6; i++ {
		log = append(log, chat("other", "event", 1, ts))
		ts = ts.Add(2 * time.Second)
		log = append(log, chat("p1", "reply", 1, ts))
		ts = ts.Add(30 * time.Second)
	}
	p := BuildProfile("p1", log)

	if p.Samples != 6 {
		t.Fatalf("samples = %d, want 6", p.Samples)
	}
	if math.Abs(p.MeanResponse-2) > 1e-9 {
		t.Errorf("mean response = %.3f, want 2.0", p.MeanResponse)
	}
	if p.ResponseCV > 1e-9 {
		t.Errorf("cv = %.3f, want 0 for uniform gaps", p.ResponseCV)
	}
	// Exactly at the threshold is not "under" it.
	if p.DecisionConfidence != 0 {
		t.Errorf("decision confidence = %.2f, want 0 at the 2s boundary", p.DecisionConfidence)
	}
	if p.CommFrequency <= 0 {
		t.Errorf("comm frequency = %.2f, want positive", p.CommFrequency)
	}
}

func TestBuildProfileIgnoresOtherPlayers(t *testing.T) {
	log := []game.Action{
		chat("other", "a", 1, at(0)),
		chat("other", "b", 1, at(time.Second)),
		vote("other", "p1", 1, at(2*time.Second)),
	}
	p := BuildProfile("p1", log)
	if p.Samples != 0 || p.CommFrequency != 0 || p.ActionRate != 0 {
		t.Errorf("profile counted foreign actions: %+v", p)
	}
}
