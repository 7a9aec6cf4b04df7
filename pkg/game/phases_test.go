package game

import "testing"

func TestNightProtectNeutralizesKill(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleDoctor, RoleDetective, RoleCivilian)
	l := NewLog()

	// Mafia targets p4, doctor protects p4 in the same round; the
	// submission order must not matter.
	mustApply(s, l, "p2", ActionProtect, Payload{TargetID: "p4"})
	mustApply(s, l, "p1", ActionKill, Payload{TargetID: "p4"})
	res := mustApply(s, l, "p3", ActionInvestigate, Payload{TargetID: "p1"})

	if !res.Resolved {
		t.Fatal("night should resolve once all role-holders acted")
	}
	if s.Phase != PhaseDay {
		t.Fatalf("phase = %s, want DAY", s.Phase)
	}
	if p := s.PlayerByID("p4"); !p.Alive() {
		t.Error("protected target was eliminated")
	}
	if res.Eliminated != "" {
		t.Errorf("eliminated = %q, want nobody", res.Eliminated)
	}
}

func TestNightKillWithoutProtection(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleDoctor, RoleDetective, RoleCivilian)
	l := NewLog()

	mustApply(s, l, "p1", ActionKill, Payload{TargetID: "p4"})
	mustApply(s, l, "p2", ActionProtect, Payload{TargetID: "p2"})
	res := mustApply(s, l, "p3", ActionInvestigate, Payload{TargetID: "p1"})

	if res.Eliminated != "p4" {
		t.Fatalf("eliminated = %q, want p4", res.Eliminated)
	}
	if s.PlayerByID("p4").Alive() {
		t.Error("kill target still alive")
	}
}

func TestInvestigationRecordedPrivately(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleDoctor, RoleDetective, RoleCivilian)
	l := NewLog()

	mustApply(s, l, "p1", ActionKill, Payload{TargetID: "p4"})
	mustApply(s, l, "p2", ActionProtect, Payload{TargetID: "p4"})
	mustApply(s, l, "p3", ActionInvestigate, Payload{TargetID: "p1"})

	got := s.State.SocialDeduction.Investigations["p3"]
	if len(got) != 1 {
		t.Fatalf("got %d investigation results, want 1", len(got))
	}
	if !got[0].IsMafia || got[0].TargetID != "p1" || got[0].Round != 1 {
		t.Errorf("unexpected result %+v", got[0])
	}
}

func TestVoteTieEliminatesNobody(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleCivilian, RoleCivilian, RoleCivilian)
	s.Phase = PhaseVoting
	l := NewLog()

	mustApply(s, l, "p1", ActionVote, Payload{TargetID: "p2"})
	mustApply(s, l, "p2", ActionVote, Payload{TargetID: "p1"})
	mustApply(s, l, "p3", ActionVote, Payload{TargetID: "p2"})
	res := mustApply(s, l, "p4", ActionVote, Payload{TargetID: "p1"})

	if !res.Resolved {
		t.Fatal("voting should resolve when all living players voted")
	}
	if res.Eliminated != "" {
		t.Errorf("eliminated = %q, want nobody on a 2-2 tie", res.Eliminated)
	}
	if s.Phase != PhaseNight || s.Round != 2 {
		t.Errorf("phase/round = %s/%d, want NIGHT/2", s.Phase, s.Round)
	}
}

func TestVoteSkipMajorityEliminatesNobody(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleCivilian, RoleCivilian, RoleCivilian)
	s.Phase = PhaseVoting
	l := NewLog()

	mustApply(s, l, "p1", ActionVote, Payload{TargetID: VoteSkip})
	mustApply(s, l, "p2", ActionVote, Payload{TargetID: VoteSkip})
	mustApply(s, l, "p3", ActionVote, Payload{TargetID: VoteSkip})
	res := mustApply(s, l, "p4", ActionVote, Payload{TargetID: "p1"})

	if res.Eliminated != "" {
		t.Errorf("eliminated = %q, want nobody when skip wins", res.Eliminated)
	}
}

func TestVotePluralityEliminates(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleCivilian, RoleCivilian, RoleCivilian, RoleCivilian)
	s.Phase = PhaseVoting
	l := NewLog()

	mustApply(s, l, "p2", ActionVote, Payload{TargetID: "p1"})
	mustApply(s, l, "p3", ActionVote, Payload{TargetID: "p1"})
	mustApply(s, l, "p4", ActionVote, Payload{TargetID: "p1"})
	mustApply(s, l, "p1", ActionVote, Payload{TargetID: "p2"})
	res := mustApply(s, l, "p5", ActionVote, Payload{TargetID: VoteSkip})

	if res.Eliminated != "p1" {
		t.Fatalf("eliminated = %q, want p1", res.Eliminated)
	}
	if s.PlayerByID("p1").VotesReceived != 3 {
		t.Errorf("votes received = %d, want 3", s.PlayerByID("p1").VotesReceived)
	}
}

func TestForceAdvanceResolvesPartialNight(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleDoctor, RoleDetective, RoleCivilian)
	l := NewLog()

	// Only the mafia acted; the timeout still resolves the night.
	mustApply(s, l, "p1", ActionKill, Payload{TargetID: "p4"})
	step := ForceAdvance(s)

	if !step.Forced || !step.Advanced {
		t.Fatal("forced advance did not resolve")
	}
	if step.Eliminated != "p4" {
		t.Errorf("eliminated = %q, want p4", step.Eliminated)
	}
	if s.Phase != PhaseDay {
		t.Errorf("phase = %s, want DAY", s.Phase)
	}
}

func TestDayNeverAutoAdvances(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleCivilian, RoleCivilian, RoleCivilian)
	s.Phase = PhaseDay

	step := MaybeAdvance(s)
	if step.Advanced {
		t.Fatal("DAY advanced without a signal")
	}
	step = ForceAdvance(s)
	if !step.Advanced || s.Phase != PhaseVoting {
		t.Fatalf("forced DAY advance: got phase %s", s.Phase)
	}
}

func TestForcedTasksAdvanceOpensMeeting(t *testing.T) {
	s := newImpostorSession(RoleImpostor, RoleCrew, RoleCrew, RoleCrew, RoleCrew)

	step := ForceAdvance(s)
	if !step.Advanced || s.Phase != PhaseMeeting {
		t.Fatalf("got phase %s, want MEETING", s.Phase)
	}
}

func TestForcedHuntAdvanceEndsSession(t *testing.T) {
	s := newHuntSession(&Challenge{ID: "c1", Level: 1, Kind: ChallengeText, Answer: "x", Points: 10})

	step := ForceAdvance(s)
	if !step.Advanced || s.Phase != PhaseFinished {
		t.Fatalf("got phase %s, want FINISHED", s.Phase)
	}
}

func TestNightStateClearedBetweenRounds(t *testing.T) {
	s := newDeductionSession(RoleMafiaLeader, RoleDoctor, RoleDetective, RoleCivilian, RoleCivilian)
	l := NewLog()

	mustApply(s, l, "p1", ActionKill, Payload{TargetID: "p5"})
	mustApply(s, l, "p2", ActionProtect, Payload{TargetID: "p2"})
	mustApply(s, l, "p3", ActionInvestigate, Payload{TargetID: "p4"})

	if len(s.State.SocialDeduction.NightActions) != 0 {
		t.Error("night action buffer not cleared after resolution")
	}
}
