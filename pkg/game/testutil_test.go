package game

import (
	"fmt"
	"time"
)

// newDeductionSession builds an active SOCIAL_DEDUCTION session with the
// given roles assigned in order (p1, p2, ...).
func newDeductionSession(roles ...Role) *Session {
	s := &Session{
		ID:     "test-session",
		Type:   GameSocialDeduction,
		Status: StatusActive,
		Phase:  PhaseNight,
		Round:  1,
		State: GameState{SocialDeduction: &SocialDeductionState{
			Votes:          make(map[string]string),
			NightActions:   make(map[string]NightAction),
			Investigations: make(map[string][]InvestigationResult),
		}},
	}
	s.Settings.Normalize()
	for i, r := range roles {
		s.Players = append(s.Players, &Player{
			ID:     fmt.Sprintf("p%d", i+1),
			Name:   fmt.Sprintf("player %d", i+1),
			Role:   r,
			Status: PlayerAlive,
		})
	}
	return s
}

// newImpostorSession builds an active TASK_IMPOSTOR session. TasksTotal
// covers crew members only.
func newImpostorSession(roles ...Role) *Session {
	s := &Session{
		ID:     "test-session",
		Type:   GameTaskImpostor,
		Status: StatusActive,
		Phase:  PhaseTasks,
		Round:  1,
		State: GameState{TaskImpostor: &TaskImpostorState{
			Votes:     make(map[string]string),
			TasksDone: make(map[string]int),
		}},
	}
	s.Settings.Normalize()
	crew := 0
	for i, r := range roles {
		if r != RoleImpostor {
			crew++
		}
		s.Players = append(s.Players, &Player{
			ID:     fmt.Sprintf("p%d", i+1),
			Name:   fmt.Sprintf("player %d", i+1),
			Role:   r,
			Status: PlayerAlive,
		})
	}
	s.State.TaskImpostor.TasksTotal = s.Settings.TaskQuota * crew
	return s
}

// newHuntSession builds an active CHALLENGE_HUNT session with two teams
// of one player each and the given challenge ladder.
func newHuntSession(challenges ...*Challenge) *Session {
	maxLevel := 0
	for _, c := range challenges {
		if c.Level > maxLevel {
			maxLevel = c.Level
		}
	}
	s := &Session{
		ID:     "test-session",
		Type:   GameChallengeHunt,
		Status: StatusActive,
		Phase:  PhaseHunt,
		Round:  1,
		State: GameState{ChallengeHunt: &ChallengeHuntState{
			Challenges: challenges,
			MaxLevel:   maxLevel,
			Teams: []*Team{
				{ID: "team-a", Name: "alpha", Members: []string{"p1"}, Level: 1},
				{ID: "team-b", Name: "beta", Members: []string{"p2"}, Level: 1},
			},
		}},
	}
	s.Settings.Normalize()
	s.Players = []*Player{
		{ID: "p1", Name: "ann", Role: RoleHunter, Status: PlayerAlive, TeamID: "team-a"},
		{ID: "p2", Name: "bob", Role: RoleHunter, Status: PlayerAlive, TeamID: "team-b"},
	}
	return s
}

func mustApply(s *Session, l *Log, actor string, t ActionType, p Payload) *ActionResult {
	res, err := Apply(s, l, Action{
		ID:        fmt.Sprintf("a-%d", l.Len()+1),
		ActorID:   actor,
		Type:      t,
		Payload:   p,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		panic(fmt.Sprintf("apply %s by %s: %v", t, actor, err))
	}
	return res
}
