package game

import (
	"fmt"
	"math/rand"
)

// specialRolePriority is the fixed draw order for non-mafia specials in
// social deduction. At most two are dealt, detective first.
var specialRolePriority = []Role{RoleDetective, RoleDoctor}

// AssignRoles populates every player's role (or team, for hunts) from the
// session's game type. The caller supplies the RNG so assignments are
// reproducible given a seed. Roles are immutable once assigned.
func AssignRoles(s *Session, rng *rand.Rand) error {
	n := len(s.Players)
	if n < s.Type.MinPlayers() {
		return fmt.Errorf("%w: have %d, need %d for %s", ErrInsufficientPlayers, n, s.Type.MinPlayers(), s.Type)
	}

	switch s.Type {
	case GameSocialDeduction:
		assignSocialDeduction(s.Players, rng)
	case GameTaskImpostor:
		assignTaskImpostor(s.Players, rng)
	case GameChallengeHunt:
		assignHuntTeams(s, rng)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownActionType, s.Type)
	}
	return nil
}

func assignSocialDeduction(players []*Player, rng *rand.Rand) {
	n := len(players)
	mafiaCount := n / 4
	if mafiaCount < 1 {
		mafiaCount = 1
	}
	specialCount := n - mafiaCount - 1
	if specialCount > len(specialRolePriority) {
		specialCount = len(specialRolePriority)
	}

	shuffled := shuffledCopy(players, rng)
	for i, p := range shuffled {
		switch {
		case i == 0:
			p.Role = RoleMafiaLeader
		case i < mafiaCount:
			p.Role = RoleMafia
		case i < mafiaCount+specialCount:
			p.Role = specialRolePriority[i-mafiaCount]
		default:
			p.Role = RoleCivilian
		}
	}
}

func assignTaskImpostor(players []*Player, rng *rand.Rand) {
	n := len(players)
	impostorCount := n / 5
	if impostorCount < 1 {
		impostorCount = 1
	}

	shuffled := shuffledCopy(players, rng)
	for i, p := range shuffled {
		if i < impostorCount {
			p.Role = RoleImpostor
		} else {
			p.Role = RoleCrew
		}
	}
}

// assignHuntTeams partitions players round-robin after a shuffle. Up to 6
// players play in pairs; larger hunts target 3-4 per team.
func assignHuntTeams(s *Session, rng *rand.Rand) {
	n := len(s.Players)
	var teamCount int
	if n <= 6 {
		teamCount = (n + 1) / 2
	} else {
		teamCount = (n + 3) / 4
	}

	teams := make([]*Team, teamCount)
	for i := range teams {
		teams[i] = &Team{
			ID:    fmt.Sprintf("team-%d", i+1),
			Name:  fmt.Sprintf("Team %d", i+1),
			Level: 1,
		}
	}

	shuffled := shuffledCopy(s.Players, rng)
	for i, p := range shuffled {
		t := teams[i%teamCount]
		t.Members = append(t.Members, p.ID)
		p.TeamID = t.ID
		p.Role = RoleHunter
	}

	if s.State.ChallengeHunt == nil {
		s.State.ChallengeHunt = &ChallengeHuntState{}
	}
	s.State.ChallengeHunt.Teams = teams
}

func shuffledCopy(players []*Player, rng *rand.Rand) []*Player {
	out := make([]*Player, len(players))
	copy(out, players)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
