package game

// WinResult is the terminal-state verdict for a session.
type WinResult struct {
	GameOver bool   `json:"game_over"`
	Winner   string `json:"winner,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Winner labels.
const (
	WinnerCivilians = "civilians"
	WinnerMafia     = "mafia"
	WinnerCrewmates = "crewmates"
	WinnerImpostors = "impostors"
)

// EvaluateWin inspects players and game state and reports whether the
// session reached a terminal state. It is a pure function: it never
// mutates the session, and identical input always yields an identical
// result. Unexpected input returns the conservative non-terminal default.
func EvaluateWin(s *Session) WinResult {
	if s == nil {
		return WinResult{}
	}
	switch s.Type {
	case GameSocialDeduction:
		return evaluateSocialDeduction(s)
	case GameTaskImpostor:
		return evaluateTaskImpostor(s)
	case GameChallengeHunt:
		return evaluateChallengeHunt(s)
	}
	return WinResult{}
}

func evaluateSocialDeduction(s *Session) WinResult {
	mafia, others := 0, 0
	for _, p := range s.Players {
		if !p.Alive() {
			continue
		}
		if p.Role.IsMafia() {
			mafia++
		} else {
			others++
		}
	}
	if mafia == 0 {
		return WinResult{GameOver: true, Winner: WinnerCivilians, Reason: "all mafia eliminated"}
	}
	if mafia >= others {
		return WinResult{GameOver: true, Winner: WinnerMafia, Reason: "mafia reached parity"}
	}
	return WinResult{}
}

func evaluateTaskImpostor(s *Session) WinResult {
	ti := s.State.TaskImpostor
	if ti == nil {
		return WinResult{}
	}
	if ti.TasksTotal > 0 && ti.TasksCompleted >= ti.TasksTotal {
		return WinResult{GameOver: true, Winner: WinnerCrewmates, Reason: "all tasks completed"}
	}

	impostors, crew := 0, 0
	for _, p := range s.Players {
		if !p.Alive() {
			continue
		}
		if p.Role == RoleImpostor {
			impostors++
		} else {
			crew++
		}
	}
	if impostors == 0 {
		return WinResult{GameOver: true, Winner: WinnerCrewmates, Reason: "all impostors ejected"}
	}
	if impostors >= crew {
		return WinResult{GameOver: true, Winner: WinnerImpostors, Reason: "impostors reached parity"}
	}
	return WinResult{}
}

func evaluateChallengeHunt(s *Session) WinResult {
	hunt := s.State.ChallengeHunt
	if hunt == nil {
		return WinResult{}
	}
	if hunt.WinnerTeam != "" {
		return WinResult{GameOver: true, Winner: hunt.WinnerTeam, Reason: "final challenge completed"}
	}
	return WinResult{}
}
