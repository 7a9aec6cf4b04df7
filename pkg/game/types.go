// Package game implements the session engine for Arbiter's three game
// modes: social deduction (mafia-style), task impostor, and challenge hunt.
// A session is a multi-phase state machine with hidden roles; every player
// action flows through the same validation pipeline and is appended to an
// immutable action log before it mutates game state. The anticheat package
// consumes that same log.
package game

import (
	"time"
)

// GameType selects the rule set for a session.
type GameType string

const (
	GameSocialDeduction GameType = "SOCIAL_DEDUCTION"
	GameTaskImpostor    GameType = "TASK_IMPOSTOR"
	GameChallengeHunt   GameType = "CHALLENGE_HUNT"
)

// IsValid reports whether the game type is one of the supported modes.
func (g GameType) IsValid() bool {
	switch g {
	case GameSocialDeduction, GameTaskImpostor, GameChallengeHunt:
		return true
	}
	return false
}

// MinPlayers returns the documented minimum player count for the game type.
func (g GameType) MinPlayers() int {
	if g == GameChallengeHunt {
		return 2
	}
	return 4
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "WAITING"
	StatusActive    SessionStatus = "ACTIVE"
	StatusFinished  SessionStatus = "FINISHED"
	StatusCancelled SessionStatus = "CANCELLED"
)

// Phase is a named stage within a round.
type Phase string

const (
	PhaseSetup    Phase = "SETUP"
	PhaseNight    Phase = "NIGHT"
	PhaseDay      Phase = "DAY"
	PhaseVoting   Phase = "VOTING"
	PhaseTasks    Phase = "TASKS"
	PhaseMeeting  Phase = "MEETING"
	PhaseHunt     Phase = "ACTIVE"
	PhaseFinished Phase = "FINISHED"
)

// Role is a capability assigned to a player at session start. Roles are
// visible to the engine and to the player themselves, never to others.
type Role string

const (
	RoleNone        Role = ""
	RoleMafia       Role = "mafia"
	RoleMafiaLeader Role = "mafia_leader"
	RoleDetective   Role = "detective"
	RoleDoctor      Role = "doctor"
	RoleCivilian    Role = "civilian"
	RoleImpostor    Role = "impostor"
	RoleCrew        Role = "crew"
	RoleHunter      Role = "hunter" // challenge hunt has team assignments, not hidden roles
)

// IsMafia reports whether the role belongs to the mafia faction.
func (r Role) IsMafia() bool {
	return r == RoleMafia || r == RoleMafiaLeader
}

// PlayerStatus tracks soft elimination. Players are never removed from an
// active session; elimination only flips this flag.
type PlayerStatus string

const (
	PlayerAlive      PlayerStatus = "ALIVE"
	PlayerEliminated PlayerStatus = "ELIMINATED"
)

// Player is a session member. Role is immutable after assignment.
type Player struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Role           Role         `json:"role,omitempty"`
	Status         PlayerStatus `json:"status"`
	TeamID         string       `json:"team_id,omitempty"`
	VotesReceived  int          `json:"votes_received"`
	TasksCompleted int          `json:"tasks_completed"`
	JoinedAt       time.Time    `json:"joined_at"`
}

// Alive reports whether the player can still take turn-gated actions.
func (p *Player) Alive() bool { return p.Status == PlayerAlive }

// Settings holds per-session tunables. Zero values fall back to the
// defaults applied by Normalize.
type Settings struct {
	// Seed drives role shuffling. Zero means "pick one at start"; tests
	// inject a fixed seed for reproducible assignments.
	Seed int64 `json:"seed,omitempty"`

	// TaskQuota is the per-crew-member task count for TASK_IMPOSTOR.
	TaskQuota int `json:"task_quota,omitempty"`

	// LocationThreshold is the accepted coordinate distance (in degrees,
	// Euclidean approximation) for location challenges.
	LocationThreshold float64 `json:"location_threshold,omitempty"`

	// MaxHintsPerTeam caps hint usage in CHALLENGE_HUNT.
	MaxHintsPerTeam int `json:"max_hints_per_team,omitempty"`

	// HintPenalty is the score cost of a hint.
	HintPenalty int `json:"hint_penalty,omitempty"`
}

// Normalize fills unset settings with defaults.
func (s *Settings) Normalize() {
	if s.TaskQuota <= 0 {
		s.TaskQuota = 3
	}
	if s.LocationThreshold <= 0 {
		s.LocationThreshold = 0.001
	}
	if s.MaxHintsPerTeam <= 0 {
		s.MaxHintsPerTeam = 3
	}
	if s.HintPenalty <= 0 {
		s.HintPenalty = 5
	}
}

// Session is one running game among a fixed player set. It is owned by the
// Manager and mutated only through the action processor and phase machine,
// under the per-session writer lock.
type Session struct {
	ID        string        `json:"id"`
	Type      GameType      `json:"game_type"`
	Status    SessionStatus `json:"status"`
	Phase     Phase         `json:"phase"`
	Round     int           `json:"round"`
	Settings  Settings      `json:"settings"`
	Players   []*Player     `json:"players"`
	State     GameState     `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
}

// GameState is a tagged union: exactly one branch is non-nil, selected by
// Session.Type. Typed branches replace the dict-shaped per-type payload so
// the action processor can dispatch exhaustively.
type GameState struct {
	SocialDeduction *SocialDeductionState `json:"social_deduction,omitempty"`
	TaskImpostor    *TaskImpostorState    `json:"task_impostor,omitempty"`
	ChallengeHunt   *ChallengeHuntState   `json:"challenge_hunt,omitempty"`
}

// VoteSkip is the reserved vote target meaning "eliminate nobody".
const VoteSkip = "skip"

// NightActionKind distinguishes buffered night submissions.
type NightActionKind string

const (
	NightKill        NightActionKind = "kill"
	NightProtect     NightActionKind = "protect"
	NightInvestigate NightActionKind = "investigate"
)

// NightAction is one buffered night submission, resolved only when the
// night phase completes.
type NightAction struct {
	Kind     NightActionKind `json:"kind"`
	ActorID  string          `json:"actor_id"`
	TargetID string          `json:"target_id"`
}

// InvestigationResult is revealed only to the investigating detective.
type InvestigationResult struct {
	Round    int    `json:"round"`
	TargetID string `json:"target_id"`
	IsMafia  bool   `json:"is_mafia"`
}

// SocialDeductionState is the mutable payload for SOCIAL_DEDUCTION.
type SocialDeductionState struct {
	Votes          map[string]string              `json:"votes"`           // voter -> target (or VoteSkip)
	NightActions   map[string]NightAction         `json:"night_actions"`   // actor -> buffered action
	Investigations map[string][]InvestigationResult `json:"investigations"` // detective -> results
	LastEliminated string                         `json:"last_eliminated,omitempty"`
}

// TaskImpostorState is the mutable payload for TASK_IMPOSTOR.
type TaskImpostorState struct {
	Votes          map[string]string `json:"votes"` // meeting votes
	TasksDone      map[string]int    `json:"tasks_done"`
	TasksCompleted int               `json:"tasks_completed"` // real completions, global
	TasksTotal     int               `json:"tasks_total"`
	MeetingCaller  string            `json:"meeting_caller,omitempty"`
	LastEliminated string            `json:"last_eliminated,omitempty"`
}

// ChallengeKind selects the verification rule for a challenge.
type ChallengeKind string

const (
	ChallengeText     ChallengeKind = "text"
	ChallengeChoice   ChallengeKind = "choice"
	ChallengeLocation ChallengeKind = "location"
	ChallengeImage    ChallengeKind = "image"
)

// Challenge is one solvable step in a hunt. Verification depends on Kind:
// exact case-insensitive match (text), set membership (choice), coordinate
// proximity (location), or tag membership (image).
type Challenge struct {
	ID      string        `json:"id"`
	Level   int           `json:"level"`
	Kind    ChallengeKind `json:"kind"`
	Prompt  string        `json:"prompt"`
	Answer  string        `json:"answer,omitempty"`
	Choices []string      `json:"choices,omitempty"`
	Lat     float64       `json:"lat,omitempty"`
	Lon     float64       `json:"lon,omitempty"`
	Tags    []string      `json:"tags,omitempty"`
	Points  int           `json:"points"`
}

// Team groups hunt players. Wrong attempts never eliminate a team.
type Team struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Members       []string   `json:"members"`
	Score         int        `json:"score"`
	Level         int        `json:"level"` // next challenge level to solve (1-based)
	HintsUsed     int        `json:"hints_used"`
	WrongAttempts int        `json:"wrong_attempts"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// ChallengeHuntState is the mutable payload for CHALLENGE_HUNT.
type ChallengeHuntState struct {
	Teams      []*Team      `json:"teams"`
	Challenges []*Challenge `json:"challenges"`
	MaxLevel   int          `json:"max_level"`
	WinnerTeam string       `json:"winner_team,omitempty"`
	Finishers  []string     `json:"finishers,omitempty"` // teams past the final level, in order
}

// PlayerByID returns the session member with the given id, or nil.
func (s *Session) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AliveCount returns the number of non-eliminated players.
func (s *Session) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive() {
			n++
		}
	}
	return n
}

// TeamByMember returns the hunt team containing the player, or nil.
func (h *ChallengeHuntState) TeamByMember(playerID string) *Team {
	for _, t := range h.Teams {
		for _, m := range t.Members {
			if m == playerID {
				return t
			}
		}
	}
	return nil
}

// ChallengeForLevel returns the challenge at the given level, or nil.
func (h *ChallengeHuntState) ChallengeForLevel(level int) *Challenge {
	for _, c := range h.Challenges {
		if c.Level == level {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of the session for lock-free reads.
func (s *Session) Clone() *Session {
	out := *s
	out.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		out.Players[i] = &cp
	}
	out.State = s.State.clone()
	return &out
}

func (g GameState) clone() GameState {
	var out GameState
	if g.SocialDeduction != nil {
		sd := *g.SocialDeduction
		sd.Votes = copyStringMap(g.SocialDeduction.Votes)
		sd.NightActions = make(map[string]NightAction, len(g.SocialDeduction.NightActions))
		for k, v := range g.SocialDeduction.NightActions {
			sd.NightActions[k] = v
		}
		sd.Investigations = make(map[string][]InvestigationResult, len(g.SocialDeduction.Investigations))
		for k, v := range g.SocialDeduction.Investigations {
			sd.Investigations[k] = append([]InvestigationResult(nil), v...)
		}
		out.SocialDeduction = &sd
	}
	if g.TaskImpostor != nil {
		ti := *g.TaskImpostor
		ti.Votes = copyStringMap(g.TaskImpostor.Votes)
		ti.TasksDone = make(map[string]int, len(g.TaskImpostor.TasksDone))
		for k, v := range g.TaskImpostor.TasksDone {
			ti.TasksDone[k] = v
		}
		out.TaskImpostor = &ti
	}
	if g.ChallengeHunt != nil {
		ch := *g.ChallengeHunt
		ch.Teams = make([]*Team, len(g.ChallengeHunt.Teams))
		for i, t := range g.ChallengeHunt.Teams {
			tc := *t
			tc.Members = append([]string(nil), t.Members...)
			ch.Teams[i] = &tc
		}
		ch.Challenges = make([]*Challenge, len(g.ChallengeHunt.Challenges))
		for i, c := range g.ChallengeHunt.Challenges {
			cc := *c
			ch.Challenges[i] = &cc
		}
		ch.Finishers = append([]string(nil), g.ChallengeHunt.Finishers...)
		out.ChallengeHunt = &ch
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
