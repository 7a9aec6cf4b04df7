package game

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ActionResult reports what an accepted action did. Results for faked
// impostor task completions are indistinguishable from real ones so role
// secrecy survives the API boundary.
type ActionResult struct {
	Action        Action               `json:"action"`
	Phase         Phase                `json:"phase"`
	Round         int                  `json:"round"`
	Resolved      bool                 `json:"resolved"`       // this action completed its phase
	Eliminated    string               `json:"eliminated,omitempty"`
	Correct       *bool                `json:"correct,omitempty"` // challenge solve verdict
	Investigation *InvestigationResult `json:"investigation,omitempty"`
	GameOver      bool                 `json:"game_over"`
	Winner        string               `json:"winner,omitempty"`
	Reason        string               `json:"reason,omitempty"`
}

// Apply validates an action against the session and, if accepted, appends
// it to the log and applies its effect. Validation is all-or-nothing: a
// rejected action leaves no trace in the log or the game state.
//
// Preconditions are checked in a fixed order, each with its own failure:
// session active, actor membership, action type known for the game type,
// phase acceptance, actor alive (turn-gated actions only), role match.
func Apply(s *Session, log *Log, a Action) (*ActionResult, error) {
	if s.Status == StatusFinished || s.Phase == PhaseFinished {
		return nil, ErrSessionClosed
	}
	if s.Status != StatusActive {
		return nil, ErrGameNotActive
	}

	actor := s.PlayerByID(a.ActorID)
	if actor == nil {
		return nil, ErrUnknownPlayer
	}

	if !actionDefined(s.Type, a.Type) {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownActionType, a.Type, s.Type)
	}
	if !phaseAccepts(s.Phase, a.Type) {
		return nil, fmt.Errorf("%w: %s during %s", ErrWrongPhase, a.Type, s.Phase)
	}
	if turnGated(a.Type) && !actor.Alive() {
		return nil, ErrEliminatedPlayer
	}
	if err := checkRole(s.Type, actor.Role, a.Type); err != nil {
		return nil, err
	}

	a.Round = s.Round
	a.Phase = s.Phase
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	res := &ActionResult{Action: a}

	// Effects validate their own targets before the log append so a bad
	// target rejects cleanly.
	apply, err := prepareEffect(s, actor, &a, res)
	if err != nil {
		return nil, err
	}

	// Log first, then mutate: the log is the source of truth for replay.
	log.Append(a)
	apply()

	step := MaybeAdvance(s)
	res.Resolved = step.Advanced
	if step.Eliminated != "" {
		res.Eliminated = step.Eliminated
	}
	res.Phase = s.Phase
	res.Round = s.Round
	return res, nil
}

// turnGated reports whether the action requires a living actor. Task
// completion is deliberately not gated: eliminated crew keep finishing
// tasks, matching the task-impostor genre.
func turnGated(t ActionType) bool {
	switch t {
	case ActionVote, ActionKill, ActionProtect, ActionInvestigate, ActionCallMeeting:
		return true
	}
	return false
}

func actionDefined(g GameType, t ActionType) bool {
	if t == ActionChat {
		return true
	}
	switch g {
	case GameSocialDeduction:
		switch t {
		case ActionVote, ActionKill, ActionProtect, ActionInvestigate:
			return true
		}
	case GameTaskImpostor:
		switch t {
		case ActionVote, ActionKill, ActionCompleteTask, ActionCallMeeting:
			return true
		}
	case GameChallengeHunt:
		switch t {
		case ActionSolve, ActionHint:
			return true
		}
	}
	return false
}

func phaseAccepts(phase Phase, t ActionType) bool {
	if t == ActionChat {
		return phase != PhaseFinished
	}
	switch phase {
	case PhaseNight:
		return t == ActionKill || t == ActionProtect || t == ActionInvestigate
	case PhaseVoting, PhaseMeeting:
		return t == ActionVote
	case PhaseTasks:
		return t == ActionCompleteTask || t == ActionCallMeeting || t == ActionKill
	case PhaseHunt:
		return t == ActionSolve || t == ActionHint
	default: // DAY is discussion only
		return false
	}
}

func checkRole(g GameType, r Role, t ActionType) error {
	switch t {
	case ActionKill:
		if g == GameSocialDeduction && !r.IsMafia() {
			return fmt.Errorf("%w: kill requires mafia", ErrRoleMismatch)
		}
		if g == GameTaskImpostor && r != RoleImpostor {
			return fmt.Errorf("%w: kill requires impostor", ErrRoleMismatch)
		}
	case ActionProtect:
		if r != RoleDoctor {
			return fmt.Errorf("%w: protect requires doctor", ErrRoleMismatch)
		}
	case ActionInvestigate:
		if r != RoleDetective {
			return fmt.Errorf("%w: investigate requires detective", ErrRoleMismatch)
		}
	}
	return nil
}

// prepareEffect validates the action's payload and returns the deferred
// state mutation. Nothing is mutated until the returned closure runs.
func prepareEffect(s *Session, actor *Player, a *Action, res *ActionResult) (func(), error) {
	switch a.Type {
	case ActionChat:
		return func() {}, nil

	case ActionVote:
		return prepareVote(s, actor, a)

	case ActionKill, ActionProtect, ActionInvestigate:
		if s.Type == GameTaskImpostor {
			return prepareImpostorKill(s, a)
		}
		return prepareNightAction(s, actor, a)

	case ActionCompleteTask:
		return prepareTask(s, actor), nil

	case ActionCallMeeting:
		ti := s.State.TaskImpostor
		return func() {
			ti.Votes = make(map[string]string)
			ti.MeetingCaller = actor.ID
			s.Phase = PhaseMeeting
		}, nil

	case ActionSolve:
		return prepareSolve(s, actor, a, res)

	case ActionHint:
		return prepareHint(s, actor)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, a.Type)
}

func prepareVote(s *Session, actor *Player, a *Action) (func(), error) {
	target := a.Payload.TargetID
	if target != VoteSkip {
		tp := s.PlayerByID(target)
		if tp == nil || !tp.Alive() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
		}
	}
	if s.Type == GameTaskImpostor {
		ti := s.State.TaskImpostor
		return func() { ti.Votes[actor.ID] = target }, nil
	}
	sd := s.State.SocialDeduction
	return func() { sd.Votes[actor.ID] = target }, nil
}

func prepareNightAction(s *Session, actor *Player, a *Action) (func(), error) {
	tp := s.PlayerByID(a.Payload.TargetID)
	if tp == nil || !tp.Alive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, a.Payload.TargetID)
	}
	kind := map[ActionType]NightActionKind{
		ActionKill:        NightKill,
		ActionProtect:     NightProtect,
		ActionInvestigate: NightInvestigate,
	}[a.Type]
	sd := s.State.SocialDeduction
	targetID := a.Payload.TargetID
	actorID := actor.ID
	return func() {
		// Re-submission overwrites: the buffer keeps one action per
		// role-holder per round.
		sd.NightActions[actorID] = NightAction{Kind: kind, ActorID: actorID, TargetID: targetID}
	}, nil
}

func prepareImpostorKill(s *Session, a *Action) (func(), error) {
	tp := s.PlayerByID(a.Payload.TargetID)
	if tp == nil || !tp.Alive() || tp.Role == RoleImpostor {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, a.Payload.TargetID)
	}
	return func() {
		tp.Status = PlayerEliminated
		s.State.TaskImpostor.LastEliminated = tp.ID
	}, nil
}

// prepareTask counts a real completion for crew. Impostors submit faked
// completions that increment no real counter but still succeed, so a task
// submission never reveals the actor's role.
func prepareTask(s *Session, actor *Player) func() {
	ti := s.State.TaskImpostor
	quota := s.Settings.TaskQuota
	return func() {
		if actor.Role == RoleImpostor {
			return
		}
		if ti.TasksDone[actor.ID] >= quota {
			return
		}
		ti.TasksDone[actor.ID]++
		ti.TasksCompleted++
		actor.TasksCompleted++
	}
}

func prepareSolve(s *Session, actor *Player, a *Action, res *ActionResult) (func(), error) {
	hunt := s.State.ChallengeHunt
	team := hunt.TeamByMember(actor.ID)
	if team == nil {
		return nil, ErrUnknownPlayer
	}
	ch := hunt.ChallengeForLevel(team.Level)
	if ch == nil || (a.Payload.ChallengeID != "" && a.Payload.ChallengeID != ch.ID) {
		return nil, fmt.Errorf("%w: level %d", ErrChallengeNotFound, team.Level)
	}

	correct := verifyChallenge(ch, a.Payload, s.Settings.LocationThreshold)
	res.Correct = &correct

	return func() {
		if !correct {
			team.WrongAttempts++
			return
		}
		team.Score += ch.Points
		team.Level++
		if team.Level > hunt.MaxLevel {
			now := time.Now().UTC()
			team.FinishedAt = &now
			hunt.Finishers = append(hunt.Finishers, team.ID)
			// First finisher wins; later finishers are recorded but
			// never change the winner.
			if hunt.WinnerTeam == "" {
				hunt.WinnerTeam = team.ID
			}
		}
	}, nil
}

func prepareHint(s *Session, actor *Player) (func(), error) {
	hunt := s.State.ChallengeHunt
	team := hunt.TeamByMember(actor.ID)
	if team == nil {
		return nil, ErrUnknownPlayer
	}
	if team.HintsUsed >= s.Settings.MaxHintsPerTeam {
		return nil, ErrHintLimitReached
	}
	penalty := s.Settings.HintPenalty
	return func() {
		team.HintsUsed++
		team.Score -= penalty
	}, nil
}

// verifyChallenge checks an answer against the challenge's rule.
// Location uses a Euclidean approximation over lat/lon degrees, which is
// an approximation, not a geodesic distance.
func verifyChallenge(ch *Challenge, p Payload, locThreshold float64) bool {
	switch ch.Kind {
	case ChallengeText:
		return strings.EqualFold(strings.TrimSpace(p.Answer), strings.TrimSpace(ch.Answer))
	case ChallengeChoice:
		for _, c := range ch.Choices {
			if strings.EqualFold(strings.TrimSpace(p.Answer), c) {
				return true
			}
		}
		return false
	case ChallengeLocation:
		dLat := p.Lat - ch.Lat
		dLon := p.Lon - ch.Lon
		return math.Sqrt(dLat*dLat+dLon*dLon) <= locThreshold
	case ChallengeImage:
		for _, want := range ch.Tags {
			for _, got := range p.Tags {
				if strings.EqualFold(got, want) {
					return true
				}
			}
		}
		return false
	}
	return false
}
