package game

// Phase transitions:
//
//	SOCIAL_DEDUCTION: SETUP -> NIGHT -> DAY -> VOTING -> NIGHT(round+1) ...
//	TASK_IMPOSTOR:    SETUP -> TASKS <-> MEETING
//	CHALLENGE_HUNT:   SETUP -> ACTIVE
//
// FINISHED is terminal for every mode and is entered by the manager when
// the win evaluator reports a terminal state (or on a forced hunt end).
//
// A phase advances when all eligible actors have submitted their required
// action, or when an external advance signal forces a timeout-based
// transition. Forced transitions resolve deterministically with whatever
// partial action set was collected; nothing is silently discarded.

// StepResult describes one phase transition.
type StepResult struct {
	Advanced   bool   `json:"advanced"`
	From       Phase  `json:"from"`
	To         Phase  `json:"to"`
	Round      int    `json:"round"`
	Eliminated string `json:"eliminated,omitempty"` // player eliminated by the resolution, if any
	Forced     bool   `json:"forced,omitempty"`
}

// StartingPhase returns the first playable phase for a game type.
func StartingPhase(t GameType) Phase {
	switch t {
	case GameSocialDeduction:
		return PhaseNight
	case GameTaskImpostor:
		return PhaseTasks
	default:
		return PhaseHunt
	}
}

// MaybeAdvance advances the session's phase if every eligible actor has
// submitted the phase's required action. DAY and TASKS never auto-advance;
// they wait for an explicit signal (or, for TASKS, a called meeting).
func MaybeAdvance(s *Session) StepResult {
	if !phaseComplete(s) {
		return StepResult{From: s.Phase, To: s.Phase, Round: s.Round}
	}
	return resolvePhase(s, false)
}

// ForceAdvance resolves the current phase with the partial action set
// collected so far and moves on. This is the timeout path: the engine
// never blocks waiting for absent players.
func ForceAdvance(s *Session) StepResult {
	return resolvePhase(s, true)
}

// phaseComplete reports whether all eligible actors acted this phase.
func phaseComplete(s *Session) bool {
	switch s.Phase {
	case PhaseNight:
		sd := s.State.SocialDeduction
		if sd == nil {
			return false
		}
		for _, p := range s.Players {
			if !p.Alive() {
				continue
			}
			if !nightEligible(p.Role) {
				continue
			}
			if _, ok := sd.NightActions[p.ID]; !ok {
				return false
			}
		}
		return true
	case PhaseVoting:
		sd := s.State.SocialDeduction
		return sd != nil && len(sd.Votes) >= s.AliveCount()
	case PhaseMeeting:
		ti := s.State.TaskImpostor
		return ti != nil && len(ti.Votes) >= s.AliveCount()
	default:
		// DAY, TASKS and the hunt's ACTIVE phase complete only on signal.
		return false
	}
}

func nightEligible(r Role) bool {
	return r.IsMafia() || r == RoleDetective || r == RoleDoctor
}

func resolvePhase(s *Session, forced bool) StepResult {
	res := StepResult{Advanced: true, From: s.Phase, Forced: forced}

	switch s.Phase {
	case PhaseNight:
		res.Eliminated = resolveNight(s)
		s.Phase = PhaseDay
	case PhaseDay:
		s.Phase = PhaseVoting
	case PhaseVoting:
		res.Eliminated = resolveDayVotes(s)
		s.Phase = PhaseNight
		s.Round++
	case PhaseTasks:
		// A forced advance during tasks opens an emergency meeting.
		if s.State.TaskImpostor != nil {
			s.State.TaskImpostor.Votes = make(map[string]string)
			s.State.TaskImpostor.MeetingCaller = ""
		}
		s.Phase = PhaseMeeting
	case PhaseMeeting:
		res.Eliminated = resolveMeetingVotes(s)
		s.Phase = PhaseTasks
		s.Round++
	case PhaseHunt:
		// A forced advance ends the hunt; the win evaluator reports
		// whichever winner (if any) crossed the final level.
		s.Phase = PhaseFinished
	default:
		res.Advanced = false
	}

	res.To = s.Phase
	res.Round = s.Round
	return res
}

// resolveNight applies buffered night actions in fixed order: protections
// first, then kills, then investigations. A protect on the kill target
// always neutralizes a same-round kill regardless of submission order.
// Returns the eliminated player id, or "".
func resolveNight(s *Session) string {
	sd := s.State.SocialDeduction
	if sd == nil {
		return ""
	}

	protected := make(map[string]bool)
	for _, a := range sd.NightActions {
		if a.Kind == NightProtect {
			protected[a.TargetID] = true
		}
	}

	killTally := make(map[string]int)
	for _, a := range sd.NightActions {
		if a.Kind == NightKill {
			killTally[a.TargetID]++
		}
	}
	eliminated := ""
	if target, ok := pluralityTarget(killTally); ok && !protected[target] {
		if p := s.PlayerByID(target); p != nil && p.Alive() {
			p.Status = PlayerEliminated
			eliminated = target
		}
	}

	for actorID, a := range sd.NightActions {
		if a.Kind != NightInvestigate {
			continue
		}
		target := s.PlayerByID(a.TargetID)
		if target == nil {
			continue
		}
		sd.Investigations[actorID] = append(sd.Investigations[actorID], InvestigationResult{
			Round:    s.Round,
			TargetID: a.TargetID,
			IsMafia:  target.Role.IsMafia(),
		})
	}

	sd.NightActions = make(map[string]NightAction)
	sd.LastEliminated = eliminated
	return eliminated
}

func resolveDayVotes(s *Session) string {
	sd := s.State.SocialDeduction
	if sd == nil {
		return ""
	}
	eliminated := resolveBallot(s, sd.Votes)
	sd.Votes = make(map[string]string)
	sd.LastEliminated = eliminated
	return eliminated
}

func resolveMeetingVotes(s *Session) string {
	ti := s.State.TaskImpostor
	if ti == nil {
		return ""
	}
	eliminated := resolveBallot(s, ti.Votes)
	ti.Votes = make(map[string]string)
	ti.MeetingCaller = ""
	ti.LastEliminated = eliminated
	return eliminated
}

// resolveBallot tallies votes and eliminates the single top target. If
// multiple targets share the maximum count, or if "skip" ties or wins,
// nobody is eliminated that round.
func resolveBallot(s *Session, votes map[string]string) string {
	if len(votes) == 0 {
		return ""
	}
	tally := make(map[string]int)
	for _, target := range votes {
		tally[target]++
	}

	top, ok := pluralityTarget(tally)
	if !ok || top == VoteSkip {
		return ""
	}
	if tally[VoteSkip] >= tally[top] {
		return ""
	}

	p := s.PlayerByID(top)
	if p == nil || !p.Alive() {
		return ""
	}
	p.Status = PlayerEliminated
	p.VotesReceived = tally[top]
	return top
}

// pluralityTarget returns the unique key with the highest count. The
// second return is false on an empty tally or a tie for first place.
func pluralityTarget(tally map[string]int) (string, bool) {
	best, bestCount, tied := "", 0, false
	for target, count := range tally {
		switch {
		case count > bestCount:
			best, bestCount, tied = target, count, false
		case count == bestCount:
			tied = true
		}
	}
	if best == "" || tied {
		return "", false
	}
	return best, true
}
