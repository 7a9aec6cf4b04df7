package game

import (
	"sort"
	"sync"
	"time"
)

// ActionType identifies a player-submitted move.
type ActionType string

const (
	ActionVote         ActionType = "vote"
	ActionKill         ActionType = "kill"        // mafia night kill, or impostor kill during tasks
	ActionProtect      ActionType = "protect"     // doctor
	ActionInvestigate  ActionType = "investigate" // detective
	ActionCompleteTask ActionType = "complete_task"
	ActionCallMeeting  ActionType = "call_meeting"
	ActionSolve        ActionType = "solve_challenge"
	ActionHint         ActionType = "use_hint"
	ActionChat         ActionType = "chat"
)

// Payload carries the type-specific fields of an action. Unused fields
// stay zero; the processor validates only what the action type needs.
type Payload struct {
	TargetID    string   `json:"target_id,omitempty"`
	TaskID      string   `json:"task_id,omitempty"`
	ChallengeID string   `json:"challenge_id,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Lat         float64  `json:"lat,omitempty"`
	Lon         float64  `json:"lon,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Text        string   `json:"text,omitempty"`
}

// Action is one immutable entry in a session's log: the single source of
// truth for both phase resolution and behavior analysis. Once appended it
// is never mutated, reordered, or deleted.
type Action struct {
	ID        string     `json:"id"`
	ActorID   string     `json:"actor_id"`
	Type      ActionType `json:"action_type"`
	Payload   Payload    `json:"payload"`
	Timestamp time.Time  `json:"timestamp"`
	Round     int        `json:"round_id"`
	Phase     Phase      `json:"phase"`
}

// Log is the append-only, time-ordered action record for one session.
// Writers append under the session lock; readers take snapshots and never
// block the write path.
type Log struct {
	mu      sync.RWMutex
	actions []Action
}

// NewLog returns an empty action log.
func NewLog() *Log {
	return &Log{}
}

// Append records an action. Entries are kept totally ordered by
// (round, timestamp); out-of-order appends are re-sorted into place so the
// ordering invariant holds even when callers race on wall clocks.
func (l *Log) Append(a Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
	// Appends are almost always in order; fix up the rare straggler.
	for i := len(l.actions) - 1; i > 0; i-- {
		if !actionBefore(l.actions[i], l.actions[i-1]) {
			break
		}
		l.actions[i], l.actions[i-1] = l.actions[i-1], l.actions[i]
	}
}

// Snapshot returns an immutable copy of the log for analysis.
func (l *Log) Snapshot() []Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Len returns the number of recorded actions.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.actions)
}

// Restore rebuilds a log from persisted actions, restoring total order.
func Restore(actions []Action) *Log {
	out := make([]Action, len(actions))
	copy(out, actions)
	sort.SliceStable(out, func(i, j int) bool { return actionBefore(out[i], out[j]) })
	return &Log{actions: out}
}

func actionBefore(a, b Action) bool {
	if a.Round != b.Round {
		return a.Round < b.Round
	}
	return a.Timestamp.Before(b.Timestamp)
}
