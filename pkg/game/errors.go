package game

import "errors"

// Validation failures surfaced synchronously to the caller. Apply is
// all-or-nothing: none of these leave partial mutations behind.
var (
	// ErrInsufficientPlayers means the session has fewer players than the
	// game type's documented minimum (4 for the role games, 2 for hunts).
	ErrInsufficientPlayers = errors.New("insufficient players for game type")

	// ErrGameNotActive means the session is not in the ACTIVE status.
	ErrGameNotActive = errors.New("game is not active")

	// ErrUnknownPlayer means the actor is not a member of the session.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrEliminatedPlayer means a turn-gated action came from an
	// eliminated player.
	ErrEliminatedPlayer = errors.New("player is eliminated")

	// ErrRoleMismatch means the action requires a role the actor does not
	// hold.
	ErrRoleMismatch = errors.New("action not permitted for role")

	// ErrSessionClosed means the session reached FINISHED; no further
	// actions are accepted, ever.
	ErrSessionClosed = errors.New("session is closed")

	// ErrUnknownActionType means the action type is not defined for the
	// session's game type.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrChallengeNotFound means the referenced challenge does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrInvalidTarget means the action references a target that is not a
	// valid, living session member.
	ErrInvalidTarget = errors.New("invalid action target")

	// ErrHintLimitReached means the team exhausted its hint allowance.
	ErrHintLimitReached = errors.New("hint limit reached")

	// ErrWrongPhase means the action type is not accepted in the current
	// phase.
	ErrWrongPhase = errors.New("action not accepted in current phase")

	// ErrDuplicatePlayer means the joining player id is already a member.
	ErrDuplicatePlayer = errors.New("player already in session")

	// ErrSessionNotWaiting means join/leave/start was attempted after the
	// session left the WAITING status.
	ErrSessionNotWaiting = errors.New("session is no longer accepting players")

	// ErrNotFound indicates a requested record is missing from a store.
	ErrNotFound = errors.New("record not found")
)
