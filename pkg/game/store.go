package game

import "context"

// SessionStore is the persistence boundary for sessions. The concrete
// engine (memory, redis, postgres) is an external collaborator injected
// into the Manager; the core never assumes a process-wide registry.
type SessionStore interface {
	// SaveSession writes the full session record.
	SaveSession(ctx context.Context, s *Session) error

	// LoadSession returns the session or ErrNotFound.
	LoadSession(ctx context.Context, id string) (*Session, error)

	// ArchiveSession removes the session from the active set. Finished
	// and cancelled sessions are archived, never updated in place.
	ArchiveSession(ctx context.Context, id string) error
}

// ActionStore persists the append-only action log.
type ActionStore interface {
	// AppendAction durably records one action. Actions are immutable
	// once appended.
	AppendAction(ctx context.Context, sessionID string, a Action) error

	// ListActions returns the session's actions in (round, timestamp)
	// order.
	ListActions(ctx context.Context, sessionID string) ([]Action, error)
}
