// Package memory provides the default in-process storage backend. It
// implements the engine's session and action stores plus the detection
// baseline store, with TTL-based cleanup of archived records.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/game"
)

// Store is a mutex-guarded in-memory backend. Archived sessions are
// retained for MaxAge so late reads (spectators, post-game analysis)
// still resolve, then swept.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*sessionRecord
	actions   map[string][]game.Action
	baselines map[string]*anticheat.Profile

	maxAge          time.Duration
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

type sessionRecord struct {
	session    *game.Session
	archivedAt time.Time // zero while active
}

// Option configures the store.
type Option func(*Store)

// WithMaxAge sets how long archived sessions are retained.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

// WithCleanupInterval sets the sweep cadence.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Store) { s.cleanupInterval = d }
}

// New creates a store and starts its cleanup goroutine.
func New(opts ...Option) *Store {
	s := &Store{
		sessions:        make(map[string]*sessionRecord),
		actions:         make(map[string][]game.Action),
		baselines:       make(map[string]*anticheat.Profile),
		maxAge:          time.Hour,
		cleanupInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop()
	return s
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// SaveSession stores a deep copy so later engine mutations never leak in.
func (s *Store) SaveSession(_ context.Context, sess *game.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sess.ID]
	if !ok {
		rec = &sessionRecord{}
		s.sessions[sess.ID] = rec
	}
	rec.session = sess.Clone()
	return nil
}

// LoadSession returns a copy of the stored session or game.ErrNotFound.
func (s *Store) LoadSession(_ context.Context, id string) (*game.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	return rec.session.Clone(), nil
}

// ArchiveSession marks the session for TTL-based removal. Archived
// sessions remain readable until the sweep drops them.
func (s *Store) ArchiveSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return game.ErrNotFound
	}
	rec.archivedAt = time.Now()
	return nil
}

// AppendAction records one immutable action.
func (s *Store) AppendAction(_ context.Context, sessionID string, a game.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[sessionID] = append(s.actions[sessionID], a)
	return nil
}

// ListActions returns a copy of the session's persisted actions.
func (s *Store) ListActions(_ context.Context, sessionID string) ([]game.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.actions[sessionID]
	out := make([]game.Action, len(src))
	copy(out, src)
	return out, nil
}

// SaveBaseline stores the player's historical behavior profile.
func (s *Store) SaveBaseline(_ context.Context, playerID string, p *anticheat.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.baselines[playerID] = &cp
	return nil
}

// LoadBaseline returns the stored profile or game.ErrNotFound.
func (s *Store) LoadBaseline(_ context.Context, playerID string) (*anticheat.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.baselines[playerID]
	if !ok {
		return nil, game.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Stats reports current record counts.
func (s *Store) Stats() (sessions, actions, baselines int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acts := range s.actions {
		actions += len(acts)
	}
	return len(s.sessions), actions, len(s.baselines)
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// cleanup drops archived sessions past MaxAge, along with their logs.
// Baselines are cross-session history and never expire here.
func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, rec := range s.sessions {
		if !rec.archivedAt.IsZero() && now.Sub(rec.archivedAt) > s.maxAge {
			delete(s.sessions, id)
			delete(s.actions, id)
		}
	}
}

var (
	_ game.SessionStore       = (*Store)(nil)
	_ game.ActionStore        = (*Store)(nil)
	_ anticheat.BaselineStore = (*Store)(nil)
)
