// Package redis provides a Redis-backed storage backend for sessions,
// action logs, and detection baselines. Sessions and baselines are JSON
// values; action logs are RPUSH-ordered lists, matching the append-only
// contract.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/game"
)

// Store wraps a Redis client with the engine's persistence contracts.
type Store struct {
	client     *redis.Client
	archiveTTL time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithArchiveTTL sets the expiry applied to archived sessions and their
// logs. Zero keeps them forever.
func WithArchiveTTL(d time.Duration) Option {
	return func(s *Store) { s.archiveTTL = d }
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	s := &Store{client: client, archiveTTL: time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewWithClient wraps an existing client; tests use this with miniredis.
func NewWithClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, archiveTTL: time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(id string) string  { return "arbiter:session:" + id }
func actionsKey(id string) string  { return "arbiter:actions:" + id }
func baselineKey(id string) string { return "arbiter:baseline:" + id }

// SaveSession writes the session as a JSON value.
func (s *Store) SaveSession(ctx context.Context, sess *game.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// LoadSession returns the stored session or game.ErrNotFound.
func (s *Store) LoadSession(ctx context.Context, id string) (*game.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var sess game.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// ArchiveSession applies the archive TTL to the session and its log so
// Redis expires them instead of an application sweep.
func (s *Store) ArchiveSession(ctx context.Context, id string) error {
	exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("archive session %s: %w", id, err)
	}
	if exists == 0 {
		return game.ErrNotFound
	}
	if s.archiveTTL <= 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	pipe.Expire(ctx, sessionKey(id), s.archiveTTL)
	pipe.Expire(ctx, actionsKey(id), s.archiveTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive session %s: %w", id, err)
	}
	return nil
}

// AppendAction RPUSHes one action onto the session's log list.
func (s *Store) AppendAction(ctx context.Context, sessionID string, a game.Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action %s: %w", a.ID, err)
	}
	if err := s.client.RPush(ctx, actionsKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("append action %s: %w", a.ID, err)
	}
	return nil
}

// ListActions returns the persisted log in append order.
func (s *Store) ListActions(ctx context.Context, sessionID string) ([]game.Action, error) {
	raw, err := s.client.LRange(ctx, actionsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list actions for %s: %w", sessionID, err)
	}
	out := make([]game.Action, 0, len(raw))
	for _, item := range raw {
		var a game.Action
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("decode action in %s: %w", sessionID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// SaveBaseline stores the player's behavior profile as JSON.
func (s *Store) SaveBaseline(ctx context.Context, playerID string, p *anticheat.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal baseline %s: %w", playerID, err)
	}
	if err := s.client.Set(ctx, baselineKey(playerID), data, 0).Err(); err != nil {
		return fmt.Errorf("save baseline %s: %w", playerID, err)
	}
	return nil
}

// LoadBaseline returns the stored profile or game.ErrNotFound.
func (s *Store) LoadBaseline(ctx context.Context, playerID string) (*anticheat.Profile, error) {
	data, err := s.client.Get(ctx, baselineKey(playerID)).Bytes()
	if err == redis.Nil {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline %s: %w", playerID, err)
	}
	var p anticheat.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode baseline %s: %w", playerID, err)
	}
	return &p, nil
}

var (
	_ game.SessionStore       = (*Store)(nil)
	_ game.ActionStore        = (*Store)(nil)
	_ anticheat.BaselineStore = (*Store)(nil)
)
