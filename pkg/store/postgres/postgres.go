// Package postgres provides a durable storage backend on PostgreSQL via
// pgx. Sessions and baselines are stored as JSONB documents; the action
// log is a plain append-only table, which keeps the immutability contract
// visible in the schema.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/game"
)

// Store wraps a pgx pool with the engine's persistence contracts.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS actions (
			session_id TEXT NOT NULL,
			seq BIGSERIAL,
			data JSONB NOT NULL,
			PRIMARY KEY (session_id, seq)
		);
		CREATE TABLE IF NOT EXISTS baselines (
			player_id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveSession upserts the full session document.
func (s *Store) SaveSession(ctx context.Context, sess *game.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, sess.ID, data)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// LoadSession returns the stored session or game.ErrNotFound.
func (s *Store) LoadSession(ctx context.Context, id string) (*game.Session, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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

// ArchiveSession flags the session; archived rows are retention-managed
// by the operator, not deleted here.
func (s *Store) ArchiveSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET archived = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}

// AppendAction inserts one immutable action row.
func (s *Store) AppendAction(ctx context.Context, sessionID string, a game.Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action %s: %w", a.ID, err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO actions (session_id, data) VALUES ($1, $2)`, sessionID, data)
	if err != nil {
		return fmt.Errorf("append action %s: %w", a.ID, err)
	}
	return nil
}

// ListActions returns the session's actions in insertion order.
func (s *Store) ListActions(ctx context.Context, sessionID string) ([]game.Action, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM actions WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list actions for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []game.Action
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan action in %s: %w", sessionID, err)
		}
		var a game.Action
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode action in %s: %w", sessionID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions for %s: %w", sessionID, err)
	}
	return out, nil
}

// SaveBaseline upserts the player's behavior profile.
func (s *Store) SaveBaseline(ctx context.Context, playerID string, p *anticheat.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal baseline %s: %w", playerID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO baselines (player_id, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (player_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, playerID, data)
	if err != nil {
		return fmt.Errorf("save baseline %s: %w", playerID, err)
	}
	return nil
}

// LoadBaseline returns the stored profile or game.ErrNotFound.
func (s *Store) LoadBaseline(ctx context.Context, playerID string) (*anticheat.Profile, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM baselines WHERE player_id = $1`, playerID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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
