// Package postgres is an alternate session.Store backend for a
// shared/remote deployment of the server across project checkouts
// (spec.md §6), instead of the per-project SQLite file. It uses pgx/v5
// for connection pooling and JSONB for the metadata column.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nilcaream/bobai/pkg/session"
)

// Store is the PostgreSQL-backed implementation of session.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ session.Store = (*Store)(nil)

// New creates a PostgreSQL store with the given configuration. If
// cfg.MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// CreateSession atomically creates a new session and its seed system
// message at sort order 0 (spec.md §3, §4.4).
func (s *Store) CreateSession(ctx context.Context, systemPrompt string) (session.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return session.Session{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	id := session.NewSessionID()

	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, "", now, now,
	); err != nil {
		return session.Session{}, fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO messages (id, session_id, sort_order, role, content, metadata, created_at)
		 VALUES ($1, $2, 0, $3, $4, NULL, $5)`,
		session.NewMessageID(), id, string(session.RoleSystem), systemPrompt, now,
	); err != nil {
		return session.Session{}, fmt.Errorf("insert seed message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return session.Session{}, fmt.Errorf("commit: %w", err)
	}

	return session.Session{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	var sess session.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered descending by updated_at,
// then by insertion order.
func (s *Store) ListSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC, ctid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Session
	for rows.Next() {
		var sess session.Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// AppendMessage assigns the next sort_order for sessionID and persists the
// message within a single transaction, so concurrent appends to the same
// session never collide or skip an order value (spec.md §4.4, §5, §8).
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role session.Role, content string, metadata *session.Metadata) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent appends to this session: the advisory lock is
	// released automatically at transaction end.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
		return 0, fmt.Errorf("lock session: %w", err)
	}

	var sortOrder int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM messages WHERE session_id = $1`, sessionID,
	).Scan(&sortOrder); err != nil {
		return 0, fmt.Errorf("compute sort_order: %w", err)
	}

	var metadataJSON []byte
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`INSERT INTO messages (id, session_id, sort_order, role, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.NewMessageID(), sessionID, sortOrder, string(role), content, metadataJSON, now,
	); err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = $1 WHERE id = $2`, now, sessionID); err != nil {
		return 0, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return sortOrder, nil
}

// GetMessages returns a session's messages ordered ascending by sort_order.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, sort_order, role, content, metadata, created_at
		 FROM messages WHERE session_id = $1 ORDER BY sort_order ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var out []session.Message
	for rows.Next() {
		var m session.Message
		var role string
		var metadataJSON []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SortOrder, &role, &m.Content, &metadataJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = session.Role(role)
		if metadataJSON != nil {
			var meta session.Metadata
			if err := json.Unmarshal(metadataJSON, &meta); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
			m.Metadata = &meta
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
