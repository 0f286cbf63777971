// Package sqlite is the default session store backend: a single SQLite
// file under the project's .bobai/ directory (spec.md §6), opened with the
// pure-Go modernc.org/sqlite driver so the binary needs no CGO toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nilcaream/bobai/pkg/session"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the SQLite-backed implementation of session.Store.
type Store struct {
	db *sql.DB
}

var _ session.Store = (*Store)(nil)

// Open opens (or creates) a SQLite database at path and applies any
// pending migrations. Pass ":memory:" for an ephemeral in-process store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// SQLite serializes writers regardless of connection count; a single
	// connection avoids SQLITE_BUSY under concurrent AppendMessage calls
	// instead of relying on busy-retry loops.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := versionFromName(name)
		if err != nil {
			return err
		}

		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		sqlBytes, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}

// versionFromName parses the leading numeric prefix of a migration file
// name, e.g. "0001_init.sql" -> 1.
func versionFromName(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration file %q missing version prefix", name)
	}
	return strconv.Atoi(prefix)
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateSession atomically creates a new session and its seed system
// message at sort order 0 (spec.md §3, §4.4).
func (s *Store) CreateSession(ctx context.Context, systemPrompt string) (session.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return session.Session{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	id := session.NewSessionID()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, "", now, now,
	); err != nil {
		return session.Session{}, fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sort_order, role, content, metadata, created_at)
		 VALUES (?, ?, 0, ?, ?, NULL, ?)`,
		session.NewMessageID(), id, string(session.RoleSystem), systemPrompt, now,
	); err != nil {
		return session.Session{}, fmt.Errorf("insert seed message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return session.Session{}, fmt.Errorf("commit: %w", err)
	}

	return session.Session{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	var sess session.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered descending by updated_at,
// then by insertion order (spec.md §4.4).
func (s *Store) ListSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC, rowid ASC`)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var sortOrder int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&sortOrder); err != nil {
		return 0, fmt.Errorf("compute sort_order: %w", err)
	}

	var metadataJSON any
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = string(b)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sort_order, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.NewMessageID(), sessionID, sortOrder, string(role), content, metadataJSON, now,
	); err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return 0, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return sortOrder, nil
}

// GetMessages returns a session's messages ordered ascending by sort_order.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sort_order, role, content, metadata, created_at
		 FROM messages WHERE session_id = ? ORDER BY sort_order ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var out []session.Message
	for rows.Next() {
		var m session.Message
		var role string
		var metadataJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SortOrder, &role, &m.Content, &metadataJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = session.Role(role)
		if metadataJSON.Valid {
			var meta session.Metadata
			if err := json.Unmarshal([]byte(metadataJSON.String), &meta); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
			m.Metadata = &meta
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
