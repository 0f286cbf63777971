package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session lookup finds nothing.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions and their message logs. Implementations must
// guarantee that AppendMessage assigns a strictly increasing sort_order
// per session even under concurrent callers, and that CreateSession
// inserts the session row and its seed system message atomically
// (spec.md §4.4, §5).
type Store interface {
	// CreateSession atomically creates a new session and its seed system
	// message at sort order 0.
	CreateSession(ctx context.Context, systemPrompt string) (Session, error)

	// AppendMessage assigns the next sort_order for sessionID and
	// persists the message within a single transaction, also bumping the
	// session's updated_at. Returns the assigned sort order.
	AppendMessage(ctx context.Context, sessionID string, role Role, content string, metadata *Metadata) (sortOrder int64, err error)

	// GetSession fetches a session by id. Returns ErrNotFound if absent.
	GetSession(ctx context.Context, id string) (Session, error)

	// ListSessions returns all sessions ordered descending by
	// updated_at, then by insertion order.
	ListSessions(ctx context.Context) ([]Session, error)

	// GetMessages returns a session's messages ordered ascending by
	// sort_order.
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// Close releases store resources.
	Close() error
}
