package postgres

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nilcaream/bobai/pkg/session"
)

func init() {
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if podman is not on PATH, if SKIP_INTEGRATION=true, or
// if the container cannot be started.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("bobai_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestPostgresCreateSessionSeedsSystemMessage(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "system prompt")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	msgs, err := store.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != session.RoleSystem {
		t.Fatalf("got %+v, want a single seed system message", msgs)
	}
}

func TestPostgresAppendMessageOrdering(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "system")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		order, err := store.AppendMessage(ctx, sess.ID, session.RoleUser, "msg", nil)
		if err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
		if order != int64(i+1) {
			t.Fatalf("append %d: got sort_order %d, want %d", i, order, i+1)
		}
	}

	msgs, err := store.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
}

// TestPostgresAppendMessageConcurrent verifies concurrent appends to the
// same session never collide or skip a sort_order value (spec.md §5, §8).
func TestPostgresAppendMessageConcurrent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "system")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AppendMessage(ctx, sess.ID, session.RoleUser, "x", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	msgs, err := store.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != n+1 {
		t.Fatalf("got %d messages, want %d", len(msgs), n+1)
	}
	seen := make(map[int64]bool)
	for _, m := range msgs {
		if seen[m.SortOrder] {
			t.Fatalf("duplicate sort_order %d", m.SortOrder)
		}
		seen[m.SortOrder] = true
	}
}

func TestPostgresGetSessionNotFound(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.GetSession(context.Background(), "does-not-exist")
	if err != session.ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
