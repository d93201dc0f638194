package identity

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"taskman/migrations"
)

// testPool connects to the database named by TASKMAN_TEST_DATABASE_URL and
// applies migrations. Tests using it are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TASKMAN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TASKMAN_TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.Up(db, "."); err != nil {
		t.Fatalf("goose up: %v", err)
	}
	_ = db.Close()

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func uniqueEmail(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("%s-%d@example.com", t.Name(), time.Now().UnixNano())
}

func TestPostgresStore_CreateAndLookup(t *testing.T) {
	pool := testPool(t)
	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	email := uniqueEmail(t)
	now := time.Now().UTC()

	created, err := store.CreateAccount(ctx, CreateAccountInput{
		Name:     "Integration Ada",
		Email:    email,
		Password: "long-enough-password",
		Now:      now,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	t.Cleanup(func() { _ = store.DeleteAccount(ctx, created.ID) })

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != email {
		t.Fatalf("GetByID email=%q want %q", got.Email, email)
	}

	auth, err := store.GetAuthByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetAuthByEmail: %v", err)
	}
	ok, err := VerifyPassword("long-enough-password", auth.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored credential does not verify: ok=%v err=%v", ok, err)
	}
}

func TestPostgresStore_DuplicateEmailConflicts(t *testing.T) {
	pool := testPool(t)
	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	email := uniqueEmail(t)

	first, err := store.CreateAccount(ctx, CreateAccountInput{
		Name:     "First",
		Email:    email,
		Password: "long-enough-password",
		Now:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	t.Cleanup(func() { _ = store.DeleteAccount(ctx, first.ID) })

	// Same address with different case must hit the normalized unique index.
	_, err = store.CreateAccount(ctx, CreateAccountInput{
		Name:     "Second",
		Email:    "  " + email + "  ",
		Password: "long-enough-password",
		Now:      time.Now().UTC(),
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPostgresStore_AvatarLifecycle(t *testing.T) {
	pool := testPool(t)
	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	created, err := store.CreateAccount(ctx, CreateAccountInput{
		Name:     "Avatar Ada",
		Email:    uniqueEmail(t),
		Password: "long-enough-password",
		Now:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	t.Cleanup(func() { _ = store.DeleteAccount(ctx, created.ID) })

	if _, err := store.GetAvatar(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("expected not-found before upload, got %v", err)
	}

	payload := []byte{0x89, 0x50, 0x4e, 0x47, 1, 2, 3}
	if err := store.SetAvatar(ctx, created.ID, payload, time.Now().UTC()); err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}

	got, err := store.GetAvatar(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetAvatar: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("avatar round-trip mismatch")
	}

	if err := store.ClearAvatar(ctx, created.ID, time.Now().UTC()); err != nil {
		t.Fatalf("ClearAvatar: %v", err)
	}
	if _, err := store.GetAvatar(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("expected not-found after clear, got %v", err)
	}
}
