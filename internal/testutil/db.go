package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matchdayhq/matchday/internal/db"
)

// NewTestDB opens a migrated SQLite database in a per-test temp dir and closes
// it when the test finishes.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "matchday_test.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// SeedUser inserts a verified user, keeping per-test setup short.
func SeedUser(t *testing.T, database *db.DB, email, username string) db.User {
	t.Helper()

	ctx := context.Background()
	user, err := database.Queries.CreateUser(ctx, db.CreateUserParams{
		Email:             email,
		Username:          username,
		PasswordHash:      "test-hash",
		VerificationToken: "test-token-" + username,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	if _, err := database.Queries.VerifyUserByToken(ctx, "test-token-"+username); err != nil {
		t.Fatalf("verify user %s: %v", email, err)
	}
	user.IsVerified = true
	return user
}
