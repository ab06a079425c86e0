// Package testing provides testing utilities and helpers for the fundcore project.
package testing

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aristath/fundcore/internal/database"
	"github.com/aristath/fundcore/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// NewTestDB creates a file-backed SQLite database in a per-test temp dir.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
//
// Supported names:
//   - "ledger" - applies the ledger schema
//   - anything else - creates an empty database
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), fmt.Sprintf("%s.db", name)),
		Profile: database.ProfileLedger,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if name == "ledger" {
		repo := ledger.NewRepository(db.Conn(), "test", zerolog.Nop())
		if err := repo.Migrate(context.Background()); err != nil {
			_ = db.Close()
			t.Fatalf("Failed to migrate test database %s: %v", name, err)
		}
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			// Log error but don't fail test
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}
