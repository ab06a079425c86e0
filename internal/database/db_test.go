package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), Profile: profile, Name: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/tmp/x.db", []string{"/tmp/x.db?_pragma=journal_mode(WAL)", "synchronous(FULL)", "auto_vacuum(NONE)", "foreign_keys(1)"}},
		{"file:mem?mode=memory", []string{"file:mem?mode=memory&_pragma=journal_mode(WAL)", "synchronous(FULL)"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			conn := buildConnectionString(tt.path, ProfileLedger)
			for _, want := range tt.want {
				assert.Contains(t, conn, want)
			}
		})
	}
}

func TestNew_RejectsUnknownProfile(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Profile: "cache", Name: "x"})
	assert.ErrorContains(t, err, "unknown database profile")
}

func TestNew_DefaultsAndMigrate(t *testing.T) {
	db := newTestDB(t, "")
	assert.Equal(t, ProfileLedger, db.Profile())
	assert.Equal(t, "test", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))

	schema := `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`
	require.NoError(t, db.Migrate(schema))
	require.NoError(t, db.Migrate(schema))

	_, err := db.Conn().Exec(`INSERT INTO items (name) VALUES ('a')`)
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t, ProfileLedger)
	require.NoError(t, db.Migrate(`CREATE TABLE IF NOT EXISTS items (name TEXT NOT NULL)`))

	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
		return n
	}

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items VALUES ('kept')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec(`INSERT INTO items VALUES ('dropped')`)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec(`INSERT INTO items VALUES ('dropped')`)
		panic("bad")
	})
	assert.ErrorContains(t, err, "panic in transaction")
	assert.Equal(t, 1, count())

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestHealthAndCheckpoint(t *testing.T) {
	db := newTestDB(t, ProfileLedger)
	require.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.WALCheckpoint(""))
	require.NoError(t, db.WALCheckpoint("PASSIVE"))
	assert.Error(t, db.WALCheckpoint("DROP TABLE"))
}

func TestBackupTo(t *testing.T) {
	db := newTestDB(t, ProfileLedger)
	require.NoError(t, db.Migrate(`CREATE TABLE orders (id TEXT PRIMARY KEY)`))
	_, err := db.Conn().Exec(`INSERT INTO orders (id) VALUES ('o-1'), ('o-2')`)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, db.BackupTo(context.Background(), dst))
	assert.Error(t, db.BackupTo(context.Background(), dst), "existing targets are not overwritten")

	copied, err := New(Config{Path: dst, Name: "copy"})
	require.NoError(t, err)
	defer copied.Close()

	var n int
	require.NoError(t, copied.Conn().QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n))
	assert.Equal(t, 2, n)
}
