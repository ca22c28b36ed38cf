package shared

import (
	"database/sql"
	"testing"
)

func TestMigrations(t *testing.T) {
	openTestDB := func(t *testing.T) *sql.DB {
		t.Helper()
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	}

	tableExists := func(t *testing.T, db *sql.DB, name string) bool {
		t.Helper()
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query sqlite_master: %v", err)
		}
		return count > 0
	}

	t.Run("applies credentials table", func(t *testing.T) {
		db := openTestDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tableExists(t, db, "credentials") {
			t.Error("expected credentials table after migration")
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := openTestDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatal(err)
		}
		if err := RunMigrations(db); err != nil {
			t.Errorf("second run should be a no-op, got %v", err)
		}
	})

	t.Run("rollback drops table", func(t *testing.T) {
		db := openTestDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatal(err)
		}
		if err := RollbackMigration(db); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tableExists(t, db, "credentials") {
			t.Error("expected credentials table gone after rollback")
		}
	})

	t.Run("rollback with nothing applied", func(t *testing.T) {
		db := openTestDB(t)
		if _, err := db.Exec("CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY)"); err != nil {
			t.Fatal(err)
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when no migrations are applied")
		}
	})

	t.Run("single row credential slot", func(t *testing.T) {
		db := openTestDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec("INSERT INTO credentials (id, access_token) VALUES (1, 'tok')"); err != nil {
			t.Fatalf("insert into slot 1 should succeed: %v", err)
		}
		if _, err := db.Exec("INSERT INTO credentials (id, access_token) VALUES (2, 'tok2')"); err == nil {
			t.Error("expected CHECK constraint to reject a second row")
		}
	})
}
