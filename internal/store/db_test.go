package store

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestOpenDB_MigrationsAreAppliedAndIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "svgsafe.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB first: %v", err)
	}
	_ = db.Close()

	db, err = OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB second: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("migration count = %d, want %d", count, len(migrations))
	}
}

func TestOpenDB_UpgradesLegacySchemaWithoutDataLoss(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	if _, err := raw.Exec(`
		CREATE TABLE runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT NOT NULL,
			source TEXT NOT NULL,
			input_sha256 TEXT NOT NULL,
			input_bytes INTEGER NOT NULL,
			output_bytes INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			reason TEXT,
			signature TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		t.Fatalf("create legacy runs: %v", err)
	}
	if _, err := raw.Exec(`
		INSERT INTO runs(mode, source, input_sha256, input_bytes, outcome, reason, signature)
		VALUES ('document', 'legacy.svg', 'abc', 10, 'rejected', 'content_signature_match', 'script-open')
	`); err != nil {
		t.Fatalf("insert legacy run: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close legacy db: %v", err)
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB upgrade: %v", err)
	}
	defer db.Close()

	hasDigest, err := hasRunColumnInDB(db, "output_sha256")
	if err != nil {
		t.Fatalf("check output_sha256 column: %v", err)
	}
	if !hasDigest {
		t.Fatalf("expected output_sha256 column after migration")
	}

	var sig string
	if err := db.QueryRow(`SELECT signature FROM run_signatures WHERE position = 0`).Scan(&sig); err != nil {
		t.Fatalf("read migrated signature: %v", err)
	}
	if sig != "script-open" {
		t.Fatalf("migrated signature = %q, want script-open", sig)
	}
}

func hasRunColumnInDB(db *sql.DB, column string) (bool, error) {
	rows, err := db.Query(`PRAGMA table_info(runs);`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
