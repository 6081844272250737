package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "svgsafe.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewStore(db)
}

func mustRecordRun(t *testing.T, store *Store, in RecordRunInput) Run {
	t.Helper()
	run, err := store.RecordRun(context.Background(), in)
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	return run
}
