package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close history: %v", err)
		}
	})
	return db
}

// TestDatabaseCreation verifies the file is created and WAL mode is on
func TestDatabaseCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file not created at %s", dbPath)
	}

	var journalMode string
	if err := db.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}
}

// TestSchemaCreation verifies tables and indexes exist
func TestSchemaCreation(t *testing.T) {
	db := openTestDB(t)

	var name string
	if err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='removals'").Scan(&name); err != nil {
		t.Errorf("removals table not found: %v", err)
	}

	for _, idx := range []string{"idx_removals_timestamp", "idx_removals_action", "idx_removals_path", "idx_removals_run"} {
		if err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name); err != nil {
			t.Errorf("Index %s not found: %v", idx, err)
		}
	}
}

// TestRecordAndQuery verifies fields round trip through Record and ByRun
func TestRecordAndQuery(t *testing.T) {
	db := openTestDB(t)

	in := Record{
		RunID:        "run-1",
		Action:       ActionError,
		Path:         "/tmp/a/b",
		ObjectType:   "directory",
		Size:         4096,
		Device:       2049,
		Inode:        1234567,
		ErrorMessage: "Permission denied",
	}
	if err := db.Record(in); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := db.ByRun("run-1")
	if err != nil {
		t.Fatalf("ByRun failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.FileName != "b" {
		t.Errorf("FileName = %q, expected b", r.FileName)
	}
	if r.Device != 2049 || r.Inode != 1234567 {
		t.Errorf("identity = %d:%d", r.Device, r.Inode)
	}
	if r.ErrorMessage != "Permission denied" || r.Action != ActionError {
		t.Errorf("unexpected record %+v", r)
	}
	if r.Timestamp.IsZero() {
		t.Error("Timestamp should default to now")
	}
}

// TestQueryMethods exercises the filtered queries
func TestQueryMethods(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	actions := []string{ActionRemove, ActionRemove, ActionDecline, ActionSkip, ActionError}
	for i, a := range actions {
		err := db.Record(Record{
			RunID:      fmt.Sprintf("run-%d", i%2),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Action:     a,
			Path:       fmt.Sprintf("/data/file%d.log", i),
			ObjectType: "regular file",
			Size:       100,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := db.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Path != "/data/file4.log" {
		t.Errorf("Recent returned %+v", recent)
	}

	removed, err := db.ByAction(ActionRemove, 10)
	if err != nil {
		t.Fatalf("ByAction failed: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("Expected 2 REMOVE records, got %d", len(removed))
	}

	byPath, err := db.ByPath("/data/file3%", 10)
	if err != nil {
		t.Fatalf("ByPath failed: %v", err)
	}
	if len(byPath) != 1 || byPath[0].Action != ActionSkip {
		t.Errorf("ByPath returned %+v", byPath)
	}

	counts, err := db.CountByAction()
	if err != nil {
		t.Fatalf("CountByAction failed: %v", err)
	}
	if counts[ActionRemove] != 2 || counts[ActionDecline] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}

	stats, err := db.Stats(1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRemoved != 2 || stats.TotalErrors != 1 || stats.TotalSkipped != 1 || stats.TotalDeclined != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.BytesRemoved != 200 {
		t.Errorf("BytesRemoved = %d, expected 200", stats.BytesRemoved)
	}
	if stats.Runs != 2 {
		t.Errorf("Runs = %d, expected 2", stats.Runs)
	}
}

// TestDeleteOlderThan verifies pruning by age
func TestDeleteOlderThan(t *testing.T) {
	db := openTestDB(t)

	old := Record{RunID: "r", Timestamp: time.Now().AddDate(0, 0, -40), Action: ActionRemove, Path: "/old", ObjectType: "regular file"}
	fresh := Record{RunID: "r", Action: ActionRemove, Path: "/new", ObjectType: "regular file"}
	for _, r := range []Record{old, fresh} {
		if err := db.Record(r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	n, err := db.DeleteOlderThan(30)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, expected 1", n)
	}

	left, _ := db.Recent(10)
	if len(left) != 1 || left[0].Path != "/new" {
		t.Errorf("unexpected remaining rows %+v", left)
	}
}

// TestConcurrentReads verifies WAL allows parallel readers
func TestConcurrentReads(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 50; i++ {
		if err := db.Record(Record{RunID: "r", Action: ActionRemove, Path: fmt.Sprintf("/f%d", i), ObjectType: "regular file"}); err != nil {
			t.Fatalf("Failed to insert test data: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := db.Recent(10); err != nil {
					errs <- fmt.Errorf("reader %d iteration %d: %v", id, j, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent read error: %v", err)
	}
}

// TestOpenUnwritable verifies a helpful error when the directory cannot be created
func TestOpenUnwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(filepath.Join(blocker, "history.db")); err == nil {
		t.Error("expected error opening database beneath a regular file")
	}
}
