package ledger

import (
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-ledger.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer l.Close()

	// Verify schema version
	version, err := l.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	// Verify tables exist
	tables := []string{"processed_files", "schema_version"}
	for _, table := range tables {
		var count int
		err := l.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestMarkAndIsProcessed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-ledger.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer l.Close()

	processed, err := l.IsProcessed("/media/abcXYZ123.mp4")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Error("expected fresh ledger to report file as unprocessed")
	}

	if err := l.MarkProcessed("/media/abcXYZ123.mp4", "abcXYZ123"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	processed, err = l.IsProcessed("/media/abcXYZ123.mp4")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Error("expected file to be reported as processed")
	}

	// An entry for one path must not match another path
	processed, err = l.IsProcessed("/media/other.mp4")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Error("expected different path to be unprocessed")
	}

	entry, err := l.Get("/media/abcXYZ123.mp4")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.VideoID != "abcXYZ123" {
		t.Errorf("expected video ID abcXYZ123, got %s", entry.VideoID)
	}
	if entry.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be stamped")
	}
}

func TestMarkProcessedReplaces(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-ledger.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer l.Close()

	if err := l.MarkProcessed("/media/a.mp4", "first"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := l.MarkProcessed("/media/a.mp4", "second"); err != nil {
		t.Fatalf("MarkProcessed (replace) failed: %v", err)
	}

	// At most one entry per file path
	count, err := l.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry after replace, got %d", count)
	}

	entry, err := l.Get("/media/a.mp4")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.VideoID != "second" {
		t.Errorf("expected replaced video ID, got %s", entry.VideoID)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-ledger.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	if err := l.MarkProcessed("/media/keep.mp4", "keepID"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	defer reopened.Close()

	processed, err := reopened.IsProcessed("/media/keep.mp4")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Error("expected entry to survive a reopen")
	}
}

func TestRemoveAndAll(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-ledger.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer l.Close()

	paths := []string{"/media/a.mp4", "/media/b.mp4", "/media/c.mp4"}
	for i, p := range paths {
		if err := l.MarkProcessed(p, string(rune('a'+i))); err != nil {
			t.Fatalf("MarkProcessed failed: %v", err)
		}
	}

	entries, err := l.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].FilePath != "/media/a.mp4" {
		t.Errorf("expected oldest-first ordering, got %s first", entries[0].FilePath)
	}

	if err := l.Remove("/media/b.mp4"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	processed, err := l.IsProcessed("/media/b.mp4")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Error("expected removed entry to be unprocessed again")
	}

	// Removing an unknown path is a no-op
	if err := l.Remove("/media/unknown.mp4"); err != nil {
		t.Errorf("Remove of unknown path should not fail: %v", err)
	}
}
