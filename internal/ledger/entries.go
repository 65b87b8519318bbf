package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry represents one processed file
type Entry struct {
	ID        int64
	FilePath  string
	VideoID   string
	UpdatedAt time.Time
}

// IsProcessed reports whether an entry exists for the exact file path
func (l *Ledger) IsProcessed(filePath string) (bool, error) {
	var one int
	err := l.db.QueryRow("SELECT 1 FROM processed_files WHERE file_path = ?", filePath).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts or replaces the entry for filePath, stamping
// the current time. The write is durable once this returns.
func (l *Ledger) MarkProcessed(filePath, videoID string) error {
	_, err := l.db.Exec(`
		INSERT INTO processed_files (file_path, video_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			video_id = excluded.video_id,
			updated_at = excluded.updated_at
		`, filePath, videoID, time.Now())

	if err != nil {
		return fmt.Errorf("failed to mark processed: %w", err)
	}

	return nil
}

// Get retrieves the entry for a file path, or nil if none exists
func (l *Ledger) Get(filePath string) (*Entry, error) {
	e := &Entry{}
	err := l.db.QueryRow(`
		SELECT id, file_path, video_id, updated_at
		FROM processed_files WHERE file_path = ?
	`, filePath).Scan(&e.ID, &e.FilePath, &e.VideoID, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return e, nil
}

// All retrieves every ledger entry, oldest first
func (l *Ledger) All() ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, file_path, video_id, updated_at
		FROM processed_files
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.FilePath, &e.VideoID, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of processed files
func (l *Ledger) Count() (int, error) {
	var count int
	err := l.db.QueryRow("SELECT COUNT(*) FROM processed_files").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Remove deletes the entry for a file path, making it eligible for
// processing again on the next cycle. Removing an unknown path is a no-op.
func (l *Ledger) Remove(filePath string) error {
	_, err := l.db.Exec("DELETE FROM processed_files WHERE file_path = ?", filePath)
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	return nil
}
