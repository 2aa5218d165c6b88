// Package history keeps an SQLite audit trail of what rmfd removed, declined
// and failed to remove.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions stored in the removals table.
const (
	ActionRemove  = "REMOVE"
	ActionDryRun  = "DRY_RUN"
	ActionDecline = "DECLINE"
	ActionError   = "ERROR"
	ActionSkip    = "SKIP"
)

// DB manages the SQLite database of removal history
type DB struct {
	db *sql.DB
}

// Record is a single removal event
type Record struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	Action       string
	Path         string
	FileName     string
	ObjectType   string
	Size         int64
	Device       uint64
	Inode        uint64
	ErrorMessage string
	CreatedAt    time.Time
}

// Open creates or opens the history database at dbPath and initializes the schema
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exec rather than Ping so the file is created if missing
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize history database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	h := &DB{db: db}
	if err = h.initSchema(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		device INTEGER,
		inode INTEGER,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_removals_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_removals_action ON removals(action);
	CREATE INDEX IF NOT EXISTS idx_removals_path ON removals(path);
	CREATE INDEX IF NOT EXISTS idx_removals_run ON removals(run_id);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := h.db.Exec(schema)
	return err
}

// Record inserts one event. A zero Timestamp means now and an empty
// FileName is derived from Path.
func (h *DB) Record(r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.FileName == "" {
		r.FileName = filepath.Base(r.Path)
	}

	_, err := h.db.Exec(`
	INSERT INTO removals (
		run_id, timestamp, action, path, file_name, object_type, size,
		device, inode, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.Timestamp,
		r.Action,
		r.Path,
		r.FileName,
		r.ObjectType,
		r.Size,
		int64(r.Device),
		int64(r.Inode),
		r.ErrorMessage,
	)
	return err
}

// Close closes the database connection
func (h *DB) Close() error {
	return h.db.Close()
}
