package history

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, run_id, timestamp, action, path, file_name, object_type, size,
	       device, inode, error_message, created_at
	FROM removals
`

// Recent returns the N most recent events
func (h *DB) Recent(limit int) ([]Record, error) {
	return h.query(selectColumns+`ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// ByAction returns events with the given action
func (h *DB) ByAction(action string, limit int) ([]Record, error) {
	return h.query(selectColumns+`WHERE action = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, action, limit)
}

// ByPath returns events whose path matches a LIKE pattern
func (h *DB) ByPath(pattern string, limit int) ([]Record, error) {
	return h.query(selectColumns+`WHERE path LIKE ? ORDER BY timestamp DESC, id DESC LIMIT ?`, pattern, limit)
}

// ByRun returns every event of one invocation in the order it happened
func (h *DB) ByRun(runID string) ([]Record, error) {
	return h.query(selectColumns+`WHERE run_id = ? ORDER BY id ASC`, runID)
}

// CountByAction returns the number of events per action
func (h *DB) CountByAction() (map[string]int, error) {
	rows, err := h.db.Query(`SELECT action, COUNT(*) FROM removals GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}
	return counts, rows.Err()
}

// Stats holds aggregated statistics
type Stats struct {
	TotalRemoved  int
	TotalDeclined int
	TotalErrors   int
	TotalSkipped  int
	BytesRemoved  int64
	Runs          int
	ByAction      map[string]int
	StartDate     time.Time
	EndDate       time.Time
}

// Stats returns statistics for the last days days
func (h *DB) Stats(days int) (*Stats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{StartDate: since, EndDate: now}

	err := h.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'REMOVE' THEN 1 END),
			COUNT(CASE WHEN action = 'DECLINE' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COALESCE(SUM(CASE WHEN action = 'REMOVE' THEN size END), 0),
			COUNT(DISTINCT run_id)
		FROM removals
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalRemoved, &stats.TotalDeclined, &stats.TotalErrors,
		&stats.TotalSkipped, &stats.BytesRemoved, &stats.Runs)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = h.CountByAction()
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteOlderThan removes events older than the given number of days
func (h *DB) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	result, err := h.db.Exec(`DELETE FROM removals WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (h *DB) query(query string, args ...interface{}) ([]Record, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var fileName, errMsg sql.NullString
		var dev, ino sql.NullInt64

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.ObjectType, &r.Size, &dev, &ino, &errMsg, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.ErrorMessage = errMsg.String
		r.Device = uint64(dev.Int64)
		r.Inode = uint64(ino.Int64)
		records = append(records, r)
	}
	return records, rows.Err()
}
