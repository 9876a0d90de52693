package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS profile_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id    TEXT NOT NULL,
	detector_id   TEXT NOT NULL,
	entity_value  TEXT NOT NULL,
	facets        TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	reason        TEXT,
	duration_ms   INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region entry
// Entry is one row of the profile request log.
type Entry struct {
	RequestID   string    `json:"request_id"`
	DetectorID  string    `json:"detector_id"`
	EntityValue string    `json:"entity_value"`
	Facets      string    `json:"facets"`
	Outcome     string    `json:"outcome"` // "ok" or an error kind
	Reason      string    `json:"reason,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
// #endregion entry

// #region log
// Log persists one entry per terminal profile delivery.
type Log struct {
	db *sql.DB
}

// NewLog creates the profile_log table if needed.
func NewLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate profile_log: %w", err)
	}
	return &Log{db: db}, nil
}
// #endregion log

// #region record
// Record writes an entry.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO profile_log (request_id, detector_id, entity_value, facets, outcome, reason, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID,
		e.DetectorID,
		e.EntityValue,
		e.Facets,
		e.Outcome,
		nullIfEmpty(e.Reason),
		e.DurationMs,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record profile: %w", err)
	}
	return nil
}
// #endregion record

// #region list
// List returns the most recent entries, newest first.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT request_id, detector_id, entity_value, facets, outcome, reason, duration_ms, created_at
		 FROM profile_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list profile log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var reason sql.NullString
		var created string
		if err := rows.Scan(&e.RequestID, &e.DetectorID, &e.EntityValue, &e.Facets,
			&e.Outcome, &reason, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
