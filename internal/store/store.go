package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/model"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS indices (
	name          TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	index_name    TEXT NOT NULL,
	doc_id        TEXT NOT NULL,
	source        BLOB NOT NULL,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (index_name, doc_id),
	FOREIGN KEY (index_name) REFERENCES indices(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS anomaly_results (
	result_id           TEXT PRIMARY KEY,
	detector_id         TEXT NOT NULL,
	entity_field        TEXT,
	entity_value        TEXT NOT NULL,
	execution_end_time  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_anomaly_results_entity
ON anomaly_results(detector_id, entity_value, execution_end_time);
`
// #endregion schema

// #region store-struct
// Store is a SQLite-backed document store with named indices and an
// anomaly result index that supports the latest-sample lookup.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. audit).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region indices
// CreateIndex registers an index. Creating an existing index is a no-op.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO indices (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// DeleteIndex drops an index and every document in it.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so the cascade is not relied on
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE index_name = ?`, name); err != nil {
		return fmt.Errorf("delete documents of %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM indices WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	if name == model.ResultIndex {
		if _, err := tx.ExecContext(ctx, `DELETE FROM anomaly_results`); err != nil {
			return fmt.Errorf("clear results: %w", err)
		}
	}
	return tx.Commit()
}

// IndexExists reports whether name has been created.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indices WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) requireIndex(ctx context.Context, name string) error {
	ok, err := s.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return errkind.Newf(errkind.IndexNotFound, "no such index [%s]", name)
	}
	return nil
}
// #endregion indices

// #region put-document
// PutDocument creates or replaces a document.
func (s *Store) PutDocument(ctx context.Context, index, id string, source []byte) error {
	if err := s.requireIndex(ctx, index); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (index_name, doc_id, source, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(index_name, doc_id) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		index, id, source, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", index, id, err)
	}
	return nil
}
// #endregion put-document

// #region fetch-document
// FetchDocument looks up one document. A missing index is reported as an
// errkind.IndexNotFound error; a missing document as Found == false.
func (s *Store) FetchDocument(ctx context.Context, index, id string) (Document, error) {
	if err := s.requireIndex(ctx, index); err != nil {
		return Document{}, err
	}
	doc := Document{Index: index, ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT source FROM documents WHERE index_name = ? AND doc_id = ?`, index, id,
	).Scan(&doc.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", index, id, err)
	}
	doc.Found = true
	return doc, nil
}
// #endregion fetch-document

// #region index-result
// IndexResult writes an anomaly result row into the result index.
func (s *Store) IndexResult(ctx context.Context, r Result) (string, error) {
	if err := s.requireIndex(ctx, model.ResultIndex); err != nil {
		return "", err
	}
	if r.ResultID == "" {
		r.ResultID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anomaly_results (result_id, detector_id, entity_field, entity_value, execution_end_time)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ResultID, r.DetectorID, nullIfEmpty(r.EntityField), r.EntityValue, r.ExecutionEndTime.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return r.ResultID, nil
}
// #endregion index-result

// #region latest-sample
// LatestSampleTime returns the max execution end time (epoch ms) of results
// for the query's entity, or nil when there are none.
func (s *Store) LatestSampleTime(ctx context.Context, q SampleQuery) (*int64, error) {
	if err := s.requireIndex(ctx, model.ResultIndex); err != nil {
		return nil, err
	}
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(execution_end_time) FROM anomaly_results
		 WHERE entity_value = ? AND detector_id = ? AND execution_end_time >= ?`,
		q.EntityValue, q.DetectorID, q.From.UnixMilli(),
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest sample time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	ms := latest.Int64
	return &ms, nil
}
// #endregion latest-sample

// #region sample-counts
// SampleCounts groups the result index by entity. A restarting node uses it
// to rebuild its model counters.
func (s *Store) SampleCounts(ctx context.Context) ([]SampleCount, error) {
	if err := s.requireIndex(ctx, model.ResultIndex); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT detector_id, entity_value, COUNT(*), MAX(execution_end_time)
		 FROM anomaly_results GROUP BY detector_id, entity_value
		 ORDER BY detector_id, entity_value`,
	)
	if err != nil {
		return nil, fmt.Errorf("sample counts: %w", err)
	}
	defer rows.Close()

	var out []SampleCount
	for rows.Next() {
		var c SampleCount
		if err := rows.Scan(&c.DetectorID, &c.EntityValue, &c.Samples, &c.LastMs); err != nil {
			return nil, fmt.Errorf("scan sample count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
// #endregion sample-counts

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
