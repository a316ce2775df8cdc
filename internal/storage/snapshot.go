package storage

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"bqgate/internal/domain"
)

// SnapshotStore persists snapshot run history in SQLite.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) CreateRun(r *domain.SnapshotRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO snapshot_runs (id, job_name, status, query, rows, output_path, error, started_at, finished_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.JobName, r.Status, r.Query, r.Rows, r.OutputPath, r.Error, r.StartedAt, r.FinishedAt, r.DurationMs,
	)
	return err
}

func (s *SnapshotStore) UpdateRun(r *domain.SnapshotRun) error {
	_, err := s.db.conn.Exec(
		`UPDATE snapshot_runs SET status=?, query=?, rows=?, output_path=?, error=?, finished_at=?, duration_ms=?
		 WHERE id=?`,
		r.Status, r.Query, r.Rows, r.OutputPath, r.Error, r.FinishedAt, r.DurationMs, r.ID,
	)
	return err
}

// ListRuns returns the most recent runs of a job, newest first.
func (s *SnapshotStore) ListRuns(jobName string, limit int) ([]domain.SnapshotRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, job_name, status, query, rows, output_path, error, started_at, finished_at, duration_ms
		 FROM snapshot_runs WHERE job_name = ? ORDER BY started_at DESC LIMIT ?`,
		jobName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.SnapshotRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LastRun returns the newest run of a job, or nil if it never ran.
func (s *SnapshotStore) LastRun(jobName string) (*domain.SnapshotRun, error) {
	row := s.db.conn.QueryRow(
		`SELECT id, job_name, status, query, rows, output_path, error, started_at, finished_at, duration_ms
		 FROM snapshot_runs WHERE job_name = ? ORDER BY started_at DESC LIMIT 1`,
		jobName,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.SnapshotRun, error) {
	var r domain.SnapshotRun
	var finished sql.NullTime
	if err := sc.Scan(&r.ID, &r.JobName, &r.Status, &r.Query, &r.Rows, &r.OutputPath, &r.Error,
		&r.StartedAt, &finished, &r.DurationMs); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
