package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const indexSchema = `
DROP TABLE IF EXISTS jobs;
CREATE TABLE jobs (
    job_id     TEXT PRIMARY KEY,
    stage      TEXT NOT NULL,
    detail     TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// index mirrors status records into SQLite for cheap listing. It is rebuilt
// empty on every open.
type index struct {
	db *sql.DB
}

func openIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(indexSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reset index schema: %w", err)
	}

	return &index{db: db}, nil
}

func (i *index) Close() error {
	return i.db.Close()
}

func (i *index) upsert(ctx context.Context, record Record) error {
	_, err := i.db.ExecContext(
		ctx,
		`INSERT INTO jobs (job_id, stage, detail, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(job_id) DO UPDATE SET
             stage = excluded.stage,
             detail = excluded.detail,
             updated_at = excluded.updated_at`,
		record.JobID,
		string(record.Stage),
		record.Detail,
		record.CreatedAt.Format(time.RFC3339Nano),
		record.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("index job %s: %w", record.JobID, err)
	}
	return nil
}

func (i *index) list(ctx context.Context) ([]Record, error) {
	rows, err := i.db.QueryContext(
		ctx,
		`SELECT job_id, stage, detail, created_at, updated_at
         FROM jobs ORDER BY created_at DESC, job_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record     Record
			stage      string
			detail     sql.NullString
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&record.JobID, &stage, &detail, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		record.Stage = Stage(stage)
		record.Detail = detail.String
		if record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", record.JobID, err)
		}
		if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", record.JobID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return records, nil
}
