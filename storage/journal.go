// Package storage keeps the hardware journal: every barcode scan and every
// print job outcome, persisted so history survives a daemon restart. Journal
// writes are advisory; a failed insert is logged and never propagates into
// device handling.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Shehab101tf/tareeqa0-sub002/barcode"
	"github.com/Shehab101tf/tareeqa0-sub002/spooler"
)

// ErrInvalidJobID rejects job records that cannot be upserted.
var ErrInvalidJobID = errors.New("job record has no job ID")

// ScanRecord is one journaled barcode scan.
type ScanRecord struct {
	ID        int64          `json:"id"`
	DeviceID  string         `json:"deviceId"`
	Barcode   string         `json:"barcode"`
	Format    barcode.Format `json:"format"`
	Valid     bool           `json:"isValid"`
	ScannedAt time.Time      `json:"scannedAt"`
}

// JobRecord is the journaled state of one print job. The same record is
// written again as the job moves from pending to its final status.
type JobRecord struct {
	JobID      string           `json:"jobId"`
	DeviceID   string           `json:"deviceId"`
	Kind       spooler.Kind     `json:"kind"`
	Priority   spooler.Priority `json:"priority"`
	Status     spooler.Status   `json:"status"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	FinishedAt time.Time        `json:"finishedAt,omitempty"`
}

// Journal is the SQLite-backed scan and job history store.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the journal database. An empty path opens an
// in-memory database, which suits tests and hosts that do not want history
// on disk.
func Open(dbPath string) (*Journal, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// every connection gets its own in-memory database, so keep one
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	j := &Journal{db: db, dbPath: dbPath}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		barcode TEXT NOT NULL,
		format TEXT NOT NULL,
		valid BOOLEAN NOT NULL DEFAULT 1,
		scanned_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_history_scanned ON scan_history(scanned_at);

	CREATE TABLE IF NOT EXISTS job_history (
		job_id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_job_history_created ON job_history(created_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// RecordScan appends one scan to the history.
func (j *Journal) RecordScan(ctx context.Context, rec ScanRecord) error {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO scan_history (device_id, barcode, format, valid, scanned_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.DeviceID, rec.Barcode, string(rec.Format), rec.Valid, rec.ScannedAt)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// RecordJob inserts or updates one job by its ID. Status transitions write
// the same record repeatedly; the final write carries the outcome.
func (j *Journal) RecordJob(ctx context.Context, rec JobRecord) error {
	if rec.JobID == "" {
		return ErrInvalidJobID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var finished interface{}
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt
	}

	query := `
		INSERT INTO job_history (job_id, device_id, kind, priority, status, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			finished_at = excluded.finished_at
	`
	_, err := j.db.ExecContext(ctx, query,
		rec.JobID, rec.DeviceID, string(rec.Kind), string(rec.Priority),
		string(rec.Status), rec.Error, rec.CreatedAt, finished)
	if err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

// RecentScans returns the newest scans, most recent first. A non-positive
// limit falls back to 50.
func (j *Journal) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, device_id, barcode, format, valid, scanned_at
		FROM scan_history
		ORDER BY scanned_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var scans []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var format string
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.Barcode, &format, &rec.Valid, &rec.ScannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Format = barcode.Format(format)
		scans = append(scans, rec)
	}
	return scans, rows.Err()
}

// RecentJobs returns the newest job records, most recent first. A
// non-positive limit falls back to 50.
func (j *Journal) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT job_id, device_id, kind, priority, status, error, created_at, finished_at
		FROM job_history
		ORDER BY created_at DESC, job_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var rec JobRecord
		var kind, priority, status string
		var jobErr sql.NullString
		var finished sql.NullTime
		err := rows.Scan(&rec.JobID, &rec.DeviceID, &kind, &priority, &status, &jobErr, &rec.CreatedAt, &finished)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Kind = spooler.Kind(kind)
		rec.Priority = spooler.Priority(priority)
		rec.Status = spooler.Status(status)
		if jobErr.Valid {
			rec.Error = jobErr.String
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		jobs = append(jobs, rec)
	}
	return jobs, rows.Err()
}

// Prune deletes scans and finished-job records older than the cutoff and
// reports how many rows went away.
func (j *Journal) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	total := 0

	res, err := j.db.ExecContext(ctx,
		"DELETE FROM scan_history WHERE scanned_at < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune scan history: %w", err)
	}
	n, _ := res.RowsAffected()
	total += int(n)

	res, err = j.db.ExecContext(ctx,
		"DELETE FROM job_history WHERE created_at < ?", olderThan)
	if err != nil {
		return total, fmt.Errorf("failed to prune job history: %w", err)
	}
	n, _ = res.RowsAffected()
	total += int(n)

	if total > 0 {
		log.Debug("Journal pruned", "rows", total)
	}
	return total, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
