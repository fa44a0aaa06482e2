// Package journal persists an audit trail of restore runs in SQLite.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Journal provides SQLite-backed persistence of restore runs. Journal
// writes are advisory: callers log failures and continue, the restore
// outcome never depends on them.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the journal database at dbPath and
// runs migrations.
func Open(dbPath string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	j := &Journal{db: db, logger: logger}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("journal opened", "path", dbPath)
	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal database: %w", err)
	}
	return nil
}

// CreateRun inserts a new Run and sets its ID. End time, counters and
// error message stay at their defaults until FinishRun.
func (j *Journal) CreateRun(run *Run) error {
	const query = `
		INSERT INTO restore_runs (archive, destination, dry_run, start_time, status)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := j.db.Exec(
		query,
		run.Archive, run.Destination, run.DryRun, run.StartTime, run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert restore run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// FinishRun updates an existing Run by ID
func (j *Journal) FinishRun(run *Run) error {
	const query = `
		UPDATE restore_runs SET
			end_time = ?, files_restored = ?, files_skipped = ?,
			bytes_written = ?, status = ?, error_message = ?
		WHERE id = ?
	`
	if _, err := j.db.Exec(
		query,
		run.EndTime, run.FilesRestored, run.FilesSkipped,
		run.BytesWritten, run.Status, run.ErrorMessage, run.ID,
	); err != nil {
		return fmt.Errorf("failed to update restore run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (j *Journal) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, archive, destination, dry_run, start_time, end_time,
		       files_restored, files_skipped, bytes_written, status, error_message
		FROM restore_runs
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	`
	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list restore runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		// end_time and error_message are NULL until the run finishes;
		// wrapping them in expressions would strip the column's datetime
		// affinity and break scanning, so select them plain.
		var endTime sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Archive, &r.Destination, &r.DryRun, &r.StartTime, &endTime,
			&r.FilesRestored, &r.FilesSkipped, &r.BytesWritten, &r.Status, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan restore run: %w", err)
		}
		if endTime.Valid {
			r.EndTime = endTime.Time
		}
		if errMsg.Valid {
			r.ErrorMessage = errMsg.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
