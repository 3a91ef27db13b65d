package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hakotori/cpdbkit/pkg/models"
)

// CreateRun inserts a new run record with status running.
func (db *DB) CreateRun(run models.Run) error {
	score := 0
	if run.Params.ScoreInteractions {
		score = 1
	}

	_, err := db.Exec(`
		INSERT INTO runs (
			id, counts_path, meta_path, db_zip_path, db_version, output_dir,
			iterations, threshold, threads, counts_data, microenvs,
			score_interactions, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.CountsPath, run.MetaPath, run.DBZipPath,
		nullIfEmpty(run.DBVersion), run.OutputDir,
		run.Params.Iterations, run.Params.Threshold, run.Params.Threads,
		string(run.Params.CountsData), nullIfEmpty(run.Params.MicroenvsPath),
		score, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun marks a run as completed or failed.
func (db *DB) CompleteRun(id string, status models.RunStatus, runErr string, completedAt time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid run status %q", status)
	}

	res, err := db.Exec(`
		UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?
	`, string(status), nullIfEmpty(runErr), formatTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetRun returns a run by ID, or sql.ErrNoRows.
func (db *DB) GetRun(id string) (models.Run, error) {
	row := db.QueryRow(`
		SELECT id, counts_path, meta_path, db_zip_path, db_version, output_dir,
			iterations, threshold, threads, counts_data, microenvs,
			score_interactions, status, error, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRecentRuns returns up to limit runs, newest first.
func (db *DB) ListRecentRuns(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, counts_path, meta_path, db_zip_path, db_version, output_dir,
			iterations, threshold, threads, counts_data, microenvs,
			score_interactions, status, error, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PurgeOldRuns deletes run records older than the specified duration.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := db.Exec(`DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.Run, error) {
	var run models.Run
	var dbVersion, microenvs, runErr sql.NullString
	var score int
	var status, startedAt string
	var completedAt sql.NullString

	err := row.Scan(
		&run.ID, &run.CountsPath, &run.MetaPath, &run.DBZipPath, &dbVersion,
		&run.OutputDir, &run.Params.Iterations, &run.Params.Threshold,
		&run.Params.Threads, (*string)(&run.Params.CountsData), &microenvs,
		&score, &status, &runErr, &startedAt, &completedAt,
	)
	if err != nil {
		return models.Run{}, err
	}

	run.DBVersion = dbVersion.String
	run.Params.MicroenvsPath = microenvs.String
	run.Params.ScoreInteractions = score != 0
	run.Status = models.RunStatus(status)
	run.Error = runErr.String

	if t, err := parseTime(startedAt); err == nil {
		run.StartedAt = t
	}
	run.CompletedAt = parseNullableTime(completedAt)

	return run, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
