package state

import (
	"database/sql"
	"fmt"

	"github.com/hakotori/cpdbkit/pkg/models"
)

// RecordRelease inserts or replaces the record for a downloaded release.
func (db *DB) RecordRelease(r models.Release) error {
	_, err := db.Exec(`
		INSERT INTO releases (version, path, sha256, size_bytes, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			path = excluded.path,
			sha256 = excluded.sha256,
			size_bytes = excluded.size_bytes,
			downloaded_at = excluded.downloaded_at
	`, r.Version, r.Path, r.SHA256, r.SizeBytes, formatTime(r.DownloadedAt))
	if err != nil {
		return fmt.Errorf("record release %s: %w", r.Version, err)
	}
	return nil
}

// GetRelease returns the recorded release for a version, or sql.ErrNoRows.
func (db *DB) GetRelease(version string) (models.Release, error) {
	var r models.Release
	var downloadedAt string

	row := db.QueryRow(`
		SELECT version, path, sha256, size_bytes, downloaded_at
		FROM releases WHERE version = ?
	`, version)
	if err := row.Scan(&r.Version, &r.Path, &r.SHA256, &r.SizeBytes, &downloadedAt); err != nil {
		return models.Release{}, err
	}

	t, err := parseTime(downloadedAt)
	if err != nil {
		return models.Release{}, fmt.Errorf("parse downloaded_at for %s: %w", version, err)
	}
	r.DownloadedAt = t
	return r, nil
}

// ListReleases returns all recorded releases, most recently downloaded first.
func (db *DB) ListReleases() ([]models.Release, error) {
	rows, err := db.Query(`
		SELECT version, path, sha256, size_bytes, downloaded_at
		FROM releases ORDER BY downloaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	var releases []models.Release
	for rows.Next() {
		var r models.Release
		var downloadedAt string
		if err := rows.Scan(&r.Version, &r.Path, &r.SHA256, &r.SizeBytes, &downloadedAt); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		if t, err := parseTime(downloadedAt); err == nil {
			r.DownloadedAt = t
		}
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

// DeleteRelease removes the record for a version. Missing versions are not
// an error.
func (db *DB) DeleteRelease(version string) error {
	_, err := db.Exec(`DELETE FROM releases WHERE version = ?`, version)
	if err != nil {
		return fmt.Errorf("delete release %s: %w", version, err)
	}
	return nil
}

// HasRelease reports whether a version has been recorded.
func (db *DB) HasRelease(version string) (bool, error) {
	_, err := db.GetRelease(version)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
