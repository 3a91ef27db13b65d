// Package models defines the shared data types used across cpdbkit.
package models

import "time"

// Release describes a downloaded CellPhoneDB database release.
type Release struct {
	// Version is the database release tag (e.g. "v5.0.0").
	Version string
	// Path is the absolute path to the downloaded cellphonedb.zip.
	Path string
	// SHA256 is the hex digest of the zip contents.
	SHA256 string
	// SizeBytes is the zip size on disk.
	SizeBytes int64
	// DownloadedAt is when the download completed.
	DownloadedAt time.Time
}

// RemoteRelease describes a database release available upstream.
type RemoteRelease struct {
	// Version is the release tag.
	Version string
	// PublishedAt is the upstream publication time, if known.
	PublishedAt time.Time
	// ZipURL is the direct URL of the database zip asset.
	ZipURL string
}
