package release

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hakotori/cpdbkit/pkg/models"
)

// ZipName is the file name of the database archive inside a release dir.
const ZipName = "cellphonedb.zip"

// Progress reports download progress. total is -1 when the server did not
// send a Content-Length.
type Progress func(written, total int64)

// Downloader fetches database release zips over HTTP.
type Downloader struct {
	httpClient *http.Client
	zipURL     func(version string) string
}

// NewDownloader creates a Downloader with the given per-download timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		zipURL:     ZipURL,
	}
}

// ReleaseDir returns the directory a version is downloaded into,
// mirroring the upstream tool's layout: <targetDir>/releases/<version>.
func ReleaseDir(targetDir, version string) string {
	return filepath.Join(targetDir, "releases", version)
}

// Download fetches the database zip for version into targetDir and
// returns the release record. The zip is written to a temp file first and
// renamed into place, so a cancelled download never leaves a partial
// cellphonedb.zip behind.
func (d *Downloader) Download(ctx context.Context, targetDir, version string, progress Progress) (models.Release, error) {
	version, err := NormalizeVersion(version)
	if err != nil {
		return models.Release{}, err
	}

	relDir := ReleaseDir(targetDir, version)
	if err := os.MkdirAll(relDir, 0755); err != nil {
		return models.Release{}, fmt.Errorf("create release directory: %w", err)
	}

	url := d.zipURL(version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Release{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return models.Release{}, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.Release{}, fmt.Errorf("no database zip published for %s (HTTP 404 from %s)", version, url)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Release{}, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(relDir, ZipName+".partial-*")
	if err != nil {
		return models.Release{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hash := sha256.New()
	written, err := copyWithProgress(ctx, io.MultiWriter(tmp, hash), resp.Body, resp.ContentLength, progress)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return models.Release{}, fmt.Errorf("save %s: %w", ZipName, err)
	}

	finalPath := filepath.Join(relDir, ZipName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return models.Release{}, fmt.Errorf("move zip into place: %w", err)
	}

	return models.Release{
		Version:      version,
		Path:         finalPath,
		SHA256:       fmt.Sprintf("%x", hash.Sum(nil)),
		SizeBytes:    written,
		DownloadedAt: time.Now(),
	}, nil
}

// copyWithProgress copies src to dst, checking ctx and reporting progress
// every chunk.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress Progress) (int64, error) {
	if total == 0 {
		total = -1
	}

	buf := make([]byte, 128*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
