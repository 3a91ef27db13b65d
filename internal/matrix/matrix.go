// Package matrix rewrites the gene axis of expression matrices kept in
// plain-text formats: dense counts tables (genes in rows, cells in
// columns) and 10x-style MTX triplet directories. Annotated HDF5
// matrices are not handled here; those go through the Python bridge.
package matrix

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hakotori/cpdbkit/internal/mgi"
)

// Format identifies an on-disk matrix layout.
type Format string

const (
	// FormatDense is a delimited table: first column gene symbol,
	// header row of cell identifiers.
	FormatDense Format = "dense"
	// FormatMTX is a directory holding matrix.mtx, features.tsv (or
	// genes.tsv) and barcodes.tsv, each optionally gzipped.
	FormatMTX Format = "mtx"
	// FormatH5AD is an annotated HDF5 matrix, handled elsewhere.
	FormatH5AD Format = "h5ad"
)

// DetectFormat classifies a path by shape and extension.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		if _, err := findMTXMember(path, "matrix.mtx"); err != nil {
			return "", fmt.Errorf("%s is a directory but has no matrix.mtx: %w", path, err)
		}
		return FormatMTX, nil
	}

	base := strings.ToLower(strings.TrimSuffix(filepath.Base(path), ".gz"))
	switch {
	case strings.HasSuffix(base, ".h5ad"):
		return FormatH5AD, nil
	case strings.HasSuffix(base, ".tsv"), strings.HasSuffix(base, ".txt"),
		strings.HasSuffix(base, ".csv"):
		return FormatDense, nil
	default:
		return "", fmt.Errorf("unrecognized matrix format: %s", path)
	}
}

// MapStats summarizes a gene-axis rewrite.
type MapStats struct {
	// Genes is the number of genes seen in the input.
	Genes int
	// Mapped is the number translated to a human symbol.
	Mapped int
	// Dropped is the number removed (zero when keeping unmapped genes).
	Dropped int
}

// Kept returns the number of genes present in the output.
func (s MapStats) Kept() int {
	return s.Genes - s.Dropped
}

// MapGenes rewrites the gene axis of the matrix at inPath using the
// ortholog map, writing the result to outPath. Unmapped genes are
// dropped unless keepUnmapped is set, in which case they keep their
// mouse symbol (matching the upstream script's non-drop mode).
func MapGenes(inPath, outPath string, m *mgi.Map, keepUnmapped bool) (MapStats, error) {
	format, err := DetectFormat(inPath)
	if err != nil {
		return MapStats{}, err
	}

	switch format {
	case FormatDense:
		return mapDense(inPath, outPath, m, keepUnmapped)
	case FormatMTX:
		return mapMTXDir(inPath, outPath, m, keepUnmapped)
	case FormatH5AD:
		return MapStats{}, fmt.Errorf("%s is an h5ad file; gene mapping for h5ad goes through the Python bridge", inPath)
	default:
		return MapStats{}, fmt.Errorf("unsupported matrix format %q", format)
	}
}

// openIn opens a possibly gzipped file for reading.
func openIn(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	_, _ = fh.Seek(0, io.SeekStart)
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &gzipReadCloser{Reader: gr, gz: gr, file: fh}, nil
	}
	return fh, nil
}

type gzipReadCloser struct {
	io.Reader
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	gerr := g.gz.Close()
	ferr := g.file.Close()
	if gerr != nil {
		return gerr
	}
	return ferr
}

// atomicWriter writes to a temp file and renames into place on Commit.
// If the destination ends in .gz the payload is gzip-compressed.
type atomicWriter struct {
	w       io.Writer
	gz      *gzip.Writer
	file    *os.File
	tmpPath string
	dest    string
}

func newAtomicWriter(dest string) (*atomicWriter, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	aw := &atomicWriter{file: tmp, tmpPath: tmp.Name(), dest: dest}
	if strings.HasSuffix(dest, ".gz") {
		aw.gz = gzip.NewWriter(tmp)
		aw.w = aw.gz
	} else {
		aw.w = tmp
	}
	return aw, nil
}

func (aw *atomicWriter) Write(p []byte) (int, error) {
	return aw.w.Write(p)
}

// Commit flushes, closes, and renames the temp file into place.
func (aw *atomicWriter) Commit() error {
	if aw.gz != nil {
		if err := aw.gz.Close(); err != nil {
			aw.Abort()
			return err
		}
	}
	if err := aw.file.Close(); err != nil {
		os.Remove(aw.tmpPath)
		return err
	}
	return os.Rename(aw.tmpPath, aw.dest)
}

// Abort discards the temp file.
func (aw *atomicWriter) Abort() {
	aw.file.Close()
	os.Remove(aw.tmpPath)
}
