// Package meta builds and validates the two-column metadata file the
// external tool requires: one row per cell, columns Cell and cell_type.
package meta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Header columns of the metadata file.
const (
	ColCell     = "Cell"
	ColCellType = "cell_type"
)

// CellLabel assigns a cluster label to one cell.
type CellLabel struct {
	Cell     string
	CellType string
}

// Validate checks the schema rules: unique, non-empty cell identifiers
// and non-empty labels.
func Validate(labels []CellLabel) error {
	if len(labels) == 0 {
		return fmt.Errorf("metadata has no cells")
	}

	seen := make(map[string]bool, len(labels))
	for i, l := range labels {
		if l.Cell == "" {
			return fmt.Errorf("row %d: empty cell identifier", i+1)
		}
		if l.CellType == "" {
			return fmt.Errorf("cell %s: empty cluster label", l.Cell)
		}
		if seen[l.Cell] {
			return fmt.Errorf("duplicate cell identifier %s", l.Cell)
		}
		seen[l.Cell] = true
	}
	return nil
}

// Write emits the tab-separated metadata file with its header.
func Write(w io.Writer, labels []CellLabel) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\t%s\n", ColCell, ColCellType)
	for _, l := range labels {
		fmt.Fprintf(bw, "%s\t%s\n", l.Cell, l.CellType)
	}
	return bw.Flush()
}

// Save validates and writes the metadata file via temp file + rename.
func Save(path string, labels []CellLabel) error {
	if err := Validate(labels); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	err = Write(tmp, labels)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("move metadata into place: %w", err)
	}
	return nil
}

// Read loads a metadata file. The first row is treated as a header when
// its first field is "Cell" (any case); the file must carry at least
// two tab-separated columns per row. The result is validated.
func Read(r io.Reader) ([]CellLabel, error) {
	var labels []CellLabel

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(fields[0]), ColCell) {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("metadata row %q does not have two tab-separated columns", line)
		}
		labels = append(labels, CellLabel{
			Cell:     strings.TrimSpace(fields[0]),
			CellType: strings.TrimSpace(fields[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	if err := Validate(labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// Load reads and validates the metadata file at path.
func Load(path string) ([]CellLabel, error) {
	rc, err := openIn(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata %s: %w", path, err)
	}
	defer rc.Close()
	return Read(rc)
}

// BuildFromObsTable derives labels from a delimited per-cell annotation
// table (an exported obs dataframe). The label column is obsKey; cell
// identifiers come from barcodeKey, or from the first column when
// barcodeKey is empty. The delimiter is inferred from the header line.
func BuildFromObsTable(r io.Reader, barcodeKey, obsKey string) ([]CellLabel, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read annotation table: %w", err)
		}
		return nil, fmt.Errorf("annotation table is empty")
	}

	header := scanner.Text()
	sep := "\t"
	if !strings.Contains(header, "\t") && strings.Contains(header, ",") {
		sep = ","
	}
	cols := strings.Split(header, sep)

	barcodeIdx := 0
	if barcodeKey != "" {
		barcodeIdx = indexOf(cols, barcodeKey)
		if barcodeIdx < 0 {
			return nil, fmt.Errorf("annotation table has no column %q", barcodeKey)
		}
	}
	obsIdx := indexOf(cols, obsKey)
	if obsIdx < 0 {
		return nil, fmt.Errorf("annotation table has no column %q (columns: %s)", obsKey, strings.Join(cols, ", "))
	}

	var labels []CellLabel
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) <= obsIdx || len(fields) <= barcodeIdx {
			return nil, fmt.Errorf("annotation row %q is shorter than the header", line)
		}
		labels = append(labels, CellLabel{
			Cell:     strings.TrimSpace(fields[barcodeIdx]),
			CellType: strings.TrimSpace(fields[obsIdx]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read annotation table: %w", err)
	}

	if err := Validate(labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// BuildFromObsFile is BuildFromObsTable for a file path, transparently
// handling gzip and "-" for stdin.
func BuildFromObsFile(path, barcodeKey, obsKey string) ([]CellLabel, error) {
	rc, err := openIn(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation table %s: %w", path, err)
	}
	defer rc.Close()
	return BuildFromObsTable(rc, barcodeKey, obsKey)
}

func indexOf(fields []string, name string) int {
	for i, f := range fields {
		if strings.TrimSpace(f) == name {
			return i
		}
	}
	return -1
}

// openIn opens a possibly gzipped file, "-" meaning stdin.
func openIn(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
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
		return struct {
			io.Reader
			io.Closer
		}{gr, fh}, nil
	}
	return fh, nil
}
