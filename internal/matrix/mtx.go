package matrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hakotori/cpdbkit/internal/mgi"
)

// findMTXMember locates a triplet-directory member, accepting a .gz
// variant and, for the feature table, the older genes.tsv name.
func findMTXMember(dir, base string) (string, error) {
	candidates := []string{base, base + ".gz"}
	if base == "features.tsv" {
		candidates = append(candidates, "genes.tsv", "genes.tsv.gz")
	}
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no %s in %s", base, dir)
}

// feature is one row of features.tsv.
type feature struct {
	fields []string
	keep   bool
}

// mapMTXDir rewrites a 10x-style triplet directory. The feature table's
// symbol column is translated; when dropping unmapped genes the sparse
// matrix is re-indexed to the surviving rows. Barcodes pass through.
func mapMTXDir(inDir, outDir string, m *mgi.Map, keepUnmapped bool) (MapStats, error) {
	if abs, _ := filepath.Abs(inDir); abs != "" {
		if absOut, _ := filepath.Abs(outDir); absOut == abs {
			return MapStats{}, fmt.Errorf("output directory must differ from input directory")
		}
	}

	featPath, err := findMTXMember(inDir, "features.tsv")
	if err != nil {
		return MapStats{}, err
	}
	mtxPath, err := findMTXMember(inDir, "matrix.mtx")
	if err != nil {
		return MapStats{}, err
	}
	barcodePath, err := findMTXMember(inDir, "barcodes.tsv")
	if err != nil {
		return MapStats{}, err
	}

	features, stats, err := loadFeatures(featPath, m, keepUnmapped)
	if err != nil {
		return MapStats{}, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return MapStats{}, fmt.Errorf("create output directory: %w", err)
	}

	if err := writeFeatures(filepath.Join(outDir, filepath.Base(featPath)), features); err != nil {
		return MapStats{}, err
	}
	if err := copyMember(barcodePath, filepath.Join(outDir, filepath.Base(barcodePath))); err != nil {
		return MapStats{}, err
	}
	if err := rewriteMTX(mtxPath, filepath.Join(outDir, filepath.Base(mtxPath)), features); err != nil {
		return MapStats{}, err
	}

	return stats, nil
}

// loadFeatures reads the feature table and computes the new symbols and
// keep mask. The symbol lives in the second column (first when the table
// has a single column).
func loadFeatures(path string, m *mgi.Map, keepUnmapped bool) ([]feature, MapStats, error) {
	in, err := openIn(path)
	if err != nil {
		return nil, MapStats{}, fmt.Errorf("open feature table %s: %w", path, err)
	}
	defer in.Close()

	var features []feature
	var stats MapStats

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		symbolCol := 1
		if len(fields) == 1 {
			symbolCol = 0
		}

		stats.Genes++
		f := feature{fields: fields}
		human, ok := m.Lookup(fields[symbolCol])
		switch {
		case ok:
			stats.Mapped++
			f.fields[symbolCol] = human
			f.keep = true
		case keepUnmapped:
			f.keep = true
		default:
			stats.Dropped++
		}
		features = append(features, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, MapStats{}, fmt.Errorf("read feature table: %w", err)
	}
	return features, stats, nil
}

// writeFeatures writes the surviving features, gzipped when dest says so.
func writeFeatures(dest string, features []feature) error {
	out, err := newAtomicWriter(dest)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	for _, f := range features {
		if !f.keep {
			continue
		}
		fmt.Fprintln(w, strings.Join(f.fields, "\t"))
	}
	if err := w.Flush(); err != nil {
		out.Abort()
		return fmt.Errorf("write feature table: %w", err)
	}
	if err := out.Commit(); err != nil {
		return fmt.Errorf("finalize feature table: %w", err)
	}
	return nil
}

// copyMember copies a file byte for byte (barcodes are untouched).
func copyMember(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// rewriteMTX filters and re-indexes the sparse matrix entries to the
// kept feature rows. Entry lines are buffered in a temp file because the
// size line (rows, cols, entries) precedes them in the output.
func rewriteMTX(src, dest string, features []feature) error {
	// Old 1-based row index -> new 1-based row index (0 = dropped).
	rowMap := make([]int, len(features)+1)
	next := 1
	for i, f := range features {
		if f.keep {
			rowMap[i+1] = next
			next++
		}
	}
	keptRows := next - 1

	in, err := openIn(src)
	if err != nil {
		return fmt.Errorf("open matrix %s: %w", src, err)
	}
	defer in.Close()

	entryTmp, err := os.CreateTemp(filepath.Dir(dest), "mtx-entries-*")
	if err != nil {
		return fmt.Errorf("create entries temp file: %w", err)
	}
	defer os.Remove(entryTmp.Name())
	defer entryTmp.Close()

	entryW := bufio.NewWriter(entryTmp)

	var comments []string
	var cols int
	var nnz int64
	sawSize := false

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") {
			comments = append(comments, line)
			continue
		}

		fields := strings.Fields(line)
		if !sawSize {
			if len(fields) != 3 {
				return fmt.Errorf("malformed matrix size line: %q", line)
			}
			rows, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("malformed matrix size line: %q", line)
			}
			if rows != len(features) {
				return fmt.Errorf("matrix has %d rows but feature table has %d entries", rows, len(features))
			}
			cols, err = strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("malformed matrix size line: %q", line)
			}
			sawSize = true
			continue
		}

		if len(fields) < 3 {
			return fmt.Errorf("malformed matrix entry: %q", line)
		}
		row, err := strconv.Atoi(fields[0])
		if err != nil || row < 1 || row > len(features) {
			return fmt.Errorf("matrix entry row out of range: %q", line)
		}
		newRow := rowMap[row]
		if newRow == 0 {
			continue
		}
		fields[0] = strconv.Itoa(newRow)
		fmt.Fprintln(entryW, strings.Join(fields, " "))
		nnz++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read matrix: %w", err)
	}
	if !sawSize {
		return fmt.Errorf("matrix %s has no size line", src)
	}

	if err := entryW.Flush(); err != nil {
		return fmt.Errorf("buffer matrix entries: %w", err)
	}
	if _, err := entryTmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind entries temp file: %w", err)
	}

	out, err := newAtomicWriter(dest)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)

	if len(comments) == 0 {
		comments = []string{"%%MatrixMarket matrix coordinate real general"}
	}
	for _, c := range comments {
		fmt.Fprintln(w, c)
	}
	fmt.Fprintf(w, "%d %d %d\n", keptRows, cols, nnz)
	if _, err := io.Copy(w, entryTmp); err != nil {
		out.Abort()
		return fmt.Errorf("write matrix entries: %w", err)
	}
	if err := w.Flush(); err != nil {
		out.Abort()
		return fmt.Errorf("write matrix: %w", err)
	}
	if err := out.Commit(); err != nil {
		return fmt.Errorf("finalize matrix: %w", err)
	}
	return nil
}
