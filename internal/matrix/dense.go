package matrix

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hakotori/cpdbkit/internal/mgi"
)

// delimiterFor picks the field separator from the file extension.
func delimiterFor(path string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(path), ".gz"))
	if strings.HasSuffix(base, ".csv") {
		return ","
	}
	return "\t"
}

// mapDense streams a dense counts table line by line, replacing the
// gene symbol in the first column. The header row (cell identifiers)
// passes through untouched.
func mapDense(inPath, outPath string, m *mgi.Map, keepUnmapped bool) (MapStats, error) {
	in, err := openIn(inPath)
	if err != nil {
		return MapStats{}, fmt.Errorf("open counts matrix %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := newAtomicWriter(outPath)
	if err != nil {
		return MapStats{}, err
	}

	sep := delimiterFor(inPath)
	var stats MapStats
	w := bufio.NewWriter(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			fmt.Fprintln(w, line)
			continue
		}
		if line == "" {
			continue
		}

		gene, rest, _ := strings.Cut(line, sep)
		stats.Genes++

		human, ok := m.Lookup(gene)
		switch {
		case ok:
			stats.Mapped++
			fmt.Fprintln(w, human+sep+rest)
		case keepUnmapped:
			fmt.Fprintln(w, line)
		default:
			stats.Dropped++
		}
	}
	if err := scanner.Err(); err != nil {
		out.Abort()
		return MapStats{}, fmt.Errorf("read counts matrix: %w", err)
	}

	if err := w.Flush(); err != nil {
		out.Abort()
		return MapStats{}, fmt.Errorf("write counts matrix: %w", err)
	}
	if err := out.Commit(); err != nil {
		return MapStats{}, fmt.Errorf("finalize counts matrix: %w", err)
	}
	return stats, nil
}
