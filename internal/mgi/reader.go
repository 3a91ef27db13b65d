// Package mgi parses the MGI mouse/human orthology report
// (HOM_MouseHumanSequence.rpt) and builds the strict one-to-one
// mouse-to-human symbol map used for cross-species gene translation.
package mgi

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one record of the orthology report. Only the columns the
// mapping needs are kept: homology group key, organism, gene symbol.
type Row struct {
	GroupID  string
	Organism string
	Symbol   string
}

// report column indexes (tab-separated).
const (
	colGroupID  = 0
	colOrganism = 1
	colSymbol   = 3
)

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openReader opens path for reading, transparently handling gzip (by
// magic number or .gz suffix) and "-" for stdin.
func openReader(path string) (io.ReadCloser, error) {
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
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// ParseReport reads a tab-separated orthology report. Lines starting
// with '#' and lines too short to carry the needed columns are skipped;
// organism is lowercased for matching.
func ParseReport(r io.Reader) ([]Row, error) {
	var rows []Row

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= colSymbol {
			continue
		}
		rows = append(rows, Row{
			GroupID:  strings.TrimSpace(fields[colGroupID]),
			Organism: strings.ToLower(strings.TrimSpace(fields[colOrganism])),
			Symbol:   strings.TrimSpace(fields[colSymbol]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read orthology report: %w", err)
	}
	return rows, nil
}

// LoadReport parses the report at path ("-" for stdin, .gz handled).
func LoadReport(path string) ([]Row, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("open orthology report %s: %w", path, err)
	}
	defer rc.Close()
	return ParseReport(rc)
}
