package mgi

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// csvHeader is the column header of the mapping table.
var csvHeader = []string{"mouse_symbol", "human_symbol"}

// WriteCSV writes the mapping table.
func (m *Map) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range m.pairs {
		if err := cw.Write([]string{p.Mouse, p.Human}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the mapping table to path via a temp file + rename.
func (m *Map) SaveCSV(path string) error {
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

	err = m.WriteCSV(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write mapping table: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("move mapping table into place: %w", err)
	}
	return nil
}

// ReadCSV loads a mapping table previously written by WriteCSV.
func ReadCSV(r io.Reader) (*Map, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read mapping table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("mapping table is empty")
	}
	if records[0][0] != csvHeader[0] || records[0][1] != csvHeader[1] {
		return nil, fmt.Errorf("mapping table has unexpected header %v", records[0])
	}

	m := &Map{byMouse: map[string]string{}}
	for _, rec := range records[1:] {
		p := Pair{Mouse: rec[0], Human: rec[1]}
		m.pairs = append(m.pairs, p)
		m.byMouse[p.Mouse] = p.Human
	}
	return m, nil
}

// LoadCSV loads a mapping table from path (gzip and "-" supported).
func LoadCSV(path string) (*Map, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping table %s: %w", path, err)
	}
	defer rc.Close()
	return ReadCSV(rc)
}
