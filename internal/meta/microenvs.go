package meta

import (
	"bufio"
	"fmt"
	"sort"
	"strings"
)

// Microenv assigns a cell type to a spatial microenvironment. The
// external tool restricts interaction testing to cell types sharing a
// microenvironment.
type Microenv struct {
	CellType         string
	Microenvironment string
}

// LoadMicroenvs reads the two-column (cell_type, microenvironment)
// tab-separated file. A header row whose first field is "cell_type"
// is skipped.
func LoadMicroenvs(path string) ([]Microenv, error) {
	rc, err := openIn(path)
	if err != nil {
		return nil, fmt.Errorf("open microenvironment file %s: %w", path, err)
	}
	defer rc.Close()

	var envs []Microenv
	scanner := bufio.NewScanner(rc)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(fields[0]), ColCellType) {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("microenvironment row %q does not have two tab-separated columns", line)
		}
		envs = append(envs, Microenv{
			CellType:         strings.TrimSpace(fields[0]),
			Microenvironment: strings.TrimSpace(fields[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read microenvironment file: %w", err)
	}

	if len(envs) == 0 {
		return nil, fmt.Errorf("microenvironment file %s is empty", path)
	}
	return envs, nil
}

// ValidateMicroenvs checks that every cell type referenced by the
// microenvironment file exists in the metadata labels.
func ValidateMicroenvs(envs []Microenv, labels []CellLabel) error {
	known := map[string]bool{}
	for _, l := range labels {
		known[l.CellType] = true
	}

	missing := map[string]bool{}
	for _, e := range envs {
		if e.CellType == "" || e.Microenvironment == "" {
			return fmt.Errorf("microenvironment entry with empty field: %+v", e)
		}
		if !known[e.CellType] {
			missing[e.CellType] = true
		}
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for n := range missing {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("microenvironment file references cell types absent from metadata: %s", strings.Join(names, ", "))
	}
	return nil
}
