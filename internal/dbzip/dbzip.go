// Package dbzip locates, validates, and packs CellPhoneDB database
// archives. The external tool consumes a single cellphonedb.zip whose
// root must contain the core interaction tables; this package accepts
// the several on-disk layouts a database directory ends up in (a proper
// release tree, a bare zip, or loose CSV exports) and produces a usable
// zip from any of them.
package dbzip

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ZipName is the canonical archive file name.
const ZipName = "cellphonedb.zip"

// RequiredFiles are the CSV tables the external tool needs at the zip root.
var RequiredFiles = []string{
	"protein_table.csv",
	"gene_table.csv",
	"interaction_table.csv",
}

// NotFoundError is returned when no usable database archive could be
// located or assembled under the database directory.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"no usable database zip under %s and no packable CSV directory found (expected %s)",
		e.Dir, strings.Join(RequiredFiles, ", "),
	)
}

// Resolve returns the path of a usable database zip for the given
// directory and version. Lookup order:
//  1. <dir>/releases/<version>/cellphonedb.zip
//  2. <dir>/cellphonedb.zip
//  3. pack <dir>/releases/<version>/*.csv into (1) if the tables are there
//  4. pack <dir>/*.csv into (2) if the tables are there
//  5. any *cellphonedb*.zip directly under <dir>
func Resolve(dir, version string) (string, error) {
	relDir := filepath.Join(dir, "releases", version)
	stdZip := filepath.Join(relDir, ZipName)
	if isFile(stdZip) {
		return stdZip, nil
	}

	directZip := filepath.Join(dir, ZipName)
	if isFile(directZip) {
		return directZip, nil
	}

	if isDir(relDir) && hasRequiredCSVs(relDir) {
		if err := PackFromDir(relDir, stdZip); err != nil {
			return "", err
		}
		return stdZip, nil
	}

	if isDir(dir) && hasRequiredCSVs(dir) {
		if err := PackFromDir(dir, directZip); err != nil {
			return "", err
		}
		return directZip, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read database directory: %w", err)
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if !e.IsDir() && strings.HasSuffix(name, ".zip") && strings.Contains(name, "cellphonedb") {
			return filepath.Join(dir, e.Name()), nil
		}
	}

	return "", &NotFoundError{Dir: dir}
}

// Validate checks that the zip contains every required table at its root.
// It returns the total number of archive members.
func Validate(zipPath string) (int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open database zip: %w", err)
	}
	defer zr.Close()

	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}

	var missing []string
	for _, required := range RequiredFiles {
		if !names[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("database zip %s is missing required files: %s", zipPath, strings.Join(missing, ", "))
	}

	return len(zr.File), nil
}

// PackFromDir packs every CSV under srcDir (recursively) into outZip,
// flattening paths so all tables end up at the archive root. The result
// is validated before the function returns.
func PackFromDir(srcDir, outZip string) error {
	tmp, err := os.CreateTemp(filepath.Dir(outZip), ZipName+".pack-*")
	if err != nil {
		return fmt.Errorf("create temp zip: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	zw := zip.NewWriter(tmp)

	var csvPaths []string
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			csvPaths = append(csvPaths, path)
		}
		return nil
	})
	if err != nil {
		zw.Close()
		tmp.Close()
		return fmt.Errorf("scan %s for CSV tables: %w", srcDir, err)
	}
	// Deterministic member order regardless of walk order.
	sort.Strings(csvPaths)

	for _, path := range csvPaths {
		if err := addFlattened(zw, path); err != nil {
			zw.Close()
			tmp.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalize zip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp zip: %w", err)
	}

	if _, err := Validate(tmpPath); err != nil {
		return fmt.Errorf("packed zip failed validation: %w", err)
	}

	if err := os.Rename(tmpPath, outZip); err != nil {
		return fmt.Errorf("move zip into place: %w", err)
	}
	return nil
}

// addFlattened writes one file into the zip under its base name.
func addFlattened(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("add %s to zip: %w", filepath.Base(path), err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write %s into zip: %w", filepath.Base(path), err)
	}
	return nil
}

// hasRequiredCSVs reports whether every required table exists somewhere
// under dir.
func hasRequiredCSVs(dir string) bool {
	found := make(map[string]bool, len(RequiredFiles))
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			for _, required := range RequiredFiles {
				if d.Name() == required {
					found[d.Name()] = true
				}
			}
		}
		return nil
	})
	return len(found) == len(RequiredFiles)
}

// DirListing returns every file under dir, one relative path per entry.
// Used to give the operator something actionable when resolution fails.
func DirListing(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if rel, rerr := filepath.Rel(dir, path); rerr == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	sort.Strings(files)
	return files
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
