package dbzip

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeZip creates a zip at path containing the given member names.
func writeZip(t *testing.T, path string, members ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("add member %s: %v", name, err)
		}
		if _, err := w.Write([]byte("id,name\n1,x\n")); err != nil {
			t.Fatalf("write member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

// writeCSVs creates empty-ish CSV files under dir.
func writeCSVs(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("id\n1\n"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.zip")
	writeZip(t, good, "protein_table.csv", "gene_table.csv", "interaction_table.csv", "complex_table.csv")

	n, err := Validate(good)
	if err != nil {
		t.Fatalf("Validate failed on complete zip: %v", err)
	}
	if n != 4 {
		t.Errorf("member count = %d, want 4", n)
	}

	bad := filepath.Join(dir, "bad.zip")
	writeZip(t, bad, "protein_table.csv")

	if _, err := Validate(bad); err == nil {
		t.Error("Validate accepted a zip missing required tables")
	}
}

func TestResolveReleaseZip(t *testing.T) {
	dir := t.TempDir()
	relDir := filepath.Join(dir, "releases", "v5.0.0")
	if err := os.MkdirAll(relDir, 0755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(relDir, "cellphonedb.zip")
	writeZip(t, want, "protein_table.csv", "gene_table.csv", "interaction_table.csv")

	got, err := Resolve(dir, "v5.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveDirectZip(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "cellphonedb.zip")
	writeZip(t, want, "protein_table.csv", "gene_table.csv", "interaction_table.csv")

	got, err := Resolve(dir, "v5.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolvePacksReleaseCSVs(t *testing.T) {
	dir := t.TempDir()
	relDir := filepath.Join(dir, "releases", "v5.0.0")
	writeCSVs(t, relDir, "protein_table.csv", "gene_table.csv", "interaction_table.csv")
	// A nested CSV must also land at the zip root.
	writeCSVs(t, filepath.Join(relDir, "sources"), "complex_table.csv")

	got, err := Resolve(dir, "v5.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := filepath.Join(relDir, "cellphonedb.zip")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}

	zr, err := zip.OpenReader(got)
	if err != nil {
		t.Fatalf("open packed zip: %v", err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"protein_table.csv", "gene_table.csv", "interaction_table.csv", "complex_table.csv"} {
		if !names[want] {
			t.Errorf("packed zip missing %s", want)
		}
	}
	if len(zr.File) != 4 {
		t.Errorf("packed zip has %d members, want 4", len(zr.File))
	}
}

func TestResolvePacksLooseCSVs(t *testing.T) {
	dir := t.TempDir()
	writeCSVs(t, dir, "protein_table.csv", "gene_table.csv", "interaction_table.csv")

	got, err := Resolve(dir, "v5.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != filepath.Join(dir, "cellphonedb.zip") {
		t.Errorf("Resolve = %q, want direct zip path", got)
	}
	if _, err := Validate(got); err != nil {
		t.Errorf("packed zip invalid: %v", err)
	}
}

func TestResolveFallbackScan(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "CellphoneDB-v5-custom.zip")
	writeZip(t, want, "something.csv")

	got, err := Resolve(dir, "v5.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	writeCSVs(t, dir, "protein_table.csv") // incomplete table set

	_, err := Resolve(dir, "v5.0.0")
	if err == nil {
		t.Fatal("expected resolution failure")
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("error type = %T, want *NotFoundError", err)
	}
}

func TestPackFromDirRejectsIncompleteSet(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "csvs")
	writeCSVs(t, src, "protein_table.csv", "gene_table.csv")

	out := filepath.Join(dir, "cellphonedb.zip")
	if err := PackFromDir(src, out); err == nil {
		t.Fatal("PackFromDir should fail when required tables are missing")
	}
	if _, err := os.Stat(out); err == nil {
		t.Error("invalid zip left on disk")
	}
}

func TestDirListing(t *testing.T) {
	dir := t.TempDir()
	writeCSVs(t, filepath.Join(dir, "releases", "v5.0.0"), "gene_table.csv")
	writeCSVs(t, dir, "notes.csv")

	got := DirListing(dir)
	want := []string{"notes.csv", filepath.Join("releases", "v5.0.0", "gene_table.csv")}
	if len(got) != len(want) {
		t.Fatalf("DirListing = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DirListing[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
