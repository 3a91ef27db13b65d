package matrix

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hakotori/cpdbkit/internal/mgi"
)

// testMap builds an ortholog map with a few fixed pairs.
func testMap(t *testing.T) *mgi.Map {
	t.Helper()
	m, err := mgi.ReadCSV(strings.NewReader(
		"mouse_symbol,human_symbol\nCd4,CD4\nEpcam,EPCAM\nGapdh,GAPDH\n"))
	if err != nil {
		t.Fatalf("build test map: %v", err)
	}
	return m
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readMaybeGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			t.Fatalf("gzip open %s: %v", path, err)
		}
		defer gr.Close()
		r = gr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "counts.tsv"), "x")
	writeFile(t, filepath.Join(dir, "counts.csv.gz"), "x")
	writeFile(t, filepath.Join(dir, "adata.h5ad"), "x")
	writeFile(t, filepath.Join(dir, "tenx", "matrix.mtx"), "x")
	writeFile(t, filepath.Join(dir, "empty", "readme.md"), "x")

	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{filepath.Join(dir, "counts.tsv"), FormatDense, false},
		{filepath.Join(dir, "counts.csv.gz"), FormatDense, false},
		{filepath.Join(dir, "adata.h5ad"), FormatH5AD, false},
		{filepath.Join(dir, "tenx"), FormatMTX, false},
		{filepath.Join(dir, "empty"), "", true},
		{filepath.Join(dir, "missing.tsv"), "", true},
	}

	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("DetectFormat(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMapDenseDropsUnmapped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "counts.tsv")
	out := filepath.Join(dir, "counts_hs.tsv")

	writeFile(t, in, strings.Join([]string{
		"gene\tAAAC-1\tAAAG-1",
		"Cd4\t0\t3",
		"Xist\t5\t0",
		"Epcam\t2\t2",
	}, "\n")+"\n")

	stats, err := MapGenes(in, out, testMap(t), false)
	if err != nil {
		t.Fatalf("MapGenes failed: %v", err)
	}

	if stats.Genes != 3 || stats.Mapped != 2 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want 3 genes, 2 mapped, 1 dropped", stats)
	}
	if stats.Kept() != 2 {
		t.Errorf("Kept() = %d, want 2", stats.Kept())
	}

	got := readMaybeGzip(t, out)
	want := "gene\tAAAC-1\tAAAG-1\nCD4\t0\t3\nEPCAM\t2\t2\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestMapDenseKeepUnmapped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "counts.csv")
	out := filepath.Join(dir, "counts_hs.csv")

	writeFile(t, in, "gene,c1\nCd4,1\nXist,9\n")

	stats, err := MapGenes(in, out, testMap(t), true)
	if err != nil {
		t.Fatalf("MapGenes failed: %v", err)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0 in keep mode", stats.Dropped)
	}

	got := readMaybeGzip(t, out)
	want := "gene,c1\nCD4,1\nXist,9\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestMapDenseGzipInAndOut(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "counts.tsv.gz")
	out := filepath.Join(dir, "counts_hs.tsv.gz")

	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	io.WriteString(gw, "gene\tc1\nGapdh\t7\n")
	gw.Close()
	f.Close()

	stats, err := MapGenes(in, out, testMap(t), false)
	if err != nil {
		t.Fatalf("MapGenes failed: %v", err)
	}
	if stats.Mapped != 1 {
		t.Errorf("Mapped = %d, want 1", stats.Mapped)
	}

	got := readMaybeGzip(t, out)
	if got != "gene\tc1\nGAPDH\t7\n" {
		t.Errorf("gzip output = %q", got)
	}
}

// writeTenxDir lays out a triplet directory with three genes, two cells.
func writeTenxDir(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "features.tsv"), strings.Join([]string{
		"ENSMUSG01\tCd4\tGene Expression",
		"ENSMUSG02\tXist\tGene Expression",
		"ENSMUSG03\tEpcam\tGene Expression",
	}, "\n")+"\n")
	writeFile(t, filepath.Join(dir, "barcodes.tsv"), "AAAC-1\nAAAG-1\n")
	writeFile(t, filepath.Join(dir, "matrix.mtx"), strings.Join([]string{
		"%%MatrixMarket matrix coordinate integer general",
		"3 2 4",
		"1 1 5",
		"2 1 1",
		"2 2 8",
		"3 2 2",
	}, "\n")+"\n")
}

func TestMapMTXDirDropsAndReindexes(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tenx")
	out := filepath.Join(dir, "tenx_hs")
	writeTenxDir(t, in)

	stats, err := MapGenes(in, out, testMap(t), false)
	if err != nil {
		t.Fatalf("MapGenes failed: %v", err)
	}
	if stats.Genes != 3 || stats.Mapped != 2 || stats.Dropped != 1 {
		t.Errorf("stats = %+v", stats)
	}

	features := readMaybeGzip(t, filepath.Join(out, "features.tsv"))
	wantFeatures := "ENSMUSG01\tCD4\tGene Expression\nENSMUSG03\tEPCAM\tGene Expression\n"
	if features != wantFeatures {
		t.Errorf("features = %q, want %q", features, wantFeatures)
	}

	barcodes := readMaybeGzip(t, filepath.Join(out, "barcodes.tsv"))
	if barcodes != "AAAC-1\nAAAG-1\n" {
		t.Errorf("barcodes altered: %q", barcodes)
	}

	mtx := readMaybeGzip(t, filepath.Join(out, "matrix.mtx"))
	wantMTX := strings.Join([]string{
		"%%MatrixMarket matrix coordinate integer general",
		"2 2 2",
		"1 1 5",
		"2 2 2",
	}, "\n") + "\n"
	if mtx != wantMTX {
		t.Errorf("matrix = %q, want %q", mtx, wantMTX)
	}
}

func TestMapMTXDirKeepUnmapped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tenx")
	out := filepath.Join(dir, "tenx_hs")
	writeTenxDir(t, in)

	stats, err := MapGenes(in, out, testMap(t), true)
	if err != nil {
		t.Fatalf("MapGenes failed: %v", err)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}

	mtx := readMaybeGzip(t, filepath.Join(out, "matrix.mtx"))
	if !strings.Contains(mtx, "3 2 4") {
		t.Errorf("size line should be unchanged in keep mode: %q", mtx)
	}

	features := readMaybeGzip(t, filepath.Join(out, "features.tsv"))
	if !strings.Contains(features, "Xist") {
		t.Errorf("unmapped feature should keep mouse symbol: %q", features)
	}
}

func TestMapMTXDirRejectsSameDir(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tenx")
	writeTenxDir(t, in)

	if _, err := MapGenes(in, in, testMap(t), false); err == nil {
		t.Error("expected error for in-place rewrite")
	}
}

func TestMapMTXDirSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tenx")
	out := filepath.Join(dir, "out")
	writeTenxDir(t, in)
	// Feature table with one entry fewer than the matrix claims.
	writeFile(t, filepath.Join(in, "features.tsv"),
		"ENSMUSG01\tCd4\tGene Expression\nENSMUSG03\tEpcam\tGene Expression\n")

	if _, err := MapGenes(in, out, testMap(t), false); err == nil {
		t.Error("expected error for row count mismatch")
	}
}

func TestMapGenesRejectsH5AD(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "adata.h5ad")
	writeFile(t, in, "not hdf5")

	_, err := MapGenes(in, filepath.Join(dir, "out.h5ad"), testMap(t), false)
	if err == nil {
		t.Fatal("expected error for h5ad input")
	}
	if !strings.Contains(err.Error(), "Python bridge") {
		t.Errorf("error should point at the Python bridge: %v", err)
	}
}
