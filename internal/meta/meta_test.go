package meta

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		labels  []CellLabel
		wantErr string
	}{
		{
			name:   "valid",
			labels: []CellLabel{{"AAAC-1", "T cell"}, {"AAAG-1", "B cell"}},
		},
		{
			name:    "empty set",
			labels:  nil,
			wantErr: "no cells",
		},
		{
			name:    "duplicate cell",
			labels:  []CellLabel{{"AAAC-1", "T cell"}, {"AAAC-1", "B cell"}},
			wantErr: "duplicate cell identifier",
		},
		{
			name:    "empty label",
			labels:  []CellLabel{{"AAAC-1", ""}},
			wantErr: "empty cluster label",
		},
		{
			name:    "empty cell id",
			labels:  []CellLabel{{"", "T cell"}},
			wantErr: "empty cell identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.labels)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteAndRead(t *testing.T) {
	labels := []CellLabel{
		{"AAAC-1", "T cell"},
		{"AAAG-1", "B cell"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, labels); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := "Cell\tcell_type\nAAAC-1\tT cell\nAAAG-1\tB cell\n"
	if buf.String() != want {
		t.Errorf("Write = %q, want %q", buf.String(), want)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 || got[0] != labels[0] || got[1] != labels[1] {
		t.Errorf("Read = %+v, want %+v", got, labels)
	}
}

func TestReadHeaderless(t *testing.T) {
	got, err := Read(strings.NewReader("AAAC-1\tT cell\nAAAG-1\tB cell\n"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d labels, want 2", len(got))
	}
}

func TestReadRejectsSingleColumn(t *testing.T) {
	_, err := Read(strings.NewReader("Cell\tcell_type\nAAAC-1\n"))
	if err == nil {
		t.Error("expected error for single-column row")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "meta.tsv")

	labels := []CellLabel{{"AAAC-1", "T cell"}}
	if err := Save(path, labels); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0] != labels[0] {
		t.Errorf("Load = %+v, want %+v", got, labels)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.tsv")

	err := Save(path, []CellLabel{{"AAAC-1", "T"}, {"AAAC-1", "B"}})
	if err == nil {
		t.Fatal("Save accepted duplicate cells")
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("invalid metadata written to disk")
	}
}

func TestBuildFromObsTableTSV(t *testing.T) {
	table := strings.Join([]string{
		"barcode\tn_counts\tcell_type",
		"AAAC-1\t1000\tT cell",
		"AAAG-1\t800\tB cell",
	}, "\n") + "\n"

	labels, err := BuildFromObsTable(strings.NewReader(table), "", "cell_type")
	if err != nil {
		t.Fatalf("BuildFromObsTable failed: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("got %d labels, want 2", len(labels))
	}
	if labels[0].Cell != "AAAC-1" || labels[0].CellType != "T cell" {
		t.Errorf("labels[0] = %+v", labels[0])
	}
}

func TestBuildFromObsTableCSVWithBarcodeKey(t *testing.T) {
	table := "cluster,bin_id\nEndothelium,bin_0001\nStroma,bin_0002\n"

	labels, err := BuildFromObsTable(strings.NewReader(table), "bin_id", "cluster")
	if err != nil {
		t.Fatalf("BuildFromObsTable failed: %v", err)
	}
	if labels[0].Cell != "bin_0001" || labels[0].CellType != "Endothelium" {
		t.Errorf("labels[0] = %+v", labels[0])
	}
}

func TestBuildFromObsTableMissingColumn(t *testing.T) {
	table := "barcode\tleiden\nAAAC-1\t3\n"

	_, err := BuildFromObsTable(strings.NewReader(table), "", "cell_type")
	if err == nil || !strings.Contains(err.Error(), "cell_type") {
		t.Errorf("expected missing-column error naming cell_type, got %v", err)
	}
}

func TestLoadMicroenvs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microenvs.tsv")
	content := "cell_type\tmicroenvironment\nT cell\ttumor_core\nB cell\ttumor_edge\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	envs, err := LoadMicroenvs(path)
	if err != nil {
		t.Fatalf("LoadMicroenvs failed: %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("got %d envs, want 2", len(envs))
	}
	if envs[0].CellType != "T cell" || envs[0].Microenvironment != "tumor_core" {
		t.Errorf("envs[0] = %+v", envs[0])
	}
}

func TestValidateMicroenvs(t *testing.T) {
	labels := []CellLabel{{"c1", "T cell"}, {"c2", "B cell"}}

	envs := []Microenv{
		{"T cell", "tumor_core"},
		{"B cell", "tumor_core"},
	}
	if err := ValidateMicroenvs(envs, labels); err != nil {
		t.Errorf("ValidateMicroenvs failed on consistent input: %v", err)
	}

	envs = append(envs, Microenv{"NK cell", "tumor_edge"})
	err := ValidateMicroenvs(envs, labels)
	if err == nil || !strings.Contains(err.Error(), "NK cell") {
		t.Errorf("expected error naming NK cell, got %v", err)
	}
}
