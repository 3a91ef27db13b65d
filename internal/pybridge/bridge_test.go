package pybridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hakotori/cpdbkit/internal/exec"
)

func TestCheckEnv(t *testing.T) {
	runner := exec.NewMockRunner()
	runner.Output["python3"] = []byte("5.0.0\n")

	b := New(runner, "")
	version, err := b.CheckEnv(context.Background())
	if err != nil {
		t.Fatalf("CheckEnv failed: %v", err)
	}
	if version != "5.0.0" {
		t.Errorf("version = %q, want 5.0.0", version)
	}

	if len(runner.Calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(runner.Calls))
	}
	call := runner.Calls[0]
	if call.Name != "python3" {
		t.Errorf("interpreter = %q, want python3", call.Name)
	}
	if len(call.Args) != 1 || call.Args[0] != "-" {
		t.Errorf("args = %v, want [-]", call.Args)
	}
	if !strings.Contains(string(call.Stdin), "import cellphonedb") {
		t.Error("check_env snippet not fed over stdin")
	}
}

func TestCheckEnvMissingInterpreter(t *testing.T) {
	runner := exec.NewMockRunner()
	runner.MissingBinaries = []string{"python9"}

	b := New(runner, "python9")
	_, err := b.CheckEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "python9") {
		t.Errorf("expected missing-interpreter error, got %v", err)
	}
}

func TestExportObsArgs(t *testing.T) {
	runner := exec.NewMockRunner()

	b := New(runner, "python3")
	err := b.ExportObs(context.Background(), "/data/adata.h5ad", "cell_type", "/tmp/obs.tsv")
	if err != nil {
		t.Fatalf("ExportObs failed: %v", err)
	}

	call := runner.Calls[0]
	want := []string{"-", "/data/adata.h5ad", "/tmp/obs.tsv", "cell_type"}
	if len(call.Args) != len(want) {
		t.Fatalf("args = %v, want %v", call.Args, want)
	}
	for i := range want {
		if call.Args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, call.Args[i], want[i])
		}
	}
	if !strings.Contains(string(call.Stdin), "read_h5ad") {
		t.Error("obs_export snippet not fed over stdin")
	}
}

func TestRenameVarModes(t *testing.T) {
	runner := exec.NewMockRunner()
	runner.Output["python3"] = []byte("n_genes=12000\n")

	b := New(runner, "python3")

	stats, err := b.RenameVar(context.Background(), "in.h5ad", "out.h5ad", "map.csv", false)
	if err != nil {
		t.Fatalf("RenameVar failed: %v", err)
	}
	if stats != "n_genes=12000" {
		t.Errorf("stats = %q", stats)
	}
	if got := runner.Calls[0].Args[4]; got != "drop" {
		t.Errorf("mode = %q, want drop", got)
	}

	if _, err := b.RenameVar(context.Background(), "in.h5ad", "out.h5ad", "map.csv", true); err != nil {
		t.Fatalf("RenameVar keep failed: %v", err)
	}
	if got := runner.Calls[1].Args[4]; got != "keep" {
		t.Errorf("mode = %q, want keep", got)
	}
}

func TestSnippetErrorIncludesOutput(t *testing.T) {
	runner := exec.NewMockRunner()
	runner.Output["python3"] = []byte("Traceback: KeyError 'cell_type'\n")
	runner.Err = errors.New("exit status 3")

	b := New(runner, "python3")
	err := b.ExportObs(context.Background(), "a.h5ad", "cell_type", "obs.tsv")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "KeyError") {
		t.Errorf("error should carry the interpreter output: %v", err)
	}
}
