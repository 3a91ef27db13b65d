// Package pybridge runs short embedded Python snippets through the
// interpreter that hosts the external tool. Annotated HDF5 matrices
// (h5ad) have no Go codec worth maintaining; since the analysis stack
// is Python anyway, the few h5ad touch points are delegated to it.
// Snippets are fed to `python -` over stdin, so nothing is written to
// the user's filesystem except the declared outputs.
package pybridge

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/hakotori/cpdbkit/internal/exec"
)

//go:embed snippets/obs_export.py
var obsExportSrc []byte

//go:embed snippets/var_rename.py
var varRenameSrc []byte

//go:embed snippets/check_env.py
var checkEnvSrc []byte

// Bridge executes the embedded snippets.
type Bridge struct {
	runner exec.CommandRunner
	python string
}

// New creates a Bridge using the given interpreter binary.
func New(runner exec.CommandRunner, python string) *Bridge {
	if python == "" {
		python = "python3"
	}
	return &Bridge{runner: runner, python: python}
}

// Python returns the interpreter the bridge runs.
func (b *Bridge) Python() string {
	return b.python
}

// CheckEnv verifies the interpreter exists and can import the external
// tool, returning the tool's version string.
func (b *Bridge) CheckEnv(ctx context.Context) (string, error) {
	if _, err := b.runner.LookPath(b.python); err != nil {
		return "", fmt.Errorf("python interpreter %q not found in PATH", b.python)
	}

	out, err := b.runner.RunStdin(ctx, "", checkEnvSrc, b.python, "-")
	if err != nil {
		return "", snippetError("probe analysis environment", out, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ExportObs extracts per-cell annotations from an h5ad file: the cell
// barcodes plus the obsKey column, written as a two-column TSV at outTSV.
func (b *Bridge) ExportObs(ctx context.Context, h5adPath, obsKey, outTSV string) error {
	out, err := b.runner.RunStdin(ctx, "", obsExportSrc, b.python, "-", h5adPath, outTSV, obsKey)
	if err != nil {
		return snippetError(fmt.Sprintf("export obs %q from %s", obsKey, h5adPath), out, err)
	}
	return nil
}

// RenameVar rewrites the gene axis of an h5ad file using the mapping
// table at mapCSV. Unmapped genes are dropped unless keepUnmapped is
// set. Returns the snippet's stats output (n_genes=...).
func (b *Bridge) RenameVar(ctx context.Context, inH5AD, outH5AD, mapCSV string, keepUnmapped bool) (string, error) {
	mode := "drop"
	if keepUnmapped {
		mode = "keep"
	}

	out, err := b.runner.RunStdin(ctx, "", varRenameSrc, b.python, "-", inH5AD, outH5AD, mapCSV, mode)
	if err != nil {
		return "", snippetError(fmt.Sprintf("rewrite gene axis of %s", inH5AD), out, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// snippetError folds the interpreter's output into the error so the
// operator sees the Python traceback.
func snippetError(action string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("%s: %w", action, err)
	}
	return fmt.Errorf("%s: %w\n%s", action, err, msg)
}
