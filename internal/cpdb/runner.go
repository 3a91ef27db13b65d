// Package cpdb invokes the external tool's statistical analysis and
// tracks what it produces. The permutation test itself is a black box;
// this package marshals parameters into the subprocess, streams its
// output, and reports the result files it writes.
package cpdb

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/hakotori/cpdbkit/internal/exec"
	"github.com/hakotori/cpdbkit/pkg/models"
)

//go:embed snippets/run_stat.py
var runStatSrc []byte

// Runner launches statistical-analysis runs.
type Runner struct {
	runner exec.CommandRunner
	python string
	logger *DebugLogger
}

// NewRunner creates a Runner for the given interpreter. logger may be
// nil, in which case nothing is logged.
func NewRunner(runner exec.CommandRunner, python string, logger *DebugLogger) *Runner {
	if python == "" {
		python = "python3"
	}
	return &Runner{runner: runner, python: python, logger: logger}
}

// Args builds the snippet's positional arguments for a run.
// Exposed for tests; the order is part of the snippet's contract.
func Args(run models.Run) []string {
	score := "0"
	if run.Params.ScoreInteractions {
		score = "1"
	}
	return []string{
		"-",
		run.DBZipPath,
		run.MetaPath,
		run.CountsPath,
		string(run.Params.CountsData),
		strconv.Itoa(run.Params.Iterations),
		strconv.FormatFloat(run.Params.Threshold, 'g', -1, 64),
		strconv.Itoa(run.Params.Threads),
		run.OutputDir,
		run.Params.MicroenvsPath,
		score,
	}
}

// Run executes the analysis, forwarding every output line to onLine.
// It blocks until the subprocess exits.
func (r *Runner) Run(ctx context.Context, run models.Run, onLine func(string)) error {
	if !run.Params.CountsData.Valid() {
		return fmt.Errorf("invalid counts_data %q (expected ensembl, gene_name or hgnc_symbol)", run.Params.CountsData)
	}
	if run.Params.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", run.Params.Iterations)
	}
	if run.Params.Threshold < 0 || run.Params.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %g", run.Params.Threshold)
	}

	r.logger.Log("starting run %s: counts=%s meta=%s db=%s", run.ID, run.CountsPath, run.MetaPath, run.DBZipPath)
	r.logger.Log("params: iterations=%d threshold=%g threads=%d counts_data=%s microenvs=%s score=%t",
		run.Params.Iterations, run.Params.Threshold, run.Params.Threads,
		run.Params.CountsData, run.Params.MicroenvsPath, run.Params.ScoreInteractions)

	err := r.runner.Stream(ctx, "", runStatSrc, func(line string) {
		r.logger.Log("cpdb: %s", line)
		if onLine != nil {
			onLine(line)
		}
	}, r.python, Args(run)...)

	if err != nil {
		r.logger.Log("run %s failed: %v", run.ID, err)
		return fmt.Errorf("statistical analysis failed: %w", err)
	}
	r.logger.Log("run %s completed", run.ID)
	return nil
}
