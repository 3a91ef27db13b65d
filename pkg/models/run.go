package models

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	// RunStatusRunning indicates the external tool is still executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the analysis finished successfully.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the analysis exited with an error.
	RunStatusFailed RunStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// CountsData identifies the gene identifier type used in the counts matrix.
type CountsData string

const (
	CountsDataEnsembl    CountsData = "ensembl"
	CountsDataGeneName   CountsData = "gene_name"
	CountsDataHGNCSymbol CountsData = "hgnc_symbol"
)

// Valid returns true if the counts-data value is accepted by the external tool.
func (c CountsData) Valid() bool {
	switch c {
	case CountsDataEnsembl, CountsDataGeneName, CountsDataHGNCSymbol:
		return true
	default:
		return false
	}
}

// AnalysisParams holds the parameters forwarded to the statistical
// analysis method of the external tool.
type AnalysisParams struct {
	// Iterations is the number of permutations.
	Iterations int `yaml:"iterations"`
	// Threshold is the minimum fraction of cells expressing a gene.
	Threshold float64 `yaml:"threshold"`
	// Threads is the worker count passed to the tool.
	Threads int `yaml:"threads"`
	// CountsData is the gene identifier type of the counts matrix.
	CountsData CountsData `yaml:"counts_data"`
	// MicroenvsPath is the optional microenvironment file.
	MicroenvsPath string `yaml:"microenvs,omitempty"`
	// ScoreInteractions enables interaction scoring.
	ScoreInteractions bool `yaml:"score_interactions"`
}

// Run represents one invocation of the statistical analysis.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id"`
	// CountsPath is the counts matrix given to the tool.
	CountsPath string `yaml:"counts"`
	// MetaPath is the two-column metadata file.
	MetaPath string `yaml:"meta"`
	// DBZipPath is the resolved database zip.
	DBZipPath string `yaml:"db_zip"`
	// DBVersion is the database release the zip came from, if known.
	DBVersion string `yaml:"db_version,omitempty"`
	// OutputDir is where the tool wrote its results.
	OutputDir string `yaml:"outdir"`
	// Params are the analysis parameters.
	Params AnalysisParams `yaml:"params"`
	// Status is the current state of the run.
	Status RunStatus `yaml:"status"`
	// Artifacts lists result files observed in the output directory.
	Artifacts []string `yaml:"artifacts,omitempty"`
	// StartedAt is when the subprocess was launched.
	StartedAt time.Time `yaml:"started_at"`
	// CompletedAt is when the subprocess exited, if it has.
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	// Error contains the failure message if Status is failed.
	Error string `yaml:"error,omitempty"`
}
