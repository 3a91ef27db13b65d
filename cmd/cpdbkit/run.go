package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/config"
	"github.com/hakotori/cpdbkit/internal/cpdb"
	"github.com/hakotori/cpdbkit/internal/dbzip"
	"github.com/hakotori/cpdbkit/internal/exec"
	"github.com/hakotori/cpdbkit/internal/meta"
	"github.com/hakotori/cpdbkit/internal/release"
	"github.com/hakotori/cpdbkit/internal/state"
	"github.com/hakotori/cpdbkit/pkg/models"
)

// exitCodeNoDatabase is the exit code when no usable database zip can
// be resolved, distinguishing setup problems from analysis failures.
const exitCodeNoDatabase = 2

var (
	runCounts      string
	runMetaPath    string
	runCPDBDir     string
	runCPDBVersion string
	runCPDBZip     string
	runOutdir      string
	runIterations  int
	runThreshold   float64
	runThreads     int
	runCountsData  string
	runMicroenvs   string
	runScore       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the statistical analysis",
	Long: `Run the CellPhoneDB statistical analysis on a counts matrix.

Resolves a database zip from the database directory, validates it,
launches the analysis in the configured Python environment, and streams
its output. The run is recorded in the local registry and a run.yaml
provenance file is written next to the results.

Exits with code 2 when no usable database zip can be found, so scripts
can tell a missing database apart from an analysis failure.

Examples:
  cpdbkit run --counts counts.tsv --meta meta.tsv --outdir results/
  cpdbkit run --counts adata.h5ad --meta meta.tsv --cpdb-version v5.0.0 \
      --iterations 500 --threads 4 --microenvs microenvs.tsv`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runCounts, "counts", "", "Counts matrix (.h5ad, .tsv, .csv, or MTX directory)")
	runCmd.Flags().StringVar(&runMetaPath, "meta", "", "Two-column cell metadata TSV")
	runCmd.Flags().StringVar(&runCPDBDir, "cpdb-dir", "", "Database directory (defaults to configured dir)")
	runCmd.Flags().StringVar(&runCPDBVersion, "cpdb-version", "", "Database release version (defaults to configured version)")
	runCmd.Flags().StringVar(&runCPDBZip, "cpdb-zip", "", "Explicit database zip path (skips resolution)")
	runCmd.Flags().StringVar(&runOutdir, "outdir", "cpdb_out", "Output directory for results")
	runCmd.Flags().IntVar(&runIterations, "iterations", 0, "Permutation count (defaults to configured value)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", -1, "Expression fraction threshold (defaults to configured value)")
	runCmd.Flags().IntVar(&runThreads, "threads", 0, "Worker threads (defaults to configured value)")
	runCmd.Flags().StringVar(&runCountsData, "counts-data", "", "Gene identifier type: ensembl, gene_name, hgnc_symbol")
	runCmd.Flags().StringVar(&runMicroenvs, "microenvs", "", "Microenvironment TSV restricting tested pairs")
	runCmd.Flags().BoolVar(&runScore, "score-interactions", false, "Enable interaction scoring")
	runCmd.MarkFlagRequired("counts")
	runCmd.MarkFlagRequired("meta")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params := cfg.Analysis.Params()
	if runIterations > 0 {
		params.Iterations = runIterations
	}
	if runThreshold >= 0 {
		params.Threshold = runThreshold
	}
	if runThreads > 0 {
		params.Threads = runThreads
	}
	if runCountsData != "" {
		params.CountsData = models.CountsData(runCountsData)
	}
	params.MicroenvsPath = runMicroenvs
	params.ScoreInteractions = runScore

	// Validate the metadata before touching anything else; a malformed
	// file fails minutes into the analysis otherwise.
	labels, err := meta.Load(runMetaPath)
	if err != nil {
		return fmt.Errorf("validating metadata %s: %w", runMetaPath, err)
	}
	if runMicroenvs != "" {
		envs, err := meta.LoadMicroenvs(runMicroenvs)
		if err != nil {
			return fmt.Errorf("reading microenvironments %s: %w", runMicroenvs, err)
		}
		if err := meta.ValidateMicroenvs(envs, labels); err != nil {
			return err
		}
	}
	if _, err := os.Stat(runCounts); err != nil {
		return fmt.Errorf("counts matrix: %w", err)
	}

	zipPath, dbVersion, err := resolveDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(exitCodeNoDatabase)
	}

	members, err := dbzip.Validate(zipPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(exitCodeNoDatabase)
	}
	printStatus("✓", fmt.Sprintf("Database zip %s (%d members)", zipPath, members), color.FgGreen)

	outdir, err := filepath.Abs(runOutdir)
	if err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}

	run := models.Run{
		ID:         uuid.New().String(),
		CountsPath: runCounts,
		MetaPath:   runMetaPath,
		DBZipPath:  zipPath,
		DBVersion:  dbVersion,
		OutputDir:  outdir,
		Params:     params,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	db, err := state.OpenDefault()
	if err != nil {
		return fmt.Errorf("opening run registry: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating run registry: %w", err)
	}
	if err := db.CreateRun(run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	watcher, err := cpdb.NewArtifactWatcher(outdir, func(name string) {
		printStatus("•", name, color.FgCyan)
	})
	if err != nil {
		return fmt.Errorf("watching output directory: %w", err)
	}
	defer watcher.Close()

	logger := cpdb.NewDebugLoggerForRun(outdir)
	defer logger.Close()

	runner := cpdb.NewRunner(exec.NewRunner(), cfg.Python.Bin, logger)

	fmt.Printf("Run %s started (iterations=%d, threads=%d)\n\n", run.ID, params.Iterations, params.Threads)
	runErr := runner.Run(cmd.Context(), run, func(line string) {
		fmt.Println(line)
	})

	completedAt := time.Now().UTC()
	run.Artifacts = watcher.Seen()
	run.CompletedAt = &completedAt

	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = models.RunStatusCompleted
	}

	if err := db.CompleteRun(run.ID, run.Status, run.Error, completedAt); err != nil {
		printStatus("⚠", fmt.Sprintf("Run finished but registry update failed: %v", err), color.FgYellow)
	}
	if err := cpdb.WriteManifest(run); err != nil {
		printStatus("⚠", fmt.Sprintf("Could not write %s: %v", cpdb.ManifestName, err), color.FgYellow)
	}

	if runErr != nil {
		return runErr
	}

	fmt.Println()
	printStatus("✓", fmt.Sprintf("Run %s completed in %s", run.ID, completedAt.Sub(run.StartedAt).Round(time.Second)), color.FgGreen)
	if len(run.Artifacts) > 0 {
		fmt.Println("Results:")
		for _, name := range run.Artifacts {
			fmt.Printf("  %s\n", filepath.Join(outdir, name))
		}
	}
	return nil
}

// resolveDatabase locates the database zip, honoring an explicit
// --cpdb-zip override. Returns the zip path and the release version it
// belongs to, when known.
func resolveDatabase(cfg *config.Config) (string, string, error) {
	if runCPDBZip != "" {
		if _, err := os.Stat(runCPDBZip); err != nil {
			return "", "", fmt.Errorf("database zip: %w", err)
		}
		return runCPDBZip, runCPDBVersion, nil
	}

	dir := runCPDBDir
	if dir == "" {
		dir = cfg.Database.Dir
	}
	if dir == "" {
		dir = "cpdb"
	}

	version := runCPDBVersion
	if version == "" {
		version = cfg.Database.DefaultVersion
	}
	normalized, err := release.NormalizeVersion(version)
	if err != nil {
		return "", "", err
	}

	zipPath, err := dbzip.Resolve(dir, normalized)
	if err != nil {
		var notFound *dbzip.NotFoundError
		if errors.As(err, &notFound) {
			listing := dbzip.DirListing(dir)
			if len(listing) > 0 {
				return "", "", fmt.Errorf("%w\ndirectory contents:\n  %s",
					err, strings.Join(listing, "\n  "))
			}
		}
		return "", "", err
	}
	return zipPath, normalized, nil
}
