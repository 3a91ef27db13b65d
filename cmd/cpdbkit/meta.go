package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/config"
	"github.com/hakotori/cpdbkit/internal/exec"
	"github.com/hakotori/cpdbkit/internal/meta"
	"github.com/hakotori/cpdbkit/internal/pybridge"
)

var (
	metaIn         string
	metaOut        string
	metaObsKey     string
	metaBarcodeKey string
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Build a two-column cell metadata file",
	Long: `Build the two-column metadata file the statistical analysis expects.

The output is a TSV with a "Cell" column of cell barcodes and a
"cell_type" column of annotation labels. Input can be:
  - an .h5ad file, whose obs table is exported via the Python environment
  - a TSV or CSV annotation table with a barcode column and a label column

Cell barcodes must be unique and labels non-empty; the command fails
otherwise rather than writing a file the analysis would reject.

Examples:
  cpdbkit meta --in adata.h5ad --obs-key cell_type --out meta.tsv
  cpdbkit meta --in obs.tsv --obs-key annotation --barcode-key barcode`,
	RunE: runMeta,
}

func init() {
	metaCmd.Flags().StringVar(&metaIn, "in", "", "Input file (.h5ad, .tsv, .csv; gzip accepted)")
	metaCmd.Flags().StringVar(&metaOut, "out", "meta.tsv", "Output metadata TSV")
	metaCmd.Flags().StringVar(&metaObsKey, "obs-key", "cell_type", "Annotation column name")
	metaCmd.Flags().StringVar(&metaBarcodeKey, "barcode-key", "", "Barcode column name (default: first column)")
	metaCmd.MarkFlagRequired("in")
}

func runMeta(cmd *cobra.Command, args []string) error {
	tablePath := metaIn
	barcodeKey := metaBarcodeKey

	if strings.HasSuffix(strings.ToLower(metaIn), ".h5ad") {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		tmpDir, err := os.MkdirTemp("", "cpdbkit-obs-*")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		tablePath = filepath.Join(tmpDir, "obs.tsv")
		bridge := pybridge.New(exec.NewRunner(), cfg.Python.Bin)
		if err := bridge.ExportObs(cmd.Context(), metaIn, metaObsKey, tablePath); err != nil {
			return err
		}
		// The exported table's first column is the barcode index
		barcodeKey = "barcode"
	}

	labels, err := meta.BuildFromObsFile(tablePath, barcodeKey, metaObsKey)
	if err != nil {
		return fmt.Errorf("building metadata from %s: %w", metaIn, err)
	}

	if err := meta.Save(metaOut, labels); err != nil {
		return fmt.Errorf("writing %s: %w", metaOut, err)
	}

	printStatus("✓", fmt.Sprintf("Wrote %d cells to %s", len(labels), metaOut), color.FgGreen)
	return nil
}
