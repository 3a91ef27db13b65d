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
	"github.com/hakotori/cpdbkit/internal/matrix"
	"github.com/hakotori/cpdbkit/internal/mgi"
	"github.com/hakotori/cpdbkit/internal/pybridge"
)

var (
	mapMGIPath      string
	mapUseMap       string
	mapIn           string
	mapOut          string
	mapCSVOut       string
	mapKeepUnmapped bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map mouse gene symbols to human orthologs",
	Long: `Build a mouse-to-human ortholog mapping and optionally apply it
to a counts matrix.

The mapping comes from the MGI homology report (HOM_MouseHumanSequence.rpt).
Only strict one-to-one ortholog groups are kept: a group contributes a
pair only when it contains exactly one mouse symbol and exactly one
human symbol. Ambiguous groups are discarded entirely.

Inputs can be dense matrices (.tsv/.csv, gzip accepted), Matrix Market
directories (matrix.mtx + features + barcodes), or .h5ad files. Genes
without a mapping are dropped unless --keep-unmapped is set.

Examples:
  cpdbkit map --mgi HOM_MouseHumanSequence.rpt --map-csv mm_to_hs.csv
  cpdbkit map --mgi HOM.rpt --in counts_mm.tsv.gz --out counts_hs.tsv.gz
  cpdbkit map --use-map mm_to_hs.csv --in adata_mm.h5ad --out adata_hs.h5ad`,
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringVar(&mapMGIPath, "mgi", "", "MGI homology report (.rpt, gzip accepted)")
	mapCmd.Flags().StringVar(&mapUseMap, "use-map", "", "Existing mapping CSV instead of --mgi")
	mapCmd.Flags().StringVar(&mapIn, "in", "", "Counts matrix to rewrite (optional)")
	mapCmd.Flags().StringVar(&mapOut, "out", "", "Rewritten matrix destination (required with --in)")
	mapCmd.Flags().StringVar(&mapCSVOut, "map-csv", "", "Write the mapping table to this CSV")
	mapCmd.Flags().BoolVar(&mapKeepUnmapped, "keep-unmapped", false, "Keep genes without an ortholog")
	mapCmd.MarkFlagsMutuallyExclusive("mgi", "use-map")
	mapCmd.MarkFlagsRequiredTogether("in", "out")
}

func runMap(cmd *cobra.Command, args []string) error {
	if mapMGIPath == "" && mapUseMap == "" {
		return fmt.Errorf("either --mgi or --use-map is required")
	}
	if mapIn == "" && mapCSVOut == "" {
		return fmt.Errorf("nothing to do: pass --map-csv to save the mapping, --in/--out to rewrite a matrix")
	}

	m, err := loadMapping()
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("%d one-to-one ortholog pairs", m.Len()), color.FgGreen)

	if mapCSVOut != "" {
		if err := m.SaveCSV(mapCSVOut); err != nil {
			return fmt.Errorf("writing mapping CSV: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Mapping written to %s", mapCSVOut), color.FgGreen)
	}

	if mapIn == "" {
		return nil
	}

	format, err := matrix.DetectFormat(mapIn)
	if err != nil {
		return err
	}

	if format == matrix.FormatH5AD {
		return mapH5AD(cmd, m)
	}

	stats, err := matrix.MapGenes(mapIn, mapOut, m, mapKeepUnmapped)
	if err != nil {
		return fmt.Errorf("rewriting %s: %w", mapIn, err)
	}
	printStatus("✓", fmt.Sprintf("Rewrote %s: %d genes in, %d mapped, %d dropped",
		mapOut, stats.Genes, stats.Mapped, stats.Dropped), color.FgGreen)
	return nil
}

// loadMapping builds the ortholog map from the MGI report or loads a
// previously saved CSV.
func loadMapping() (*mgi.Map, error) {
	if mapUseMap != "" {
		m, err := mgi.LoadCSV(mapUseMap)
		if err != nil {
			return nil, fmt.Errorf("loading mapping CSV %s: %w", mapUseMap, err)
		}
		return m, nil
	}

	rows, err := mgi.LoadReport(mapMGIPath)
	if err != nil {
		return nil, fmt.Errorf("reading MGI report %s: %w", mapMGIPath, err)
	}
	return mgi.BuildOneToOne(rows), nil
}

// mapH5AD rewrites the gene axis of an h5ad through the Python bridge,
// which needs the mapping as a CSV on disk.
func mapH5AD(cmd *cobra.Command, m *mgi.Map) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mapCSV := mapCSVOut
	if mapCSV == "" {
		tmpDir, err := os.MkdirTemp("", "cpdbkit-map-*")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		mapCSV = filepath.Join(tmpDir, "mm_to_hs.csv")
		if err := m.SaveCSV(mapCSV); err != nil {
			return fmt.Errorf("writing mapping CSV: %w", err)
		}
	}

	if !strings.HasSuffix(strings.ToLower(mapOut), ".h5ad") {
		return fmt.Errorf("h5ad input needs an .h5ad output, got %s", mapOut)
	}

	bridge := pybridge.New(exec.NewRunner(), cfg.Python.Bin)
	stats, err := bridge.RenameVar(cmd.Context(), mapIn, mapOut, mapCSV, mapKeepUnmapped)
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Rewrote %s (%s)", mapOut, stats), color.FgGreen)
	return nil
}
