package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cpdbkit",
	Short: "CellPhoneDB toolkit for cell-cell communication analysis",
	Long: `cpdbkit wraps the CellPhoneDB statistical analysis workflow:
database management, input preparation, and execution.

Core capabilities:
- Downloads and validates CellPhoneDB database releases
- Builds two-column cell metadata files from annotation tables
- Maps mouse gene symbols to human orthologs via the MGI report
- Runs the statistical analysis and records run provenance

The analysis itself runs in a Python environment with the cellphonedb
package installed; run 'cpdbkit init' to verify your setup.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(releasesCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
