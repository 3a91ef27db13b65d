package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/state"
	"github.com/hakotori/cpdbkit/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show downloaded releases and recent runs",
	Long: `Display the state of the local registry.

Shows:
  - Downloaded database releases with checksums
  - Recent analysis runs with status and duration`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of recent runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath := state.DefaultDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No registry yet. Run 'cpdbkit init' or 'cpdbkit download' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate registry: %w", err)
	}

	releases, err := db.ListReleases()
	if err != nil {
		return fmt.Errorf("list releases: %w", err)
	}

	fmt.Println("Downloaded releases:")
	if len(releases) == 0 {
		fmt.Println("  (none)")
	}
	for _, r := range releases {
		fmt.Printf("  %-10s %10d bytes  %s\n", r.Version, r.SizeBytes, r.Path)
	}

	runs, err := db.ListRecentRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	fmt.Println("\nRecent runs:")
	if len(runs) == 0 {
		fmt.Println("  (none)")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("  %s  %s  %s\n", run.ID[:8], statusLabel(run.Status), describeRun(run))
	}
	return nil
}

// statusLabel colors a run status for terminal display.
func statusLabel(s models.RunStatus) string {
	switch s {
	case models.RunStatusCompleted:
		return color.GreenString("%-9s", s)
	case models.RunStatusFailed:
		return color.RedString("%-9s", s)
	default:
		return color.YellowString("%-9s", s)
	}
}

// describeRun summarizes one run on a single line.
func describeRun(run models.Run) string {
	when := run.StartedAt.Local().Format("2006-01-02 15:04")
	duration := ""
	if run.CompletedAt != nil {
		duration = fmt.Sprintf(" (%s)", run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
	}
	return fmt.Sprintf("%s%s  %s", when, duration, run.OutputDir)
}
