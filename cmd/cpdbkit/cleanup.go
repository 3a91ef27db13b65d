package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/config"
	"github.com/hakotori/cpdbkit/internal/state"
)

var (
	cleanupForce   bool
	cleanupDryRun  bool
	cleanupRuns    bool
	cleanupRunsAge time.Duration
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale downloads and old run records",
	Long: `Clean up leftovers from interrupted downloads and old run records.

This command:
  - Removes temp files left by interrupted downloads under the
    database directory
  - With --runs, purges run records older than the given age from
    the registry

Examples:
  cpdbkit cleanup                    # Interactive cleanup with confirmation
  cpdbkit cleanup --force            # Skip confirmation prompt
  cpdbkit cleanup --dry-run          # Show what would be removed
  cpdbkit cleanup --runs --age 720h  # Also purge runs older than 30 days`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
	cleanupCmd.Flags().BoolVar(&cleanupRuns, "runs", false, "Purge old run records")
	cleanupCmd.Flags().DurationVar(&cleanupRunsAge, "age", 30*24*time.Hour, "Age threshold for --runs")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stale, err := findStaleDownloads(cfg.Database.Dir)
	if err != nil {
		return err
	}

	if len(stale) == 0 && !cleanupRuns {
		fmt.Println("Nothing to clean up.")
		return nil
	}

	if len(stale) > 0 {
		fmt.Printf("Found %d stale download file(s):\n", len(stale))
		for _, path := range stale {
			fmt.Printf("  - %s\n", path)
		}

		if cleanupDryRun {
			fmt.Println("\nDry run; nothing removed.")
		} else {
			if !cleanupForce && !confirm("Remove these files?") {
				fmt.Println("Aborted.")
				return nil
			}
			for _, path := range stale {
				if err := os.Remove(path); err != nil {
					printStatus("⚠", fmt.Sprintf("Could not remove %s: %v", path, err), color.FgYellow)
					continue
				}
			}
			printStatus("✓", fmt.Sprintf("Removed %d stale file(s)", len(stale)), color.FgGreen)
		}
	}

	if cleanupRuns {
		if cleanupDryRun {
			fmt.Printf("Would purge run records older than %s.\n", cleanupRunsAge)
			return nil
		}

		db, err := state.OpenDefault()
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate registry: %w", err)
		}

		purged, err := db.PurgeOldRuns(cleanupRunsAge)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Purged %d run record(s) older than %s", purged, cleanupRunsAge), color.FgGreen)
	}

	return nil
}

// findStaleDownloads collects temp files that interrupted downloads or
// zip packing left behind in the database directory.
func findStaleDownloads(dbDir string) ([]string, error) {
	if dbDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		return nil, nil
	}

	var stale []string
	err := filepath.WalkDir(dbDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.Contains(name, ".partial-") || strings.Contains(name, ".pack-") {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dbDir, err)
	}
	return stale, nil
}

// confirm prompts for a yes/no answer on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
