package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/release"
	"github.com/hakotori/cpdbkit/internal/state"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List available database releases",
	Long: `List CellPhoneDB database releases available for download.

Queries the cellphonedb-data repository on GitHub and shows every
release at or above the minimum supported version, newest first.
Releases already downloaded locally are marked.`,
	RunE: runReleases,
}

func runReleases(cmd *cobra.Command, args []string) error {
	lister := release.NewLister()
	remote, err := lister.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing remote releases: %w", err)
	}

	if len(remote) == 0 {
		fmt.Println("No releases found.")
		return nil
	}

	// Local downloads are optional context; ignore registry errors here
	downloaded := map[string]bool{}
	if db, err := state.OpenDefault(); err == nil {
		defer db.Close()
		if err := db.Migrate(); err == nil {
			if local, err := db.ListReleases(); err == nil {
				for _, r := range local {
					downloaded[r.Version] = true
				}
			}
		}
	}

	fmt.Printf("Available releases (minimum %s):\n\n", release.MinVersion)
	for _, r := range remote {
		marker := " "
		if downloaded[r.Version] {
			marker = color.GreenString("✓")
		}
		date := ""
		if !r.PublishedAt.IsZero() {
			date = r.PublishedAt.Format("2006-01-02")
		}
		fmt.Printf("  %s %-10s %s\n", marker, r.Version, date)
	}
	fmt.Printf("\n%s = downloaded locally\n", color.GreenString("✓"))

	return nil
}
