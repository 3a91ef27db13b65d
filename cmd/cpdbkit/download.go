package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/config"
	"github.com/hakotori/cpdbkit/internal/dbzip"
	"github.com/hakotori/cpdbkit/internal/release"
	"github.com/hakotori/cpdbkit/internal/state"
	"github.com/hakotori/cpdbkit/internal/tui"
	"github.com/hakotori/cpdbkit/pkg/models"
)

var (
	downloadVersion   string
	downloadTargetDir string
	downloadPlain     bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a database release",
	Long: `Download a CellPhoneDB database zip into the local database directory.

The zip lands at <target-dir>/releases/<version>/cellphonedb.zip and is
written atomically; an interrupted download leaves no partial zip behind.
The release is recorded in the local registry with its SHA-256 checksum.

Examples:
  cpdbkit download                        # Default version into configured dir
  cpdbkit download --version v5.0.0
  cpdbkit download --target-dir ./cpdb --plain`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVar(&downloadVersion, "version", "", "Release version (defaults to configured version)")
	downloadCmd.Flags().StringVar(&downloadTargetDir, "target-dir", "", "Database directory (defaults to configured dir)")
	downloadCmd.Flags().BoolVar(&downloadPlain, "plain", false, "Disable the progress display")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	version := downloadVersion
	if version == "" {
		version = cfg.Database.DefaultVersion
	}
	version, err = release.NormalizeVersion(version)
	if err != nil {
		return err
	}

	targetDir := downloadTargetDir
	if targetDir == "" {
		targetDir = cfg.Database.Dir
	}
	if targetDir == "" {
		targetDir = "cpdb"
	}

	downloader := release.NewDownloader(cfg.Download.Timeout)

	var rel models.Release
	if !downloadPlain && isatty.IsTerminal(os.Stdout.Fd()) {
		rel, err = downloadWithTUI(cmd, downloader, targetDir, version)
	} else {
		fmt.Printf("Downloading %s to %s...\n", version, release.ReleaseDir(targetDir, version))
		rel, err = downloader.Download(cmd.Context(), targetDir, version, nil)
	}
	if err != nil {
		return fmt.Errorf("downloading %s: %w", version, err)
	}

	// A zip without the required tables is useless; fail loudly now
	// rather than at run time.
	if _, err := dbzip.Validate(rel.Path); err != nil {
		return err
	}

	// Record the download; the zip on disk is the source of truth, so a
	// registry failure is reported but does not fail the command.
	if db, dbErr := state.OpenDefault(); dbErr == nil {
		defer db.Close()
		if dbErr = db.Migrate(); dbErr == nil {
			dbErr = db.RecordRelease(rel)
		}
		if dbErr != nil {
			printStatus("⚠", fmt.Sprintf("Downloaded but not recorded in registry: %v", dbErr), color.FgYellow)
		}
	}

	printStatus("✓", fmt.Sprintf("Downloaded %s (%d bytes)", rel.Version, rel.SizeBytes), color.FgGreen)
	fmt.Printf("  Path:   %s\n", rel.Path)
	fmt.Printf("  SHA256: %s\n", rel.SHA256)
	return nil
}

// downloadWithTUI runs the download behind a progress display.
func downloadWithTUI(cmd *cobra.Command, downloader *release.Downloader, targetDir, version string) (models.Release, error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	program := tea.NewProgram(tui.NewDownloadModel(version))

	type result struct {
		rel models.Release
		err error
	}
	done := make(chan result, 1)

	go func() {
		rel, err := downloader.Download(ctx, targetDir, version, func(written, total int64) {
			program.Send(tui.ProgressMsg{Written: written, Total: total})
		})
		program.Send(tui.DoneMsg{Err: err})
		done <- result{rel: rel, err: err}
	}()

	final, err := program.Run()
	if err != nil {
		return models.Release{}, fmt.Errorf("progress display: %w", err)
	}
	if m, ok := final.(tui.DownloadModel); ok && m.Err() != nil {
		// Ctrl-C inside the display; cancel so the download unwinds.
		cancel()
		<-done
		return models.Release{}, m.Err()
	}

	res := <-done
	return res.rel, res.err
}
