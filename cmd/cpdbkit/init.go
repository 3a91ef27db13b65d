package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/config"
	"github.com/hakotori/cpdbkit/internal/exec"
	"github.com/hakotori/cpdbkit/internal/pybridge"
	"github.com/hakotori/cpdbkit/internal/state"
)

var (
	initWithConfig   bool
	initSkipEnvCheck bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Verify prerequisites and set up a project",
	Long: `Initialize a directory for use with cpdbkit.

This command sets up everything needed to run analyses:
  - Verifies the Python interpreter is available
  - Verifies the cellphonedb package can be imported
  - Creates the local database directory
  - Initializes the run registry
  - Optionally creates a project configuration file

The directory argument is optional and defaults to the current directory.

Examples:
  cpdbkit init                  # Initialize current directory
  cpdbkit init ./myproject      # Initialize specific directory
  cpdbkit init --with-config    # Create a .cpdbkit.yaml template
  cpdbkit init --skip-env-check # Skip the Python environment probe`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create a .cpdbkit.yaml template")
	initCmd.Flags().BoolVar(&initSkipEnvCheck, "skip-env-check", false, "Skip Python environment verification")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("Initializing cpdbkit in %s...\n\n", absPath)

	// Step 1: Verify the Python environment
	if !initSkipEnvCheck {
		bridge := pybridge.New(exec.NewRunner(), cfg.Python.Bin)
		toolVersion, err := bridge.CheckEnv(cmd.Context())
		if err != nil {
			printStatus("✗", fmt.Sprintf("Python environment check failed (%s)", cfg.Python.Bin), color.FgRed)
			return fmt.Errorf("%w\n\nInstall the analysis package with:\n  %s -m pip install cellphonedb",
				err, cfg.Python.Bin)
		}
		printStatus("✓", fmt.Sprintf("cellphonedb %s importable via %s", toolVersion, bridge.Python()), color.FgGreen)
	} else {
		printStatus("⚠", "Skipping Python environment check", color.FgYellow)
	}

	// Step 2: Database directory
	dbDir := cfg.Database.Dir
	if dbDir == "" {
		dbDir = filepath.Join(absPath, "cpdb")
	}
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Database directory ready at %s", dbDir), color.FgGreen)

	// Step 3: Run registry
	db, err := state.OpenDefault()
	if err != nil {
		return fmt.Errorf("opening run registry: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating run registry: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Run registry ready at %s", db.Path()), color.FgGreen)

	// Step 4: Project config template
	if initWithConfig {
		if err := createProjectConfig(absPath, dbDir); err != nil {
			return fmt.Errorf("creating project config: %w", err)
		}
		printStatus("✓", "Created .cpdbkit.yaml template", color.FgGreen)
	}

	fmt.Printf("\n%s cpdbkit initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Download a database release:")
	fmt.Printf("     cpdbkit download --version %s --target-dir %s\n", cfg.Database.DefaultVersion, dbDir)
	fmt.Println()
	fmt.Println("  2. Build a metadata file from your annotations:")
	fmt.Println("     cpdbkit meta --in adata.h5ad --obs-key cell_type --out meta.tsv")
	fmt.Println()
	fmt.Println("  3. Run the statistical analysis:")
	fmt.Println("     cpdbkit run --counts counts.tsv --meta meta.tsv --outdir results/")

	return nil
}

// createProjectConfig creates a .cpdbkit.yaml template
func createProjectConfig(dir, dbDir string) error {
	configPath := filepath.Join(dir, ".cpdbkit.yaml")

	// Don't overwrite an existing project config
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	template := fmt.Sprintf(`# cpdbkit project configuration
# Overrides defaults from ~/.config/cpdbkit/config.yaml

database:
  dir: %s
  default_version: v5.0.0

# python:
#   bin: python3

# analysis:
#   iterations: 1000
#   threshold: 0.1
#   threads: 8
#   counts_data: hgnc_symbol
`, dbDir)

	return os.WriteFile(configPath, []byte(template), 0644)
}
