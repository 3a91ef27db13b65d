package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakotori/cpdbkit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify cpdbkit configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/cpdbkit/config.yaml
Project-specific overrides can be placed in .cpdbkit.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("python.bin: %s\n", cfg.Python.Bin)
	fmt.Printf("database.dir: %s\n", orUnset(cfg.Database.Dir))
	fmt.Printf("database.default_version: %s\n", cfg.Database.DefaultVersion)
	fmt.Printf("analysis.iterations: %d\n", cfg.Analysis.Iterations)
	fmt.Printf("analysis.threshold: %g\n", cfg.Analysis.Threshold)
	fmt.Printf("analysis.threads: %d\n", cfg.Analysis.Threads)
	fmt.Printf("analysis.counts_data: %s\n", cfg.Analysis.CountsData)
	fmt.Printf("download.timeout: %s\n", cfg.Download.Timeout)

	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("\nproject config: %s\n", project)
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "python.bin":
		return cfg.Python.Bin, nil
	case "database.dir":
		return orUnset(cfg.Database.Dir), nil
	case "database.default_version":
		return cfg.Database.DefaultVersion, nil
	case "analysis.iterations":
		return strconv.Itoa(cfg.Analysis.Iterations), nil
	case "analysis.threshold":
		return strconv.FormatFloat(cfg.Analysis.Threshold, 'g', -1, 64), nil
	case "analysis.threads":
		return strconv.Itoa(cfg.Analysis.Threads), nil
	case "analysis.counts_data":
		return cfg.Analysis.CountsData, nil
	case "download.timeout":
		return cfg.Download.Timeout.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "python.bin":
		cfg.Python.Bin = value
	case "database.dir":
		cfg.Database.Dir = value
	case "database.default_version":
		cfg.Database.DefaultVersion = value
	case "analysis.iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for analysis.iterations: %w", err)
		}
		cfg.Analysis.Iterations = n
	case "analysis.threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for analysis.threshold: %w", err)
		}
		cfg.Analysis.Threshold = f
	case "analysis.threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for analysis.threads: %w", err)
		}
		cfg.Analysis.Threads = n
	case "analysis.counts_data":
		cfg.Analysis.CountsData = value
	case "download.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for download.timeout: %w", err)
		}
		cfg.Download.Timeout = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
