// Package config handles configuration loading and management for cpdbkit.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/hakotori/cpdbkit/pkg/models"
)

// Config holds all configuration for cpdbkit.
type Config struct {
	Python   PythonConfig   `mapstructure:"python"`
	Database DatabaseConfig `mapstructure:"database"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Download DownloadConfig `mapstructure:"download"`
}

// PythonConfig holds settings for the Python interpreter that hosts the
// external tool.
type PythonConfig struct {
	// Bin is the interpreter binary name or path.
	Bin string `mapstructure:"bin"`
}

// DatabaseConfig holds CellPhoneDB database settings.
type DatabaseConfig struct {
	// Dir is the local database directory (releases live under it).
	Dir string `mapstructure:"dir"`
	// DefaultVersion is the release used when --version is not given.
	DefaultVersion string `mapstructure:"default_version"`
}

// AnalysisConfig holds default parameters for the statistical analysis.
type AnalysisConfig struct {
	Iterations int     `mapstructure:"iterations"`
	Threshold  float64 `mapstructure:"threshold"`
	Threads    int     `mapstructure:"threads"`
	CountsData string  `mapstructure:"counts_data"`
}

// DownloadConfig holds download settings.
type DownloadConfig struct {
	// Timeout bounds a single database download.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Params returns the analysis defaults as an AnalysisParams value.
func (a AnalysisConfig) Params() models.AnalysisParams {
	return models.AnalysisParams{
		Iterations: a.Iterations,
		Threshold:  a.Threshold,
		Threads:    a.Threads,
		CountsData: models.CountsData(a.CountsData),
	}
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (CPDBKIT_PYTHON, CPDBKIT_CPDB_DIR)
// 2. Project config (.cpdbkit.yaml in current directory or parent)
// 3. User config (~/.config/cpdbkit/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("python.bin", "CPDBKIT_PYTHON")
	v.BindEnv("database.dir", "CPDBKIT_CPDB_DIR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in paths.
	cfg.Database.Dir = os.ExpandEnv(cfg.Database.Dir)
	cfg.Python.Bin = os.ExpandEnv(cfg.Python.Bin)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Database.Dir = os.ExpandEnv(cfg.Database.Dir)
	cfg.Python.Bin = os.ExpandEnv(cfg.Python.Bin)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("python.bin", cfg.Python.Bin)
	v.Set("database.dir", cfg.Database.Dir)
	v.Set("database.default_version", cfg.Database.DefaultVersion)
	v.Set("analysis.iterations", cfg.Analysis.Iterations)
	v.Set("analysis.threshold", cfg.Analysis.Threshold)
	v.Set("analysis.threads", cfg.Analysis.Threads)
	v.Set("analysis.counts_data", cfg.Analysis.CountsData)
	v.Set("download.timeout", cfg.Download.Timeout.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("python.bin", "python3")

	v.SetDefault("database.dir", "")
	v.SetDefault("database.default_version", "v5.0.0")

	// Defaults of the external tool's statistical method.
	v.SetDefault("analysis.iterations", 1000)
	v.SetDefault("analysis.threshold", 0.1)
	v.SetDefault("analysis.threads", 8)
	v.SetDefault("analysis.counts_data", "hgnc_symbol")

	v.SetDefault("download.timeout", "10m")
}

// getUserConfigDir returns the XDG config directory for cpdbkit.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cpdbkit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "cpdbkit")
	}
	return filepath.Join(home, ".config", "cpdbkit")
}

// findProjectConfig searches for .cpdbkit.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".cpdbkit.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Python: PythonConfig{
			Bin: "python3",
		},
		Database: DatabaseConfig{
			DefaultVersion: "v5.0.0",
		},
		Analysis: AnalysisConfig{
			Iterations: 1000,
			Threshold:  0.1,
			Threads:    8,
			CountsData: "hgnc_symbol",
		},
		Download: DownloadConfig{
			Timeout: 10 * time.Minute,
		},
	}
}
