package cpdb

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hakotori/cpdbkit/pkg/models"
)

// ManifestName is the provenance file written into each output directory.
const ManifestName = "run.yaml"

// WriteManifest saves the run record next to its artifacts so results
// stay interpretable after the registry is gone. The write is atomic.
func WriteManifest(run models.Run) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run manifest: %w", err)
	}

	path := filepath.Join(run.OutputDir, ManifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write run manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the run record from an output directory.
func ReadManifest(outputDir string) (models.Run, error) {
	var run models.Run

	data, err := os.ReadFile(filepath.Join(outputDir, ManifestName))
	if err != nil {
		return run, fmt.Errorf("read run manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &run); err != nil {
		return run, fmt.Errorf("parse run manifest: %w", err)
	}
	return run, nil
}
