package cpdb

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resultSuffixes are the files the statistical analysis writes into the
// output directory. Names carry a timestamp prefix, so matching is by
// suffix.
var resultSuffixes = []string{
	"means.txt",
	"pvalues.txt",
	"significant_means.txt",
	"deconvoluted.txt",
	"deconvoluted_percents.txt",
	"interaction_scores.txt",
	"analysis_means.txt",
}

// IsResultArtifact reports whether name looks like an analysis output file.
func IsResultArtifact(name string) bool {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".txt") {
		return false
	}
	for _, suffix := range resultSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// CollectArtifacts scans the output directory for result files and
// returns their base names, sorted.
func CollectArtifacts(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}

	var artifacts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsResultArtifact(entry.Name()) {
			artifacts = append(artifacts, entry.Name())
		}
	}
	sort.Strings(artifacts)
	return artifacts, nil
}
