// Package release lists and downloads CellPhoneDB database releases.
// Releases are published as tags of the ventolab/cellphonedb-data
// repository; only versions >= 4.1.0 ship the zip layout this tool
// understands.
package release

import (
	"fmt"
	"strconv"
	"strings"
)

// MinVersion is the oldest database release with the supported layout.
const MinVersion = "v4.1.0"

// parsedVersion is a dotted release tag split into numeric fields.
type parsedVersion [3]int

// parseVersion parses tags of the form "v5.0.0" (the leading "v" is
// optional, missing fields default to zero).
func parseVersion(tag string) (parsedVersion, error) {
	var v parsedVersion

	s := strings.TrimPrefix(strings.TrimSpace(tag), "v")
	if s == "" {
		return v, fmt.Errorf("empty version tag")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("malformed version tag %q", tag)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, fmt.Errorf("malformed version tag %q", tag)
		}
		v[i] = n
	}
	return v, nil
}

// compare returns -1, 0 or 1 ordering v against other.
func (v parsedVersion) compare(other parsedVersion) int {
	for i := range v {
		switch {
		case v[i] < other[i]:
			return -1
		case v[i] > other[i]:
			return 1
		}
	}
	return 0
}

// atLeastMin reports whether the tag parses and is >= MinVersion.
func atLeastMin(tag string) bool {
	v, err := parseVersion(tag)
	if err != nil {
		return false
	}
	min, _ := parseVersion(MinVersion)
	return v.compare(min) >= 0
}

// NormalizeVersion returns the canonical "vX.Y.Z" form of a tag, or an
// error if it does not parse or predates MinVersion.
func NormalizeVersion(tag string) (string, error) {
	v, err := parseVersion(tag)
	if err != nil {
		return "", err
	}
	if !atLeastMin(tag) {
		return "", fmt.Errorf("version %s predates %s, the oldest supported database release", tag, MinVersion)
	}
	return fmt.Sprintf("v%d.%d.%d", v[0], v[1], v[2]), nil
}
