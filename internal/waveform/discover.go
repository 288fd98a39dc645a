package waveform

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// patterns lists the recursive globs used for waveform discovery, one per
// recognized extension.
var patterns = []string{
	"**/*.mseed",
	"**/*.msd",
	"**/*.sac",
	"**/*.sgy",
	"**/*.seg-y",
	"**/*.segy",
}

// Discover walks root recursively and returns every candidate waveform file,
// sorted by path for a deterministic ingest order.
func Discover(root string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
