package harness

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// FindScenarios returns the scenario files (.yaml, .yml) below dir in
// lexical order.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
