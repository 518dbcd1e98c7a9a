package training

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output directories created under the trainer's home path.
var defaultSaveDirs = []string{
	"checkpoints",
	"embeddings",
	"ft_analysis",
	"umaps",
	"visualization",
}

// SavePaths maps output categories to directories.
type SavePaths map[string]string

// Dir returns the directory registered for category, or the home path
// when the category is unknown.
func (s SavePaths) Dir(category string) string {
	if d, ok := s[category]; ok {
		return d
	}
	return s["homepath"]
}

func initSavePaths(homepath string, makeDirs bool) (SavePaths, error) {
	if homepath == "" {
		return nil, fmt.Errorf("%w: empty home path", ErrInvalidInput)
	}
	paths := SavePaths{"homepath": homepath}
	for _, name := range defaultSaveDirs {
		paths[name] = filepath.Join(homepath, name)
	}
	if makeDirs {
		for _, dir := range paths {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating output directory %s: %v", dir, err)
			}
		}
	}
	return paths, nil
}
