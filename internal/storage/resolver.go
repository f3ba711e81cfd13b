package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathResolver turns user-entered paths into absolute ones.
type PathResolver struct {
	baseDir string
}

// NewPathResolver creates a resolver rooted at baseDir, or at the current
// working directory when baseDir is empty.
func NewPathResolver(baseDir string) (*PathResolver, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		baseDir = wd
	}
	abs, err := filepath.Abs(ExpandHome(baseDir))
	if err != nil {
		return nil, fmt.Errorf("invalid base directory '%s': %w", baseDir, err)
	}
	return &PathResolver{baseDir: abs}, nil
}

// Resolve returns path as an absolute, cleaned path.
func (r *PathResolver) Resolve(path string) string {
	path = ExpandHome(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.baseDir, path)
}

// Relative returns path relative to the base directory for display, or
// path itself when that is not possible.
func (r *PathResolver) Relative(path string) string {
	rel, err := filepath.Rel(r.baseDir, path)
	if err != nil || len(rel) >= len(path) {
		return path
	}
	return rel
}
