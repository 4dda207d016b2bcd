// Package security keeps tool arguments inside the configured document directory.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
)

// PathValidator provides security validation for file paths
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory.
// The directory does not have to exist yet.
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, errors.New(errors.KindInvalidInput, "security.new", "configured directory cannot be empty")
	}
	return &PathValidator{configuredDirectory: configuredDirectory}, nil
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// ValidatePath checks that path resolves inside the configured directory.
// Validation is skipped while the configured directory does not exist.
func (v *PathValidator) ValidatePath(path string) error {
	const op = "security.validate_path"

	if path == "" || strings.ContainsRune(path, 0) {
		return errors.New(errors.KindInvalidInput, op, "path cannot be empty")
	}
	if _, err := os.Stat(v.configuredDirectory); os.IsNotExist(err) {
		return nil
	}

	within, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return errors.Wrap(errors.KindInvalidInput, op, err)
	}
	if !within {
		return errors.New(errors.KindInvalidInput, op, "path is outside configured directory").WithPath(path)
	}
	return nil
}

// IsPathWithinDirectory reports whether path, after resolving symlinks on
// both sides, stays under the configured directory.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	if _, err := os.Stat(v.configuredDirectory); os.IsNotExist(err) {
		return true, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absDir, err := filepath.Abs(v.configuredDirectory)
	if err != nil {
		return false, err
	}

	dirs := []string{absDir}
	if real, err := filepath.EvalSymlinks(absDir); err == nil && real != absDir {
		dirs = append(dirs, real)
	}
	paths := []string{absPath}
	if real, err := filepath.EvalSymlinks(absPath); err == nil && real != absPath {
		paths = append(paths, real)
	}

	// every spelling of the path must land in one of the directory spellings
	for _, p := range paths {
		if !underAny(p, dirs) {
			return false, nil
		}
	}
	return true, nil
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

// Resolve makes a relative path relative to the configured directory and validates it
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", errors.New(errors.KindInvalidInput, "security.resolve", "path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(errors.KindInvalidInput, "security.resolve", err)
	}
	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ValidateDirectory checks that dirPath is inside the configured directory
// and, when it exists, is a directory.
func (v *PathValidator) ValidateDirectory(dirPath string) error {
	if err := v.ValidatePath(dirPath); err != nil {
		return err
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.KindInputUnreadable, "security.validate_directory", err)
	}
	if !info.IsDir() {
		return errors.New(errors.KindInvalidInput, "security.validate_directory", "path is not a directory").WithPath(dirPath)
	}
	return nil
}
