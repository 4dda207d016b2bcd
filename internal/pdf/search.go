package pdf

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
)

// Search discovers candidate PDF files under a directory
type Search struct {
	validator *Validator
}

// NewSearch creates a search handler that skips files the validator rejects
func NewSearch(maxFileSize int64) *Search {
	return &Search{validator: NewValidator(maxFileSize)}
}

// FindPDFs walks directory and returns PDF files whose name contains query
// (case-insensitive; empty query matches all), sorted by path.
func (s *Search) FindPDFs(directory, query string) ([]FileInfo, error) {
	const op = "pdf.find"

	if directory == "" {
		return nil, errors.New(errors.KindInvalidInput, op, "directory cannot be empty")
	}
	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidInput, op, err)
	}
	if info, err := os.Stat(absDirectory); err != nil || !info.IsDir() {
		return nil, errors.New(errors.KindNotFound, op, "directory does not exist").WithPath(directory)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var files []FileInfo
	err = filepath.WalkDir(absDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped, the walk goes on
			return nil //nolint:nilerr
		}
		if d.IsDir() {
			return nil
		}
		// symlinks may point outside the directory
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		if s.validator.ValidateFileInfo(path, info) != nil {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(info.Name()), query) {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.KindInputUnreadable, op, err, "walk %s", directory)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
