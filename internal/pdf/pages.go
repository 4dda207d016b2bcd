package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
)

// PageCount returns the number of pages pdfcpu sees in the file
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, errors.Wrapf(errors.KindInputUnreadable, "pdf.page_count", err, "count pages of %s", path)
	}
	return n, nil
}

// TrimPages writes pages start..end (1-based, inclusive) of in to out
func TrimPages(in, out string, start, end int) error {
	const op = "pdf.trim_pages"

	if start < 1 || end < start {
		return errors.New(errors.KindInvalidInput, op,
			fmt.Sprintf("invalid page range %d-%d", start, end)).WithPath(in)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.Wrap(errors.KindStorage, op, err)
	}

	selection := []string{fmt.Sprintf("%d-%d", start, end)}
	if start == end {
		selection = []string{fmt.Sprintf("%d", start)}
	}
	if err := api.TrimFile(in, out, selection, relaxedConfig()); err != nil {
		return errors.Wrapf(errors.KindInputUnreadable, op, err, "trim %s to %s", in, selection[0])
	}
	return nil
}
