package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf/pdftest"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	service, err := NewService(testMaxFileSize, dir)
	require.NoError(t, err)
	return service, dir
}

func TestNewService(t *testing.T) {
	_, err := NewService(testMaxFileSize, "")
	assert.Error(t, err)

	service, dir := newTestService(t)
	assert.Equal(t, int64(testMaxFileSize), service.GetMaxFileSize())
	assert.Equal(t, dir, service.ConfiguredDirectory())
}

func TestService_ReadFileStaysInDirectory(t *testing.T) {
	service, dir := newTestService(t)
	inside := pdftest.WriteFile(t, filepath.Join(dir, "PID-U1-001.pdf"), pdftest.Lines("PT 1001"))
	outside := pdftest.WriteFile(t, filepath.Join(t.TempDir(), "other.pdf"), pdftest.Lines("PT 1001"))

	doc, err := service.ReadFile(inside)
	require.NoError(t, err)
	assert.Equal(t, []string{"PT", "1001"}, doc.Tokens)

	_, err = service.ReadFile(outside)
	assert.True(t, errors.Is(err, errors.KindInvalidInput))

	_, err = service.ValidateFile(outside)
	assert.Error(t, err)

	res, err := service.ValidateFile(inside)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestService_FindPDFs(t *testing.T) {
	service, dir := newTestService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "unit200"), 0o755))
	pdftest.WriteFile(t, filepath.Join(dir, "PID-U100-001.pdf"), pdftest.Lines("A"))
	pdftest.WriteFile(t, filepath.Join(dir, "unit200", "PID-U200-001.pdf"), pdftest.Lines("B"))
	pdftest.WriteFile(t, filepath.Join(dir, "DS-PUMPS.pdf"), pdftest.Lines("C"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o644))

	all, err := service.FindPDFs("", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "DS-PUMPS.pdf", all[0].Name)

	pids, err := service.FindPDFs(dir, "pid-")
	require.NoError(t, err)
	assert.Len(t, pids, 2)

	_, err = service.FindPDFs(filepath.Dir(dir), "")
	assert.Error(t, err)

	_, err = service.FindPDFs(filepath.Join(dir, "missing"), "")
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestService_TrimPages(t *testing.T) {
	service, dir := newTestService(t)
	src := pdftest.WriteFile(t, filepath.Join(dir, "sheets.pdf"), pdftest.Lines("ONE"), pdftest.Lines("TWO"))

	out := filepath.Join(dir, "split", "second.pdf")
	require.NoError(t, service.TrimPages(src, out, 2, 2))

	n, err := PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, service.TrimPages(filepath.Join(t.TempDir(), "x.pdf"), out, 1, 1))
}
