package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf/pdftest"
)

const testMaxFileSize = 1024 * 1024

func drawingPages() []pdftest.Page {
	table := pdftest.Page{Lines: []string{"EQUIPMENT SCHEDULE"}}
	table.Cells = append(table.Cells, pdftest.Row(600, "TAG", "SERVICE")...)
	table.Cells = append(table.Cells, pdftest.Row(585, "FV-1001", "COOLING WATER")...)

	return []pdftest.Page{
		pdftest.Lines("PROCESS AND INSTRUMENTATION DIAGRAM", "PT 1001 FV 2001", "GENERAL NOTES:", "ALL DIMENSIONS IN MM"),
		table,
	}
}

func TestNewReader(t *testing.T) {
	r := NewReader(100 * 1024 * 1024)
	assert.Equal(t, int64(100*1024*1024), r.maxFileSize)
	assert.Equal(t, int64(DefaultMaxTextSize), r.maxTextSize)
}

func TestReader_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, filepath.Join(dir, "PID-U100-001.pdf"), drawingPages()...)

	doc, err := NewReader(testMaxFileSize).ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "PID-U100-001.pdf", doc.Name)
	require.Equal(t, 2, doc.PageCount())
	assert.Contains(t, doc.Pages[0], "PROCESS AND INSTRUMENTATION DIAGRAM\nPT 1001 FV 2001\n")
	assert.Contains(t, doc.Pages[1], "FV-1001")
	assert.Equal(t, strings.Join(doc.Pages, "\n"), doc.Text)
	assert.Equal(t, []string{"PROCESS", "AND", "INSTRUMENTATION", "DIAGRAM", "PT", "1001", "FV", "2001"}, doc.Tokens[:8])

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, intelligence.Table{{"TAG", "SERVICE"}, {"FV-1001", "COOLING WATER"}}, doc.Tables[0])
	assert.Equal(t, []int{2}, doc.TablePages)

	tables, pages := doc.TablesOnPages(1, 1)
	assert.Empty(t, tables)
	assert.Empty(t, pages)

	sum := doc.Summary()
	assert.Equal(t, 2, sum.Pages)
	assert.Equal(t, 1, sum.Tables)
	assert.Equal(t, len(doc.Tokens), sum.Words)
}

func TestReader_ReadBytes(t *testing.T) {
	r := NewReader(testMaxFileSize)

	doc, err := r.ReadBytes("upload.pdf", pdftest.Build(pdftest.Lines("DATA SHEET", "MODEL NUMBER: X-100")))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())
	assert.Contains(t, doc.Text, "MODEL NUMBER: X-100")

	_, err = r.ReadBytes("empty.pdf", nil)
	assert.True(t, errors.Is(err, errors.KindInvalidInput))

	_, err = NewReader(10).ReadBytes("big.pdf", pdftest.Build(pdftest.Lines("x")))
	assert.True(t, errors.Is(err, errors.KindInvalidInput))

	_, err = r.ReadBytes("garbage.pdf", []byte("this is not a pdf at all"))
	assert.True(t, errors.Is(err, errors.KindInputUnreadable))
}

func TestReader_NoTextIsUnreadable(t *testing.T) {
	doc, err := NewReader(testMaxFileSize).ReadBytes("scan.pdf", pdftest.Build(pdftest.Page{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindInputUnreadable))
	require.NotNil(t, doc, "page structure is still returned")
	assert.Equal(t, 1, doc.PageCount())
	assert.Empty(t, doc.Tokens)
}

func TestReader_ValidateBeforeParsing(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain"), 0o644))
	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	large := filepath.Join(dir, "large.pdf")
	require.NoError(t, os.WriteFile(large, make([]byte, testMaxFileSize+1), 0o644))

	tests := []struct {
		name string
		path string
		kind errors.Kind
	}{
		{name: "empty path", path: "", kind: errors.KindInvalidInput},
		{name: "missing", path: filepath.Join(dir, "missing.pdf"), kind: errors.KindNotFound},
		{name: "directory", path: dir, kind: errors.KindInvalidInput},
		{name: "extension", path: txt, kind: errors.KindInvalidInput},
		{name: "empty file", path: empty, kind: errors.KindInvalidInput},
		{name: "too large", path: large, kind: errors.KindInvalidInput},
	}
	r := NewReader(testMaxFileSize)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ReadFile(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}

func TestReader_EmptyContentHasNoTables(t *testing.T) {
	r := NewReader(testMaxFileSize)
	rows := r.groupRows(nil)
	assert.Empty(t, rows)
	assert.Empty(t, r.pageTables(nil))
}

func TestTruncateText_KeepsCharactersWhole(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int64
		want  string
	}{
		{"under limit", "TT-1001", 20, "TT-1001"},
		{"ascii cut", "TT-1001", 2, "TT"},
		{"cut inside degree sign", "150 °C", 5, "150 "},
		{"cut after degree sign", "150 °C", 6, "150 °"},
		{"cut inside three byte rune", "≤10 bar", 2, ""},
		{"no room left", "PT-1002", 0, ""},
		{"negative budget", "PT-1002", -4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateText(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
