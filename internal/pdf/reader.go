package pdf

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
)

const (
	// DefaultMaxTextSize caps the text kept per document
	DefaultMaxTextSize = 10 * 1024 * 1024

	// glyphs whose baselines differ by less than this share a row
	defaultRowTolerance = 2.0
	// horizontal gap that starts a new cell inside a row
	defaultCellGap = 12.0
	// a table needs at least this many consecutive multi-cell rows
	minTableRows = 2
)

// Document is the text content of one PDF in the shapes the extractors consume
type Document struct {
	Name       string
	Size       int64
	Pages      []string
	Text       string
	Tables     []intelligence.Table
	TablePages []int // 1-based page of each entry in Tables
	Tokens     []string
}

// TablesOnPages returns the tables found on pages start..end (1-based, inclusive)
func (d *Document) TablesOnPages(start, end int) ([]intelligence.Table, []int) {
	var tables []intelligence.Table
	var pages []int
	for i, p := range d.TablePages {
		if p >= start && p <= end {
			tables = append(tables, d.Tables[i])
			pages = append(pages, p)
		}
	}
	return tables, pages
}

// PageCount returns the number of pages read
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Reader extracts page text, tables and tokens with ledongthuc/pdf
type Reader struct {
	maxFileSize  int64
	maxTextSize  int64
	rowTolerance float64
	cellGap      float64
}

// NewReader creates a new PDF reader with the specified max file size
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize:  maxFileSize,
		maxTextSize:  DefaultMaxTextSize,
		rowTolerance: defaultRowTolerance,
		cellGap:      defaultCellGap,
	}
}

// ReadFile reads a PDF from disk
func (r *Reader) ReadFile(path string) (*Document, error) {
	const op = "pdf.read_file"

	info, err := validatePDFFile(path, r.maxFileSize)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindInputUnreadable, op, err)
	}
	defer f.Close()

	return r.read(filepath.Base(path), f, info.Size())
}

// ReadBytes reads a PDF held in memory, such as an upload
func (r *Reader) ReadBytes(name string, data []byte) (*Document, error) {
	const op = "pdf.read_bytes"

	if len(data) == 0 {
		return nil, errors.New(errors.KindInvalidInput, op, "empty document").WithPath(name)
	}
	if int64(len(data)) > r.maxFileSize {
		return nil, errors.New(errors.KindInvalidInput, op,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", len(data), r.maxFileSize)).WithPath(name)
	}
	return r.read(name, bytes.NewReader(data), int64(len(data)))
}

func (r *Reader) read(name string, ra io.ReaderAt, size int64) (doc *Document, err error) {
	const op = "pdf.read"

	// ledongthuc panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = errors.New(errors.KindInputUnreadable, op,
				fmt.Sprintf("could not parse PDF: %v", rec)).WithPath(name)
		}
	}()

	pdfReader, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, errors.Wrapf(errors.KindInputUnreadable, op, err, "could not open %s", name)
	}

	doc = &Document{Name: name, Size: size}
	var textSize int64
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// keep page numbering stable for the splitter
			text = ""
		}
		if textSize+int64(len(text)) > r.maxTextSize {
			text = truncateText(text, r.maxTextSize-textSize)
		}
		textSize += int64(len(text))
		doc.Pages = append(doc.Pages, text)

		for _, table := range r.pageTables(page.Content().Text) {
			doc.Tables = append(doc.Tables, table)
			doc.TablePages = append(doc.TablePages, i)
		}
	}

	doc.Text = strings.Join(doc.Pages, "\n")
	doc.Tokens = strings.Fields(doc.Text)
	if len(doc.Tokens) == 0 {
		return doc, errors.New(errors.KindInputUnreadable, op,
			"could not extract text from PDF").WithPath(name)
	}
	return doc, nil
}

type glyphRow struct {
	y      float64
	glyphs []pdf.Text
}

// pageTables groups glyphs into rows by baseline, splits rows into cells on
// wide horizontal gaps, and keeps runs of multi-cell rows as tables.
func (r *Reader) pageTables(texts []pdf.Text) []intelligence.Table {
	rows := r.groupRows(texts)

	var tables []intelligence.Table
	var current intelligence.Table
	flush := func() {
		if len(current) >= minTableRows {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, row := range rows {
		cells := r.splitCells(row.glyphs)
		if len(cells) < 2 {
			flush()
			continue
		}
		current = append(current, cells)
	}
	flush()
	return tables
}

func (r *Reader) groupRows(texts []pdf.Text) []glyphRow {
	var rows []glyphRow
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) < r.rowTolerance {
				rows[i].glyphs = append(rows[i].glyphs, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, glyphRow{y: t.Y, glyphs: []pdf.Text{t}})
		}
	}

	// higher Y is higher on the page
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	for _, row := range rows {
		sort.SliceStable(row.glyphs, func(i, j int) bool { return row.glyphs[i].X < row.glyphs[j].X })
	}
	return rows
}

func (r *Reader) splitCells(glyphs []pdf.Text) []string {
	var cells []string
	var cell strings.Builder
	end := math.Inf(-1)

	for _, g := range glyphs {
		if cell.Len() > 0 && g.X-end > r.cellGap {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(g.S)
		end = g.X + g.W
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}

// validatePDFFile checks existence, type, extension and size before parsing
func validatePDFFile(path string, maxFileSize int64) (os.FileInfo, error) {
	const op = "pdf.validate"

	if path == "" {
		return nil, errors.New(errors.KindInvalidInput, op, "path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.KindNotFound, op, "file does not exist").WithPath(path)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.KindInputUnreadable, op, err, "cannot access %s", path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.KindInvalidInput, op, "path is a directory, not a file").WithPath(path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, errors.New(errors.KindInvalidInput, op, "file is not a PDF").WithPath(path)
	}
	if info.Size() == 0 {
		return nil, errors.New(errors.KindInvalidInput, op, "file is empty").WithPath(path)
	}
	if info.Size() > maxFileSize {
		return nil, errors.New(errors.KindInvalidInput, op,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", info.Size(), maxFileSize)).WithPath(path)
	}
	return info, nil
}

// truncateText cuts text to at most limit bytes without splitting a character
func truncateText(text string, limit int64) string {
	if limit <= 0 {
		return ""
	}
	if int64(len(text)) <= limit {
		return text
	}
	cut := int(limit)
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
