// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

// Cell is a text run placed at an absolute position on the page
type Cell struct {
	X, Y float64
	Text string
}

// Page holds the content of one page. Lines are written top-down as
// separate text lines; Cells are placed individually, which is how table
// rows come out of CAD exports.
type Page struct {
	Lines []string
	Cells []Cell
}

// Lines is shorthand for a page made only of text lines
func Lines(lines ...string) Page {
	return Page{Lines: lines}
}

// Row lays out cells left to right at height y, 150 points apart
func Row(y float64, cells ...string) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = Cell{X: 72 + float64(i)*150, Y: y, Text: c}
	}
	return out
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func (p Page) content() string {
	var b strings.Builder
	if len(p.Lines) > 0 {
		b.WriteString("BT /F1 10 Tf 12 TL 72 760 Td\n")
		for _, line := range p.Lines {
			fmt.Fprintf(&b, "(%s) Tj T*\n", escape(line))
		}
		b.WriteString("ET\n")
	}
	for _, c := range p.Cells {
		fmt.Fprintf(&b, "BT /F1 10 Tf %.0f %.0f Td (%s ) Tj ET\n", c.X, c.Y, escape(c.Text))
	}
	return b.String()
}

// Build renders pages into a PDF document
func Build(pages ...Page) []byte {
	var objects []string
	// 1 catalog, 2 pages, 3 font, then (page, content) pairs
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		content := p.content()
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// WriteFile builds the document and writes it to path
func WriteFile(t testing.TB, path string, pages ...Page) string {
	t.Helper()
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
	return path
}
