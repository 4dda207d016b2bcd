// Package export renders the tag vocabulary and extracted field maps as
// XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

// Sheet names
const (
	InstrumentsSheet = "Instruments"
	AcronymsSheet    = "Acronyms"
	FieldsSheet      = "Fields"
)

var instrumentHeaders = []string{
	"File Key",
	"Drawing",
	"Unit",
	"Tag",
	"Tag Without Unit",
	"Acronym",
	"Instrument Type",
	"Datasheet",
	"Datasheet Pages",
}

// FieldRecord is one row of a field workbook
type FieldRecord struct {
	Name   string
	Fields *intelligence.FieldMap
}

// Service produces XLSX bytes
type Service struct {
	logger *slog.Logger
}

// NewService creates an exporter
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger.With("component", "export")}
}

// InstrumentIndex writes every recorded instrument, one row each, plus an
// acronym sheet with the instrument type and count per acronym
func (s *Service) InstrumentIndex(v *tags.Vocabulary) ([]byte, error) {
	const op = "export instrument index"

	if v == nil {
		return nil, errors.New(errors.KindInvalidInput, op, "no vocabulary")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := useSheet(f, InstrumentsSheet); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}
	if err := writeRow(f, InstrumentsSheet, 1, stringsToAny(instrumentHeaders)); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}

	counts := map[string]int{}
	row := 2
	for _, key := range sortedFileKeys(v.Files.PID) {
		file := v.Files.PID[key]
		for _, rec := range v.Instruments[key] {
			counts[rec.Acronym]++
			err := writeRow(f, InstrumentsSheet, row, []any{
				key,
				file.Path,
				file.Unit,
				rec.Tag,
				rec.TagLessUnit,
				rec.Acronym,
				v.AcronymsToTypes[rec.Acronym],
				rec.Datasheet.FileID,
				joinPages(rec.Datasheet.Pages),
			})
			if err != nil {
				return nil, errors.Wrap(errors.KindUnknown, op, err)
			}
			row++
		}
	}
	_ = f.SetColWidth(InstrumentsSheet, "A", "A", 10)
	_ = f.SetColWidth(InstrumentsSheet, "B", "B", 40)
	_ = f.SetColWidth(InstrumentsSheet, "C", "F", 16)
	_ = f.SetColWidth(InstrumentsSheet, "G", "G", 28)
	_ = f.SetColWidth(InstrumentsSheet, "H", "I", 24)

	if _, err := f.NewSheet(AcronymsSheet); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}
	if err := writeRow(f, AcronymsSheet, 1, []any{"Acronym", "Instrument Type", "Instruments"}); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}
	acronyms := make([]string, 0, len(v.AcronymsToTypes))
	for a := range v.AcronymsToTypes {
		acronyms = append(acronyms, a)
	}
	sort.Strings(acronyms)
	for i, a := range acronyms {
		if err := writeRow(f, AcronymsSheet, i+2, []any{a, v.AcronymsToTypes[a], counts[a]}); err != nil {
			return nil, errors.Wrap(errors.KindUnknown, op, err)
		}
	}
	_ = f.SetColWidth(AcronymsSheet, "B", "B", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, fmt.Errorf("xlsx write: %w", err))
	}
	s.logger.Info("instrument index exported", "rows", row-2, "acronyms", len(acronyms))
	return buf.Bytes(), nil
}

// FieldTable writes one row per record. Columns are the union of field
// names in first-seen order, after a leading name column.
func (s *Service) FieldTable(nameHeader string, records []FieldRecord) ([]byte, error) {
	const op = "export field table"

	var columns []string
	seen := map[string]int{}
	for _, rec := range records {
		if rec.Fields == nil {
			continue
		}
		for _, k := range rec.Fields.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = len(columns)
				columns = append(columns, k)
			}
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := useSheet(f, FieldsSheet); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}
	if err := writeRow(f, FieldsSheet, 1, append([]any{nameHeader}, stringsToAny(columns)...)); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}

	for i, rec := range records {
		values := make([]any, len(columns)+1)
		values[0] = rec.Name
		for j := range columns {
			values[j+1] = ""
		}
		if rec.Fields != nil {
			for _, k := range rec.Fields.Keys() {
				v, _ := rec.Fields.Get(k)
				values[seen[k]+1] = v
			}
		}
		if err := writeRow(f, FieldsSheet, i+2, values); err != nil {
			return nil, errors.Wrap(errors.KindUnknown, op, err)
		}
	}
	_ = f.SetColWidth(FieldsSheet, "A", "A", 36)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, fmt.Errorf("xlsx write: %w", err))
	}
	s.logger.Info("field table exported", "rows", len(records), "columns", len(columns))
	return buf.Bytes(), nil
}

// useSheet renames the default sheet to name and makes it active
func useSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

// sortedFileKeys orders file_N keys numerically, unknown shapes last
func sortedFileKeys(files map[string]tags.FileEntry) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	num := func(k string) int {
		n, err := strconv.Atoi(strings.TrimPrefix(k, "file_"))
		if err != nil {
			return int(^uint(0) >> 1)
		}
		return n
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := num(keys[i]), num(keys[j])
		if ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}
