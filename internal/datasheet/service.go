package datasheet

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf"
)

const idTimeLayout = "20060102_150405"

// Processing statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Trimmer cuts a page range of a PDF into a new file
type Trimmer interface {
	TrimPages(in, out string, start, end int) error
}

// ProcessedDatasheet describes one datasheet produced by Process
type ProcessedDatasheet struct {
	ID            string `json:"id"`
	EquipmentName string `json:"equipment_name"`
	Pages         string `json:"pages"`
	FieldsFound   int    `json:"fields_found"`
	PDFPath       string `json:"pdf_path,omitempty"`
}

// ProcessResult is the outcome of splitting one document
type ProcessResult struct {
	Status     string               `json:"status"`
	Message    string               `json:"message"`
	DocumentID string               `json:"document_id,omitempty"`
	Datasheets []ProcessedDatasheet `json:"datasheets"`
}

// Service splits documents into datasheets and persists them
type Service struct {
	store     *Store
	trimmer   Trimmer
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithPageCutter writes each datasheet's pages to outputDir as its own PDF
func WithPageCutter(trimmer Trimmer, outputDir string) ServiceOption {
	return func(s *Service) {
		s.trimmer = trimmer
		s.outputDir = outputDir
	}
}

// WithServiceLogger sets the service logger
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock sets the clock used for ids and timestamps
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a splitter service writing to store
func NewService(store *Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying record store
func (s *Service) Store() *Store {
	return s.store
}

// DocumentID builds the id of a split document from its filename
func DocumentID(filename string, at time.Time) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("doc_%s_%s", at.Format(idTimeLayout), SanitizeName(base))
}

// Process detects the datasheets in doc, extracts their content and
// technical fields and stores one record each. sourcePath is only needed
// when per-datasheet PDFs are cut.
func (s *Service) Process(ctx context.Context, doc *pdf.Document, sourcePath string) (*ProcessResult, error) {
	const op = "split datasheets"

	if doc == nil {
		return nil, errors.New(errors.KindInvalidInput, op, "no document")
	}
	now := s.now()
	documentID, err := s.uniqueDocumentID(ctx, DocumentID(doc.Name, now))
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("document_id", documentID)

	ranges := Split(doc.Pages)
	if len(ranges) == 0 {
		return &ProcessResult{
			Status:     StatusError,
			Message:    "No datasheets detected in document",
			Datasheets: []ProcessedDatasheet{},
		}, errors.New(errors.KindInputUnreadable, op, "no datasheets detected in document").WithPath(doc.Name)
	}

	used := map[string]bool{}
	records := make([]*Record, 0, len(ranges))
	processed := make([]ProcessedDatasheet, 0, len(ranges))
	for _, r := range ranges {
		id, err := s.uniqueID(ctx, fmt.Sprintf("%s_%s_%s", documentID, SanitizeName(r.EquipmentName), now.Format(idTimeLayout)), used)
		if err != nil {
			return nil, err
		}

		rec := buildRecord(id, documentID, r, doc, now)
		if s.trimmer != nil && s.outputDir != "" && sourcePath != "" {
			out := filepath.Join(s.outputDir, id+".pdf")
			if err := s.trimmer.TrimPages(sourcePath, out, r.StartPage, r.EndPage); err != nil {
				logger.Warn("could not cut datasheet pages", "datasheet_id", id, "error", err)
			} else {
				rec.PDFPath = out
			}
		}

		records = append(records, rec)
		processed = append(processed, ProcessedDatasheet{
			ID:            id,
			EquipmentName: r.EquipmentName,
			Pages:         rec.Pages,
			FieldsFound:   rec.ParsedFields.Len(),
			PDFPath:       rec.PDFPath,
		})
	}

	if err := s.store.SaveDocument(ctx, documentID, doc.Name, records); err != nil {
		return nil, err
	}

	logger.Info("document split", "datasheets", len(records))
	return &ProcessResult{
		Status:     StatusSuccess,
		Message:    fmt.Sprintf("Successfully processed %d datasheets", len(records)),
		DocumentID: documentID,
		Datasheets: processed,
	}, nil
}

// uniqueDocumentID suffixes the id when the same file was split within the same second
func (s *Service) uniqueDocumentID(ctx context.Context, base string) (string, error) {
	idx, err := s.store.LoadIndex(ctx)
	if err != nil {
		return "", err
	}
	id := base
	for n := 2; ; n++ {
		if _, taken := idx.Documents[id]; !taken {
			return id, nil
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// uniqueID appends _2, _3, ... until id is neither used in this run nor stored
func (s *Service) uniqueID(ctx context.Context, base string, used map[string]bool) (string, error) {
	id := base
	for n := 2; ; n++ {
		if !used[id] {
			exists, err := s.store.Exists(ctx, id)
			if err != nil {
				return "", err
			}
			if !exists {
				used[id] = true
				return id, nil
			}
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func buildRecord(id, documentID string, r Range, doc *pdf.Document, now time.Time) *Record {
	var text strings.Builder
	for page := r.StartPage; page <= r.EndPage && page <= len(doc.Pages); page++ {
		fmt.Fprintf(&text, "\n--- Page %d ---\n%s", page, strings.TrimLeft(doc.Pages[page-1], "\r\n"))
	}

	tables, pages := doc.TablesOnPages(r.StartPage, r.EndPage)
	pageTables := make([]PageTable, len(tables))
	for i := range tables {
		pageTables[i] = PageTable{Page: pages[i], Data: tables[i]}
	}

	body := text.String()
	return &Record{
		ID:            id,
		EquipmentName: r.EquipmentName,
		Manufacturer:  r.Manufacturer,
		DocumentID:    documentID,
		CreatedAt:     now,
		Pages:         r.Pages(),
		StartPage:     r.StartPage,
		EndPage:       r.EndPage,
		Content:       Content{Text: body, Tables: pageTables},
		ParsedFields:  intelligence.ExtractTechnicalFields(body),
		ChatHistory:   []ChatMessage{},
	}
}
