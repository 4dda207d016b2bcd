// Package documents ties the PDF reader, the field analyzer, the tag
// vocabulary, the datasheet splitter and the language model together into
// the operations exposed by the tool server.
package documents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-pid-extractor/internal/datasheet"
	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/export"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/llm"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

// DefaultWorkers bounds concurrent file analysis in a directory run
const DefaultWorkers = 4

// File information fields added to every analysis
const (
	FieldFileName = "File Name"
	FieldFileSize = "File Size"
	FieldFilePath = "File Path"
	FieldPages    = "Page Count"
)

// Config wires the collaborators of a Service
type Config struct {
	PDF        *pdf.Service
	Analyzer   *intelligence.FieldAnalyzer
	Analyses   *AnalysisStore
	Tags       *tags.Store
	Datasheets *datasheet.Service
	Assistant  *llm.Assistant
	Exporter   *export.Service
	Workers    int
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service runs document level operations
type Service struct {
	pdf        *pdf.Service
	analyzer   *intelligence.FieldAnalyzer
	analyses   *AnalysisStore
	tags       *tags.Store
	datasheets *datasheet.Service
	assistant  *llm.Assistant
	exporter   *export.Service
	workers    int
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a document service from cfg
func NewService(cfg Config) *Service {
	s := &Service{
		pdf:        cfg.PDF,
		analyzer:   cfg.Analyzer,
		analyses:   cfg.Analyses,
		tags:       cfg.Tags,
		datasheets: cfg.Datasheets,
		assistant:  cfg.Assistant,
		exporter:   cfg.Exporter,
		workers:    cfg.Workers,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if s.analyzer == nil {
		s.analyzer = intelligence.NewFieldAnalyzer()
	}
	if s.assistant == nil {
		s.assistant = llm.NewAssistant(nil, cfg.Logger)
	}
	if s.exporter == nil {
		s.exporter = export.NewService(cfg.Logger)
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PDF returns the underlying PDF service
func (s *Service) PDF() *pdf.Service { return s.pdf }

// Tags returns the vocabulary store
func (s *Service) Tags() *tags.Store { return s.tags }

// Datasheets returns the datasheet service
func (s *Service) Datasheets() *datasheet.Service { return s.datasheets }

// Analyses returns the analysis store
func (s *Service) Analyses() *AnalysisStore { return s.analyses }

// LLMConfigured reports whether chat and field extraction are available
func (s *Service) LLMConfigured() bool { return s.assistant.Configured() }

// AnalyzeOptions tunes AnalyzeFile
type AnalyzeOptions struct {
	// ExtractTags also records the document's tags in the vocabulary
	ExtractTags bool
}

// read resolves path and extracts it. An unreadable document is returned
// together with its KindInputUnreadable error.
func (s *Service) read(path string) (string, *pdf.Document, error) {
	resolved, err := s.pdf.Resolve(path)
	if err != nil {
		return "", nil, err
	}
	doc, err := s.pdf.ReadFile(resolved)
	return resolved, doc, err
}

// AnalyzeFile extracts the fields of the PDF at path and stores the
// analysis. A PDF without extractable text is stored with the minimal field
// map and reported with a KindInputUnreadable error alongside the result.
func (s *Service) AnalyzeFile(ctx context.Context, path string, opts AnalyzeOptions) (*Analysis, error) {
	resolved, doc, readErr := s.read(path)
	if doc == nil {
		return nil, readErr
	}
	logger := s.logger.With("file", resolved)

	a := &Analysis{
		ID:          AnalysisID(resolved),
		Filename:    doc.Name,
		Path:        resolved,
		ProcessedAt: s.now(),
		FileSize:    doc.Size,
		Pages:       doc.PageCount(),
		Status:      StatusProcessed,
	}
	if readErr != nil {
		a.Status = StatusUnreadable
		a.ExtractedData = s.analyzer.Analyze("", nil)
	} else {
		a.ExtractedData = s.analyzer.Analyze(doc.Text, doc.Tables)
	}
	a.ExtractedData.Set(FieldFileName, doc.Name)
	a.ExtractedData.Set(FieldFileSize, fmt.Sprintf("%.2f MB", float64(doc.Size)/1024/1024))
	a.ExtractedData.Set(FieldPages, fmt.Sprintf("%d", doc.PageCount()))
	a.ExtractedData.Set(FieldFilePath, resolved)

	if opts.ExtractTags && readErr == nil && s.tags != nil {
		res, err := s.tags.ProcessDocument(ctx, resolved, doc.Tokens)
		if err != nil {
			return nil, err
		}
		a.Tags = res
	}

	if err := s.analyses.Save(ctx, a); err != nil {
		return nil, err
	}

	if readErr != nil {
		logger.Warn("document has no extractable text", "analysis_id", a.ID)
		return a, readErr
	}
	logger.Info("document analyzed", "analysis_id", a.ID, "fields", a.ExtractedData.Len())
	return a, nil
}

// FileOutcome is the result of one file in a directory run
type FileOutcome struct {
	Path        string `json:"path"`
	AnalysisID  string `json:"analysis_id,omitempty"`
	Status      string `json:"status"`
	FieldsFound int    `json:"fields_found"`
	TagsFound   int    `json:"tags_found"`
	Error       string `json:"error,omitempty"`
}

// BatchResult summarises a directory run
type BatchResult struct {
	Directory string        `json:"directory"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Files     []FileOutcome `json:"files"`
}

// AnalyzeDirectory analyzes every PDF under directory whose name contains
// query. Files run concurrently; a failing file is reported in its outcome
// and does not stop the others.
func (s *Service) AnalyzeDirectory(ctx context.Context, directory, query string, opts AnalyzeOptions) (*BatchResult, error) {
	if directory != "" {
		resolved, err := s.pdf.Resolve(directory)
		if err != nil {
			return nil, err
		}
		directory = resolved
	}
	files, err := s.pdf.FindPDFs(directory, query)
	if err != nil {
		return nil, err
	}

	outcomes := make([]FileOutcome, len(files))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)

	for i, file := range files {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := FileOutcome{Path: file.Path}
			a, err := s.AnalyzeFile(gctx, file.Path, opts)
			if a != nil {
				out.AnalysisID = a.ID
				out.Status = a.Status
				out.FieldsFound = a.ExtractedData.Len()
				if a.Tags != nil {
					out.TagsFound = len(a.Tags.Tags)
				}
			}
			if err != nil {
				if out.Status == "" {
					out.Status = "error"
				}
				out.Error = err.Error()
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "analyze directory", err)
	}

	res := &BatchResult{Directory: directory, Files: outcomes}
	if res.Directory == "" {
		res.Directory = s.pdf.ConfiguredDirectory()
	}
	for _, o := range outcomes {
		if o.Error == "" {
			res.Processed++
		} else {
			res.Failed++
		}
	}
	s.logger.Info("directory analyzed", "directory", res.Directory, "processed", res.Processed, "failed", res.Failed)
	return res, nil
}

// ExtractTags records the tags of the PDF at path in the vocabulary. A PDF
// without text yields a result with status error and a KindInputUnreadable
// error.
func (s *Service) ExtractTags(ctx context.Context, path string) (*tags.ProcessingResult, error) {
	resolved, doc, err := s.read(path)
	if doc == nil {
		return nil, err
	}
	return s.tags.ProcessDocument(ctx, resolved, doc.Tokens)
}

// TagsForFile returns the instruments recorded for the PDF at path
func (s *Service) TagsForFile(ctx context.Context, path string) ([]tags.InstrumentRecord, error) {
	resolved, err := s.pdf.Resolve(path)
	if err != nil {
		return nil, err
	}
	return s.tags.TagsForFile(ctx, resolved)
}

// SplitDatasheets cuts the PDF at path into equipment datasheets
func (s *Service) SplitDatasheets(ctx context.Context, path string) (*datasheet.ProcessResult, error) {
	resolved, doc, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.datasheets.Process(ctx, doc, resolved)
}

// ChatDocument asks the model about the PDF at path
func (s *Service) ChatDocument(ctx context.Context, path, message string) (*llm.ChatReply, error) {
	if !s.assistant.Configured() {
		return s.assistant.ChatDocument(ctx, "", message)
	}
	_, doc, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.assistant.ChatDocument(ctx, doc.Text, message)
}

// DatasheetReply is a model answer recorded in a datasheet's history
type DatasheetReply struct {
	Message   *datasheet.ChatMessage `json:"message"`
	Extracted string                 `json:"extracted_fields,omitempty"`
}

// ChatDatasheet asks the model about a stored datasheet and appends the
// exchange to its chat history
func (s *Service) ChatDatasheet(ctx context.Context, id, message string) (*DatasheetReply, error) {
	store := s.datasheets.Store()
	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	reply, err := s.assistant.ChatDocument(ctx, rec.Content.Text, message)
	if err != nil {
		return nil, err
	}
	msg, err := store.AppendChat(ctx, id, message, reply.Response)
	if err != nil {
		return nil, err
	}
	return &DatasheetReply{Message: msg, Extracted: reply.Extracted}, nil
}

// ChatAll asks the model across the extracted data of every stored analysis
func (s *Service) ChatAll(ctx context.Context, message string) (*llm.LibraryReply, error) {
	if !s.assistant.Configured() {
		return s.assistant.ChatLibrary(ctx, nil, message)
	}
	all, err := s.analyses.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]llm.LibraryDocument, 0, len(all))
	for _, a := range all {
		docs = append(docs, llm.LibraryDocument{
			DocumentFields: llm.DocumentFields{Name: a.Filename, Fields: a.ExtractedData},
			ProcessedAt:    a.ProcessedAt,
		})
	}
	return s.assistant.ChatLibrary(ctx, docs, message)
}

// ExtractField asks the model for one named field of an analyzed document
// and stores the answer in its extracted data
func (s *Service) ExtractField(ctx context.Context, analysisID, field string) (string, error) {
	a, err := s.analyses.Get(ctx, analysisID)
	if err != nil {
		return "", err
	}
	if !s.assistant.Configured() {
		return s.assistant.ExtractField(ctx, "", field)
	}
	doc, err := s.pdf.ReadFile(a.Path)
	if err != nil {
		return "", err
	}

	value, err := s.assistant.ExtractField(ctx, doc.Text, field)
	if err != nil {
		return "", err
	}
	if err := s.analyses.SetField(ctx, analysisID, field, value); err != nil {
		return "", err
	}
	s.logger.Info("field extracted", "analysis_id", analysisID, "field", field)
	return value, nil
}

// DeleteField removes one extracted field from an analysis
func (s *Service) DeleteField(ctx context.Context, analysisID, field string) error {
	return s.analyses.DeleteField(ctx, analysisID, field)
}

// ExportInstruments renders the vocabulary's instruments as XLSX
func (s *Service) ExportInstruments(ctx context.Context) ([]byte, error) {
	v, err := s.tags.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.exporter.InstrumentIndex(v)
}

// ExportAnalyses renders the extracted data of every analysis as XLSX
func (s *Service) ExportAnalyses(ctx context.Context) ([]byte, error) {
	all, err := s.analyses.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]export.FieldRecord, 0, len(all))
	for _, a := range all {
		records = append(records, export.FieldRecord{Name: a.Filename, Fields: a.ExtractedData})
	}
	return s.exporter.FieldTable("Document", records)
}

// ExportDatasheets renders the parsed fields of every datasheet as XLSX
func (s *Service) ExportDatasheets(ctx context.Context) ([]byte, error) {
	store := s.datasheets.Store()
	summaries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]export.FieldRecord, 0, len(summaries))
	for _, sum := range summaries {
		rec, err := store.Get(ctx, sum.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, export.FieldRecord{Name: rec.ID, Fields: rec.ParsedFields})
	}
	return s.exporter.FieldTable("Datasheet", records)
}

// ExportFileName names an export written to disk
func ExportFileName(kind string, at time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, at.Format("20060102_150405"))
}
