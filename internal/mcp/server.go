package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pid-extractor/internal/config"
	"github.com/a3tai/mcp-pid-extractor/internal/datasheet"
	"github.com/a3tai/mcp-pid-extractor/internal/descriptions"
	"github.com/a3tai/mcp-pid-extractor/internal/documents"
	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

// Export kinds accepted by pid_export_instruments
const (
	ExportInstruments = "instruments"
	ExportAnalyses    = "analyses"
	ExportDatasheets  = "datasheets"
)

const exportDirName = "exports"

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	docs      *documents.Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
	stdin     io.Reader
	stdout    io.Writer
	now       func() time.Time
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, docs *documents.Service, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if docs == nil {
		return nil, fmt.Errorf("document service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		docs:      docs,
		mcpServer: mcpServer,
		logger:    logger.With("component", "mcp"),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		now:       time.Now,
	}

	s.registerTools()

	return s, nil
}

func pathParam(description string) mcp.ToolOption {
	return mcp.WithString("path", mcp.Required(), mcp.Description(description))
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	tool := func(name string, opts ...mcp.ToolOption) mcp.Tool {
		return mcp.NewTool(name, append([]mcp.ToolOption{
			mcp.WithDescription(descriptions.GetToolDescription(name)),
		}, opts...)...)
	}

	// Analysis
	s.mcpServer.AddTool(tool("pid_analyze_file",
		pathParam("Path to the PDF, absolute or relative to the configured directory"),
		mcp.WithBoolean("extract_tags", mcp.Description("Also record the drawing's instrument tags")),
	), s.handleAnalyzeFile)

	s.mcpServer.AddTool(tool("pid_analyze_directory",
		mcp.WithString("directory", mcp.Description("Directory to analyze (uses default if empty)")),
		mcp.WithString("query", mcp.Description("Only analyze files whose name contains this text")),
		mcp.WithBoolean("extract_tags", mcp.Description("Also record instrument tags")),
	), s.handleAnalyzeDirectory)

	// Tag vocabulary
	s.mcpServer.AddTool(tool("pid_extract_tags",
		pathParam("Path to the P&ID PDF"),
	), s.handleExtractTags)

	s.mcpServer.AddTool(tool("pid_tag_stats"), s.handleTagStats)

	s.mcpServer.AddTool(tool("pid_tags_for_file",
		pathParam("Path to a processed P&ID PDF"),
	), s.handleTagsForFile)

	s.mcpServer.AddTool(tool("pid_repair_vocabulary"), s.handleRepairVocabulary)

	s.mcpServer.AddTool(tool("pid_mark_not_tag",
		mcp.WithString("acronym", mcp.Required(), mcp.Description("Upper-case acronym, e.g. DN")),
	), s.handleMarkNotTag)

	s.mcpServer.AddTool(tool("pid_classify_acronym",
		mcp.WithString("acronym", mcp.Required(), mcp.Description("Upper-case acronym, e.g. FV")),
		mcp.WithString("instrument_type", mcp.Required(), mcp.Description("Instrument type, e.g. Flow Control Valve")),
	), s.handleClassifyAcronym)

	// Datasheets
	s.mcpServer.AddTool(tool("pid_split_datasheets",
		pathParam("Path to the datasheet PDF"),
	), s.handleSplitDatasheets)

	s.mcpServer.AddTool(tool("pid_list_datasheets",
		mcp.WithString("document_id", mcp.Description("Only list datasheets split from this document")),
	), s.handleListDatasheets)

	s.mcpServer.AddTool(tool("pid_get_datasheet",
		mcp.WithString("id", mcp.Required(), mcp.Description("Datasheet id")),
	), s.handleGetDatasheet)

	s.mcpServer.AddTool(tool("pid_delete_datasheet",
		mcp.WithString("id", mcp.Required(), mcp.Description("Datasheet id")),
	), s.handleDeleteDatasheet)

	// Language model
	s.mcpServer.AddTool(tool("pid_chat",
		mcp.WithString("message", mcp.Required(), mcp.Description("Question to ask")),
		mcp.WithString("path", mcp.Description("Ask about this PDF")),
		mcp.WithString("datasheet_id", mcp.Description("Ask about this stored datasheet")),
	), s.handleChat)

	s.mcpServer.AddTool(tool("pid_extract_field",
		pathParam("Path to an analyzed PDF"),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field name, e.g. Design Pressure")),
		mcp.WithBoolean("delete", mcp.Description("Delete the stored field instead of extracting it")),
	), s.handleExtractField)

	// Export and info
	s.mcpServer.AddTool(tool("pid_export_instruments",
		mcp.WithString("kind",
			mcp.Description("What to export (default instruments)"),
			mcp.Enum(ExportInstruments, ExportAnalyses, ExportDatasheets),
		),
	), s.handleExport)

	s.mcpServer.AddTool(tool("pid_server_info"), s.handleServerInfo)
}

// Argument helpers

func stringArg(request mcp.CallToolRequest, key string) string {
	if v, ok := request.GetArguments()[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolArg(request mcp.CallToolRequest, key string) bool {
	switch v := request.GetArguments()[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Handler functions

func (s *Server) handleAnalyzeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(err)
	}

	opts := documents.AnalyzeOptions{ExtractTags: boolArg(request, "extract_tags")}
	analysis, err := s.docs.AnalyzeFile(ctx, path, opts)
	if err != nil && (analysis == nil || !errors.Is(err, errors.KindInputUnreadable)) {
		return toolError(err)
	}

	return mcp.NewToolResultText(s.formatAnalysis(analysis)), nil
}

func (s *Server) handleAnalyzeDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory := stringArg(request, "directory")
	query := stringArg(request, "query")
	opts := documents.AnalyzeOptions{ExtractTags: boolArg(request, "extract_tags")}

	result, err := s.docs.AnalyzeDirectory(ctx, directory, query, opts)
	if err != nil {
		return toolError(err)
	}

	if len(result.Files) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultText(s.formatBatch(result)), nil
}

func (s *Server) handleExtractTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(err)
	}

	result, err := s.docs.ExtractTags(ctx, path)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(s.formatTagResult(result)), nil
}

func (s *Server) handleTagStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.docs.Tags().Stats(ctx)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(s.formatStats(stats)), nil
}

func (s *Server) handleTagsForFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(err)
	}

	records, err := s.docs.TagsForFile(ctx, path)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(s.formatInstruments(path, records)), nil
}

func (s *Server) handleRepairVocabulary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.docs.Tags().Repair(ctx)
	if err != nil {
		return toolError(err)
	}

	if !report.Changed {
		return mcp.NewToolResultText("Vocabulary is consistent, nothing to repair"), nil
	}
	text := fmt.Sprintf("Vocabulary repaired in %d pass(es)\n", report.Passes)
	for _, line := range report.Lines {
		text += fmt.Sprintf("  • %s\n", line)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleMarkNotTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acronym, err := request.RequireString("acronym")
	if err != nil {
		return toolError(err)
	}

	if err := s.docs.Tags().AddNotTag(ctx, acronym); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is now excluded from tag extraction", strings.TrimSpace(acronym))), nil
}

func (s *Server) handleClassifyAcronym(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acronym, err := request.RequireString("acronym")
	if err != nil {
		return toolError(err)
	}
	instrumentType, err := request.RequireString("instrument_type")
	if err != nil {
		return toolError(err)
	}

	if err := s.docs.Tags().ClassifyAcronym(ctx, acronym, strings.TrimSpace(instrumentType)); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s classified as %s", strings.TrimSpace(acronym), strings.TrimSpace(instrumentType))), nil
}

func (s *Server) handleSplitDatasheets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(err)
	}

	result, err := s.docs.SplitDatasheets(ctx, path)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(s.formatSplit(result)), nil
}

func (s *Server) handleListDatasheets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := s.docs.Datasheets().Store()

	var (
		summaries []datasheet.Summary
		err       error
	)
	if documentID := stringArg(request, "document_id"); documentID != "" {
		summaries, err = store.ListByDocument(ctx, documentID)
	} else {
		summaries, err = store.List(ctx)
	}
	if err != nil {
		return toolError(err)
	}

	if len(summaries) == 0 {
		return mcp.NewToolResultText("No datasheets stored"), nil
	}
	return mcp.NewToolResultText(s.formatDatasheets(summaries)), nil
}

func (s *Server) handleGetDatasheet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return toolError(err)
	}

	record, err := s.docs.Datasheets().Store().Get(ctx, id)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(record)
}

func (s *Server) handleDeleteDatasheet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return toolError(err)
	}

	if err := s.docs.Datasheets().Store().Delete(ctx, id); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Datasheet %s deleted", id)), nil
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return toolError(err)
	}

	path := stringArg(request, "path")
	datasheetID := stringArg(request, "datasheet_id")

	switch {
	case path != "" && datasheetID != "":
		return mcp.NewToolResultError("pass either path or datasheet_id, not both"), nil

	case datasheetID != "":
		reply, err := s.docs.ChatDatasheet(ctx, datasheetID, message)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(withExtracted(reply.Message.Response, reply.Extracted)), nil

	case path != "":
		reply, err := s.docs.ChatDocument(ctx, path, message)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(withExtracted(reply.Response, reply.Extracted)), nil
	}

	reply, err := s.docs.ChatAll(ctx, message)
	if err != nil {
		return toolError(err)
	}
	text := reply.Response
	if len(reply.Relevant) > 0 {
		text += "\n\nRelevant documents:\n"
		for _, doc := range reply.Relevant {
			text += fmt.Sprintf("  • %s\n", doc.Name)
		}
	}
	return mcp.NewToolResultText(text), nil
}

func withExtracted(response, extracted string) string {
	if extracted == "" {
		return response
	}
	return response + "\n\nExtracted fields:\n" + extracted
}

func (s *Server) handleExtractField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(err)
	}
	field, err := request.RequireString("field")
	if err != nil {
		return toolError(err)
	}
	field = strings.TrimSpace(field)

	resolved, err := s.docs.PDF().Resolve(path)
	if err != nil {
		return toolError(err)
	}
	id := documents.AnalysisID(resolved)

	if boolArg(request, "delete") {
		if err := s.docs.DeleteField(ctx, id, field); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Field '%s' deleted from %s", field, filepath.Base(resolved))), nil
	}

	value, err := s.docs.ExtractField(ctx, id, field)
	if err != nil {
		if errors.Is(err, errors.KindNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%s: run pid_analyze_file on %s first", err, path)), nil
		}
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", field, value)), nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := stringArg(request, "kind")
	if kind == "" {
		kind = ExportInstruments
	}

	var (
		data []byte
		err  error
	)
	switch kind {
	case ExportInstruments:
		data, err = s.docs.ExportInstruments(ctx)
	case ExportAnalyses:
		data, err = s.docs.ExportAnalyses(ctx)
	case ExportDatasheets:
		data, err = s.docs.ExportDatasheets(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown export kind %q", kind)), nil
	}
	if err != nil {
		return toolError(err)
	}

	path, err := s.writeExport(kind, data)
	if err != nil {
		return toolError(err)
	}
	s.logger.Info("export written", "kind", kind, "path", path, "bytes", len(data))
	return mcp.NewToolResultText(fmt.Sprintf("Exported %s to %s (%d bytes)", kind, path, len(data))), nil
}

func (s *Server) writeExport(kind string, data []byte) (string, error) {
	dir := filepath.Join(s.config.DataDirectory, exportDirName)
	if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
		return "", errors.Wrap(errors.KindStorage, "write export", err)
	}
	path := filepath.Join(dir, documents.ExportFileName(kind, s.now()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrap(errors.KindStorage, "write export", err)
	}
	return path, nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.docs.PDF().FindPDFs("", "")
	if err != nil {
		s.logger.Warn("listing default directory failed", "error", err)
	}
	return mcp.NewToolResultText(s.formatServerInfo(files)), nil
}

// Formatting methods

func (s *Server) formatAnalysis(a *documents.Analysis) string {
	text := fmt.Sprintf("Analysis of %s\n", a.Filename)
	text += fmt.Sprintf("ID: %s\n", a.ID)
	text += fmt.Sprintf("Pages: %d\n", a.Pages)
	text += fmt.Sprintf("Status: %s\n", a.Status)
	if a.Status == documents.StatusUnreadable {
		text += "\n⚠️  WARNING: No extractable text. The PDF may be scanned; only file information was recorded.\n"
	}

	text += "\nExtracted fields:\n"
	for _, key := range a.ExtractedData.Keys() {
		value, _ := a.ExtractedData.Get(key)
		text += fmt.Sprintf("  %s: %s\n", key, value)
	}

	if a.Tags != nil {
		text += "\n" + s.formatTagResult(a.Tags)
	}
	return text
}

func (s *Server) formatBatch(result *documents.BatchResult) string {
	text := fmt.Sprintf("Analyzed %d PDF file(s) in directory: %s\n", len(result.Files), result.Directory)
	text += fmt.Sprintf("Processed: %d, Failed: %d\n\nFiles:\n", result.Processed, result.Failed)

	for i, f := range result.Files {
		text += fmt.Sprintf("%d. %s [%s]\n", i+1, filepath.Base(f.Path), f.Status)
		if f.Error != "" {
			text += fmt.Sprintf("   Error: %s\n", f.Error)
			continue
		}
		text += fmt.Sprintf("   Fields: %d, Tags: %d\n", f.FieldsFound, f.TagsFound)
	}
	return text
}

func (s *Server) formatTagResult(result *tags.ProcessingResult) string {
	text := fmt.Sprintf("Tag extraction: %s\n", result.Status)
	if result.Message != "" {
		text += fmt.Sprintf("%s\n", result.Message)
	}
	if result.FileKey != "" {
		text += fmt.Sprintf("File key: %s\n", result.FileKey)
	}
	text += fmt.Sprintf("Words analyzed: %d\n", result.TotalWordsAnalyzed)
	if len(result.Tags) > 0 {
		text += fmt.Sprintf("Tags (%d): %s\n", len(result.Tags), strings.Join(result.Tags, ", "))
	}
	if len(result.NewAcronyms) > 0 {
		text += fmt.Sprintf("New acronyms: %s (classify them with pid_classify_acronym or exclude with pid_mark_not_tag)\n",
			strings.Join(result.NewAcronyms, ", "))
	}
	return text
}

func (s *Server) formatStats(stats *tags.Stats) string {
	text := "Tag Vocabulary Statistics\n"
	text += fmt.Sprintf("Files processed: %d\n", stats.TotalFilesProcessed)
	text += fmt.Sprintf("Instruments found: %d\n", stats.TotalInstrumentsFound)
	text += fmt.Sprintf("Known acronyms: %d\n", stats.TotalKnownAcronyms)
	text += fmt.Sprintf("False positives: %d\n", stats.TotalFalsePositives)

	if acronyms := stats.SortedAcronyms(); len(acronyms) > 0 {
		text += "\nInstruments by acronym:\n"
		for _, acronym := range acronyms {
			text += fmt.Sprintf("  %s: %d\n", acronym, stats.InstrumentsByAcronym[acronym])
		}
	}
	return text
}

func (s *Server) formatInstruments(path string, records []tags.InstrumentRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("No instruments recorded for %s", path)
	}

	text := fmt.Sprintf("%d instrument(s) recorded for %s\n", len(records), path)
	for i, r := range records {
		text += fmt.Sprintf("%d. %s (%s)", i+1, r.Tag, r.Acronym)
		if r.Datasheet.FileID != "" {
			text += fmt.Sprintf(", datasheet %s pages %v", r.Datasheet.FileID, r.Datasheet.Pages)
		}
		text += "\n"
	}
	return text
}

func (s *Server) formatSplit(result *datasheet.ProcessResult) string {
	text := fmt.Sprintf("%s\n", result.Message)
	if result.DocumentID != "" {
		text += fmt.Sprintf("Document ID: %s\n", result.DocumentID)
	}

	for i, ds := range result.Datasheets {
		text += fmt.Sprintf("\n%d. %s\n", i+1, ds.EquipmentName)
		text += fmt.Sprintf("   ID: %s\n", ds.ID)
		text += fmt.Sprintf("   Pages: %s\n", ds.Pages)
		text += fmt.Sprintf("   Fields found: %d\n", ds.FieldsFound)
		if ds.PDFPath != "" {
			text += fmt.Sprintf("   PDF: %s\n", ds.PDFPath)
		}
	}
	return text
}

func (s *Server) formatDatasheets(summaries []datasheet.Summary) string {
	text := fmt.Sprintf("%d datasheet(s)\n", len(summaries))
	for i, sum := range summaries {
		text += fmt.Sprintf("%d. %s [%s]\n", i+1, sum.EquipmentName, sum.ID)
		text += fmt.Sprintf("   Document: %s, Pages: %s, Fields: %d, Created: %s\n",
			sum.DocumentID, sum.Pages, sum.FieldsCount, sum.CreatedAt.Format(time.RFC3339))
	}
	return text
}

func (s *Server) formatServerInfo(files []pdf.FileInfo) string {
	count := len(files)
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", s.config.PDFDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("💾 Storage Backend: %s\n", s.config.Backend)
	if s.docs.LLMConfigured() {
		text += fmt.Sprintf("🤖 Language Model: %s (%s)\n\n", s.config.LLMModel, s.config.GCPRegion)
	} else {
		text += "🤖 Language Model: not configured (pid_chat and pid_extract_field are unavailable)\n\n"
	}

	if count > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", count)
		for i, file := range files {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", count-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		text += fmt.Sprintf("• %s: %s\n", name, descriptions.GetToolSummary(name))
	}
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves MCP over stdin and stdout until ctx ends or input closes
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug("starting stdio mode", "directory", s.config.PDFDirectory)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting SSE server", "address", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("SSE server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("SSE server shutdown: %w", err)
	}
	s.logger.Info("SSE server stopped")
	return nil
}
