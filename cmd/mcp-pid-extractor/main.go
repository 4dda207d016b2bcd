package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/a3tai/mcp-pid-extractor/internal/config"
	"github.com/a3tai/mcp-pid-extractor/internal/datasheet"
	"github.com/a3tai/mcp-pid-extractor/internal/documents"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/llm"
	"github.com/a3tai/mcp-pid-extractor/internal/mcp"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// gcsPrefix keeps the server's objects together inside a shared bucket
const gcsPrefix = "pid-extractor"

// newLogger builds the process logger. In stdio mode stdout carries the
// protocol, so logs go to w and stay at warn and above unless debugging.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.SlogLevel()
	if cfg.IsStdioMode() && !cfg.IsDebug() && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.IsServerMode() && cfg.IsDebug(),
	}))
}

func backendOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Kind:       cfg.Backend,
		Directory:  cfg.DataDirectory,
		Bucket:     cfg.GCSBucket,
		Prefix:     gcsPrefix,
		Project:    cfg.GCPProject,
		Collection: cfg.FirestoreCollection,
	}
}

// newModel connects to Vertex AI when a project is configured. A nil model
// leaves the chat tools disabled.
func newModel(ctx context.Context, cfg *config.Config) (*llm.VertexModel, error) {
	if !cfg.LLMEnabled() {
		return nil, nil
	}
	name := cfg.LLMModel
	if name == "" {
		name = llm.DefaultModel
	}
	return llm.NewVertexModel(ctx, cfg.GCPProject, cfg.GCPRegion, name)
}

// buildServices wires the document service on top of backend
func buildServices(cfg *config.Config, backend storage.Backend, model llm.Model, logger *slog.Logger) (*documents.Service, error) {
	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	dsOpts := []datasheet.ServiceOption{datasheet.WithServiceLogger(logger)}
	if cfg.SplitOutputDir != "" {
		dsOpts = append(dsOpts, datasheet.WithPageCutter(pdfService, cfg.SplitOutputDir))
	}

	vocabulary := tags.NewStore(backend,
		tags.WithStoreLogger(logger),
		tags.WithNewAcronymHook(func(acronym string) bool {
			logger.Info("new acronym discovered", "acronym", acronym)
			return true
		}),
	)

	return documents.NewService(documents.Config{
		PDF:        pdfService,
		Analyzer:   intelligence.NewFieldAnalyzer(intelligence.WithLogger(logger)),
		Analyses:   documents.NewAnalysisStore(backend, logger),
		Tags:       vocabulary,
		Datasheets: datasheet.NewService(datasheet.NewStore(backend, datasheet.WithLogger(logger)), dsOpts...),
		Assistant:  llm.NewAssistant(model, logger),
		Workers:    cfg.Workers,
		Logger:     logger,
	}), nil
}

// run opens the backend and model, then serves until ctx ends
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backend, err := storage.Open(ctx, backendOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}
	defer backend.Close()

	var model llm.Model
	vertex, err := newModel(ctx, cfg)
	if err != nil {
		return err
	}
	if vertex != nil {
		defer vertex.Close()
		model = vertex
	} else {
		logger.Info("no GCP project configured, chat tools disabled")
	}

	docs, err := buildServices(cfg, backend, model, logger)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(cfg, docs, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Debug("starting", "config", cfg.String())
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	_ = godotenv.Load(".env")

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP P&ID Extractor\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
