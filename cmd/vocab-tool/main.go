package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/a3tai/mcp-pid-extractor/internal/config"
	"github.com/a3tai/mcp-pid-extractor/internal/export"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

// options are the flags shared by every command
type options struct {
	backend storage.Options
	format  string
	output  string
	verbose bool
	help    bool
}

var now = time.Now

func envOr(flagName, fallback string) string {
	if v := os.Getenv(config.EnvName(flagName)); v != "" {
		return v
	}
	return fallback
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}

	fs := flag.NewFlagSet("vocab-tool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.backend.Kind, "backend", envOr("backend", config.BackendFile), "Storage backend: file, gcs or firestore")
	fs.StringVar(&opts.backend.Directory, "data-dir", envOr("data-dir", config.DefaultDataDirName), "Directory of the file backend")
	fs.StringVar(&opts.backend.Bucket, "gcs-bucket", envOr("gcs-bucket", ""), "GCS bucket (gcs backend)")
	fs.StringVar(&opts.backend.Prefix, "gcs-prefix", "pid-extractor", "Object prefix inside the bucket")
	fs.StringVar(&opts.backend.Project, "gcp-project", envOr("gcp-project", ""), "Google Cloud project (firestore backend)")
	fs.StringVar(&opts.backend.Collection, "firestore-collection", envOr("firestore-collection", config.DefaultFirestoreCollection), "Firestore collection")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.StringVar(&opts.output, "o", "", "Output file for export (default instruments_<timestamp>.xlsx)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&opts.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs.Args(), nil
}

func main() {
	_ = godotenv.Load(".env")
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if opts.help {
		printHelp(stdout)
		return 0
	}
	if len(rest) == 0 {
		fmt.Fprintf(stderr, "Error: command required\n\n")
		printUsage(stderr)
		return 2
	}

	// validate works on a local file and needs no backend
	if rest[0] == "validate" {
		return report(stderr, cmdValidate(rest[1:], stdout))
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	backend, err := storage.Open(ctx, opts.backend, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer backend.Close()

	store := tags.NewStore(backend, tags.WithStoreLogger(logger))

	switch rest[0] {
	case "stats":
		err = cmdStats(ctx, store, opts, stdout)
	case "repair":
		err = cmdRepair(ctx, store, opts, stdout)
	case "export":
		err = cmdExport(ctx, store, opts, logger, stdout)
	case "not-tag":
		err = cmdNotTag(ctx, store, rest[1:], stdout)
	case "classify":
		err = cmdClassify(ctx, store, rest[1:], stdout)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", rest[0])
		printUsage(stderr)
		return 2
	}
	return report(stderr, err)
}

func report(stderr io.Writer, err error) int {
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Vocab Tool - inspect and maintain the P&ID tag vocabulary")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Works on the same storage backend as the MCP server, so it can repair or")
	fmt.Fprintln(w, "export the vocabulary while the server is stopped or running.")
	fmt.Fprintln(w)
	printUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  stats                     Files, instruments and acronyms in the vocabulary")
	fmt.Fprintln(w, "  repair                    Drop orphaned instrument sets and empty file entries")
	fmt.Fprintln(w, "  export                    Write the instrument index as an Excel workbook")
	fmt.Fprintln(w, "  not-tag <ACRONYM>         Exclude an acronym from tag extraction")
	fmt.Fprintln(w, "  classify <ACRONYM> <TYPE> Set the instrument type of an acronym")
	fmt.Fprintln(w, "  validate <FILE>           Check a vocabulary JSON file against the schema")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  -backend               file (default), gcs or firestore")
	fmt.Fprintln(w, "  -data-dir              Directory of the file backend")
	fmt.Fprintln(w, "  -gcs-bucket            Bucket of the gcs backend")
	fmt.Fprintln(w, "  -gcp-project           Project of the firestore backend")
	fmt.Fprintln(w, "  -firestore-collection  Collection of the firestore backend")
	fmt.Fprintln(w, "  -format                Output format: text (default), json")
	fmt.Fprintln(w, "  -o                     Output file for export")
	fmt.Fprintln(w, "  -verbose               Log storage operations")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backend flags default to the server's MCP_PID_* environment variables.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  vocab-tool -data-dir /pids/.pid-data stats")
	fmt.Fprintln(w, "  vocab-tool -backend gcs -gcs-bucket pid-vocab repair")
	fmt.Fprintln(w, "  vocab-tool -format json stats")
	fmt.Fprintln(w, "  vocab-tool -o unit100.xlsx export")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  vocab-tool [OPTIONS] <command> [arguments]")
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func cmdStats(ctx context.Context, store *tags.Store, opts *options, w io.Writer) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return outputJSON(w, stats)
	}

	fmt.Fprintf(w, "Files processed:   %d\n", stats.TotalFilesProcessed)
	fmt.Fprintf(w, "Instruments found: %d\n", stats.TotalInstrumentsFound)
	fmt.Fprintf(w, "Known acronyms:    %d\n", stats.TotalKnownAcronyms)
	fmt.Fprintf(w, "False positives:   %d\n", stats.TotalFalsePositives)
	for _, acronym := range stats.SortedAcronyms() {
		fmt.Fprintf(w, "  %-6s %d\n", acronym, stats.InstrumentsByAcronym[acronym])
	}
	return nil
}

func cmdRepair(ctx context.Context, store *tags.Store, opts *options, w io.Writer) error {
	rep, err := store.Repair(ctx)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return outputJSON(w, map[string]any{
			"changed": rep.Changed,
			"passes":  rep.Passes,
			"lines":   rep.Lines,
		})
	}

	if !rep.Changed {
		fmt.Fprintln(w, "✅ Vocabulary is consistent")
		return nil
	}
	fmt.Fprintf(w, "🔧 Repaired in %d pass(es)\n", rep.Passes)
	for _, line := range rep.Lines {
		fmt.Fprintf(w, "  • %s\n", line)
	}
	return nil
}

func cmdExport(ctx context.Context, store *tags.Store, opts *options, logger *slog.Logger, w io.Writer) error {
	v, err := store.Load(ctx)
	if err != nil {
		return err
	}
	data, err := export.NewService(logger).InstrumentIndex(v)
	if err != nil {
		return err
	}

	path := opts.output
	if path == "" {
		path = fmt.Sprintf("instruments_%s.xlsx", now().Format("20060102_150405"))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(w, "📊 Wrote %d instruments to %s\n", countInstruments(v), abs)
	return nil
}

func countInstruments(v *tags.Vocabulary) int {
	n := 0
	for _, recs := range v.Instruments {
		n += len(recs)
	}
	return n
}

func cmdNotTag(ctx context.Context, store *tags.Store, args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("not-tag takes exactly one acronym")
	}
	if err := store.AddNotTag(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s excluded from tag extraction\n", args[0])
	return nil
}

func cmdClassify(ctx context.Context, store *tags.Store, args []string, w io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("classify takes an acronym and an instrument type")
	}
	instrumentType := strings.Join(args[1:], " ")
	if err := store.ClassifyAcronym(ctx, args[0], instrumentType); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s classified as %s\n", args[0], instrumentType)
	return nil
}

func cmdValidate(args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("validate takes exactly one file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := tags.ValidateDocument(data); err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ %s is a valid vocabulary document\n", args[0])
	return nil
}
