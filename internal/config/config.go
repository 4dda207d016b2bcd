package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Storage backends
	BackendFile      = "file"
	BackendGCS       = "gcs"
	BackendFirestore = "firestore"

	// Default values
	DefaultPort                = 8080
	DefaultHost                = "127.0.0.1"
	DefaultLogLevel            = "info"
	DefaultMaxFileSize         = 100 * 1024 * 1024 // 100MB
	DefaultDataDirName         = ".pid-data"
	DefaultFirestoreCollection = "pid_extractor"
	DefaultGCPRegion           = "us-central1"
	DefaultWorkers             = 4

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "MCP_PID"
)

// Config holds all configuration for the P&ID extractor MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	PDFDirectory   string
	SplitOutputDir string // per-datasheet PDFs are cut here when set
	MaxFileSize    int64  // Maximum PDF file size in bytes
	Workers        int

	// Persistence
	Backend             string
	DataDirectory       string
	GCSBucket           string
	FirestoreCollection string

	// Vertex AI; chat and field extraction are disabled without a project
	GCPProject string
	GCPRegion  string
	LLMModel   string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:                ModeStdio,
		Host:                DefaultHost,
		Port:                DefaultPort,
		PDFDirectory:        currentDir,
		MaxFileSize:         DefaultMaxFileSize,
		Workers:             DefaultWorkers,
		Backend:             BackendFile,
		DataDirectory:       filepath.Join(currentDir, DefaultDataDirName),
		FirestoreCollection: DefaultFirestoreCollection,
		GCPRegion:           DefaultGCPRegion,
		Version:             "1.0.0",
		ServerName:          "mcp-pid-extractor",
		LogLevel:            DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flag names; environment variables are MCP_PID_ plus the upper-cased
// name with dashes turned into underscores
var flagNames = []string{
	"mode", "host", "port", "dir", "data-dir", "split-output-dir", "backend",
	"gcs-bucket", "firestore-collection", "gcp-project", "gcp-region",
	"llm-model", "workers", "log-level", "max-file-size",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("data-dir", "")
	viper.SetDefault("split-output-dir", cfg.SplitOutputDir)
	viper.SetDefault("backend", cfg.Backend)
	viper.SetDefault("gcs-bucket", cfg.GCSBucket)
	viper.SetDefault("firestore-collection", cfg.FirestoreCollection)
	viper.SetDefault("gcp-project", cfg.GCPProject)
	viper.SetDefault("gcp-region", cfg.GCPRegion)
	viper.SetDefault("llm-model", cfg.LLMModel)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	pflag.String("data-dir", "", "Directory for the file backend (default <dir>/"+DefaultDataDirName+")")
	pflag.String("split-output-dir", cfg.SplitOutputDir, "Write each split datasheet as its own PDF here")
	pflag.String("backend", cfg.Backend, "Storage backend: file, gcs or firestore")
	pflag.String("gcs-bucket", cfg.GCSBucket, "GCS bucket (gcs backend)")
	pflag.String("firestore-collection", cfg.FirestoreCollection, "Firestore collection (firestore backend)")
	pflag.String("gcp-project", cfg.GCPProject, "Google Cloud project for Firestore and Vertex AI")
	pflag.String("gcp-region", cfg.GCPRegion, "Vertex AI region")
	pflag.String("llm-model", cfg.LLMModel, "Vertex AI model name")
	pflag.Int("workers", cfg.Workers, "Files analyzed concurrently in directory runs")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP P&ID Extractor - field, tag and datasheet extraction for engineering PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pids                              # stdio mode, file backend\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --backend=gcs --gcs-bucket=pid-vocab             # shared vocabulary in GCS\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --gcp-project=my-proj --llm-model=gemini-1.5-pro # enable chat tools\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		for _, name := range flagNames {
			fmt.Fprintf(os.Stderr, "  %s\n", EnvName(name))
		}
	}
}

// EnvName returns the environment variable read for a flag
func EnvName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.DataDirectory = viper.GetString("data-dir")
	cfg.SplitOutputDir = viper.GetString("split-output-dir")
	cfg.Backend = viper.GetString("backend")
	cfg.GCSBucket = viper.GetString("gcs-bucket")
	cfg.FirestoreCollection = viper.GetString("firestore-collection")
	cfg.GCPProject = viper.GetString("gcp-project")
	cfg.GCPRegion = viper.GetString("gcp-region")
	cfg.LLMModel = viper.GetString("llm-model")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
}

// expandPaths makes directories absolute and defaults the data directory
// to a folder inside the PDF directory
func (c *Config) expandPaths() {
	if c.PDFDirectory != "" {
		if abs, err := filepath.Abs(c.PDFDirectory); err == nil {
			c.PDFDirectory = abs
		}
	}
	if c.DataDirectory == "" && c.PDFDirectory != "" {
		c.DataDirectory = filepath.Join(c.PDFDirectory, DefaultDataDirName)
	}
	for _, p := range []*string{&c.DataDirectory, &c.SplitOutputDir} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDir(c.PDFDirectory, "PDF"); err != nil {
		return err
	}

	switch c.Backend {
	case BackendFile:
		if c.DataDirectory == "" {
			return errors.New("data directory cannot be empty for the file backend")
		}
		if err := ensureDir(c.DataDirectory, "data"); err != nil {
			return err
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			return errors.New("gcs backend requires a bucket")
		}
	case BackendFirestore:
		if c.GCPProject == "" {
			return errors.New("firestore backend requires a GCP project")
		}
		if c.FirestoreCollection == "" {
			return errors.New("firestore backend requires a collection")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be one of: file, gcs, firestore)", c.Backend)
	}

	if c.SplitOutputDir != "" {
		if err := ensureDir(c.SplitOutputDir, "split output"); err != nil {
			return err
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ensureDir creates dir when it does not exist yet
func ensureDir(dir, what string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", what, dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", what, dir, err)
	}
	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel onto a slog level, info when unknown
func (c *Config) SlogLevel() slog.Level {
	if level, ok := logLevels[c.LogLevel]; ok {
		return level
	}
	return slog.LevelInfo
}

// LLMEnabled reports whether Vertex AI can be reached
func (c *Config) LLMEnabled() bool {
	return c.GCPProject != "" && c.GCPRegion != ""
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Backend: %s, DataDirectory: %s, LogLevel: %s, MaxFileSize: %d, Workers: %d, LLM: %t}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Backend, c.DataDirectory, c.LogLevel, c.MaxFileSize, c.Workers, c.LLMEnabled())
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
