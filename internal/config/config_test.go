package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}
	if cfg.ServerName != "mcp-pid-extractor" {
		t.Errorf("Expected default server name to be 'mcp-pid-extractor', got '%s'", cfg.ServerName)
	}
	if cfg.Backend != BackendFile {
		t.Errorf("Expected default backend to be 'file', got '%s'", cfg.Backend)
	}
	if cfg.FirestoreCollection != DefaultFirestoreCollection {
		t.Errorf("Expected default collection %s, got '%s'", DefaultFirestoreCollection, cfg.FirestoreCollection)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	currentDir, _ := os.Getwd()
	if cfg.PDFDirectory != currentDir {
		t.Errorf("Expected default PDF directory to be '%s', got '%s'", currentDir, cfg.PDFDirectory)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.PDFDirectory = dir
	cfg.DataDirectory = filepath.Join(dir, DefaultDataDirName)
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid stdio", mutate: func(c *Config) {}},
		{name: "valid server", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "stdio ignores port", mutate: func(c *Config) { c.Port = 0 }},
		{name: "server bad port", mutate: func(c *Config) { c.Mode = ModeServer; c.Port = 0 }, wantErr: true},
		{name: "empty pdf dir", mutate: func(c *Config) { c.PDFDirectory = "" }, wantErr: true},
		{name: "file backend without data dir", mutate: func(c *Config) { c.DataDirectory = "" }, wantErr: true},
		{name: "gcs with bucket", mutate: func(c *Config) { c.Backend = BackendGCS; c.GCSBucket = "b" }},
		{name: "firestore with project", mutate: func(c *Config) { c.Backend = BackendFirestore; c.GCPProject = "p" }},
		{name: "firestore without collection", mutate: func(c *Config) {
			c.Backend = BackendFirestore
			c.GCPProject = "p"
			c.FirestoreCollection = ""
		}, wantErr: true},
		{name: "zero max size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	cfg := validConfig(t)
	cfg.PDFDirectory = filepath.Join(cfg.PDFDirectory, "nested", "pids")
	cfg.SplitOutputDir = filepath.Join(cfg.PDFDirectory, "sheets")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	for _, dir := range []string{cfg.PDFDirectory, cfg.DataDirectory, cfg.SplitOutputDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist: %v", dir, err)
		}
	}
}

func TestConfigSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for level, want := range tests {
		cfg := &Config{LogLevel: level}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%s) = %v, want %v", level, got, want)
		}
	}
}

func TestConfigModes(t *testing.T) {
	cfg := &Config{Mode: ModeServer, Host: "localhost", Port: 8081}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Error("expected server mode")
	}
	if cfg.Address() != "localhost:8081" {
		t.Errorf("Address() = %s", cfg.Address())
	}
	cfg.Mode = ModeStdio
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Error("expected stdio mode")
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{Mode: ModeStdio, Backend: BackendGCS, GCPProject: "p", GCPRegion: "r"}
	s := cfg.String()
	for _, want := range []string{"Mode: stdio", "Backend: gcs", "LLM: true"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %s, missing %q", s, want)
		}
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("split-output-dir"); got != "MCP_PID_SPLIT_OUTPUT_DIR" {
		t.Errorf("EnvName() = %s", got)
	}
}
