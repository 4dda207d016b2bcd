package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags gives every test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// loadWithArgs runs LoadFromFlags with args after the program name
func loadWithArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
	})

	os.Args = append([]string{"mcp-pid-extractor"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadWithArgs(t, "--dir="+dir)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %v, want %v", cfg.Mode, ModeStdio)
	}
	if cfg.Backend != BackendFile {
		t.Errorf("Backend = %v, want %v", cfg.Backend, BackendFile)
	}
	if want := filepath.Join(dir, DefaultDataDirName); cfg.DataDirectory != want {
		t.Errorf("DataDirectory = %v, want %v", cfg.DataDirectory, want)
	}
	if _, err := os.Stat(cfg.DataDirectory); err != nil {
		t.Errorf("data directory was not created: %v", err)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %v, want %v", cfg.Workers, DefaultWorkers)
	}
	if cfg.LLMEnabled() {
		t.Error("LLM should be disabled without a project")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Address() != "0.0.0.0:9090" {
					t.Errorf("Address() = %v, want 0.0.0.0:9090", cfg.Address())
				}
			},
		},
		{
			name: "gcs backend",
			args: []string{"--backend=gcs", "--gcs-bucket=pid-vocab"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Backend != BackendGCS || cfg.GCSBucket != "pid-vocab" {
					t.Errorf("backend = %v/%v, want gcs/pid-vocab", cfg.Backend, cfg.GCSBucket)
				}
			},
		},
		{
			name: "vertex ai",
			args: []string{"--gcp-project=plant-eng", "--llm-model=gemini-1.5-pro"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.LLMEnabled() {
					t.Error("LLM should be enabled")
				}
				if cfg.GCPRegion != DefaultGCPRegion {
					t.Errorf("GCPRegion = %v, want %v", cfg.GCPRegion, DefaultGCPRegion)
				}
			},
		},
		{
			name: "debug logging and workers",
			args: []string{"--log-level=debug", "--workers=8", "--max-file-size=50000000"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.IsDebug() || cfg.Workers != 8 || cfg.MaxFileSize != 50000000 {
					t.Errorf("got %s", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			cfg, err := loadWithArgs(t, args...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	split := filepath.Join(t.TempDir(), "sheets")

	t.Setenv("MCP_PID_MODE", "server")
	t.Setenv("MCP_PID_PORT", "3000")
	t.Setenv("MCP_PID_DIR", dir)
	t.Setenv("MCP_PID_SPLIT_OUTPUT_DIR", split)
	t.Setenv("MCP_PID_LOG_LEVEL", "warn")
	t.Setenv("MCP_PID_GCP_PROJECT", "plant-eng")

	cfg, err := loadWithArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeServer || cfg.Port != 3000 {
		t.Errorf("Mode/Port = %v/%v, want server/3000", cfg.Mode, cfg.Port)
	}
	if cfg.PDFDirectory != dir {
		t.Errorf("PDFDirectory = %v, want %v", cfg.PDFDirectory, dir)
	}
	if cfg.SplitOutputDir != split {
		t.Errorf("SplitOutputDir = %v, want %v", cfg.SplitOutputDir, split)
	}
	if _, err := os.Stat(split); err != nil {
		t.Errorf("split output directory was not created: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.GCPProject != "plant-eng" {
		t.Errorf("GCPProject = %v, want plant-eng", cfg.GCPProject)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("MCP_PID_MODE", "server")
	t.Setenv("MCP_PID_PORT", "3000")

	cfg, err := loadWithArgs(t, "--dir="+t.TempDir(), "--mode=stdio", "--port=8888")
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %v, want stdio (flag should override env)", cfg.Mode)
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %v, want 8888 (flag should override env)", cfg.Port)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"log level", []string{"--log-level=verbose"}, "invalid log level"},
		{"backend", []string{"--backend=s3"}, "invalid backend"},
		{"gcs without bucket", []string{"--backend=gcs"}, "requires a bucket"},
		{"firestore without project", []string{"--backend=firestore"}, "requires a GCP project"},
		{"workers", []string{"--workers=0"}, "workers must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			_, err := loadWithArgs(t, args...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	for _, flag := range []string{"--version", "-version", "-v"} {
		_, err := loadWithArgs(t, flag)
		if err == nil || err.Error() != "version requested" {
			t.Errorf("LoadFromFlags(%s) error = %v, want version requested", flag, err)
		}
	}
}
