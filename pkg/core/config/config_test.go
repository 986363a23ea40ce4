package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "30s", 30 * time.Second, false},
		{"minutes", "5m", 5 * time.Minute, false},
		{"retention", "720h", 720 * time.Hour, false},
		{"complex", "1h30m", 90 * time.Minute, false},
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && d.Duration != tt.expected {
				t.Errorf("UnmarshalText() = %v, want %v", d.Duration, tt.expected)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration{5 * time.Minute}
	result, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(result) != "5m0s" {
		t.Errorf("MarshalText() = %v, want 5m0s", string(result))
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"General.Name", cfg.General.Name, "mExpr"},
		{"General.LogLevel", cfg.General.LogLevel, "warn"},
		{"General.LogFormat", cfg.General.LogFormat, "text"},
		{"Parser.MaxDepth", cfg.Parser.MaxDepth, 256},
		{"Parser.MaxInputLength", cfg.Parser.MaxInputLength, 4096},
		{"Parser.RequireFullInput", *cfg.Parser.RequireFullInput, true},
		{"REPL.Mode", cfg.REPL.Mode, "parse"},
		{"REPL.Output", cfg.REPL.Output, "canonical"},
		{"REPL.Prompt", cfg.REPL.Prompt, "> "},
		{"History.Enabled", *cfg.History.Enabled, true},
		{"History.Path", cfg.History.Path, filepath.Join("./data", "history.db")},
		{"History.Retention", cfg.History.Retention.Duration, 720 * time.Hour},
		{"Server.Host", cfg.Server.Host, "127.0.0.1"},
		{"Server.Port", cfg.Server.Port, 9480},
		{"Server.ReadTimeout", cfg.Server.ReadTimeout.Duration, 30 * time.Second},
		{"Server.MaxSessions", cfg.Server.MaxSessions, 64},
		{"Server.GRPCPort", cfg.Server.GRPCPort, 0},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestConfig_ServerAddress(t *testing.T) {
	cfg := Default()
	if got := cfg.ServerAddress(); got != "127.0.0.1:9480" {
		t.Errorf("ServerAddress() = %v, want 127.0.0.1:9480", got)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("Load() expected error for non-existent file")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[general]
name = "TestExpr"
data_dir = "/var/lib/mexpr"

[parser]
max_depth = 32
require_full_input = false

[repl]
mode = "eval"
output = "json"

[history]
path = "${data_dir}/test.db"
retention = "24h"

[server]
port = 9999
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.Name != "TestExpr" {
		t.Errorf("General.Name = %v, want TestExpr", cfg.General.Name)
	}
	if cfg.Parser.MaxDepth != 32 {
		t.Errorf("Parser.MaxDepth = %v, want 32", cfg.Parser.MaxDepth)
	}
	if *cfg.Parser.RequireFullInput {
		t.Error("Parser.RequireFullInput = true, want false")
	}
	if cfg.REPL.Mode != "eval" || cfg.REPL.Output != "json" {
		t.Errorf("REPL = %+v, want eval/json", cfg.REPL)
	}
	if cfg.History.Path != "/var/lib/mexpr/test.db" {
		t.Errorf("History.Path = %v, want /var/lib/mexpr/test.db", cfg.History.Path)
	}
	if cfg.History.Retention.Duration != 24*time.Hour {
		t.Errorf("History.Retention = %v, want 24h", cfg.History.Retention.Duration)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %v, want 9999", cfg.Server.Port)
	}

	// Check defaults were applied for missing values
	if cfg.Parser.MaxInputLength != 4096 {
		t.Errorf("Parser.MaxInputLength = %v, want 4096 (default)", cfg.Parser.MaxInputLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[parser]\nmax_dept = 10\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for unknown key")
	}
}

func TestConfig_expandEnvVars(t *testing.T) {
	t.Setenv("MEXPR_TEST_GRAMMAR", "/etc/mexpr/grammar.yaml")

	cfg := &Config{
		Parser: ParserConfig{GrammarFile: "$MEXPR_TEST_GRAMMAR"},
	}
	cfg.applyDefaults()
	cfg.expandEnvVars()

	if cfg.Parser.GrammarFile != "/etc/mexpr/grammar.yaml" {
		t.Errorf("GrammarFile = %v, want /etc/mexpr/grammar.yaml", cfg.Parser.GrammarFile)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad level", func(c *Config) { c.General.LogLevel = "loud" }, true},
		{"bad format", func(c *Config) { c.General.LogFormat = "xml" }, true},
		{"bad mode", func(c *Config) { c.REPL.Mode = "compile" }, true},
		{"bad output", func(c *Config) { c.REPL.Output = "html" }, true},
		{"negative depth", func(c *Config) { c.Parser.MaxDepth = -1 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"grpc port", func(c *Config) { c.Server.GRPCPort = 9481 }, false},
		{"negative grpc port", func(c *Config) { c.Server.GRPCPort = -1 }, true},
		{"grpc port equals port", func(c *Config) { c.Server.GRPCPort = c.Server.Port }, true},
		{"yaml output", func(c *Config) { c.REPL.Output = "yaml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !mdwerror.HasCode(err, mdwerror.CodeConfigError) {
				t.Errorf("Validate() code = %v, want %v", mdwerror.GetCode(err), mdwerror.CodeConfigError)
			}
		})
	}
}

func TestLoadFromEnv_NoConfigFound(t *testing.T) {
	t.Setenv("MEXPR_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	// Change to a temp directory without config files
	originalWd, _ := os.Getwd()
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	defer os.Chdir(originalWd)

	_, err := LoadFromEnv()
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("LoadFromEnv() error = %v, want ErrNoConfig", err)
	}
}

func TestLoadFromEnv_ExplicitPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "mexpr.toml")
	if err := os.WriteFile(configPath, []byte("[server]\nport = 9500\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	t.Setenv("MEXPR_CONFIG", configPath)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Server.Port != 9500 {
		t.Errorf("Server.Port = %v, want 9500", cfg.Server.Port)
	}
}
