package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
)

// ErrNoConfig is returned by LoadFromEnv when no config file exists
var ErrNoConfig = errors.New("no config file found, set MEXPR_CONFIG or create configs/config.toml")

// Config holds the complete application configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	Parser  ParserConfig  `toml:"parser"`
	REPL    REPLConfig    `toml:"repl"`
	History HistoryConfig `toml:"history"`
	Server  ServerConfig  `toml:"server"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name"`
	DataDir   string `toml:"data_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// ParserConfig holds parser limits and the grammar selection
type ParserConfig struct {
	MaxDepth         int    `toml:"max_depth"`
	MaxInputLength   int    `toml:"max_input_length"`
	GrammarFile      string `toml:"grammar_file"`
	RequireFullInput *bool  `toml:"require_full_input"`
}

// REPLConfig holds interactive session settings
type REPLConfig struct {
	Mode    string `toml:"mode"`   // parse or eval
	Output  string `toml:"output"` // canonical, tree, json or yaml
	Prompt  string `toml:"prompt"`
	History *bool  `toml:"history"`
}

// HistoryConfig holds the SQLite history store settings
type HistoryConfig struct {
	Enabled   *bool    `toml:"enabled"`
	Path      string   `toml:"path"`
	Retention Duration `toml:"retention"`
}

// ServerConfig holds the websocket expression service settings
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	MaxSessions  int      `toml:"max_sessions"`
	GRPCPort     int      `toml:"grpc_port"` // 0 disables the gRPC listener

	// Shared syntax tree cache; a negative size disables it
	ParseCacheSize int      `toml:"parse_cache_size"`
	ParseCacheTTL  Duration `toml:"parse_cache_ttl"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	// Apply defaults
	cfg.applyDefaults()

	// Expand environment variables in paths
	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the MEXPR_CONFIG environment variable
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("MEXPR_CONFIG")
	if path == "" {
		// Try default locations
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/mexpr/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, ErrNoConfig
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "mExpr"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "warn"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}

	// Parser
	if c.Parser.MaxDepth == 0 {
		c.Parser.MaxDepth = 256
	}
	if c.Parser.MaxInputLength == 0 {
		c.Parser.MaxInputLength = 4096
	}
	if c.Parser.RequireFullInput == nil {
		c.Parser.RequireFullInput = boolPtr(true)
	}

	// REPL
	if c.REPL.Mode == "" {
		c.REPL.Mode = "parse"
	}
	if c.REPL.Output == "" {
		c.REPL.Output = "canonical"
	}
	if c.REPL.Prompt == "" {
		c.REPL.Prompt = "> "
	}
	if c.REPL.History == nil {
		c.REPL.History = boolPtr(true)
	}

	// History
	if c.History.Enabled == nil {
		c.History.Enabled = boolPtr(true)
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.General.DataDir, "history.db")
	}
	if c.History.Retention.Duration == 0 {
		c.History.Retention.Duration = 30 * 24 * time.Hour
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9480
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 30 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 30 * time.Second
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = 64
	}
	if c.Server.ParseCacheSize == 0 {
		c.Server.ParseCacheSize = 1024
	}
	if c.Server.ParseCacheTTL.Duration == 0 {
		c.Server.ParseCacheTTL.Duration = 10 * time.Minute
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Parser.GrammarFile = os.ExpandEnv(c.Parser.GrammarFile)
	c.History.Path = os.ExpandEnv(strings.ReplaceAll(c.History.Path, "${data_dir}", c.General.DataDir))
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.General.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		problems = append(problems, fmt.Sprintf("general.log_level %q is not a level", c.General.LogLevel))
	}
	switch strings.ToLower(c.General.LogFormat) {
	case "json", "text", "console", "logfmt":
	default:
		problems = append(problems, fmt.Sprintf("general.log_format %q is not a format", c.General.LogFormat))
	}
	if c.Parser.MaxDepth < 0 {
		problems = append(problems, "parser.max_depth must not be negative")
	}
	if c.Parser.MaxInputLength < 0 {
		problems = append(problems, "parser.max_input_length must not be negative")
	}
	switch c.REPL.Mode {
	case "parse", "eval":
	default:
		problems = append(problems, fmt.Sprintf("repl.mode %q must be parse or eval", c.REPL.Mode))
	}
	switch c.REPL.Output {
	case "canonical", "tree", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("repl.output %q must be canonical, tree, json or yaml", c.REPL.Output))
	}
	if c.History.Retention.Duration < 0 {
		problems = append(problems, "history.retention must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.grpc_port %d out of range", c.Server.GRPCPort))
	} else if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		problems = append(problems, "server.grpc_port must differ from server.port")
	}
	if c.Server.MaxSessions < 0 {
		problems = append(problems, "server.max_sessions must not be negative")
	}
	if c.Server.ParseCacheTTL.Duration < 0 {
		problems = append(problems, "server.parse_cache_ttl must not be negative")
	}

	if len(problems) > 0 {
		return mdwerror.New("invalid configuration: " + strings.Join(problems, "; ")).
			WithCode(mdwerror.CodeConfigError).
			WithDetail("problems", problems)
	}
	return nil
}

// ServerAddress returns the listen address of the expression service
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HistoryEnabled reports whether REPL lines are recorded
func (c *Config) HistoryEnabled() bool {
	return *c.History.Enabled && *c.REPL.History
}

func boolPtr(b bool) *bool {
	return &b
}
