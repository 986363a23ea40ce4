package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/internal/server"
	"github.com/msto63/mExpr/pkg/core/health"
)

// resetFlags restores flag variables between runs of the shared rootCmd
func resetFlags() {
	cfgFile, verbose = "", false
	parseFormat = ""
	evalFormat, evalVars, evalShow = "", nil, false
	replTUI, replMode, replFormat, replNoHistory = false, "", "", false
	historySession, historyMode, historyErrors, historyContains = "", "", false, ""
	historyLimit, historySince = 20, 0
	pruneOlderThan, pruneVacuum = 0, false
	grammarFile, grammarFormat = "", "table"
	versionJSON = false
	healthAddr, healthTimeout = "", 5*time.Second
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[general]\ndata_dir = %q\nlog_level = \"error\"\n", dir)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestParseCommand(t *testing.T) {
	config := writeConfig(t)

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"canonical", "", []string{"parse", "1 + 2 * 3"}, "(1 + (2 * 3))\n"},
		{"joined args", "", []string{"parse", "a", "=", "b", "-", "c"}, "(a = (b - c))\n"},
		{"tree", "", []string{"parse", "-f", "tree", "-1"}, "UnaryOp -\n  Literal 1\n"},
		{"stdin lines", "1 - 2 - 3\n\n-x\n", []string{"parse"}, "((1 - 2) - 3)\n(-x)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", config}, tt.args...)
			out, _, err := execute(t, tt.stdin, args...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestParseCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "", "--config", writeConfig(t), "parse", "-f", "json", "x * 2")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if doc["type"] != "BinaryOp" {
		t.Errorf("type = %v, want BinaryOp", doc["type"])
	}
}

func TestParseCommand_Error(t *testing.T) {
	_, errOut, err := execute(t, "", "--config", writeConfig(t), "parse", "(1 + 2")
	if !errors.Is(err, errReported) {
		t.Fatalf("execute() error = %v, want errReported", err)
	}
	if !strings.Contains(errOut, "PARSE_UNBALANCED_PARENS") {
		t.Errorf("stderr = %q, want the error code", errOut)
	}
	if !strings.Contains(errOut, "^") {
		t.Errorf("stderr = %q, want a caret line", errOut)
	}
}

func TestEvalCommand(t *testing.T) {
	config := writeConfig(t)

	out, _, err := execute(t, "", "--config", config, "eval", "r = 2", "3 * r * r", "7 / 2")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if out != "2\n12\n3.5\n" {
		t.Errorf("output = %q", out)
	}

	out, _, err = execute(t, "", "--config", config, "eval", "--set", "x=4", "--set", "y = x + 1", "--vars", "x * y")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "20\n") {
		t.Errorf("output = %q, want 20 first", out)
	}
	for _, line := range []string{"x", "y"} {
		if !strings.Contains(out, line) {
			t.Errorf("--vars output misses %s: %q", line, out)
		}
	}
}

func TestEvalCommand_Errors(t *testing.T) {
	config := writeConfig(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"division by zero", []string{"eval", "1 / 0"}, "EVAL_DIVISION_BY_ZERO"},
		{"undefined variable", []string{"eval", "a + 1"}, "EVAL_UNDEFINED_VARIABLE"},
		{"invalid assignment", []string{"eval", "1 = 2"}, "EVAL_INVALID_ASSIGNMENT"},
		{"bad --set", []string{"eval", "--set", "x=(", "x"}, "PARSE_UNEXPECTED_END_OF_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", config}, tt.args...)
			_, errOut, err := execute(t, "", args...)
			if !errors.Is(err, errReported) {
				t.Fatalf("execute() error = %v, want errReported", err)
			}
			if !strings.Contains(errOut, tt.code) {
				t.Errorf("stderr = %q, want %s", errOut, tt.code)
			}
		})
	}
}

func TestREPLAndHistory(t *testing.T) {
	config := writeConfig(t)

	out, _, err := execute(t, "1 + 2\n:mode eval\nx = 5\n1 +\n:quit\n", "--config", config, "repl")
	if err != nil {
		t.Fatalf("repl error = %v", err)
	}
	for _, want := range []string{"mExpr REPL", "(1 + 2)", "5", "PARSE_UNEXPECTED_END_OF_INPUT", "bye"} {
		if !strings.Contains(out, want) {
			t.Errorf("repl output misses %q:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "", "--config", config, "history", "list")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if !strings.Contains(out, "x = 5") || !strings.Contains(out, "Total: 3 entries") {
		t.Errorf("history list output:\n%s", out)
	}

	out, _, err = execute(t, "", "--config", config, "history", "list", "--errors")
	if err != nil {
		t.Fatalf("history list --errors error = %v", err)
	}
	if !strings.Contains(out, "Total: 1 entries") {
		t.Errorf("history list --errors output:\n%s", out)
	}

	out, _, err = execute(t, "", "--config", config, "history", "stats")
	if err != nil {
		t.Fatalf("history stats error = %v", err)
	}
	if !strings.Contains(out, "Entries:  3") || !strings.Contains(out, "Sessions: 1") {
		t.Errorf("history stats output:\n%s", out)
	}

	out, _, err = execute(t, "", "--config", config, "history", "prune", "--older-than", "1h")
	if err != nil {
		t.Fatalf("history prune error = %v", err)
	}
	if !strings.Contains(out, "Removed 0 entries") {
		t.Errorf("history prune output: %q", out)
	}
}

func TestREPL_NoHistory(t *testing.T) {
	config := writeConfig(t)

	if _, _, err := execute(t, "1\n", "--config", config, "repl", "--no-history"); err != nil {
		t.Fatalf("repl error = %v", err)
	}

	out, _, err := execute(t, "", "--config", config, "history", "list")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if !strings.Contains(out, "No history entries.") {
		t.Errorf("history list output:\n%s", out)
	}
}

func TestGrammarCommands(t *testing.T) {
	config := writeConfig(t)

	out, _, err := execute(t, "", "--config", config, "grammar", "show")
	if err != nil {
		t.Fatalf("grammar show error = %v", err)
	}
	for _, want := range []string{"PLUS", "binary", "group", "right"} {
		if !strings.Contains(out, want) {
			t.Errorf("grammar show misses %q:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "", "--config", config, "grammar", "show", "--format", "yaml")
	if err != nil {
		t.Fatalf("grammar show --format yaml error = %v", err)
	}
	if !strings.Contains(out, "rules:") {
		t.Errorf("yaml output:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "exported.yaml")
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		t.Fatalf("Failed to write grammar: %v", err)
	}
	out, _, err = execute(t, "", "--config", config, "grammar", "check", path)
	if err != nil {
		t.Fatalf("grammar check error = %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("grammar check output: %q", out)
	}

	out, _, err = execute(t, "", "--config", config, "grammar", "show", "--format", "json")
	if err != nil {
		t.Fatalf("grammar show --format json error = %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Errorf("json output is invalid: %v", err)
	}
}

func TestGrammarCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	content := "name: broken\nrules:\n  - token: \"+\"\n    prefix:\n      role: unary\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write grammar: %v", err)
	}

	_, _, err := execute(t, "", "--config", writeConfig(t), "grammar", "check", path)
	if err == nil {
		t.Fatal("grammar check accepted a unary rule without precedence")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version", "--json")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version output is not JSON: %v", err)
	}
	if info["version"] == "" || info["go_version"] == "" {
		t.Errorf("version info = %v", info)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, _, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "missing.toml"), "parse", "1")
	if err == nil {
		t.Error("missing config file was accepted")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[repl]\nmode = \"compile\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	_, _, err = execute(t, "", "--config", path, "parse", "1")
	if err == nil || !strings.Contains(err.Error(), "repl.mode") {
		t.Errorf("execute() error = %v, want a repl.mode problem", err)
	}
}

func TestShippedGrammars(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "configs", "grammars")

	for _, name := range []string{"calculator.toml", "flat.yaml"} {
		t.Run(name, func(t *testing.T) {
			out, _, err := execute(t, "", "--config", writeConfig(t), "grammar", "check", filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("grammar check error = %v", err)
			}
			if !strings.Contains(out, "is valid") {
				t.Errorf("grammar check output: %q", out)
			}
		})
	}
}

func TestParseCommand_GrammarFile(t *testing.T) {
	dir := t.TempDir()
	grammar, err := filepath.Abs(filepath.Join("..", "..", "..", "configs", "grammars", "flat.yaml"))
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	config := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[general]\ndata_dir = %q\nlog_level = \"error\"\n\n[parser]\ngrammar_file = %q\n", dir, grammar)
	if err := os.WriteFile(config, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	out, _, err := execute(t, "", "--config", config, "parse", "1 + 2 * 3")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if out != "((1 + 2) * 3)\n" {
		t.Errorf("output = %q, want ((1 + 2) * 3)", out)
	}

	_, errOut, err := execute(t, "", "--config", config, "parse", "x = 1")
	if !errors.Is(err, errReported) || !strings.Contains(errOut, "PARSE_TRAILING_TOKENS") {
		t.Errorf("assignment under the flat grammar: err = %v, stderr = %q", err, errOut)
	}
}

func TestHealthCommand(t *testing.T) {
	srv, err := server.New(server.DefaultConfig(), server.Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	httpListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	grpcListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListeners(ctx, httpListener, grpcListener) }()
	defer func() {
		cancel()
		<-done
	}()

	addr := grpcListener.Addr().String()
	out, _, err := execute(t, "", "--config", writeConfig(t), "health", "--addr", addr)
	if err != nil {
		t.Fatalf("health error = %v", err)
	}
	for _, want := range []string{"mexpr", "parser", "sessions", "SERVING"} {
		if !strings.Contains(out, want) {
			t.Errorf("health output missing %q:\n%s", want, out)
		}
	}

	srv.HealthRegistry().RegisterFunc("history", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusUnhealthy, Message: "database is locked"}
	})
	out, _, err = execute(t, "", "--config", writeConfig(t), "health", "--addr", addr)
	if err == nil || !strings.Contains(out, "NOT_SERVING") {
		t.Errorf("health with failing check: err = %v, output:\n%s", err, out)
	}
}

func TestHealthCommand_NoAddress(t *testing.T) {
	_, _, err := execute(t, "", "--config", writeConfig(t), "health")
	if err == nil || !strings.Contains(err.Error(), "grpc_port") {
		t.Errorf("health error = %v, want a missing address error", err)
	}
}
