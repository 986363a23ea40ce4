// File: logger_test.go
// Title: Logger Tests
// Description: Tests for level filtering, derived loggers, formatters and
//              error severity mapping.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-17

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewWithConfig(Config{Level: level, Format: format, Output: buf}), buf
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, FormatText)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown too")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("entries below warn were written: %q", out)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Errorf("expected 2 lines, got %d: %q", got, out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{" info ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"err", LevelError, false},
		{"fatal", LevelFatal, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "text", "console", "logfmt"} {
		f, err := ParseFormat(name)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", name, err)
		}
		if f.String() != name {
			t.Errorf("round trip of %q gave %q", name, f.String())
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSONFormatterOutput(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)
	logger.WithName("parser").WithSession("s-1").Info("parsed", Fields{"depth": 3})

	line := buf.Bytes()
	if len(line) == 0 || line[len(line)-1] != '\n' {
		t.Fatalf("JSON entry is not newline terminated: %q", line)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(line, &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	want := map[string]interface{}{
		"level":      "info",
		"message":    "parsed",
		"logger":     "parser",
		"session_id": "s-1",
		"depth":      float64(3),
	}
	for k, v := range want {
		if data[k] != v {
			t.Errorf("field %s = %v, want %v", k, data[k], v)
		}
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	f := &TextFormatter{DisableTimestamp: true}
	entry := NewEntry(LevelInfo, "msg")
	entry.Fields = Fields{"zeta": 1, "alpha": 2, "mid": 3}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	want := "[INF] msg [alpha=2 mid=3 zeta=1]\n"
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestLogfmtFormatterQuotesStrings(t *testing.T) {
	f := NewLogfmtFormatter()
	entry := NewEntry(LevelWarn, "bad input")
	entry.Fields = Fields{"input": "1 +", "offset": 3}

	out, _ := f.Format(entry)
	s := string(out)
	for _, part := range []string{`message="bad input"`, `input="1 +"`, "offset=3", "level=warn"} {
		if !strings.Contains(s, part) {
			t.Errorf("missing %q in %q", part, s)
		}
	}
}

func TestDerivedLoggersDoNotLeakFields(t *testing.T) {
	base, buf := newBufferLogger(LevelInfo, FormatLogfmt)
	child := base.WithField("component", "repl")

	base.Info("from base")
	if strings.Contains(buf.String(), "component") {
		t.Errorf("parent picked up child field: %q", buf.String())
	}

	buf.Reset()
	child.Info("from child")
	if !strings.Contains(buf.String(), `component="repl"`) {
		t.Errorf("child lost its field: %q", buf.String())
	}
}

func TestLogErrorSeverityMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"syntax error is debug", mdwerror.New("x").WithCode(mdwerror.CodeUnexpectedToken), "debug"},
		{"plain error is warn", errors.New("plain"), "warn"},
		{"database error is error", mdwerror.New("db").WithCode(mdwerror.CodeDatabaseError), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(LevelTrace, FormatJSON)
			logger.LogError("failed", tt.err)

			var data map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if data["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", data["level"], tt.wantLevel)
			}
		})
	}
}

func TestLogErrorNil(t *testing.T) {
	logger, buf := newBufferLogger(LevelTrace, FormatJSON)
	logger.LogError("nothing", nil)
	if buf.Len() != 0 {
		t.Errorf("nil error produced output: %q", buf.String())
	}
}

func TestTimerStop(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)
	timer := logger.StartTimer("parse").WithField("input", "1+2")
	time.Sleep(time.Millisecond)

	if d := timer.Stop(); d <= 0 {
		t.Errorf("elapsed = %v, want > 0", d)
	}
	if timer.IsRunning() {
		t.Error("timer still running after Stop")
	}
	if d := timer.Stop(); d != 0 {
		t.Errorf("second Stop returned %v", d)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if data["message"] != "parse completed" {
		t.Errorf("message = %v", data["message"])
	}
	if _, ok := data["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
}

func TestTimerCancel(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, FormatJSON)
	timer := logger.StartTimer("query")
	timer.Cancel()
	timer.Stop()
	if buf.Len() != 0 {
		t.Errorf("cancelled timer logged: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.IsLevelEnabled(LevelFatal) {
		t.Error("discard logger accepts fatal entries")
	}
}

func TestConcurrentLogging(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.WithField("worker", n).Info("tick")
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("interleaved output: %q", line)
		}
	}
}
