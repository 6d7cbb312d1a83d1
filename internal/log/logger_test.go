package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/errors"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{
		Level:       level,
		Format:      format,
		Output:      NewOutput(&buf),
		ServiceName: "wavekeeper",
	})
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "default config", config: DefaultConfig()},
		{name: "development config", config: DevelopmentConfig()},
		{
			name: "custom config json",
			config: Config{
				Level:     LevelDebug,
				Format:    FormatJSON,
				Output:    OutputStderr(),
				AddSource: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.config)
			if logger == nil {
				t.Fatal("expected logger, got nil")
			}
			if logger.config.Level != tt.config.Level {
				t.Errorf("expected level %v, got %v", tt.config.Level, logger.config.Level)
			}
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, FormatJSON)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "warn message" || lines[1]["msg"] != "error message" {
		t.Errorf("unexpected records: %v", lines)
	}
}

func TestJSONFormatOutput(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)

	logger.Info("run finished", "kind", "daily", "status", "success")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d", len(lines))
	}
	rec := lines[0]
	if rec["kind"] != "daily" || rec["status"] != "success" {
		t.Errorf("missing attributes: %v", rec)
	}
	if rec["service"] != "wavekeeper" {
		t.Errorf("missing service attribute: %v", rec)
	}
}

func TestTextFormatOutput(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatText)

	logger.Info("stamina read", "current", 120)

	out := buf.String()
	if !strings.Contains(out, "msg=\"stamina read\"") || !strings.Contains(out, "current=120") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestWithGroup(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)

	logger.WithGroup("forecast").Info("decided", "amount", 60)

	rec := decodeLines(t, buf)[0]
	group, ok := rec["forecast"].(map[string]any)
	if !ok {
		t.Fatalf("expected forecast group, got %v", rec)
	}
	if group["amount"] != float64(60) {
		t.Errorf("amount = %v, want 60", group["amount"])
	}
}

func TestWithError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantCause bool
	}{
		{name: "nil error"},
		{name: "plain error", err: fmt.Errorf("boom")},
		{
			name:     "keeper error",
			err:      errors.NewTimeoutError("Daily Task", time.Minute),
			wantCode: "RUN-002",
		},
		{
			name:      "wrapped keeper error with cause",
			err:       fmt.Errorf("daily: %w", errors.Wrap(errors.ErrCodeSheets, "append", fmt.Errorf("quota"))),
			wantCode:  "TRANSPORT-001",
			wantCause: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(LevelInfo, FormatJSON)
			logger.WithError(tt.err).Info("x")

			rec := decodeLines(t, buf)[0]
			if tt.err == nil {
				if _, ok := rec["error"]; ok {
					t.Errorf("unexpected error attribute: %v", rec)
				}
				return
			}
			if _, ok := rec["error"]; !ok {
				t.Errorf("missing error attribute: %v", rec)
			}
			if tt.wantCode != "" && rec["error_code"] != tt.wantCode {
				t.Errorf("error_code = %v, want %s", rec["error_code"], tt.wantCode)
			}
			if _, ok := rec["cause"]; ok != tt.wantCause {
				t.Errorf("cause presence = %v, want %v", ok, tt.wantCause)
			}
		})
	}
}

func TestLogError(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)
	ctx := context.Background()

	logger.LogError(ctx, "ignored", nil)
	logger.LogError(ctx, "report failed", errors.New(errors.ErrCodeEmail, "mailgun rejected").WithDocs("https://example.com"))
	logger.LogError(ctx, "plain failed", fmt.Errorf("eof"))

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d", len(lines))
	}
	if lines[0]["error_code"] != "TRANSPORT-002" || lines[0]["docs_url"] != "https://example.com" {
		t.Errorf("unexpected keeper record: %v", lines[0])
	}
	if lines[1]["error"] != "eof" {
		t.Errorf("unexpected plain record: %v", lines[1])
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.Enabled(context.Background(), LevelError) {
		t.Error("discard logger should not be enabled")
	}
	l.Error("nothing")
}

func TestContextRoundTrip(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, FormatJSON)
	ctx := NewContext(context.Background(), logger)

	FromContext(ctx).Info("from context")
	FromContext(context.Background()).Info("dropped")

	if n := len(decodeLines(t, buf)); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}
