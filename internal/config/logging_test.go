package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"TRACE", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"  warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_JSONRendersTrace(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "trace", "json")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Log(t.Context(), LevelTrace, "wire", "bytes", 12)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %v: %q", err, buf.String())
	}
	if rec["level"] != "TRACE" {
		t.Errorf("level = %v, want TRACE", rec["level"])
	}
	if rec["msg"] != "wire" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestNewLogger_TextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud", "k", "v")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info record leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "k=v") {
		t.Errorf("warn record missing: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colors written to a non-terminal: %q", out)
	}
}

func TestNewLogger_Errors(t *testing.T) {
	if _, err := NewLogger(&bytes.Buffer{}, "loud", ""); err == nil {
		t.Error("expected level error")
	}
	if _, err := NewLogger(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected format error")
	}
}
