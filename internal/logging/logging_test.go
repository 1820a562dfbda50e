package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestComponentPrefersContextLogger(t *testing.T) {
	var ctxBuf, baseBuf bytes.Buffer
	ctxLogger := NewJSON(&ctxBuf, slog.LevelInfo)
	base := NewJSON(&baseBuf, slog.LevelInfo)

	ctx := ContextWithLogger(context.Background(), ctxLogger)
	Component(ctx, base, "event_store", "load", "range", "week").Info("done")

	if baseBuf.Len() != 0 {
		t.Fatalf("base logger should not be used when the context carries one")
	}
	var entry map[string]any
	if err := json.Unmarshal(ctxBuf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "event_store" || entry["operation"] != "load" || entry["range"] != "week" {
		t.Fatalf("unexpected attributes %v", entry)
	}
}

func TestComponentFallsBackToBase(t *testing.T) {
	var buf bytes.Buffer
	Component(context.Background(), NewJSON(&buf, slog.LevelInfo), "view_state", "").Info("changed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := entry["operation"]; ok {
		t.Fatalf("empty operation should be omitted: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("https://calendar.example.com/private/abc.ics?token=secret")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if RedactURL("not a url") != "...(redacted)" {
		t.Fatalf("expected opaque redaction for invalid url")
	}
}
