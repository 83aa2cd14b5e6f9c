package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize text logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("json")); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("collector").Info(context.Background(), "chunk validated",
		String("cycle", "c1"),
		Int("entities", 42),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "chunk validated" {
		t.Errorf("unexpected msg: %v", rec["msg"])
	}
	if rec["component"] != "collector" {
		t.Errorf("expected component=collector, got %v", rec["component"])
	}
	if rec["error"] != "boom" {
		t.Errorf("expected error text, got %v", rec["error"])
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("expected caller source in logger_test.go, got %q", src)
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Info(ctx, "hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	Get().Warn(ctx, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be emitted, got %q", buf.String())
	}

	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q rejected: %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRetryableAdapter(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	_ = SetLevelString("debug")
	defer func() { _ = SetLevelString("info") }()

	r := Retryable(Get())
	r.Debug("performing request", "method", "GET", "url", "http://x")
	r.Warn("odd pair", "dangling")

	out := buf.String()
	if !strings.Contains(out, "method=GET") {
		t.Errorf("expected key/value pair in output, got %q", out)
	}
	if !strings.Contains(out, "dangling") {
		t.Errorf("expected dangling key in output, got %q", out)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	ctx := context.Background()
	l.Info(ctx, "nothing")
	l.Named("x").Error(ctx, "still nothing")
	l.Fatal(ctx, "does not exit")
}
