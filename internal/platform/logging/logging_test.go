package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "info", Dir: dir, File: "server.log"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = logger.Close()
	})

	logger.InfoTag("BOOT", "service started on port %d", 8080)
	logger.Warn("low disk space", map[string]interface{}{"free_mb": 12})

	data, err := os.ReadFile(filepath.Join(dir, "server.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[BOOT] service started on port 8080") {
		t.Fatalf("expected tagged formatted message in log, got: %s", content)
	}
	if !strings.Contains(content, "low disk space") || !strings.Contains(content, "free_mb") {
		t.Fatalf("expected structured warn entry in log, got: %s", content)
	}
}

func TestFormatLog(t *testing.T) {
	if got := FormatLog("HTTP", "listening"); got != "[HTTP] listening" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatLog("HTTP", "[PRESIGN] already tagged"); got != "[PRESIGN] already tagged" {
		t.Fatalf("existing tag should pass through, got: %s", got)
	}
	if got := FormatLog("", "plain"); got != "plain" {
		t.Fatalf("empty tag should pass through, got: %s", got)
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "info", Dir: dir, File: "server.log"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = logger.Close()
	})

	logger.Debug("hidden detail")

	data, err := os.ReadFile(filepath.Join(dir, "server.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "hidden detail") {
		t.Fatalf("debug entry should be suppressed at info level")
	}
}
