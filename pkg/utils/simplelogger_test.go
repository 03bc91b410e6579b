package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, "testapp")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	logger.Info("hello", "key", "value")
	logger.Error("boom", "code", 42)

	matches, err := filepath.Glob(filepath.Join(dir, "testapp-*.log"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(matches))
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "INFO: Logger initialized") {
		t.Errorf("log missing init line:\n%s", content)
	}
	if !strings.Contains(content, "INFO: hello key=value") {
		t.Errorf("log missing info line:\n%s", content)
	}
	if !strings.Contains(content, "ERROR: boom code=42") {
		t.Errorf("log missing error line:\n%s", content)
	}
}

func TestNewLoggerCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := NewLogger(dir, "testapp")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}

func TestLoggerOddKeyvalsIgnoresLast(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, "testapp")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Warn("partial", "key", "value", "dangling")
	logger.Close()

	matches, _ := filepath.Glob(filepath.Join(dir, "testapp-*.log"))
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "WARN: partial key=value") {
		t.Errorf("log missing warn line:\n%s", content)
	}
	if strings.Contains(content, "dangling") {
		t.Errorf("dangling keyval should be ignored:\n%s", content)
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	logger := NopLogger()

	// Не должно паниковать и не должно ничего создавать
	logger.Info("msg")
	logger.Debug("msg", "k", "v")
	logger.Warn("msg")
	logger.Error("msg")
	logger.Close()
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger

	logger.Info("msg")
	logger.Error("msg", "k", "v")
	logger.Close()
}

func TestLoggerCloseTwice(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), "testapp")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Close()
	logger.Close() // Повторный Close безопасен

	// Запись после Close - no-op
	logger.Info("after close")
}
