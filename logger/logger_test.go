package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	logger := New(INFO, t.TempDir(), 100)
	defer logger.Close()

	logger.Error("error message")
	logger.Warn("warn message")
	logger.Info("info message")
	logger.Debug("debug message") // below threshold
	logger.Trace("trace message") // below threshold

	buffer := logger.GetBuffer()

	if len(buffer) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(buffer))
	}
	if buffer[0].Level != ERROR || buffer[0].Message != "error message" {
		t.Errorf("first entry should be ERROR, got %v", buffer[0])
	}
	if buffer[1].Level != WARN || buffer[1].Message != "warn message" {
		t.Errorf("second entry should be WARN, got %v", buffer[1])
	}
	if buffer[2].Level != INFO || buffer[2].Message != "info message" {
		t.Errorf("third entry should be INFO, got %v", buffer[2])
	}
}

func TestLoggerContext(t *testing.T) {
	t.Parallel()

	logger := New(INFO, t.TempDir(), 100)
	defer logger.Close()

	logger.Info("test message", "port", "/dev/ttyUSB0", "baud", 9600)

	buffer := logger.GetBuffer()
	if len(buffer) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(buffer))
	}

	entry := buffer[0]
	if entry.Context["port"] != "/dev/ttyUSB0" {
		t.Errorf("expected context port=/dev/ttyUSB0, got %v", entry.Context["port"])
	}
	if entry.Context["baud"] != 9600 {
		t.Errorf("expected context baud=9600, got %v", entry.Context["baud"])
	}
}

func TestLoggerSetLevel(t *testing.T) {
	t.Parallel()

	logger := New(INFO, t.TempDir(), 100)
	defer logger.Close()

	logger.Debug("debug1") // filtered

	logger.SetLevel(DEBUG)
	logger.Debug("debug2")

	buffer := logger.GetBuffer()
	if len(buffer) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(buffer))
	}
	if buffer[0].Message != "debug2" {
		t.Errorf("expected 'debug2', got %s", buffer[0].Message)
	}
}

func TestLoggerCircularBuffer(t *testing.T) {
	t.Parallel()

	logger := New(INFO, t.TempDir(), 5)
	defer logger.Close()

	for i := 0; i < 10; i++ {
		logger.Info("message", "num", i)
	}

	buffer := logger.GetBuffer()
	if len(buffer) != 5 {
		t.Fatalf("expected buffer size 5, got %d", len(buffer))
	}

	if buffer[0].Context["num"] != 5 {
		t.Errorf("expected oldest entry to be num=5, got %v", buffer[0].Context["num"])
	}
	if buffer[4].Context["num"] != 9 {
		t.Errorf("expected newest entry to be num=9, got %v", buffer[4].Context["num"])
	}
}

func TestLoggerFileOutput(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	logger := New(INFO, tmpDir, 100)

	logger.Info("test message", "key", "value")
	logger.Close()

	content, err := os.ReadFile(filepath.Join(tmpDir, logFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	contentStr := string(content)
	if !strings.Contains(contentStr, "[INFO]") {
		t.Errorf("log file should contain [INFO], got: %s", contentStr)
	}
	if !strings.Contains(contentStr, "test message") {
		t.Errorf("log file should contain 'test message', got: %s", contentStr)
	}
	if !strings.Contains(contentStr, "key=value") {
		t.Errorf("log file should contain 'key=value', got: %s", contentStr)
	}
}

func TestLoggerNoDirectory(t *testing.T) {
	t.Parallel()

	logger := New(INFO, "", 10)
	defer logger.Close()

	logger.Info("buffered only")

	if len(logger.GetBuffer()) != 1 {
		t.Errorf("expected 1 buffered entry with file output disabled")
	}
}

func TestLoggerRateLimiting(t *testing.T) {
	t.Parallel()

	logger := New(WARN, t.TempDir(), 100)
	defer logger.Close()

	for i := 0; i < 10; i++ {
		logger.WarnRateLimited("read-loop", time.Second, "read failed", "attempt", i)
	}

	buffer := logger.GetBuffer()
	if len(buffer) != 1 {
		t.Errorf("expected 1 log entry due to rate limiting, got %d", len(buffer))
	}

	time.Sleep(1100 * time.Millisecond)

	logger.WarnRateLimited("read-loop", time.Second, "read failed", "attempt", 10)

	buffer = logger.GetBuffer()
	if len(buffer) != 2 {
		t.Errorf("expected 2 log entries after rate limit expired, got %d", len(buffer))
	}
}

func TestLoggerFilteredBuffer(t *testing.T) {
	t.Parallel()

	logger := New(TRACE, t.TempDir(), 100)
	defer logger.Close()

	logger.Error("error")
	logger.Warn("warn")
	logger.Info("info")
	logger.Debug("debug")
	logger.Trace("trace")

	filtered := logger.GetBufferFiltered(INFO)
	if len(filtered) != 3 {
		t.Errorf("expected 3 entries filtered to INFO, got %d", len(filtered))
	}

	filtered = logger.GetBufferFiltered(WARN)
	if len(filtered) != 2 {
		t.Errorf("expected 2 entries filtered to WARN, got %d", len(filtered))
	}

	filtered = logger.GetBufferFiltered(ERROR)
	if len(filtered) != 1 {
		t.Errorf("expected 1 entry filtered to ERROR, got %d", len(filtered))
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"ERROR", ERROR},
		{"WARN", WARN},
		{"INFO", INFO},
		{"DEBUG", DEBUG},
		{"TRACE", TRACE},
		{"info", INFO},
		{"debug", DEBUG},
		{" warn ", WARN},
		{"invalid", INFO},
	}

	for _, tt := range tests {
		result := LevelFromString(tt.input)
		if result != tt.expected {
			t.Errorf("LevelFromString(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestLevelToString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    LogLevel
		expected string
	}{
		{ERROR, "ERROR"},
		{WARN, "WARN"},
		{INFO, "INFO"},
		{DEBUG, "DEBUG"},
		{TRACE, "TRACE"},
		{LogLevel(99), "INFO"},
	}

	for _, tt := range tests {
		result := LevelToString(tt.input)
		if result != tt.expected {
			t.Errorf("LevelToString(%v) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestLoggerRotation(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	logger := New(INFO, tmpDir, 100)

	logger.Info("first message")
	logger.Info(strings.Repeat("x", 1000))

	logger.ForceRotate()

	logger.Info("second message")
	logger.Close()

	backups, err := filepath.Glob(filepath.Join(tmpDir, "hardware_*.log"))
	if err != nil {
		t.Fatalf("failed to list log files: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected 1 rotated backup, got %d: %v", len(backups), backups)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, logFileName)); err != nil {
		t.Errorf("expected fresh active log file after rotation: %v", err)
	}
}

func TestLoggerConcurrency(t *testing.T) {
	t.Parallel()

	logger := New(INFO, t.TempDir(), 1000)
	defer logger.Close()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			for j := 0; j < 100; j++ {
				logger.Info("concurrent message", "goroutine", id, "iteration", j)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	buffer := logger.GetBuffer()
	if len(buffer) != 1000 {
		t.Errorf("expected 1000 entries in buffer, got %d", len(buffer))
	}
}

func TestFormatLogEntry(t *testing.T) {
	t.Parallel()

	entry := LogEntry{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:     WARN,
		Message:   "port busy",
		Context: map[string]interface{}{
			"port": "COM3",
		},
	}

	formatted := formatLogEntry(entry)

	if !strings.Contains(formatted, "[WARN]") {
		t.Errorf("formatted entry should contain [WARN], got: %s", formatted)
	}
	if !strings.Contains(formatted, "port busy") {
		t.Errorf("formatted entry should contain message, got: %s", formatted)
	}
	if !strings.Contains(formatted, "port=COM3") {
		t.Errorf("formatted entry should contain context, got: %s", formatted)
	}
}
