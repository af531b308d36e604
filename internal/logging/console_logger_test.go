package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// syncBuffer guards a bytes.Buffer so concurrent writers do not race.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var (
	_ moviepipe.Logger = (*ConsoleLogger)(nil)
	_ moviepipe.Logger = (*NullLogger)(nil)
)

func TestConsoleLogger_Verbose_WhenEnabled(t *testing.T) {
	var buf syncBuffer
	logger := NewConsoleLoggerTo(&buf, true)
	logger.Verbose("test message: %s", "value")

	output := buf.String()
	if !strings.Contains(output, "DEBUG") || !strings.Contains(output, "test message: value") {
		t.Errorf("Expected debug line with message, got %q", output)
	}
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	var buf syncBuffer
	logger := NewConsoleLoggerTo(&buf, false)
	logger.Verbose("test message: %s", "value")

	if output := buf.String(); output != "" {
		t.Errorf("Expected no output, got %q", output)
	}
}

func TestConsoleLogger_InfoAndError(t *testing.T) {
	var buf syncBuffer
	logger := NewConsoleLoggerTo(&buf, false)
	logger.Info("info message: %s", "value")
	logger.Error("error message: %d", 42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "INFO") || !strings.Contains(lines[0], "info message: value") {
		t.Errorf("Unexpected info line %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") || !strings.Contains(lines[1], "error message: 42") {
		t.Errorf("Unexpected error line %q", lines[1])
	}
}

func TestConsoleLogger_ConcurrentSafety(t *testing.T) {
	var buf syncBuffer
	logger := NewConsoleLoggerTo(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Error("error %d", id)
		}(i)
	}
	wg.Wait()

	// 10 goroutines * 3 messages
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 30 {
		t.Errorf("Expected 30 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if !strings.Contains(line, "message") && !strings.Contains(line, "verbose") && !strings.Contains(line, "error") {
			t.Errorf("Line %d appears corrupted: %q", i, line)
		}
	}
}

func TestNullLogger_ConcurrentSafety(t *testing.T) {
	logger := NewNullLogger()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Error("error %d", id)
		}(i)
	}

	// Should complete without panic
	wg.Wait()
}

// BenchmarkConsoleLogger_VerboseDisabled measures the cost of a filtered-out debug line
func BenchmarkConsoleLogger_VerboseDisabled(b *testing.B) {
	logger := NewConsoleLoggerTo(&syncBuffer{}, false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Verbose("benchmark message %d", i)
	}
}

func TestQuietConsoleLogger_OnlyErrors(t *testing.T) {
	var buf syncBuffer
	logger := NewQuietConsoleLogger(&buf)
	logger.Verbose("detail")
	logger.Info("Task load_table succeeded")
	logger.Error("Task load_table failed: %s", "boom")

	output := buf.String()
	if strings.Contains(output, "detail") || strings.Contains(output, "succeeded") {
		t.Errorf("Expected only error lines, got %q", output)
	}
	if !strings.Contains(output, "ERROR") || !strings.Contains(output, "failed: boom") {
		t.Errorf("Expected error line, got %q", output)
	}
}
