package testing

import (
	"fmt"
	"strings"
	"sync"
)

// LogEntry is one message recorded by LogCapture.
type LogEntry struct {
	Level   string // verbose, info or error
	Message string
}

// LogCapture implements moviepipe.Logger by recording every message.
// Safe for concurrent use.
type LogCapture struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogCapture creates an empty LogCapture.
func NewLogCapture() *LogCapture {
	return &LogCapture{}
}

func (c *LogCapture) record(level, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, LogEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (c *LogCapture) Verbose(format string, args ...interface{}) { c.record("verbose", format, args...) }
func (c *LogCapture) Info(format string, args ...interface{})    { c.record("info", format, args...) }
func (c *LogCapture) Error(format string, args ...interface{})   { c.record("error", format, args...) }

// Entries returns a copy of everything recorded so far.
func (c *LogCapture) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry(nil), c.entries...)
}

// Contains reports whether any message at level contains substr.
// An empty level matches every level.
func (c *LogCapture) Contains(level, substr string) bool {
	for _, e := range c.Entries() {
		if (level == "" || e.Level == level) && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
