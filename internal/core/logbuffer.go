package core

import (
	"io"
	"strings"
	"sync"
	"time"
)

// LogEntry is a single log line captured from the engine's logger output.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level,omitempty"`
	Raw       string    `json:"raw"`
}

// LogRingBuffer captures log output in a fixed-size ring so the API can serve
// recent engine logs without touching disk.
type LogRingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	maxSize int
	pos     int
	full    bool
}

// NewLogRingBuffer creates a ring buffer that holds up to maxSize entries.
func NewLogRingBuffer(maxSize int) *LogRingBuffer {
	return &LogRingBuffer{
		entries: make([]LogEntry, maxSize),
		maxSize: maxSize,
	}
}

// Write implements io.Writer so the buffer can be used as a zerolog output.
func (b *LogRingBuffer) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     sniffLevel(line),
		Raw:       line,
	}

	b.mu.Lock()
	b.entries[b.pos] = entry
	b.pos = (b.pos + 1) % b.maxSize
	if b.pos == 0 {
		b.full = true
	}
	b.mu.Unlock()

	return len(p), nil
}

// sniffLevel extracts the zerolog level field from a JSON-formatted line.
// Console-formatted lines yield an empty level, which is fine for display.
func sniffLevel(line string) string {
	for _, lvl := range []string{"debug", "info", "warn", "error", "fatal"} {
		if strings.Contains(line, `"level":"`+lvl+`"`) {
			return lvl
		}
	}
	return ""
}

// Recent returns the most recent n log entries, newest first, matching the
// ordering of the event feed endpoints.
func (b *LogRingBuffer) Recent(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := b.pos
	if b.full {
		total = b.maxSize
	}
	if n > total {
		n = total
	}
	if n <= 0 {
		return []LogEntry{}
	}

	result := make([]LogEntry, n)
	for i := 0; i < n; i++ {
		idx := (b.pos - 1 - i + b.maxSize) % b.maxSize
		result[i] = b.entries[idx]
	}
	return result
}

// MultiWriter returns an io.Writer that writes to both the log buffer and the
// given writer.
func (b *LogRingBuffer) MultiWriter(w io.Writer) io.Writer {
	return io.MultiWriter(w, b)
}
