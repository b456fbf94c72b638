package model

import "time"

// DefaultLogCapacity is the number of log entries kept per task
const DefaultLogCapacity = 200

// Log levels carried by ingested events
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogEntry is one line of task output shown to the user
type LogEntry struct {
	Level     string
	Message   string
	Source    string // event channel the entry came from
	Timestamp time.Time
}

// LogBuffer keeps the most recent entries; the oldest is evicted first
type LogBuffer struct {
	entries []LogEntry
	start   int
	size    int
}

// NewLogBuffer creates a buffer holding up to capacity entries
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{entries: make([]LogEntry, capacity)}
}

// Append adds an entry, evicting the oldest one when full
func (b *LogBuffer) Append(e LogEntry) {
	capacity := len(b.entries)
	if b.size < capacity {
		b.entries[(b.start+b.size)%capacity] = e
		b.size++
		return
	}
	b.entries[b.start] = e
	b.start = (b.start + 1) % capacity
}

// Len returns the number of stored entries
func (b *LogBuffer) Len() int {
	return b.size
}

// Cap returns the buffer capacity
func (b *LogBuffer) Cap() int {
	return len(b.entries)
}

// Entries returns the stored entries from oldest to newest
func (b *LogBuffer) Entries() []LogEntry {
	out := make([]LogEntry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.start+i)%len(b.entries)]
	}
	return out
}

// Reset drops every entry
func (b *LogBuffer) Reset() {
	b.start = 0
	b.size = 0
}
