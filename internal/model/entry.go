package model

import "time"

const (
	// DefaultLevel is assigned to entries ingested without level metadata.
	DefaultLevel = "info"

	// DefaultSource is assigned to entries ingested without source metadata.
	DefaultSource = "unknown"

	// MaxMessageSize is the longest message stored per entry. Longer ingested
	// lines are truncated to MaxMessageSize-3 bytes plus "...".
	MaxMessageSize = 1024

	// TimeLayout is the display format for entry timestamps (local time).
	TimeLayout = "2006-01-02 15:04:05"
)

// LogEntry is a single ingested log record. Entries are immutable once
// created and are stored by value in the ring buffer.
type LogEntry struct {
	Message   string
	Timestamp time.Time
	Level     string
	Source    string
}

// NewEntry stamps a message with the current instant, applying the default
// level and source when the given ones are empty.
func NewEntry(message, level, source string) LogEntry {
	if level == "" {
		level = DefaultLevel
	}
	if source == "" {
		source = DefaultSource
	}
	return LogEntry{
		Message:   message,
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
	}
}

// Display renders the entry the way query results are returned:
// "[YYYY-MM-DD HH:MM:SS] message" in local time.
func (e LogEntry) Display() string {
	return "[" + e.Timestamp.Local().Format(TimeLayout) + "] " + e.Message
}

// TruncateMessage caps a raw ingested line at MaxMessageSize bytes,
// replacing the tail with "..." when it is cut.
func TruncateMessage(line string) string {
	if len(line) <= MaxMessageSize {
		return line
	}
	return line[:MaxMessageSize-3] + "..."
}
