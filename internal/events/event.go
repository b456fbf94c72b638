package events

import (
	"time"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

// Channel names a stream of notifications
type Channel string

const (
	ChannelDownloadLog  Channel = "download-log"
	ChannelBurnProgress Channel = "subtitle-burn-progress"
	ChannelBurnStatus   Channel = "subtitle-burn-status"
)

// Event is a single notification.
// Progress is nil when the source line carried no percentage.
// An empty TaskID addresses whichever task is current.
type Event struct {
	TaskID    string
	Channel   Channel
	Level     string
	Message   string
	Progress  *float64
	Speed     string
	Timestamp time.Time
}

// IsError reports whether the event has ERROR level
func (e Event) IsError() bool {
	return e.Level == model.LevelError
}

// LogEntry converts the event for the task log buffer
func (e Event) LogEntry() model.LogEntry {
	level := e.Level
	if level == "" {
		level = model.LevelInfo
	}
	return model.LogEntry{
		Level:     level,
		Message:   e.Message,
		Source:    string(e.Channel),
		Timestamp: e.Timestamp,
	}
}

// Float returns a pointer to v, for building events with a progress value
func Float(v float64) *float64 {
	return &v
}
