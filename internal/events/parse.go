package events

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

var (
	// 12:34:56.789 INFO : message
	levelPattern    = regexp.MustCompile(`^(?:\d{2}:\d{2}:\d{2}(?:\.\d+)?\s+)?(DEBUG|INFO|WARN|WARNING|ERROR)\s*:\s*(.*)$`)
	progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	speedPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?\s?[KMG]?B(?:ps|/s))`)
)

// ParseDownloaderLine turns one line of downloader output into a
// download-log event. Lines without a level prefix are INFO.
func ParseDownloaderLine(line string, now time.Time) Event {
	e := Event{
		Channel:   ChannelDownloadLog,
		Level:     model.LevelInfo,
		Message:   strings.TrimSpace(line),
		Timestamp: now,
	}

	if m := levelPattern.FindStringSubmatch(e.Message); m != nil {
		e.Level = normalizeLevel(m[1])
		e.Message = strings.TrimSpace(m[2])
	}

	if m := lastSubmatch(progressPattern, e.Message); m != "" {
		if p, err := strconv.ParseFloat(m, 64); err == nil {
			e.Progress = &p
		}
	}
	if m := lastSubmatch(speedPattern, e.Message); m != "" {
		e.Speed = m
	}
	return e
}

// ParseBurnProgressLine wraps a line of the burner's progress output
func ParseBurnProgressLine(line string, now time.Time) Event {
	return Event{
		Channel:   ChannelBurnProgress,
		Level:     model.LevelDebug,
		Message:   strings.TrimSpace(line),
		Timestamp: now,
	}
}

// BurnStatus builds a subtitle-burn-status event
func BurnStatus(level, message string, now time.Time) Event {
	return Event{
		Channel:   ChannelBurnStatus,
		Level:     level,
		Message:   message,
		Timestamp: now,
	}
}

func normalizeLevel(level string) string {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return model.LevelDebug
	case "WARN", "WARNING":
		return model.LevelWarn
	case "ERROR":
		return model.LevelError
	default:
		return model.LevelInfo
	}
}

func lastSubmatch(re *regexp.Regexp, s string) string {
	all := re.FindAllStringSubmatch(s, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1][1]
}
