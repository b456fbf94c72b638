package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// VideoDescriptor is the captured description of a stream to download.
// It is immutable once a task starts.
type VideoDescriptor struct {
	Title       string   `json:"Title"`
	ManifestURL string   `json:"MPD"`
	PSSH        string   `json:"PSSH,omitempty"`
	LicenseURL  string   `json:"LicenseURL,omitempty"`
	Keys        []string `json:"Keys,omitempty"` // pre-supplied "kid:key" pairs
	CapturedAt  string   `json:"捕获时间,omitempty"`
}

// IsProtected reports whether the descriptor carries protection data
func (d VideoDescriptor) IsProtected() bool {
	return d.PSSH != "" && d.LicenseURL != ""
}

// Validate checks the fields the downloader cannot work without
func (d VideoDescriptor) Validate() error {
	if strings.TrimSpace(d.ManifestURL) == "" {
		return errors.New("manifest URL is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("title is required")
	}
	if (d.PSSH == "") != (d.LicenseURL == "") {
		return errors.New("protection data and license URL must be given together")
	}
	return nil
}

// PresetKeys parses the pre-supplied key list
func (d VideoDescriptor) PresetKeys() ([]ContentKey, error) {
	keys := make([]ContentKey, 0, len(d.Keys))
	for _, raw := range d.Keys {
		key, err := ParseContentKey(raw)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ContentKey is a key id / key value pair able to decrypt one track
type ContentKey struct {
	KeyID string `json:"kid"`
	Key   string `json:"key"`
}

// ParseContentKey parses a "kid:key" pair
func ParseContentKey(s string) (ContentKey, error) {
	kid, key, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || kid == "" || key == "" {
		return ContentKey{}, fmt.Errorf("invalid content key %q", s)
	}
	return ContentKey{KeyID: kid, Key: key}, nil
}

// String returns the key in the "kid:key" form expected by the downloader
func (k ContentKey) String() string {
	return k.KeyID + ":" + k.Key
}

// Masked returns the key with its value truncated, safe for logs
func (k ContentKey) Masked() string {
	value := k.Key
	if len(value) > 8 {
		value = value[:8]
	}
	return k.KeyID + ":" + value + "..."
}

// DownloadTask represents the single active download task
type DownloadTask struct {
	ID           string
	Descriptor   VideoDescriptor
	State        TaskState
	Progress     int    // 0 to 100
	TransferRate string // last observed speed as reported by the downloader
	ErrorMessage string // set only when State is Failed
	OutputDir    string // caller-chosen destination directory
	OutputPath   string // final artifact path once known
	WorkDir      string // private staging directory of this task
	StartedAt    time.Time
	FinishedAt   time.Time
	Logs         *LogBuffer
}

// NewDownloadTask creates a task in its initial state
func NewDownloadTask(id string, desc VideoDescriptor, outputDir string, logCap int, now time.Time) *DownloadTask {
	return &DownloadTask{
		ID:         id,
		Descriptor: desc,
		State:      TaskStateIdle,
		OutputDir:  outputDir,
		StartedAt:  now,
		Logs:       NewLogBuffer(logCap),
	}
}

// Snapshot returns a copy of the task that is safe to hand to observers
func (dt *DownloadTask) Snapshot() TaskSnapshot {
	s := TaskSnapshot{
		ID:           dt.ID,
		Title:        dt.Descriptor.Title,
		ManifestURL:  dt.Descriptor.ManifestURL,
		State:        dt.State,
		Progress:     dt.Progress,
		TransferRate: dt.TransferRate,
		ErrorMessage: dt.ErrorMessage,
		OutputPath:   dt.OutputPath,
		StartedAt:    dt.StartedAt,
		FinishedAt:   dt.FinishedAt,
	}
	if dt.Logs != nil {
		s.Logs = dt.Logs.Entries()
	}
	return s
}

// TaskSnapshot is an immutable view of a DownloadTask
type TaskSnapshot struct {
	ID           string
	Title        string
	ManifestURL  string
	State        TaskState
	Progress     int
	TransferRate string
	ErrorMessage string
	OutputPath   string
	StartedAt    time.Time
	FinishedAt   time.Time
	Logs         []LogEntry
}

// GetDisplayTitle returns title, output file name or manifest URL in order of preference
func (s TaskSnapshot) GetDisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}

	if s.OutputPath != "" {
		// support both / and \ separators
		parts := strings.FieldsFunc(s.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return s.ManifestURL
}

// GetElapsedString returns the task duration formatted as hh:mm:ss or mm:ss
func (s TaskSnapshot) GetElapsedString(now time.Time) string {
	if s.StartedAt.IsZero() {
		return "—"
	}
	end := s.FinishedAt
	if end.IsZero() {
		end = now
	}
	total := int(end.Sub(s.StartedAt).Seconds())
	if total < 0 {
		total = 0
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
