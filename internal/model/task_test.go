package model

import (
	"fmt"
	"testing"
	"time"
)

func TestTaskSnapshot_GetDisplayTitle(t *testing.T) {
	tests := []struct {
		name     string
		snapshot TaskSnapshot
		expected string
	}{
		{
			name:     "title wins",
			snapshot: TaskSnapshot{Title: "Show S01E01", OutputPath: "/out/other.mp4", ManifestURL: "https://x/mpd"},
			expected: "Show S01E01",
		},
		{
			name:     "file name without extension",
			snapshot: TaskSnapshot{OutputPath: "/out/Show S01E01.mp4", ManifestURL: "https://x/mpd"},
			expected: "Show S01E01",
		},
		{
			name:     "windows separators",
			snapshot: TaskSnapshot{OutputPath: `C:\out\clip.mp4`},
			expected: "clip",
		},
		{
			name:     "manifest fallback",
			snapshot: TaskSnapshot{ManifestURL: "https://x/mpd"},
			expected: "https://x/mpd",
		},
	}

	for _, test := range tests {
		if got := test.snapshot.GetDisplayTitle(); got != test.expected {
			t.Errorf("%s: expected '%s', got '%s'", test.name, test.expected, got)
		}
	}
}

func TestTaskSnapshot_GetElapsedString(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		snapshot TaskSnapshot
		now      time.Time
		expected string
	}{
		{TaskSnapshot{}, start, "—"},
		{TaskSnapshot{StartedAt: start}, start.Add(65 * time.Second), "01:05"},
		{TaskSnapshot{StartedAt: start, FinishedAt: start.Add(3725 * time.Second)}, start.Add(time.Hour * 5), "01:02:05"},
	}

	for _, test := range tests {
		if got := test.snapshot.GetElapsedString(test.now); got != test.expected {
			t.Errorf("expected '%s', got '%s'", test.expected, got)
		}
	}
}

func TestVideoDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    VideoDescriptor
		wantErr bool
	}{
		{"unprotected", VideoDescriptor{Title: "a", ManifestURL: "https://x/mpd"}, false},
		{"protected", VideoDescriptor{Title: "a", ManifestURL: "https://x/mpd", PSSH: "AAAA", LicenseURL: "https://lic"}, false},
		{"missing manifest", VideoDescriptor{Title: "a"}, true},
		{"missing title", VideoDescriptor{ManifestURL: "https://x/mpd"}, true},
		{"pssh without license", VideoDescriptor{Title: "a", ManifestURL: "https://x/mpd", PSSH: "AAAA"}, true},
	}

	for _, test := range tests {
		err := test.desc.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error=%v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestContentKey(t *testing.T) {
	key, err := ParseContentKey("ab12:cd34ef0123456789")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if key.String() != "ab12:cd34ef0123456789" {
		t.Errorf("Unexpected key string %s", key.String())
	}
	if key.Masked() != "ab12:cd34ef01..." {
		t.Errorf("Unexpected masked key %s", key.Masked())
	}

	for _, bad := range []string{"", "ab12", ":cd", "ab:"} {
		if _, err := ParseContentKey(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestLogBuffer_EvictsOldestFirst(t *testing.T) {
	buf := NewLogBuffer(DefaultLogCapacity)

	for i := 0; i < 250; i++ {
		buf.Append(LogEntry{Level: LevelInfo, Message: fmt.Sprintf("line %d", i)})
		if buf.Len() > DefaultLogCapacity {
			t.Fatalf("buffer exceeded its cap: %d", buf.Len())
		}
	}

	entries := buf.Entries()
	if len(entries) != DefaultLogCapacity {
		t.Fatalf("Expected %d entries, got %d", DefaultLogCapacity, len(entries))
	}
	if entries[0].Message != "line 50" {
		t.Errorf("Expected oldest kept entry 'line 50', got '%s'", entries[0].Message)
	}
	if entries[len(entries)-1].Message != "line 249" {
		t.Errorf("Expected newest entry 'line 249', got '%s'", entries[len(entries)-1].Message)
	}

	buf.Reset()
	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d", buf.Len())
	}
}

func TestDownloadTask_Snapshot(t *testing.T) {
	task := NewDownloadTask("task-1", VideoDescriptor{Title: "t", ManifestURL: "m"}, "/out", 2, time.Now())
	task.Logs.Append(LogEntry{Message: "a"})

	snap := task.Snapshot()
	task.Logs.Append(LogEntry{Message: "b"})

	if len(snap.Logs) != 1 {
		t.Errorf("Snapshot logs must not follow later appends, got %d", len(snap.Logs))
	}
	if snap.State != TaskStateIdle {
		t.Errorf("Expected Idle, got %s", snap.State)
	}
}
