package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir")

	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func TestGetAppDataDir(t *testing.T) {
	dir, err := GetAppDataDir("/custom/data")
	if err != nil || dir != "/custom/data" {
		t.Errorf("Expected override to be returned, got %s (%v)", dir, err)
	}

	dir, err = GetAppDataDir("")
	if err != nil {
		t.Skipf("no user config dir on this machine: %v", err)
	}
	if filepath.Base(dir) != AppDirName {
		t.Errorf("Expected directory to end with '%s', got: %s", AppDirName, dir)
	}
}

func TestOpenFileInManager_NonExistentFile(t *testing.T) {
	err := OpenFileInManager(filepath.Join(t.TempDir(), "nonexistent.mp4"))
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Show S01E01", "Show S01E01"},
		{"  padded  ", "padded"},
		{"a/b\\c:d", "a_b_c_d"},
		{"what?*", "what__"},
		{"ends with dots...", "ends with dots"},
		{"第一集", "第一集"},
		{"tab\there", "tab_here"},
		{"", DefaultFileName},
		{"...", DefaultFileName},
	}

	for _, test := range tests {
		if got := SanitizeFileName(test.input); got != test.expected {
			t.Errorf("SanitizeFileName(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}
