package ui

import "time"

// Icons
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
	IconKey      = "🔑"
	IconError    = "❌"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	DashPlaceholder     = "—"
	ProgressLabelFormat = "%d%%"
	DateTimeFormat      = "2006-01-02 15:04"
)

// Layout sizing
const (
	WindowWidth  float32 = 860
	WindowHeight float32 = 640

	DescriptorMinHeight float32 = 120
	StateLabelWidth     float32 = 120
	SettingsDialogW     float32 = 520
	SettingsDialogH     float32 = 480
	HistoryDialogW      float32 = 640
	HistoryDialogH      float32 = 420
)

// Timeouts of the calls the window makes on its own
const (
	AuthCallTimeout    = 15 * time.Second
	HistoryCallTimeout = 5 * time.Second
)
