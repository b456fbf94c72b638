package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

var (
	colorSuccess = color.RGBA{R: 46, G: 160, B: 67, A: 255}
	colorError   = color.RGBA{R: 183, G: 28, B: 28, A: 255}
	colorWarning = color.RGBA{R: 255, G: 193, B: 7, A: 255}
	colorPrimary = color.RGBA{R: 25, G: 118, B: 210, A: 255}
)

// CompactTheme is the default theme with tighter spacing and status colors
type CompactTheme struct{}

// NewCompactTheme creates a new compact theme
func NewCompactTheme() fyne.Theme {
	return &CompactTheme{}
}

// Color returns theme colors
func (t *CompactTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameSuccess:
		return colorSuccess
	case theme.ColorNameError:
		return colorError
	case theme.ColorNameWarning:
		return colorWarning
	case theme.ColorNamePrimary:
		return colorPrimary
	}
	return theme.DefaultTheme().Color(name, variant)
}

// Font returns theme fonts
func (t *CompactTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

// Icon returns theme icons
func (t *CompactTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size returns theme sizes with compact adjustments
func (t *CompactTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameLineSpacing:
		return 2
	case theme.SizeNameText:
		return 13
	case theme.SizeNameCaptionText:
		return 10
	}
	return theme.DefaultTheme().Size(name)
}

// stateImportance maps a task state to the importance used for its label
func stateImportance(state model.TaskState) widget.Importance {
	switch {
	case state == model.TaskStateCompleted:
		return widget.SuccessImportance
	case state == model.TaskStateFailed:
		return widget.DangerImportance
	case state.IsActive():
		return widget.HighImportance
	default:
		return widget.MediumImportance
	}
}

// logImportance maps a log level to the importance used for its row
func logImportance(level string) widget.Importance {
	switch level {
	case model.LevelError:
		return widget.DangerImportance
	case model.LevelWarn:
		return widget.WarningImportance
	case model.LevelDebug:
		return widget.LowImportance
	default:
		return widget.MediumImportance
	}
}
