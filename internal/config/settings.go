package config

import (
	"fyne.io/fyne/v2"
	"github.com/google/uuid"

	"github.com/binbin1213/GAGA-Client/internal/platform"
)

// Settings keys for Fyne preferences
const (
	KeyDownloadDir       = "download_directory"
	KeyThreadCount       = "thread_count"
	KeySubtitleLanguage  = "subtitle_language"
	KeyBurnSubtitles     = "burn_subtitles"
	KeySubtitleStyle     = "subtitle_style"
	KeyKeepIntermediates = "keep_intermediates"
	KeyLanguage          = "language"
	KeyDeviceID          = "device_id"
)

// Default values
const (
	DefaultThreadCount       = 16
	MinThreadCount           = 1
	MaxThreadCount           = 64
	DefaultSubtitleLanguage  = "zh-Hans"
	DefaultBurnSubtitles     = true
	DefaultSubtitleStyle     = "FontName=Microsoft YaHei,FontSize=22,PrimaryColour=&H00FFFFFF,Outline=1"
	DefaultKeepIntermediates = false
	DefaultLanguage          = "zh"
)

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.app.Preferences().String(KeyDownloadDir)
	if dir == "" {
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = "/tmp/downloads"
		}
		s.SetDownloadDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.app.Preferences().SetString(KeyDownloadDir, dir)
}

// GetThreadCount returns the number of downloader threads
func (s *Settings) GetThreadCount() int {
	value := s.app.Preferences().Int(KeyThreadCount)
	if value <= 0 {
		s.SetThreadCount(DefaultThreadCount)
		return DefaultThreadCount
	}
	return value
}

// SetThreadCount sets the number of downloader threads
func (s *Settings) SetThreadCount(count int) {
	if count < MinThreadCount {
		count = MinThreadCount
	}
	if count > MaxThreadCount {
		count = MaxThreadCount
	}
	s.app.Preferences().SetInt(KeyThreadCount, count)
}

// GetSubtitleLanguage returns the preferred subtitle language tag
func (s *Settings) GetSubtitleLanguage() string {
	lang := s.app.Preferences().String(KeySubtitleLanguage)
	if lang == "" {
		s.SetSubtitleLanguage(DefaultSubtitleLanguage)
		return DefaultSubtitleLanguage
	}
	return lang
}

// SetSubtitleLanguage sets the preferred subtitle language tag
func (s *Settings) SetSubtitleLanguage(lang string) {
	if lang == "" {
		lang = DefaultSubtitleLanguage
	}
	s.app.Preferences().SetString(KeySubtitleLanguage, lang)
}

// GetBurnSubtitles returns whether discovered subtitles are burned in
func (s *Settings) GetBurnSubtitles() bool {
	return s.app.Preferences().BoolWithFallback(KeyBurnSubtitles, DefaultBurnSubtitles)
}

// SetBurnSubtitles sets whether discovered subtitles are burned in
func (s *Settings) SetBurnSubtitles(burn bool) {
	s.app.Preferences().SetBool(KeyBurnSubtitles, burn)
}

// GetSubtitleStyle returns the ASS force_style string used when burning
func (s *Settings) GetSubtitleStyle() string {
	return s.app.Preferences().StringWithFallback(KeySubtitleStyle, DefaultSubtitleStyle)
}

// SetSubtitleStyle sets the ASS force_style string used when burning
func (s *Settings) SetSubtitleStyle(style string) {
	if style == "" {
		style = DefaultSubtitleStyle
	}
	s.app.Preferences().SetString(KeySubtitleStyle, style)
}

// GetKeepIntermediates returns whether a failed task keeps its work directory
func (s *Settings) GetKeepIntermediates() bool {
	return s.app.Preferences().BoolWithFallback(KeyKeepIntermediates, DefaultKeepIntermediates)
}

// SetKeepIntermediates sets whether a failed task keeps its work directory
func (s *Settings) SetKeepIntermediates(keep bool) {
	s.app.Preferences().SetBool(KeyKeepIntermediates, keep)
}

// GetSubtitleLanguageOptions returns the selectable subtitle languages
func (s *Settings) GetSubtitleLanguageOptions() map[string]string {
	return map[string]string{
		"zh-Hans": "简体中文",
		"zh-Hant": "繁體中文",
		"en":      "English",
	}
}

// GetLanguage returns the interface language
func (s *Settings) GetLanguage() string {
	return s.app.Preferences().StringWithFallback(KeyLanguage, DefaultLanguage)
}

// SetLanguage sets the interface language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetDeviceID returns the identifier sent with license requests,
// generating and storing one on first use
func (s *Settings) GetDeviceID() string {
	id := s.app.Preferences().String(KeyDeviceID)
	if id == "" {
		id = uuid.NewString()
		s.app.Preferences().SetString(KeyDeviceID, id)
	}
	return id
}
