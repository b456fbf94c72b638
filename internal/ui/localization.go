package ui

import "github.com/binbin1213/GAGA-Client/internal/model"

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle          = "app_title"
	KeyStart             = "start"
	KeyStop              = "stop"
	KeyClearError        = "clear_error"
	KeyOpenFolder        = "open_folder"
	KeySettings          = "settings"
	KeyFile              = "file"
	KeyLanguage          = "language"
	KeyHistory           = "history"
	KeyClearHistory      = "clear_history"
	KeyActivation        = "activation"
	KeyActivate          = "activate"
	KeyDeactivate        = "deactivate"
	KeyDeviceID          = "device_id"
	KeyLicenseCode       = "license_code"
	KeyActivatedUntil    = "activated_until"
	KeyNotActivated      = "not_activated"
	KeyActivationFailed  = "activation_failed"
	KeyDownloadDirectory = "download_directory"
	KeyThreadCount       = "thread_count"
	KeySubtitleLanguage  = "subtitle_language"
	KeyBurnSubtitles     = "burn_subtitles"
	KeySubtitleStyle     = "subtitle_style"
	KeyKeepIntermediates = "keep_intermediates"
	KeySave              = "save"
	KeyCancel            = "cancel"
	KeyBrowse            = "browse"
	KeyLoadDescriptor    = "load_descriptor"
	KeyDescriptorHint    = "descriptor_hint"
	KeyInvalidDescriptor = "invalid_descriptor"
	KeySettingsSaved     = "settings_saved"
	KeyDownloadCompleted = "download_completed"
	KeyErrorOpeningFile  = "error_opening_file"
	KeyLogs              = "logs"
	KeyNoHistory         = "no_history"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "zh",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language; unknown languages are ignored
func (l *Localization) SetLanguage(lang string) {
	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if text, found := l.texts[l.currentLanguage][key]; found {
		return text
	}
	if text, found := l.texts["en"][key]; found {
		return text
	}
	return key
}

// StateText returns the display name of a task state
func (l *Localization) StateText(state model.TaskState) string {
	return l.GetText("state_" + string(state))
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"zh": "中文",
		"en": "English",
	}
}

func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:          "GAGA Client",
		KeyStart:             "Download",
		KeyStop:              "Stop",
		KeyClearError:        "Dismiss",
		KeyOpenFolder:        "Show in folder",
		KeySettings:          "Settings",
		KeyFile:              "File",
		KeyLanguage:          "Language",
		KeyHistory:           "History",
		KeyClearHistory:      "Clear history",
		KeyActivation:        "Activation",
		KeyActivate:          "Activate",
		KeyDeactivate:        "Deactivate",
		KeyDeviceID:          "Device ID",
		KeyLicenseCode:       "License code",
		KeyActivatedUntil:    "Activated until %s",
		KeyNotActivated:      "Not activated",
		KeyActivationFailed:  "Activation failed",
		KeyDownloadDirectory: "Download directory",
		KeyThreadCount:       "Download threads",
		KeySubtitleLanguage:  "Subtitle language",
		KeyBurnSubtitles:     "Burn subtitles into the video",
		KeySubtitleStyle:     "Subtitle style",
		KeyKeepIntermediates: "Keep intermediate files when a task fails",
		KeySave:              "Save",
		KeyCancel:            "Cancel",
		KeyBrowse:            "Browse",
		KeyLoadDescriptor:    "Open descriptor…",
		KeyDescriptorHint:    `Paste the captured video JSON: {"Title": "...", "MPD": "...", "PSSH": "...", "LicenseURL": "..."}`,
		KeyInvalidDescriptor: "Invalid video descriptor",
		KeySettingsSaved:     "Settings saved",
		KeyDownloadCompleted: "Download completed",
		KeyErrorOpeningFile:  "Error opening file",
		KeyLogs:              "Log",
		KeyNoHistory:         "No downloads yet",

		"state_" + string(model.TaskStateIdle):             "Idle",
		"state_" + string(model.TaskStateResolvingKeys):    "Getting keys",
		"state_" + string(model.TaskStateDownloading):      "Downloading",
		"state_" + string(model.TaskStateDecrypting):       "Decrypting",
		"state_" + string(model.TaskStateMerging):          "Merging",
		"state_" + string(model.TaskStateBurningSubtitles): "Burning subtitles",
		"state_" + string(model.TaskStateCompleted):        "Completed",
		"state_" + string(model.TaskStateFailed):           "Failed",
	}

	l.texts["zh"] = map[string]string{
		KeyAppTitle:          "GAGA 客户端",
		KeyStart:             "下载",
		KeyStop:              "停止",
		KeyClearError:        "忽略",
		KeyOpenFolder:        "打开所在文件夹",
		KeySettings:          "设置",
		KeyFile:              "文件",
		KeyLanguage:          "语言",
		KeyHistory:           "下载历史",
		KeyClearHistory:      "清空历史",
		KeyActivation:        "激活",
		KeyActivate:          "激活",
		KeyDeactivate:        "取消激活",
		KeyDeviceID:          "设备 ID",
		KeyLicenseCode:       "授权码",
		KeyActivatedUntil:    "已激活，有效期至 %s",
		KeyNotActivated:      "未激活",
		KeyActivationFailed:  "激活失败",
		KeyDownloadDirectory: "下载目录",
		KeyThreadCount:       "下载线程数",
		KeySubtitleLanguage:  "字幕语言",
		KeyBurnSubtitles:     "将字幕烧录到视频",
		KeySubtitleStyle:     "字幕样式",
		KeyKeepIntermediates: "任务失败时保留中间文件",
		KeySave:              "保存",
		KeyCancel:            "取消",
		KeyBrowse:            "浏览",
		KeyLoadDescriptor:    "打开视频信息…",
		KeyDescriptorHint:    `粘贴捕获的视频 JSON: {"Title": "...", "MPD": "...", "PSSH": "...", "LicenseURL": "..."}`,
		KeyInvalidDescriptor: "视频信息无效",
		KeySettingsSaved:     "设置已保存",
		KeyDownloadCompleted: "下载完成",
		KeyErrorOpeningFile:  "打开文件出错",
		KeyLogs:              "日志",
		KeyNoHistory:         "暂无下载记录",

		"state_" + string(model.TaskStateIdle):             "空闲",
		"state_" + string(model.TaskStateResolvingKeys):    "获取密钥",
		"state_" + string(model.TaskStateDownloading):      "下载中",
		"state_" + string(model.TaskStateDecrypting):       "解密中",
		"state_" + string(model.TaskStateMerging):          "合并中",
		"state_" + string(model.TaskStateBurningSubtitles): "烧录字幕",
		"state_" + string(model.TaskStateCompleted):        "已完成",
		"state_" + string(model.TaskStateFailed):           "失败",
	}
}
