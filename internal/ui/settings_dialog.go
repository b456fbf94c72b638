package ui

import (
	"sort"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/binbin1213/GAGA-Client/internal/config"
)

// SettingsDialog edits the download settings
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	downloadDirEntry    *widget.Entry
	threadCountEntry    *widget.Entry
	subtitleSelect      *widget.Select
	burnCheck           *widget.Check
	styleEntry          *widget.Entry
	keepIntermediatesCk *widget.Check

	languageCodes map[string]string // display name -> code
}

// NewSettingsDialog creates a new settings dialog; onSaved runs after the
// settings were written
func NewSettingsDialog(settings *config.Settings, l *Localization, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: l,
		window:       window,
		onSaved:      onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	l := sd.localization

	sd.downloadDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton(l.GetText(KeyBrowse), sd.onBrowseDirectory)
	downloadDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.downloadDirEntry)

	sd.threadCountEntry = widget.NewEntry()
	sd.threadCountEntry.SetPlaceHolder(strconv.Itoa(config.MinThreadCount) + "-" + strconv.Itoa(config.MaxThreadCount))

	sd.languageCodes = make(map[string]string)
	names := make([]string, 0)
	for code, name := range sd.settings.GetSubtitleLanguageOptions() {
		sd.languageCodes[name] = code
		names = append(names, name)
	}
	sort.Strings(names)
	sd.subtitleSelect = widget.NewSelect(names, nil)

	sd.burnCheck = widget.NewCheck(l.GetText(KeyBurnSubtitles), nil)
	sd.styleEntry = widget.NewEntry()
	sd.keepIntermediatesCk = widget.NewCheck(l.GetText(KeyKeepIntermediates), nil)

	form := container.NewVBox(
		widget.NewLabel(l.GetText(KeyDownloadDirectory)),
		downloadDirRow,

		widget.NewLabel(l.GetText(KeyThreadCount)),
		sd.threadCountEntry,

		widget.NewSeparator(),

		widget.NewLabel(l.GetText(KeySubtitleLanguage)),
		sd.subtitleSelect,
		sd.burnCheck,
		widget.NewLabel(l.GetText(KeySubtitleStyle)),
		sd.styleEntry,

		widget.NewSeparator(),
		sd.keepIntermediatesCk,
	)

	sd.dialog = dialog.NewCustomConfirm(
		l.GetText(KeySettings),
		l.GetText(KeySave),
		l.GetText(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)
	sd.dialog.Resize(fyne.NewSize(SettingsDialogW, SettingsDialogH))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.threadCountEntry.SetText(strconv.Itoa(sd.settings.GetThreadCount()))
	sd.subtitleSelect.SetSelected(sd.settings.GetSubtitleLanguageOptions()[sd.settings.GetSubtitleLanguage()])
	sd.burnCheck.SetChecked(sd.settings.GetBurnSubtitles())
	sd.styleEntry.SetText(sd.settings.GetSubtitleStyle())
	sd.keepIntermediatesCk.SetChecked(sd.settings.GetKeepIntermediates())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.downloadDirEntry.SetText(uri.Path())
	}, sd.window)
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	if dir := sd.downloadDirEntry.Text; dir != "" {
		sd.settings.SetDownloadDirectory(dir)
	}
	if count, err := strconv.Atoi(sd.threadCountEntry.Text); err == nil {
		sd.settings.SetThreadCount(count)
	}
	if code, ok := sd.languageCodes[sd.subtitleSelect.Selected]; ok {
		sd.settings.SetSubtitleLanguage(code)
	}
	sd.settings.SetBurnSubtitles(sd.burnCheck.Checked)
	if style := sd.styleEntry.Text; style != "" {
		sd.settings.SetSubtitleStyle(style)
	}
	sd.settings.SetKeepIntermediates(sd.keepIntermediatesCk.Checked)

	if sd.onSaved != nil {
		sd.onSaved()
	}
	dialog.ShowInformation(sd.localization.GetText(KeySettings), sd.localization.GetText(KeySettingsSaved), sd.window)
}
