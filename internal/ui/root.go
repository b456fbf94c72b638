package ui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/binbin1213/GAGA-Client/internal/auth"
	"github.com/binbin1213/GAGA-Client/internal/config"
	"github.com/binbin1213/GAGA-Client/internal/history"
	"github.com/binbin1213/GAGA-Client/internal/license"
	"github.com/binbin1213/GAGA-Client/internal/model"
	"github.com/binbin1213/GAGA-Client/internal/platform"
)

// Orchestrator is the download core driven by the window
type Orchestrator interface {
	Submit(desc model.VideoDescriptor, outputDir string) (model.TaskSnapshot, error)
	Cancel()
	ClearError()
	Snapshot() model.TaskSnapshot
	SetUpdateCallback(callback func(model.TaskSnapshot))
}

// Authorization manages the license of this device
type Authorization interface {
	Validate(ctx context.Context) (*auth.State, error)
	Activate(ctx context.Context, creds license.Credentials) (*auth.State, error)
	Deactivate() error
}

// HistoryStore lists finished downloads
type HistoryStore interface {
	List(ctx context.Context) ([]history.Record, error)
	Clear(ctx context.Context) error
}

// Deps are the services the window talks to. History may be nil.
type Deps struct {
	Orchestrator Orchestrator
	Auth         Authorization
	History      HistoryStore
	Settings     *config.Settings

	// OnSettingsChanged runs after the settings dialog saved
	OnSettingsChanged func()
}

// RootUI is the main window
type RootUI struct {
	window       fyne.Window
	deps         Deps
	settings     *config.Settings
	localization *Localization
	log          *slog.Logger

	descriptorEntry *widget.Entry
	loadBtn         *widget.Button
	startBtn        *widget.Button
	stopBtn         *widget.Button
	clearBtn        *widget.Button
	openBtn         *widget.Button
	titleLabel      *widget.Label
	stateLabel      *widget.Label
	speedLabel      *widget.Label
	errorLabel      *widget.Label
	authLabel       *widget.Label
	progressBar     *widget.ProgressBar
	logList         *widget.List

	mu       sync.Mutex
	snapshot model.TaskSnapshot
}

// NewRootUI creates the main window content and subscribes to task updates
func NewRootUI(window fyne.Window, deps Deps, log *slog.Logger) *RootUI {
	localization := NewLocalization()
	localization.SetLanguage(deps.Settings.GetLanguage())

	ui := &RootUI{
		window:       window,
		deps:         deps,
		settings:     deps.Settings,
		localization: localization,
		log:          log.With(slog.String("component", "ui")),
		snapshot:     deps.Orchestrator.Snapshot(),
	}

	window.SetTitle(localization.GetText(KeyAppTitle))
	ui.setupUI()

	deps.Orchestrator.SetUpdateCallback(ui.onTaskUpdate)
	ui.refreshAuthorization()
	return ui
}

func (ui *RootUI) setupUI() {
	l := ui.localization
	ui.createMenu()

	ui.descriptorEntry = widget.NewMultiLineEntry()
	ui.descriptorEntry.SetPlaceHolder(l.GetText(KeyDescriptorHint))
	ui.descriptorEntry.Wrapping = fyne.TextWrapBreak
	ui.descriptorEntry.SetMinRowsVisible(5)

	ui.loadBtn = widget.NewButton(IconFolder+" "+l.GetText(KeyLoadDescriptor), ui.onLoadDescriptor)
	ui.startBtn = widget.NewButton(l.GetText(KeyStart), ui.onStartClick)
	ui.startBtn.Importance = widget.HighImportance
	ui.stopBtn = widget.NewButton(l.GetText(KeyStop), ui.onStopClick)
	ui.clearBtn = widget.NewButton(l.GetText(KeyClearError), ui.onClearErrorClick)
	ui.openBtn = widget.NewButton(l.GetText(KeyOpenFolder), ui.onOpenFolderClick)

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance
	activationBtn := widget.NewButton(IconKey, ui.onShowActivation)
	activationBtn.Importance = widget.LowImportance

	ui.authLabel = widget.NewLabel(DashPlaceholder)
	topBar := container.NewBorder(nil, nil, container.NewHBox(settingsBtn, activationBtn), ui.loadBtn, ui.authLabel)

	ui.titleLabel = widget.NewLabel(DashPlaceholder)
	ui.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	ui.titleLabel.Truncation = fyne.TextTruncateEllipsis
	ui.stateLabel = widget.NewLabel("")
	ui.speedLabel = widget.NewLabel("")
	ui.progressBar = widget.NewProgressBar()
	ui.errorLabel = widget.NewLabel("")
	ui.errorLabel.Importance = widget.DangerImportance
	ui.errorLabel.Wrapping = fyne.TextWrapWord

	statusRow := container.NewBorder(nil, nil, ui.stateLabel, ui.speedLabel, ui.progressBar)
	buttons := container.NewHBox(ui.startBtn, ui.stopBtn, ui.clearBtn, ui.openBtn)

	ui.logList = widget.NewList(
		func() int {
			ui.mu.Lock()
			defer ui.mu.Unlock()
			return len(ui.snapshot.Logs)
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		ui.updateLogItem,
	)

	top := container.NewVBox(
		topBar,
		ui.descriptorEntry,
		buttons,
		widget.NewSeparator(),
		ui.titleLabel,
		statusRow,
		ui.errorLabel,
		widget.NewLabel(l.GetText(KeyLogs)),
	)
	ui.window.SetContent(container.NewBorder(top, nil, nil, nil, ui.logList))
	ui.render()
}

func (ui *RootUI) createMenu() {
	l := ui.localization

	languageMenu := fyne.NewMenu(l.GetText(KeyLanguage))
	for code, name := range l.GetAvailableLanguages() {
		langCode := code
		item := fyne.NewMenuItem(name, func() { ui.onLanguageChange(langCode) })
		item.Checked = l.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, item)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu(l.GetText(KeyFile),
			fyne.NewMenuItem(l.GetText(KeyLoadDescriptor), ui.onLoadDescriptor),
			fyne.NewMenuItem(l.GetText(KeyHistory), ui.onShowHistory),
			fyne.NewMenuItem(l.GetText(KeyActivation), ui.onShowActivation),
			fyne.NewMenuItem(l.GetText(KeySettings), ui.onShowSettings),
		),
		languageMenu,
	))
}

// onLanguageChange rebuilds the window in the new language
func (ui *RootUI) onLanguageChange(lang string) {
	ui.localization.SetLanguage(lang)
	ui.settings.SetLanguage(lang)

	text := ui.descriptorEntry.Text
	ui.window.SetTitle(ui.localization.GetText(KeyAppTitle))
	ui.setupUI()
	ui.descriptorEntry.SetText(text)
	ui.refreshAuthorization()
}

func (ui *RootUI) onLoadDescriptor() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		ui.descriptorEntry.SetText(string(data))
	}, ui.window)
}

func (ui *RootUI) onStartClick() {
	desc, err := parseDescriptor(ui.descriptorEntry.Text)
	if err != nil {
		dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyInvalidDescriptor), err), ui.window)
		return
	}

	outputDir := ui.settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(outputDir); err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	if _, err := ui.deps.Orchestrator.Submit(desc, outputDir); err != nil {
		ui.log.Error("submit failed", slog.String("error", err.Error()))
		dialog.ShowError(err, ui.window)
	}
}

func (ui *RootUI) onStopClick() {
	ui.deps.Orchestrator.Cancel()
}

func (ui *RootUI) onClearErrorClick() {
	ui.deps.Orchestrator.ClearError()
}

func (ui *RootUI) onOpenFolderClick() {
	ui.mu.Lock()
	path := ui.snapshot.OutputPath
	ui.mu.Unlock()
	if path == "" {
		return
	}
	if err := platform.OpenFileInManager(path); err != nil {
		ui.log.Warn("open in file manager failed", slog.String("path", path), slog.String("error", err.Error()))
		dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyErrorOpeningFile), err), ui.window)
	}
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.localization, ui.window, ui.deps.OnSettingsChanged).Show()
}

// onTaskUpdate receives snapshots from the orchestrator on any goroutine
func (ui *RootUI) onTaskUpdate(snap model.TaskSnapshot) {
	ui.mu.Lock()
	completed := snap.State == model.TaskStateCompleted && ui.snapshot.State != model.TaskStateCompleted
	ui.snapshot = snap
	ui.mu.Unlock()

	if completed {
		fyne.CurrentApp().SendNotification(&fyne.Notification{
			Title:   ui.localization.GetText(KeyDownloadCompleted),
			Content: snap.GetDisplayTitle(),
		})
	}
	fyne.Do(ui.render)
}

// render updates the widgets from the last snapshot; UI goroutine only
func (ui *RootUI) render() {
	ui.mu.Lock()
	snap := ui.snapshot
	ui.mu.Unlock()

	if snap.ID == "" {
		ui.titleLabel.SetText(DashPlaceholder)
	} else {
		ui.titleLabel.SetText(snap.GetDisplayTitle())
	}

	ui.stateLabel.SetText(ui.localization.StateText(snap.State))
	ui.stateLabel.Importance = stateImportance(snap.State)
	ui.stateLabel.Refresh()

	ui.progressBar.SetValue(float64(snap.Progress) / 100)
	ui.speedLabel.SetText(snap.TransferRate)

	if snap.State == model.TaskStateFailed {
		ui.errorLabel.SetText(IconError + " " + snap.ErrorMessage)
		ui.errorLabel.Show()
		ui.clearBtn.Show()
	} else {
		ui.errorLabel.Hide()
		ui.clearBtn.Hide()
	}

	running := snap.State.IsActive()
	if running {
		ui.stopBtn.Enable()
	} else {
		ui.stopBtn.Disable()
	}
	if snap.State == model.TaskStateCompleted && snap.OutputPath != "" {
		ui.openBtn.Show()
	} else {
		ui.openBtn.Hide()
	}

	ui.logList.Refresh()
	if len(snap.Logs) > 0 {
		ui.logList.ScrollToBottom()
	}
}

func (ui *RootUI) updateLogItem(id widget.ListItemID, item fyne.CanvasObject) {
	ui.mu.Lock()
	if id >= len(ui.snapshot.Logs) {
		ui.mu.Unlock()
		return
	}
	entry := ui.snapshot.Logs[id]
	ui.mu.Unlock()

	label := item.(*widget.Label)
	label.SetText(entry.Timestamp.Format("15:04:05") + " " + entry.Level + MiddleDotSeparator + entry.Message)
	label.Importance = logImportance(entry.Level)
	label.Refresh()
}

// refreshAuthorization validates the license in the background and shows the result
func (ui *RootUI) refreshAuthorization() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), AuthCallTimeout)
		defer cancel()

		st, err := ui.deps.Auth.Validate(ctx)
		if err != nil {
			ui.log.Warn("authorization check failed", slog.String("error", err.Error()))
		}
		fyne.Do(func() { ui.showAuthorization(st) })
	}()
}

func (ui *RootUI) showAuthorization(st *auth.State) {
	if st == nil {
		ui.authLabel.SetText(ui.localization.GetText(KeyNotActivated))
		ui.authLabel.Importance = widget.WarningImportance
		ui.authLabel.Refresh()
		return
	}
	text := ui.localization.GetText(KeyActivatedUntil)
	if st.ExpiresAt.IsZero() {
		text = fmt.Sprintf(text, DashPlaceholder)
	} else {
		text = fmt.Sprintf(text, st.ExpiresAt.Local().Format(DateTimeFormat))
	}
	ui.authLabel.SetText(text)
	ui.authLabel.Importance = widget.SuccessImportance
	ui.authLabel.Refresh()
}
