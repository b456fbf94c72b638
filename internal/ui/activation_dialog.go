package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/binbin1213/GAGA-Client/internal/license"
)

func (ui *RootUI) onShowActivation() {
	l := ui.localization
	deviceID := ui.settings.GetDeviceID()

	deviceEntry := widget.NewEntry()
	deviceEntry.SetText(deviceID)
	deviceEntry.Disable()

	codeEntry := widget.NewEntry()
	codeEntry.SetPlaceHolder(l.GetText(KeyLicenseCode))

	var d dialog.Dialog
	deactivateBtn := widget.NewButton(l.GetText(KeyDeactivate), func() {
		if err := ui.deps.Auth.Deactivate(); err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		d.Hide()
		ui.refreshAuthorization()
	})

	form := container.NewVBox(
		widget.NewLabel(l.GetText(KeyDeviceID)),
		deviceEntry,
		widget.NewLabel(l.GetText(KeyLicenseCode)),
		codeEntry,
		widget.NewSeparator(),
		deactivateBtn,
	)

	d = dialog.NewCustomConfirm(l.GetText(KeyActivation), l.GetText(KeyActivate), l.GetText(KeyCancel), form, func(confirmed bool) {
		code := strings.TrimSpace(codeEntry.Text)
		if !confirmed || code == "" {
			return
		}
		ui.activate(license.Credentials{DeviceID: deviceID, LicenseCode: code})
	}, ui.window)
	d.Resize(fyne.NewSize(SettingsDialogW, 0))
	d.Show()
}

func (ui *RootUI) activate(creds license.Credentials) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), AuthCallTimeout)
		defer cancel()

		st, err := ui.deps.Auth.Activate(ctx, creds)
		fyne.Do(func() {
			if err != nil {
				ui.log.Warn("activation failed", slog.String("error", err.Error()))
				dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyActivationFailed), err), ui.window)
				return
			}
			ui.showAuthorization(st)
		})
	}()
}
