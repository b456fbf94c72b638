package ui

import (
	"context"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/binbin1213/GAGA-Client/internal/history"
)

func (ui *RootUI) onShowHistory() {
	if ui.deps.History == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), HistoryCallTimeout)
	records, err := ui.deps.History.List(ctx)
	cancel()
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	l := ui.localization
	list := widget.NewList(
		func() int { return len(records) },
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			item.(*widget.Label).SetText(historyLine(records[id]))
		},
	)

	clearBtn := widget.NewButton(l.GetText(KeyClearHistory), func() {
		ctx, cancel := context.WithTimeout(context.Background(), HistoryCallTimeout)
		defer cancel()
		if err := ui.deps.History.Clear(ctx); err != nil {
			ui.log.Warn("clearing history failed", slog.String("error", err.Error()))
			dialog.ShowError(err, ui.window)
			return
		}
		records = nil
		list.Refresh()
	})

	var content fyne.CanvasObject = list
	if len(records) == 0 {
		content = widget.NewLabel(l.GetText(KeyNoHistory))
	}

	d := dialog.NewCustom(l.GetText(KeyHistory), l.GetText(KeyCancel), container.NewBorder(nil, clearBtn, nil, nil, content), ui.window)
	d.Resize(fyne.NewSize(HistoryDialogW, HistoryDialogH))
	d.Show()
}

func historyLine(r history.Record) string {
	line := r.CreatedAt.Local().Format(DateTimeFormat) + MiddleDotSeparator + r.Title + MiddleDotSeparator + r.Status
	if r.ErrorMessage != "" {
		line += MiddleDotSeparator + r.ErrorMessage
	}
	return line
}
