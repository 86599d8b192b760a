// Package gui - окно для склейки сегментов: выбор каталогов, режим,
// прогресс и журнал. Сборка идёт в фоне, окно забирает события по таймеру.
package gui

import (
	"context"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/OllyCat/mergeTS/internal/merge"
)

const (
	modeSingleLabel = "Один каталог"
	modeMultiLabel  = "Все подкаталоги"
)

// UI - состояние окна. Все поля меняются только в потоке интерфейса.
type UI struct {
	win    fyne.Window
	runner *merge.Runner

	mode     *widget.RadioGroup
	source   *widget.Entry
	output   *widget.Entry
	progress *widget.ProgressBar
	logBox   *widget.Entry
	startBtn *widget.Button

	lines []string
}

// New строит окно в приложении a.
func New(a fyne.App, runner *merge.Runner) *UI {
	u := &UI{
		win:    a.NewWindow("Склейка видео"),
		runner: runner,
	}

	u.mode = widget.NewRadioGroup([]string{modeSingleLabel, modeMultiLabel}, nil)
	u.mode.SetSelected(modeSingleLabel)
	u.mode.Required = true

	u.source = widget.NewEntry()
	u.source.SetPlaceHolder("Исходный каталог")
	u.output = widget.NewEntry()
	u.output.SetPlaceHolder("Выходной каталог")

	u.progress = widget.NewProgressBar()
	u.progress.Max = 100

	u.logBox = widget.NewMultiLineEntry()
	u.logBox.Wrapping = fyne.TextWrapWord
	u.logBox.SetMinRowsVisible(8)

	u.startBtn = widget.NewButton("Начать сборку", u.start)
	quitBtn := widget.NewButton("Выход", a.Quit)

	form := container.NewVBox(
		widget.NewLabel("Режим работы:"),
		u.mode,
		widget.NewLabel("Исходный каталог:"),
		container.NewBorder(nil, nil, nil, widget.NewButton("Обзор...", func() { u.browse(u.source) }), u.source),
		widget.NewLabel("Выходной каталог:"),
		container.NewBorder(nil, nil, nil, widget.NewButton("Обзор...", func() { u.browse(u.output) }), u.output),
		u.progress,
		widget.NewLabel("Журнал:"),
	)
	buttons := container.NewHBox(u.startBtn, quitBtn)

	u.win.SetContent(container.NewBorder(form, container.NewCenter(buttons), nil, nil, u.logBox))
	u.win.Resize(fyne.NewSize(500, 600))
	return u
}

// Run показывает окно, запускает опрос очереди событий и блокируется до выхода.
func (u *UI) Run(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go u.poll(ctx, interval)
	u.win.ShowAndRun()
}

// poll забирает события сборки и применяет их в потоке интерфейса.
func (u *UI) poll(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if events := u.runner.Poll(); len(events) > 0 {
				fyne.Do(func() { u.apply(events) })
			}
		}
	}
}

func (u *UI) browse(target *widget.Entry) {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		target.SetText(uri.Path())
	}, u.win)
}

func (u *UI) request() merge.Request {
	mode := merge.ModeSingle
	if u.mode.Selected == modeMultiLabel {
		mode = merge.ModeMulti
	}
	return merge.Request{
		Mode:   mode,
		Source: strings.TrimSpace(u.source.Text),
		Output: strings.TrimSpace(u.output.Text),
	}
}

func (u *UI) start() {
	if u.runner.Running() {
		return
	}
	req := u.request()
	if req.Source == "" || req.Output == "" {
		dialog.ShowInformation("Ошибка", "Выберите исходный и выходной каталоги", u.win)
		return
	}

	// хвост прошлого запуска, ещё не забранный таймером
	u.apply(u.runner.Poll())

	u.lines = u.lines[:0]
	u.logBox.SetText("")
	u.progress.SetValue(0)

	if u.runner.Start(context.Background(), req) {
		u.startBtn.Disable()
	}
}

// apply применяет события к виджетам.
func (u *UI) apply(events []merge.Event) {
	for _, e := range events {
		switch e.Kind {
		case merge.EventLog:
			u.appendLog(e.Text)
		case merge.EventProgress:
			u.progress.SetValue(e.Value)
		case merge.EventDone:
			u.startBtn.Enable()
			u.finished(e.Summary)
		}
	}
}

func (u *UI) appendLog(line string) {
	u.lines = append(u.lines, line)
	u.logBox.SetText(strings.Join(u.lines, "\n"))
	u.logBox.CursorRow = len(u.lines) - 1
	u.logBox.Refresh()
}

func (u *UI) finished(sum merge.Summary) {
	switch {
	case sum.Err != nil:
		dialog.ShowInformation("Ошибка", "Ошибка при обработке:\n"+sum.Err.Error(), u.win)
	case sum.Mode == merge.ModeSingle && sum.Merged == 0 && sum.Failed == 0:
		dialog.ShowInformation("Внимание", sum.Message, u.win)
	case !sum.OK():
		dialog.ShowInformation("Ошибка", sum.Message, u.win)
	default:
		dialog.ShowInformation("Готово", sum.Message, u.win)
	}
}
