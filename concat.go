package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/OllyCat/mergeTS/internal/merge"
)

// errReported - ошибка уже показана пользователю, нужен только код выхода.
var errReported = errors.New("ошибка уже выведена")

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
)

func newMergeCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "merge <каталог>",
		Short: "Собрать сегменты одного каталога в <выход>/<имя каталога>.<ext>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMerge(cmd, merge.Request{Mode: merge.ModeSingle, Source: args[0], Output: out})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", ".", "выходной каталог")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "batch <каталог>",
		Short: "Собрать каждый подкаталог в <выход>/<имя подкаталога>.<ext>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMerge(cmd, merge.Request{Mode: merge.ModeMulti, Source: args[0], Output: out})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", ".", "выходной каталог")
	return cmd
}

// runMerge выполняет сборку синхронно, с прогрессбаром в терминале.
func (a *app) runMerge(cmd *cobra.Command, req merge.Request) error {
	sink := newBarSink(cmd.ErrOrStderr())
	sum, err := a.orchestrator().Run(cmd.Context(), req, sink)
	// итог уже выведен в Done
	if err != nil || !sum.OK() {
		return errReported
	}
	return nil
}

// barSink выводит журнал и прогресс в терминал.
type barSink struct {
	w  io.Writer
	pb *progressbar.ProgressBar
}

func newBarSink(w io.Writer) *barSink {
	// прогрессбар в процентах
	pb := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Сборка"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &barSink{w: w, pb: pb}
}

func (s *barSink) Log(line string) {
	s.pb.Clear()
	fmt.Fprintln(s.w, line)
	s.pb.RenderBlank()
}

func (s *barSink) Progress(v float64) {
	s.pb.Set(int(v))
}

func (s *barSink) Done(sum merge.Summary) {
	s.pb.Finish()

	style := okStyle
	switch {
	case !sum.OK():
		style = errStyle
	case sum.Merged == 0:
		style = warnStyle
	}
	fmt.Fprintln(s.w, style.Render(sum.Message))
}

var _ merge.Sink = (*barSink)(nil)
