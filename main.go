package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OllyCat/mergeTS/internal/config"
	"github.com/OllyCat/mergeTS/internal/ffmpeg"
	"github.com/OllyCat/mergeTS/internal/logging"
	"github.com/OllyCat/mergeTS/internal/merge"
)

// version задаётся при сборке через -ldflags "-X main.version=..."
var version = "dev"

// app - общие для всех команд настройки и журнал.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	closer io.Closer
}

func main() {
	a := &app{cfg: config.Default()}
	err := newRootCmd(a).Execute()
	if a.closer != nil {
		a.closer.Close()
	}
	if err != nil {
		if err != errReported {
			fmt.Fprintln(os.Stderr, errStyle.Render("Ошибка: "+err.Error()))
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mergeTS",
		Short:         "Склейка пронумерованных сегментов (1.ts, 2.ts, ...) в один файл через ffmpeg",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// флаги запуска
	a.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newMergeCmd(a),
		newBatchCmd(a),
		newFetchCmd(a),
		newCheckCmd(a),
		newGUICmd(a),
	)
	return root
}

// setup проверяет настройки и создаёт журнал.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg.ApplyEnv(cmd.Flags())
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	log, closer, err := logging.New(&a.cfg)
	if err != nil {
		return err
	}
	a.log, a.closer = log, closer
	slog.SetDefault(log)
	return nil
}

// orchestrator собирает Orchestrator по настройкам.
func (a *app) orchestrator() *merge.Orchestrator {
	inv := ffmpeg.New(a.cfg.FFmpegPath, a.log)
	inv.LogLevel = a.cfg.FFmpegLogLevel
	return merge.New(inv, merge.Options{
		Ext:          a.cfg.Ext,
		KeepManifest: a.cfg.KeepManifest,
		SkipExisting: a.cfg.SkipExisting,
	}, a.log)
}
