package main

import (
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/OllyCat/mergeTS/internal/gui"
	"github.com/OllyCat/mergeTS/internal/merge"
)

func newGUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Открыть окно для склейки",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fa := fyneapp.NewWithID("com.github.ollycat.mergets")
			runner := merge.NewRunner(a.orchestrator())
			gui.New(fa, runner).Run(cmd.Context(), a.cfg.PollInterval)
			return nil
		},
	}
}
