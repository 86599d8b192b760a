package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OllyCat/mergeTS/internal/ffmpeg"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Проверить, что ffmpeg установлен и запускается",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := ffmpeg.Version(cmd.Context(), a.cfg.FFmpegPath)
			if err != nil {
				a.log.Error("ffmpeg недоступен", "path", a.cfg.FFmpegPath, "err", err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(v))
			return nil
		},
	}
}
