package main

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/OllyCat/mergeTS/internal/fetch"
	"github.com/OllyCat/mergeTS/internal/merge"
)

type fetchFlags struct {
	url   string
	seg   string
	num   int
	dir   string
	merge bool
	out   string
}

func newFetchCmd(a *app) *cobra.Command {
	var f fetchFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Скачать сегменты по плейлисту m3u8 или по шаблону адреса",
		Example: `  mergeTS fetch --url https://example.com/video/index.m3u8 -d clip --merge
  mergeTS fetch --seg 'https://example.com/seg-{{.}}.ts' -n 120 -d clip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.url, "url", "u", "", "адрес плейлиста m3u8")
	fs.StringVarP(&f.seg, "seg", "s", "", "шаблон адреса сегмента, номер подставляется вместо {{.}}")
	fs.IntVarP(&f.num, "num", "n", 0, "количество сегментов для --seg")
	fs.StringVarP(&f.dir, "dir", "d", ".", "каталог для сегментов")
	fs.BoolVar(&f.merge, "merge", false, "собрать каталог после скачивания")
	fs.StringVarP(&f.out, "output", "o", ".", "выходной каталог для --merge")
	cmd.MarkFlagsMutuallyExclusive("url", "seg")
	cmd.MarkFlagsOneRequired("url", "seg")
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, f fetchFlags) error {
	ctx := cmd.Context()

	// список адресов сегментов
	var (
		urls []string
		err  error
	)
	if f.url != "" {
		urls, err = fetch.Playlist(ctx, http.DefaultClient, f.url)
	} else {
		urls, err = fetch.Template(f.seg, f.num)
	}
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("список сегментов пуст")
	}
	a.log.Info("скачивание", "segments", len(urls), "dir", f.dir)

	// прогрессбар на скачивание
	pb := progressbar.NewOptions(len(urls),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Скачивание сегментов"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)
	pb.RenderBlank()

	fetcher := &fetch.Fetcher{
		Concurrency: a.cfg.Concurrency,
		Retries:     a.cfg.Retries,
		MaxBackoff:  a.cfg.MaxBackoff,
		Log:         a.log,
		OnSegment:   func() { pb.Add(1) },
	}
	res, err := fetcher.Download(ctx, urls, f.dir)
	pb.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		for _, u := range res.Failed {
			fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("не скачан: "+u))
		}
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), okStyle.Render(fmt.Sprintf("Скачано сегментов: %d", len(res.Files))))

	if !f.merge {
		return nil
	}
	return a.runMerge(cmd, merge.Request{Mode: merge.ModeSingle, Source: f.dir, Output: f.out})
}
