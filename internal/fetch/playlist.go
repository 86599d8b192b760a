// Package fetch скачивает сегменты HLS в каталог под именами 1.ts, 2.ts, ...
// чтобы их потом можно было собрать командой merge.
package fetch

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Playlist скачивает m3u8 и возвращает адреса сегментов по порядку.
func Playlist(ctx context.Context, client *http.Client, u string) ([]string, error) {
	base, err := url.Parse(u)
	if err != nil {
		return nil, errors.Wrap(err, "адрес плейлиста")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "загрузка плейлиста")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("загрузка плейлиста: %s", resp.Status)
	}

	return ParsePlaylist(resp.Body, base)
}

// ParsePlaylist читает m3u8: строки-комментарии (#...) и пустые пропускаются,
// относительные адреса разрешаются от base.
func ParsePlaylist(r io.Reader, base *url.URL) ([]string, error) {
	var lines []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		t := strings.TrimSpace(s.Text())
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		ref, err := url.Parse(t)
		if err != nil {
			return nil, errors.Wrapf(err, "строка плейлиста %q", t)
		}
		lines = append(lines, base.ResolveReference(ref).String())
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "чтение плейлиста")
	}
	return lines, nil
}

// Template строит n адресов из шаблона, где {{.}} заменяется на номер от 1 до n.
func Template(tmpl string, n int) ([]string, error) {
	if n < 1 {
		return nil, errors.Errorf("количество сегментов должно быть больше нуля: %d", n)
	}
	t, err := template.New("seg").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, errors.Wrap(err, "шаблон адреса")
	}

	lines := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		var b bytes.Buffer
		if err := t.Execute(&b, i); err != nil {
			return nil, errors.Wrap(err, "шаблон адреса")
		}
		lines = append(lines, b.String())
	}
	return lines, nil
}
