package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/facette/natsort"
	"github.com/pkg/errors"
)

// Fetcher скачивает сегменты параллельно с ограничением и повторами.
type Fetcher struct {
	Client      *http.Client
	Concurrency int
	Retries     int
	MaxBackoff  time.Duration
	Log         *slog.Logger

	// OnSegment вызывается после каждого сегмента, успешного или нет.
	OnSegment func()
}

// Result - итог скачивания.
type Result struct {
	Files  []string // имена скачанных файлов, по порядку
	Failed []string // адреса, которые не удалось скачать
}

// FileName возвращает имя файла для i-го (с нуля) сегмента: номер плюс расширение из адреса.
func FileName(i int, u string) string {
	ext := ".ts"
	if p, err := url.Parse(u); err == nil {
		if e := path.Ext(p.Path); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("%d%s", i+1, ext)
}

// Download скачивает urls в dir. Ошибка возвращается, если хотя бы один сегмент не скачан.
func (f *Fetcher) Download(ctx context.Context, urls []string, dir string) (Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, errors.Wrap(err, "каталог для сегментов")
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res Result
	)

	// буферизованный канал ограничивает число одновременных загрузок
	sem := make(chan struct{}, max(f.Concurrency, 1))

	for i, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, u string) {
			defer wg.Done()
			defer func() {
				<-sem
				if f.OnSegment != nil {
					f.OnSegment()
				}
			}()

			name := FileName(i, u)
			err := f.segment(ctx, u, filepath.Join(dir, name))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger().Error("сегмент не скачан", "url", u, "err", err)
				res.Failed = append(res.Failed, u)
				return
			}
			res.Files = append(res.Files, name)
		}(i, u)
	}
	wg.Wait()

	natsort.Sort(res.Files)
	natsort.Sort(res.Failed)
	if len(res.Failed) > 0 {
		return res, errors.Errorf("не скачано сегментов: %d из %d", len(res.Failed), len(urls))
	}
	return res, nil
}

// segment скачивает один адрес в файл, повторяя попытки со случайной задержкой.
func (f *Fetcher) segment(ctx context.Context, u, dst string) error {
	retries := max(f.Retries, 1)

	var (
		buf bytes.Buffer
		err error
	)
	for c := 0; c < retries; c++ {
		if c > 0 {
			if err := sleep(ctx, f.backoff()); err != nil {
				return err
			}
			f.logger().Debug("повтор", "url", u, "attempt", c+1, "err", err)
		}
		buf.Reset()
		if err = f.get(ctx, u, &buf); err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if err != nil {
		return errors.Wrapf(err, "попыток %d", retries)
	}

	return errors.WithStack(os.WriteFile(dst, buf.Bytes(), 0o644))
}

func (f *Fetcher) get(ctx context.Context, u string, buf *bytes.Buffer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ответ сервера: %s", resp.Status)
	}
	_, err = buf.ReadFrom(resp.Body)
	return errors.WithStack(err)
}

// backoff - случайная задержка, чтобы сервер не отказал от частых запросов.
func (f *Fetcher) backoff() time.Duration {
	if f.MaxBackoff <= 0 {
		return 0
	}
	return rand.N(f.MaxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}
