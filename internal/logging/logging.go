// Package logging настраивает slog: текстовый вывод в stderr и, по желанию, копию в файл.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/OllyCat/mergeTS/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New создаёт логгер по настройкам. Закрывать возвращённый io.Closer нужно всегда.
func New(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter то же, что New, но пишет в w вместо stderr.
func NewWithWriter(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, errors.Wrap(err, "каталог журнала")
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "файл журнала")
		}
		w = io.MultiWriter(w, f)
		closer = f
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	return slog.New(h), closer, nil
}

// ParseLevel переводит имя уровня в slog.Level; неизвестное имя - info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard возвращает логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
