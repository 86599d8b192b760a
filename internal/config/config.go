// Package config содержит настройки mergeTS: значения по умолчанию, флаги и проверку.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// EnvFFmpeg переопределяет путь к ffmpeg, если флаг не задан.
const EnvFFmpeg = "MERGETS_FFMPEG"

// Config - все настройки запуска.
type Config struct {
	// ffmpeg
	FFmpegPath     string
	FFmpegLogLevel string

	// выходные файлы
	Ext          string
	KeepManifest bool
	SkipExisting bool

	// журнал
	LogLevel string
	LogFile  string

	// скачивание сегментов
	Concurrency int
	Retries     int
	MaxBackoff  time.Duration

	// интервал опроса очереди событий в окне
	PollInterval time.Duration
}

// Default возвращает настройки по умолчанию.
func Default() Config {
	return Config{
		FFmpegPath:     "ffmpeg",
		FFmpegLogLevel: "error",
		Ext:            "mp4",
		KeepManifest:   true,
		LogLevel:       "info",
		Concurrency:    30,
		Retries:        100,
		MaxBackoff:     6 * time.Second,
		PollInterval:   100 * time.Millisecond,
	}
}

// BindFlags регистрирует флаги, значения по умолчанию берутся из cfg.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.FFmpegPath, "ffmpeg", c.FFmpegPath, "путь к ffmpeg (или $"+EnvFFmpeg+")")
	fs.StringVar(&c.FFmpegLogLevel, "ffmpeg-loglevel", c.FFmpegLogLevel, "уровень журнала ffmpeg")
	fs.StringVarP(&c.Ext, "ext", "e", c.Ext, "расширение выходного файла")
	fs.BoolVar(&c.KeepManifest, "keep-manifest", c.KeepManifest, "оставлять filelist.txt после сборки")
	fs.BoolVar(&c.SkipExisting, "skip-existing", c.SkipExisting, "пропускать каталоги, для которых выходной файл уже есть")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "уровень журнала: debug, info, warn, error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "дописывать журнал в файл")
	fs.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "одновременных загрузок сегментов")
	fs.IntVar(&c.Retries, "retries", c.Retries, "попыток скачать один сегмент")
	fs.DurationVar(&c.MaxBackoff, "max-backoff", c.MaxBackoff, "максимальная случайная задержка перед запросом")
}

// ApplyEnv подставляет переменные окружения для незаданных флагов.
func (c *Config) ApplyEnv(fs *pflag.FlagSet) {
	if v := os.Getenv(EnvFFmpeg); v != "" && !fs.Changed("ffmpeg") {
		c.FFmpegPath = v
	}
}

// Validate проверяет настройки.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FFmpegPath) == "" {
		return errors.New("не задан путь к ffmpeg")
	}
	ext := strings.TrimSpace(c.Ext)
	if ext == "" || strings.ContainsAny(ext, `./\`) {
		return errors.Errorf("неверное расширение %q", c.Ext)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("неизвестный уровень журнала %q", c.LogLevel)
	}
	if c.Concurrency < 1 {
		return errors.Errorf("concurrency должно быть больше нуля: %d", c.Concurrency)
	}
	if c.Retries < 1 {
		return errors.Errorf("retries должно быть больше нуля: %d", c.Retries)
	}
	if c.MaxBackoff < 0 {
		return errors.Errorf("max-backoff не может быть отрицательным: %v", c.MaxBackoff)
	}
	if c.PollInterval <= 0 {
		return errors.Errorf("неверный интервал опроса: %v", c.PollInterval)
	}
	return nil
}
