// Package ffmpeg запускает ffmpeg в режиме concat demuxer без перекодирования.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// сколько последних строк stderr сохранять в ошибке
const stderrTailLines = 10

// MergeFailure - ffmpeg завершился с ненулевым кодом или не запустился.
type MergeFailure struct {
	Output   string
	ExitCode int    // -1, если процесс не удалось запустить
	Stderr   string // хвост stderr
	Err      error
}

func (e *MergeFailure) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("не удалось запустить ffmpeg (проверьте установку ffmpeg): %v", e.Err)
	}
	msg := fmt.Sprintf("ffmpeg завершился с кодом %d при сборке %s", e.ExitCode, e.Output)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *MergeFailure) Unwrap() error { return e.Err }

// Cause для errors.Cause из github.com/pkg/errors.
func (e *MergeFailure) Cause() error { return e.Err }

// Invoker собирает и запускает команду ffmpeg.
type Invoker struct {
	Binary   string
	LogLevel string
	Log      *slog.Logger
}

// New возвращает Invoker для указанного бинарника ffmpeg.
func New(binary string, log *slog.Logger) *Invoker {
	return &Invoker{Binary: binary, LogLevel: "error", Log: log}
}

// Args возвращает аргументы ffmpeg (без имени программы) для склейки manifest в output.
func (v *Invoker) Args(manifest, output string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	if v.LogLevel != "" {
		args = append(args, "-loglevel", v.LogLevel)
	}
	return append(args,
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		output,
	)
}

// CommandLine - строка команды для журнала.
func (v *Invoker) CommandLine(manifest, output string) string {
	parts := append([]string{v.Binary}, v.Args(manifest, output)...)
	for i, p := range parts {
		parts[i] = shellQuote(p)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
		return s
	}
	return strconv.Quote(s)
}

// Merge склеивает сегменты из manifest в output, запуская ffmpeg в каталоге dir.
// Относительные пути, в том числе manifest, считаются от текущего каталога процесса,
// как их возвращает segment.WriteManifest.
// Возвращает код завершения процесса как есть; при ненулевом коде ошибка - *MergeFailure.
func (v *Invoker) Merge(ctx context.Context, dir, manifest, output string) (int, error) {
	var err error
	for _, p := range []*string{&dir, &manifest, &output} {
		if *p, err = filepath.Abs(*p); err != nil {
			return -1, &MergeFailure{Output: output, ExitCode: -1, Err: errors.WithStack(err)}
		}
	}

	cmdline := v.CommandLine(manifest, output)
	v.logger().Info("запуск ffmpeg", "cmd", cmdline, "dir", dir)

	cmd := exec.CommandContext(ctx, v.Binary, v.Args(manifest, output)...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		code := exitErr.ExitCode()
		tail := Tail(stderr.String(), stderrTailLines)
		v.logger().Warn("ffmpeg завершился с ошибкой", "code", code, "stderr", tail)
		return code, &MergeFailure{Output: output, ExitCode: code, Stderr: tail, Err: errors.WithStack(err)}
	}

	// не запустился или убит сигналом
	v.logger().Error("ffmpeg не запустился", "err", err)
	return -1, &MergeFailure{Output: output, ExitCode: -1, Err: errors.WithStack(err)}
}

func (v *Invoker) logger() *slog.Logger {
	if v.Log != nil {
		return v.Log
	}
	return slog.Default()
}

// Tail возвращает последние n непустых строк s.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return strings.Join(out, "\n")
}

// Version запускает "<binary> -version" и возвращает первую строку вывода.
func Version(ctx context.Context, binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", errors.Wrapf(err, "%s не найден", binary)
	}
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", errors.Wrapf(err, "%s -version", path)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return line, nil
}
