// Package merge склеивает сегменты одного каталога или всех подкаталогов
// исходного каталога и сообщает о ходе работы через Sink.
package merge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/OllyCat/mergeTS/internal/segment"
)

// Mode - режим работы.
type Mode string

const (
	ModeSingle Mode = "single" // один каталог
	ModeMulti  Mode = "multi"  // каждый подкаталог исходного каталога
)

// midProgress - прогресс после составления списка в режиме одного каталога.
const midProgress = 50

var (
	// ErrEmptyResult - в каталоге нет сегментов. Это не сбой.
	ErrEmptyResult = errors.New("нет файлов для сборки")
	// ErrAlreadyRunning - запуск уже идёт.
	ErrAlreadyRunning = errors.New("сборка уже запущена")
	// ErrInvalidRequest - не заданы каталоги или режим.
	ErrInvalidRequest = errors.New("неверный запрос")
)

// Request - что и куда собирать.
type Request struct {
	Mode   Mode
	Source string
	Output string
}

// Merger склеивает сегменты по списку. Реализован в пакете ffmpeg.
type Merger interface {
	Merge(ctx context.Context, dir, manifest, output string) (int, error)
}

// commandLiner - Merger, который умеет показать свою команду (ffmpeg.Invoker).
type commandLiner interface {
	CommandLine(manifest, output string) string
}

// Options - настройки сборки.
type Options struct {
	Ext          string // расширение выходного файла без точки
	KeepManifest bool
	SkipExisting bool
}

// State - состояние Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Orchestrator выполняет запуск от начала до конца. Одновременно идёт не более одного запуска.
type Orchestrator struct {
	merger Merger
	opts   Options
	log    *slog.Logger

	running atomic.Bool
	state   atomic.Int32
}

// New создаёт Orchestrator.
func New(m Merger, opts Options, log *slog.Logger) *Orchestrator {
	if opts.Ext == "" {
		opts.Ext = "mp4"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{merger: m, opts: opts, log: log}
}

// State возвращает текущее состояние.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Run выполняет запрос. Ошибка возвращается только для ошибок всего запуска
// (нет доступа к каталогам, неверный запрос); ошибки отдельных каталогов
// учитываются в Summary.Failed.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) (Summary, error) {
	if sink == nil {
		sink = Funcs{}
	}
	if !o.running.CompareAndSwap(false, true) {
		return Summary{Mode: req.Mode}, ErrAlreadyRunning
	}
	defer o.running.Store(false)
	o.state.Store(int32(StateRunning))

	var (
		sum Summary
		err error
	)
	switch req.Mode {
	case ModeSingle:
		sum, err = o.runSingle(ctx, req, sink)
	case ModeMulti:
		sum, err = o.runMulti(ctx, req, sink)
	default:
		err = errors.Wrapf(ErrInvalidRequest, "неизвестный режим %q", req.Mode)
	}

	if err != nil {
		sum = Summary{Mode: req.Mode, Err: err, Message: "Ошибка при обработке: " + err.Error()}
		o.log.Error("запуск прерван", "mode", req.Mode, "source", req.Source, "err", err)
		sink.Log(sum.Message)
		sink.Progress(0)
		o.state.Store(int32(StateFailed))
		sink.Done(sum)
		return sum, err
	}

	if sum.OK() {
		o.state.Store(int32(StateCompleted))
	} else {
		o.state.Store(int32(StateFailed))
	}
	sink.Done(sum)
	return sum, nil
}

// prepare проверяет запрос и создаёт выходной каталог.
func (o *Orchestrator) prepare(req Request) (src, out string, err error) {
	if req.Source == "" || req.Output == "" {
		return "", "", errors.Wrap(ErrInvalidRequest, "выберите исходный и выходной каталоги")
	}
	if src, err = filepath.Abs(req.Source); err != nil {
		return "", "", errors.WithStack(err)
	}
	if out, err = filepath.Abs(req.Output); err != nil {
		return "", "", errors.WithStack(err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", "", &segment.DirectoryAccessError{Dir: out, Err: errors.WithStack(err)}
	}
	return src, out, nil
}

func (o *Orchestrator) outputPath(outDir, name string) string {
	return filepath.Join(outDir, name+"."+o.opts.Ext)
}

func (o *Orchestrator) runSingle(ctx context.Context, req Request, sink Sink) (Summary, error) {
	src, outDir, err := o.prepare(req)
	if err != nil {
		return Summary{}, err
	}
	name := filepath.Base(src)
	if name == string(filepath.Separator) || name == "." {
		return Summary{}, errors.Wrapf(ErrInvalidRequest, "не удаётся получить имя каталога %s", src)
	}

	sum := Summary{Mode: ModeSingle, Total: 1}
	output := o.outputPath(outDir, name)
	sink.Log("Начинаю обработку каталога: " + src)

	segs, err := segment.List(src)
	if err != nil {
		return Summary{}, err
	}
	if len(segs) == 0 {
		sink.Log("Не найдено файлов для сборки")
		sum.Skipped = 1
		sum.Message = "Не найдено файлов для сборки"
		return sum, nil
	}
	o.log.Debug("найдены сегменты", "dir", src, "count", len(segs), "files", segment.Names(segs))
	sink.Progress(midProgress)

	res := o.mergeDir(ctx, src, segs, output, sink)
	switch {
	case res == nil:
		sum.Merged = 1
		sum.Message = "Сборка завершена: " + output
	case errors.Is(res, errSkipped):
		sum.Skipped = 1
		sum.Message = "Выходной файл уже есть: " + output
	default:
		sum.Failed = 1
		sum.Message = "Сборка не удалась: " + res.Error()
	}
	sink.Progress(100)
	return sum, nil
}

func (o *Orchestrator) runMulti(ctx context.Context, req Request, sink Sink) (Summary, error) {
	src, outDir, err := o.prepare(req)
	if err != nil {
		return Summary{}, err
	}
	dirs, err := Subdirs(src)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Mode: ModeMulti, Total: len(dirs)}
	if len(dirs) == 0 {
		sink.Log("Подкаталогов не найдено: " + src)
		sink.Progress(100)
		sum.Message = "Подкаталогов не найдено"
		return sum, nil
	}

	for i, name := range dirs {
		dir := filepath.Join(src, name)
		sink.Log("Обработка каталога: " + name)

		err := o.job(ctx, dir, o.outputPath(outDir, name), sink)
		switch {
		case err == nil:
			sum.Merged++
		case errors.Is(err, ErrEmptyResult):
			sink.Log(name + ": нет файлов для сборки, пропускаю")
			sum.Skipped++
		case errors.Is(err, errSkipped):
			sum.Skipped++
		default:
			sink.Log(name + ": сборка не удалась: " + err.Error())
			o.log.Warn("каталог не собран", "dir", dir, "err", err)
			sum.Failed++
		}

		sink.Progress(float64(i+1) / float64(len(dirs)) * 100)
	}

	sum.Message = fmt.Sprintf("Собрано каталогов: %d из %d", sum.Merged, sum.Total)
	return sum, nil
}

// job обрабатывает один каталог: список, manifest, ffmpeg.
func (o *Orchestrator) job(ctx context.Context, dir, output string, sink Sink) error {
	segs, err := segment.List(dir)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return ErrEmptyResult
	}
	return o.mergeDir(ctx, dir, segs, output, sink)
}

var errSkipped = errors.New("выходной файл уже существует")

func (o *Orchestrator) mergeDir(ctx context.Context, dir string, segs []segment.Segment, output string, sink Sink) error {
	if o.opts.SkipExisting {
		if _, err := os.Stat(output); err == nil {
			sink.Log("Пропуск, файл уже есть: " + output)
			return errSkipped
		}
	}

	manifest, err := segment.WriteManifest(dir, segs)
	if err != nil {
		return err
	}
	if !o.opts.KeepManifest {
		defer func() {
			if err := os.Remove(manifest); err != nil {
				o.log.Warn("не удалось удалить список", "path", manifest, "err", err)
			}
		}()
	}

	sink.Log(fmt.Sprintf("Сегментов: %d, собираю в %s", len(segs), output))
	if cl, ok := o.merger.(commandLiner); ok {
		sink.Log("Команда: " + cl.CommandLine(manifest, output))
	}
	if _, err := o.merger.Merge(ctx, dir, manifest, output); err != nil {
		sink.Log("Сборка не удалась, проверьте установку ffmpeg")
		return err
	}
	sink.Log("Успешно собрано: " + output)
	return nil
}

// Subdirs возвращает имена непосредственных подкаталогов root в лексикографическом порядке.
// Символические ссылки на каталоги тоже считаются подкаталогами.
func Subdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &segment.DirectoryAccessError{Dir: root, Err: errors.WithStack(err)}
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
			continue
		}
		if e.Type()&fs.ModeSymlink != 0 {
			if fi, err := os.Stat(filepath.Join(root, e.Name())); err == nil && fi.IsDir() {
				dirs = append(dirs, e.Name())
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
