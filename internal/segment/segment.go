// Package segment ищет пронумерованные сегменты в каталоге и пишет для них
// список в формате concat demuxer ffmpeg.
package segment

import (
	"os"
	"sort"
	"strings"

	"github.com/facette/natsort"
	"github.com/pkg/errors"
)

// Segment - файл вида <цифры>.<расширение>.
type Segment struct {
	Name string // имя файла целиком
	Stem string // часть до последней точки, только цифры
	Ext  string // часть после последней точки, может быть пустой
}

// DirectoryAccessError - каталог не удалось прочитать.
type DirectoryAccessError struct {
	Dir string
	Err error
}

func (e *DirectoryAccessError) Error() string {
	return "нет доступа к каталогу " + e.Dir + ": " + e.Err.Error()
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// Cause для errors.Cause из github.com/pkg/errors.
func (e *DirectoryAccessError) Cause() error { return e.Err }

// Parse разбирает имя файла. ok == false, если имя не подходит под соглашение.
// Имена с переводом строки отбрасываются: строка списка ffmpeg не может их содержать.
func Parse(name string) (Segment, bool) {
	if strings.ContainsAny(name, "\r\n") {
		return Segment{}, false
	}
	stem, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		stem, ext = name[:i], name[i+1:]
	}
	if !isDigits(stem) {
		return Segment{}, false
	}
	return Segment{Name: name, Stem: stem, Ext: ext}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Less сравнивает сегменты по числовому значению номера, без переполнения.
// При равных номерах ("1.ts" и "01.ts") порядок задаёт natsort по полному имени.
func Less(a, b Segment) bool {
	if c := compareDigits(a.Stem, b.Stem); c != 0 {
		return c < 0
	}
	// natsort.Compare возвращает true для обоих порядков, если имена для неё равны
	if ab, ba := natsort.Compare(a.Name, b.Name), natsort.Compare(b.Name, a.Name); ab != ba {
		return ab
	}
	return a.Name < b.Name
}

// compareDigits сравнивает десятичные строки как числа любой длины.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// List возвращает сегменты каталога dir по возрастанию номера.
// Подкаталоги не просматриваются, текущий каталог процесса не меняется.
func List(dir string) ([]Segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryAccessError{Dir: dir, Err: errors.WithStack(err)}
	}

	segs := make([]Segment, 0, len(entries))
	for _, e := range entries {
		// каталог с числовым именем - не сегмент
		if e.IsDir() {
			continue
		}
		if s, ok := Parse(e.Name()); ok {
			segs = append(segs, s)
		}
	}

	sort.Slice(segs, func(i, j int) bool { return Less(segs[i], segs[j]) })
	return segs, nil
}

// Names возвращает имена файлов в том же порядке.
func Names(segs []Segment) []string {
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.Name
	}
	return names
}
