package segment

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ManifestName - имя списка сегментов, который читает ffmpeg.
const ManifestName = "filelist.txt"

// ManifestWriteError - список не удалось записать.
type ManifestWriteError struct {
	Path string
	Err  error
}

func (e *ManifestWriteError) Error() string {
	return "не удалось записать " + e.Path + ": " + e.Err.Error()
}

func (e *ManifestWriteError) Unwrap() error { return e.Err }

// Cause для errors.Cause из github.com/pkg/errors.
func (e *ManifestWriteError) Cause() error { return e.Err }

// Quote заключает имя в одинарные кавычки по правилам concat demuxer:
// кавычка внутри имени записывается как '\''. Переводов строки в name быть не должно,
// их отсекает Parse.
func Quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", `'\''`) + "'"
}

// Encode пишет в w по строке "file '<имя>'" на каждый сегмент.
func Encode(w io.Writer, segs []Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segs {
		if _, err := bw.WriteString("file " + Quote(s.Name) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteManifest перезаписывает dir/filelist.txt и возвращает путь к нему.
// Пустой segs даёт пустой файл.
func WriteManifest(dir string, segs []Segment) (string, error) {
	path := filepath.Join(dir, ManifestName)

	f, err := os.Create(path)
	if err != nil {
		return "", &ManifestWriteError{Path: path, Err: errors.WithStack(err)}
	}

	if err := Encode(f, segs); err != nil {
		f.Close()
		return "", &ManifestWriteError{Path: path, Err: errors.WithStack(err)}
	}
	if err := f.Close(); err != nil {
		return "", &ManifestWriteError{Path: path, Err: errors.WithStack(err)}
	}
	return path, nil
}
