package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/OllyCat/mergeTS/internal/segment"
)

// stubFFmpeg пишет скрипт, который сохраняет рабочий каталог и аргументы
// в args.txt рядом с собой, печатает stderr и выходит с кодом code.
func stubFFmpeg(t *testing.T, code int) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg requires a POSIX shell")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	bin = filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\n" +
		"pwd > '" + argsFile + "'\n" +
		"for a in \"$@\"; do printf '%s\\n' \"$a\" >> '" + argsFile + "'; done\n" +
		"echo 'line one' >&2\n" +
		"echo 'concat: something broke' >&2\n" +
		"exit " + strconv.Itoa(code) + "\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, argsFile
}

func readArgs(t *testing.T, path string) (cwd string, args []string) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	return lines[0], lines[1:]
}

func TestArgs(t *testing.T) {
	v := New("ffmpeg", nil)
	got := v.Args("/src/filelist.txt", "/out/a b.mp4")
	want := []string{
		"-hide_banner", "-nostdin", "-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", "/src/filelist.txt",
		"-c", "copy", "/out/a b.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args =\n%q\nwant\n%q", got, want)
	}
}

func TestCommandLine_QuotesSpecialPaths(t *testing.T) {
	v := New("ffmpeg", nil)
	v.LogLevel = ""
	got := v.CommandLine("/src/filelist.txt", `/out/say "hi".mp4`)
	want := `ffmpeg -hide_banner -nostdin -y -f concat -safe 0 -i /src/filelist.txt -c copy "/out/say \"hi\".mp4"`
	if got != want {
		t.Errorf("CommandLine =\n%s\nwant\n%s", got, want)
	}
}

func TestMerge_Success(t *testing.T) {
	bin, argsFile := stubFFmpeg(t, 0)
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), `it's "quoted".mp4`)

	v := New(bin, nil)
	code, err := v.Merge(context.Background(), src, filepath.Join(src, "filelist.txt"), out)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}

	cwd, args := readArgs(t, argsFile)
	wantCwd, _ := filepath.EvalSymlinks(src)
	if gotCwd, _ := filepath.EvalSymlinks(cwd); gotCwd != wantCwd {
		t.Errorf("cwd = %q, want %q", cwd, src)
	}
	if args[len(args)-1] != out {
		t.Errorf("output arg = %q, want %q", args[len(args)-1], out)
	}
	if i := indexOf(args, "-i"); i < 0 || args[i+1] != filepath.Join(src, "filelist.txt") {
		t.Errorf("manifest arg not absolute: %q", args)
	}
}

func TestMerge_RelativeDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg requires a POSIX shell")
	}
	work := t.TempDir()
	// ffmpeg-заглушка выходит с кодом 3, если файла после -i нет
	bin := filepath.Join(work, "ffmpeg")
	script := "#!/bin/sh\n" +
		"prev=\n" +
		"for a in \"$@\"; do\n" +
		"  if [ \"$prev\" = \"-i\" ] && [ ! -f \"$a\" ]; then echo \"missing $a\" >&2; exit 3; fi\n" +
		"  prev=$a\n" +
		"done\n" +
		"exit 0\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(prev) })

	if err := os.Mkdir("clip", 0o755); err != nil {
		t.Fatal(err)
	}
	seg, _ := segment.Parse("1.ts")
	manifest, err := segment.WriteManifest("clip", []segment.Segment{seg})
	if err != nil {
		t.Fatal(err)
	}

	code, err := New(bin, nil).Merge(context.Background(), "clip", manifest, "out.mp4")
	if err != nil || code != 0 {
		t.Fatalf("Merge(%q) = %d, %v", manifest, code, err)
	}
}

func TestMerge_Failure(t *testing.T) {
	bin, _ := stubFFmpeg(t, 1)
	v := New(bin, nil)

	code, err := v.Merge(context.Background(), t.TempDir(), "filelist.txt", filepath.Join(t.TempDir(), "x.mp4"))
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	var mf *MergeFailure
	if !errors.As(err, &mf) {
		t.Fatalf("error = %v, want *MergeFailure", err)
	}
	if mf.ExitCode != 1 {
		t.Errorf("ExitCode = %d", mf.ExitCode)
	}
	if !strings.Contains(mf.Stderr, "concat: something broke") {
		t.Errorf("Stderr = %q", mf.Stderr)
	}
}

func TestMerge_ExitCodeUnchanged(t *testing.T) {
	bin, _ := stubFFmpeg(t, 7)
	code, err := New(bin, nil).Merge(context.Background(), t.TempDir(), "filelist.txt", filepath.Join(t.TempDir(), "x.mp4"))
	if code != 7 || err == nil {
		t.Errorf("code = %d, err = %v; want 7 and an error", code, err)
	}
}

func TestMerge_MissingBinary(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "no-such-ffmpeg"), nil)
	code, err := v.Merge(context.Background(), t.TempDir(), "filelist.txt", filepath.Join(t.TempDir(), "x.mp4"))
	if code != -1 {
		t.Errorf("code = %d, want -1", code)
	}
	var mf *MergeFailure
	if !errors.As(err, &mf) || mf.ExitCode != -1 {
		t.Fatalf("error = %v, want launch *MergeFailure", err)
	}
	if !strings.Contains(mf.Error(), "проверьте установку ffmpeg") {
		t.Errorf("message lacks installation hint: %s", mf.Error())
	}
}

func TestTail(t *testing.T) {
	s := "a\n\nb\n  \nc\nd\n"
	if got := Tail(s, 2); got != "c\nd" {
		t.Errorf("Tail = %q", got)
	}
	if got := Tail(s, 10); got != "a\nb\nc\nd" {
		t.Errorf("Tail = %q", got)
	}
	if got := Tail("", 3); got != "" {
		t.Errorf("Tail(empty) = %q", got)
	}
}

func TestVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg requires a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\necho 'ffmpeg version 6.1 Copyright'\necho 'built with gcc'\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	line, err := Version(context.Background(), bin)
	if err != nil {
		t.Fatal(err)
	}
	if line != "ffmpeg version 6.1 Copyright" {
		t.Errorf("Version = %q", line)
	}

	if _, err := Version(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing binary")
	}
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
