package merge

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// collect опрашивает Runner как интерфейс по таймеру, пока не придёт EventDone.
func collect(t *testing.T, r *Runner) []Event {
	t.Helper()
	var all []Event
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			t.Fatalf("no done event, got %+v", all)
		case <-tick.C:
			for _, e := range r.Poll() {
				all = append(all, e)
				if e.Kind == EventDone {
					return all
				}
			}
		}
	}
}

func TestRunner_Events(t *testing.T) {
	root := t.TempDir()
	mkSegments(t, filepath.Join(root, "A"), "1.ts", "2.ts", "3.ts")
	mkSegments(t, filepath.Join(root, "B"))
	mkSegments(t, filepath.Join(root, "C"), "1.ts", "2.ts")

	r := NewRunner(newOrch(&fakeMerger{}, Options{}))
	if !r.Start(context.Background(), Request{Mode: ModeMulti, Source: root, Output: t.TempDir()}) {
		t.Fatal("Start returned false on idle runner")
	}
	events := collect(t, r)
	r.Wait()

	var progress []float64
	var logs int
	for _, e := range events {
		switch e.Kind {
		case EventProgress:
			progress = append(progress, e.Value)
		case EventLog:
			logs++
		}
	}
	if len(progress) != 3 || progress[2] != 100 {
		t.Errorf("progress = %v", progress)
	}
	if logs == 0 {
		t.Error("no log events")
	}
	done := events[len(events)-1]
	if done.Summary.Total != 3 || done.Summary.Merged != 2 || done.Summary.Skipped != 1 {
		t.Errorf("summary = %+v", done.Summary)
	}
	if r.Running() {
		t.Error("runner still active after done")
	}
	if len(r.Poll()) != 0 {
		t.Error("events left after done")
	}
}

func TestRunner_SecondStartIsNoop(t *testing.T) {
	src := filepath.Join(t.TempDir(), "v")
	mkSegments(t, src, "1.ts", "2.ts")
	fm := &fakeMerger{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRunner(newOrch(fm, Options{}))
	req := Request{Mode: ModeSingle, Source: src, Output: t.TempDir()}

	if !r.Start(context.Background(), req) {
		t.Fatal("first Start returned false")
	}
	<-fm.started
	if !r.Running() {
		t.Error("Running() = false during merge")
	}
	if r.Start(context.Background(), req) {
		t.Error("second Start during active run returned true")
	}
	close(fm.release)

	events := collect(t, r)
	r.Wait()

	if n := len(fm.Calls()); n != 1 {
		t.Errorf("merge called %d times, want 1", n)
	}
	dones := 0
	for _, e := range events {
		if e.Kind == EventDone {
			dones++
		}
	}
	if dones != 1 {
		t.Errorf("got %d done events", dones)
	}
}

func TestRunner_RestartAfterDone(t *testing.T) {
	src := filepath.Join(t.TempDir(), "v")
	mkSegments(t, src, "1.ts")
	fm := &fakeMerger{}
	r := NewRunner(newOrch(fm, Options{}))
	req := Request{Mode: ModeSingle, Source: src, Output: t.TempDir()}

	for i := 0; i < 2; i++ {
		if !r.Start(context.Background(), req) {
			t.Fatalf("Start #%d returned false", i+1)
		}
		collect(t, r)
		r.Wait()
	}
	if n := len(fm.Calls()); n != 2 {
		t.Errorf("merge called %d times, want 2", n)
	}
}

func TestRunner_WholeRunError(t *testing.T) {
	r := NewRunner(newOrch(&fakeMerger{}, Options{}))
	r.Start(context.Background(), Request{Mode: ModeMulti, Source: filepath.Join(t.TempDir(), "missing"), Output: t.TempDir()})
	events := collect(t, r)
	r.Wait()

	done := events[len(events)-1]
	if done.Summary.Err == nil {
		t.Errorf("summary = %+v, want error", done.Summary)
	}
	var last = -1.0
	for _, e := range events {
		if e.Kind == EventProgress {
			last = e.Value
		}
	}
	if last != 0 {
		t.Errorf("last progress = %v, want 0", last)
	}
}

func TestRunner_OrchestratorBusy(t *testing.T) {
	src := filepath.Join(t.TempDir(), "v")
	mkSegments(t, src, "1.ts")
	fm := &fakeMerger{started: make(chan struct{}, 1), release: make(chan struct{})}
	o := newOrch(fm, Options{})
	req := Request{Mode: ModeSingle, Source: src, Output: t.TempDir()}

	go o.Run(context.Background(), req, nil)
	<-fm.started

	r := NewRunner(o)
	r.Start(context.Background(), req)
	events := collect(t, r)
	r.Wait()
	close(fm.release)

	if done := events[len(events)-1]; done.Summary.Err != ErrAlreadyRunning {
		t.Errorf("summary err = %v, want ErrAlreadyRunning", done.Summary.Err)
	}
}

func TestRunner_IdleOnlyWithDoneQueued(t *testing.T) {
	src := filepath.Join(t.TempDir(), "v")
	mkSegments(t, src, "1.ts")
	req := Request{Mode: ModeSingle, Source: src, Output: t.TempDir()}

	for i := 0; i < 50; i++ {
		fm := &fakeMerger{started: make(chan struct{}, 1), release: make(chan struct{})}
		r := NewRunner(newOrch(fm, Options{}))
		if !r.Start(context.Background(), req) {
			t.Fatal("Start returned false on idle runner")
		}
		<-fm.started
		close(fm.release)

		// интерфейс, увидевший Running() == false, должен получить Done следующим Poll
		var all []Event
		deadline := time.Now().Add(5 * time.Second)
		for {
			running := r.Running()
			all = append(all, r.Poll()...)
			if !running {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("runner never became idle")
			}
		}
		if len(all) == 0 || all[len(all)-1].Kind != EventDone {
			t.Fatalf("run %d: idle without done event, events %+v", i, all)
		}
		r.Wait()
	}
}
