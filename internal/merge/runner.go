package merge

import (
	"context"
	"sync"
	"sync/atomic"
)

// EventKind - тип события от фоновой сборки.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventDone
)

// Event - сообщение из горутины сборки в интерфейс.
type Event struct {
	Kind    EventKind
	Text    string  // EventLog
	Value   float64 // EventProgress
	Summary Summary // EventDone
}

// queue - неограниченная очередь FIFO: один писатель, один читатель.
type queue struct {
	mu     sync.Mutex
	events []Event
}

func (q *queue) push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// finish добавляет e и вызывает f под той же блокировкой, что и drain.
func (q *queue) finish(e Event, f func()) {
	q.mu.Lock()
	q.events = append(q.events, e)
	f()
	q.mu.Unlock()
}

func (q *queue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// queueSink кладёт Log и Progress в очередь, а итог придерживает до конца запуска.
type queueSink struct {
	q    *queue
	done *Summary
}

func (s queueSink) Log(line string)    { s.q.push(Event{Kind: EventLog, Text: line}) }
func (s queueSink) Progress(v float64) { s.q.push(Event{Kind: EventProgress, Value: v}) }
func (s queueSink) Done(sum Summary)   { *s.done = sum }

// Runner выполняет Orchestrator в отдельной горутине. Интерфейс забирает
// события через Poll по таймеру, не блокируясь.
type Runner struct {
	orch   *Orchestrator
	q      queue
	active atomic.Bool
	wg     sync.WaitGroup
}

// NewRunner создаёт Runner поверх o.
func NewRunner(o *Orchestrator) *Runner {
	return &Runner{orch: o}
}

// Start запускает сборку в фоне. Если сборка уже идёт, ничего не делает и возвращает false.
func (r *Runner) Start(ctx context.Context, req Request) bool {
	if !r.active.CompareAndSwap(false, true) {
		return false
	}
	r.wg.Add(1)
	go r.work(ctx, req)
	return true
}

func (r *Runner) work(ctx context.Context, req Request) {
	defer r.wg.Done()

	var sum Summary
	got, err := r.orch.Run(ctx, req, queueSink{q: &r.q, done: &sum})
	if err == ErrAlreadyRunning {
		// Orchestrator занят синхронным вызовом, итога от него не было
		sum = got
		sum.Err = err
		sum.Message = err.Error()
	}

	// Running() == false только вместе с Done в очереди
	r.q.finish(Event{Kind: EventDone, Summary: sum}, func() { r.active.Store(false) })
}

// Running сообщает, идёт ли сборка.
func (r *Runner) Running() bool {
	return r.active.Load()
}

// Poll забирает накопившиеся события в порядке поступления.
func (r *Runner) Poll() []Event {
	return r.q.drain()
}

// Wait ждёт завершения текущей сборки.
func (r *Runner) Wait() {
	r.wg.Wait()
}
