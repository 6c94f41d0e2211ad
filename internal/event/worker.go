package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lanikai/icecam/internal/logging"
)

var log = logging.DefaultLogger.WithTag("event")

// Default wait bound for each tick of the worker loop.
const DefaultTickBound = 500 * time.Millisecond

// How long Stop waits beyond one tick bound for the worker to exit.
const joinSlack = time.Second

type call struct {
	fn   func()
	done chan struct{}
}

// Worker drives a Scheduler from a dedicated goroutine until stopped.
type Worker struct {
	sched *Scheduler
	bound time.Duration
	sleep func(time.Duration)

	quit    atomic.Bool
	started atomic.Bool
	calls   chan call
	done    chan struct{}

	stopOnce sync.Once
}

func NewWorker(sched *Scheduler, bound time.Duration) *Worker {
	if bound <= 0 {
		bound = DefaultTickBound
	}
	return &Worker{
		sched: sched,
		bound: bound,
		sleep: time.Sleep,
		calls: make(chan call),
		done:  make(chan struct{}),
	}
}

// Start launches the worker goroutine. Calling Start more than once has no
// effect.
func (w *Worker) Start() {
	if w.started.Swap(true) {
		return
	}
	go w.loop()
}

func (w *Worker) loop() {
	defer close(w.done)

	for !w.quit.Load() {
		w.runCalls()

		_, err := w.sched.RunTick(w.bound)
		if err != nil {
			log.Warn("%v", err)
			if pe, ok := err.(*PollError); ok && pe.Backoff > 0 {
				w.sleep(pe.Backoff)
			}
		}
	}
}

// Run any calls handed over by Do since the previous tick.
func (w *Worker) runCalls() {
	for {
		select {
		case c := <-w.calls:
			c.fn()
			close(c.done)
		default:
			return
		}
	}
}

// Do runs fn on the worker goroutine between ticks and waits for it to
// return. This guarantees fn never overlaps a timer or I/O poll. If the worker
// isn't running, fn runs on the caller's goroutine.
func (w *Worker) Do(fn func()) {
	if !w.started.Load() {
		fn()
		return
	}

	c := call{fn: fn, done: make(chan struct{})}
	select {
	case w.calls <- c:
		<-c.done
	case <-w.done:
		fn()
	}
}

// Stop asks the worker to exit after its current tick, sleeps grace to let
// in-flight engine work settle, and waits for the goroutine to exit. The wait
// is bounded by joinSlack past one tick.
func (w *Worker) Stop(grace time.Duration) {
	w.stopOnce.Do(func() {
		if grace > 0 {
			time.Sleep(grace)
		}
		w.quit.Store(true)
		if !w.started.Load() {
			return
		}

		limit := w.bound + joinSlack
		t := time.NewTimer(limit)
		defer t.Stop()
		select {
		case <-w.done:
		case <-t.C:
			log.Warn("Worker did not exit within %v", limit)
		}
	})
}
