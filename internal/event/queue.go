package event

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrQueueClosed = errors.New("event: queue closed")
	ErrQueueFull   = errors.New("event: queue full")
)

// Default number of events buffered before Post starts rejecting them.
const DefaultQueueLength = 256

// Queue is the I/O readiness source. Engine goroutines Post completions to it,
// and the worker runs them from Poll, so that every engine callback executes
// on the worker goroutine.
type Queue struct {
	events chan func()

	closeOnce sync.Once
	closed    chan struct{}
}

func NewQueue(length int) *Queue {
	if length <= 0 {
		length = DefaultQueueLength
	}
	return &Queue{
		events: make(chan func(), length),
		closed: make(chan struct{}),
	}
}

// Post enqueues fn without blocking.
func (q *Queue) Post(fn func()) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.events <- fn:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	default:
		return ErrQueueFull
	}
}

// PostWait enqueues fn, waiting for room if the queue is full. It fails only
// once the queue is closed. Callers must not be the worker itself.
func (q *Queue) PostWait(fn func()) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.events <- fn:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	}
}

// Poll waits up to timeout for one event and runs it. Returns the number of
// events processed (0 or 1).
func (q *Queue) Poll(timeout time.Duration) (int, error) {
	// Drain anything already queued before looking at the timer.
	select {
	case fn := <-q.events:
		fn()
		return 1, nil
	default:
	}

	if timeout <= 0 {
		select {
		case <-q.closed:
			return 0, ErrQueueClosed
		default:
			return 0, nil
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case fn := <-q.events:
		fn()
		return 1, nil
	case <-q.closed:
		return 0, ErrQueueClosed
	case <-t.C:
		return 0, nil
	}
}

// Close wakes any pending Poll and rejects further Posts. Events already
// queued can still be polled.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
