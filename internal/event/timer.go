package event

import (
	"container/heap"
	"math"
	"sync"
	"time"
)

// NoTimer is the delay reported by Poll when nothing is scheduled.
const NoTimer = time.Duration(math.MaxInt64)

// TimerID identifies a scheduled timer. The zero value never refers to one.
type TimerID uint64

type timer struct {
	id    TimerID
	due   time.Time
	fn    func()
	index int
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].id < q[j].id
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// TimerHeap is a timer source. Timers may be scheduled and cancelled from any
// goroutine, but they only fire from inside Poll.
type TimerHeap struct {
	mu     sync.Mutex
	queue  timerQueue
	byID   map[TimerID]*timer
	nextID TimerID
	now    func() time.Time
}

func NewTimerHeap() *TimerHeap {
	return newTimerHeap(time.Now)
}

func newTimerHeap(now func() time.Time) *TimerHeap {
	return &TimerHeap{
		byID: make(map[TimerID]*timer),
		now:  now,
	}
}

// Schedule arranges for fn to run from the first Poll at least delay from now.
func (h *TimerHeap) Schedule(delay time.Duration, fn func()) TimerID {
	if delay < 0 {
		delay = 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	t := &timer{id: h.nextID, due: h.now().Add(delay), fn: fn}
	heap.Push(&h.queue, t)
	h.byID[t.id] = t
	return t.id
}

// Cancel removes a pending timer. Returns false if it already fired or was
// never scheduled.
func (h *TimerHeap) Cancel(id TimerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&h.queue, t.index)
	delete(h.byID, id)
	return true
}

// Len returns the number of pending timers.
func (h *TimerHeap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Poll runs every timer that is due and reports how many fired, along with the
// delay until the next one (NoTimer if none remain). Callbacks run without the
// lock held, so they may schedule or cancel timers.
func (h *TimerHeap) Poll() (int, time.Duration) {
	fired := 0
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return fired, NoTimer
		}
		now := h.now()
		next := h.queue[0]
		if next.due.After(now) {
			h.mu.Unlock()
			return fired, next.due.Sub(now)
		}
		heap.Pop(&h.queue)
		delete(h.byID, next.id)
		h.mu.Unlock()

		next.fn()
		fired++
	}
}
