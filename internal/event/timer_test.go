package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTimerHeapFiresInDueOrder(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	h := newTimerHeap(clock.now)

	var order []string
	h.Schedule(30*time.Millisecond, func() { order = append(order, "c") })
	h.Schedule(10*time.Millisecond, func() { order = append(order, "a") })
	h.Schedule(20*time.Millisecond, func() { order = append(order, "b") })

	fired, next := h.Poll()
	assert.Equal(t, 0, fired)
	assert.Equal(t, 10*time.Millisecond, next)

	clock.advance(25 * time.Millisecond)
	fired, next = h.Poll()
	assert.Equal(t, 2, fired)
	assert.Equal(t, 5*time.Millisecond, next)
	assert.Equal(t, []string{"a", "b"}, order)

	clock.advance(5 * time.Millisecond)
	fired, next = h.Poll()
	assert.Equal(t, 1, fired)
	assert.Equal(t, NoTimer, next)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTimerHeapCancel(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	h := newTimerHeap(clock.now)

	ran := false
	id := h.Schedule(time.Millisecond, func() { ran = true })
	h.Schedule(time.Hour, func() {})

	assert.True(t, h.Cancel(id))
	assert.False(t, h.Cancel(id))
	assert.Equal(t, 1, h.Len())

	clock.advance(time.Second)
	fired, next := h.Poll()
	assert.Equal(t, 0, fired)
	assert.False(t, ran)
	assert.True(t, next > 0)
}

func TestTimerCallbackMayReschedule(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	h := newTimerHeap(clock.now)

	count := 0
	var tick func()
	tick = func() {
		count++
		h.Schedule(time.Second, tick)
	}
	h.Schedule(0, tick)

	fired, next := h.Poll()
	assert.Equal(t, 1, fired)
	assert.Equal(t, time.Second, next)
	assert.Equal(t, 1, count)
}
