package event

import (
	"fmt"
	"time"
)

// Upper bound on how long a single tick waits for I/O, regardless of what the
// timer source reports.
const maxTimerWait = time.Second

// Default number of I/O events processed per tick.
const DefaultMaxIOEvents = 1

// TimerSource runs due timers without blocking and reports the delay until
// the next one.
type TimerSource interface {
	Poll() (fired int, next time.Duration)
}

// IOSource waits up to timeout for readiness events and dispatches them.
type IOSource interface {
	Poll(timeout time.Duration) (int, error)
}

// PollError is returned by RunTick when the I/O source fails. The caller
// should sleep for Backoff before the next tick to avoid a hot error loop.
type PollError struct {
	Err     error
	Backoff time.Duration
}

func (e *PollError) Error() string {
	return fmt.Sprintf("event: I/O poll failed: %v", e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// Scheduler merges a timer source and an I/O source into a single bounded
// tick.
type Scheduler struct {
	timers TimerSource
	io     IOSource

	// Cap on I/O events processed per tick.
	MaxIOEvents int
}

func NewScheduler(timers TimerSource, io IOSource) *Scheduler {
	return &Scheduler{
		timers:      timers,
		io:          io,
		MaxIOEvents: DefaultMaxIOEvents,
	}
}

// RunTick fires due timers, then waits for I/O no longer than the next timer,
// maxWait, or one second, whichever is soonest. Once an I/O event arrives,
// later polls in the same tick don't wait, so a backlog is drained in bursts
// of up to MaxIOEvents.
func (s *Scheduler) RunTick(maxWait time.Duration) (int, error) {
	count, next := s.timers.Poll()

	// A negative delay would make the I/O poll block forever.
	if next < 0 {
		panic(fmt.Sprintf("event: timer source reported negative delay %v", next))
	}

	timeout := next
	if timeout > maxTimerWait {
		timeout = maxTimerWait
	}
	if maxWait < 0 {
		maxWait = 0
	}
	if timeout > maxWait {
		timeout = maxWait
	}

	limit := s.MaxIOEvents
	if limit < 1 {
		limit = 1
	}

	ioCount := 0
	for ioCount < limit {
		n, err := s.io.Poll(timeout)
		if err != nil {
			return count + ioCount, &PollError{Err: err, Backoff: timeout}
		}
		if n == 0 {
			break
		}
		ioCount += n
		timeout = 0
	}

	return count + ioCount, nil
}
