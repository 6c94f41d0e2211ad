package session

import (
	"net"
	"strings"
	"sync"
)

type eventKind int

const (
	negotiationComplete eventKind = iota
	dataReceived
)

// An engineEvent is a callback from the ICE engine, queued for the
// controller's goroutine.
type engineEvent struct {
	generation uint64
	kind       eventKind

	err error

	component int
	data      []byte
	src       net.Addr
}

// eventSink is an unbounded queue, so the engine side never blocks.
type eventSink struct {
	mu      sync.Mutex
	pending []engineEvent
	notify  chan struct{}
}

func newEventSink() *eventSink {
	return &eventSink{notify: make(chan struct{}, 1)}
}

func (s *eventSink) push(ev engineEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *eventSink) drain() []engineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.pending
	s.pending = nil
	return events
}

// Longest payload prefix shown when data arrives.
const previewLength = 80

// preview renders a payload for the log. Bytes outside printable ASCII are
// shown as dots.
func preview(data []byte) string {
	truncated := len(data) > previewLength
	if truncated {
		data = data[:previewLength]
	}

	var b strings.Builder
	for _, ch := range data {
		if ch >= 0x20 && ch < 0x7f {
			b.WriteByte(ch)
		} else {
			b.WriteByte('.')
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
