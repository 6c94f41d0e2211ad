// Package sdp implements the small session description icecam peers paste to
// each other: ICE credentials, one default address per component, and the
// candidate list. It is a subset of
// - RFC 4566 (https://tools.ietf.org/html/rfc4566)
// - https://tools.ietf.org/html/draft-ietf-mmusic-ice-sip-sdp-21
package sdp

import (
	"fmt"
	"strings"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/icecam/internal/logging"
)

var log = logging.DefaultLogger.WithTag("sdp")

var (
	// ErrTooSmall is returned when an encoded description would not fit the
	// caller's capacity.
	ErrTooSmall = errors.New("sdp: description exceeds capacity")

	// ErrIncomplete is returned when a decoded description lacks credentials
	// or candidates.
	ErrIncomplete = errors.New("sdp: not enough info")

	// ErrNoDefaultAddress is returned when a component has candidates but no
	// default address line.
	ErrNoDefaultAddress = errors.New("sdp: default address not found")
)

// Fixed session-level lines. Peers ignore their content.
const header = "v=0\n" +
	"o=- 3414953978 3414953978 IN IP4 localhost\n" +
	"s=ice\n" +
	"t=0 0\n"

// A ParseError reports the offending line of a remote description.
type ParseError struct {
	Which string
	Value string
	Cause error
}

func (e *ParseError) Error() (msg string) {
	msg = fmt.Sprintf("SDP parser: Invalid %s description: %q", e.Which, e.Value)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// writer accumulates output and remembers whether it outgrew its capacity.
// A capacity of zero or less is unlimited.
type writer struct {
	b        strings.Builder
	capacity int
}

func (w *writer) Write(fragments ...string) {
	for _, s := range fragments {
		w.b.WriteString(s)
	}
}

func (w *writer) Writef(format string, args ...interface{}) {
	fmt.Fprintf(&w.b, format, args...)
}

// Result returns the accumulated text, or nothing at all if it does not fit.
func (w *writer) Result() (string, error) {
	if w.capacity > 0 && w.b.Len() > w.capacity {
		return "", errors.Errorf("%d bytes needed, %d available: %w", w.b.Len(), w.capacity, ErrTooSmall)
	}
	return w.b.String(), nil
}

func nextLine(input string) (line string, remainder string) {
	n := strings.IndexByte(input, '\n')
	if n == -1 {
		line = input
	} else {
		if n > 0 && input[n-1] == '\r' {
			// Leave off the carriage return.
			line = input[:n-1]
		} else {
			line = input[:n]
		}
		remainder = input[n+1:]
	}
	return
}

func splitTypeValue(line string) (typecode byte, value string, err error) {
	if len(line) < 2 || line[1] != '=' {
		err = errors.Errorf("invalid SDP line: %s", line)
		return
	}
	typecode = line[0]
	value = line[2:]
	return
}

// splitAttribute separates an attribute name from its value at the first
// colon, space or tab.
func splitAttribute(s string) (name, value string) {
	n := strings.IndexAny(s, ": \t")
	if n == -1 {
		return s, ""
	}
	return s[:n], s[n+1:]
}
