package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger struct {
	// The level at which this logger logs. Any log messages intended for a higher
	// (more verbose) log level are ignored.
	Level

	// Tag used to filter and classify log messages.
	Tag string

	// Destination shared by all derived loggers.
	sink *sink
}

// A sink serializes writes from every logger derived from the same root, so
// that messages from different goroutines don't interleave. It also tracks
// the derived loggers so that a new default level reaches all of them.
type sink struct {
	mu      sync.Mutex
	out     io.Writer
	color   bool
	loggers []*Logger
}

// Write to stderr by default.
var DefaultLogger = newRoot(os.Stderr)

func newRoot(out io.Writer) *Logger {
	s := &sink{out: out, color: true}
	log := &Logger{Level: defaultLevel, sink: s}
	s.loggers = append(s.loggers, log)
	return log
}

// Override the destination for this logger and every logger derived from it.
func (log *Logger) SetDestination(out io.Writer) {
	log.sink.mu.Lock()
	log.sink.out = out
	log.sink.mu.Unlock()
}

// SetColor enables or disables ANSI colors in the output.
func (log *Logger) SetColor(enabled bool) {
	log.sink.mu.Lock()
	log.sink.color = enabled
	log.sink.mu.Unlock()
}

// SetDefaultLevel changes the level of every logger sharing this sink, except
// those whose tag was given an explicit level in $LOGLEVEL.
func (log *Logger) SetDefaultLevel(level Level) {
	log.sink.mu.Lock()
	defer log.sink.mu.Unlock()
	for _, l := range log.sink.loggers {
		l.Level = determineLevel(l.Tag, level)
	}
}

// Derive a new logger with the given tag. Look up the level based on the tag.
func (log *Logger) WithTag(tag string) *Logger {
	child := &Logger{determineLevel(tag, log.Level), tag, log.sink}
	log.sink.mu.Lock()
	log.sink.loggers = append(log.sink.loggers, child)
	log.sink.mu.Unlock()
	return child
}

// Wrapper for []byte that implements io.Writer. Simpler and cheaper than
// bytes.Buffer.
type buffer []byte

func (b *buffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

func (b *buffer) writeString(s string) {
	*b = append(*b, s...)
}

func (b *buffer) writeByte(c byte) {
	*b = append(*b, c)
}

// A global buffer pool, shared across all loggers. Initial capacity is 256 to
// accommodate *most* log lines.
var bufPool = sync.Pool{
	New: func() interface{} {
		return make(buffer, 0, 256)
	},
}

// Log a message at the given level. Include the file and line number from
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if level > log.Level {
		// Message is too verbose for this logger.
		return
	}

	buf := bufPool.Get().(buffer)
	defer func() { bufPool.Put(buf[:0]) }()

	log.sink.mu.Lock()
	colored := log.sink.color
	log.sink.mu.Unlock()

	// Get the caller of Error()/Warn()/Info()/etc.
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}

	header := fmt.Sprintf("%s %c/%s[%s:%d] ",
		time.Now().Format(timestampFormat), level.letter(), log.Tag, filepath.Base(file), line)
	if colored {
		buf.writeString(headerColor.Sprint(header[:len(timestampFormat)+1]))
		buf.writeString(level.color().Sprint(header[len(timestampFormat)+1:]))
	} else {
		buf.writeString(header)
	}

	fmt.Fprintf(&buf, format, a...)

	// Append newline if necessary.
	if n := len(buf); n == 0 || buf[n-1] != '\n' {
		buf.writeByte('\n')
	}

	// Lock before writing to avoid interleaving of log messages.
	log.sink.mu.Lock()
	defer log.sink.mu.Unlock()
	if _, err := log.sink.out.Write(buf); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to log to %v: %v\n", log.sink.out, err)
	}
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}
