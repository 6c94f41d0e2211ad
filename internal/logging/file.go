package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// TeeFile appends all subsequent output to the named file, in addition to the
// current destination. Colors are disabled so the file stays readable. The
// returned closer restores the previous destination and closes the file.
func (log *Logger) TeeFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}

	log.sink.mu.Lock()
	prev := log.sink.out
	log.sink.out = io.MultiWriter(prev, f)
	log.sink.color = false
	log.sink.mu.Unlock()

	return &teeCloser{log: log, prev: prev, f: f}, nil
}

type teeCloser struct {
	log  *Logger
	prev io.Writer
	f    *os.File
}

func (t *teeCloser) Close() error {
	t.log.SetDestination(t.prev)
	return t.f.Close()
}
