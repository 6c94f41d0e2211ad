package logging

import (
	"fmt"

	plog "github.com/pion/logging"
)

// pion logs connectivity checks at Debug and Trace, far more than we want to
// see at our own Debug level, so its levels are shifted down one notch.
const (
	pionDebug = Debug + 1
	pionTrace = Debug + 2
)

type pionFactory struct {
	base *Logger
}

// NewPionFactory returns a pion LoggerFactory whose loggers write through
// base, tagged "pion/<scope>".
func NewPionFactory(base *Logger) plog.LoggerFactory {
	return &pionFactory{base}
}

func (f *pionFactory) NewLogger(scope string) plog.LeveledLogger {
	return &pionLogger{f.base.WithTag("pion/" + scope)}
}

type pionLogger struct {
	log *Logger
}

// Call depth 1 attributes each message to the pion function that logged it.
func (p *pionLogger) Trace(msg string) { p.log.Log(pionTrace, 1, "%s", msg) }
func (p *pionLogger) Tracef(format string, args ...interface{}) {
	p.log.Log(pionTrace, 1, "%s", fmt.Sprintf(format, args...))
}
func (p *pionLogger) Debug(msg string) { p.log.Log(pionDebug, 1, "%s", msg) }
func (p *pionLogger) Debugf(format string, args ...interface{}) {
	p.log.Log(pionDebug, 1, "%s", fmt.Sprintf(format, args...))
}
func (p *pionLogger) Info(msg string) { p.log.Log(Debug, 1, "%s", msg) }
func (p *pionLogger) Infof(format string, args ...interface{}) {
	p.log.Log(Debug, 1, "%s", fmt.Sprintf(format, args...))
}
func (p *pionLogger) Warn(msg string) { p.log.Log(Warn, 1, "%s", msg) }
func (p *pionLogger) Warnf(format string, args ...interface{}) {
	p.log.Log(Warn, 1, "%s", fmt.Sprintf(format, args...))
}
func (p *pionLogger) Error(msg string) { p.log.Log(Error, 1, "%s", msg) }
func (p *pionLogger) Errorf(format string, args ...interface{}) {
	p.log.Log(Error, 1, "%s", fmt.Sprintf(format, args...))
}
