// Package console is the operator's command loop.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lanikai/icecam/internal/ice"
	"github.com/lanikai/icecam/internal/logging"
	"github.com/lanikai/icecam/internal/session"
)

var log = logging.DefaultLogger.WithTag("console")

// ParseRole accepts o or offerer for the controlling side, and a or answerer
// for the controlled side.
func ParseRole(s string) (ice.Role, error) {
	switch strings.ToLower(s) {
	case "o", "offerer", "controlling":
		return ice.Controlling, nil
	case "a", "answerer", "controlled":
		return ice.Controlled, nil
	}
	return 0, errors.Errorf("invalid role %q, expected o or a", s)
}

type Console struct {
	ctrl *session.Controller
	in   io.Reader
	out  io.Writer

	lines <-chan string
}

func New(ctrl *session.Controller, in io.Reader, out io.Writer) *Console {
	return &Console{ctrl: ctrl, in: in, out: out}
}

// Run reads commands until quit, end of input, or cancellation. Engine events
// are applied while it waits.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.lines = readLines(ctx, c.in)

	fmt.Fprint(c.out, menu)
	for {
		fmt.Fprint(c.out, "Input: ")
		line, ok, err := c.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out)
			return nil
		}
		quit, err := c.dispatch(ctx, line)
		if err != nil || quit {
			return err
		}
	}
}

// readLines feeds input lines to the returned channel. The channel is closed
// at end of input.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("Error reading input: %v", err)
		}
	}()
	return lines
}

// next waits for an input line, applying engine events in the meantime.
func (c *Console) next(ctx context.Context) (string, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-c.ctrl.Notify():
			c.ctrl.ProcessEvents()
		case line, ok := <-c.lines:
			return line, ok, nil
		}
	}
}

func (c *Console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *Console) dispatch(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch cmd := fields[0]; cmd {
	case "create", "c":
		c.report(c.ctrl.Create())

	case "destroy", "d":
		c.report(c.ctrl.Destroy())

	case "init", "i":
		if len(fields) < 2 {
			fmt.Fprintln(c.out, "Error: Role required")
			break
		}
		role, err := ParseRole(fields[1])
		if err != nil {
			c.report(err)
			break
		}
		c.report(c.ctrl.InitSession(role))

	case "stop", "e":
		c.report(c.ctrl.StopSession())

	case "show", "s":
		c.report(c.ctrl.Show(c.out))

	case "remote", "r":
		return false, c.inputRemote(ctx)

	case "start", "b":
		c.report(c.ctrl.StartNegotiation())

	case "send", "x":
		if len(fields) < 2 {
			fmt.Fprintln(c.out, "Error: component ID required")
			break
		}
		comp, err := strconv.Atoi(fields[1])
		if err != nil {
			c.report(errors.Wrapf(session.ErrInvalidComponent, "%q", fields[1]))
			break
		}
		c.report(c.ctrl.SendData(comp, []byte(skipFields(line, 2))))

	case "help", "h":
		fmt.Fprint(c.out, help)

	case "menu":
		fmt.Fprint(c.out, menu)

	case "quit", "q":
		return true, nil

	default:
		fmt.Fprintf(c.out, "Invalid command '%s'\n", cmd)
	}
	return false, nil
}

// inputRemote reads a pasted description, up to an empty line.
func (c *Console) inputRemote(ctx context.Context) error {
	fmt.Fprintln(c.out, "Paste SDP from remote host, end with empty line")
	var lines []string
	for {
		fmt.Fprint(c.out, ">")
		line, ok, err := c.next(ctx)
		if err != nil {
			return err
		}
		if !ok || strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	c.report(c.ctrl.InputRemote(lines))
	return nil
}

// skipFields returns s after its first n whitespace-separated fields.
func skipFields(s string, n int) string {
	for i := 0; i < n; i++ {
		s = strings.TrimLeft(s, " \t")
		end := strings.IndexAny(s, " \t")
		if end == -1 {
			return ""
		}
		s = s[end:]
	}
	return strings.TrimLeft(s, " \t")
}
