package sdp

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/icecam/internal/ice"
)

// Highest component ID accepted in a remote candidate.
const maxComponentID = 256

// Decode parses a remote description from lines of text. Decoding stops at
// the first empty line. On error nothing is returned, so the caller never
// holds a partial description.
func Decode(lines []string) (*RemoteSessionInfo, error) {
	d := newDecoder()
	for _, line := range lines {
		done, err := d.line(line)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return d.finish()
}

// DecodeString is Decode for a single block of text.
func DecodeString(text string) (*RemoteSessionInfo, error) {
	var lines []string
	for text != "" {
		var line string
		line, text = nextLine(text)
		lines = append(lines, line)
	}
	return Decode(lines)
}

// DecodeReader is Decode reading lines from r, until an empty line or EOF.
func DecodeReader(r io.Reader) (*RemoteSessionInfo, error) {
	d := newDecoder()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		done, err := d.line(scanner.Text())
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return d.finish()
}

type decoder struct {
	info RemoteSessionInfo

	media       int
	defaultPort int
	defaultIP   string
	defcands    int
	defaults    map[int]ice.TransportAddress
}

func newDecoder() *decoder {
	return &decoder{defaults: make(map[int]ice.TransportAddress)}
}

// line consumes one line of input and reports whether it ended the
// description.
func (d *decoder) line(raw string) (done bool, err error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return true, nil
	}
	if d.media > 1 {
		// Everything after a second media section is skipped.
		return false, nil
	}

	switch line[0] {
	case 'm', 'c', 'a':
	default:
		return false, nil
	}
	typecode, value, err := splitTypeValue(line)
	if err != nil {
		return false, &ParseError{"session", line, err}
	}

	switch typecode {
	case 'm':
		err = d.mediaLine(line, value)
	case 'c':
		err = d.connectionLine(line, value)
	case 'a':
		err = d.attributeLine(line, value)
	}
	return false, err
}

func (d *decoder) mediaLine(line, value string) error {
	d.media++
	if d.media > 1 {
		log.Warn("Media line ignored: %s", line)
		return nil
	}

	fields := strings.Fields(value)
	if len(fields) < 2 {
		return &ParseError{"media", line, nil}
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil || port < 0 || port > 65535 {
		return &ParseError{"media", line, err}
	}
	d.defaultPort = port
	return nil
}

func (d *decoder) connectionLine(line, value string) error {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return &ParseError{"connection", line, nil}
	}
	d.defaultIP = fields[2]
	return nil
}

func (d *decoder) attributeLine(line, value string) error {
	name, val := splitAttribute(value)
	switch name {
	case "ice-ufrag":
		d.info.Ufrag = val
	case "ice-pwd":
		d.info.Password = val
	case "rtcp":
		addr, err := parseDefaultAddress(val)
		if err != nil {
			return &ParseError{"rtcp", line, err}
		}
		d.defaults[2] = addr
	case "Xice-defcand":
		addr, err := parseDefaultAddress(val)
		if err != nil {
			return &ParseError{"default candidate", line, err}
		}
		d.defaults[3+d.defcands] = addr
		d.defcands++
	case "candidate":
		c, err := parseCandidate(val)
		if err != nil {
			return &ParseError{"candidate", line, err}
		}
		d.info.Candidates = append(d.info.Candidates, c)
		if c.Component > d.info.ComponentCount {
			d.info.ComponentCount = c.Component
		}
	}
	return nil
}

// parseDefaultAddress parses "<port> IN <net-type> <address>".
func parseDefaultAddress(s string) (ice.TransportAddress, error) {
	fields := strings.Fields(s)
	if len(fields) < 4 || fields[1] != "IN" {
		return ice.TransportAddress{}, errors.New("expected <port> IN <net-type> <address>")
	}
	port, err := strconv.Atoi(fields[0])
	if err != nil {
		return ice.TransportAddress{}, err
	}
	return ice.ParseTransportAddress(fields[3], port)
}

// parseCandidate parses the value of an a=candidate attribute:
//
//	<foundation> <component> <transport> <priority> <address> <port> typ <type> ...
//
// Anything after the type, such as raddr or generation, is ignored.
func parseCandidate(s string) (c ice.Candidate, err error) {
	f := strings.Fields(s)
	if len(f) < 8 || f[6] != "typ" {
		err = errors.Errorf("expected 8 fields, got %d", len(f))
		return
	}

	c.Foundation = f[0]
	if len(c.Foundation) > ice.MaxFoundationLength {
		err = errors.Errorf("foundation longer than %d bytes", ice.MaxFoundationLength)
		return
	}
	for i := 0; i < len(c.Foundation); i++ {
		if ch := c.Foundation[i]; ch <= ' ' || ch > '~' {
			err = errors.Errorf("foundation has non-ASCII byte 0x%02x", ch)
			return
		}
	}

	c.Component, err = strconv.Atoi(f[1])
	if err != nil {
		return
	}
	if c.Component < 1 || c.Component > maxComponentID {
		err = errors.Errorf("component %d: %w", c.Component, ice.ErrInvalidComponent)
		return
	}

	// f[2] is the transport. Everything is UDP.

	priority, err := strconv.ParseUint(f[3], 10, 32)
	if err != nil {
		return
	}
	c.Priority = uint32(priority)

	port, err := strconv.Atoi(f[5])
	if err != nil {
		return
	}
	if c.Address, err = ice.ParseTransportAddress(f[4], port); err != nil {
		return
	}

	c.Type, err = ice.ParseCandidateType(f[7])
	return
}

// finish validates what was decoded.
func (d *decoder) finish() (*RemoteSessionInfo, error) {
	info := d.info
	if len(info.Candidates) == 0 || info.Ufrag == "" || info.Password == "" || info.ComponentCount == 0 {
		return nil, ErrIncomplete
	}

	if d.defaultPort == 0 || d.defaultIP == "" {
		return nil, errors.Errorf("component 1: %w", ErrNoDefaultAddress)
	}
	addr, err := ice.ParseTransportAddress(d.defaultIP, d.defaultPort)
	if err != nil {
		return nil, &ParseError{"connection", d.defaultIP, err}
	}
	d.defaults[1] = addr

	info.DefaultAddress = make([]ice.TransportAddress, info.ComponentCount)
	for comp := 1; comp <= info.ComponentCount; comp++ {
		a, ok := d.defaults[comp]
		if !ok {
			return nil, errors.Errorf("component %d: %w", comp, ErrNoDefaultAddress)
		}
		info.DefaultAddress[comp-1] = a
	}
	return &info, nil
}
