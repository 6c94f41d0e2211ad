// Package ice holds the candidate data model and the ICE engine that
// gathers, checks and nominates candidates on our behalf.
package ice

import (
	"net"
	"time"

	"github.com/lanikai/icecam/internal/logging"
)

var log = logging.DefaultLogger.WithTag("ice")

// Role is the side of the negotiation we take. The offerer is controlling.
type Role int

const (
	Controlling Role = iota
	Controlled
)

func (r Role) String() string {
	if r == Controlled {
		return "controlled"
	}
	return "controlling"
}

// Engine settings.
type Config struct {
	// Host:port of STUN server. Empty disables server-reflexive candidates.
	STUNServer string

	// Host:port of TURN server. Empty disables relayed candidates.
	TURNServer   string
	TURNUsername string
	TURNPassword string
	TURNOverTCP  bool

	// IP[:port] of the DNS server used to resolve the STUN and TURN hosts.
	// Empty uses the system resolver.
	Nameserver string

	// Most local addresses gathered as host candidates. Zero is unlimited.
	MaxHostCandidates int

	// Whether or not to allow IPv6 ICE candidates
	EnableIPv6 bool

	// Local UDP port range. Zero means any.
	PortMin uint16
	PortMax uint16

	// How long negotiation may run before it is declared failed.
	NegotiationTimeout time.Duration

	// STUN keepalive interval on the selected pair.
	KeepaliveInterval time.Duration

	// Period of the selected-pair log after negotiation succeeds. Zero
	// disables it.
	StatsInterval time.Duration
}

// Callbacks are invoked from the event worker goroutine, never concurrently
// with each other.
type Callbacks struct {
	// Called once per negotiation, with nil on success.
	OnNegotiationComplete func(err error)

	// Called for each application packet received on a component.
	OnDataReceived func(component int, data []byte, src net.Addr)
}

// Engine creates ICE instances.
type Engine interface {
	Create(cfg Config, components int, cb Callbacks) (Instance, error)
}

// An Instance is one ICE transport with a fixed number of components. It
// hosts at most one session at a time.
type Instance interface {
	// Destroy ends any session and releases the instance. Idempotent.
	Destroy() error

	InitSession(role Role) error
	StopSession() error
	HasSession() bool
	Role() Role

	// StartNegotiation hands the remote credentials and candidates to the
	// engine and begins connectivity checks. Completion is reported through
	// Callbacks.OnNegotiationComplete.
	StartNegotiation(remoteUfrag, remotePwd string, remote []Candidate) error
	IsRunning() bool
	IsComplete() bool

	// Configured component count.
	Components() int

	// Number of components in the active session, 0 without one.
	RunningComponents() int

	LocalCredentials() (ufrag, pwd string, err error)
	LocalCandidates(component int) ([]Candidate, error)
	DefaultCandidate(component int) (Candidate, error)

	// Send transmits data on a component. dest is the peer's default address
	// for the component, which the engine may override with the nominated
	// pair.
	Send(component int, data []byte, dest TransportAddress) error
}
