package ice

import (
	"fmt"
)

// CandidateType is the kind of transport address a candidate offers.
type CandidateType int

const (
	Host CandidateType = iota
	ServerReflexive
	Relayed
)

const (
	hostType  = "host"
	srflxType = "srflx"
	relayType = "relay"
)

func (t CandidateType) String() string {
	switch t {
	case Host:
		return hostType
	case ServerReflexive:
		return srflxType
	case Relayed:
		return relayType
	default:
		return fmt.Sprintf("CandidateType(%d)", int(t))
	}
}

// ParseCandidateType maps an SDP type name (host, srflx, relay) to a
// CandidateType.
func ParseCandidateType(s string) (CandidateType, error) {
	switch s {
	case hostType:
		return Host, nil
	case srflxType:
		return ServerReflexive, nil
	case relayType:
		return Relayed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCandidateType, s)
}

// Candidate types are preferred in this order when choosing a component's
// default address, since a relayed address is the most likely to be reachable.
func (t CandidateType) defaultPreference() int {
	switch t {
	case Relayed:
		return 2
	case ServerReflexive:
		return 1
	default:
		return 0
	}
}

// MaxFoundationLength is the longest foundation accepted from a remote peer.
const MaxFoundationLength = 32

// An ICE candidate (either local or remote).
// See [RFC8445 §5.3] for a definition of fields.
type Candidate struct {
	Foundation string
	Component  int
	Priority   uint32
	Address    TransportAddress
	Type       CandidateType
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s %d udp %d %s typ %s", c.Foundation, c.Component, c.Priority, c.Address, c.Type)
}

// SelectDefault picks the candidate to advertise as a component's default
// address: relayed over server-reflexive over host, then highest priority.
func SelectDefault(cands []Candidate) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range cands {
		if !found || betterDefault(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func betterDefault(a, b Candidate) bool {
	pa, pb := a.Type.defaultPreference(), b.Type.defaultPreference()
	if pa != pb {
		return pa > pb
	}
	return a.Priority > b.Priority
}
