package ice

import (
	"fmt"
	"net"
	"strconv"
)

type IPAddressFamily int

const (
	IPv4 IPAddressFamily = 4
	IPv6 IPAddressFamily = 6
)

// A UDP transport address: IP plus port. The zero value is "unset".
type TransportAddress struct {
	IP   net.IP
	Port int
}

// ParseTransportAddress parses an IP literal and port. IPv4-mapped IPv6
// literals are normalised to IPv4, so they print back the way they are used.
func ParseTransportAddress(ip string, port int) (TransportAddress, error) {
	if port < 0 || port > 65535 {
		return TransportAddress{}, fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return TransportAddress{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
	}
	if ip4 := parsed.To4(); ip4 != nil {
		parsed = ip4
	}
	return TransportAddress{IP: parsed, Port: port}, nil
}

func makeTransportAddress(addr net.Addr) TransportAddress {
	var ta TransportAddress
	switch a := addr.(type) {
	case *net.UDPAddr:
		ta = TransportAddress{IP: a.IP, Port: a.Port}
	case *net.TCPAddr:
		ta = TransportAddress{IP: a.IP, Port: a.Port}
	default:
		return ta
	}
	if ip4 := ta.IP.To4(); ip4 != nil {
		ta.IP = ip4
	}
	return ta
}

func (ta TransportAddress) IsZero() bool {
	return ta.IP == nil && ta.Port == 0
}

func (ta TransportAddress) Family() IPAddressFamily {
	if len(ta.IP) == net.IPv6len {
		return IPv6
	}
	return IPv4
}

// NetworkTypeToken is the SDP address type, "IP4" or "IP6".
func (ta TransportAddress) NetworkTypeToken() string {
	if ta.Family() == IPv6 {
		return "IP6"
	}
	return "IP4"
}

func (ta TransportAddress) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: ta.IP, Port: ta.Port}
}

// DisplayIP is the bare IP literal, as it appears in SDP.
func (ta TransportAddress) DisplayIP() string {
	if ta.IP == nil {
		return "0.0.0.0"
	}
	return ta.IP.String()
}

func (ta TransportAddress) Equal(other TransportAddress) bool {
	return ta.Port == other.Port && ta.IP.Equal(other.IP)
}

func (ta TransportAddress) String() string {
	return net.JoinHostPort(ta.DisplayIP(), strconv.Itoa(ta.Port))
}
