package sdp

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/icecam/internal/ice"
)

// LocalDescriber is the part of an ICE instance the encoder reads from.
type LocalDescriber interface {
	LocalCredentials() (ufrag, pwd string, err error)
	Components() int
	DefaultCandidate(component int) (ice.Candidate, error)
	LocalCandidates(component int) ([]ice.Candidate, error)
}

// EncodeLocal describes the local session. The result is all or nothing: if
// it is longer than capacity, ErrTooSmall is returned with no text.
func EncodeLocal(src LocalDescriber, capacity int) (string, error) {
	ufrag, pwd, err := src.LocalCredentials()
	if err != nil {
		return "", errors.Errorf("local credentials: %w", err)
	}

	w := writer{capacity: capacity}
	w.Write(header)
	w.Write("a=ice-ufrag:", ufrag, "\n")
	w.Write("a=ice-pwd:", pwd, "\n")

	for comp := 1; comp <= src.Components(); comp++ {
		def, err := src.DefaultCandidate(comp)
		if err != nil {
			return "", errors.Errorf("default candidate for component %d: %w", comp, err)
		}
		writeDefault(&w, comp, def.Address)

		cands, err := src.LocalCandidates(comp)
		if err != nil {
			return "", errors.Errorf("candidates for component %d: %w", comp, err)
		}
		for _, c := range cands {
			w.Write(CandidateLine(c))
		}
	}
	return w.Result()
}

// Where a component's default address goes depends on the component:
// m= and c= for the first, a=rtcp for the second, and a vendor attribute for
// the rest.
func writeDefault(w *writer, comp int, addr ice.TransportAddress) {
	switch comp {
	case 1:
		w.Writef("m=audio %d RTP/AVP 0\n", addr.Port)
		w.Writef("c=IN %s %s\n", addr.NetworkTypeToken(), addr.DisplayIP())
	case 2:
		w.Writef("a=rtcp:%d IN %s %s\n", addr.Port, addr.NetworkTypeToken(), addr.DisplayIP())
	default:
		w.Writef("a=Xice-defcand:%d IN %s %s\n", addr.Port, addr.NetworkTypeToken(), addr.DisplayIP())
	}
}

// CandidateLine formats c as an a=candidate line, including the newline.
func CandidateLine(c ice.Candidate) string {
	var w writer
	w.Writef("a=candidate:%s %d UDP %d %s %d typ %s\n",
		c.Foundation, c.Component, c.Priority, c.Address.DisplayIP(), c.Address.Port, c.Type)
	return w.b.String()
}
