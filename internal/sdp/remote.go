package sdp

import (
	"github.com/lanikai/icecam/internal/ice"
)

// RemoteSessionInfo is a decoded remote description. Decode only ever returns
// a fully valid one.
type RemoteSessionInfo struct {
	Ufrag    string
	Password string

	// Highest component ID among the candidates.
	ComponentCount int

	// DefaultAddress[i] belongs to component i+1.
	DefaultAddress []ice.TransportAddress

	// In the order they were parsed.
	Candidates []ice.Candidate
}

func (r *RemoteSessionInfo) IsEmpty() bool {
	return r == nil || len(r.Candidates) == 0
}

// Default returns the default address of a component.
func (r *RemoteSessionInfo) Default(component int) (ice.TransportAddress, bool) {
	if r == nil || component < 1 || component > len(r.DefaultAddress) {
		return ice.TransportAddress{}, false
	}
	return r.DefaultAddress[component-1], true
}
