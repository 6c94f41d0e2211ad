package session

import (
	"fmt"

	"github.com/lanikai/icecam/internal/sdp"
)

// State is the lifecycle position of the controller's ICE instance.
type State int

const (
	NoInstance State = iota
	InstanceCreated
	SessionInitialized
	NegotiationRunning
	NegotiationDone
)

func (s State) String() string {
	switch s {
	case NoInstance:
		return "no instance"
	case InstanceCreated:
		return "instance created"
	case SessionInitialized:
		return "session initialized"
	case NegotiationRunning:
		return "negotiation running"
	case NegotiationDone:
		return "negotiation done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RemoteInfoStore holds the last remote description that decoded cleanly.
// It is either empty or holds a complete description.
type RemoteInfoStore struct {
	info *sdp.RemoteSessionInfo
}

func (s *RemoteInfoStore) Set(info *sdp.RemoteSessionInfo) {
	if info.IsEmpty() {
		s.info = nil
		return
	}
	s.info = info
}

func (s *RemoteInfoStore) Reset() {
	s.info = nil
}

// Get returns the stored description, or nil.
func (s *RemoteInfoStore) Get() *sdp.RemoteSessionInfo {
	return s.info
}

func (s *RemoteInfoStore) IsEmpty() bool {
	return s.info == nil
}
