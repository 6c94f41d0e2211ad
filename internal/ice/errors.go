package ice

import "errors"

// Typed errors
var (
	ErrUnknownCandidateType = errors.New("ice: unknown candidate type")
	ErrInvalidAddress       = errors.New("ice: invalid transport address")
	ErrInvalidComponent     = errors.New("ice: invalid component ID")
	ErrInstanceDestroyed    = errors.New("ice: instance destroyed")
	ErrSessionExists        = errors.New("ice: session already created")
	ErrNoSession            = errors.New("ice: no session")
	ErrNegotiationStarted   = errors.New("ice: negotiation already started")
	ErrNoCandidates         = errors.New("ice: no local candidates gathered yet")
	ErrNotConnected         = errors.New("ice: component not connected")
	ErrNegotiationTimeout   = errors.New("ice: negotiation timed out")
)
