// Package icetest provides an in-memory ice.Engine for tests.
package icetest

import (
	"fmt"
	"net"
	"sync"

	"github.com/lanikai/icecam/internal/ice"
)

// FakeEngine hands out FakeInstances and remembers them.
type FakeEngine struct {
	// Returned from Create when set.
	CreateErr error

	mu        sync.Mutex
	Instances []*FakeInstance
}

func (e *FakeEngine) Create(cfg ice.Config, components int, cb ice.Callbacks) (ice.Instance, error) {
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	if components < 1 {
		return nil, fmt.Errorf("%w: %d components", ice.ErrInvalidComponent, components)
	}
	inst := &FakeInstance{Config: cfg, components: components, cb: cb}
	e.mu.Lock()
	e.Instances = append(e.Instances, inst)
	e.mu.Unlock()
	return inst, nil
}

// Last returns the most recently created instance, or nil.
func (e *FakeEngine) Last() *FakeInstance {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Instances) == 0 {
		return nil
	}
	return e.Instances[len(e.Instances)-1]
}

// A Sent records one Send call.
type Sent struct {
	Component int
	Data      []byte
	Dest      ice.TransportAddress
}

// A Start records one StartNegotiation call.
type Start struct {
	Ufrag, Pwd string
	Remote     []ice.Candidate
}

// FakeInstance behaves like a real instance whose host candidates are
// 10.0.0.1:4000+component, and whose negotiation finishes only when the test
// calls Complete.
type FakeInstance struct {
	Config ice.Config

	// Returned from the corresponding calls when set.
	InitErr  error
	StartErr error
	SendErr  error

	components int
	cb         ice.Callbacks

	mu        sync.Mutex
	destroyed bool
	session   bool
	role      ice.Role
	running   bool
	complete  bool
	starts    []Start
	sent      []Sent
}

func (f *FakeInstance) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	f.session = false
	f.running = false
	return nil
}

func (f *FakeInstance) Destroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func (f *FakeInstance) InitSession(role ice.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitErr != nil {
		return f.InitErr
	}
	if f.destroyed {
		return ice.ErrInstanceDestroyed
	}
	if f.session {
		return ice.ErrSessionExists
	}
	f.session = true
	f.role = role
	f.running = false
	f.complete = false
	return nil
}

func (f *FakeInstance) StopSession() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.session {
		return ice.ErrNoSession
	}
	f.session = false
	f.running = false
	f.complete = false
	return nil
}

func (f *FakeInstance) HasSession() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *FakeInstance) Role() ice.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.role
}

func (f *FakeInstance) StartNegotiation(ufrag, pwd string, remote []ice.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	if !f.session {
		return ice.ErrNoSession
	}
	if f.running || f.complete {
		return ice.ErrNegotiationStarted
	}
	f.running = true
	f.starts = append(f.starts, Start{Ufrag: ufrag, Pwd: pwd, Remote: remote})
	return nil
}

// Starts returns the recorded StartNegotiation calls.
func (f *FakeInstance) Starts() []Start {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Start(nil), f.starts...)
}

// Complete ends negotiation and reports err through the callbacks.
func (f *FakeInstance) Complete(err error) {
	f.mu.Lock()
	f.running = false
	f.complete = true
	f.mu.Unlock()
	if f.cb.OnNegotiationComplete != nil {
		f.cb.OnNegotiationComplete(err)
	}
}

// Receive delivers data as if it arrived on component.
func (f *FakeInstance) Receive(component int, data []byte, src net.Addr) {
	if f.cb.OnDataReceived != nil {
		f.cb.OnDataReceived(component, data, src)
	}
}

func (f *FakeInstance) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeInstance) IsComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete
}

func (f *FakeInstance) Components() int {
	return f.components
}

func (f *FakeInstance) RunningComponents() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.session {
		return 0
	}
	return f.components
}

// Local credentials reported once a session exists.
const (
	Ufrag    = "fakeufrag"
	Password = "fakepasswordfakepassword"
)

func (f *FakeInstance) LocalCredentials() (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.session {
		return "", "", ice.ErrNoSession
	}
	return Ufrag, Password, nil
}

// HostCandidate is the single candidate the fake gathers for component.
func HostCandidate(component int) ice.Candidate {
	addr, _ := ice.ParseTransportAddress("10.0.0.1", 4000+component)
	return ice.Candidate{
		Foundation: "H0a000001",
		Component:  component,
		Priority:   2130706431 - uint32(component-1),
		Address:    addr,
		Type:       ice.Host,
	}
}

func (f *FakeInstance) LocalCandidates(component int) ([]ice.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.session {
		return nil, ice.ErrNoSession
	}
	if component < 1 || component > f.components {
		return nil, fmt.Errorf("%w: %d", ice.ErrInvalidComponent, component)
	}
	return []ice.Candidate{HostCandidate(component)}, nil
}

func (f *FakeInstance) DefaultCandidate(component int) (ice.Candidate, error) {
	cands, err := f.LocalCandidates(component)
	if err != nil {
		return ice.Candidate{}, err
	}
	return cands[0], nil
}

func (f *FakeInstance) Send(component int, data []byte, dest ice.TransportAddress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	if !f.complete {
		return fmt.Errorf("component %d: %w", component, ice.ErrNotConnected)
	}
	f.sent = append(f.sent, Sent{Component: component, Data: append([]byte(nil), data...), Dest: dest})
	return nil
}

// Sent returns the recorded Send calls.
func (f *FakeInstance) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}
