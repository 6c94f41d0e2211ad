// Package session sequences the life of one ICE instance on behalf of the
// operator: create, init, remote input, negotiation and teardown.
package session

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"

	"github.com/lanikai/icecam/internal/ice"
	"github.com/lanikai/icecam/internal/logging"
	"github.com/lanikai/icecam/internal/sdp"
)

var log = logging.DefaultLogger.WithTag("session")

var (
	ErrNoInstance         = errors.New("No ICE instance, create it first")
	ErrInstanceExists     = errors.New("ICE instance already created, destroy it first")
	ErrNoSession          = errors.New("No ICE session, initialize first")
	ErrSessionExists      = errors.New("ICE session already created, stop it first")
	ErrNoRemoteInfo       = errors.New("No remote info, input remote info first")
	ErrNegotiationStarted = errors.New("ICE negotiation already started")
	ErrInvalidComponent   = errors.New("Invalid component ID")
)

// Syncer runs fn where it cannot overlap the event worker's polls.
type Syncer interface {
	Do(fn func())
}

type Options struct {
	Config     ice.Config
	Components int

	// Size limit for the local description. Zero or less is unlimited.
	DescriptionCapacity int

	// Engine teardown goes through the Syncer when one is set.
	Syncer Syncer

	// Called from ProcessEvents for each packet received, after it is logged.
	OnData func(component int, data []byte, src net.Addr)
}

// A Controller owns an ICE instance and the remote description fed to it.
// It is not safe for concurrent use. Engine callbacks are queued, and take
// effect when the owner calls ProcessEvents.
type Controller struct {
	engine ice.Engine
	opts   Options

	inst       ice.Instance
	generation uint64
	state      State
	lastErr    error
	remote     RemoteInfoStore

	events *eventSink
}

func New(engine ice.Engine, opts Options) *Controller {
	return &Controller{
		engine: engine,
		opts:   opts,
		events: newEventSink(),
	}
}

func (c *Controller) State() State {
	return c.state
}

// RemoteInfo returns the stored remote description, or nil.
func (c *Controller) RemoteInfo() *sdp.RemoteSessionInfo {
	return c.remote.Get()
}

// NegotiationErr is the failure reported by the most recent negotiation.
func (c *Controller) NegotiationErr() error {
	return c.lastErr
}

// Notify is signalled whenever engine events are waiting for ProcessEvents.
func (c *Controller) Notify() <-chan struct{} {
	return c.events.notify
}

func (c *Controller) Create() error {
	if c.inst != nil {
		return ErrInstanceExists
	}

	c.generation++
	gen := c.generation
	inst, err := c.engine.Create(c.opts.Config, c.opts.Components, ice.Callbacks{
		OnNegotiationComplete: func(err error) {
			c.events.push(engineEvent{generation: gen, kind: negotiationComplete, err: err})
		},
		OnDataReceived: func(component int, data []byte, src net.Addr) {
			c.events.push(engineEvent{generation: gen, kind: dataReceived, component: component, data: data, src: src})
		},
	})
	if err != nil {
		return errors.Wrap(err, "error creating ICE instance")
	}

	c.inst = inst
	c.state = InstanceCreated
	log.Info("ICE instance successfully created")
	return nil
}

func (c *Controller) Destroy() error {
	if c.inst == nil {
		return ErrNoInstance
	}
	err := c.teardown()
	log.Info("ICE instance destroyed")
	return err
}

// teardown releases the instance. Events it queued are dropped from here on.
func (c *Controller) teardown() error {
	inst := c.inst
	c.inst = nil
	c.state = NoInstance
	c.remote.Reset()
	c.generation++

	var err error
	c.sync(func() {
		err = inst.Destroy()
	})
	return errors.Wrap(err, "error destroying ICE instance")
}

func (c *Controller) sync(fn func()) {
	if c.opts.Syncer != nil {
		c.opts.Syncer.Do(fn)
	} else {
		fn()
	}
}

func (c *Controller) InitSession(role ice.Role) error {
	if c.inst == nil {
		return ErrNoInstance
	}
	if c.state != InstanceCreated {
		return ErrSessionExists
	}

	if err := c.inst.InitSession(role); err != nil {
		return errors.Wrap(err, "error creating session")
	}
	c.remote.Reset()
	c.lastErr = nil
	c.state = SessionInitialized
	log.Info("ICE session created as %s", role)
	return nil
}

func (c *Controller) requireSession() error {
	if c.inst == nil {
		return ErrNoInstance
	}
	if c.state < SessionInitialized {
		return ErrNoSession
	}
	return nil
}

// InputRemote decodes a remote description and stores it. On failure the
// store is left empty.
func (c *Controller) InputRemote(lines []string) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	c.remote.Reset()
	info, err := sdp.Decode(lines)
	if err != nil {
		return errors.Wrap(err, "error in remote info")
	}
	c.remote.Set(info)
	log.Info("Done, %d remote candidate(s) added", len(info.Candidates))
	return nil
}

func (c *Controller) StartNegotiation() error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if c.state != SessionInitialized {
		return ErrNegotiationStarted
	}
	if c.remote.IsEmpty() {
		return ErrNoRemoteInfo
	}

	info := c.remote.Get()
	log.Info("Starting ICE negotiation..")
	if err := c.inst.StartNegotiation(info.Ufrag, info.Password, info.Candidates); err != nil {
		return errors.Wrap(err, "error starting ICE")
	}
	c.state = NegotiationRunning
	log.Info("ICE negotiation started")
	return nil
}

func (c *Controller) StopSession() error {
	if err := c.requireSession(); err != nil {
		return err
	}

	var err error
	c.sync(func() {
		err = c.inst.StopSession()
	})
	if !c.inst.HasSession() {
		c.state = InstanceCreated
		c.remote.Reset()
		log.Info("ICE session stopped")
	}
	return errors.Wrap(err, "error stopping session")
}

// SendData transmits data on a component, addressed to the remote default
// address for that component. Negotiation need not be complete.
func (c *Controller) SendData(component int, data []byte) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if component < 1 || component > c.inst.RunningComponents() {
		return errors.Wrapf(ErrInvalidComponent, "component %d", component)
	}

	dest, _ := c.remote.Get().Default(component)
	if err := c.inst.Send(component, data, dest); err != nil {
		return errors.Wrap(err, "error sending data")
	}
	log.Info("Data sent")
	return nil
}

// ProcessEvents applies queued engine callbacks and returns how many were
// handled.
func (c *Controller) ProcessEvents() int {
	n := 0
	for _, ev := range c.events.drain() {
		if c.inst == nil || ev.generation != c.generation {
			log.Debug("Dropping event for destroyed instance")
			continue
		}
		c.handle(ev)
		n++
	}
	return n
}

func (c *Controller) handle(ev engineEvent) {
	switch ev.kind {
	case negotiationComplete:
		if c.state != NegotiationRunning {
			log.Debug("Ignoring negotiation result in state %s", c.state)
			return
		}
		if ev.err == nil {
			c.state = NegotiationDone
			log.Info("ICE negotiation successful")
			return
		}
		c.lastErr = ev.err
		log.Error("ICE negotiation failed: %v", ev.err)
		if err := c.teardown(); err != nil {
			log.Warn("%v", err)
		}
		log.Info("ICE instance destroyed")

	case dataReceived:
		log.Info("Component %d: received %d bytes data from %v: \"%s\"",
			ev.component, len(ev.data), ev.src, preview(ev.data))
		if c.opts.OnData != nil {
			c.opts.OnData(ev.component, ev.data, ev.src)
		}
	}
}

func (c *Controller) status() string {
	switch {
	case c.inst.IsComplete():
		return "negotiation complete"
	case c.inst.IsRunning():
		return "negotiation is in progress"
	case c.inst.HasSession():
		return "session ready"
	default:
		return "session not created"
	}
}

// Show writes the instance status, the local description to paste to the
// remote host, and any stored remote info.
func (c *Controller) Show(w io.Writer) error {
	if c.inst == nil {
		return ErrNoInstance
	}

	var b strings.Builder
	fmt.Fprintln(&b, "General info")
	fmt.Fprintln(&b, "---------------")
	fmt.Fprintf(&b, "Component count    : %d\n", c.inst.Components())
	fmt.Fprintf(&b, "Status             : %s\n", c.status())
	if !c.inst.HasSession() {
		fmt.Fprintln(&b, "Create the session first to see more info")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "Negotiated comp_cnt: %d\n", c.inst.RunningComponents())
	fmt.Fprintf(&b, "Role               : %s\n", c.inst.Role())

	local, err := sdp.EncodeLocal(c.inst, c.opts.DescriptionCapacity)
	if err != nil {
		return errors.Wrap(err, "error encoding local description")
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Local SDP (paste this to remote host):")
	fmt.Fprintln(&b, "--------------------------------------")
	fmt.Fprintln(&b, local)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Remote info:")
	fmt.Fprintln(&b, "----------------------")
	if info := c.remote.Get(); info == nil {
		fmt.Fprintln(&b, "No remote info yet")
	} else {
		fmt.Fprintf(&b, "Remote ufrag       : %s\n", info.Ufrag)
		fmt.Fprintf(&b, "Remote password    : %s\n", info.Password)
		fmt.Fprintf(&b, "Remote cand. cnt.  : %d\n", len(info.Candidates))
		for _, cand := range info.Candidates {
			fmt.Fprintf(&b, "  %s", sdp.CandidateLine(cand))
		}
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// Shutdown destroys the instance, if there is one.
func (c *Controller) Shutdown() error {
	if c.inst == nil {
		return nil
	}
	return c.Destroy()
}
