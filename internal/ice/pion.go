package ice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	pion "github.com/pion/ice/v4"
	plog "github.com/pion/logging"
	"github.com/pion/stun/v3"

	"github.com/lanikai/icecam/internal/event"
)

// Largest datagram read from a component connection.
const receiveBufferSize = 8192

// How long server host names may take to resolve through Config.Nameserver.
const resolveTimeout = 5 * time.Second

// Timers schedules engine deadlines. Callbacks run on the event worker.
type Timers interface {
	Schedule(delay time.Duration, fn func()) event.TimerID
	Cancel(id event.TimerID) bool
}

// Poster hands work to the event worker. Post drops work when the queue is
// full; PostWait waits for room.
type Poster interface {
	Post(fn func()) error
	PostWait(fn func()) error
}

// PionEngine runs one pion agent per component. Agent goroutines never call
// back into the application directly; every notification is posted to the
// event queue and delivered from the worker.
type PionEngine struct {
	timers        Timers
	queue         Poster
	loggerFactory plog.LoggerFactory
}

func NewPionEngine(timers Timers, queue Poster, lf plog.LoggerFactory) *PionEngine {
	return &PionEngine{timers: timers, queue: queue, loggerFactory: lf}
}

func (e *PionEngine) Create(cfg Config, components int, cb Callbacks) (Instance, error) {
	if components < 1 {
		return nil, fmt.Errorf("%w: %d components", ErrInvalidComponent, components)
	}
	urls, err := serverURIs(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Nameserver != "" {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		err = resolveServers(ctx, urls, cfg.Nameserver, cfg.EnableIPv6)
		cancel()
		if err != nil {
			return nil, err
		}
	}
	for _, u := range urls {
		log.Debug("Using server %s", u)
	}
	return &pionInstance{
		engine:     e,
		cfg:        cfg,
		urls:       urls,
		components: components,
		cb:         cb,
	}, nil
}

func serverURIs(cfg Config) ([]*stun.URI, error) {
	var urls []*stun.URI
	if cfg.STUNServer != "" {
		u, err := stun.ParseURI("stun:" + strings.TrimPrefix(cfg.STUNServer, "stun:"))
		if err != nil {
			return nil, fmt.Errorf("invalid STUN server %q: %w", cfg.STUNServer, err)
		}
		urls = append(urls, u)
	}
	if cfg.TURNServer != "" {
		transport := "udp"
		if cfg.TURNOverTCP {
			transport = "tcp"
		}
		u, err := stun.ParseURI("turn:" + strings.TrimPrefix(cfg.TURNServer, "turn:") + "?transport=" + transport)
		if err != nil {
			return nil, fmt.Errorf("invalid TURN server %q: %w", cfg.TURNServer, err)
		}
		u.Username = cfg.TURNUsername
		u.Password = cfg.TURNPassword
		urls = append(urls, u)
	}
	return urls, nil
}

// nameserverAddr adds the DNS port to a bare nameserver IP.
func nameserverAddr(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(ns, "53")
}

// resolveServers replaces server host names with addresses looked up through
// the given nameserver, since pion only ever asks the system resolver.
func resolveServers(ctx context.Context, urls []*stun.URI, ns string, enableIPv6 bool) error {
	addr := nameserverAddr(ns)
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}

	for _, u := range urls {
		if net.ParseIP(u.Host) != nil {
			continue
		}
		ips, err := resolver.LookupIP(ctx, "ip", u.Host)
		if err != nil {
			return fmt.Errorf("resolve %s via %s: %w", u.Host, addr, err)
		}
		resolved := ""
		for _, ip := range ips {
			if ip.To4() != nil || enableIPv6 {
				resolved = ip.String()
				break
			}
		}
		if resolved == "" {
			return fmt.Errorf("resolve %s via %s: no usable address", u.Host, addr)
		}
		log.Debug("Resolved %s to %s", u.Host, resolved)
		u.Host = resolved
	}
	return nil
}

// hostLimit is an IPFilter that admits the first n distinct local addresses
// it is asked about.
func hostLimit(n int) func(net.IP) bool {
	var mu sync.Mutex
	kept := make(map[string]bool)
	return func(ip net.IP) bool {
		mu.Lock()
		defer mu.Unlock()
		key := ip.String()
		if kept[key] {
			return true
		}
		if len(kept) >= n {
			return false
		}
		kept[key] = true
		return true
	}
}

func networkTypes(enableIPv6 bool) []pion.NetworkType {
	types := []pion.NetworkType{pion.NetworkTypeUDP4}
	if enableIPv6 {
		types = append(types, pion.NetworkTypeUDP6)
	}
	return types
}

type pionInstance struct {
	engine     *PionEngine
	cfg        Config
	urls       []*stun.URI
	components int
	cb         Callbacks

	mu        sync.Mutex
	destroyed bool
	sess      *pionSession
}

// A pionSession lives from InitSession to StopSession. agents, role and the
// credentials are fixed once the session is published; the rest is guarded by
// the instance mutex.
type pionSession struct {
	role       Role
	ufrag, pwd string
	agents     []*pion.Agent

	conns    []*pion.Conn
	running  bool
	complete bool
	cancel   context.CancelFunc
	deadline event.TimerID
	stats    event.TimerID
}

func (i *pionInstance) Destroy() error {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return nil
	}
	i.destroyed = true
	s := i.sess
	i.sess = nil
	i.mu.Unlock()

	if s != nil {
		return i.closeSession(s)
	}
	return nil
}

func (i *pionInstance) InitSession(role Role) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.destroyed {
		return ErrInstanceDestroyed
	}
	if i.sess != nil {
		return ErrSessionExists
	}

	s := &pionSession{
		role:  role,
		conns: make([]*pion.Conn, i.components),
	}
	for comp := 1; comp <= i.components; comp++ {
		agent, err := i.newAgent(s)
		if err != nil {
			closeAgents(s.agents)
			return fmt.Errorf("create agent for component %d: %w", comp, err)
		}
		s.agents = append(s.agents, agent)

		// Every component answers to the same credentials, taken from the
		// first agent.
		if comp == 1 {
			s.ufrag, s.pwd, err = agent.GetLocalUserCredentials()
			if err != nil {
				closeAgents(s.agents)
				return err
			}
		}
	}

	for idx, agent := range s.agents {
		if err := i.watch(s, idx+1, agent); err != nil {
			closeAgents(s.agents)
			return err
		}
	}
	for idx, agent := range s.agents {
		if err := agent.GatherCandidates(); err != nil {
			closeAgents(s.agents)
			return fmt.Errorf("gather candidates for component %d: %w", idx+1, err)
		}
	}

	i.sess = s
	log.Debug("Session initialized as %s with ufrag %s", role, s.ufrag)
	return nil
}

func (i *pionInstance) newAgent(s *pionSession) (*pion.Agent, error) {
	cfg := &pion.AgentConfig{
		Urls:             i.urls,
		NetworkTypes:     networkTypes(i.cfg.EnableIPv6),
		LocalUfrag:       s.ufrag,
		LocalPwd:         s.pwd,
		PortMin:          i.cfg.PortMin,
		PortMax:          i.cfg.PortMax,
		MulticastDNSMode: pion.MulticastDNSModeDisabled,
		LoggerFactory:    i.engine.loggerFactory,
	}
	if i.cfg.MaxHostCandidates > 0 {
		cfg.IPFilter = hostLimit(i.cfg.MaxHostCandidates)
	}
	if i.cfg.KeepaliveInterval > 0 {
		keepalive := i.cfg.KeepaliveInterval
		cfg.KeepaliveInterval = &keepalive
	}
	return pion.NewAgent(cfg)
}

func (i *pionInstance) watch(s *pionSession, comp int, agent *pion.Agent) error {
	if err := agent.OnCandidate(func(c pion.Candidate) {
		if c != nil {
			return
		}
		i.post(s, func() {
			log.Info("Component %d: candidate gathering complete", comp)
		})
	}); err != nil {
		return err
	}
	return agent.OnConnectionStateChange(func(state pion.ConnectionState) {
		i.post(s, func() {
			log.Debug("Component %d: connection state %s", comp, state)
		})
	})
}

func closeAgents(agents []*pion.Agent) error {
	var errs []error
	for _, a := range agents {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// post queues fn for the event worker. fn is dropped if the session has been
// stopped by the time it runs.
func (i *pionInstance) post(s *pionSession, fn func()) {
	err := i.engine.queue.Post(func() {
		if i.isCurrent(s) {
			fn()
		}
	})
	if err != nil {
		log.Warn("Dropped engine event: %v", err)
	}
}

func (i *pionInstance) postWait(s *pionSession, fn func()) {
	err := i.engine.queue.PostWait(func() {
		if i.isCurrent(s) {
			fn()
		}
	})
	if err != nil {
		log.Warn("Dropped engine event: %v", err)
	}
}

func (i *pionInstance) isCurrent(s *pionSession) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.destroyed && i.sess == s
}

func (i *pionInstance) StopSession() error {
	i.mu.Lock()
	s := i.sess
	if s == nil {
		i.mu.Unlock()
		return ErrNoSession
	}
	i.sess = nil
	i.mu.Unlock()

	return i.closeSession(s)
}

func (i *pionInstance) closeSession(s *pionSession) error {
	i.mu.Lock()
	cancel := s.cancel
	deadline, stats := s.deadline, s.stats
	s.running = false
	s.complete = true
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	i.engine.timers.Cancel(deadline)
	i.engine.timers.Cancel(stats)
	return closeAgents(s.agents)
}

func (i *pionInstance) HasSession() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sess != nil
}

func (i *pionInstance) Role() Role {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sess == nil {
		return Controlling
	}
	return i.sess.role
}

func (i *pionInstance) StartNegotiation(remoteUfrag, remotePwd string, remote []Candidate) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.destroyed {
		return ErrInstanceDestroyed
	}
	s := i.sess
	if s == nil {
		return ErrNoSession
	}
	if s.running || s.complete {
		return ErrNegotiationStarted
	}

	for _, c := range remote {
		if c.Component < 1 || c.Component > i.components {
			log.Warn("Ignoring remote candidate for component %d", c.Component)
			continue
		}
		pc, err := toPion(c)
		if err != nil {
			return fmt.Errorf("remote candidate %s: %w", c, err)
		}
		if err := s.agents[c.Component-1].AddRemoteCandidate(pc); err != nil {
			return fmt.Errorf("remote candidate %s: %w", c, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	if i.cfg.NegotiationTimeout > 0 {
		s.deadline = i.engine.timers.Schedule(i.cfg.NegotiationTimeout, func() {
			if i.isCurrent(s) {
				i.finish(s, ErrNegotiationTimeout)
			}
		})
	}

	for idx, agent := range s.agents {
		go i.connect(ctx, s, idx+1, agent, remoteUfrag, remotePwd)
	}
	log.Debug("Negotiation started as %s with %d remote candidates", s.role, len(remote))
	return nil
}

func (i *pionInstance) connect(ctx context.Context, s *pionSession, comp int, agent *pion.Agent, ufrag, pwd string) {
	var conn *pion.Conn
	var err error
	if s.role == Controlling {
		conn, err = agent.Dial(ctx, ufrag, pwd)
	} else {
		conn, err = agent.Accept(ctx, ufrag, pwd)
	}
	// The result must not be lost behind a burst of received data, or the
	// session would wait for its timeout.
	i.postWait(s, func() {
		i.connected(s, comp, conn, err)
	})
}

// connected runs on the worker once a component's checks have concluded.
func (i *pionInstance) connected(s *pionSession, comp int, conn *pion.Conn, err error) {
	if err != nil {
		i.finish(s, fmt.Errorf("component %d: %w", comp, err))
		return
	}

	i.mu.Lock()
	s.conns[comp-1] = conn
	ready := true
	for _, c := range s.conns {
		if c == nil {
			ready = false
		}
	}
	i.mu.Unlock()

	log.Info("Component %d: connected to %s", comp, conn.RemoteAddr())
	go i.read(s, comp, conn)
	if ready {
		i.finish(s, nil)
	}
}

// finish reports the outcome of negotiation, at most once per session.
func (i *pionInstance) finish(s *pionSession, err error) {
	i.mu.Lock()
	if s.complete {
		i.mu.Unlock()
		return
	}
	s.complete = true
	s.running = false
	deadline := s.deadline
	s.deadline = 0
	if err != nil {
		s.cancel()
	} else if i.cfg.StatsInterval > 0 && i.sess == s {
		s.stats = i.engine.timers.Schedule(i.cfg.StatsInterval, func() { i.logStats(s) })
	}
	i.mu.Unlock()

	i.engine.timers.Cancel(deadline)
	if i.cb.OnNegotiationComplete != nil {
		i.cb.OnNegotiationComplete(err)
	}
}

func (i *pionInstance) read(s *pionSession, comp int, conn *pion.Conn) {
	buf := make([]byte, receiveBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Debug("Component %d: reader exiting: %v", comp, err)
			return
		}
		data := append([]byte(nil), buf[:n]...)
		src := conn.RemoteAddr()
		i.post(s, func() {
			if i.cb.OnDataReceived != nil {
				i.cb.OnDataReceived(comp, data, src)
			}
		})
	}
}

func (i *pionInstance) logStats(s *pionSession) {
	if !i.isCurrent(s) {
		return
	}
	for idx, agent := range s.agents {
		for _, st := range agent.GetCandidatePairsStats() {
			if !st.Nominated {
				continue
			}
			log.Info("Component %d: pair %s <-> %s %s, rtt %.2fms, %d bytes sent, %d bytes received",
				idx+1, st.LocalCandidateID, st.RemoteCandidateID, st.State,
				st.CurrentRoundTripTime*1000, st.BytesSent, st.BytesReceived)
		}
	}

	i.mu.Lock()
	if i.sess == s {
		s.stats = i.engine.timers.Schedule(i.cfg.StatsInterval, func() { i.logStats(s) })
	}
	i.mu.Unlock()
}

func (i *pionInstance) IsRunning() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sess != nil && i.sess.running
}

func (i *pionInstance) IsComplete() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sess != nil && i.sess.complete
}

func (i *pionInstance) Components() int {
	return i.components
}

func (i *pionInstance) RunningComponents() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sess == nil {
		return 0
	}
	return len(i.sess.agents)
}

func (i *pionInstance) LocalCredentials() (string, string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sess == nil {
		return "", "", ErrNoSession
	}
	return i.sess.ufrag, i.sess.pwd, nil
}

func (i *pionInstance) session(component int) (*pionSession, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return nil, ErrInstanceDestroyed
	}
	if i.sess == nil {
		return nil, ErrNoSession
	}
	if component < 1 || component > i.components {
		return nil, fmt.Errorf("%w: %d", ErrInvalidComponent, component)
	}
	return i.sess, nil
}

func (i *pionInstance) LocalCandidates(component int) ([]Candidate, error) {
	s, err := i.session(component)
	if err != nil {
		return nil, err
	}
	gathered, err := s.agents[component-1].GetLocalCandidates()
	if err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(gathered))
	for _, pc := range gathered {
		c, err := fromPion(pc, component)
		if err != nil {
			log.Debug("Component %d: skipping candidate %s: %v", component, pc, err)
			continue
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func (i *pionInstance) DefaultCandidate(component int) (Candidate, error) {
	cands, err := i.LocalCandidates(component)
	if err != nil {
		return Candidate{}, err
	}
	best, ok := SelectDefault(cands)
	if !ok {
		return Candidate{}, fmt.Errorf("component %d: %w", component, ErrNoCandidates)
	}
	return best, nil
}

func (i *pionInstance) Send(component int, data []byte, dest TransportAddress) error {
	s, err := i.session(component)
	if err != nil {
		return err
	}
	i.mu.Lock()
	conn := s.conns[component-1]
	i.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("component %d: %w", component, ErrNotConnected)
	}

	// The nominated pair decides where packets go.
	if peer := makeTransportAddress(conn.RemoteAddr()); !dest.IsZero() && !dest.Equal(peer) {
		log.Debug("Component %d: sending to nominated peer %s rather than %s", component, peer, dest)
	}
	_, err = conn.Write(data)
	return err
}
