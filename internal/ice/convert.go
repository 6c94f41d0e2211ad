package ice

import (
	"fmt"

	pion "github.com/pion/ice/v4"
)

// fromPion converts a local candidate gathered by the component's agent.
// Every agent serves a single component, so pion always reports component 1
// and the real ID is supplied by the caller.
func fromPion(c pion.Candidate, component int) (Candidate, error) {
	var typ CandidateType
	switch c.Type() {
	case pion.CandidateTypeHost:
		typ = Host
	case pion.CandidateTypeServerReflexive, pion.CandidateTypePeerReflexive:
		typ = ServerReflexive
	case pion.CandidateTypeRelay:
		typ = Relayed
	default:
		return Candidate{}, fmt.Errorf("%w: %s", ErrUnknownCandidateType, c.Type())
	}

	addr, err := ParseTransportAddress(c.Address(), c.Port())
	if err != nil {
		return Candidate{}, err
	}

	return Candidate{
		Foundation: c.Foundation(),
		Component:  component,
		Priority:   c.Priority(),
		Address:    addr,
		Type:       typ,
	}, nil
}

// toPion converts a remote candidate for the agent serving its component.
func toPion(c Candidate) (pion.Candidate, error) {
	const network = "udp"
	ip := c.Address.DisplayIP()

	switch c.Type {
	case Host:
		h, err := pion.NewCandidateHost(&pion.CandidateHostConfig{
			Network:    network,
			Address:    ip,
			Port:       c.Address.Port,
			Component:  1,
			Priority:   c.Priority,
			Foundation: c.Foundation,
		})
		if err != nil {
			return nil, err
		}
		return h, nil
	case ServerReflexive:
		s, err := pion.NewCandidateServerReflexive(&pion.CandidateServerReflexiveConfig{
			Network:    network,
			Address:    ip,
			Port:       c.Address.Port,
			Component:  1,
			Priority:   c.Priority,
			Foundation: c.Foundation,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case Relayed:
		r, err := pion.NewCandidateRelay(&pion.CandidateRelayConfig{
			Network:    network,
			Address:    ip,
			Port:       c.Address.Port,
			Component:  1,
			Priority:   c.Priority,
			Foundation: c.Foundation,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCandidateType, c.Type)
}
