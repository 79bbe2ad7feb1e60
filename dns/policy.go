// SPDX-License-Identifier: MIT
//
// Copyright (c) 2025 Aaron LI
//
// Captive DNS policy.
//

package dns

import (
	"fmt"
	"net/netip"

	"captiveportal/config"
	"captiveportal/util/dnsmsg"
	"captiveportal/util/nameset"
)

// AddrSource provides the address handed out in answers; it's unset while
// the access point is down.
type AddrSource interface {
	GetV4() (netip.Addr, bool)
}

type Policy struct {
	mode  string
	names *nameset.Set // excluded (wildcard) or served (hostnames) names
	ttl   uint32
	addr  AddrSource
}

// Decision is the outcome for one question.  Addr is valid only when
// RCode is NoError.
type Decision struct {
	RCode dnsmsg.RCode
	Addr  netip.Addr
	TTL   uint32
}

func NewPolicy(conf *config.DNSConfig, addr AddrSource) (*Policy, error) {
	p := &Policy{
		mode: conf.Policy,
		ttl:  conf.TTL,
		addr: addr,
	}
	switch conf.Policy {
	case config.PolicyWildcard:
		p.names = nameset.Parse(conf.Exclude)
	case config.PolicyHostnames:
		p.names = nameset.Parse(conf.Hostnames)
	default:
		return nil, fmt.Errorf("unknown policy [%s]", conf.Policy)
	}
	logger.Infof("policy %s with %d names/zones", p.mode, p.names.Len())
	return p, nil
}

func (p *Policy) Mode() string {
	return p.mode
}

// serves tells whether the normalized name resolves to the portal.
func (p *Policy) serves(name []byte) bool {
	matched, _ := p.names.Match(name)
	if p.mode == config.PolicyHostnames {
		return matched
	}
	return !matched
}

// Decide answers a single well-formed question.  Names the portal does not
// serve are non-existent whatever the type; served names get an answer
// for A/IN only.
func (p *Policy) Decide(q dnsmsg.Question) Decision {
	var buf [dnsmsg.MaxNameLength]byte
	name := q.Name.AppendLower(buf[:0])
	if !p.serves(name) {
		return Decision{RCode: dnsmsg.RCodeNonExistentDomain}
	}
	if q.Type != dnsmsg.TypeA || q.Class != dnsmsg.ClassIN {
		return Decision{RCode: dnsmsg.RCodeNotImplemented}
	}
	addr, ok := p.addr.GetV4()
	if !ok {
		return Decision{RCode: dnsmsg.RCodeServerFailure}
	}
	return Decision{RCode: dnsmsg.RCodeNoError, Addr: addr, TTL: p.ttl}
}
