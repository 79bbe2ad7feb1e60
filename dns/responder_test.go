// SPDX-License-Identifier: MIT
//
// Captive DNS responder - tests
//

package dns

import (
	"net"
	"net/netip"
	"testing"
	"time"

	mdns "github.com/miekg/dns"

	"captiveportal/config"
	"captiveportal/util/dnsmsg"
)

var testApAddr = netip.MustParseAddr("192.168.4.1")

func newTestResponder(t *testing.T, conf *config.DNSConfig, withAddr bool) *Responder {
	t.Helper()
	if conf.TTL == 0 {
		conf.TTL = 60
	}
	addr := &config.ApAddr{}
	if withAddr {
		if err := addr.SetV4(testApAddr); err != nil {
			t.Fatalf(`SetV4() failed: %v`, err)
		}
	}
	p, err := NewPolicy(conf, addr)
	if err != nil {
		t.Fatalf(`NewPolicy() failed: %v`, err)
	}
	return NewResponder(netip.MustParseAddrPort("127.0.0.1:0"), "", p)
}

func exchange(t *testing.T, r *Responder, q *mdns.Msg) *mdns.Msg {
	t.Helper()
	req, err := q.Pack()
	if err != nil {
		t.Fatalf(`Pack() failed: %v`, err)
	}
	return handleRaw(t, r, req)
}

func handleRaw(t *testing.T, r *Responder, req []byte) *mdns.Msg {
	t.Helper()
	var buf [dnsmsg.MaxMessageSize]byte
	out := r.Handle(req, buf[:])
	resp := new(mdns.Msg)
	if err := resp.Unpack(out); err != nil {
		t.Fatalf(`Unpack(response) failed: %v`, err)
	}
	return resp
}

func query(name string, qtype uint16) *mdns.Msg {
	m := new(mdns.Msg)
	m.SetQuestion(name, qtype)
	return m
}

func checkAnswer(t *testing.T, name string, resp *mdns.Msg) {
	t.Helper()
	if resp.Rcode != mdns.RcodeSuccess || len(resp.Answer) != 1 {
		t.Fatalf(`%s: rcode=%s answers=%d; want NOERROR with 1 answer`,
			name, mdns.RcodeToString[resp.Rcode], len(resp.Answer))
	}
	a, ok := resp.Answer[0].(*mdns.A)
	if !ok {
		t.Fatalf(`%s: answer = %v; want A record`, name, resp.Answer[0])
	}
	if !a.A.Equal(net.IP(testApAddr.AsSlice())) || a.Hdr.Ttl != 60 {
		t.Errorf(`%s: answer = %s; want %s with TTL 60`, name, a, testApAddr)
	}
	if len(resp.Question) != 1 || resp.Question[0].Name != name {
		t.Errorf(`%s: question = %v; want echo`, name, resp.Question)
	}
}

func TestPolicyWildcard1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{
		Policy:  config.PolicyWildcard,
		Exclude: []string{"*.example.org"},
	}, true)

	for _, name := range []string{"example.com.", "captive.apple.com."} {
		q := query(name, mdns.TypeA)
		resp := exchange(t, r, q)
		if resp.Id != q.Id || !resp.Response || !resp.RecursionDesired {
			t.Errorf(`%s: header = %+v; unexpected`, name, resp.MsgHdr)
		}
		checkAnswer(t, name, resp)
	}

	resp := exchange(t, r, query("www.Example.ORG.", mdns.TypeA))
	if resp.Rcode != mdns.RcodeNameError || len(resp.Answer) != 0 {
		t.Errorf(`excluded name: rcode=%s answers=%d; want NXDOMAIN`,
			mdns.RcodeToString[resp.Rcode], len(resp.Answer))
	}
}

func TestPolicyHostnames1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{
		Policy:    config.PolicyHostnames,
		Hostnames: []string{"captive.apple.com"},
	}, true)

	checkAnswer(t, "captive.apple.com.",
		exchange(t, r, query("captive.apple.com.", mdns.TypeA)))
	checkAnswer(t, "CAPTIVE.apple.com.",
		exchange(t, r, query("CAPTIVE.apple.com.", mdns.TypeA)))

	resp := exchange(t, r, query("example.com.", mdns.TypeA))
	if resp.Rcode != mdns.RcodeNameError || len(resp.Answer) != 0 {
		t.Errorf(`example.com: rcode=%s answers=%d; want NXDOMAIN`,
			mdns.RcodeToString[resp.Rcode], len(resp.Answer))
	}
	if len(resp.Question) != 1 {
		t.Errorf(`example.com: question not echoed`)
	}

	stats := r.Stats()
	if stats.Received != 3 || stats.Answered != 2 || stats.NXDomain != 1 {
		t.Errorf(`Stats() = %+v; unexpected`, stats)
	}
}

func TestNotImplemented1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{Policy: config.PolicyWildcard}, true)

	// Served name, unsupported type.
	resp := exchange(t, r, query("captive.apple.com.", mdns.TypeAAAA))
	if resp.Rcode != mdns.RcodeNotImplemented || len(resp.Answer) != 0 {
		t.Errorf(`AAAA: rcode=%s; want NOTIMP`, mdns.RcodeToString[resp.Rcode])
	}

	// Two questions
	q := query("a.example.com.", mdns.TypeA)
	q.Question = append(q.Question, mdns.Question{
		Name: "b.example.com.", Qtype: mdns.TypeA, Qclass: mdns.ClassINET,
	})
	resp = exchange(t, r, q)
	if resp.Rcode != mdns.RcodeNotImplemented || len(resp.Question) != 0 {
		t.Errorf(`qdcount=2: rcode=%s questions=%d; want NOTIMP without questions`,
			mdns.RcodeToString[resp.Rcode], len(resp.Question))
	}

	// No question
	q = new(mdns.Msg)
	q.Id = 42
	resp = exchange(t, r, q)
	if resp.Rcode != mdns.RcodeNotImplemented || resp.Id != 42 {
		t.Errorf(`qdcount=0: rcode=%s id=%d; want NOTIMP`,
			mdns.RcodeToString[resp.Rcode], resp.Id)
	}

	// Status opcode
	q = query("example.com.", mdns.TypeA)
	q.Opcode = mdns.OpcodeStatus
	resp = exchange(t, r, q)
	if resp.Rcode != mdns.RcodeNotImplemented || resp.Opcode != mdns.OpcodeStatus {
		t.Errorf(`opcode=status: rcode=%s opcode=%d; want NOTIMP`,
			mdns.RcodeToString[resp.Rcode], resp.Opcode)
	}

	if n := r.Stats().NotImplemented; n != 4 {
		t.Errorf(`Stats().NotImplemented = %d; want 4`, n)
	}
}

func TestMalformed1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{Policy: config.PolicyWildcard}, true)

	// The question name points at itself.
	req := []byte{
		0xBE, 0xEF, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xC0, 0x0C, 0x00, 0x01, 0x00, 0x01,
	}
	resp := handleRaw(t, r, req)
	if resp.Rcode != mdns.RcodeFormatError || resp.Id != 0xBEEF ||
		len(resp.Question) != 0 || len(resp.Answer) != 0 {
		t.Errorf(`self pointer: %+v; want FORMERR with empty body`, resp.MsgHdr)
	}

	// Shorter than a header; the reply still carries what there is.
	var buf [dnsmsg.MaxMessageSize]byte
	out := r.Handle([]byte{0x12, 0x34, 0x01}, buf[:])
	if len(out) != dnsmsg.HeaderSize {
		t.Fatalf(`short query reply length = %d; want %d`, len(out), dnsmsg.HeaderSize)
	}
	h, _ := dnsmsg.ParseHeader(out)
	if h.ID != 0x1234 || h.RCode() != dnsmsg.RCodeFormatError ||
		h.Kind() != dnsmsg.KindResponse {
		t.Errorf(`short query reply = %s; want FORMERR`, h)
	}

	// Oversized
	out = r.Handle(make([]byte, dnsmsg.MaxMessageSize+1), buf[:])
	h, _ = dnsmsg.ParseHeader(out)
	if h.RCode() != dnsmsg.RCodeFormatError {
		t.Errorf(`oversized query reply = %s; want FORMERR`, h)
	}

	if n := r.Stats().FormatError; n != 3 {
		t.Errorf(`Stats().FormatError = %d; want 3`, n)
	}
}

func TestDropResponse1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{Policy: config.PolicyWildcard}, true)
	var buf [dnsmsg.MaxMessageSize]byte

	// A well-formed response, e.g. from another responder.
	m := query("example.com.", mdns.TypeA)
	m.Response = true
	req, err := m.Pack()
	if err != nil {
		t.Fatalf(`Pack() failed: %v`, err)
	}
	if out := r.Handle(req, buf[:]); out != nil {
		t.Errorf(`Handle(response) = %x; want nil`, out)
	}

	// A malformed one is dropped as well.
	if out := r.Handle([]byte{0x12, 0x34, 0x80}, buf[:]); out != nil {
		t.Errorf(`Handle(short response) = %x; want nil`, out)
	}

	st := r.Stats()
	if st.Received != 2 || st.Dropped != 2 || st.NotImplemented != 0 ||
		st.FormatError != 0 {
		t.Errorf(`Stats() = %+v; want 2 received and 2 dropped`, st)
	}
}

func TestNoAddress1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{Policy: config.PolicyWildcard}, false)
	resp := exchange(t, r, query("example.com.", mdns.TypeA))
	if resp.Rcode != mdns.RcodeServerFailure || len(resp.Answer) != 0 {
		t.Errorf(`rcode=%s; want SERVFAIL`, mdns.RcodeToString[resp.Rcode])
	}
}

func TestNewPolicy1(t *testing.T) {
	if _, err := NewPolicy(&config.DNSConfig{Policy: "everything"}, &config.ApAddr{}); err == nil {
		t.Errorf(`NewPolicy("everything") succeeded; want error`)
	}
}

func TestServeUDP1(t *testing.T) {
	r := newTestResponder(t, &config.DNSConfig{Policy: config.PolicyWildcard}, true)
	if err := r.Start(); err != nil {
		t.Fatalf(`Start() failed: %v`, err)
	}
	defer r.Stop()
	if err := r.Start(); err == nil {
		t.Errorf(`Start() again succeeded; want error`)
	}

	client := &mdns.Client{Net: "udp", Timeout: 2 * time.Second}
	for _, name := range []string{"example.com.", "captive.apple.com."} {
		resp, _, err := client.Exchange(query(name, mdns.TypeA), r.Addr().String())
		if err != nil {
			t.Fatalf(`Exchange(%s) failed: %v`, name, err)
		}
		checkAnswer(t, name, resp)
	}

	r.Stop()
	if r.Addr() != nil {
		t.Errorf(`Addr() after Stop() = %v; want nil`, r.Addr())
	}
	r.Stop() // no-op
}
