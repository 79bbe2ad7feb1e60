// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024-2025 Aaron LI
//
// Captive DNS responder: answer queries with the access point address.
//

package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"

	"captiveportal/log"
	"captiveportal/util/dnsmsg"
)

const (
	// Receive timeout so that an idle loop yields periodically.
	readTimeout = 1 * time.Second

	// The QR bit in the high byte of the header flags.
	flagsHighOffset = 2
	flagsHighQR     = 0x80
)

var logger = log.New("dns")

type Stats struct {
	Received       uint64 `json:"received"`
	Answered       uint64 `json:"answered"`
	NXDomain       uint64 `json:"nxdomain"`
	NotImplemented uint64 `json:"notimp"`
	FormatError    uint64 `json:"formerr"`
	ServerFailure  uint64 `json:"servfail"`
	Dropped        uint64 `json:"dropped"`
}

type counters struct {
	received       atomic.Uint64
	answered       atomic.Uint64
	nxdomain       atomic.Uint64
	notImplemented atomic.Uint64
	formatError    atomic.Uint64
	serverFailure  atomic.Uint64
	dropped        atomic.Uint64
}

type Responder struct {
	Listen netip.AddrPort
	// Bind to this network interface if not empty.
	Interface string

	policy *Policy
	stats  counters

	lock   sync.Mutex
	addr   net.Addr           // bound address once started
	cancel context.CancelFunc // cancel the listener to stop the responder
	wg     sync.WaitGroup     // wait for shutdown to complete
}

func NewResponder(listen netip.AddrPort, iface string, policy *Policy) *Responder {
	return &Responder{
		Listen:    listen,
		Interface: iface,
		policy:    policy,
	}
}

func (r *Responder) Stats() Stats {
	return Stats{
		Received:       r.stats.received.Load(),
		Answered:       r.stats.answered.Load(),
		NXDomain:       r.stats.nxdomain.Load(),
		NotImplemented: r.stats.notImplemented.Load(),
		FormatError:    r.stats.formatError.Load(),
		ServerFailure:  r.stats.serverFailure.Load(),
		Dropped:        r.stats.dropped.Load(),
	}
}

// Addr returns the bound address, or nil if not started.
func (r *Responder) Addr() net.Addr {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.addr
}

// Start the responder.
// This function starts a goroutine to serve the queries so it doesn't block.
func (r *Responder) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.cancel != nil {
		return errors.New("responder already started")
	}

	lc := net.ListenConfig{Control: controlFunc(r.Interface)}
	pc, err := lc.ListenPacket(context.Background(), "udp4", r.Listen.String())
	if err != nil {
		logger.Errorf("failed to listen UDP at: %s, error: %v", r.Listen, err)
		return err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return fmt.Errorf("unexpected packet conn type %T", pc)
	}
	r.addr = conn.LocalAddr()
	logger.Infof("bound UDP responder at: %s (interface: %q, policy: %s)",
		r.addr, r.Interface, r.policy.Mode())

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go r.serveUDP(ctx, conn)

	return nil
}

func (r *Responder) Stop() {
	r.lock.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.addr = nil
	r.lock.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	logger.Infof("responder stopped")
}

// Run starts the responder and blocks until ctx is done.
func (r *Responder) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return nil
}

// NOTE: This function blocks until Stop() is called.
func (r *Responder) serveUDP(ctx context.Context, conn *net.UDPConn) {
	defer r.wg.Done()

	go func() {
		// Wait for cancellation from Stop().
		<-ctx.Done()
		conn.Close()
	}()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagDst, true); err != nil {
		logger.Warnf("no destination address in control messages: %v", err)
	}

	// One extra byte to detect oversized messages.
	var reqBuf [dnsmsg.MaxMessageSize + 1]byte
	var respBuf [dnsmsg.MaxMessageSize]byte
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Infof("connection closed; stop UDP responder")
				return
			}
			logger.Warnf("failed to set read deadline: %v", err)
		}

		n, cm, src, err := pc.ReadFrom(reqBuf[:])
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Infof("connection closed; stop UDP responder")
				return
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				runtime.Gosched()
				continue
			}
			logger.Warnf("failed to read packet: %v", err)
			r.stats.dropped.Add(1)
			continue
		}

		resp := r.Handle(reqBuf[:n], respBuf[:])
		if resp == nil {
			continue
		}

		// Reply from the address the query was sent to.
		var wcm *ipv4.ControlMessage
		if cm != nil && cm.Dst != nil && !cm.Dst.IsMulticast() {
			wcm = &ipv4.ControlMessage{Src: cm.Dst}
		}
		if _, err := pc.WriteTo(resp, wcm, src); err != nil {
			logger.Warnf("failed to send response to %s: %v", src, err)
			r.stats.dropped.Add(1)
		}
	}
}

// Handle processes one request and builds the reply into buf, which must
// hold dnsmsg.MaxMessageSize bytes.  Every request gets a reply; responses
// (QR set) are dropped and nil is returned.
func (r *Responder) Handle(req []byte, buf []byte) []byte {
	r.stats.received.Add(1)

	if len(req) > flagsHighOffset && req[flagsHighOffset]&flagsHighQR != 0 {
		logger.Debugf("dropped a response (%d bytes)", len(req))
		r.stats.dropped.Add(1)
		return nil
	}

	m, err := dnsmsg.Parse(req)
	if err != nil {
		logger.Debugf("malformed query (%d bytes): %v", len(req), err)
		return r.errorReply(req, buf, dnsmsg.RCodeOf(err))
	}

	h := m.Header
	if h.Opcode() != dnsmsg.OpcodeQuery || h.QDCount != 1 {
		logger.Debugf("unsupported query: %s", h)
		r.stats.notImplemented.Add(1)
		return r.finish(dnsmsg.NewBuilder(buf, dnsmsg.ResponseHeader(h)), req)
	}

	it := m.Questions()
	q, _ := it.Next()

	b := dnsmsg.NewBuilder(buf, dnsmsg.ResponseHeader(h))
	b.AddQuestion(q)

	d := r.policy.Decide(q)
	b.Header().SetRCode(d.RCode)
	switch d.RCode {
	case dnsmsg.RCodeNoError:
		a4 := d.Addr.As4()
		b.AddAnswer(dnsmsg.Answer{
			Name:  q.Name,
			Type:  dnsmsg.TypeA,
			Class: dnsmsg.ClassIN,
			TTL:   d.TTL,
			Data:  a4[:],
		})
		r.stats.answered.Add(1)
	case dnsmsg.RCodeNonExistentDomain:
		r.stats.nxdomain.Add(1)
	case dnsmsg.RCodeNotImplemented:
		r.stats.notImplemented.Add(1)
	case dnsmsg.RCodeServerFailure:
		r.stats.serverFailure.Add(1)
	}
	logger.Debugf("query %s => %s", q, d.RCode)

	return r.finish(b, req)
}

func (r *Responder) finish(b dnsmsg.Builder, req []byte) []byte {
	resp, err := b.Finish()
	if err != nil {
		logger.Warnf("failed to build response: %v", err)
		return r.errorReply(req, b.Buffer(), dnsmsg.RCodeOf(err))
	}
	return resp
}

// errorReply builds a header-only response to a request that may not even
// carry a complete header.
func (r *Responder) errorReply(req []byte, buf []byte, rcode dnsmsg.RCode) []byte {
	switch rcode {
	case dnsmsg.RCodeFormatError:
		r.stats.formatError.Add(1)
	case dnsmsg.RCodeServerFailure:
		r.stats.serverFailure.Add(1)
	}

	var reqHeader [dnsmsg.HeaderSize]byte
	copy(reqHeader[:], req)
	h, _ := dnsmsg.ParseHeader(reqHeader[:])
	if len(req) < 4 {
		// The flags are incomplete.
		h.Flags = 0
	}
	h = dnsmsg.ResponseHeader(h)
	h.SetRCode(rcode)
	h.Pack(buf)
	return buf[:dnsmsg.HeaderSize]
}
