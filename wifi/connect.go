// SPDX-License-Identifier: MIT
//
// WiFi station connection future.
//
// The driver reports the progress of a connection attempt only through
// event bus callbacks:
//
//	StaStart -> (Connect) -> StaConnected -> GotIP
//	                      \-> StaDisconnected
//
// The callbacks share a state cell with the future and wake whoever polls
// it.  The registrations live from the first Poll() until the future
// resolves or is canceled; once unregistered, the cell is closed so that
// an event already in flight cannot change it anymore.
//

package wifi

import (
	"context"
	"fmt"
	"sync"
)

// Waker asks for the future to be polled again.
type Waker interface {
	Wake()
}

type WakerFunc func()

func (f WakerFunc) Wake() {
	f()
}

type connectPhase int

const (
	phaseStarting connectPhase = iota
	phaseConnectedWithoutIP
	phaseConnected
	phaseFailed
)

func (p connectPhase) String() string {
	switch p {
	case phaseStarting:
		return "starting"
	case phaseConnectedWithoutIP:
		return "connected-without-ip"
	case phaseConnected:
		return "connected"
	case phaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("connectPhase(%d)", int(p))
	}
}

type connectCell struct {
	mu     sync.Mutex
	phase  connectPhase
	link   StaConnected
	ip     IPInfo
	kind   FailKind
	reason Reason
	cause  error
	waker  Waker
	closed bool
}

// update runs fn with the cell locked, unless the cell is closed, and
// wakes the poller if fn changed the state.
func (c *connectCell) update(fn func() bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := fn()
	w := c.waker
	c.mu.Unlock()

	if changed && w != nil {
		w.Wake()
	}
}

// setFailed must be called with the lock held.  A failure is final.
func (c *connectCell) setFailed(kind FailKind, reason Reason, cause error) bool {
	if c.phase == phaseFailed {
		return false
	}
	c.phase = phaseFailed
	c.kind = kind
	c.reason = reason
	c.cause = cause
	return true
}

func (c *connectCell) close() {
	c.mu.Lock()
	c.closed = true
	c.waker = nil
	c.mu.Unlock()
}

type registration struct {
	base EventBase
	id   EventID
	h    Handler
}

// handlers builds the callbacks of one attempt.  They only reference the
// cell and the driver, never the future itself.
func (c *connectCell) handlers(drv Driver) []registration {
	onStart := func(_ EventBase, _ EventID, _ any) {
		c.mu.Lock()
		skip := c.closed || c.phase != phaseStarting
		c.mu.Unlock()
		if skip {
			return
		}
		logger.Debugf("station started; connecting")
		if err := drv.Connect(); err != nil {
			// No disconnect event will follow a failed call.
			c.update(func() bool {
				return c.setFailed(FailInternal, 0, fmt.Errorf("connect: %w", err))
			})
		}
	}

	onConnected := func(_ EventBase, _ EventID, data any) {
		ev, ok := payload[StaConnected](data)
		if !ok {
			logger.Warnf("unexpected StaConnected payload: %T", data)
			return
		}
		c.update(func() bool {
			if c.phase != phaseStarting {
				return false
			}
			logger.Debugf("associated with [%s] %s on channel %d",
				ev.SSID, ev.BSSID, ev.Channel)
			c.phase = phaseConnectedWithoutIP
			c.link = ev
			return true
		})
	}

	onDisconnected := func(_ EventBase, _ EventID, data any) {
		ev, ok := payload[StaDisconnected](data)
		if !ok {
			logger.Warnf("unexpected StaDisconnected payload: %T", data)
			return
		}
		c.update(func() bool {
			logger.Debugf("disconnected from [%s]: %s", ev.SSID, ev.Reason)
			return c.setFailed(FailDisconnected, ev.Reason, nil)
		})
	}

	onGotIP := func(_ EventBase, _ EventID, data any) {
		ev, ok := payload[GotIP](data)
		if !ok {
			logger.Warnf("unexpected GotIP payload: %T", data)
			return
		}
		c.update(func() bool {
			switch c.phase {
			case phaseStarting, phaseConnectedWithoutIP:
				logger.Debugf("got IP: %s", ev.IPInfo)
				c.phase = phaseConnected
				c.ip = ev.IPInfo
				return true
			default:
				return false
			}
		})
	}

	return []registration{
		{base: WifiEvent, id: EventStaStart, h: onStart},
		{base: WifiEvent, id: EventStaConnected, h: onConnected},
		{base: WifiEvent, id: EventStaDisconnected, h: onDisconnected},
		{base: IPEvent, id: EventStaGotIP, h: onGotIP},
	}
}

// ConnectFuture is a station connection attempt.  It must be driven by
// Poll() or Wait() until it resolves, or be canceled.
type ConnectFuture struct {
	handle
	conf    STAConfig
	cell    *connectCell
	regs    []HandlerID
	polled  bool
	started bool // the radio was started
}

func newConnectFuture(r *Radio, conf STAConfig) *ConnectFuture {
	return &ConnectFuture{
		handle: handle{radio: r},
		conf:   conf,
		cell:   &connectCell{phase: phaseStarting},
	}
}

// Poll advances the attempt.  It returns ready=false while the attempt is
// in progress; w is woken when it should be polled again.  Once ready,
// either the running station or a *ConnectError is returned and the future
// must not be used anymore.
func (f *ConnectFuture) Poll(w Waker) (*Running, bool, error) {
	f.check("Poll")

	f.cell.mu.Lock()
	f.cell.waker = w
	f.cell.mu.Unlock()

	if !f.polled {
		f.polled = true
		if err := f.start(); err != nil {
			return nil, true, f.fail(FailInternal, 0, err)
		}
	}

	f.cell.mu.Lock()
	phase := f.cell.phase
	link, ip := f.cell.link, f.cell.ip
	kind, reason, cause := f.cell.kind, f.cell.reason, f.cell.cause
	f.cell.mu.Unlock()

	switch phase {
	case phaseConnected:
		f.finish()
		logger.Infof("connected to [%s]: %s", f.conf.SSID, ip)
		return &Running{
			handle: handle{radio: f.radio},
			role:   RoleSTA,
			ip:     ip,
			link:   link,
		}, true, nil
	case phaseFailed:
		return nil, true, f.fail(kind, reason, cause)
	default:
		return nil, false, nil
	}
}

// Wait polls the future until it resolves or ctx is done, in which case
// the attempt is canceled and a FailCanceled error returned.
func (f *ConnectFuture) Wait(ctx context.Context) (*Running, error) {
	wake := make(chan struct{}, 1)
	w := WakerFunc(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	for {
		sta, ready, err := f.Poll(w)
		if ready {
			return sta, err
		}
		select {
		case <-wake:
		case <-ctx.Done():
			idle := f.Cancel()
			return nil, &ConnectError{
				Kind: FailCanceled,
				Err:  ctx.Err(),
				idle: idle,
			}
		}
	}
}

// Cancel abandons the attempt, removing every registered handler, and
// returns the radio.
func (f *ConnectFuture) Cancel() *Idle {
	started := f.started
	f.finish()
	if started {
		f.stopRadio()
	}
	logger.Infof("connection to [%s] canceled", f.conf.SSID)
	return newIdle(f.radio)
}

func (f *ConnectFuture) start() error {
	bus := f.radio.bus
	for _, reg := range f.cell.handlers(f.radio.drv) {
		id, err := bus.Register(reg.base, reg.id, reg.h)
		if err != nil {
			return fmt.Errorf("register %s/%d handler: %w", reg.base, reg.id, err)
		}
		f.regs = append(f.regs, id)
	}

	logger.Infof("connecting to [%s]", f.conf.SSID)
	if err := f.radio.drv.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	f.started = true
	return nil
}

// finish consumes the future: unregister the handlers, then close the cell.
func (f *ConnectFuture) finish() {
	f.consume("ConnectFuture")

	bus := f.radio.bus
	for _, id := range f.regs {
		if err := bus.Unregister(id); err != nil {
			logger.Warnf("failed to unregister handler %d: %v", id, err)
		}
	}
	f.regs = nil
	f.cell.close()
}

// fail resolves the future with an error and hands the radio back,
// stopped but still owned.
func (f *ConnectFuture) fail(kind FailKind, reason Reason, cause error) error {
	started := f.started
	f.finish()
	if started {
		f.stopRadio()
	}
	cerr := &ConnectError{
		Kind:   kind,
		Reason: reason,
		Err:    cause,
		idle:   newIdle(f.radio),
	}
	logger.Warnf("connection to [%s] failed: %v", f.conf.SSID, cerr)
	return cerr
}

func (f *ConnectFuture) stopRadio() {
	if err := f.radio.drv.Stop(); err != nil {
		logger.Warnf("failed to stop radio: %v", err)
	}
}
