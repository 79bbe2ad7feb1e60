// SPDX-License-Identifier: MIT
//
// WiFi radio state machine.
//
// The radio is driven through handles, one type per state:
//
//	Radio.Take() -> Idle
//	Idle.IntoAP() -> APConfigured -> Start() -> Running (AP)
//	Idle.IntoSTA() -> STAConfigured -> Connect() -> ConnectFuture
//	    -> Running (STA) on success, ConnectError{Idle} on failure
//	Running.Stop() -> Idle
//
// Each state only has the methods valid for it.  A transition consumes the
// handle it is called on only when it succeeds; using a consumed handle
// panics.
//

package wifi

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"captiveportal/log"
)

var logger = log.New("wifi")

// Radio is the single physical radio.  At most one handle chain owns it
// at any time.
type Radio struct {
	drv   Driver
	bus   EventBus
	inUse atomic.Bool
}

func NewRadio(drv Driver, bus EventBus) *Radio {
	return &Radio{drv: drv, bus: bus}
}

// Take acquires the exclusive ownership of the radio.  It returns
// ErrRadioInUse until the current owner releases it.
func (r *Radio) Take() (*Idle, error) {
	if !r.inUse.CompareAndSwap(false, true) {
		return nil, ErrRadioInUse
	}
	logger.Debugf("radio taken")
	return newIdle(r), nil
}

func (r *Radio) InUse() bool {
	return r.inUse.Load()
}

func (r *Radio) release() {
	r.inUse.Store(false)
	logger.Debugf("radio released")
}

// handle is the part shared by all state handles.
type handle struct {
	radio *Radio
	spent atomic.Bool
}

// consume marks the handle used by op; it panics if it already was.
func (h *handle) consume(op string) {
	if !h.spent.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("wifi: %s called on a consumed handle", op))
	}
}

// revive undoes consume() when the transition failed.
func (h *handle) revive() {
	h.spent.Store(false)
}

func (h *handle) check(op string) {
	if h.spent.Load() {
		panic(fmt.Sprintf("wifi: %s called on a consumed handle", op))
	}
}

// Idle owns the radio with no role configured.
type Idle struct {
	handle
}

func newIdle(r *Radio) *Idle {
	return &Idle{handle: handle{radio: r}}
}

// IntoAP configures the access point role.  The radio is put in AP+STA
// mode so that networks can still be scanned while the AP runs.
func (i *Idle) IntoAP(conf APConfig) (*APConfigured, error) {
	i.consume("IntoAP")
	conf = conf.withDefaults()
	if err := conf.validate(); err != nil {
		i.revive()
		return nil, err
	}

	drv := i.radio.drv
	if err := drv.SetMode(ModeAPSTA); err != nil {
		i.revive()
		return nil, fmt.Errorf("set mode %s: %w", ModeAPSTA, err)
	}
	if err := drv.SetAPConfig(&conf); err != nil {
		i.revive()
		return nil, fmt.Errorf("set AP config: %w", err)
	}

	logger.Infof("configured AP: %s", conf)
	return &APConfigured{handle: handle{radio: i.radio}, conf: conf}, nil
}

// IntoSTA configures the station role.
func (i *Idle) IntoSTA(conf STAConfig) (*STAConfigured, error) {
	i.consume("IntoSTA")
	if err := conf.validate(); err != nil {
		i.revive()
		return nil, err
	}

	drv := i.radio.drv
	if err := drv.SetMode(ModeSTA); err != nil {
		i.revive()
		return nil, fmt.Errorf("set mode %s: %w", ModeSTA, err)
	}
	if err := drv.SetSTAConfig(&conf); err != nil {
		i.revive()
		return nil, fmt.Errorf("set STA config: %w", err)
	}

	logger.Infof("configured STA: %s", conf)
	return &STAConfigured{handle: handle{radio: i.radio}, conf: conf}, nil
}

// Scan starts the radio as a station just for the scan, and stops it
// afterwards.  The handle stays usable.
func (i *Idle) Scan(ctx context.Context, conf ScanConfig) ([]ApRecord, error) {
	i.check("Scan")
	drv := i.radio.drv
	if err := drv.SetMode(ModeSTA); err != nil {
		return nil, fmt.Errorf("set mode %s: %w", ModeSTA, err)
	}
	if err := drv.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	defer func() {
		if err := drv.Stop(); err != nil {
			logger.Warnf("failed to stop radio after scan: %v", err)
		}
	}()
	return i.radio.scan(ctx, conf)
}

func (i *Idle) MAC(iface Interface) (net.HardwareAddr, error) {
	i.check("MAC")
	return i.radio.drv.MAC(iface)
}

// DefaultAPSSID names the access point after the AP interface address.
func (i *Idle) DefaultAPSSID() (SSID, error) {
	mac, err := i.MAC(InterfaceAP)
	if err != nil {
		return "", fmt.Errorf("get AP MAC: %w", err)
	}
	return DefaultAPSSID(mac), nil
}

// Release gives up the radio ownership.
func (i *Idle) Release() {
	i.consume("Release")
	i.radio.release()
}

// APConfigured holds a radio configured as access point but not started.
type APConfigured struct {
	handle
	conf APConfig
}

func (a *APConfigured) Config() APConfig {
	return a.conf
}

// Start the access point.
func (a *APConfigured) Start() (*Running, error) {
	a.consume("Start")
	drv := a.radio.drv
	if err := drv.Start(); err != nil {
		a.revive()
		return nil, fmt.Errorf("start: %w", err)
	}

	ip, err := drv.IPInfo(InterfaceAP)
	if err != nil {
		logger.Warnf("failed to get AP address: %v", err)
	}
	logger.Infof("AP [%s] started: %s", a.conf.SSID, ip)
	return &Running{
		handle: handle{radio: a.radio},
		role:   RoleAP,
		ip:     ip,
	}, nil
}

// Reset drops the configuration and goes back to Idle.
func (a *APConfigured) Reset() *Idle {
	a.consume("Reset")
	return newIdle(a.radio)
}

// STAConfigured holds a radio configured as station but not started.
type STAConfigured struct {
	handle
	conf STAConfig
}

func (s *STAConfigured) Config() STAConfig {
	return s.conf
}

// Connect returns the future of the connection attempt, which does
// nothing until polled.
func (s *STAConfigured) Connect() *ConnectFuture {
	s.consume("Connect")
	return newConnectFuture(s.radio, s.conf)
}

// Reset drops the configuration and goes back to Idle.
func (s *STAConfigured) Reset() *Idle {
	s.consume("Reset")
	return newIdle(s.radio)
}

// Running is an active radio.  Either Stop() or Close() must be called
// to stop it; Close() also releases the ownership.
type Running struct {
	handle
	role Role
	ip   IPInfo
	link StaConnected // station only
}

func (r *Running) Role() Role {
	return r.role
}

func (r *Running) IPInfo() IPInfo {
	return r.ip
}

// Link describes the access point the station is associated with.
func (r *Running) Link() StaConnected {
	return r.link
}

func (r *Running) Scan(ctx context.Context, conf ScanConfig) ([]ApRecord, error) {
	r.check("Scan")
	return r.radio.scan(ctx, conf)
}

// disconnect leaves the access point before a station is stopped.
func (r *Running) disconnect() {
	if r.role != RoleSTA {
		return
	}
	if err := r.radio.drv.Disconnect(); err != nil {
		logger.Warnf("failed to disconnect from [%s]: %v", r.link.SSID, err)
	}
}

// Stop the radio and go back to Idle, keeping the ownership.  A station
// is disconnected first.
func (r *Running) Stop() (*Idle, error) {
	r.consume("Stop")
	r.disconnect()
	if err := r.radio.drv.Stop(); err != nil {
		r.revive()
		return nil, fmt.Errorf("stop: %w", err)
	}
	logger.Infof("radio stopped (%s)", r.role)
	return newIdle(r.radio), nil
}

// Close stops the radio and releases the ownership.  It's a no-op after
// Stop() or a previous Close().
func (r *Running) Close() error {
	if !r.spent.CompareAndSwap(false, true) {
		return nil
	}
	r.disconnect()
	err := r.radio.drv.Stop()
	if err != nil {
		logger.Warnf("failed to stop radio: %v", err)
	} else {
		logger.Infof("radio stopped (%s)", r.role)
	}
	r.radio.release()
	return err
}
