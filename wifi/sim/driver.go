// SPDX-License-Identifier: MIT
//
// Simulated WiFi driver.
//

package sim

import (
	"net"
	"slices"
	"sync"
	"time"

	"captiveportal/log"
	"captiveportal/wifi"
)

var logger = log.New("sim")

// Network is an access point visible to the simulated radio.
type Network struct {
	SSID     wifi.SSID
	Password wifi.Password
	BSSID    net.HardwareAddr
	Channel  uint8
	RSSI     int8
	AuthMode wifi.AuthMode
	// Address leased to the station once associated.
	IPInfo wifi.IPInfo
}

type event struct {
	base wifi.EventBase
	id   wifi.EventID
	data any
}

// Driver implements wifi.Driver in memory.  Events are posted to the bus
// asynchronously, in order for each operation, after Delay each.
type Driver struct {
	// Delay before each emitted event.
	Delay time.Duration

	bus  *Bus
	mac  net.HardwareAddr
	apIP wifi.IPInfo

	lock      sync.Mutex
	mode      wifi.Mode
	apConf    *wifi.APConfig
	staConf   *wifi.STAConfig
	started   bool
	connected *Network
	networks  []Network
	results   []wifi.ApRecord
	failNext  map[string]int32
	wg        sync.WaitGroup
}

func NewDriver(bus *Bus, mac net.HardwareAddr, apIP wifi.IPInfo, networks []Network) *Driver {
	return &Driver{
		bus:      bus,
		mac:      mac,
		apIP:     apIP,
		networks: networks,
		failNext: make(map[string]int32),
	}
}

// FailNext makes the next call of the named method (e.g. "Start",
// "Connect") fail with the driver code.
func (d *Driver) FailNext(method string, code int32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.failNext[method] = code
}

func (d *Driver) SetNetworks(networks []Network) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.networks = networks
}

func (d *Driver) Started() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.started
}

func (d *Driver) Mode() wifi.Mode {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.mode
}

// Wait for the pending events to be delivered.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// injected must be called with the lock held.
func (d *Driver) injected(method string) error {
	code, ok := d.failNext[method]
	if !ok {
		return nil
	}
	delete(d.failNext, method)
	logger.Debugf("injected failure of %s: 0x%x", method, code)
	return wifi.Check(code)
}

// emit must be called with the lock held.
func (d *Driver) emit(events ...event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, ev := range events {
			if d.Delay > 0 {
				time.Sleep(d.Delay)
			}
			d.bus.Post(ev.base, ev.id, ev.data)
		}
	}()
}

func hasSTA(m wifi.Mode) bool {
	return m == wifi.ModeSTA || m == wifi.ModeAPSTA
}

func hasAP(m wifi.Mode) bool {
	return m == wifi.ModeAP || m == wifi.ModeAPSTA
}

func (d *Driver) SetMode(mode wifi.Mode) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("SetMode"); err != nil {
		return err
	}
	if mode > wifi.ModeAPSTA {
		return wifi.Check(wifi.CodeInvalidArg)
	}
	d.mode = mode
	return nil
}

func (d *Driver) SetAPConfig(conf *wifi.APConfig) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("SetAPConfig"); err != nil {
		return err
	}
	if !hasAP(d.mode) {
		return wifi.Check(wifi.CodeWifiMode)
	}
	c := *conf
	d.apConf = &c
	return nil
}

func (d *Driver) SetSTAConfig(conf *wifi.STAConfig) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("SetSTAConfig"); err != nil {
		return err
	}
	if !hasSTA(d.mode) {
		return wifi.Check(wifi.CodeWifiMode)
	}
	c := *conf
	d.staConf = &c
	return nil
}

func (d *Driver) Start() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("Start"); err != nil {
		return err
	}
	if d.mode == wifi.ModeNull {
		return wifi.Check(wifi.CodeWifiMode)
	}
	if d.started {
		return nil
	}
	d.started = true

	var events []event
	if hasSTA(d.mode) {
		events = append(events, event{wifi.WifiEvent, wifi.EventStaStart, nil})
	}
	if hasAP(d.mode) {
		events = append(events, event{wifi.WifiEvent, wifi.EventApStart, nil})
	}
	d.emit(events...)
	return nil
}

func (d *Driver) Stop() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("Stop"); err != nil {
		return err
	}
	if !d.started {
		return nil
	}
	d.started = false
	d.connected = nil

	var events []event
	if hasSTA(d.mode) {
		events = append(events, event{wifi.WifiEvent, wifi.EventStaStop, nil})
	}
	if hasAP(d.mode) {
		events = append(events, event{wifi.WifiEvent, wifi.EventApStop, nil})
	}
	d.emit(events...)
	return nil
}

func (d *Driver) findNetwork(conf *wifi.STAConfig) *Network {
	for i := range d.networks {
		n := &d.networks[i]
		if n.SSID != conf.SSID {
			continue
		}
		if conf.BSSID != nil && n.BSSID.String() != conf.BSSID.String() {
			continue
		}
		if conf.Channel != 0 && n.Channel != conf.Channel {
			continue
		}
		return n
	}
	return nil
}

func (d *Driver) Connect() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("Connect"); err != nil {
		return err
	}
	if !d.started {
		return wifi.Check(wifi.CodeWifiNotStarted)
	}
	if !hasSTA(d.mode) {
		return wifi.Check(wifi.CodeWifiMode)
	}
	if d.staConf == nil {
		return wifi.Check(wifi.CodeWifiSSID)
	}

	conf := d.staConf
	n := d.findNetwork(conf)
	switch {
	case n == nil:
		d.emit(event{wifi.WifiEvent, wifi.EventStaDisconnected, wifi.StaDisconnected{
			SSID:   conf.SSID,
			BSSID:  conf.BSSID,
			Reason: wifi.ReasonNoAPFound,
		}})
	case n.AuthMode != wifi.AuthOpen && n.Password != conf.Password:
		d.emit(event{wifi.WifiEvent, wifi.EventStaDisconnected, wifi.StaDisconnected{
			SSID:   n.SSID,
			BSSID:  n.BSSID,
			Reason: wifi.Reason4WayHandshakeTimeout,
			RSSI:   n.RSSI,
		}})
	case n.AuthMode < conf.Threshold.AuthMode ||
		(conf.Threshold.RSSI != 0 && n.RSSI < conf.Threshold.RSSI):
		d.emit(event{wifi.WifiEvent, wifi.EventStaDisconnected, wifi.StaDisconnected{
			SSID:   n.SSID,
			BSSID:  n.BSSID,
			Reason: wifi.ReasonNoAPFound,
			RSSI:   n.RSSI,
		}})
	default:
		d.connected = n
		d.emit(
			event{wifi.WifiEvent, wifi.EventStaConnected, wifi.StaConnected{
				SSID:     n.SSID,
				BSSID:    n.BSSID,
				Channel:  n.Channel,
				AuthMode: n.AuthMode,
			}},
			event{wifi.IPEvent, wifi.EventStaGotIP, wifi.GotIP{
				IPInfo:  n.IPInfo,
				Changed: true,
			}},
		)
	}
	return nil
}

func (d *Driver) Disconnect() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("Disconnect"); err != nil {
		return err
	}
	if !d.started {
		return wifi.Check(wifi.CodeWifiNotStarted)
	}
	if n := d.connected; n != nil {
		d.connected = nil
		d.emit(event{wifi.WifiEvent, wifi.EventStaDisconnected, wifi.StaDisconnected{
			SSID:   n.SSID,
			BSSID:  n.BSSID,
			Reason: wifi.ReasonAssocLeave,
			RSSI:   n.RSSI,
		}})
	}
	return nil
}

func (d *Driver) StartScan(conf *wifi.ScanConfig) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("StartScan"); err != nil {
		return err
	}
	if !d.started {
		return wifi.Check(wifi.CodeWifiNotStarted)
	}
	if !hasSTA(d.mode) {
		return wifi.Check(wifi.CodeWifiMode)
	}

	d.results = d.results[:0]
	for _, n := range d.networks {
		d.results = append(d.results, wifi.ApRecord{
			SSID:     n.SSID,
			BSSID:    n.BSSID,
			Channel:  n.Channel,
			RSSI:     n.RSSI,
			AuthMode: n.AuthMode,
		})
	}
	d.emit(event{wifi.WifiEvent, wifi.EventScanDone, wifi.ScanDone{
		Status: 0,
		Number: uint8(len(d.results)),
	}})
	return nil
}

func (d *Driver) ScanResults() ([]wifi.ApRecord, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.injected("ScanResults"); err != nil {
		return nil, err
	}
	return slices.Clone(d.results), nil
}

func (d *Driver) IPInfo(iface wifi.Interface) (wifi.IPInfo, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.started {
		return wifi.IPInfo{}, wifi.Check(wifi.CodeWifiNotStarted)
	}
	switch iface {
	case wifi.InterfaceAP:
		if !hasAP(d.mode) {
			return wifi.IPInfo{}, wifi.Check(wifi.CodeWifiIf)
		}
		return d.apIP, nil
	default:
		if d.connected == nil {
			return wifi.IPInfo{}, wifi.Check(wifi.CodeWifiConn)
		}
		return d.connected.IPInfo, nil
	}
}

// MAC follows the usual layout: the AP address is the station one plus 1.
func (d *Driver) MAC(iface wifi.Interface) (net.HardwareAddr, error) {
	if len(d.mac) != 6 {
		return nil, wifi.Check(wifi.CodeWifiMAC)
	}
	mac := slices.Clone(d.mac)
	if iface == wifi.InterfaceAP {
		mac[5]++
	}
	return mac, nil
}
