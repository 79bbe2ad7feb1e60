// SPDX-License-Identifier: MIT
//
// WiFi driver and event bus interfaces.
//

package wifi

import (
	"net"
)

// Driver is the vendor WiFi driver.  Failed calls return an *Error.
type Driver interface {
	SetMode(mode Mode) error
	SetAPConfig(conf *APConfig) error
	SetSTAConfig(conf *STAConfig) error
	// Start the radio.  Emits EventStaStart / EventApStart.
	Start() error
	Stop() error
	// Begin association with the configured network.  Progress is reported
	// with EventStaConnected / EventStaDisconnected and then EventStaGotIP.
	Connect() error
	Disconnect() error
	// Start a scan; EventScanDone is emitted when it finishes.
	StartScan(conf *ScanConfig) error
	ScanResults() ([]ApRecord, error)
	IPInfo(iface Interface) (IPInfo, error)
	MAC(iface Interface) (net.HardwareAddr, error)
}

type EventBase string

const (
	WifiEvent EventBase = "WIFI_EVENT"
	IPEvent   EventBase = "IP_EVENT"
)

type EventID int32

// Events of WifiEvent
const (
	EventScanDone        EventID = 1
	EventStaStart        EventID = 2
	EventStaStop         EventID = 3
	EventStaConnected    EventID = 4
	EventStaDisconnected EventID = 5
	EventApStart         EventID = 12
	EventApStop          EventID = 13
)

// Events of IPEvent
const (
	EventStaGotIP  EventID = 0
	EventStaLostIP EventID = 1
)

// Handler receives an event with its payload, whose type depends on the
// event: StaConnected, StaDisconnected, GotIP, ScanDone or nil.
// Handlers may be called on any goroutine.
type Handler func(base EventBase, id EventID, data any)

// HandlerID identifies a registration.
type HandlerID uint64

// EventBus is the driver event loop.
type EventBus interface {
	Register(base EventBase, id EventID, h Handler) (HandlerID, error)
	Unregister(id HandlerID) error
}

type StaConnected struct {
	SSID     SSID
	BSSID    net.HardwareAddr
	Channel  uint8
	AuthMode AuthMode
}

type StaDisconnected struct {
	SSID   SSID
	BSSID  net.HardwareAddr
	Reason Reason
	RSSI   int8
}

type GotIP struct {
	IPInfo  IPInfo
	Changed bool
}

type ScanDone struct {
	// 0 on success
	Status uint32
	Number uint8
	ScanID uint8
}
