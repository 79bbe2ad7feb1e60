// SPDX-License-Identifier: MIT
//
// WiFi configurations.
//

package wifi

import (
	"fmt"
	"net"
	"time"
)

const (
	DefaultMaxConnections = 4
	DefaultBeaconInterval = 100 // TU
	DefaultChannel        = 1
)

type APConfig struct {
	SSID           SSID
	Password       Password
	Channel        uint8
	AuthMode       AuthMode
	MaxConnections uint8
	Hidden         bool
	BeaconInterval uint16
}

// withDefaults fills in the zero fields.  The auth mode follows the
// password: open without one, WPA2-PSK otherwise.
func (c APConfig) withDefaults() APConfig {
	if c.Channel == 0 {
		c.Channel = DefaultChannel
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.BeaconInterval == 0 {
		c.BeaconInterval = DefaultBeaconInterval
	}
	if c.Password == "" {
		c.AuthMode = AuthOpen
	} else if c.AuthMode == AuthOpen {
		c.AuthMode = AuthWPA2PSK
	}
	return c
}

func (c *APConfig) validate() error {
	if c.SSID == "" {
		return &ConfigError{What: "ssid", Reason: "empty"}
	}
	if _, err := NewSSID(string(c.SSID)); err != nil {
		return err
	}
	if _, err := NewPassword(string(c.Password)); err != nil {
		return err
	}
	if c.Password != "" && len(c.Password) < MinPasswordLength {
		return &ConfigError{
			What:   "password",
			Reason: fmt.Sprintf("shorter than %d bytes", MinPasswordLength),
		}
	}
	if c.Channel > 14 {
		return &ConfigError{What: "channel", Reason: fmt.Sprintf("%d", c.Channel)}
	}
	return nil
}

func (c APConfig) String() string {
	return fmt.Sprintf("ssid=%q password=%s channel=%d auth=%s max_conn=%d hidden=%t beacon=%d",
		c.SSID, c.Password, c.Channel, c.AuthMode, c.MaxConnections,
		c.Hidden, c.BeaconInterval)
}

type ScanMethod uint8

const (
	ScanFast ScanMethod = iota // stop at the first match
	ScanFull                   // scan all channels
)

type SortMethod uint8

const (
	SortBySignal SortMethod = iota
	SortBySecurity
)

// ScanThreshold filters the candidate access points.
type ScanThreshold struct {
	RSSI     int8
	AuthMode AuthMode
}

type STAConfig struct {
	SSID       SSID
	Password   Password
	ScanMethod ScanMethod
	// Connect to this access point only if set.
	BSSID net.HardwareAddr
	// 0 for unknown
	Channel uint8
	// Beacon intervals between wake-ups in power save mode; 0 for default.
	ListenInterval uint16
	SortMethod     SortMethod
	Threshold      ScanThreshold
}

func (c *STAConfig) validate() error {
	if c.SSID == "" {
		return &ConfigError{What: "ssid", Reason: "empty"}
	}
	if _, err := NewSSID(string(c.SSID)); err != nil {
		return err
	}
	if _, err := NewPassword(string(c.Password)); err != nil {
		return err
	}
	if c.BSSID != nil && len(c.BSSID) != 6 {
		return &ConfigError{What: "bssid", Reason: c.BSSID.String()}
	}
	return nil
}

func (c STAConfig) String() string {
	return fmt.Sprintf("ssid=%q password=%s bssid=%s channel=%d",
		c.SSID, c.Password, c.BSSID, c.Channel)
}

type ScanType uint8

const (
	ScanActive ScanType = iota
	ScanPassive
)

type ScanConfig struct {
	// Only report these if set.
	SSID  SSID
	BSSID net.HardwareAddr
	// 0 for all channels
	Channel    uint8
	ShowHidden bool
	Type       ScanType
	// Dwell time per channel; ActiveMin is ignored for passive scans.
	ActiveMin  time.Duration
	ActiveMax  time.Duration
	PassiveMax time.Duration
}

func (c *ScanConfig) validate() error {
	if c.Type == ScanActive && c.ActiveMax > 0 && c.ActiveMin > c.ActiveMax {
		return &ConfigError{
			What:   "scan time",
			Reason: fmt.Sprintf("min %s > max %s", c.ActiveMin, c.ActiveMax),
		}
	}
	return nil
}
