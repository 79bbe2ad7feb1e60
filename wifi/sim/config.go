// SPDX-License-Identifier: MIT
//
// Simulated radio built from the configuration.
//

package sim

import (
	"fmt"
	"net"
	"net/netip"

	"captiveportal/config"
	"captiveportal/wifi"
)

var (
	defaultNetmask = netip.AddrFrom4([4]byte{255, 255, 255, 0})
	defaultGateway = netip.AddrFrom4([4]byte{192, 168, 1, 1})
)

// FromConfig builds the driver and its event bus from the "sim" section.
// The access point gets the configured AP address on a /24.
func FromConfig(conf *config.Config) (*Driver, *Bus, error) {
	mac, err := net.ParseMAC(conf.Sim.MAC)
	if err != nil || len(mac) != 6 {
		return nil, nil, fmt.Errorf("invalid sim mac [%s]", conf.Sim.MAC)
	}

	networks := make([]Network, 0, len(conf.Sim.Networks))
	for i, sn := range conf.Sim.Networks {
		n, err := parseNetwork(i, &sn)
		if err != nil {
			return nil, nil, fmt.Errorf("sim network #%d: %w", i, err)
		}
		networks = append(networks, n)
	}

	apIP := wifi.IPInfo{
		IP:      conf.ApAddress,
		Netmask: defaultNetmask,
		Gateway: conf.ApAddress,
	}
	bus := NewBus()
	return NewDriver(bus, mac, apIP, networks), bus, nil
}

func parseNetwork(i int, sn *config.SimNetwork) (Network, error) {
	var n Network
	var err error

	if n.SSID, err = wifi.NewSSID(sn.SSID); err != nil {
		return n, err
	}
	if n.SSID == "" {
		return n, fmt.Errorf("empty ssid")
	}
	if n.Password, err = wifi.NewPassword(sn.Password); err != nil {
		return n, err
	}

	if sn.BSSID != "" {
		if n.BSSID, err = net.ParseMAC(sn.BSSID); err != nil {
			return n, err
		}
	} else {
		n.BSSID = net.HardwareAddr{0x02, 0, 0, 0, byte(i >> 8), byte(i + 1)}
	}

	n.Channel = sn.Channel
	if n.Channel == 0 {
		n.Channel = 1
	}
	n.RSSI = sn.RSSI
	if n.RSSI == 0 {
		n.RSSI = -50
	}

	switch {
	case sn.Auth != "":
		if n.AuthMode, err = wifi.ParseAuthMode(sn.Auth); err != nil {
			return n, err
		}
	case n.Password != "":
		n.AuthMode = wifi.AuthWPA2PSK
	default:
		n.AuthMode = wifi.AuthOpen
	}

	n.IPInfo.Netmask = parseAddr(sn.Netmask, defaultNetmask)
	n.IPInfo.Gateway = parseAddr(sn.Gateway, defaultGateway)
	n.IPInfo.IP = parseAddr(sn.IP, netip.AddrFrom4([4]byte{192, 168, 1, byte(100 + i)}))
	if !n.IPInfo.IP.Is4() {
		return n, fmt.Errorf("invalid ip [%s]", sn.IP)
	}
	return n, nil
}

func parseAddr(s string, def netip.Addr) netip.Addr {
	if s == "" {
		return def
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}
	}
	return addr
}
