// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Aaron LI
//
// Configuration management - Access point address
//

package config

import (
	"fmt"
	"net/netip"
	"sync"
)

// The IPv4 address of the access point interface, published by the portal
// once the AP is running and handed out by the DNS responder.  It is unset
// while the device runs as a station.
type ApAddr struct {
	ipv4 netip.Addr
	lock sync.RWMutex
}

func (x *ApAddr) GetV4() (netip.Addr, bool) {
	x.lock.RLock()
	defer x.lock.RUnlock()

	return x.ipv4, x.ipv4.IsValid()
}

func (x *ApAddr) SetV4(addr netip.Addr) error {
	if !addr.Is4() {
		return fmt.Errorf("not IPv4 address [%s]", addr)
	}
	if addr.IsUnspecified() || addr.IsLoopback() || addr.IsMulticast() {
		return fmt.Errorf("not unicast IPv4 address [%s]", addr)
	}

	x.lock.Lock()
	defer x.lock.Unlock()

	x.ipv4 = addr
	return nil
}

func (x *ApAddr) Clear() {
	x.lock.Lock()
	defer x.lock.Unlock()

	x.ipv4 = netip.Addr{}
}

var (
	apAddr     *ApAddr
	apAddrOnce sync.Once
)

func GetApAddr() *ApAddr {
	apAddrOnce.Do(func() {
		apAddr = &ApAddr{}
	})
	return apAddr
}
