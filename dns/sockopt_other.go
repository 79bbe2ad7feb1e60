// SPDX-License-Identifier: MIT
//
// Socket options on other systems.
//

//go:build !linux

package dns

import (
	"fmt"
	"syscall"
)

func controlFunc(iface string) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if iface != "" {
			return fmt.Errorf("binding to interface [%s] not supported", iface)
		}
		return nil
	}
}
