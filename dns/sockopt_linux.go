// SPDX-License-Identifier: MIT
//
// Socket options on Linux.
//

//go:build linux

package dns

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlFunc sets SO_REUSEADDR so the responder can be restarted right
// away, and binds the socket to the AP interface if iface is given.
func controlFunc(iface string) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var err error
		cerr := c.Control(func(fd uintptr) {
			err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if err != nil {
				return
			}
			if iface != "" {
				err = unix.BindToDevice(int(fd), iface)
			}
		})
		if cerr != nil {
			return cerr
		}
		return err
	}
}
