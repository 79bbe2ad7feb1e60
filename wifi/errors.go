// SPDX-License-Identifier: MIT
//
// WiFi driver errors.
//

package wifi

import (
	"errors"
	"fmt"
)

// Driver return codes.
const (
	CodeOK           int32 = 0
	CodeFail         int32 = -1
	CodeNoMem        int32 = 0x101
	CodeInvalidArg   int32 = 0x102
	CodeInvalidState int32 = 0x103
	CodeNotFound     int32 = 0x105
	CodeNotSupported int32 = 0x106
	CodeTimeout      int32 = 0x107

	codeWifiBase       int32 = 0x3000
	CodeWifiNotInit    int32 = codeWifiBase + 1
	CodeWifiNotStarted int32 = codeWifiBase + 2
	CodeWifiNotStopped int32 = codeWifiBase + 3
	CodeWifiIf         int32 = codeWifiBase + 4
	CodeWifiMode       int32 = codeWifiBase + 5
	CodeWifiState      int32 = codeWifiBase + 6
	CodeWifiConn       int32 = codeWifiBase + 7
	CodeWifiNVS        int32 = codeWifiBase + 8
	CodeWifiMAC        int32 = codeWifiBase + 9
	CodeWifiSSID       int32 = codeWifiBase + 10
	CodeWifiPassword   int32 = codeWifiBase + 11
	CodeWifiTimeout    int32 = codeWifiBase + 12
)

var codeNames = map[int32]string{
	CodeFail:           "FAIL",
	CodeNoMem:          "NO_MEM",
	CodeInvalidArg:     "INVALID_ARG",
	CodeInvalidState:   "INVALID_STATE",
	CodeNotFound:       "NOT_FOUND",
	CodeNotSupported:   "NOT_SUPPORTED",
	CodeTimeout:        "TIMEOUT",
	CodeWifiNotInit:    "WIFI_NOT_INIT",
	CodeWifiNotStarted: "WIFI_NOT_STARTED",
	CodeWifiNotStopped: "WIFI_NOT_STOPPED",
	CodeWifiIf:         "WIFI_IF",
	CodeWifiMode:       "WIFI_MODE",
	CodeWifiState:      "WIFI_STATE",
	CodeWifiConn:       "WIFI_CONN",
	CodeWifiNVS:        "WIFI_NVS",
	CodeWifiMAC:        "WIFI_MAC",
	CodeWifiSSID:       "WIFI_SSID",
	CodeWifiPassword:   "WIFI_PASSWORD",
	CodeWifiTimeout:    "WIFI_TIMEOUT",
}

// Error is a non-zero driver return code.
type Error struct {
	Code int32
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("wifi: %s (0x%x)", e.Name, e.Code)
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: c})
// works without the name.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Check converts a driver return code into an error; nil for CodeOK.
func Check(code int32) error {
	if code == CodeOK {
		return nil
	}
	name, ok := codeNames[code]
	if !ok {
		name = "UNKNOWN"
	}
	return &Error{Code: code, Name: name}
}

// CodeOf extracts the driver code from err, or CodeFail if err does not
// carry one.
func CodeOf(err error) int32 {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeFail
}

var ErrRadioInUse = errors.New("wifi: radio in use")

type FailKind int

const (
	// The driver reported an error during the attempt.
	FailInternal FailKind = iota
	// The link went down with a reason code.
	FailDisconnected
	// The caller gave up waiting.
	FailCanceled
)

func (k FailKind) String() string {
	switch k {
	case FailInternal:
		return "internal"
	case FailDisconnected:
		return "disconnected"
	case FailCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("FailKind(%d)", int(k))
	}
}

// ConnectError is the failed outcome of a connection attempt.  It hands
// back the radio so the caller can try something else, e.g. the AP role.
type ConnectError struct {
	Kind   FailKind
	Reason Reason // for FailDisconnected
	Err    error  // underlying cause for FailInternal and FailCanceled

	idle *Idle
}

func (e *ConnectError) Error() string {
	switch e.Kind {
	case FailDisconnected:
		return fmt.Sprintf("wifi: connect failed: disconnected: %s", e.Reason)
	default:
		if e.Err != nil {
			return fmt.Sprintf("wifi: connect failed: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("wifi: connect failed: %s", e.Kind)
	}
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Idle returns the recovered radio handle.
func (e *ConnectError) Idle() *Idle {
	return e.idle
}
