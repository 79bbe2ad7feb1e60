// SPDX-License-Identifier: MIT
//
// WiFi types: credentials, modes and records.
//

package wifi

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"unicode/utf8"
)

const (
	MaxSSIDLength     = 32 // bytes
	MaxPasswordLength = 64 // bytes
	MinPasswordLength = 8  // bytes, for WPA/WPA2
)

// ConfigError tells why a SSID or password is rejected.
type ConfigError struct {
	What   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("wifi: invalid %s: %s", e.What, e.Reason)
}

func checkCredential(what string, s string, max int) error {
	if len(s) > max {
		return &ConfigError{
			What:   what,
			Reason: fmt.Sprintf("%d bytes long, but maximum is %d bytes", len(s), max),
		}
	}
	if !utf8.ValidString(s) {
		return &ConfigError{What: what, Reason: "not valid UTF-8"}
	}
	if pos := strings.IndexByte(s, 0); pos >= 0 {
		return &ConfigError{
			What:   what,
			Reason: fmt.Sprintf("interior nul byte at pos %d", pos),
		}
	}
	return nil
}

type SSID string

func NewSSID(s string) (SSID, error) {
	if err := checkCredential("ssid", s, MaxSSIDLength); err != nil {
		return "", err
	}
	return SSID(s), nil
}

// Password is masked when printed.
type Password string

func NewPassword(s string) (Password, error) {
	if err := checkCredential("password", s, MaxPasswordLength); err != nil {
		return "", err
	}
	return Password(s), nil
}

func (p Password) String() string {
	if p == "" {
		return ""
	}
	return "********"
}

func (p Password) GoString() string {
	return fmt.Sprintf("wifi.Password(%q)", p.String())
}

type AuthMode uint8

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPAWPA2PSK
	AuthWPA2Enterprise
	AuthWPA3PSK
	AuthWPA2WPA3PSK
)

var authModeNames = []string{
	AuthOpen:           "open",
	AuthWEP:            "wep",
	AuthWPAPSK:         "wpa-psk",
	AuthWPA2PSK:        "wpa2-psk",
	AuthWPAWPA2PSK:     "wpa-wpa2-psk",
	AuthWPA2Enterprise: "wpa2-enterprise",
	AuthWPA3PSK:        "wpa3-psk",
	AuthWPA2WPA3PSK:    "wpa2-wpa3-psk",
}

func (a AuthMode) String() string {
	if int(a) < len(authModeNames) {
		return authModeNames[a]
	}
	return fmt.Sprintf("AuthMode(%d)", uint8(a))
}

func ParseAuthMode(s string) (AuthMode, error) {
	for i, name := range authModeNames {
		if strings.EqualFold(s, name) {
			return AuthMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown auth mode [%s]", s)
}

// Driver operating mode.
type Mode uint8

const (
	ModeNull Mode = iota
	ModeSTA
	ModeAP
	ModeAPSTA
)

func (m Mode) String() string {
	switch m {
	case ModeNull:
		return "null"
	case ModeSTA:
		return "sta"
	case ModeAP:
		return "ap"
	case ModeAPSTA:
		return "apsta"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Network interface of the radio.
type Interface uint8

const (
	InterfaceSTA Interface = iota
	InterfaceAP
)

func (i Interface) String() string {
	if i == InterfaceAP {
		return "ap"
	}
	return "sta"
}

// Role of a running radio.
type Role uint8

const (
	RoleAP Role = iota + 1
	RoleSTA
)

func (r Role) String() string {
	switch r {
	case RoleAP:
		return "ap"
	case RoleSTA:
		return "sta"
	default:
		return "none"
	}
}

type IPInfo struct {
	IP      netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

func (i IPInfo) String() string {
	return fmt.Sprintf("ip=%s netmask=%s gw=%s", i.IP, i.Netmask, i.Gateway)
}

// ApRecord describes an access point found by a scan.
type ApRecord struct {
	SSID     SSID
	BSSID    net.HardwareAddr
	Channel  uint8
	RSSI     int8
	AuthMode AuthMode
}

// Disconnect reason code reported by the driver.
type Reason uint16

const (
	ReasonUnspecified           Reason = 1
	ReasonAuthExpire            Reason = 2
	ReasonAuthLeave             Reason = 3
	ReasonAssocExpire           Reason = 4
	ReasonAssocTooMany          Reason = 5
	ReasonNotAuthed             Reason = 6
	ReasonNotAssoced            Reason = 7
	ReasonAssocLeave            Reason = 8
	ReasonAssocNotAuthed        Reason = 9
	ReasonDisassocPwrcapBad     Reason = 10
	ReasonDisassocSupchanBad    Reason = 11
	ReasonIEInvalid             Reason = 13
	ReasonMICFailure            Reason = 14
	Reason4WayHandshakeTimeout  Reason = 15
	ReasonGroupKeyUpdateTimeout Reason = 16
	ReasonIEIn4WayDiffers       Reason = 17
	ReasonGroupCipherInvalid    Reason = 18
	ReasonPairwiseCipherInvalid Reason = 19
	ReasonAKMPInvalid           Reason = 20
	ReasonUnsuppRSNIEVersion    Reason = 21
	ReasonInvalidRSNIECap       Reason = 22
	Reason8021XAuthFailed       Reason = 23
	ReasonCipherSuiteRejected   Reason = 24
	ReasonBeaconTimeout         Reason = 200
	ReasonNoAPFound             Reason = 201
	ReasonAuthFail              Reason = 202
	ReasonAssocFail             Reason = 203
	ReasonHandshakeTimeout      Reason = 204
	ReasonConnectionFail        Reason = 205
)

var reasonNames = map[Reason]string{
	ReasonUnspecified:           "UNSPECIFIED",
	ReasonAuthExpire:            "AUTH_EXPIRE",
	ReasonAuthLeave:             "AUTH_LEAVE",
	ReasonAssocExpire:           "ASSOC_EXPIRE",
	ReasonAssocTooMany:          "ASSOC_TOOMANY",
	ReasonNotAuthed:             "NOT_AUTHED",
	ReasonNotAssoced:            "NOT_ASSOCED",
	ReasonAssocLeave:            "ASSOC_LEAVE",
	ReasonAssocNotAuthed:        "ASSOC_NOT_AUTHED",
	ReasonDisassocPwrcapBad:     "DISASSOC_PWRCAP_BAD",
	ReasonDisassocSupchanBad:    "DISASSOC_SUPCHAN_BAD",
	ReasonIEInvalid:             "IE_INVALID",
	ReasonMICFailure:            "MIC_FAILURE",
	Reason4WayHandshakeTimeout:  "4WAY_HANDSHAKE_TIMEOUT",
	ReasonGroupKeyUpdateTimeout: "GROUP_KEY_UPDATE_TIMEOUT",
	ReasonIEIn4WayDiffers:       "IE_IN_4WAY_DIFFERS",
	ReasonGroupCipherInvalid:    "GROUP_CIPHER_INVALID",
	ReasonPairwiseCipherInvalid: "PAIRWISE_CIPHER_INVALID",
	ReasonAKMPInvalid:           "AKMP_INVALID",
	ReasonUnsuppRSNIEVersion:    "UNSUPP_RSN_IE_VERSION",
	ReasonInvalidRSNIECap:       "INVALID_RSN_IE_CAP",
	Reason8021XAuthFailed:       "802_1X_AUTH_FAILED",
	ReasonCipherSuiteRejected:   "CIPHER_SUITE_REJECTED",
	ReasonBeaconTimeout:         "BEACON_TIMEOUT",
	ReasonNoAPFound:             "NO_AP_FOUND",
	ReasonAuthFail:              "AUTH_FAIL",
	ReasonAssocFail:             "ASSOC_FAIL",
	ReasonHandshakeTimeout:      "HANDSHAKE_TIMEOUT",
	ReasonConnectionFail:        "CONNECTION_FAIL",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REASON_%d", uint16(r))
}

// DefaultAPSSID names the access point after the interface MAC address.
func DefaultAPSSID(mac net.HardwareAddr) SSID {
	return SSID("Portal " + strings.ToUpper(mac.String()))
}
