// SPDX-License-Identifier: MIT
//
// WiFi types - tests
//

package wifi

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSSID(t *testing.T) {
	_, err := NewSSID(strings.Repeat("x", MaxSSIDLength))
	assert.NoError(t, err)

	for _, s := range []string{
		strings.Repeat("x", MaxSSIDLength+1),
		"bad\x00ssid",
		"\xff\xfe",
	} {
		_, err := NewSSID(s)
		var cerr *ConfigError
		assert.ErrorAs(t, err, &cerr, "NewSSID(%q)", s)
	}
}

func TestPassword(t *testing.T) {
	p, err := NewPassword("hunter22")
	assert.NoError(t, err)
	assert.Equal(t, "********", p.String())
	assert.Equal(t, "********", fmt.Sprintf("%v", p))
	assert.NotContains(t, fmt.Sprintf("%#v", p), "hunter22")
	assert.NotContains(t, STAConfig{SSID: "home", Password: p}.String(), "hunter22")
	assert.Equal(t, "", Password("").String())

	_, err = NewPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(CodeOK))

	err := Check(CodeWifiPassword)
	assert.EqualError(t, err, "wifi: WIFI_PASSWORD (0x300b)")
	assert.Equal(t, CodeWifiPassword, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, CodeFail, CodeOf(fmt.Errorf("other")))

	assert.EqualError(t, Check(0x4242), "wifi: UNKNOWN (0x4242)")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "NO_AP_FOUND", ReasonNoAPFound.String())
	assert.Equal(t, "4WAY_HANDSHAKE_TIMEOUT", Reason4WayHandshakeTimeout.String())
	assert.Equal(t, "REASON_99", Reason(99).String())

	err := &ConnectError{Kind: FailDisconnected, Reason: ReasonAuthFail}
	assert.EqualError(t, err, "wifi: connect failed: disconnected: AUTH_FAIL")
}

func TestParseAuthMode(t *testing.T) {
	a, err := ParseAuthMode("WPA2-PSK")
	assert.NoError(t, err)
	assert.Equal(t, AuthWPA2PSK, a)
	_, err = ParseAuthMode("wpa4")
	assert.Error(t, err)
}
