// SPDX-License-Identifier: MIT
//
// Configuration management - tests
//

package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew1(t *testing.T) {
	conf, err := New(ConfigFile{})
	if err != nil {
		t.Fatalf(`New({}) failed: %v`, err)
	}
	if conf.DNS.Policy != PolicyWildcard || conf.DNS.ListenPort != 53 ||
		conf.DNS.TTL != 60 {
		t.Errorf(`New({}) dns = %+v; unexpected defaults`, conf.DNS)
	}
	if conf.AP.MaxConnection != 4 || conf.AP.Channel != 1 {
		t.Errorf(`New({}) ap = %+v; unexpected defaults`, conf.AP)
	}
	if want := netip.MustParseAddr("192.168.4.1"); conf.ApAddress != want {
		t.Errorf(`ApAddress = %s; want %s`, conf.ApAddress, want)
	}
	if d := conf.GetConnectTimeout(); d != 15*time.Second {
		t.Errorf(`GetConnectTimeout() = %s; want 15s`, d)
	}
}

func TestNew2(t *testing.T) {
	conf, err := New(ConfigFile{DNS: &DNSConfig{Policy: PolicyHostnames}})
	if err != nil {
		t.Fatalf(`New(hostnames) failed: %v`, err)
	}
	if len(conf.DNS.Hostnames) != 1 || conf.DNS.Hostnames[0] != "captive.apple.com" {
		t.Errorf(`Hostnames = %v; want [captive.apple.com]`, conf.DNS.Hostnames)
	}

	items := []ConfigFile{
		{DNS: &DNSConfig{Policy: "everything"}},
		{AP: &APConfig{Address: "fe80::1"}},
		{AP: &APConfig{Address: "not-an-ip"}},
		{AP: &APConfig{Channel: 15}},
		{AP: &APConfig{Password: "short"}},
	}
	for _, cf := range items {
		if _, err := New(cf); err == nil {
			t.Errorf(`New(%+v) succeeded; want error`, cf)
		}
	}
}

func TestInitializeLoad1(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conf")
	if err := Initialize(dir); err != nil {
		t.Fatalf(`Initialize() failed: %v`, err)
	}
	if err := Initialize(dir); err == nil {
		t.Errorf(`Initialize() again succeeded; want error`)
	}
	if _, err := os.Stat(filepath.Join(dir, configFilename)); err != nil {
		t.Errorf(`config file missing: %v`, err)
	}

	if err := Load(dir); err != nil {
		t.Fatalf(`Load() failed: %v`, err)
	}
	conf := Get()
	if p := conf.StorageFile.Path(); p != filepath.Join(dir, "storage.yaml") {
		t.Errorf(`StorageFile.Path() = %q; unexpected`, p)
	}
}

func TestApAddr1(t *testing.T) {
	x := &ApAddr{}
	if _, ok := x.GetV4(); ok {
		t.Errorf(`GetV4() on empty = true; want false`)
	}
	for _, s := range []string{"0.0.0.0", "127.0.0.1", "224.0.0.1", "::1"} {
		if err := x.SetV4(netip.MustParseAddr(s)); err == nil {
			t.Errorf(`SetV4(%s) succeeded; want error`, s)
		}
	}
	addr := netip.MustParseAddr("192.168.4.1")
	if err := x.SetV4(addr); err != nil {
		t.Errorf(`SetV4(%s) failed: %v`, addr, err)
	}
	if a, ok := x.GetV4(); !ok || a != addr {
		t.Errorf(`GetV4() = (%s, %t); want (%s, true)`, a, ok, addr)
	}
	x.Clear()
	if _, ok := x.GetV4(); ok {
		t.Errorf(`GetV4() after Clear() = true; want false`)
	}

	if GetApAddr() != GetApAddr() {
		t.Errorf(`GetApAddr() returns different instances`)
	}
}

func TestVersionString(t *testing.T) {
	vi := &VersionInfo{Version: "v0.3.0", Date: "2025-03-01"}
	if s := vi.String(); s != "v0.3.0 (2025-03-01)" {
		t.Errorf(`String() = %q; want "v0.3.0 (2025-03-01)"`, s)
	}
	vi = &VersionInfo{Version: "v0.3.0"}
	if s := vi.String(); s != "v0.3.0" {
		t.Errorf(`String() = %q; want "v0.3.0"`, s)
	}
}
