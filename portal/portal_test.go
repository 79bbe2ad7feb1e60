// SPDX-License-Identifier: MIT

package portal

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captiveportal/api"
	"captiveportal/config"
	"captiveportal/storage"
	"captiveportal/wifi"
	"captiveportal/wifi/sim"
)

type testEnv struct {
	m     *Manager
	drv   *sim.Driver
	radio *wifi.Radio
	store *storage.Store
	path  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conf, err := config.New(config.ConfigFile{
		Sim: &config.SimConfig{
			Networks: []config.SimNetwork{
				{SSID: "home", Password: "secret123", RSSI: -40},
				{SSID: "cafe", RSSI: -70},
			},
		},
	})
	require.NoError(t, err)
	conf.DNS.ListenAddr = "127.0.0.1"
	conf.DNS.ListenPort = 0
	conf.HTTP.ListenAddr = "127.0.0.1"
	conf.HTTP.ListenPort = 0
	conf.ConnectTimeout = 2

	drv, bus, err := sim.FromConfig(conf)
	require.NoError(t, err)
	radio := wifi.NewRadio(drv, bus)

	path := filepath.Join(t.TempDir(), "storage.yaml")
	store, err := storage.Open(path)
	require.NoError(t, err)

	m, err := New(conf, radio, store)
	require.NoError(t, err)
	t.Cleanup(func() {
		m.shutdown()
		m.scans.Close()
		drv.Wait()
		config.GetApAddr().Clear()
	})
	return &testEnv{m: m, drv: drv, radio: radio, store: store, path: path}
}

func (e *testEnv) storeCredentials(t *testing.T, ssid, password string) {
	t.Helper()
	ns, err := e.store.Namespace(CredsNamespace)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ns, KeySSID, ssid))
	require.NoError(t, storage.Set(ns, KeyPassword, password))
}

func (e *testEnv) storedSSID(t *testing.T) (string, error) {
	t.Helper()
	store, err := storage.Open(e.path)
	require.NoError(t, err)
	ns, err := store.Namespace(CredsNamespace)
	require.NoError(t, err)
	return storage.Get[string](ns, KeySSID)
}

func TestBringUpWithoutCredentials(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.m.bringUp(context.Background()))

	st := e.m.Status()
	assert.Equal(t, ModeAccessPoint, st.Mode)
	assert.Equal(t, "Portal 24:0A:C4:00:00:02", st.SSID)
	assert.Equal(t, "192.168.4.1", st.IP)
	assert.Empty(t, st.LastError)
	assert.True(t, e.radio.InUse())
	assert.Equal(t, wifi.ModeAPSTA, e.drv.Mode())

	addr, ok := config.GetApAddr().GetV4()
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("192.168.4.1"), addr)
}

func TestBringUpStoredCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.storeCredentials(t, "home", "secret123")
	require.NoError(t, e.m.bringUp(context.Background()))

	st := e.m.Status()
	assert.Equal(t, ModeStation, st.Mode)
	assert.Equal(t, "home", st.SSID)
	assert.Equal(t, "192.168.1.100", st.IP)
	_, ok := config.GetApAddr().GetV4()
	assert.False(t, ok)
}

func TestBringUpFallsBackToAP(t *testing.T) {
	e := newTestEnv(t)
	e.storeCredentials(t, "home", "wrong-password")
	require.NoError(t, e.m.bringUp(context.Background()))

	st := e.m.Status()
	assert.Equal(t, ModeAccessPoint, st.Mode)
	assert.Contains(t, st.LastError, "4WAY_HANDSHAKE_TIMEOUT")
	_, ok := config.GetApAddr().GetV4()
	assert.True(t, ok)
}

func TestBringUpRadioTaken(t *testing.T) {
	e := newTestEnv(t)
	idle, err := e.radio.Take()
	require.NoError(t, err)
	defer idle.Release()
	assert.ErrorIs(t, e.m.bringUp(context.Background()), wifi.ErrRadioInUse)
}

func TestReconfigure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.m.bringUp(ctx))

	require.NoError(t, e.m.Connect("home", "secret123"))
	assert.True(t, e.m.Status().Pending)
	require.NoError(t, e.m.reconfigure(ctx, <-e.m.requests))

	st := e.m.Status()
	assert.Equal(t, ModeStation, st.Mode)
	assert.Equal(t, "home", st.SSID)
	assert.False(t, st.Pending)
	_, ok := config.GetApAddr().GetV4()
	assert.False(t, ok)

	ssid, err := e.storedSSID(t)
	require.NoError(t, err)
	assert.Equal(t, "home", ssid)
}

func TestReconfigureFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.m.bringUp(ctx))

	require.NoError(t, e.m.Connect("nowhere", ""))
	require.NoError(t, e.m.reconfigure(ctx, <-e.m.requests))

	st := e.m.Status()
	assert.Equal(t, ModeAccessPoint, st.Mode)
	assert.Contains(t, st.LastError, "NO_AP_FOUND")
	assert.False(t, st.Pending)
	_, ok := config.GetApAddr().GetV4()
	assert.True(t, ok)

	_, err := e.storedSSID(t)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConnectValidation(t *testing.T) {
	e := newTestEnv(t)

	var cerr *api.CredentialError
	assert.ErrorAs(t, e.m.Connect("", "x"), &cerr)
	assert.ErrorAs(t, e.m.Connect(strings.Repeat("s", 33), ""), &cerr)
	assert.ErrorAs(t, e.m.Connect("home", strings.Repeat("p", 65)), &cerr)

	require.NoError(t, e.m.Connect("home", "secret123"))
	assert.ErrorIs(t, e.m.Connect("cafe", ""), api.ErrBusy)
}

func TestNetworks(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.m.Networks(ctx)
	assert.ErrorIs(t, err, api.ErrBusy)

	require.NoError(t, e.m.bringUp(ctx))
	networks, err := e.m.Networks(ctx)
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "home", networks[0].SSID)
	assert.Equal(t, "wpa2-psk", networks[0].Auth)
	assert.Equal(t, "cafe", networks[1].SSID)
	assert.Equal(t, "open", networks[1].Auth)

	// Served from the cache.
	e.drv.SetNetworks(nil)
	networks, err = e.m.Networks(ctx)
	require.NoError(t, err)
	assert.Len(t, networks, 2)
}

func TestStatusDuringScan(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.m.bringUp(ctx))
	e.drv.Wait()

	e.drv.Delay = 800 * time.Millisecond
	done := make(chan error, 1)
	go func() {
		_, err := e.m.Networks(ctx)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	st := e.m.Status()
	assert.Equal(t, ModeAccessPoint, st.Mode)
	assert.NoError(t, e.m.Connect("home", "secret123"))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("scan finished early: %v", err)
	default:
	}
	require.NoError(t, <-done)
}

func TestRun(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.m.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return e.m.HTTPAddr() != nil && e.m.DNSAddr() != nil
	}, 5*time.Second, 10*time.Millisecond)

	// Any name resolves to the access point.
	client := &mdns.Client{Net: "udp", Timeout: 2 * time.Second}
	q := new(mdns.Msg)
	q.SetQuestion("connectivitycheck.gstatic.com.", mdns.TypeA)
	resp, _, err := client.Exchange(q, e.m.DNSAddr().String())
	require.NoError(t, err)
	require.Equal(t, mdns.RcodeSuccess, resp.Rcode)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "192.168.4.1", resp.Answer[0].(*mdns.A).A.String())

	base := "http://" + e.m.HTTPAddr().String()
	hc := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	res, err := hc.Get(base + "/generate_204")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusFound, res.StatusCode)

	res, err = hc.Post(base+"/api/connect", "application/json",
		strings.NewReader(`{"ssid":"home","password":"secret123"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Eventually(t, func() bool {
		return e.m.Status().Mode == ModeStation
	}, 5*time.Second, 10*time.Millisecond)

	// No more answers once the access point is down.
	resp, _, err = client.Exchange(q, e.m.DNSAddr().String())
	require.NoError(t, err)
	assert.Equal(t, mdns.RcodeServerFailure, resp.Rcode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
	assert.False(t, e.radio.InUse())
}

func TestRunCanceledEarly(t *testing.T) {
	e := newTestEnv(t)
	e.storeCredentials(t, "home", "secret123")
	e.drv.Delay = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := e.m.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
	assert.False(t, e.radio.InUse())
}
