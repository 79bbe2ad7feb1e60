// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024-2025 Aaron LI
//
// Portal orchestration.
//
// On start the stored credentials are tried first; without them, or when
// the connection fails, the access point is brought up with the captive
// DNS responder handing out its address.  Credentials submitted on the
// configuration page are tried in turn, falling back to the access point
// again on failure, and saved once a connection succeeds.
//

package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"captiveportal/api"
	"captiveportal/config"
	"captiveportal/dns"
	"captiveportal/log"
	"captiveportal/storage"
	"captiveportal/ui"
	"captiveportal/util/ttlcache"
	"captiveportal/wifi"
)

const (
	CredsNamespace = "wifi"
	KeySSID        = "ssid"
	KeyPassword    = "password"

	scanCacheKey    = "networks"
	shutdownTimeout = 5 * time.Second
)

const (
	ModeStarting    = "starting"
	ModeStation     = "station"
	ModeAccessPoint = "access-point"
)

var logger = log.New("portal")

type request struct {
	ssid     wifi.SSID
	password wifi.Password
}

type Manager struct {
	conf      *config.Config
	radio     *wifi.Radio
	creds     *storage.Namespace
	addr      *config.ApAddr
	responder *dns.Responder
	handler   http.Handler
	scans     *ttlcache.Cache[[]wifi.ApRecord]
	requests  chan request

	// scanLock is held for a whole scan and while the running radio is
	// detached, so a scan never races a Stop.  It is taken before lock.
	scanLock sync.Mutex
	lock     sync.Mutex
	running  *wifi.Running // nil while reconfiguring
	mode     string
	ssid     wifi.SSID
	ip       netip.Addr
	lastErr  error
	pending  bool
	httpAddr net.Addr
}

func New(conf *config.Config, radio *wifi.Radio, store *storage.Store) (*Manager, error) {
	creds, err := store.Namespace(CredsNamespace)
	if err != nil {
		return nil, err
	}

	addr := config.GetApAddr()
	policy, err := dns.NewPolicy(conf.DNS, addr)
	if err != nil {
		return nil, err
	}
	listen, err := netip.ParseAddrPort(net.JoinHostPort(
		conf.DNS.ListenAddr, strconv.Itoa(int(conf.DNS.ListenPort))))
	if err != nil {
		return nil, fmt.Errorf("invalid DNS listen address: %w", err)
	}

	m := &Manager{
		conf:      conf,
		radio:     radio,
		creds:     creds,
		addr:      addr,
		responder: dns.NewResponder(listen, conf.DNS.Interface, policy),
		scans:     ttlcache.New[[]wifi.ApRecord](conf.GetScanCacheTTL(), 0, nil),
		requests:  make(chan request, 1),
		mode:      ModeStarting,
	}
	m.handler = api.NewApiHandler(m, ui.GetTemplate("index.tmpl"), ui.ServeStatic())
	return m, nil
}

// Run brings up the network and serves the DNS responder and the
// configuration page until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	defer m.scans.Close()
	if err := m.bringUp(ctx); err != nil {
		return err
	}
	defer m.shutdown()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.responder.Run(ctx)
	})
	g.Go(func() error {
		return m.serveHTTP(ctx)
	})
	g.Go(func() error {
		return m.loop(ctx)
	})
	return g.Wait()
}

// HTTPAddr returns the bound address of the configuration page, or nil if
// not serving.
func (m *Manager) HTTPAddr() net.Addr {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.httpAddr
}

// DNSAddr returns the bound address of the DNS responder, or nil.
func (m *Manager) DNSAddr() net.Addr {
	return m.responder.Addr()
}

func (m *Manager) serveHTTP(ctx context.Context) error {
	listen := net.JoinHostPort(m.conf.HTTP.ListenAddr,
		strconv.Itoa(int(m.conf.HTTP.ListenPort)))
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		logger.Errorf("failed to listen HTTP at: %s, error: %v", listen, err)
		return err
	}
	m.lock.Lock()
	m.httpAddr = ln.Addr()
	m.lock.Unlock()
	logger.Infof("configuration page: http://%s", ln.Addr())

	srv := &http.Server{
		Handler:           m.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warnf("HTTP shutdown: %v", err)
		}
	}()

	err = srv.Serve(ln)
	m.lock.Lock()
	m.httpAddr = nil
	m.lock.Unlock()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (m *Manager) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-m.requests:
			if err := m.reconfigure(ctx, req); err != nil {
				logger.Errorf("reconfiguration failed: %v", err)
				return err
			}
		}
	}
}

// bringUp takes the radio and starts it in the first role that works.
func (m *Manager) bringUp(ctx context.Context) error {
	idle, err := m.radio.Take()
	if err != nil {
		return err
	}

	ssid, password, ok := m.loadCredentials()
	if ok {
		sta, recovered, err := m.connect(ctx, idle, ssid, password)
		if err == nil {
			m.setStation(sta, ssid)
			return nil
		}
		m.setError(err)
		if recovered == nil {
			return err
		}
		idle = recovered
		if ctx.Err() != nil {
			idle.Release()
			return ctx.Err()
		}
	} else {
		logger.Infof("no stored credentials")
	}

	return m.startAP(idle)
}

// reconfigure switches to the requested network; on failure the access
// point is restarted.
func (m *Manager) reconfigure(ctx context.Context, req request) error {
	m.scanLock.Lock()
	m.lock.Lock()
	running := m.running
	m.running = nil
	m.pending = true
	mode, ip := m.mode, m.ip
	m.lock.Unlock()
	m.scanLock.Unlock()
	if running == nil {
		return errors.New("radio is not running")
	}

	logger.Infof("switching to network [%s]", req.ssid)
	m.scans.Remove(scanCacheKey)
	m.addr.Clear()

	idle, err := running.Stop()
	if err != nil {
		m.lock.Lock()
		m.running = running
		m.pending = false
		m.lastErr = err
		m.lock.Unlock()
		if mode == ModeAccessPoint {
			m.publishAddr(ip)
		}
		logger.Warnf("failed to stop radio for reconfiguration: %v", err)
		return nil
	}

	sta, recovered, err := m.connect(ctx, idle, req.ssid, req.password)
	if err == nil {
		m.saveCredentials(req.ssid, req.password)
		m.setStation(sta, req.ssid)
		return nil
	}
	m.setError(err)
	if recovered == nil {
		return err
	}
	if ctx.Err() != nil {
		recovered.Release()
		return nil
	}
	return m.startAP(recovered)
}

// connect tries a station connection, bounded by the connect timeout.  On
// failure the idle radio is returned if it could be recovered.
func (m *Manager) connect(ctx context.Context, idle *wifi.Idle, ssid wifi.SSID,
	password wifi.Password) (*wifi.Running, *wifi.Idle, error) {
	conf, err := idle.IntoSTA(wifi.STAConfig{
		SSID:       ssid,
		Password:   password,
		SortMethod: wifi.SortBySignal,
	})
	if err != nil {
		return nil, idle, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.conf.GetConnectTimeout())
	defer cancel()
	sta, err := conf.Connect().Wait(ctx)
	if err != nil {
		var cerr *wifi.ConnectError
		if errors.As(err, &cerr) {
			return nil, cerr.Idle(), err
		}
		return nil, nil, err
	}
	return sta, nil, nil
}

func (m *Manager) startAP(idle *wifi.Idle) error {
	conf, err := m.apConfig(idle)
	if err != nil {
		idle.Release()
		return err
	}
	ap, err := idle.IntoAP(conf)
	if err != nil {
		idle.Release()
		return fmt.Errorf("configure AP: %w", err)
	}
	running, err := ap.Start()
	if err != nil {
		ap.Reset().Release()
		return fmt.Errorf("start AP: %w", err)
	}

	ip := running.IPInfo().IP
	if !ip.IsValid() {
		ip = m.conf.ApAddress
	}
	m.publishAddr(ip)

	m.lock.Lock()
	m.running = running
	m.mode = ModeAccessPoint
	m.ssid = conf.SSID
	m.ip = ip
	m.pending = false
	m.lock.Unlock()
	logger.Noticef("access point [%s] up at %s", conf.SSID, ip)
	return nil
}

func (m *Manager) publishAddr(ip netip.Addr) {
	if err := m.addr.SetV4(ip); err != nil {
		logger.Warnf("failed to publish AP address: %v", err)
	}
}

func (m *Manager) apConfig(idle *wifi.Idle) (wifi.APConfig, error) {
	c := m.conf.AP
	ssid, err := wifi.NewSSID(c.SSID)
	if err != nil {
		return wifi.APConfig{}, err
	}
	if ssid == "" {
		if ssid, err = idle.DefaultAPSSID(); err != nil {
			return wifi.APConfig{}, err
		}
	}
	password, err := wifi.NewPassword(c.Password)
	if err != nil {
		return wifi.APConfig{}, err
	}
	return wifi.APConfig{
		SSID:           ssid,
		Password:       password,
		Channel:        c.Channel,
		MaxConnections: c.MaxConnection,
		Hidden:         c.Hidden,
	}, nil
}

func (m *Manager) setStation(sta *wifi.Running, ssid wifi.SSID) {
	m.addr.Clear()
	m.lock.Lock()
	m.running = sta
	m.mode = ModeStation
	m.ssid = ssid
	m.ip = sta.IPInfo().IP
	m.lastErr = nil
	m.pending = false
	m.lock.Unlock()
	logger.Noticef("connected to [%s] as %s", ssid, sta.IPInfo().IP)
}

func (m *Manager) setError(err error) {
	m.lock.Lock()
	m.lastErr = err
	m.lock.Unlock()
}

func (m *Manager) loadCredentials() (wifi.SSID, wifi.Password, bool) {
	ssid, err := storage.Get[string](m.creds, KeySSID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warnf("failed to read stored ssid: %v", err)
		}
		return "", "", false
	}
	password, err := storage.Get[string](m.creds, KeyPassword)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warnf("failed to read stored password: %v", err)
		return "", "", false
	}

	s, err := wifi.NewSSID(ssid)
	if err != nil || s == "" {
		logger.Warnf("invalid stored ssid [%s]", ssid)
		return "", "", false
	}
	p, err := wifi.NewPassword(password)
	if err != nil {
		logger.Warnf("invalid stored password: %v", err)
		return "", "", false
	}
	return s, p, true
}

func (m *Manager) saveCredentials(ssid wifi.SSID, password wifi.Password) {
	if err := storage.Set(m.creds, KeySSID, string(ssid)); err != nil {
		logger.Errorf("failed to store ssid: %v", err)
		return
	}
	if err := storage.Set(m.creds, KeyPassword, string(password)); err != nil {
		logger.Errorf("failed to store password: %v", err)
		return
	}
	logger.Infof("stored credentials of [%s]", ssid)
}

func (m *Manager) shutdown() {
	m.addr.Clear()
	m.scanLock.Lock()
	m.lock.Lock()
	running := m.running
	m.running = nil
	m.mode = ModeStarting
	m.lock.Unlock()
	m.scanLock.Unlock()
	if running != nil {
		running.Close()
	}
}

// Status implements api.Controller.
func (m *Manager) Status() api.Status {
	m.lock.Lock()
	st := api.Status{
		Mode:    m.mode,
		SSID:    string(m.ssid),
		Pending: m.pending,
	}
	if m.ip.IsValid() {
		st.IP = m.ip.String()
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	m.lock.Unlock()

	st.DNS = m.responder.Stats()
	return st
}

// Networks implements api.Controller.  Results are cached for the scan
// cache TTL.
func (m *Manager) Networks(ctx context.Context) ([]api.Network, error) {
	if records, ok := m.scans.Get(scanCacheKey); ok {
		return toNetworks(records), nil
	}

	m.scanLock.Lock()
	defer m.scanLock.Unlock()
	m.lock.Lock()
	running := m.running
	m.lock.Unlock()
	if running == nil {
		return nil, api.ErrBusy
	}
	records, err := running.Scan(ctx, wifi.ScanConfig{})
	if err != nil {
		return nil, err
	}
	m.scans.Set(scanCacheKey, records, ttlcache.DefaultTTL)
	return toNetworks(records), nil
}

func toNetworks(records []wifi.ApRecord) []api.Network {
	networks := make([]api.Network, 0, len(records))
	for _, r := range records {
		networks = append(networks, api.Network{
			SSID:    string(r.SSID),
			BSSID:   r.BSSID.String(),
			Channel: r.Channel,
			RSSI:    r.RSSI,
			Auth:    r.AuthMode.String(),
		})
	}
	return networks
}

// Connect implements api.Controller.
func (m *Manager) Connect(ssid, password string) error {
	s, err := wifi.NewSSID(ssid)
	if err != nil {
		return &api.CredentialError{Err: err}
	}
	if s == "" {
		return &api.CredentialError{Err: errors.New("ssid is empty")}
	}
	p, err := wifi.NewPassword(password)
	if err != nil {
		return &api.CredentialError{Err: err}
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	select {
	case m.requests <- request{ssid: s, password: p}:
		m.pending = true
		return nil
	default:
		return api.ErrBusy
	}
}
