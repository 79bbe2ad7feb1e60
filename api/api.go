// SPDX-License-Identifier: MIT
//
// Configuration page and API handlers.
//

package api

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"captiveportal/dns"
	"captiveportal/log"
)

const scanTimeout = 10 * time.Second

var logger = log.New("api")

// Paths probed by client operating systems to detect a captive portal.
var probePaths = []string{
	"/generate_204",        // Android, Chrome OS
	"/gen_204",             // Android
	"/hotspot-detect.html", // Apple
	"/library/test/success.html",
	"/ncsi.txt",        // Windows
	"/connecttest.txt", // Windows 10+
	"/redirect",
}

// ErrBusy is returned by a Controller while a reconfiguration is in
// progress.
var ErrBusy = errors.New("reconfiguration in progress")

// Status of the network as shown on the page.
type Status struct {
	// "station", "access-point" or "starting"
	Mode string `json:"mode"`
	SSID string `json:"ssid"`
	IP   string `json:"ip,omitempty"`
	// Error of the last connection attempt.
	LastError string `json:"last_error,omitempty"`
	// A connection attempt is in progress.
	Pending bool      `json:"pending"`
	DNS     dns.Stats `json:"dns"`
}

type Network struct {
	SSID    string `json:"ssid"`
	BSSID   string `json:"bssid"`
	Channel uint8  `json:"channel"`
	RSSI    int8   `json:"rssi"`
	Auth    string `json:"auth"`
}

// Controller is the network side of the page.
type Controller interface {
	Status() Status
	Networks(ctx context.Context) ([]Network, error)
	// Connect requests a switch to station mode.  It returns once the
	// request is queued; a *CredentialError reports invalid input.
	Connect(ssid, password string) error
}

type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return e.Err.Error()
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

type ApiHandler struct {
	ctrl   Controller
	page   *template.Template
	router chi.Router
}

// NewApiHandler builds the handler; page renders GET / and may be nil to
// serve the JSON API only.
func NewApiHandler(ctrl Controller, page *template.Template, static http.Handler) *ApiHandler {
	h := &ApiHandler{
		ctrl:   ctrl,
		page:   page,
		router: chi.NewRouter(),
	}

	r := h.router
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", h.handleIndex)
	r.Post("/connect", h.handleConnectForm)
	if static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", static))
	}
	for _, p := range probePaths {
		r.Get(p, h.handleProbe)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/networks", h.handleNetworks)
		r.Post("/connect", h.handleConnect)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound)
	})

	return h
}

func (h *ApiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debugf("%s %s %s -> %d (%s)", r.RemoteAddr, r.Method,
			r.URL.Path, ww.Status(), time.Since(start))
	})
}

type indexData struct {
	Status   Status
	Networks []Network
	ScanErr  string
}

func (h *ApiHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if h.page == nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("portal\n"))
		return
	}

	data := indexData{Status: h.ctrl.Status()}
	ctx, cancel := context.WithTimeout(r.Context(), scanTimeout)
	defer cancel()
	networks, err := h.ctrl.Networks(ctx)
	if err != nil {
		data.ScanErr = err.Error()
	}
	data.Networks = networks

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.page.Execute(w, data); err != nil {
		logger.Errorf("failed to render page: %v", err)
	}
}

func (h *ApiHandler) handleConnectForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ssid := r.PostForm.Get("ssid")
	password := r.PostForm.Get("password")
	if err := h.connect(w, ssid, password); err != nil {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ApiHandler) handleProbe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, "http://"+portalHost(r)+"/", http.StatusFound)
}

func portalHost(r *http.Request) string {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		return addr.String()
	}
	return r.Host
}

func (h *ApiHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.ctrl.Status())
}

func (h *ApiHandler) handleNetworks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), scanTimeout)
	defer cancel()
	networks, err := h.ctrl.Networks(ctx)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrBusy) {
			code = http.StatusServiceUnavailable
		}
		writeError(w, code, err)
		return
	}
	if networks == nil {
		networks = []Network{}
	}
	writeJSON(w, networks)
}

type connectRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

func (h *ApiHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.connect(w, req.SSID, req.Password); err != nil {
		return
	}
	writeJSON(w, map[string]string{"status": "pending"})
}

// connect forwards the request and writes the error response if any.
func (h *ApiHandler) connect(w http.ResponseWriter, ssid, password string) error {
	err := h.ctrl.Connect(ssid, password)
	if err == nil {
		logger.Infof("connection to [%s] requested", ssid)
		return nil
	}

	var cerr *CredentialError
	switch {
	case errors.As(err, &cerr):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
	return err
}
