// Package hub is the server side of the scan event channel: a Socket.IO
// endpoint that fans published events out to every connected kiosk.
package hub

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io/v2/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	maxPayload          = 1_000_000
)

var errOriginRejected = errors.New("origin not allowed")

// Options configures a Hub.
type Options struct {
	Namespace      string
	Token          string
	AllowedOrigins []string
	PingInterval   time.Duration
	PingTimeout    time.Duration
	Logger         *slog.Logger
}

// Hub accepts Socket.IO sessions on one namespace and broadcasts events to
// the sockets joined there. Only the websocket transport is offered.
type Hub struct {
	io      *socket.Server
	nsp     socket.Namespace
	handler http.Handler

	token          string
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	log            *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// NormalizeNamespace returns ns with a leading slash, or "/" when empty.
func NormalizeNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return "/"
	}
	if !strings.HasPrefix(ns, "/") {
		ns = "/" + ns
	}
	return ns
}

// New creates a hub.
func New(opts Options) *Hub {
	h := &Hub{
		token:          opts.Token,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		log:            opts.Logger,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	for _, origin := range opts.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		h.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			h.allowedHosts[parsed.Host] = true
		}
	}

	pingInterval, pingTimeout := opts.PingInterval, opts.PingTimeout
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	so := socket.DefaultServerOptions()
	so.SetServeClient(false)
	so.SetPingInterval(pingInterval)
	so.SetPingTimeout(pingTimeout)
	so.SetMaxHttpBufferSize(maxPayload)
	so.SetTransports(types.NewSet(transports.WEBSOCKET))
	so.SetAllowRequest(func(ctx *types.HttpContext) error {
		if !h.checkOrigin(ctx.Request()) {
			h.log.Warn("socket origin rejected", "origin", ctx.Headers().Peek("Origin"), "remote", ctx.Request().RemoteAddr)
			return errOriginRejected
		}
		return nil
	})

	h.io = socket.NewServer(nil, so)
	h.handler = h.io.ServeHandler(nil)

	h.nsp = h.io.Of(NormalizeNamespace(opts.Namespace), nil)
	h.nsp.Use(func(s *socket.Socket, next func(*socket.ExtendedError)) {
		if !h.authorized(tokenCandidates(s.Handshake())...) {
			h.log.Warn("socket client unauthorized", "remote", s.Handshake().Address)
			next(socket.NewExtendedError("unauthorized", map[string]any{"code": "token"}))
			return
		}
		next(nil)
	})
	h.nsp.On("connection", func(args ...any) {
		s := args[0].(*socket.Socket)
		h.log.Info("socket client connected", "remote", s.Handshake().Address, "sid", s.Id())
		s.On("disconnect", func(reason ...any) {
			h.log.Info("socket client disconnected", "remote", s.Handshake().Address, "sid", s.Id(), "reason", reason)
		})
	})
	return h
}

// ServeHTTP hands the request to the Engine.IO server.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// tokenCandidates collects the token from the auth payload, the query
// string and a bearer Authorization header.
func tokenCandidates(hs *socket.Handshake) []string {
	var out []string
	if auth, ok := hs.Auth.(map[string]any); ok {
		if t, ok := auth["token"].(string); ok {
			out = append(out, t)
		}
	}
	if t := url.Values(hs.Query).Get("token"); t != "" {
		out = append(out, t)
	}
	if bearer, ok := strings.CutPrefix(http.Header(hs.Headers).Get("Authorization"), "Bearer "); ok {
		out = append(out, bearer)
	}
	return out
}

func (h *Hub) authorized(candidates ...string) bool {
	if h.token == "" {
		return true
	}
	for _, t := range candidates {
		if t == h.token {
			return true
		}
	}
	return false
}

// Emit broadcasts an event to every socket joined to the namespace and
// returns how many it was sent to.
func (h *Hub) Emit(event string, payload any) int {
	if h.closed.Load() {
		return 0
	}
	n := h.nsp.Sockets().Len()
	if n == 0 {
		return 0
	}
	if err := h.nsp.Emit(event, payload); err != nil {
		h.log.Error("socket emit failed", "event", event, "error", err)
		return 0
	}
	return n
}

// ClientCount returns the number of sockets joined to the namespace.
func (h *Hub) ClientCount() int {
	if h.closed.Load() {
		return 0
	}
	return h.nsp.Sockets().Len()
}

// Close disconnects every client and stops the engine. Later calls are
// no-ops.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.io.Close(nil)
	})
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(h.allowedOrigins) > 0 {
		if h.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return h.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Hostname()
	return parsed.Host == r.Host || host == "localhost" || host == "127.0.0.1" || host == "::1"
}
