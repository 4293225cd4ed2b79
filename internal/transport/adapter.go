// Package transport relays a Socket.IO event channel to in-process
// observers as connection status transitions and raw channel payloads.
// Retry timing belongs to the Socket.IO client manager; the adapter only
// maps its lifecycle events onto Status values.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/zishang520/engine.io/v2/types"
	sio "github.com/zishang520/socket.io-client-go/socket"
)

// Status is the connection state surfaced for display.
type Status string

const (
	StatusDisabled   Status = "disabled"
	StatusConnecting Status = "connecting"
	StatusLive       Status = "live"
	StatusOffline    Status = "offline"
	StatusError      Status = "error"
)

// DefaultChannels are subscribed when none are configured.
var DefaultChannels = []string{"scan.ingested", "part_location_updated", "scan_update"}

// RawEvent is a payload received on a subscribed channel. Payload is a
// map[string]any for JSON objects and the decoded JSON value otherwise.
type RawEvent struct {
	Channel string
	Payload any
}

// Observer receives status transitions and channel events.
type Observer interface {
	OnStatus(status Status, err error)
	OnEvent(ev RawEvent)
}

// Options configures an Adapter.
type Options struct {
	BaseURL     string
	Path        string
	Namespace   string
	Channels    []string
	Token       string
	AutoConnect bool
	Logger      *slog.Logger
}

// Reconnect backoff handed to the client manager, in milliseconds.
const (
	reconnectDelay    = 1000
	reconnectDelayMax = 8000
)

// ErrUnusableEndpoint is reported with StatusOffline when the base URL
// cannot address a Socket.IO server.
var ErrUnusableEndpoint = errors.New("transport: unusable socket endpoint")

// Adapter owns at most one running Socket.IO client.
type Adapter struct {
	opts     Options
	channels map[string]bool
	log      *slog.Logger

	mu        sync.Mutex
	observers []Observer
	status    Status
	conn      *conn
}

// NormalizeChannels trims names, drops empties and duplicates, and falls
// back to DefaultChannels when nothing remains.
func NormalizeChannels(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultChannels...)
	}
	return out
}

// New creates an adapter. Nothing happens until Connect.
func New(opts Options) *Adapter {
	opts.Channels = NormalizeChannels(opts.Channels)
	a := &Adapter{
		opts:     opts,
		channels: make(map[string]bool, len(opts.Channels)),
		log:      opts.Logger,
		status:   StatusOffline,
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	for _, ch := range opts.Channels {
		a.channels[ch] = true
	}
	return a
}

// Channels returns the subscribed channel names.
func (a *Adapter) Channels() []string {
	return append([]string(nil), a.opts.Channels...)
}

// Subscribe registers an observer. Observers added after Connect only see
// later emissions.
func (a *Adapter) Subscribe(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Status returns the last reported status.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Connect starts the connection, or resumes it if one is already running.
// The context only scopes the call; the connection lives until Disconnect.
func (a *Adapter) Connect(ctx context.Context) {
	if !a.opts.AutoConnect || strings.TrimSpace(a.opts.BaseURL) == "" {
		a.emitStatus(StatusDisabled, nil)
		return
	}

	origin, err := endpointOrigin(a.opts.BaseURL)
	if err != nil {
		a.log.Warn("socket client unavailable", "base", a.opts.BaseURL, "error", err)
		a.emitStatus(StatusOffline, err)
		return
	}

	a.mu.Lock()
	if a.conn != nil {
		a.mu.Unlock()
		return
	}
	c := &conn{a: a}
	a.conn = c
	a.mu.Unlock()

	opts := sio.DefaultOptions()
	opts.SetAutoConnect(false)
	opts.SetForceNew(true)
	opts.SetPath(socketPath(a.opts.Path))
	opts.SetTransports(types.NewSet(sio.WebSocket))
	opts.SetReconnectionDelay(reconnectDelay)
	opts.SetReconnectionDelayMax(reconnectDelayMax)
	if a.opts.Token != "" {
		opts.SetAuth(map[string]any{"token": a.opts.Token})
		opts.SetExtraHeaders(http.Header{"Authorization": {"Bearer " + a.opts.Token}})
	}

	manager := sio.NewManager(origin, opts)
	c.sock = manager.Socket(namespace(a.opts.Namespace), opts)
	manager.On("reconnect_attempt", c.onReconnectAttempt)
	c.sock.On("connect", c.onConnect)
	c.sock.On("connect_error", c.onConnectError)
	c.sock.On("disconnect", c.onDisconnect)
	for _, ch := range a.opts.Channels {
		c.sock.On(types.EventName(ch), func(args ...any) { c.onEvent(ch, args) })
	}

	a.emitStatus(StatusConnecting, nil)
	c.sock.Connect()
}

// Disconnect closes the client. After it returns no further emissions
// happen until the next Connect. Safe to call when not connected.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	c := a.conn
	a.conn = nil
	a.mu.Unlock()
	if c == nil {
		return
	}
	c.stop()
	a.emitStatus(StatusOffline, nil)
}

func (a *Adapter) emitStatus(s Status, err error) {
	a.mu.Lock()
	a.status = s
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()
	for _, o := range observers {
		o.OnStatus(s, err)
	}
}

func (a *Adapter) emitEvent(ev RawEvent) {
	a.mu.Lock()
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()
	for _, o := range observers {
		o.OnEvent(ev)
	}
}

// conn is one client lifetime. Library callbacks arrive on its goroutines;
// once stopped is set none of them reach the adapter.
type conn struct {
	a    *Adapter
	sock *sio.Socket

	mu      sync.RWMutex
	stopped bool
}

func (c *conn) stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	// Disconnect fires the disconnect listener synchronously, so the lock
	// must be released first.
	c.sock.Disconnect()
}

// relay runs fn unless the connection was stopped.
func (c *conn) relay(fn func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		return
	}
	fn()
}

func (c *conn) onConnect(...any) {
	c.relay(func() { c.a.emitStatus(StatusLive, nil) })
}

func (c *conn) onDisconnect(args ...any) {
	var err error
	if len(args) > 1 {
		err, _ = args[1].(error)
	}
	if err == nil && len(args) > 0 {
		if reason, ok := args[0].(string); ok && reason != "" {
			err = errors.New(reason)
		}
	}
	c.relay(func() {
		c.a.log.Info("socket disconnected", "error", err)
		c.a.emitStatus(StatusOffline, err)
	})
}

func (c *conn) onConnectError(args ...any) {
	var err error
	if len(args) > 0 {
		err, _ = args[0].(error)
	}
	if err == nil {
		err = errors.New("connect_error")
	}
	c.relay(func() {
		c.a.log.Warn("socket connect_error", "error", err)
		c.a.emitStatus(StatusError, err)
	})
}

func (c *conn) onReconnectAttempt(args ...any) {
	c.relay(func() {
		c.a.log.Debug("socket reconnect attempt", "attempt", args)
		c.a.emitStatus(StatusConnecting, nil)
	})
}

func (c *conn) onEvent(channel string, args []any) {
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	c.relay(func() { c.a.emitEvent(RawEvent{Channel: channel, Payload: payload}) })
}

// endpointOrigin reduces an http(s) or ws(s) base URL to the origin the
// client manager dials. The Socket.IO path is configured separately.
func endpointOrigin(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnusableEndpoint, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrUnusableEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: base %q has no host", ErrUnusableEndpoint, base)
	}
	return u.Scheme + "://" + u.Host, nil
}

// socketPath returns path with a leading slash, defaulting to "/socket.io".
func socketPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/socket.io"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func namespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return "/"
	}
	if !strings.HasPrefix(ns, "/") {
		ns = "/" + ns
	}
	return ns
}
