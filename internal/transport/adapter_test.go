package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/partdoc/kiosk/internal/hub"
)

type statusRecord struct {
	status Status
	err    error
}

type fakeObserver struct {
	mu       sync.Mutex
	statuses []statusRecord
	events   []RawEvent
}

func (f *fakeObserver) OnStatus(s Status, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusRecord{s, err})
}

func (f *fakeObserver) OnEvent(ev RawEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeObserver) lastStatus() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ""
	}
	return f.statuses[len(f.statuses)-1].status
}

func (f *fakeObserver) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeChannels(t *testing.T) {
	got := NormalizeChannels([]string{" scan.ingested ", "", "scan_update", "scan.ingested"})
	want := []string{"scan.ingested", "scan_update"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("NormalizeChannels() = %v, want %v", got, want)
	}

	defaults := NormalizeChannels([]string{"  "})
	if len(defaults) != 3 || defaults[0] != "scan.ingested" {
		t.Errorf("expected default channels, got %v", defaults)
	}
}

func TestConnectDisabled(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "auto connect off", opts: Options{BaseURL: "http://127.0.0.1:1", AutoConnect: false}},
		{name: "no base url", opts: Options{AutoConnect: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = quiet()
			a := New(tt.opts)
			obs := &fakeObserver{}
			a.Subscribe(obs)
			a.Connect(context.Background())
			if got := obs.lastStatus(); got != StatusDisabled {
				t.Errorf("status = %q, want disabled", got)
			}
			a.Disconnect()
		})
	}
}

func TestConnectClientUnavailable(t *testing.T) {
	a := New(Options{BaseURL: "gopher://nowhere", AutoConnect: true, Logger: quiet()})
	obs := &fakeObserver{}
	a.Subscribe(obs)
	a.Connect(context.Background())

	if got := obs.lastStatus(); got != StatusOffline {
		t.Fatalf("status = %q, want offline", got)
	}
	if len(obs.statuses) != 1 || obs.statuses[0].err == nil {
		t.Errorf("expected one offline status with detail, got %+v", obs.statuses)
	}
	if !errors.Is(obs.statuses[0].err, ErrUnusableEndpoint) {
		t.Errorf("err = %v, want ErrUnusableEndpoint", obs.statuses[0].err)
	}
	if a.conn != nil {
		t.Error("adapter must not start a client when the endpoint is unusable")
	}
}

func TestEndpointOrigin(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://kiosk.local:4000/api", want: "http://kiosk.local:4000"},
		{base: "wss://scans.example", want: "https://scans.example"},
		{base: " ws://127.0.0.1:9 ", want: "http://127.0.0.1:9"},
		{base: "gopher://nowhere", wantErr: true},
		{base: "http://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := endpointOrigin(tt.base)
		if tt.wantErr {
			if err == nil {
				t.Errorf("endpointOrigin(%q) = %q, want error", tt.base, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("endpointOrigin(%q) = %q, %v; want %q", tt.base, got, err, tt.want)
		}
	}
}

func TestConnectErrorReported(t *testing.T) {
	h := hub.New(hub.Options{Token: "secret", Logger: quiet()})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	a := New(Options{BaseURL: srv.URL, Token: "wrong", AutoConnect: true, Logger: quiet()})
	obs := &fakeObserver{}
	a.Subscribe(obs)
	a.Connect(context.Background())
	defer a.Disconnect()

	waitFor(t, "error status", func() bool { return obs.lastStatus() == StatusError })
	obs.mu.Lock()
	last := obs.statuses[len(obs.statuses)-1]
	obs.mu.Unlock()
	if last.err == nil || last.err.Error() != "unauthorized" {
		t.Errorf("error detail = %v", last.err)
	}
}

func TestConnectWithToken(t *testing.T) {
	h := hub.New(hub.Options{Namespace: "/scans", Token: "secret", Logger: quiet()})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	a := New(Options{BaseURL: srv.URL, Namespace: "scans", Token: "secret", AutoConnect: true, Logger: quiet()})
	obs := &fakeObserver{}
	a.Subscribe(obs)
	a.Connect(context.Background())
	defer a.Disconnect()

	waitFor(t, "live status", func() bool { return obs.lastStatus() == StatusLive })
	a.Connect(context.Background())
	if got := obs.lastStatus(); got != StatusLive {
		t.Errorf("second Connect changed status to %q", got)
	}
}

func TestDisconnectWhenNotConnected(t *testing.T) {
	a := New(Options{Logger: quiet()})
	a.Disconnect()
	a.Disconnect()
}

func TestLiveEventsRelayedForSubscribedChannels(t *testing.T) {
	h := hub.New(hub.Options{Logger: quiet()})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	a := New(Options{
		BaseURL:     srv.URL,
		Channels:    []string{"scan.ingested"},
		AutoConnect: true,
		Logger:      quiet(),
	})
	obs := &fakeObserver{}
	a.Subscribe(obs)
	a.Connect(context.Background())
	defer a.Disconnect()

	obs.mu.Lock()
	first := obs.statuses[0].status
	obs.mu.Unlock()
	if first != StatusConnecting {
		t.Errorf("first status = %q, want connecting", first)
	}
	waitFor(t, "live status", func() bool { return obs.lastStatus() == StatusLive })

	h.Emit("other.channel", map[string]any{"order_code": "IGNORED"})
	h.Emit("scan.ingested", map[string]any{"order_code": "TEST-001"})
	waitFor(t, "event", func() bool { return obs.eventCount() == 1 })

	obs.mu.Lock()
	ev := obs.events[0]
	obs.mu.Unlock()
	if ev.Channel != "scan.ingested" {
		t.Errorf("channel = %q", ev.Channel)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["order_code"] != "TEST-001" {
		t.Errorf("payload = %#v", ev.Payload)
	}
}

func TestDisconnectStopsEmission(t *testing.T) {
	h := hub.New(hub.Options{Logger: quiet()})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	a := New(Options{BaseURL: srv.URL, AutoConnect: true, Logger: quiet()})
	obs := &fakeObserver{}
	a.Subscribe(obs)
	a.Connect(context.Background())
	waitFor(t, "live status", func() bool { return obs.lastStatus() == StatusLive })

	a.Disconnect()
	if got := a.Status(); got != StatusOffline {
		t.Errorf("status after disconnect = %q", got)
	}
	waitFor(t, "hub to drop client", func() bool { return h.ClientCount() == 0 })

	h.Emit("scan.ingested", map[string]any{"order_code": "LATE"})
	time.Sleep(50 * time.Millisecond)
	if n := obs.eventCount(); n != 0 {
		t.Errorf("received %d events after disconnect", n)
	}
}
