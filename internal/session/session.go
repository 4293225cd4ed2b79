// Package session wires the kiosk core together: the bulk location fetch,
// the event transport, the scan filter, the location directory and the
// lookup orchestrator. All core state is owned by one event-loop
// goroutine; callbacks from the transport, lookups, timers, the UI and an
// embedding parent are posted to it and run in arrival order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/partdoc/kiosk/internal/client"
	"github.com/partdoc/kiosk/internal/directory"
	"github.com/partdoc/kiosk/internal/metrics"
	"github.com/partdoc/kiosk/internal/scan"
	"github.com/partdoc/kiosk/internal/transport"
	"github.com/partdoc/kiosk/internal/viewer"
)

var (
	// ErrInitialization is wrapped by Start when the bulk fetch fails.
	ErrInitialization = errors.New("session initialization failed")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("session closed")
)

const queueSize = 256

// API is the document server as seen by a session.
type API interface {
	FetchPartLocations(ctx context.Context) ([]directory.LocationRecord, error)
	LookupDocument(ctx context.Context, part string) (*client.DocumentInfo, error)
	RelayEvent(ctx context.Context, event string, payload any) error
}

// Transport is the event channel as seen by a session.
type Transport interface {
	Subscribe(o transport.Observer)
	Connect(ctx context.Context)
	Disconnect()
	Status() transport.Status
}

// Options configures a Session.
type Options struct {
	API       API
	APIBase   string
	Transport Transport // nil leaves the event channel disabled

	AcceptDeviceIDs     []string
	AcceptLocationCodes []string

	ErrorTimeout int
	Tick         time.Duration
	RelayEvents  bool

	Metrics *metrics.Kiosk
	Logger  *slog.Logger
}

// EventInfo describes the most recent channel event and what the filter
// made of it.
type EventInfo struct {
	Channel string
	Part    string
	Reason  scan.Reason
	At      time.Time
}

// Update is the state published to observers after every change.
type Update struct {
	Viewer       viewer.Snapshot
	Status       transport.Status
	StatusDetail string
	Records      []directory.LocationRecord
	// FocusSeq increases each time the parent asks for input focus.
	FocusSeq  uint64
	LastEvent *EventInfo
}

// Session is one kiosk mount. Create it with New and release it with
// Close.
type Session struct {
	api         API
	transport   Transport
	dir         *directory.Directory
	filter      *scan.Filter
	orch        *viewer.Orchestrator
	metrics     *metrics.Kiosk
	logger      *slog.Logger
	relayEvents bool

	ctx    context.Context
	cancel context.CancelFunc

	queue    chan func()
	done     chan struct{}
	loopDone chan struct{}
	once     sync.Once
	updates  chan Update
	wg       sync.WaitGroup

	// Owned by the loop.
	status       transport.Status
	statusDetail string
	focusSeq     uint64
	lastEvent    *EventInfo
	shownState   viewer.State
	parent       viewer.Notifier
}

// New creates a session and starts its event loop. Nothing touches the
// network until Start.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		api:         opts.API,
		transport:   opts.Transport,
		dir:         directory.New(),
		filter:      scan.NewFilter(opts.AcceptDeviceIDs, opts.AcceptLocationCodes),
		metrics:     opts.Metrics,
		logger:      logger,
		relayEvents: opts.RelayEvents,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan func(), queueSize),
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		updates:     make(chan Update, 1),
		status:      transport.StatusDisabled,
		shownState:  viewer.StateIdle,
	}
	s.orch = viewer.NewOrchestrator(viewer.Options{
		APIBase:      opts.APIBase,
		Lookup:       s.lookup,
		Post:         s.post,
		OnChange:     s.viewerChanged,
		Notifier:     parentNotifier{s},
		ErrorTimeout: opts.ErrorTimeout,
		Tick:         opts.Tick,
		Logger:       logger,
	})
	if s.transport != nil {
		s.status = s.transport.Status()
		s.transport.Subscribe(observer{s})
	}
	go s.run()
	return s
}

// Start loads the directory from the bulk endpoint and then opens the
// event channel. A failed fetch leaves the directory empty and the channel
// closed.
func (s *Session) Start(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	records, err := s.api.FetchPartLocations(ctx)
	if err != nil {
		return fmt.Errorf("%w: fetch part locations: %w", ErrInitialization, err)
	}
	if err := s.call(func() {
		s.dir.Initialize(records)
		s.metrics.DirectoryRecords(s.dir.Len())
		s.logger.Info("directory initialized", "records", s.dir.Len())
		s.publish()
	}); err != nil {
		return err
	}

	if s.transport != nil {
		s.transport.Connect(s.ctx)
	}
	return nil
}

// Updates delivers the latest state. Only the newest undelivered update is
// kept. The channel is closed by Close.
func (s *Session) Updates() <-chan Update { return s.updates }

// Submit looks up part as if typed by the operator. Manual lookups bypass
// the scan filter.
func (s *Session) Submit(part string) {
	s.post(func() { s.orch.Lookup(part) })
}

// Return leaves the document view.
func (s *Session) Return() {
	s.post(func() { s.orch.Return() })
}

// Dismiss leaves the error view before the countdown ends.
func (s *Session) Dismiss() {
	s.post(func() { s.orch.Dismiss() })
}

// Reset forces the viewer back to idle.
func (s *Session) Reset() {
	s.post(func() { s.orch.Reset() })
}

// Locations returns a copy of the directory.
func (s *Session) Locations() []directory.LocationRecord {
	var out []directory.LocationRecord
	s.call(func() { out = s.dir.Snapshot() })
	return out
}

// Viewer returns the current display state.
func (s *Session) Viewer() viewer.Snapshot {
	var out viewer.Snapshot
	s.call(func() { out = s.orch.Snapshot() })
	return out
}

// Status returns the event channel status and its error detail.
func (s *Session) Status() (transport.Status, string) {
	var st transport.Status
	var detail string
	s.call(func() { st, detail = s.status, s.statusDetail })
	return st, detail
}

// AttachParent routes viewer-state and dv-barcode messages to n.
func (s *Session) AttachParent(n viewer.Notifier) {
	s.post(func() { s.parent = n })
}

// FocusRequest handles a focus-request from the embedding parent.
func (s *Session) FocusRequest() {
	s.post(func() {
		s.focusSeq++
		s.publish()
	})
}

// ViewerReturn handles a viewer-return from the embedding parent.
func (s *Session) ViewerReturn() {
	s.post(func() { s.orch.Reset() })
}

// Close disconnects the transport, stops the loop and waits for every
// goroutine the session started. It must not be called from an observer
// callback.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.transport != nil {
			s.transport.Disconnect()
		}
		s.cancel()
		close(s.done)
		<-s.loopDone
		s.orch.Close()
		s.wg.Wait()
		close(s.updates)
	})
}

func (s *Session) run() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.queue:
			fn()
		}
	}
}

// post schedules fn on the loop. After Close it is dropped.
func (s *Session) post(fn func()) {
	select {
	case <-s.done:
	case s.queue <- fn:
	}
}

// call runs fn on the loop and waits for it.
func (s *Session) call(fn func()) error {
	ran := make(chan struct{})
	select {
	case <-s.done:
		return ErrClosed
	case s.queue <- func() { fn(); close(ran) }:
	}
	select {
	case <-s.done:
		return ErrClosed
	case <-ran:
		return nil
	}
}

func (s *Session) publish() {
	u := Update{
		Viewer:       s.orch.Snapshot(),
		Status:       s.status,
		StatusDetail: s.statusDetail,
		Records:      s.dir.Snapshot(),
		FocusSeq:     s.focusSeq,
	}
	if s.lastEvent != nil {
		ev := *s.lastEvent
		u.LastEvent = &ev
	}
	select {
	case s.updates <- u:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- u:
	default:
	}
}

func (s *Session) lookup(ctx context.Context, part string) (viewer.Document, error) {
	info, err := s.api.LookupDocument(ctx, part)
	if err != nil {
		return viewer.Document{}, err
	}
	return viewer.Document{Filename: info.Filename, URL: info.URL, Order: info.Order}, nil
}

func (s *Session) viewerChanged(snap viewer.Snapshot) {
	if snap.State != s.shownState {
		switch snap.State {
		case viewer.StateViewer:
			s.metrics.Lookup("found")
		case viewer.StateError:
			s.metrics.Lookup("failed")
		}
		s.shownState = snap.State
	}
	s.publish()
}

func (s *Session) handleStatus(status transport.Status, err error) {
	s.status = status
	s.statusDetail = ""
	if err != nil {
		s.statusDetail = err.Error()
	}
	s.metrics.TransportStatus(string(status))
	s.publish()
}

func (s *Session) handleEvent(ev transport.RawEvent) {
	s.metrics.EventReceived(ev.Channel)
	if s.relayEvents {
		s.relay(ev)
	}

	// The directory follows every admissible event, including duplicates
	// and parts already on screen. Only order codes key it.
	if e, reason := s.filter.Admit(ev.Payload); reason == scan.Accepted && e.OrderCode != "" && e.LocationCode != "" {
		s.dir.ApplyEvent(e.OrderCode, e.LocationCode, e.Device())
		s.metrics.DirectoryRecords(s.dir.Len())
	}

	e, reason := s.filter.Accept(ev.Payload, s.orch.Showing)
	s.lastEvent = &EventInfo{Channel: ev.Channel, Part: e.Part, Reason: reason, At: time.Now()}
	if reason != scan.Accepted {
		s.logger.Debug("scan ignored", "channel", ev.Channel, "part", e.Part, "reason", string(reason))
		s.metrics.EventRejected(string(reason))
		s.publish()
		return
	}
	s.logger.Info("scan accepted", "channel", ev.Channel, "part", e.Part, "device", e.DeviceID, "location", e.LocationCode)
	s.orch.Lookup(e.Part)
}

func (s *Session) relay(ev transport.RawEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.api.RelayEvent(s.ctx, ev.Channel, ev.Payload); err != nil {
			s.logger.Debug("telemetry relay failed", "event", ev.Channel, "error", err)
		}
	}()
}

// observer feeds transport callbacks into the loop.
type observer struct{ s *Session }

func (o observer) OnStatus(status transport.Status, err error) {
	o.s.post(func() { o.s.handleStatus(status, err) })
}

func (o observer) OnEvent(ev transport.RawEvent) {
	o.s.post(func() { o.s.handleEvent(ev) })
}

// parentNotifier forwards orchestrator messages to the attached parent.
// It runs on the loop.
type parentNotifier struct{ s *Session }

func (p parentNotifier) NotifyState(snap viewer.Snapshot) {
	if p.s.parent != nil {
		p.s.parent.NotifyState(snap)
	}
}

func (p parentNotifier) NotifyBarcode(part, order string) {
	if p.s.parent != nil {
		p.s.parent.NotifyBarcode(part, order)
	}
}
