package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	defaultErrorTimeout = 5
	defaultTick         = time.Second
	fallbackReason      = "document not found"
)

// Document is a successful lookup result.
type Document struct {
	Filename string
	URL      string
	Order    string
}

// LookupFunc resolves a part to its document. It runs off the owner's
// goroutine.
type LookupFunc func(ctx context.Context, part string) (Document, error)

// Notifier receives messages for an embedding parent.
type Notifier interface {
	NotifyState(Snapshot)
	NotifyBarcode(part, order string)
}

// Options configures an Orchestrator.
type Options struct {
	APIBase string
	Lookup  LookupFunc

	// Post runs fn on the goroutine that owns the orchestrator. Lookup
	// completions and countdown ticks arrive through it.
	Post func(fn func())

	// OnChange is called after every transition.
	OnChange func(Snapshot)
	Notifier Notifier

	ErrorTimeout int           // countdown units, default 5
	Tick         time.Duration // length of one unit, default 1s
	Logger       *slog.Logger
}

// Orchestrator drives a Machine from lookup requests. Every method except
// Close must be called on the owner's goroutine.
type Orchestrator struct {
	m        *Machine
	apiBase  string
	lookup   LookupFunc
	post     func(func())
	onChange func(Snapshot)
	notifier Notifier
	timeout  int
	tick     time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	gen         uint64
	stopCurrent context.CancelFunc

	wg sync.WaitGroup
}

// NewOrchestrator creates an orchestrator in the idle state.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.ErrorTimeout <= 0 {
		opts.ErrorTimeout = defaultErrorTimeout
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		m:        NewMachine(),
		apiBase:  opts.APIBase,
		lookup:   opts.Lookup,
		post:     opts.Post,
		onChange: opts.OnChange,
		notifier: opts.Notifier,
		timeout:  opts.ErrorTimeout,
		tick:     opts.Tick,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Snapshot returns the current display fields.
func (o *Orchestrator) Snapshot() Snapshot { return o.m.Snapshot() }

// Showing reports whether part is on screen.
func (o *Orchestrator) Showing(part string) bool { return o.m.Showing(part) }

// Lookup starts a document lookup for part. A blank part is ignored. A
// lookup already in flight is superseded.
func (o *Orchestrator) Lookup(part string) {
	part = strings.TrimSpace(part)
	if part == "" {
		return
	}
	o.stopCountdown()
	if o.notifier != nil {
		o.notifier.NotifyBarcode(part, "")
	}
	seq := o.m.Begin(part)
	o.changed()

	if o.lookup == nil {
		o.complete(seq, part, Document{}, errors.New(fallbackReason))
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		doc, err := o.lookup(o.ctx, part)
		if o.ctx.Err() != nil {
			return
		}
		o.post(func() { o.complete(seq, part, doc, err) })
	}()
}

func (o *Orchestrator) complete(seq uint64, part string, doc Document, err error) {
	if err != nil {
		msg := fmt.Sprintf("Part %s: %s", part, Reason(err))
		if !o.m.Fail(seq, msg, o.timeout) {
			o.logger.Debug("discarding stale lookup", "part", part, "seq", seq, "latest", o.m.Seq())
			return
		}
		o.logger.Info("document lookup failed", "part", part, "error", err)
		o.startCountdown()
		o.changed()
		return
	}

	url := ResolveDocumentURL(o.apiBase, doc.URL)
	if !o.m.Succeed(seq, doc.Filename, url) {
		o.logger.Debug("discarding stale lookup", "part", part, "seq", seq, "latest", o.m.Seq())
		return
	}
	o.logger.Info("document found", "part", part, "filename", doc.Filename)
	o.changed()
	if o.notifier != nil {
		o.notifier.NotifyBarcode(part, doc.Order)
	}
}

// Return leaves the viewer for idle.
func (o *Orchestrator) Return() {
	if o.m.Return() {
		o.changed()
	}
}

// Dismiss leaves the error state early.
func (o *Orchestrator) Dismiss() {
	if o.m.Dismiss() {
		o.stopCountdown()
		o.changed()
	}
}

// Reset forces idle from any state.
func (o *Orchestrator) Reset() {
	o.stopCountdown()
	o.m.Reset()
	o.changed()
}

// Close cancels in-flight lookups and the countdown and waits for their
// goroutines. Nothing is posted after Close returns.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) changed() {
	snap := o.m.Snapshot()
	if o.onChange != nil {
		o.onChange(snap)
	}
	if o.notifier != nil {
		o.notifier.NotifyState(snap)
	}
}

// startCountdown runs the single auto-return task for the error state.
// Ticks carry the generation they were started with; a tick from a
// stopped countdown is ignored.
func (o *Orchestrator) startCountdown() {
	o.stopCountdown()
	gen := o.gen
	ctx, cancel := context.WithCancel(o.ctx)
	o.stopCurrent = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		t := time.NewTicker(o.tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				o.post(func() { o.countdown(gen) })
			}
		}
	}()
}

func (o *Orchestrator) stopCountdown() {
	o.gen++
	if o.stopCurrent != nil {
		o.stopCurrent()
		o.stopCurrent = nil
	}
}

func (o *Orchestrator) countdown(gen uint64) {
	if gen != o.gen || o.m.State() != StateError {
		return
	}
	remaining := o.m.Snapshot().Remaining - 1
	if remaining <= 0 {
		o.stopCountdown()
		o.m.Reset()
		o.changed()
		return
	}
	o.m.Countdown(remaining)
	o.changed()
}

// Reason returns the user-facing failure reason carried by err. Errors
// with a Reason method supply their own; an empty reason falls back to
// "document not found".
func Reason(err error) string {
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		if s := r.Reason(); s != "" {
			return s
		}
		return fallbackReason
	}
	if err == nil || err.Error() == "" {
		return fallbackReason
	}
	return err.Error()
}

var absoluteURL = regexp.MustCompile(`(?i)^(?:[a-z]+:)?//`)

// ResolveDocumentURL makes a relative document URL absolute against
// apiBase. Absolute and protocol-relative URLs pass through.
func ResolveDocumentURL(apiBase, u string) string {
	if u == "" {
		return ""
	}
	if absoluteURL.MatchString(u) {
		return u
	}
	if apiBase == "" {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return strings.TrimRight(apiBase, "/") + u
}
