// Package mock simulates handheld scanners for demos and kiosk testing
// without hardware.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// IngestFunc receives each simulated scan payload.
type IngestFunc func(payload map[string]any) int

var (
	defaultLocations = []string{"RACK-A1", "RACK-A2", "RACK-B1", "SHIP-01"}
	defaultDevices   = []string{"HANDY-01", "HANDY-02"}
)

// Options configures a Scanner.
type Options struct {
	// Parts to scan. A part with no document is mixed in so kiosks also
	// exercise the not-found path.
	Parts     []string
	Locations []string
	Devices   []string
	Interval  time.Duration
	// RepeatEvery re-sends the previous payload unchanged every n scans,
	// the way a flaky link redelivers. Zero disables repeats.
	RepeatEvery int
	Seed        int64
	Now         func() time.Time
}

// Scanner produces scan payloads on a timer.
type Scanner struct {
	opts   Options
	ingest IngestFunc

	mu   sync.Mutex
	rng  *rand.Rand
	seq  int
	last map[string]any
}

// NewScanner creates a scanner feeding ingest.
func NewScanner(opts Options, ingest IngestFunc) *Scanner {
	if len(opts.Parts) == 0 {
		opts.Parts = []string{"TEST-001"}
	}
	if len(opts.Locations) == 0 {
		opts.Locations = defaultLocations
	}
	if len(opts.Devices) == 0 {
		opts.Devices = defaultDevices
	}
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scanner{
		opts:   opts,
		ingest: ingest,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Start runs the scanner until ctx is cancelled.
func (s *Scanner) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scanner) run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ingest(s.Next())
		}
	}
}

// Next builds the next payload.
func (s *Scanner) Next() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.opts.RepeatEvery > 0 && s.last != nil && s.seq%s.opts.RepeatEvery == 0 {
		return clone(s.last)
	}

	part := s.pick(s.opts.Parts)
	if s.rng.Intn(10) == 0 {
		part = fmt.Sprintf("MISSING-%03d", s.rng.Intn(1000))
	}
	payload := map[string]any{
		"order_code":    part,
		"location_code": s.pick(s.opts.Locations),
		"device_id":     s.pick(s.opts.Devices),
		"scan_id":       fmt.Sprintf("mock-%d", s.seq),
		"updated_at":    s.opts.Now().UTC().Format(time.RFC3339Nano),
	}
	s.last = clone(payload)
	return payload
}

func (s *Scanner) pick(values []string) string {
	return values[s.rng.Intn(len(values))]
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
