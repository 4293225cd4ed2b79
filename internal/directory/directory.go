// Package directory keeps the in-memory table of order code → current
// location, seeded by a bulk read and kept current by scan events.
package directory

import (
	"sync"
	"time"
)

// Directory holds at most one record per order code. Records are never
// removed; Initialize replaces the whole table.
type Directory struct {
	mu      sync.RWMutex
	records map[string]*LocationRecord
	order   []string // insertion order of order codes
	now     func() time.Time
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		records: make(map[string]*LocationRecord),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for updatedAt. For tests.
func (d *Directory) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// Initialize replaces the directory content with records. Readers see
// either the old table or the new one, never a mix. A repeated order code
// keeps its last occurrence.
func (d *Directory) Initialize(records []LocationRecord) {
	next := make(map[string]*LocationRecord, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		if r.OrderCode == "" {
			continue
		}
		if _, seen := next[r.OrderCode]; !seen {
			order = append(order, r.OrderCode)
		}
		rec := r.Clone()
		next[r.OrderCode] = &rec
	}

	d.mu.Lock()
	d.records = next
	d.order = order
	d.mu.Unlock()
}

// ApplyEvent upserts the location of orderCode. An existing record keeps
// its device id when deviceID is nil.
func (d *Directory) ApplyEvent(orderCode, locationCode string, deviceID *string) {
	if orderCode == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if existing, ok := d.records[orderCode]; ok {
		existing.LocationCode = locationCode
		if deviceID != nil {
			dev := *deviceID
			existing.DeviceID = &dev
		}
		existing.UpdatedAt = now
		return
	}

	rec := LocationRecord{
		OrderCode:    orderCode,
		LocationCode: locationCode,
		UpdatedAt:    now,
	}
	if deviceID != nil {
		dev := *deviceID
		rec.DeviceID = &dev
	}
	d.records[orderCode] = &rec
	d.order = append(d.order, orderCode)
}

// Get returns a copy of the record for orderCode.
func (d *Directory) Get(orderCode string) (LocationRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[orderCode]
	if !ok {
		return LocationRecord{}, false
	}
	return r.Clone(), true
}

// Snapshot returns an independent copy of every record in insertion order.
func (d *Directory) Snapshot() []LocationRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]LocationRecord, 0, len(d.order))
	for _, code := range d.order {
		out = append(out, d.records[code].Clone())
	}
	return out
}

// Len returns the number of records.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}
