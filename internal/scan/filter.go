package scan

import "strings"

// Reason explains why a payload was rejected. The zero value means accepted.
type Reason string

const (
	Accepted        Reason = ""
	RejectMalformed Reason = "malformed"
	RejectDevice    Reason = "device"
	RejectLocation  Reason = "location"
	RejectDuplicate Reason = "duplicate"
	RejectShowing   Reason = "showing"
)

// AllowList is a set of acceptable values. An empty list allows anything.
type AllowList struct {
	values []string
	set    map[string]bool
}

// NewAllowList trims values and drops empties.
func NewAllowList(values []string) AllowList {
	a := AllowList{set: make(map[string]bool, len(values))}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || a.set[v] {
			continue
		}
		a.set[v] = true
		a.values = append(a.values, v)
	}
	return a
}

// Allows reports whether v passes. A non-empty list rejects "".
func (a AllowList) Allows(v string) bool {
	if len(a.values) == 0 {
		return true
	}
	v = strings.TrimSpace(v)
	return v != "" && a.set[v]
}

// Values returns the configured values.
func (a AllowList) Values() []string {
	return append([]string(nil), a.values...)
}

// Filter applies allow-lists and single-slot deduplication. It remembers
// only the most recently accepted dedupe key, so two scans alternating
// between parts are never treated as repeats. Not safe for concurrent use.
type Filter struct {
	devices   AllowList
	locations AllowList
	lastKey   string
}

// NewFilter creates a filter with device and location allow-lists.
func NewFilter(devices, locations []string) *Filter {
	return &Filter{
		devices:   NewAllowList(devices),
		locations: NewAllowList(locations),
	}
}

// Admit normalises payload and applies the allow-lists. It has no side
// effects.
func (f *Filter) Admit(payload any) (Event, Reason) {
	ev, ok := Normalize(payload)
	if !ok {
		return Event{}, RejectMalformed
	}
	if !f.devices.Allows(ev.DeviceID) {
		return ev, RejectDevice
	}
	if !f.locations.Allows(ev.LocationCode) {
		return ev, RejectLocation
	}
	return ev, Accepted
}

// Accept decides whether payload should trigger a lookup. showing reports
// whether a part is already on screen; it may be nil.
//
// The dedupe key is remembered before the on-screen check, so a repeat of
// a suppressed scan is still a duplicate.
func (f *Filter) Accept(payload any, showing func(part string) bool) (Event, Reason) {
	ev, reason := f.Admit(payload)
	if reason != Accepted {
		return ev, reason
	}
	if key := ev.DedupeKey(); key != "" {
		if key == f.lastKey {
			return ev, RejectDuplicate
		}
		f.lastKey = key
	}
	if showing != nil && showing(ev.Part) {
		return ev, RejectShowing
	}
	return ev, Accepted
}

// LastKey returns the most recently accepted dedupe key.
func (f *Filter) LastKey() string {
	return f.lastKey
}
