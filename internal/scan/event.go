// Package scan turns raw channel payloads into canonical scan events and
// decides which of them may trigger a document lookup.
package scan

import "strings"

// Event is a scan normalised from a raw payload. Optional fields are ""
// when the producer did not send them.
type Event struct {
	Part string
	// OrderCode is set only when the producer sent an order code alias.
	// Part falls back to part numbers; directory records never do.
	OrderCode    string
	DeviceID     string
	LocationCode string
	ScanID       string
	UpdatedAt    string
}

// DedupeKey identifies repeat deliveries of the same scan: the scan id,
// else part#updatedAt, else "" (never deduplicated).
func (e Event) DedupeKey() string {
	if e.ScanID != "" {
		return e.ScanID
	}
	if e.UpdatedAt != "" {
		return e.Part + "#" + e.UpdatedAt
	}
	return ""
}

// Device returns a pointer to the device id, nil when absent.
func (e Event) Device() *string {
	if e.DeviceID == "" {
		return nil
	}
	d := e.DeviceID
	return &d
}

// Field aliases, in lookup order. The two producers disagree on naming.
var (
	partKeys      = []string{"order_code", "orderCode", "part_number", "partNumber"}
	orderCodeKeys = []string{"order_code", "orderCode"}
	deviceKeys    = []string{"device_id", "deviceId"}
	locationKeys  = []string{"location_code", "locationCode"}
	scanIDKeys    = []string{"scan_id", "scanId"}
	updatedKeys   = []string{"updated_at", "updatedAt"}
)

// Normalize resolves field aliases of a decoded JSON object. It returns
// false when payload is not an object or carries no usable identifier.
func Normalize(payload any) (Event, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Event{}, false
	}
	ev := Event{
		Part:         field(obj, partKeys),
		OrderCode:    field(obj, orderCodeKeys),
		DeviceID:     field(obj, deviceKeys),
		LocationCode: field(obj, locationKeys),
		ScanID:       field(obj, scanIDKeys),
		UpdatedAt:    field(obj, updatedKeys),
	}
	if ev.Part == "" {
		return Event{}, false
	}
	return ev, true
}

// field returns the first value present among keys, trimmed. A present
// value that is not a string counts as absent rather than falling through
// to the next alias.
func field(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || !present(v) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return ""
}

// present mirrors what producers treat as "set": null, "", 0 and false
// are unset.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	}
	return true
}
