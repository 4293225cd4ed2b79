package directory

import (
	"encoding/json"
	"strings"
	"time"
)

// LocationRecord is the current location of one order code.
type LocationRecord struct {
	OrderCode    string
	LocationCode string
	DeviceID     *string
	UpdatedAt    time.Time
}

// Device returns the device id or "" when unknown.
func (r LocationRecord) Device() string {
	if r.DeviceID == nil {
		return ""
	}
	return *r.DeviceID
}

// Clone returns a copy that shares no pointers with r.
func (r LocationRecord) Clone() LocationRecord {
	if r.DeviceID != nil {
		d := *r.DeviceID
		r.DeviceID = &d
	}
	return r
}

// wireRecord is the snake_case form served by the part-locations endpoint.
type wireRecord struct {
	OrderCode    string  `json:"order_code"`
	LocationCode string  `json:"location_code"`
	DeviceID     *string `json:"device_id"`
	UpdatedAt    *string `json:"updated_at"`
}

// MarshalJSON writes the snake_case wire form.
func (r LocationRecord) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		OrderCode:    r.OrderCode,
		LocationCode: r.LocationCode,
		DeviceID:     r.DeviceID,
	}
	if !r.UpdatedAt.IsZero() {
		ts := r.UpdatedAt.UTC().Format(time.RFC3339Nano)
		w.UpdatedAt = &ts
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both snake_case and camelCase field names, since
// the bulk endpoint and older producers disagree.
func (r *LocationRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = LocationRecord{
		OrderCode:    strings.TrimSpace(pick(raw, "order_code", "orderCode")),
		LocationCode: strings.TrimSpace(pick(raw, "location_code", "locationCode")),
		UpdatedAt:    ParseTimestamp(pick(raw, "updated_at", "updatedAt")),
	}
	if d := pick(raw, "device_id", "deviceId"); d != "" {
		r.DeviceID = &d
	}
	return nil
}

func pick(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses the timestamp forms the location producers emit.
// Unrecognised input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
