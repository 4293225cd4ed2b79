package directory

import (
	"encoding/json"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seeded(t *testing.T) *Directory {
	t.Helper()
	d := New()
	d.Initialize([]LocationRecord{
		{OrderCode: "TEST-001", LocationCode: "RACK-A1", DeviceID: strPtr("HANDHELD-01"), UpdatedAt: time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)},
		{OrderCode: "TEST-002", LocationCode: "RACK-B1", DeviceID: strPtr("HANDHELD-01"), UpdatedAt: time.Date(2025, 11, 4, 1, 0, 0, 0, time.UTC)},
	})
	return d
}

func TestApplyEventUnknownOrderAddsOne(t *testing.T) {
	d := seeded(t)
	applied := time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC)
	d.SetClock(fixedClock(applied))

	d.ApplyEvent("TEST-900", "RACK-Z9", nil)

	if d.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", d.Len())
	}
	r, ok := d.Get("TEST-900")
	if !ok {
		t.Fatal("TEST-900 missing")
	}
	if r.LocationCode != "RACK-Z9" || r.DeviceID != nil || !r.UpdatedAt.Equal(applied) {
		t.Errorf("unexpected record %+v", r)
	}
	snap := d.Snapshot()
	if snap[2].OrderCode != "TEST-900" {
		t.Errorf("new order should be appended last, got %q", snap[2].OrderCode)
	}
}

func TestApplyEventKnownOrderUpdatesInPlace(t *testing.T) {
	d := seeded(t)
	applied := time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC)
	d.SetClock(fixedClock(applied))

	d.ApplyEvent("TEST-002", "RACK-B9", strPtr("HANDHELD-99"))

	if d.Len() != 2 {
		t.Fatalf("expected size unchanged at 2, got %d", d.Len())
	}
	r, _ := d.Get("TEST-002")
	if r.LocationCode != "RACK-B9" || r.Device() != "HANDHELD-99" || !r.UpdatedAt.Equal(applied) {
		t.Errorf("unexpected record %+v", r)
	}
	other, _ := d.Get("TEST-001")
	if other.LocationCode != "RACK-A1" {
		t.Errorf("unrelated record changed: %+v", other)
	}
}

func TestApplyEventKeepsDeviceWhenNoneSupplied(t *testing.T) {
	d := New()
	d.Initialize([]LocationRecord{{OrderCode: "X", LocationCode: "L1", DeviceID: strPtr("D1")}})

	d.ApplyEvent("X", "L2", nil)

	r, _ := d.Get("X")
	if r.Device() != "D1" {
		t.Errorf("deviceId = %q, want D1", r.Device())
	}
	if r.LocationCode != "L2" {
		t.Errorf("locationCode = %q, want L2", r.LocationCode)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	d := seeded(t)
	snap := d.Snapshot()
	snap[0].LocationCode = "MUTATED"
	*snap[0].DeviceID = "MUTATED"
	snap = append(snap, LocationRecord{OrderCode: "EXTRA"})

	r, _ := d.Get("TEST-001")
	if r.LocationCode != "RACK-A1" || r.Device() != "HANDHELD-01" {
		t.Errorf("directory aliased by snapshot: %+v", r)
	}
	if d.Len() != 2 {
		t.Errorf("directory grew via snapshot: %d", d.Len())
	}
}

func TestInitializeReplacesWholesale(t *testing.T) {
	d := seeded(t)
	d.ApplyEvent("TEST-900", "RACK-Z9", nil)

	d.Initialize([]LocationRecord{
		{OrderCode: "NEW-1", LocationCode: "A"},
		{OrderCode: "NEW-1", LocationCode: "B"},
		{OrderCode: "", LocationCode: "ignored"},
	})

	snap := d.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(snap), snap)
	}
	if snap[0].LocationCode != "B" {
		t.Errorf("duplicate order code should keep last occurrence, got %q", snap[0].LocationCode)
	}
}

func TestInitializeDoesNotAliasInput(t *testing.T) {
	in := []LocationRecord{{OrderCode: "A", LocationCode: "L1", DeviceID: strPtr("D1")}}
	d := New()
	d.Initialize(in)
	*in[0].DeviceID = "CHANGED"
	in[0].LocationCode = "CHANGED"

	r, _ := d.Get("A")
	if r.Device() != "D1" || r.LocationCode != "L1" {
		t.Errorf("directory aliased by input: %+v", r)
	}
}

func TestUnmarshalAcceptsBothNamings(t *testing.T) {
	data := `[
		{"order_code":"TEST-001","location_code":"RACK-A1","device_id":"H1","updated_at":"2025-11-04T00:00:00Z"},
		{"orderCode":"TEST-002","locationCode":"RACK-B1","deviceId":null,"updatedAt":"2025-11-04 01:00:00+00:00"},
		{"order_code":"TEST-003","location_code":"RACK-C1","updated_at":"t0"}
	]`
	var recs []LocationRecord
	if err := json.Unmarshal([]byte(data), &recs); err != nil {
		t.Fatal(err)
	}
	if recs[0].OrderCode != "TEST-001" || recs[0].Device() != "H1" || recs[0].UpdatedAt.IsZero() {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].OrderCode != "TEST-002" || recs[1].DeviceID != nil || recs[1].UpdatedAt.Hour() != 1 {
		t.Errorf("record 1 = %+v", recs[1])
	}
	if !recs[2].UpdatedAt.IsZero() {
		t.Errorf("unparseable timestamp should be zero, got %v", recs[2].UpdatedAt)
	}
}

func TestMarshalSnakeCase(t *testing.T) {
	r := LocationRecord{OrderCode: "A", LocationCode: "L", UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"order_code":"A","location_code":"L","device_id":null,"updated_at":"2025-01-02T03:04:05Z"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}
