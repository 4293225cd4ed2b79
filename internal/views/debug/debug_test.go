package debug

import (
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(t0, KindScan, "TEST-001 from scan.ingested")
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != KindScan {
		t.Errorf("expected kind %q, got %q", KindScan, m.Entries[0].Kind)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(t0, KindScan, "msg")
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestScroll(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(t0, KindScan, "msg")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}
	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}
	m.ScrollDown(10)
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
	m.ScrollUp(100)
	if m.Offset != 19 {
		t.Errorf("expected offset capped at 19, got %d", m.Offset)
	}

	m.Add(t0, KindView, "new")
	if m.Offset != 0 {
		t.Error("adding an entry should scroll to the bottom")
	}
}

func TestView(t *testing.T) {
	m := New()
	if v := m.View(80, 20); !strings.Contains(v, "No events") {
		t.Error("empty view should say there are no events")
	}

	m.Add(t0, KindScan, "TEST-001")
	m.Add(t0, KindSkip, "duplicate")
	v := m.View(80, 20)
	for _, want := range []string{"TEST-001", "duplicate", "EVENT LOG"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
