package mock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNextPayloadShape(t *testing.T) {
	at := time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)
	s := NewScanner(Options{
		Parts:     []string{"TEST-001"},
		Locations: []string{"RACK-A1"},
		Devices:   []string{"H1"},
		Seed:      1,
		Now:       func() time.Time { return at },
	}, nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p := s.Next()
		if p["location_code"] != "RACK-A1" || p["device_id"] != "H1" {
			t.Fatalf("payload = %v", p)
		}
		if p["updated_at"] != "2025-11-04T09:00:00Z" {
			t.Errorf("updated_at = %v", p["updated_at"])
		}
		id, _ := p["scan_id"].(string)
		if seen[id] {
			t.Errorf("scan id %q repeated without RepeatEvery", id)
		}
		seen[id] = true
	}
}

func TestRepeatEvery(t *testing.T) {
	s := NewScanner(Options{RepeatEvery: 3, Seed: 7}, nil)

	first := s.Next()
	second := s.Next()
	third := s.Next()

	if first["scan_id"] == second["scan_id"] {
		t.Fatal("consecutive scans share an id")
	}
	if third["scan_id"] != second["scan_id"] || third["order_code"] != second["order_code"] {
		t.Errorf("third scan should redeliver the second: %v vs %v", third, second)
	}

	third["order_code"] = "CHANGED"
	if s.last["order_code"] == "CHANGED" {
		t.Error("redelivered payload aliases scanner state")
	}
}

func TestStartFeedsIngest(t *testing.T) {
	var mu sync.Mutex
	var got []map[string]any
	s := NewScanner(Options{Interval: 5 * time.Millisecond, Seed: 3}, func(p map[string]any) int {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		return 0
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatalf("only %d scans ingested", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
}
