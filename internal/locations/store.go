// Package locations is the document server's record of where each order
// was last scanned. It backs the bulk part-locations endpoint.
package locations

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/partdoc/kiosk/internal/directory"
)

const (
	DefaultLimit = 200
	MaxLimit     = 500
)

type Store struct {
	mu     sync.RWMutex
	orders map[string]*directory.LocationRecord
}

func NewStore() *Store {
	return &Store{
		orders: make(map[string]*directory.LocationRecord),
	}
}

// Record stores the latest location of orderCode. A nil deviceID keeps
// the device already on file.
func (s *Store) Record(orderCode, locationCode string, deviceID *string, at time.Time) directory.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[orderCode]
	if !ok {
		rec = &directory.LocationRecord{OrderCode: orderCode}
		s.orders[orderCode] = rec
	}
	rec.LocationCode = locationCode
	if deviceID != nil {
		d := *deviceID
		rec.DeviceID = &d
	}
	rec.UpdatedAt = at
	return rec.Clone()
}

func (s *Store) Get(orderCode string) (directory.LocationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.orders[orderCode]
	if !ok {
		return directory.LocationRecord{}, false
	}
	return rec.Clone(), true
}

// List returns up to limit records, most recently updated first.
func (s *Store) List(limit int) []directory.LocationRecord {
	s.mu.RLock()
	result := make([]directory.LocationRecord, 0, len(s.orders))
	for _, rec := range s.orders {
		result = append(result, rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].OrderCode < result[j].OrderCode
	})
	if limit < len(result) {
		result = result[:limit]
	}
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// ClampLimit parses a limit query value into 1..MaxLimit. Empty or
// unparseable input gives DefaultLimit.
func ClampLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLimit
	}
	return max(1, min(n, MaxLimit))
}
