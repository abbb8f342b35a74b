// Package aggregate groups admitted error records by fingerprint and keeps
// a bounded history of recent records.
//
// A Group's Count is exact for the lifetime of the store — it counts every
// record the group has absorbed — even though only the most recent sample
// ids and the bounded history are retained.
package aggregate

import (
	"sync"
	"time"

	"github.com/oasgen/faults"
)

const (
	// MaxSampleIDs bounds the per-group ring of recent record ids.
	MaxSampleIDs = 10

	// DefaultHistoryLimit bounds the whole-store record history.
	DefaultHistoryLimit = 1000
)

// Group is the aggregated view of all occurrences sharing a fingerprint.
type Group struct {
	Fingerprint string          `json:"fingerprint"`
	Category    faults.Category `json:"category"`
	Code        string          `json:"code"`
	Message     string          `json:"message"`
	Count       int             `json:"count"`
	FirstSeen   time.Time       `json:"firstSeen"`
	LastSeen    time.Time       `json:"lastSeen"`

	// SampleIDs holds the ids of the most recent occurrences, oldest first,
	// capped at MaxSampleIDs.
	SampleIDs []string `json:"sampleIds"`
}

// Store aggregates records into groups and retains a bounded FIFO history.
// All methods are safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	historyLimit int
	groups       map[string]*Group
	order        []string
	history      []*faults.Record
}

// NewStore creates a store. historyLimit <= 0 takes DefaultHistoryLimit.
func NewStore(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		historyLimit: historyLimit,
		groups:       make(map[string]*Group),
	}
}

// Add absorbs one record into its group (created lazily on the
// fingerprint's first occurrence) and appends it to the history, evicting
// the oldest record beyond the limit. Returns a snapshot of the updated
// group.
func (s *Store) Add(rec *faults.Record) Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[rec.Fingerprint]
	if !ok {
		g = &Group{
			Fingerprint: rec.Fingerprint,
			Category:    rec.Category,
			Code:        rec.Code,
			Message:     rec.Message,
			FirstSeen:   rec.Timestamp,
		}
		s.groups[rec.Fingerprint] = g
		s.order = append(s.order, rec.Fingerprint)
	}

	g.Count++
	g.LastSeen = rec.Timestamp
	g.SampleIDs = append(g.SampleIDs, rec.ID)
	if len(g.SampleIDs) > MaxSampleIDs {
		g.SampleIDs = g.SampleIDs[len(g.SampleIDs)-MaxSampleIDs:]
	}

	s.history = append(s.history, rec)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}

	return snapshot(g)
}

// Group returns a snapshot of the group for a fingerprint.
func (s *Store) Group(fingerprint string) (Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[fingerprint]
	if !ok {
		return Group{}, false
	}
	return snapshot(g), true
}

// Groups returns snapshots of every group in first-seen order.
func (s *Store) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Group, 0, len(s.order))
	for _, fp := range s.order {
		out = append(out, snapshot(s.groups[fp]))
	}
	return out
}

// Recent returns up to n records from the history, most recent first.
// n <= 0 returns the whole retained history.
func (s *Store) Recent(n int) []*faults.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]*faults.Record, n)
	for i := 0; i < n; i++ {
		out[i] = s.history[len(s.history)-1-i]
	}
	return out
}

// Len reports the number of retained history records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// GroupCount reports the number of distinct fingerprints seen.
func (s *Store) GroupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// Reset clears groups and history.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = make(map[string]*Group)
	s.order = nil
	s.history = nil
}

func snapshot(g *Group) Group {
	out := *g
	out.SampleIDs = append([]string(nil), g.SampleIDs...)
	return out
}
