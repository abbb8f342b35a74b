package aggregate

import (
	"fmt"
	"testing"

	"github.com/oasgen/faults"
)

func networkRecord(t *testing.T) *faults.Record {
	t.Helper()
	return faults.New("fetch failed", faults.CodeNetworkTimeout, faults.Options{Operation: "spec.Fetch"})
}

// TestAddGroupsByFingerprint verifies occurrences with one fingerprint
// collapse into a single group with an exact count.
func TestAddGroupsByFingerprint(t *testing.T) {
	s := NewStore(0)

	var last Group
	for i := 0; i < 5; i++ {
		last = s.Add(networkRecord(t))
	}

	if s.GroupCount() != 1 {
		t.Fatalf("GroupCount = %d, want 1", s.GroupCount())
	}
	if last.Count != 5 {
		t.Errorf("Count = %d, want 5", last.Count)
	}
	if len(last.SampleIDs) != 5 {
		t.Errorf("SampleIDs length = %d, want 5", len(last.SampleIDs))
	}
	if last.Code != faults.CodeNetworkTimeout {
		t.Errorf("Code = %q", last.Code)
	}
	if last.FirstSeen.After(last.LastSeen) {
		t.Error("FirstSeen after LastSeen")
	}

	// A different classification opens a second group.
	s.Add(faults.New("bad spec", faults.CodeValidationFailed, faults.Options{}))
	if s.GroupCount() != 2 {
		t.Errorf("GroupCount = %d, want 2", s.GroupCount())
	}
}

// TestSampleIDRing verifies the sample ring keeps the most recent ids and
// the count stays exact past the cap.
func TestSampleIDRing(t *testing.T) {
	s := NewStore(0)

	var ids []string
	var last Group
	for i := 0; i < 25; i++ {
		rec := networkRecord(t)
		ids = append(ids, rec.ID)
		last = s.Add(rec)
	}

	if last.Count != 25 {
		t.Errorf("Count = %d, want 25 (exact past the ring cap)", last.Count)
	}
	if len(last.SampleIDs) != MaxSampleIDs {
		t.Fatalf("SampleIDs length = %d, want %d", len(last.SampleIDs), MaxSampleIDs)
	}
	// Most recent ids retained, oldest first.
	for i, id := range last.SampleIDs {
		if id != ids[25-MaxSampleIDs+i] {
			t.Fatalf("SampleIDs[%d] = %s, want %s", i, id, ids[25-MaxSampleIDs+i])
		}
	}
}

// TestHistoryEviction verifies FIFO eviction at the configured limit.
func TestHistoryEviction(t *testing.T) {
	s := NewStore(3)

	var recs []*faults.Record
	for i := 0; i < 5; i++ {
		rec := faults.New(fmt.Sprintf("m%d", i), faults.CodeUnknown, faults.Options{})
		recs = append(recs, rec)
		s.Add(rec)
	}

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	recent := s.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Recent length = %d", len(recent))
	}
	// Most recent first: m4, m3, m2.
	for i, want := range []*faults.Record{recs[4], recs[3], recs[2]} {
		if recent[i] != want {
			t.Errorf("Recent[%d] = %s, want %s", i, recent[i].Message, want.Message)
		}
	}

	// Eviction does not touch group counts.
	if g, ok := s.Group(recs[0].Fingerprint); !ok || g.Count != 5 {
		t.Errorf("group count after eviction = %d, want 5", g.Count)
	}
}

// TestRecentBounds verifies the n parameter.
func TestRecentBounds(t *testing.T) {
	s := NewStore(0)
	for i := 0; i < 4; i++ {
		s.Add(faults.New("m", faults.CodeUnknown, faults.Options{}))
	}

	if got := len(s.Recent(2)); got != 2 {
		t.Errorf("Recent(2) length = %d", got)
	}
	if got := len(s.Recent(100)); got != 4 {
		t.Errorf("Recent(100) length = %d", got)
	}
	if got := len(s.Recent(-1)); got != 4 {
		t.Errorf("Recent(-1) length = %d", got)
	}
}

// TestGroupsOrder verifies first-seen ordering.
func TestGroupsOrder(t *testing.T) {
	s := NewStore(0)
	s.Add(faults.New("a", faults.CodeNetworkTimeout, faults.Options{}))
	s.Add(faults.New("b", faults.CodeValidationFailed, faults.Options{}))
	s.Add(faults.New("c", faults.CodeNetworkTimeout, faults.Options{}))

	groups := s.Groups()
	if len(groups) != 2 {
		t.Fatalf("Groups length = %d", len(groups))
	}
	if groups[0].Code != faults.CodeNetworkTimeout || groups[1].Code != faults.CodeValidationFailed {
		t.Errorf("group order = %s, %s", groups[0].Code, groups[1].Code)
	}
}

// TestSnapshotIsolation verifies returned groups do not alias internal
// state.
func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(0)
	g1 := s.Add(networkRecord(t))
	g1.SampleIDs[0] = "mutated"

	g2, ok := s.Group(g1.Fingerprint)
	if !ok {
		t.Fatal("group missing")
	}
	if g2.SampleIDs[0] == "mutated" {
		t.Error("snapshot aliases internal sample ids")
	}
}

// TestReset verifies Reset clears groups and history.
func TestReset(t *testing.T) {
	s := NewStore(0)
	s.Add(networkRecord(t))
	s.Reset()

	if s.GroupCount() != 0 || s.Len() != 0 {
		t.Errorf("after Reset: groups = %d, history = %d", s.GroupCount(), s.Len())
	}
}
