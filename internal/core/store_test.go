package core

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func makeEvent(sev Severity, ip string) *Event {
	return &Event{
		SourceIP: ip,
		DestPort: 443,
		Phase:    PhaseNoise,
		Category: "noise",
		Severity: sev,
	}
}

func TestEventStore_AssignsIncreasingIDs(t *testing.T) {
	s := NewEventStore(10)
	for want := int64(1); want <= 5; want++ {
		stored, err := s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if stored.ID != want {
			t.Errorf("expected id %d, got %d", want, stored.ID)
		}
	}
}

func TestEventStore_AssignsTimestampWhenMissing(t *testing.T) {
	s := NewEventStore(10)
	stored, _ := s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	if stored.Timestamp.IsZero() {
		t.Error("expected store to assign a timestamp")
	}
}

func TestEventStore_KeepsExistingTimestamp(t *testing.T) {
	s := NewEventStore(10)
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ev := makeEvent(SeverityBenign, "203.0.113.5")
	ev.Timestamp = ts
	stored, _ := s.Add(ev)
	if !stored.Timestamp.Equal(ts) {
		t.Errorf("timestamp overwritten: got %v", stored.Timestamp)
	}
}

func TestEventStore_EvictsOldestAtCapacity(t *testing.T) {
	s := NewEventStore(3)
	for i := 0; i < 5; i++ {
		s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	}
	if s.Len() != 3 {
		t.Fatalf("expected len 3, got %d", s.Len())
	}
	if s.ByID(1) != nil || s.ByID(2) != nil {
		t.Error("evicted ids should be unreachable")
	}
	if s.ByID(3) == nil || s.ByID(5) == nil {
		t.Error("surviving ids should be reachable")
	}
}

func TestEventStore_AllNewestFirst(t *testing.T) {
	s := NewEventStore(10)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ev := makeEvent(SeverityBenign, "203.0.113.5")
		ev.Timestamp = base.Add(time.Duration(i) * time.Second)
		s.Add(ev)
	}
	all := s.All()
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Fatalf("events out of order at %d", i)
		}
	}
}

func TestEventStore_EqualTimestampsBreakTiesByID(t *testing.T) {
	s := NewEventStore(10)
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := makeEvent(SeverityBenign, "203.0.113.5")
		ev.Timestamp = ts
		s.Add(ev)
	}
	all := s.All()
	if all[0].ID != 3 || all[2].ID != 1 {
		t.Errorf("expected id order 3,2,1 got %d,%d,%d", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestEventStore_RecentLimitsOutput(t *testing.T) {
	s := NewEventStore(10)
	for i := 0; i < 6; i++ {
		s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	}
	recent := s.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].ID != 6 {
		t.Errorf("expected newest id 6 first, got %d", recent[0].ID)
	}
}

func TestEventStore_InWindowExcludesOldEvents(t *testing.T) {
	s := NewEventStore(10)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	old := makeEvent(SeverityMalicious, "203.0.113.5")
	old.Timestamp = now.Add(-2 * time.Minute)
	s.Add(old)

	fresh := makeEvent(SeverityMalicious, "203.0.113.5")
	fresh.Timestamp = now.Add(-5 * time.Second)
	s.Add(fresh)

	windowed := s.InWindow(15 * time.Second)
	if len(windowed) != 1 {
		t.Fatalf("expected 1 event in window, got %d", len(windowed))
	}
	if windowed[0].ID != fresh.ID {
		t.Errorf("wrong event survived the window")
	}
}

func TestEventStore_InWindowIncludesZeroTimestamp(t *testing.T) {
	s := NewEventStore(10)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	// Bypass Add's stamping by injecting a zero timestamp after storage.
	ev, _ := s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	ev.Timestamp = time.Time{}

	windowed := s.InWindow(time.Nanosecond)
	if len(windowed) != 1 {
		t.Errorf("zero-timestamp event should always fall inside the window")
	}
}

func TestEventStore_BySeverity(t *testing.T) {
	s := NewEventStore(10)
	s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	s.Add(makeEvent(SeverityCritical, "203.0.113.5"))
	s.Add(makeEvent(SeverityCritical, "203.0.113.6"))

	crit := s.BySeverity(SeverityCritical)
	if len(crit) != 2 {
		t.Fatalf("expected 2 critical events, got %d", len(crit))
	}
	for _, e := range crit {
		if e.Severity != SeverityCritical {
			t.Errorf("non-critical event in filter output")
		}
	}
}

func TestEventStore_CountsCoverAllKnownSeverities(t *testing.T) {
	s := NewEventStore(10)
	s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	s.Add(makeEvent(SeverityMalicious, "203.0.113.5"))

	counts := s.Counts()
	if counts.Total != 2 {
		t.Errorf("expected total 2, got %d", counts.Total)
	}
	for _, sev := range KnownSeverities {
		if _, ok := counts.BySeverity[sev]; !ok {
			t.Errorf("missing severity key %q", sev)
		}
	}
	if counts.BySeverity[SeverityBenign] != 1 || counts.BySeverity[SeverityMalicious] != 1 {
		t.Errorf("wrong per-severity counts: %v", counts.BySeverity)
	}
	if counts.BySeverity[SeverityCritical] != 0 {
		t.Errorf("expected explicit zero for critical")
	}
}

func TestEventStore_DeltasRespectWindow(t *testing.T) {
	s := NewEventStore(10)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	old := makeEvent(SeverityCritical, "203.0.113.5")
	old.Timestamp = now.Add(-time.Hour)
	s.Add(old)

	fresh := makeEvent(SeverityCritical, "203.0.113.5")
	fresh.Timestamp = now.Add(-time.Second)
	s.Add(fresh)

	deltas := s.Deltas(15 * time.Second)
	if deltas[SeverityCritical] != 1 {
		t.Errorf("expected delta 1, got %d", deltas[SeverityCritical])
	}
}

func TestEventStore_NotifyFiredAfterAppend(t *testing.T) {
	s := NewEventStore(10)
	var got []int64
	s.SetNotify(func(e *Event) { got = append(got, e.ID) })

	s.Add(makeEvent(SeverityBenign, "203.0.113.5"))
	s.Add(makeEvent(SeverityBenign, "203.0.113.5"))

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("notify sequence wrong: %v", got)
	}
}

func TestEventStore_ConcurrentAddsKeepIDsUnique(t *testing.T) {
	s := NewEventStore(1000)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Add(makeEvent(SeverityBenign, fmt.Sprintf("203.0.113.%d", i%250)))
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, e := range s.All() {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true
	}
	if len(seen) != 400 {
		t.Errorf("expected 400 events, got %d", len(seen))
	}
}
