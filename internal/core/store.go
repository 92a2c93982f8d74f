package core

import (
	"sort"
	"sync"
	"time"
)

// DefaultStoreCapacity bounds the event history when config does not say
// otherwise.
const DefaultStoreCapacity = 500

// EventStore is the bounded, time-ordered event history. It is the single
// owner of the id counter and the only point that guarantees every stored
// event has a positive id and a valid timestamp. The buffer is a fixed-size
// ring: once full, each append overwrites the oldest entry, and an evicted id
// is permanently unreachable.
type EventStore struct {
	mu       sync.Mutex
	entries  []*Event
	capacity int
	pos      int
	full     bool
	counter  int64

	// notify, when set, is invoked after every successful append with the
	// stored event. Failures downstream of notify must not affect the store.
	notify func(*Event)

	now func() time.Time
}

// NewEventStore creates a store holding up to capacity events.
func NewEventStore(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &EventStore{
		entries:  make([]*Event, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// SetNotify registers a callback fired after each append. Used by the engine
// to mirror stored events onto the feed bus.
func (s *EventStore) SetNotify(fn func(*Event)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// NextID returns the next id, strictly increasing from 1.
func (s *EventStore) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

func (s *EventStore) nextIDLocked() int64 {
	s.counter++
	return s.counter
}

// Add assigns an id and timestamp if missing, appends the event (evicting the
// oldest entry when at capacity) and returns the stored event. Id assignment,
// append and eviction happen under one lock so producers on separate
// goroutines never interleave mid-append.
func (s *EventStore) Add(event *Event) (*Event, error) {
	s.mu.Lock()
	if event.ID == 0 {
		event.ID = s.nextIDLocked()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	s.entries[s.pos] = event
	s.pos = (s.pos + 1) % s.capacity
	if s.pos == 0 {
		s.full = true
	}
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(event)
	}
	return event, nil
}

// snapshotLocked copies the buffer contents in insertion order (oldest first)
// so readers never observe later mutations.
func (s *EventStore) snapshotLocked() []*Event {
	total := s.pos
	if s.full {
		total = s.capacity
	}
	out := make([]*Event, 0, total)
	start := 0
	if s.full {
		start = s.pos
	}
	for i := 0; i < total; i++ {
		out = append(out, s.entries[(start+i)%s.capacity])
	}
	return out
}

// sortNewestFirst orders events by (timestamp, id) descending. The id
// tie-break keeps insertion order among events stamped within the same clock
// tick.
func sortNewestFirst(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID > events[j].ID
		}
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}

// All returns every stored event, newest first.
func (s *EventStore) All() []*Event {
	s.mu.Lock()
	out := s.snapshotLocked()
	s.mu.Unlock()
	sortNewestFirst(out)
	return out
}

// ByID finds an event by id, scanning newest to oldest. Returns nil when the
// id was never assigned or has been evicted.
func (s *EventStore) ByID(id int64) *Event {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	for i := len(snapshot) - 1; i >= 0; i-- {
		if snapshot[i].ID == id {
			return snapshot[i]
		}
	}
	return nil
}

// Recent returns the latest limit events, newest first.
func (s *EventStore) Recent(limit int) []*Event {
	all := s.All()
	if limit < 0 {
		limit = 0
	}
	if limit > len(all) {
		limit = len(all)
	}
	return all[:limit]
}

// InWindow returns events whose timestamp falls within the trailing window,
// newest first. Events with a zero timestamp are treated as happening now and
// are always included.
func (s *EventStore) InWindow(window time.Duration) []*Event {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	cutoff := s.now().UTC().Add(-window)
	s.mu.Unlock()

	out := make([]*Event, 0, len(snapshot))
	for _, e := range snapshot {
		if e.Timestamp.IsZero() || !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out
}

// BySeverity returns stored events matching the given severity, newest first.
func (s *EventStore) BySeverity(sev Severity) []*Event {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	out := make([]*Event, 0, len(snapshot))
	for _, e := range snapshot {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out
}

// DashboardCounts holds the total event count plus a count per known
// severity. Unknown severities are not counted.
type DashboardCounts struct {
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// Counts returns the dashboard totals for the whole buffer.
func (s *EventStore) Counts() DashboardCounts {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	return countSeverities(snapshot)
}

// Deltas returns per-severity counts limited to the trailing window.
func (s *EventStore) Deltas(window time.Duration) map[Severity]int {
	return countSeverities(s.InWindow(window)).BySeverity
}

func countSeverities(events []*Event) DashboardCounts {
	counts := make(map[Severity]int, len(KnownSeverities))
	for _, sev := range KnownSeverities {
		counts[sev] = 0
	}
	for _, e := range events {
		if _, ok := counts[e.Severity]; ok {
			counts[e.Severity]++
		}
	}
	return DashboardCounts{Total: len(events), BySeverity: counts}
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return s.capacity
	}
	return s.pos
}

// SetClock overrides the store's clock. Test hook.
func (s *EventStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}
