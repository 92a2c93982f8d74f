package simulate

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/threatstage/threatstage/internal/core"
)

// Sink receives emitted events. The event store implements it.
type Sink interface {
	Add(event *core.Event) (*core.Event, error)
}

// RequestStatus is the outcome of a schedule request.
type RequestStatus string

const (
	StatusScheduled RequestStatus = "scheduled"
	StatusBusy      RequestStatus = "busy"
	StatusSkipped   RequestStatus = "skipped"
)

// RequestResult reports what happened to a schedule request.
type RequestResult struct {
	Status   RequestStatus `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	ChainID  string        `json:"chain_id,omitempty"`
	Duration time.Duration `json:"approx_duration,omitempty"`
	Active   int           `json:"active"`
	Limit    int           `json:"limit"`
}

// runtimePlan is a normalized plan in flight: the accepted plan plus its
// start time and a cursor to the next un-emitted entry. A plan is complete
// iff index == len(entries).
type runtimePlan struct {
	plan      Plan
	startTime time.Time
	index     int
}

func (rp *runtimePlan) complete() bool {
	return rp.index >= len(rp.plan.Entries)
}

// Scheduler owns the set of in-flight plans. Each tick it emits every due
// entry into the sink and retires finished plans. A fixed ceiling caps the
// number of concurrently active plans; refused plans are discarded, never
// queued.
type Scheduler struct {
	mu        sync.Mutex
	logger    zerolog.Logger
	sink      Sink
	active    []*runtimePlan
	maxActive int
}

// NewScheduler creates a scheduler emitting into sink with the given ceiling
// on active plans.
func NewScheduler(logger zerolog.Logger, sink Sink, maxActive int) *Scheduler {
	if maxActive <= 0 {
		maxActive = 15
	}
	return &Scheduler{
		logger:    logger.With().Str("component", "scheduler").Logger(),
		sink:      sink,
		maxActive: maxActive,
	}
}

// Request accepts a normalized plan, starting it at now. Returns busy when
// the active-plan ceiling is reached and skipped when the plan is empty;
// both are ordinary results, not errors. The active count observed by the
// caller never exceeds the ceiling.
func (s *Scheduler) Request(plan Plan, now time.Time) RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) >= s.maxActive {
		return RequestResult{
			Status: StatusBusy,
			Reason: "max_active_plans_reached",
			Active: len(s.active),
			Limit:  s.maxActive,
		}
	}

	if plan.Empty() {
		return RequestResult{
			Status: StatusSkipped,
			Reason: "no_attack_generated",
			Active: len(s.active),
			Limit:  s.maxActive,
		}
	}

	s.active = append(s.active, &runtimePlan{plan: plan, startTime: now})

	s.logger.Info().
		Str("chain_id", plan.ChainID).
		Dur("duration", plan.Duration).
		Int("steps", len(plan.Entries)).
		Int("active", len(s.active)).
		Msg("attack chain scheduled")

	return RequestResult{
		Status:   StatusScheduled,
		ChainID:  plan.ChainID,
		Duration: plan.Duration,
		Active:   len(s.active),
		Limit:    s.maxActive,
	}
}

// Tick emits every entry due at or before now across all active plans,
// advancing each plan's cursor, then removes plans that completed. Entries
// within a plan are ordered by delay, so the scan stops at the first undue
// entry. A sink failure for one entry is swallowed — the cursor still
// advances so a transient store fault degrades to a missing event, not a
// stuck plan.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.active[:0]
	for _, rp := range s.active {
		for rp.index < len(rp.plan.Entries) {
			entry := rp.plan.Entries[rp.index]
			due := rp.startTime.Add(entry.Delay)
			if due.After(now) {
				break
			}

			if entry.Event != nil {
				// Stamp at the moment of emission, not plan creation.
				entry.Event.Timestamp = now.UTC()
				if _, err := s.sink.Add(entry.Event); err != nil {
					s.logger.Warn().Err(err).
						Str("chain_id", rp.plan.ChainID).
						Int("step", rp.index).
						Msg("event emission failed, advancing cursor")
				}
			}
			rp.index++
		}

		if !rp.complete() {
			remaining = append(remaining, rp)
		} else {
			s.logger.Debug().
				Str("chain_id", rp.plan.ChainID).
				Int("steps", rp.index).
				Msg("attack chain complete")
		}
	}
	// Clear trailing slots so retired plans can be collected.
	for i := len(remaining); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = remaining
}

// Active returns the number of in-flight plans.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Limit returns the configured ceiling.
func (s *Scheduler) Limit() int {
	return s.maxActive
}
