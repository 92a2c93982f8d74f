package api

import (
	"sync"
	"time"
)

// triggerThrottle enforces the per-client limits on chain triggers: a
// cooldown between consecutive triggers and a rolling per-minute cap. Both
// refusals are ordinary responses, distinguishable by reason code.
type triggerThrottle struct {
	mu       sync.Mutex
	cooldown time.Duration
	perMin   int
	last     map[string]time.Time
	history  map[string][]time.Time
}

func newTriggerThrottle(cooldown time.Duration, perMin int) *triggerThrottle {
	if cooldown <= 0 {
		cooldown = 1500 * time.Millisecond
	}
	if perMin <= 0 {
		perMin = 30
	}
	return &triggerThrottle{
		cooldown: cooldown,
		perMin:   perMin,
		last:     map[string]time.Time{},
		history:  map[string][]time.Time{},
	}
}

// check returns a non-nil throttled response body when the client must wait,
// or nil when the trigger may proceed (in which case it is recorded).
func (t *triggerThrottle) check(clientIP string, now time.Time) map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[clientIP]; ok {
		if elapsed := now.Sub(last); elapsed < t.cooldown {
			return map[string]any{
				"status":      "throttled",
				"reason":      "cooldown_active",
				"retry_after": roundTenth((t.cooldown - elapsed).Seconds()),
			}
		}
	}
	t.last[clientIP] = now

	// Prune entries older than one minute, then apply the rolling cap.
	cutoff := now.Add(-time.Minute)
	history := t.history[clientIP][:0]
	for _, ts := range t.history[clientIP] {
		if !ts.Before(cutoff) {
			history = append(history, ts)
		}
	}
	t.history[clientIP] = history

	if len(history) >= t.perMin {
		return map[string]any{
			"status": "throttled",
			"reason": "rate_limit_per_minute",
			"limit":  t.perMin,
		}
	}

	t.history[clientIP] = append(history, now)
	return nil
}
