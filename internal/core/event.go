package core

import (
	"encoding/json"
	"time"
)

// Severity is the severity label carried by every event in the feed.
type Severity string

const (
	SeverityBenign     Severity = "benign"
	SeveritySuspicious Severity = "suspicious"
	SeverityMalicious  Severity = "malicious"
	SeverityCritical   Severity = "critical"
)

// KnownSeverities lists the severities the dashboard counts, in rank order.
var KnownSeverities = []Severity{
	SeverityBenign,
	SeveritySuspicious,
	SeverityMalicious,
	SeverityCritical,
}

// Valid reports whether s is one of the known severity values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBenign, SeveritySuspicious, SeverityMalicious, SeverityCritical:
		return true
	}
	return false
}

// Stage is the lifecycle label on an event: noise for background traffic,
// recon/intrusion/exploit for attack-chain steps.
type Stage string

const (
	StageNoise     Stage = "noise"
	StageRecon     Stage = "recon"
	StageIntrusion Stage = "intrusion"
	StageExploit   Stage = "exploit"
)

// Phase is the high-level flow categorization.
type Phase string

const (
	PhaseNoise  Phase = "noise"
	PhaseAttack Phase = "attack"
)

// Event is the atomic unit flowing through the feed. Events are immutable
// after the store accepts them; ID 0 means "not yet stored".
type Event struct {
	ID        int64          `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	SourceIP  string         `json:"source_ip"`
	DestPort  int            `json:"dest_port"`
	Phase     Phase          `json:"phase"`
	Category  string         `json:"category"`
	Severity  Severity       `json:"severity"`
	ChainID   string         `json:"chain_id"`
	Stage     Stage          `json:"stage"`
	Raw       string         `json:"raw"`
	Parsed    map[string]any `json:"parsed,omitempty"`
}

// SerializedEvent is the wire form handed to API clients: the Event flattened
// plus a recommendation action computed at serialization time. Recommendations
// are never stored.
type SerializedEvent struct {
	Event
	Recommendation string `json:"recommendation"`
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes an Event from JSON.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
