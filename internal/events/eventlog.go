// Package events provides the analytics event log of a game session.
// Every player-visible state transition leaves an immutable record here.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of an analytics event.
type EventType string

const (
	EventTypePurchaseUpgrade          EventType = "PURCHASE_UPGRADE"
	EventTypePurchaseGenerator        EventType = "PURCHASE_GENERATOR"
	EventTypeCollectArtifact          EventType = "COLLECT_ARTIFACT"
	EventTypeCastSpell                EventType = "CAST_SPELL"
	EventTypePrestige                 EventType = "PRESTIGE"
	EventTypeAscend                   EventType = "ASCEND"
	EventTypePurchaseAscensionUpgrade EventType = "PURCHASE_ASCENSION_UPGRADE"
	EventTypePurchaseResearch         EventType = "PURCHASE_RESEARCH"
	EventTypeActivateChallenge        EventType = "ACTIVATE_CHALLENGE"
	EventTypeMilestoneCompleted       EventType = "MILESTONE_COMPLETED"
	EventTypeDynamicEventClicked      EventType = "DYNAMIC_EVENT_CLICKED"
	EventTypeOfflineGainsClaimed      EventType = "OFFLINE_GAINS_CLAIMED"
	EventTypeGameReset                EventType = "GAME_RESET"
)

// PurchasePayload is attached to PURCHASE_UPGRADE and PURCHASE_GENERATOR.
// Count is the owned amount after the purchase.
type PurchasePayload struct {
	ItemID string  `json:"itemId"`
	Cost   float64 `json:"cost"`
	Count  int     `json:"count"`
}

type CollectPayload struct {
	GeneratorID string  `json:"generatorId"`
	Payout      float64 `json:"payout"`
}

type SpellPayload struct {
	SpellID string `json:"spellId"`
}

type PrestigePayload struct {
	AntimatterGain float64 `json:"antimatterGain"`
	TotalStardust  float64 `json:"totalStardust"`
}

type AscendPayload struct {
	EssenceGain float64 `json:"essenceGain"`
	Antimatter  float64 `json:"antimatter"`
}

type AscensionUpgradePayload struct {
	UpgradeID string `json:"upgradeId"`
}

type ResearchPayload struct {
	ResearchID string  `json:"researchId"`
	Cost       float64 `json:"cost"`
}

// ChallengePayload carries a nil ChallengeID when the active challenge is cleared.
type ChallengePayload struct {
	ChallengeID *string `json:"challengeId"`
}

type MilestonePayload struct {
	MilestoneID string `json:"milestoneId"`
}

type DynamicEventPayload struct {
	Reward float64 `json:"reward"`
}

type OfflineClaimPayload struct {
	Stardust       float64 `json:"stardust"`
	NebulaGas      float64 `json:"nebulaGas"`
	ResearchPoints float64 `json:"researchPoints"`
}

// AnalyticsEvent represents an immutable record of an action in the game.
// Timestamp is wall-clock Unix milliseconds.
type AnalyticsEvent struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Type      EventType       `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent stamps a new event with a fresh id. A payload that cannot be encoded
// is recorded as an empty object.
func NewEvent(eventType EventType, at time.Time, payload any) AnalyticsEvent {
	raw, err := json.Marshal(payload)
	if err != nil || payload == nil {
		raw = json.RawMessage(`{}`)
	}
	return AnalyticsEvent{
		ID:        uuid.NewString(),
		Timestamp: at.UnixMilli(),
		Type:      eventType,
		Payload:   raw,
	}
}

// Time converts the event timestamp back to a time.Time.
func (e AnalyticsEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// DecodePayload unmarshals the payload into v.
func (e AnalyticsEvent) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event AnalyticsEvent) error
}

// EventLog is the in-memory append-only log that fans analytics events out to
// pollers (the network hub) and to an optional persister.
type EventLog struct {
	mu        sync.RWMutex
	events    []AnalyticsEvent
	persister EventPersister
	onError   func(AnalyticsEvent, error)
	pending   sync.WaitGroup
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]AnalyticsEvent, 0),
		persister: persister,
	}
}

// OnPersistError registers a callback invoked when the persister rejects an event.
func (el *EventLog) OnPersistError(fn func(AnalyticsEvent, error)) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append adds events to the log. Events are immutable once appended.
func (el *EventLog) Append(evs ...AnalyticsEvent) {
	if len(evs) == 0 {
		return
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, evs...)

	if el.persister == nil {
		return
	}
	onError := el.onError
	for _, e := range evs {
		el.pending.Add(1)
		// Write through to persistent storage off the caller's goroutine.
		go func(e AnalyticsEvent) {
			defer el.pending.Done()
			if err := el.persister.Append(e); err != nil && onError != nil {
				onError(e, err)
			}
		}(e)
	}
}

// Wait blocks until every write-through started so far has finished.
func (el *EventLog) Wait() {
	el.pending.Wait()
}

// Len returns the number of events appended so far.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns a copy of the events appended at or after position n.
func (el *EventLog) Since(n int) []AnalyticsEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(el.events) {
		return nil
	}
	out := make([]AnalyticsEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// GetByType returns all events of a specific type.
func (el *EventLog) GetByType(t EventType) []AnalyticsEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []AnalyticsEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []AnalyticsEvent {
	return el.Since(0)
}
