package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// Impact classifies a recap entry for the presentation layer.
type Impact string

const (
	ImpactGain    Impact = "GAIN"
	ImpactSpend   Impact = "SPEND"
	ImpactNeutral Impact = "NEUTRAL"
)

// RecapEntry is a simplified event for the "while you were away" screen.
type RecapEntry struct {
	Timestamp int64            `json:"timestamp"`
	EventType events.EventType `json:"eventType"`
	Summary   string           `json:"summary"`
	Impact    Impact           `json:"impact"`
}

// Recap summarizes the ledger of a slot over a time window.
type Recap struct {
	Slot             string                   `json:"slot"`
	Since            time.Time                `json:"since"`
	Counts           map[events.EventType]int `json:"counts"`
	WindfallStardust float64                  `json:"windfallStardust"`
	Entries          []RecapEntry             `json:"entries"`
}

// Reconstructor rebuilds player-facing history from the analytics ledger.
// State itself is never rebuilt from events: the save slot is authoritative.
type Reconstructor struct {
	repo AnalyticsRepository
}

func NewReconstructor(repo AnalyticsRepository) *Reconstructor {
	return &Reconstructor{repo: repo}
}

// GenerateRecap creates the recap of slot since the given time.
func (r *Reconstructor) GenerateRecap(ctx context.Context, slot string, since time.Time) (Recap, error) {
	evs, err := r.repo.ListSince(ctx, slot, since)
	if err != nil {
		return Recap{}, fmt.Errorf("failed to list events for recap: %w", err)
	}

	recap := Recap{
		Slot:    slot,
		Since:   since.UTC(),
		Counts:  make(map[events.EventType]int),
		Entries: make([]RecapEntry, 0, len(evs)),
	}
	for _, e := range evs {
		recap.Counts[e.Type]++
		recap.WindfallStardust += windfall(e)
		recap.Entries = append(recap.Entries, RecapEntry{
			Timestamp: e.Timestamp,
			EventType: e.Type,
			Summary:   summarizeEvent(e),
			Impact:    determineImpact(e.Type),
		})
	}
	return recap, nil
}

// windfall is the stardust an event granted outside generator collects.
func windfall(e events.AnalyticsEvent) float64 {
	switch e.Type {
	case events.EventTypeDynamicEventClicked:
		var p events.DynamicEventPayload
		if e.DecodePayload(&p) == nil {
			return p.Reward
		}
	case events.EventTypeOfflineGainsClaimed:
		var p events.OfflineClaimPayload
		if e.DecodePayload(&p) == nil {
			return p.Stardust
		}
	}
	return 0
}

// amount renders a resource amount for humans.
func amount(v float64) string {
	if math.Abs(v) >= 1e6 {
		return humanize.SIWithDigits(v, 2, "")
	}
	return humanize.Commaf(math.Round(v*100) / 100)
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.AnalyticsEvent) string {
	switch e.Type {
	case events.EventTypePurchaseUpgrade, events.EventTypePurchaseGenerator:
		var p events.PurchasePayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Bought %s #%d for %s.", p.ItemID, p.Count, amount(p.Cost))
		}
	case events.EventTypeCollectArtifact:
		var p events.CollectPayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Collected %s from %s.", amount(p.Payout), p.GeneratorID)
		}
	case events.EventTypeCastSpell:
		var p events.SpellPayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Cast %s.", p.SpellID)
		}
	case events.EventTypePrestige:
		var p events.PrestigePayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Prestiged for %s antimatter.", amount(p.AntimatterGain))
		}
	case events.EventTypeAscend:
		var p events.AscendPayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Ascended for %s singularity essence.", amount(p.EssenceGain))
		}
	case events.EventTypePurchaseResearch:
		var p events.ResearchPayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Researched %s.", p.ResearchID)
		}
	case events.EventTypePurchaseAscensionUpgrade:
		var p events.AscensionUpgradePayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Unlocked %s.", p.UpgradeID)
		}
	case events.EventTypeActivateChallenge:
		var p events.ChallengePayload
		if e.DecodePayload(&p) == nil {
			if p.ChallengeID == nil {
				return "Left the active challenge."
			}
			return fmt.Sprintf("Entered %s.", *p.ChallengeID)
		}
	case events.EventTypeMilestoneCompleted:
		var p events.MilestonePayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Reached milestone %s.", p.MilestoneID)
		}
	case events.EventTypeDynamicEventClicked:
		var p events.DynamicEventPayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Caught a shooting star worth %s.", amount(p.Reward))
		}
	case events.EventTypeOfflineGainsClaimed:
		var p events.OfflineClaimPayload
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("Claimed %s stardust earned offline.", amount(p.Stardust))
		}
	case events.EventTypeGameReset:
		return "Started over."
	}
	return string(e.Type)
}

// determineImpact classifies the event impact.
func determineImpact(t events.EventType) Impact {
	switch t {
	case events.EventTypeCollectArtifact, events.EventTypePrestige, events.EventTypeAscend,
		events.EventTypeMilestoneCompleted, events.EventTypeDynamicEventClicked,
		events.EventTypeOfflineGainsClaimed:
		return ImpactGain
	case events.EventTypePurchaseUpgrade, events.EventTypePurchaseGenerator,
		events.EventTypePurchaseResearch, events.EventTypePurchaseAscensionUpgrade:
		return ImpactSpend
	default:
		return ImpactNeutral
	}
}
