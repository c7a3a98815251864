package economy

import "time"

// Simulation cadence.
const (
	TickInterval            = 100 * time.Millisecond
	ResourceHistoryInterval = 5 * time.Second
	ResourceHistoryCap      = 100
	RateHistoryInterval     = 2 * time.Second
	RateHistoryCap          = 30
	CollectCreditDelay      = 500 * time.Millisecond
)

// Offline reconciliation bounds.
const (
	OfflineMinGap = 60 * time.Second
	OfflineCap    = 8 * time.Hour
)

// Resets.
const (
	PrestigeRequirement    = 1e15
	PrestigeBase           = 150.0
	PrestigeScale          = 1e15
	AscensionRequirement   = 1e6
	AscensionScale         = 1000.0
	AntimatterBonusPerUnit = 0.02
)

// Mana.
const (
	InitialMaxMana     = 100.0
	ManaRegenPerSecond = 1.0
)

// Clicking.
const (
	CriticalClickChance     = 0.02
	CriticalClickMultiplier = 10.0

	FrenzyThreshold = 300
	FrenzyTierSize  = 50
	FrenzyWindow    = 60 * time.Second

	ComboTimeout   = 1 * time.Second
	ComboIncrement = 0.01
	ComboMax       = 100
)

// Dynamic events.
const (
	DynamicEventChancePerTick      = 0.005
	DynamicEventLifetime           = 15 * time.Second
	DynamicEventRewardRateMultiple = 60.0
)
