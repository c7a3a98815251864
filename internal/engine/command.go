package engine

import (
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
)

// CommandType names a player action on the wire.
type CommandType string

const (
	CommandPurchaseUpgrade          CommandType = "PURCHASE_UPGRADE"
	CommandPurchaseGenerator        CommandType = "PURCHASE_GENERATOR"
	CommandCollect                  CommandType = "COLLECT"
	CommandCastSpell                CommandType = "CAST_SPELL"
	CommandPrestige                 CommandType = "PRESTIGE"
	CommandAscend                   CommandType = "ASCEND"
	CommandPurchaseResearch         CommandType = "PURCHASE_RESEARCH"
	CommandPurchaseAscensionUpgrade CommandType = "PURCHASE_ASCENSION_UPGRADE"
	CommandActivateChallenge        CommandType = "ACTIVATE_CHALLENGE"
	CommandClickStar                CommandType = "CLICK_STAR"
	CommandClickDynamicEvent        CommandType = "CLICK_DYNAMIC_EVENT"
	CommandClaimOffline             CommandType = "CLAIM_OFFLINE"
	CommandSetCompactMode           CommandType = "SET_COMPACT_MODE"
	CommandSetLanguage              CommandType = "SET_LANGUAGE"
	CommandSetTheme                 CommandType = "SET_THEME"
	CommandSetAutoCollector         CommandType = "SET_AUTO_COLLECTOR"
	CommandReset                    CommandType = "RESET"
)

// Command is one player action. Only the fields relevant to Type are read:
// ID names the item, spell, generator, research or challenge; a nil ID on
// ACTIVATE_CHALLENGE clears the active challenge.
type Command struct {
	Type     CommandType    `json:"-"`
	ID       *string        `json:"id,omitempty"`
	Enabled  bool           `json:"enabled,omitempty"`
	Language state.Language `json:"language,omitempty"`
	Theme    state.Theme    `json:"theme,omitempty"`
}

// NewCommand builds a command addressing the item id.
func NewCommand(t CommandType, id string) Command {
	return Command{Type: t, ID: &id}
}

func (c Command) id() string {
	if c.ID == nil {
		return ""
	}
	return *c.ID
}

// CommandResult reports whether a command was applied. Rejections are not errors.
type CommandResult struct {
	Applied bool           `json:"ok"`
	Click   *ClickResult   `json:"click,omitempty"`
	Credit  *PendingCredit `json:"credit,omitempty"`
	Reset   bool           `json:"reset,omitempty"`
}

// Execute dispatches a command to its handler.
func (sim *Simulation) Execute(cmd Command, now time.Time) CommandResult {
	switch cmd.Type {
	case CommandPurchaseUpgrade:
		return CommandResult{Applied: sim.PurchaseUpgrade(cmd.id(), now)}
	case CommandPurchaseGenerator:
		return CommandResult{Applied: sim.PurchaseGenerator(cmd.id(), now)}
	case CommandCollect:
		credit, ok := sim.Collect(cmd.id(), now)
		if !ok {
			return CommandResult{}
		}
		return CommandResult{Applied: true, Credit: &credit}
	case CommandCastSpell:
		return CommandResult{Applied: sim.CastSpell(cmd.id(), now)}
	case CommandPrestige:
		return CommandResult{Applied: sim.Prestige(now)}
	case CommandAscend:
		return CommandResult{Applied: sim.Ascend(now)}
	case CommandPurchaseResearch:
		return CommandResult{Applied: sim.PurchaseResearch(cmd.id(), now)}
	case CommandPurchaseAscensionUpgrade:
		return CommandResult{Applied: sim.PurchaseAscensionUpgrade(cmd.id(), now)}
	case CommandActivateChallenge:
		return CommandResult{Applied: sim.ActivateChallenge(cmd.id(), now)}
	case CommandClickStar:
		click := sim.ClickStar(now)
		return CommandResult{Applied: true, Click: &click}
	case CommandClickDynamicEvent:
		return CommandResult{Applied: sim.ClickDynamicEvent(now)}
	case CommandClaimOffline:
		return CommandResult{Applied: sim.ClaimOfflineGains(now)}
	case CommandSetCompactMode:
		sim.SetCompactMode(cmd.Enabled)
		return CommandResult{Applied: true}
	case CommandSetLanguage:
		return CommandResult{Applied: sim.SetLanguage(cmd.Language)}
	case CommandSetTheme:
		return CommandResult{Applied: sim.SetTheme(cmd.Theme)}
	case CommandSetAutoCollector:
		sim.SetAutoCollector(cmd.Enabled)
		return CommandResult{Applied: true}
	case CommandReset:
		sim.Reset(now)
		return CommandResult{Applied: true, Reset: true}
	}
	return CommandResult{}
}
