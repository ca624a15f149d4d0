// internal/domain/pricing.go
package domain

import "time"

// PricingEntry maps a premium action to its credit cost and, for time-boxed
// actions, the default duration of the resulting grant.
type PricingEntry struct {
	Action          Action        `json:"action"`
	Cost            int64         `json:"cost"`
	DefaultDuration time.Duration `json:"default_duration"` // zero for one-shot actions
}

// PricingTable is the static action -> price mapping. Read-only to the ledger
// core; configuration data, not state.
type PricingTable map[Action]PricingEntry

// DefaultPricing returns the built-in pricing table.
func DefaultPricing() PricingTable {
	return PricingTable{
		ActionProfileBoost: {Action: ActionProfileBoost, Cost: 5, DefaultDuration: 30 * time.Minute},
		ActionSuperLike:    {Action: ActionSuperLike, Cost: 2},
		ActionSeeLikes:     {Action: ActionSeeLikes, Cost: 3, DefaultDuration: 24 * time.Hour},
		ActionUndoSwipes:   {Action: ActionUndoSwipes, Cost: 1},
	}
}

// Lookup returns the pricing entry for an action, or false for actions the
// table does not know.
func (p PricingTable) Lookup(action Action) (PricingEntry, bool) {
	entry, ok := p[action]
	return entry, ok
}
