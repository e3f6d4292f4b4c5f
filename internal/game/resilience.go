package game

import (
	"fmt"
	"math"
	"sort"
	"time"

	"bodega/internal/catalog"
	"bodega/internal/clock"
)

// ResilienceReport describes what the safety net did for one command run.
type ResilienceReport struct {
	Deadlocked      bool     `json:"deadlocked"`
	Messages        []string `json:"messages,omitempty"`
	GrantedRecipe   string   `json:"granted_recipe,omitempty"`
	GrantedItems    bool     `json:"granted_items,omitempty"`
	PityItem        string   `json:"pity_item,omitempty"`
	RepFloorFlagged bool     `json:"rep_floor_flagged,omitempty"`
}

// IsDeadlocked is the deadlock predicate: broke, nothing craftable, nothing
// affordable, nothing sellable.
func IsDeadlocked(actor *ActorState, cat *catalog.Catalog, prices map[string]int64, set Settings) bool {
	if actor.Coins > 0 {
		return false
	}
	return !canCraftAny(actor, cat) &&
		!canAffordAny(actor, prices) &&
		!canSellAny(actor, cat, prices, set.SellRate)
}

// RunSafetyNet evaluates the recovery ladder before a state-changing command.
// It mutates the actor in memory only; persistence is the caller's job.
//
// Temporary grants clear as soon as the balance is positive again. The
// emergency bundle is bounded twice: once per calendar day and once per
// rolling cooldown window. Grants never feed achievement counters.
func RunSafetyNet(actor *ActorState, cat *catalog.Catalog, comm *CommunityState, set Settings, now time.Time) ResilienceReport {
	var rep ResilienceReport
	day := clock.DayKey(now)

	if actor.Coins > 0 && len(actor.TempGrants) > 0 {
		actor.TempGrants = nil
	}

	if IsDeadlocked(actor, cat, comm.Prices, set) {
		rep.Deadlocked = true

		// Step (a): temporary access to the fallback recipe. Idempotent.
		if fallback := cat.FallbackRecipe; fallback != "" &&
			!actor.KnownRecipes[fallback] && !actor.hasTempGrant(fallback) {
			actor.TempGrants = []TempGrant{{RecipeID: fallback, GrantedAt: now}}
			rep.GrantedRecipe = fallback
			rep.Messages = append(rep.Messages, fmt.Sprintf("temporary access to %s granted", fallback))
		}

		// Step (b): the emergency ingredient bundle, once per day and at
		// most once per rolling cooldown window.
		if actor.EmergencyDay != day && now.Sub(actor.LastEmergencyAt) >= set.GrantCooldown {
			for item, qty := range cat.EmergencyBundle {
				actor.Inventory[item] += qty
			}
			actor.EmergencyDay = day
			actor.LastEmergencyAt = now
			rep.GrantedItems = true
			rep.Messages = append(rep.Messages, "emergency ingredient bundle delivered")
		}

		if len(rep.Messages) == 0 {
			rep.Messages = append(rep.Messages, "recovery grants are cooling down; try again later")
		}
	}

	// Market pity: once per day, if near-broke with nothing sellable and
	// nothing affordable, the cheapest market item is discounted for this
	// actor for the rest of the day.
	if actor.PityDay != day &&
		actor.Coins <= pityCoinCeiling &&
		!canSellAny(actor, cat, comm.Prices, set.SellRate) &&
		!canAffordAny(actor, comm.Prices) {
		if item, price, ok := cheapestPrice(comm.Prices); ok {
			actor.PityDay = day
			actor.PityItem = item
			actor.PityPrice = int64(math.Floor(float64(price) * (1 - set.PityFraction)))
			if actor.PityPrice < 1 {
				actor.PityPrice = 1
			}
			rep.PityItem = item
			rep.Messages = append(rep.Messages, fmt.Sprintf("today only: %s at a discount", item))
		}
	}

	// Reputation floor: flag a one-shot +1 applied on the next successful
	// reward.
	if actor.Reputation <= 0 && !actor.RepFloorPending {
		actor.RepFloorPending = true
		rep.RepFloorFlagged = true
	}

	return rep
}

// pityCoinCeiling is "near-zero" for the pity discount.
const pityCoinCeiling = int64(5)

func canCraftAny(actor *ActorState, cat *catalog.Catalog) bool {
	for id := range actor.Eligible() {
		recipe, ok := cat.Recipes[id]
		if !ok {
			continue
		}
		if hasInputs(actor.Inventory, recipe.Inputs) {
			return true
		}
	}
	return false
}

func canAffordAny(actor *ActorState, prices map[string]int64) bool {
	for item, price := range prices {
		p := price
		if actor.PityItem == item && actor.PityPrice > 0 && actor.PityPrice < p {
			p = actor.PityPrice
		}
		if p <= actor.Coins {
			return true
		}
	}
	return false
}

func canSellAny(actor *ActorState, cat *catalog.Catalog, prices map[string]int64, sellRate float64) bool {
	for item, qty := range actor.Inventory {
		if qty <= 0 {
			continue
		}
		it, ok := cat.Items[item]
		if !ok || !it.Tradeable {
			continue
		}
		if price, ok := prices[item]; ok && SellPrice(price, sellRate) > 0 {
			return true
		}
	}
	return false
}

func hasInputs(inventory map[string]int, inputs map[string]int) bool {
	if len(inputs) == 0 {
		return false
	}
	for item, need := range inputs {
		if inventory[item] < need {
			return false
		}
	}
	return true
}

func cheapestPrice(prices map[string]int64) (string, int64, bool) {
	items := make([]string, 0, len(prices))
	for item := range prices {
		items = append(items, item)
	}
	sort.Strings(items)
	best := ""
	var bestPrice int64
	for _, item := range items {
		if best == "" || prices[item] < bestPrice {
			best = item
			bestPrice = prices[item]
		}
	}
	return best, bestPrice, best != ""
}
