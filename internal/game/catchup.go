package game

import (
	"fmt"
	"sort"
	"time"

	"bodega/internal/catalog"
	"bodega/internal/rng"
)

// CatchUpResult reports what happened to a shop while its owner was away.
type CatchUpResult struct {
	Ticks            int            `json:"ticks"`
	Spoiled          map[string]int `json:"spoiled,omitempty"`
	Inactivity       string         `json:"inactivity,omitempty"`
	ElapsedCooldowns []string       `json:"elapsed_cooldowns,omitempty"`
}

// RunCatchUp replays the discrete spoilage ticks between the actor's last
// activity and now. Each tick draws one seeded random value per held
// spoilable item: the draw key includes the last-active timestamp and the
// tick index, so the whole simulation is reproducible per tick and bounded
// by the catch-up cap.
func RunCatchUp(actor *ActorState, cat *catalog.Catalog, set Settings, fx EffectBundle, now time.Time) CatchUpResult {
	res := CatchUpResult{}
	elapsed := now.Sub(actor.LastActiveAt)
	if elapsed <= 0 {
		return res
	}

	switch {
	case elapsed >= 30*24*time.Hour:
		res.Inactivity = "30-day"
	case elapsed >= 7*24*time.Hour:
		res.Inactivity = "7-day"
	}

	for name, expiry := range actor.Cooldowns {
		if !expiry.After(now) {
			res.ElapsedCooldowns = append(res.ElapsedCooldowns, name)
			delete(actor.Cooldowns, name)
		}
	}
	sort.Strings(res.ElapsedCooldowns)

	if set.TickHours <= 0 {
		return res
	}
	ticks := int(elapsed.Hours()) / set.TickHours
	if ticks > set.MaxCatchUpTicks {
		ticks = set.MaxCatchUpTicks
	}
	res.Ticks = ticks
	if ticks == 0 {
		return res
	}

	anchor := actor.LastActiveAt.UTC().Format(time.RFC3339)
	for tick := 0; tick < ticks; tick++ {
		for _, itemID := range heldSpoilable(actor, cat) {
			chance := set.SpoilChance
			if fx.Protected[itemID] {
				chance = set.ProtectedSpoilChance
			}
			if actor.ReliefUses > 0 && set.ReliefSpoilChance < chance {
				chance = set.ReliefSpoilChance
			}
			stream := rng.New("spoilage", actor.CommunityID, anchor, actor.ActorID,
				fmt.Sprintf("%s#%d", itemID, tick))
			if stream.Float64() < chance {
				actor.Inventory[itemID]--
				if res.Spoiled == nil {
					res.Spoiled = map[string]int{}
				}
				res.Spoiled[itemID]++
			}
		}
	}
	return res
}

func heldSpoilable(actor *ActorState, cat *catalog.Catalog) []string {
	var ids []string
	for id, qty := range actor.Inventory {
		if qty <= 0 {
			continue
		}
		if item, ok := cat.Items[id]; ok && item.Spoilable {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
