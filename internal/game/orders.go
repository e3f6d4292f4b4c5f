package game

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"bodega/internal/catalog"
	"bodega/internal/rng"
)

// BoardParams scopes one board generation run.
type BoardParams struct {
	CommunityID string
	ActorID     string
	Day         string
	Season      string
	EventID     string
	Eligible    map[string]bool
	Effects     EffectBundle
	Now         time.Time
}

// GenerateBoard builds the daily order board for one actor. The draw stream
// is keyed by (community, day, actor, eligible-set size), so the board is
// reproducible within a day and regenerates when the actor's eligible recipe
// set grows or shrinks.
//
// Every slot weighted-picks an NPC archetype, then a recipe from the pool
// matching that archetype's rarity; empty pools skip the slot. The baseline
// recipe is reserved for the guarantee slot: if the actor knows it, exactly
// one task pairing it with the baseline archetype is prepended, so a
// brand-new shop always has exactly one completable order using it.
func GenerateBoard(cat *catalog.Catalog, set Settings, p BoardParams) OrderBoard {
	stream := rng.New("orders", p.CommunityID, p.Day, p.ActorID, strconv.Itoa(len(p.Eligible)))
	pools := recipePools(cat, p)
	weights := archetypeWeights(cat, set, p.Effects)

	count := set.OrderCount
	if count > MaxBoardSlots {
		count = MaxBoardSlots
	}

	board := OrderBoard{Day: p.Day, EligibleCount: len(p.Eligible)}
	for slot := 0; slot < count; slot++ {
		archID, ok := stream.Pick(weights)
		if !ok {
			break
		}
		arch := cat.Archetypes[archID]
		pool := pools[arch.Rarity]
		if len(pool) == 0 {
			continue
		}
		recipeWeights := make(map[string]float64, len(pool))
		for _, id := range pool {
			recipeWeights[id] = 1
		}
		recipeID, _ := stream.Pick(recipeWeights)
		timeBoxed := arch.AlwaysUrgent || stream.Float64() < set.LimitedChance

		task := Task{
			ID:          fmt.Sprintf("%s-%02d", p.Day, slot+1),
			RecipeID:    recipeID,
			ArchetypeID: archID,
			Tier:        cat.Recipes[recipeID].Tier,
			TimeBoxed:   timeBoxed,
			CreatedAt:   p.Now,
			SpeedWindow: speedWindow(arch, set),
		}
		if timeBoxed {
			exp := p.Now.Add(set.TaskTTL)
			task.ExpiresAt = &exp
		}
		board.Tasks = append(board.Tasks, task)
	}

	if p.Eligible[cat.BaselineRecipe] {
		baseline := cat.Recipes[cat.BaselineRecipe]
		arch := cat.Archetypes[cat.BaselineArchetype]
		board.Tasks = append([]Task{{
			ID:          fmt.Sprintf("%s-00", p.Day),
			RecipeID:    cat.BaselineRecipe,
			ArchetypeID: cat.BaselineArchetype,
			Tier:        baseline.Tier,
			CreatedAt:   p.Now,
			SpeedWindow: speedWindow(arch, set),
		}}, board.Tasks...)
	}
	return board
}

// recipePools groups eligible recipes by tier, applying season and event
// gates. The baseline recipe is excluded here; it enters the board only
// through the guarantee slot.
func recipePools(cat *catalog.Catalog, p BoardParams) map[catalog.Tier][]string {
	pools := make(map[catalog.Tier][]string)
	for _, tier := range catalog.Tiers {
		var pool []string
		for _, id := range sortedRecipeIDs(cat) {
			r := cat.Recipes[id]
			if r.Tier != tier || !p.Eligible[id] || id == cat.BaselineRecipe {
				continue
			}
			if r.Season != "" && r.Season != p.Season {
				continue
			}
			if r.EventID != "" && r.EventID != p.EventID {
				continue
			}
			pool = append(pool, id)
		}
		pools[tier] = pool
	}
	return pools
}

// archetypeWeights applies the settings tier-weight table, the social buff's
// per-rarity multipliers, and the upgrade variety bonus (which lifts
// above-common archetypes) onto the catalog base weights.
func archetypeWeights(cat *catalog.Catalog, set Settings, fx EffectBundle) map[string]float64 {
	weights := make(map[string]float64, len(cat.Archetypes))
	for id, arch := range cat.Archetypes {
		w := arch.Weight
		if tw, ok := set.TierWeights[arch.Rarity]; ok {
			w *= tw
		}
		if mult, ok := fx.RarityWeightMult[arch.Rarity]; ok {
			w *= mult
		}
		if fx.VarietyBonus > 0 && arch.Rarity != catalog.TierCommon {
			w *= 1 + fx.VarietyBonus
		}
		weights[id] = w
	}
	return weights
}

func speedWindow(arch catalog.Archetype, set Settings) time.Duration {
	if arch.SpeedWindow > 0 {
		return arch.SpeedWindow
	}
	return set.SpeedWindow
}

func sortedRecipeIDs(cat *catalog.Catalog) []string {
	ids := make([]string, 0, len(cat.Recipes))
	for id := range cat.Recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
