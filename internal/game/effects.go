package game

import "bodega/internal/catalog"

// EffectBundle is the combined numeric contribution of an actor's upgrades
// and staff, threaded explicitly into board generation, reward computation,
// and spoilage. It is produced once per command by CombineEffects.
type EffectBundle struct {
	QualityPercent float64
	XPPercent      float64
	RepFlat        int64
	RepPercent     float64
	TierRepFlat    map[catalog.Tier]int64

	VarietyBonus     float64
	RarityWeightMult map[catalog.Tier]float64

	Protected map[string]bool
}

// CombineEffects merges upgrade and staff contributions into one bundle.
// Percentages and flats add; per-rarity weight multipliers multiply. Unknown
// ids are skipped. The function is pure.
func CombineEffects(cat *catalog.Catalog, upgradeIDs, staffIDs []string) EffectBundle {
	fx := EffectBundle{
		TierRepFlat:      map[catalog.Tier]int64{},
		RarityWeightMult: map[catalog.Tier]float64{},
		Protected:        map[string]bool{},
	}
	for _, id := range upgradeIDs {
		up, ok := cat.Upgrades[id]
		if !ok {
			continue
		}
		fx.QualityPercent += up.QualityPercent
		fx.XPPercent += up.XPPercent
		fx.RepFlat += up.RepFlat
		fx.RepPercent += up.RepPercent
		for tier, v := range up.TierRepFlat {
			fx.TierRepFlat[tier] += v
		}
		fx.VarietyBonus += up.VarietyBonus
		for _, item := range up.Protected {
			fx.Protected[item] = true
		}
	}
	for _, id := range staffIDs {
		st, ok := cat.Staff[id]
		if !ok {
			continue
		}
		fx.QualityPercent += st.QualityPercent
		fx.XPPercent += st.XPPercent
		fx.RepFlat += st.RepFlat
		fx.RepPercent += st.RepPercent
		for tier, mult := range st.RarityWeightMult {
			if cur, ok := fx.RarityWeightMult[tier]; ok {
				fx.RarityWeightMult[tier] = cur * mult
			} else {
				fx.RarityWeightMult[tier] = mult
			}
		}
	}
	return fx
}
