package catalog

import "time"

// Builtin returns the stock content set shipped with the engine, used when no
// external catalog provider is configured. Balance numbers live here, not in
// the engine.
func Builtin() *Catalog {
	return &Catalog{
		Items: map[string]Item{
			"flour":    {ID: "flour", Name: "Flour", BasePrice: 4, Tradeable: true, Spoilable: false},
			"beans":    {ID: "beans", Name: "Coffee Beans", BasePrice: 7, Tradeable: true, Spoilable: false},
			"milk":     {ID: "milk", Name: "Milk", BasePrice: 5, Tradeable: true, Spoilable: true},
			"eggs":     {ID: "eggs", Name: "Eggs", BasePrice: 6, Tradeable: true, Spoilable: true},
			"sugar":    {ID: "sugar", Name: "Sugar", BasePrice: 3, Tradeable: true, Spoilable: false},
			"cheese":   {ID: "cheese", Name: "Cheese", BasePrice: 9, Tradeable: true, Spoilable: true},
			"beef":     {ID: "beef", Name: "Ground Beef", BasePrice: 12, Tradeable: true, Spoilable: true},
			"peppers":  {ID: "peppers", Name: "Peppers", BasePrice: 5, Tradeable: true, Spoilable: true},
			"cafecito": {ID: "cafecito", Name: "Cafecito", BasePrice: 0, Tradeable: false},
			"empanada": {ID: "empanada", Name: "Empanada", BasePrice: 0, Tradeable: false},
			"pastel":   {ID: "pastel", Name: "Pastelito", BasePrice: 0, Tradeable: false},
			"tamale":   {ID: "tamale", Name: "Tamale", BasePrice: 0, Tradeable: false},
			"flan":     {ID: "flan", Name: "Flan", BasePrice: 0, Tradeable: false},
		},
		Recipes: map[string]Recipe{
			"cafecito": {
				ID: "cafecito", Name: "Cafecito", Tier: TierCommon,
				Inputs: map[string]int{"beans": 1, "sugar": 1},
				Output: "cafecito", Yield: 1,
			},
			"cortadito": {
				ID: "cortadito", Name: "Cortadito", Tier: TierCommon,
				Inputs: map[string]int{"beans": 1, "milk": 1, "sugar": 1},
				Output: "cafecito", Yield: 1,
			},
			"empanada": {
				ID: "empanada", Name: "Beef Empanada", Tier: TierUncommon,
				Inputs: map[string]int{"flour": 2, "beef": 1, "peppers": 1},
				Output: "empanada", Yield: 2,
			},
			"pastelito": {
				ID: "pastelito", Name: "Guava Pastelito", Tier: TierRare,
				Inputs: map[string]int{"flour": 2, "sugar": 2, "cheese": 1},
				Output: "pastel", Yield: 2,
			},
			"flan": {
				ID: "flan", Name: "Flan de Leche", Tier: TierEpic,
				Inputs: map[string]int{"milk": 2, "eggs": 3, "sugar": 2},
				Output: "flan", Yield: 1,
			},
			"tamale-navideno": {
				ID: "tamale-navideno", Name: "Tamale Navideño", Tier: TierSeasonal, Season: "winter",
				Inputs: map[string]int{"flour": 2, "beef": 2, "peppers": 1},
				Output: "tamale", Yield: 2,
			},
			"elote-asado": {
				ID: "elote-asado", Name: "Elote Asado", Tier: TierSeasonal, Season: "summer",
				Inputs: map[string]int{"peppers": 2, "cheese": 1},
				Output: "tamale", Yield: 2,
			},
			"feria-churro": {
				ID: "feria-churro", Name: "Feria Churro", Tier: TierRare, EventID: "street-feria",
				Inputs: map[string]int{"flour": 2, "sugar": 3},
				Output: "pastel", Yield: 3,
			},
		},
		Archetypes: map[string]Archetype{
			"regular": {
				ID: "regular", Name: "Neighborhood Regular", Rarity: TierCommon, Weight: 55,
				Effects: Effects{Label: "Loyal Customer", FirstServeRep: 1},
			},
			"commuter": {
				ID: "commuter", Name: "Morning Commuter", Rarity: TierCommon, Weight: 25,
				AlwaysUrgent: true, SpeedWindow: 5 * time.Minute,
				Effects: Effects{Label: "In a Hurry", DoubleSpeedBonus: true},
			},
			"foodie": {
				ID: "foodie", Name: "Food Blogger", Rarity: TierUncommon, Weight: 12,
				Effects: Effects{Label: "Rave Review", CoinPercent: 0.10, RepeatXP: 5},
			},
			"critic": {
				ID: "critic", Name: "Restaurant Critic", Rarity: TierRare, Weight: 6,
				Effects: Effects{
					Label: "Front Page", CoinPercent: 0.25,
					TierRep: map[Tier]int64{TierRare: 2, TierEpic: 3},
				},
			},
			"celebrity": {
				ID: "celebrity", Name: "Telenovela Star", Rarity: TierEpic, Weight: 2,
				Effects: Effects{
					Label: "Star Struck", CoinPercent: 0.25,
					AuraRep: 1, AuraDuration: 30 * time.Minute,
				},
			},
			"abuela": {
				ID: "abuela", Name: "Visiting Abuela", Rarity: TierSeasonal, Weight: 4,
				Effects: Effects{Label: "Family Secret", RepeatXP: 8, FirstServeRep: 2},
			},
		},
		Upgrades: map[string]Upgrade{
			"espresso-machine": {
				ID: "espresso-machine", Name: "La Marzocco", Cost: 400,
				QualityPercent: 0.10, XPPercent: 0.05,
			},
			"neon-sign": {
				ID: "neon-sign", Name: "Neon Window Sign", Cost: 250,
				VarietyBonus: 0.25, RepFlat: 1,
			},
			"walk-in-fridge": {
				ID: "walk-in-fridge", Name: "Walk-in Fridge", Cost: 600,
				Protected: []string{"milk", "eggs", "cheese", "beef"},
			},
		},
		Staff: map[string]Staff{
			"barista": {
				ID: "barista", Name: "Weekend Barista", Cost: 150,
				QualityPercent: 0.05, XPPercent: 0.05,
			},
			"promoter": {
				ID: "promoter", Name: "Street Promoter", Cost: 200,
				RepPercent: 0.10,
				RarityWeightMult: map[Tier]float64{
					TierRare: 1.5, TierEpic: 2.0,
				},
			},
		},
		Events: map[string]Event{
			"street-feria": {
				ID: "street-feria", Name: "Street Feria",
				CoinMult: 1.5, XPMult: 1.25, RepMult: 1.0,
				RepAdd: 1,
			},
		},

		BaselineRecipe:    "cafecito",
		BaselineArchetype: "regular",
		FallbackRecipe:    "cortadito",
		EmergencyBundle:   map[string]int{"beans": 3, "sugar": 3, "milk": 2},
	}
}
