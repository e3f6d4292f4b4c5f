// Package catalog defines the immutable content tables the economy engine
// reads: ingredients, recipes, NPC archetypes, staff, upgrades, and special
// events. Catalogs are constructed once and passed into every engine call;
// there is no global lookup, so tests can run against synthetic catalogs.
package catalog

import "time"

// Tier is a rarity class governing reward magnitude and pool gating.
type Tier string

const (
	TierCommon   Tier = "common"
	TierUncommon Tier = "uncommon"
	TierRare     Tier = "rare"
	TierEpic     Tier = "epic"
	TierSeasonal Tier = "seasonal"
)

// Tiers lists all tiers in ascending reward order.
var Tiers = []Tier{TierCommon, TierUncommon, TierRare, TierEpic, TierSeasonal}

// Rank returns the position of a tier in ascending reward order, -1 if
// unknown.
func (t Tier) Rank() int {
	for i, v := range Tiers {
		if v == t {
			return i
		}
	}
	return -1
}

// Item is a stockable ingredient or good.
type Item struct {
	ID        string
	Name      string
	BasePrice int64 // 0 means the market never rolls a price for it
	Tradeable bool
	Spoilable bool
}

// Recipe is something an actor can craft and serve.
type Recipe struct {
	ID     string
	Name   string
	Tier   Tier
	Inputs map[string]int // item id -> quantity consumed
	Output string         // item id produced
	Yield  int
	// Season gates seasonal-tier recipes to one season label; empty means
	// available year-round.
	Season string
	// EventID gates the recipe to an active special event.
	EventID string
}

// Effects is the fixed per-archetype reward modifier table.
type Effects struct {
	// Label is the single modifier name surfaced to the presentation layer
	// when any of these effects applies.
	Label string
	// CoinPercent is an additional coin multiplier, e.g. 0.25 for +25%.
	CoinPercent float64
	// DoubleSpeedBonus doubles the time-boxed speed bonus portion.
	DoubleSpeedBonus bool
	// FirstServeRep is flat reputation on the first serve of the day.
	FirstServeRep int64
	// TierRep is flat reputation when serving specific tiers.
	TierRep map[Tier]int64
	// RepeatXP is extra experience for repeating the last-served recipe.
	RepeatXP int64
	// AuraRep grants flat reputation on every serve while the aura holds.
	AuraRep int64
	// AuraDuration is how long the aura lasts after being triggered.
	AuraDuration time.Duration
}

// Archetype is a category of requesting NPC.
type Archetype struct {
	ID     string
	Name   string
	Rarity Tier    // which recipe pool this archetype draws from
	Weight float64 // base pick weight during board generation
	// AlwaysUrgent marks the one archetype whose tasks are always
	// time-boxed regardless of the limited-time roll.
	AlwaysUrgent bool
	// SpeedWindow overrides the default speed window when non-zero.
	SpeedWindow time.Duration
	Effects     Effects
}

// Upgrade is a purchasable shop improvement contributing to the effect
// bundle.
type Upgrade struct {
	ID             string
	Name           string
	Cost           int64
	QualityPercent float64 // additive "order quality" on coins and reputation
	XPPercent      float64
	RepFlat        int64
	RepPercent     float64
	TierRepFlat    map[Tier]int64
	// VarietyBonus boosts pick weights of above-common archetypes.
	VarietyBonus float64
	// Protected lists item ids spoiling at the reduced storage chance.
	Protected []string
}

// Staff is a hired helper contributing to the effect bundle. RarityWeightMult
// is the social buff: per-rarity multipliers applied to archetype weights.
type Staff struct {
	ID               string
	Name             string
	Cost             int64
	QualityPercent   float64
	XPPercent        float64
	RepFlat          int64
	RepPercent       float64
	RarityWeightMult map[Tier]float64
}

// Event is a special limited-time event with reward modifiers and its own
// recipe pool additions.
type Event struct {
	ID       string
	Name     string
	CoinMult float64
	XPMult   float64
	RepMult  float64
	CoinAdd  int64
	XPAdd    int64
	RepAdd   int64
}

// Catalog bundles all content tables plus the two designated anchors: the
// baseline recipe every new actor knows, and the always-present archetype
// used for the guaranteed-fulfillable task.
type Catalog struct {
	Items      map[string]Item
	Recipes    map[string]Recipe
	Archetypes map[string]Archetype
	Upgrades   map[string]Upgrade
	Staff      map[string]Staff
	Events     map[string]Event

	BaselineRecipe    string
	BaselineArchetype string
	FallbackRecipe    string // temporary grant target of the resilience ladder
	EmergencyBundle   map[string]int
}

func (c *Catalog) Item(id string) (Item, bool) {
	v, ok := c.Items[id]
	return v, ok
}

func (c *Catalog) Recipe(id string) (Recipe, bool) {
	v, ok := c.Recipes[id]
	return v, ok
}

func (c *Catalog) Archetype(id string) (Archetype, bool) {
	v, ok := c.Archetypes[id]
	return v, ok
}
