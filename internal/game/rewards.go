package game

import (
	"math"
	"time"

	"bodega/internal/catalog"
	"bodega/internal/clock"
	"bodega/internal/rng"
)

// ServeContext carries everything the reward pipeline reads. The pipeline is
// a pure function of this input: same context, same reward.
type ServeContext struct {
	Task    Task
	Recipe  catalog.Recipe
	Arch    catalog.Archetype
	Actor   *ActorState
	Event   *catalog.Event
	Effects EffectBundle
	Now     time.Time
	Stream  *rng.Stream
	Set     Settings
}

// Reward is the integer outcome of one served order. Label is the single
// archetype modifier name surfaced for presentation; numeric effects may
// stack regardless.
type Reward struct {
	Coins       int64   `json:"coins"`
	XP          int64   `json:"xp"`
	Rep         int64   `json:"rep"`
	SpeedMult   float64 `json:"speed_mult"`
	AuraGranted bool    `json:"aura_granted"`
	Label       string  `json:"label,omitempty"`
}

// ComputeReward runs the modifier pipeline. Stage order matters and each
// stage floors its own output, so intermediate values stay integral:
//
//	base roll -> speed -> archetype -> event -> upgrades/staff ->
//	resilience floor -> active aura
func ComputeReward(in ServeContext) Reward {
	base := BaseReward(in.Task.Tier)

	// Stage 1: base roll. The relief buff floors the roll at the tier base.
	roll := in.Stream.Uniform(0.90, 1.10)
	if in.Actor.ReliefUses > 0 && roll < 1.0 {
		roll = 1.0
	}
	coins := int64(math.Floor(float64(base.Coins) * roll))
	xp := base.XP
	rep := base.Rep

	// Stage 2: speed multiplier for time-boxed tasks.
	speedMult := speedMultiplier(in)
	coins = int64(math.Floor(float64(coins) * speedMult))

	// Stage 3: archetype modifiers.
	eff := in.Arch.Effects
	label := ""
	if eff.CoinPercent > 0 {
		coins = int64(math.Floor(float64(coins) * (1 + eff.CoinPercent)))
		label = eff.Label
	}
	if eff.FirstServeRep > 0 && in.Actor.LastServeDay != clock.DayKey(in.Now) {
		rep += eff.FirstServeRep
		label = eff.Label
	}
	if bonus, ok := eff.TierRep[in.Task.Tier]; ok {
		rep += bonus
		label = eff.Label
	}
	if eff.RepeatXP > 0 && in.Actor.LastServedRecipe == in.Recipe.ID {
		xp += eff.RepeatXP
		label = eff.Label
	}
	auraGranted := false
	if eff.AuraRep > 0 && eff.AuraDuration > 0 {
		auraGranted = true
		label = eff.Label
	}
	if eff.DoubleSpeedBonus && in.Task.TimeBoxed {
		label = eff.Label
	}

	// Stage 4: event modifiers.
	if ev := in.Event; ev != nil {
		coins = applyEventMod(coins, ev.CoinMult, ev.CoinAdd)
		xp = applyEventMod(xp, ev.XPMult, ev.XPAdd)
		rep = applyEventMod(rep, ev.RepMult, ev.RepAdd)
	}

	// Stage 5: upgrade and staff effects. Order quality raises coins and
	// reputation; the reputation bonus goes through its dedicated formula.
	fx := in.Effects
	if fx.QualityPercent > 0 {
		coins = int64(math.Floor(float64(coins) * (1 + fx.QualityPercent)))
	}
	if fx.XPPercent > 0 {
		xp = int64(math.Floor(float64(xp) * (1 + fx.XPPercent)))
	}
	rep = ReputationBonus(rep, fx.RepFlat, fx.TierRepFlat[in.Task.Tier], fx.QualityPercent+fx.RepPercent)

	// Stage 6: one-shot resilience reputation floor.
	if in.Actor.RepFloorPending {
		rep++
	}

	// Stage 7: an aura from a previous serve, if still running.
	if in.Actor.AuraRep > 0 && in.Now.Before(in.Actor.AuraExpiresAt) {
		rep += in.Actor.AuraRep
	}

	return Reward{
		Coins:       coins,
		XP:          xp,
		Rep:         rep,
		SpeedMult:   speedMult,
		AuraGranted: auraGranted,
		Label:       label,
	}
}

// speedMultiplier decays linearly from 1+max to 1.0 across the speed window,
// measured from accept (or creation, if never accepted) to serve. Serving
// after the window closes earns no bonus. Some archetypes double the bonus
// portion.
func speedMultiplier(in ServeContext) float64 {
	if !in.Task.TimeBoxed || in.Task.SpeedWindow <= 0 {
		return 1.0
	}
	start := in.Task.CreatedAt
	if in.Task.AcceptedAt != nil {
		start = *in.Task.AcceptedAt
	}
	elapsed := in.Now.Sub(start)
	if elapsed >= in.Task.SpeedWindow {
		return 1.0
	}
	frac := 1 - float64(elapsed)/float64(in.Task.SpeedWindow)
	bonus := in.Set.SpeedBonusMax * frac
	if in.Arch.Effects.DoubleSpeedBonus {
		bonus *= 2
	}
	return 1.0 + bonus
}

// ReputationBonus is the dedicated upgrade/staff reputation formula:
// floor((rep + flat + tierBonus) * (1 + percent)).
func ReputationBonus(rep, flat, tierBonus int64, percent float64) int64 {
	return int64(math.Floor(float64(rep+flat+tierBonus) * (1 + percent)))
}

func applyEventMod(v int64, mult float64, add int64) int64 {
	if mult > 0 {
		v = int64(math.Floor(float64(v) * mult))
	}
	return v + add
}
