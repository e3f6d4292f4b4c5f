package game

import (
	"strconv"
	"time"

	"bodega/internal/catalog"
	"bodega/internal/clock"
)

// Settings is the resolved tuning the engine reads per command. Defaults live
// here; communities may override individual keys through their stored
// overrides map. Unknown or malformed overrides fall back to the default.
type Settings struct {
	OrderCount    int
	TierWeights   map[catalog.Tier]float64
	LimitedChance float64

	StockMin int
	StockMax int
	SellRate float64

	SpeedWindow   time.Duration
	SpeedBonusMax float64
	TaskTTL       time.Duration

	TickHours            int
	MaxCatchUpTicks      int
	SpoilChance          float64
	ProtectedSpoilChance float64
	ReliefSpoilChance    float64

	FailStreakTrigger int
	ReliefUses        int
	PityFraction      float64
	GrantCooldown     time.Duration

	StaffPerDay int

	LockTTL     time.Duration
	ResponseTTL time.Duration

	Season clock.SeasonPolicy
}

func DefaultSettings() Settings {
	return Settings{
		OrderCount:    8,
		TierWeights:   nil, // catalog archetype weights apply unmodified
		LimitedChance: 0.25,

		StockMin: 100,
		StockMax: 150,
		SellRate: 0.60,

		SpeedWindow:   10 * time.Minute,
		SpeedBonusMax: 0.20,
		TaskTTL:       2 * time.Hour,

		TickHours:            1,
		MaxCatchUpTicks:      10,
		SpoilChance:          0.15,
		ProtectedSpoilChance: 0.05,
		ReliefSpoilChance:    0.05,

		FailStreakTrigger: 3,
		ReliefUses:        2,
		PityFraction:      0.5,
		GrantCooldown:     24 * time.Hour,

		StaffPerDay: 2,

		LockTTL:     30 * time.Second,
		ResponseTTL: 15 * time.Minute,

		Season: clock.SeasonPolicy{Mode: "quarters"},
	}
}

// ApplyOverrides returns a copy of s with recognized community overrides
// applied. Parse failures keep the base value.
func (s Settings) ApplyOverrides(ov map[string]string) Settings {
	if len(ov) == 0 {
		return s
	}
	s.OrderCount = intOverride(ov, "order_count", s.OrderCount)
	s.LimitedChance = floatOverride(ov, "limited_chance", s.LimitedChance)
	s.StockMin = intOverride(ov, "stock_min", s.StockMin)
	s.StockMax = intOverride(ov, "stock_max", s.StockMax)
	s.SellRate = floatOverride(ov, "sell_rate", s.SellRate)
	s.SpoilChance = floatOverride(ov, "spoil_chance", s.SpoilChance)
	s.TickHours = intOverride(ov, "tick_hours", s.TickHours)
	s.MaxCatchUpTicks = intOverride(ov, "max_catchup_ticks", s.MaxCatchUpTicks)
	s.FailStreakTrigger = intOverride(ov, "fail_streak_trigger", s.FailStreakTrigger)
	s.PityFraction = floatOverride(ov, "pity_fraction", s.PityFraction)
	if v, ok := ov["season_mode"]; ok {
		s.Season.Mode = v
	}
	s.Season.WindowDays = intOverride(ov, "season_window_days", s.Season.WindowDays)
	return s
}

func intOverride(ov map[string]string, key string, fallback int) int {
	v, ok := ov[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func floatOverride(ov map[string]string, key string, fallback float64) float64 {
	v, ok := ov[key]
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
