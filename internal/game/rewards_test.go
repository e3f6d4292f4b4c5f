package game

import (
	"testing"
	"time"

	"bodega/internal/catalog"
	"bodega/internal/rng"
)

var serveAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// neutralServe builds a serve context with no archetype, event, upgrade, or
// staff effects, so a test can layer on exactly one modifier.
func neutralServe(task Task) ServeContext {
	return ServeContext{
		Task:    task,
		Recipe:  catalog.Builtin().Recipes[task.RecipeID],
		Arch:    catalog.Archetype{},
		Actor:   NewActor("corner", "maria", catalog.Builtin(), serveAt.Add(-time.Hour)),
		Effects: CombineEffects(catalog.Builtin(), nil, nil),
		Now:     serveAt,
		Stream:  rng.New("reward", "corner", "2026-03-02", "maria", "t1"),
		Set:     DefaultSettings(),
	}
}

func commonTask() Task {
	return Task{
		ID:        "2026-03-02-01",
		RecipeID:  "cafecito",
		Tier:      catalog.TierCommon,
		CreatedAt: serveAt.Add(-time.Hour),
	}
}

func TestComputeRewardBaseRoll(t *testing.T) {
	in := neutralServe(commonTask())
	r := ComputeReward(in)
	// floor(20 * uniform(0.90, 1.10)) with no other modifiers.
	if r.Coins < 18 || r.Coins > 22 {
		t.Errorf("coins = %d, want within [18, 22]", r.Coins)
	}
	if r.XP != 10 || r.Rep != 1 {
		t.Errorf("xp/rep = %d/%d, want 10/1", r.XP, r.Rep)
	}
	if r.SpeedMult != 1.0 {
		t.Errorf("speed mult = %v for a task with no time box", r.SpeedMult)
	}

	again := ComputeReward(neutralServe(commonTask()))
	if again != r {
		t.Errorf("same context produced different rewards: %+v vs %+v", r, again)
	}
}

func TestComputeRewardReliefFloorsRoll(t *testing.T) {
	in := neutralServe(commonTask())
	in.Actor.ReliefUses = 1
	r := ComputeReward(in)
	if r.Coins < 20 {
		t.Errorf("relief coins = %d, want >= tier base 20", r.Coins)
	}
}

func TestTierRewardsAscend(t *testing.T) {
	prev := TierReward{}
	for _, tier := range catalog.Tiers {
		cur := BaseReward(tier)
		if cur.Coins <= prev.Coins || cur.XP <= prev.XP || cur.Rep <= prev.Rep {
			t.Errorf("%s reward %+v does not exceed previous %+v", tier, cur, prev)
		}
		prev = cur
	}
}

func TestSpeedMultiplier(t *testing.T) {
	window := 10 * time.Minute
	mk := func(elapsed time.Duration, accepted bool, double bool) ServeContext {
		task := commonTask()
		task.TimeBoxed = true
		task.SpeedWindow = window
		task.CreatedAt = serveAt.Add(-elapsed)
		if accepted {
			at := serveAt.Add(-elapsed)
			task.AcceptedAt = &at
			task.CreatedAt = serveAt.Add(-24 * time.Hour) // stale creation must not matter
		}
		in := neutralServe(task)
		if double {
			in.Arch = catalog.Archetype{Effects: catalog.Effects{DoubleSpeedBonus: true}}
		}
		return in
	}

	tests := []struct {
		name string
		in   ServeContext
		want float64
	}{
		{"instant", mk(0, false, false), 1.20},
		{"halfway", mk(5*time.Minute, false, false), 1.10},
		{"window closed", mk(window, false, false), 1.0},
		{"long after", mk(time.Hour, false, false), 1.0},
		{"measured from accept", mk(0, true, false), 1.20},
		{"double bonus", mk(0, false, true), 1.40},
		{"double halfway", mk(5*time.Minute, false, true), 1.20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := speedMultiplier(tc.in)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("speedMultiplier = %v, want %v", got, tc.want)
			}
		})
	}

	in := neutralServe(commonTask()) // no time box
	if got := speedMultiplier(in); got != 1.0 {
		t.Errorf("untimed task multiplier = %v", got)
	}
}

func TestComputeRewardEventStage(t *testing.T) {
	plain := ComputeReward(neutralServe(commonTask()))

	in := neutralServe(commonTask())
	in.Event = &catalog.Event{CoinMult: 1.5, XPMult: 1.25, RepMult: 1.0, RepAdd: 1}
	boosted := ComputeReward(in)

	// Stages before the event stage consume identical draws, so the event
	// outcome is derivable from the plain run.
	if want := int64(float64(plain.Coins) * 1.5); boosted.Coins != want {
		t.Errorf("event coins = %d, want %d", boosted.Coins, want)
	}
	if want := int64(float64(plain.XP) * 1.25); boosted.XP != want {
		t.Errorf("event xp = %d, want %d", boosted.XP, want)
	}
	if boosted.Rep != plain.Rep+1 {
		t.Errorf("event rep = %d, want %d", boosted.Rep, plain.Rep+1)
	}
}

func TestComputeRewardArchetypeStage(t *testing.T) {
	t.Run("first serve of the day", func(t *testing.T) {
		in := neutralServe(commonTask())
		in.Arch = catalog.Builtin().Archetypes["regular"]
		r := ComputeReward(in)
		if r.Rep != 2 {
			t.Errorf("rep = %d, want base 1 + first-serve 1", r.Rep)
		}
		if r.Label != "Loyal Customer" {
			t.Errorf("label = %q", r.Label)
		}

		in = neutralServe(commonTask())
		in.Arch = catalog.Builtin().Archetypes["regular"]
		in.Actor.LastServeDay = "2026-03-02"
		if r := ComputeReward(in); r.Rep != 1 {
			t.Errorf("second serve rep = %d, want 1", r.Rep)
		}
	})

	t.Run("repeat xp", func(t *testing.T) {
		in := neutralServe(commonTask())
		in.Arch = catalog.Builtin().Archetypes["foodie"]
		in.Actor.LastServedRecipe = "cafecito"
		plainXP := BaseReward(catalog.TierCommon).XP
		r := ComputeReward(in)
		if r.XP != plainXP+5 {
			t.Errorf("repeat xp = %d, want %d", r.XP, plainXP+5)
		}
	})

	t.Run("tier rep", func(t *testing.T) {
		task := commonTask()
		task.RecipeID = "pastelito"
		task.Tier = catalog.TierRare
		in := neutralServe(task)
		in.Arch = catalog.Builtin().Archetypes["critic"]
		r := ComputeReward(in)
		if want := BaseReward(catalog.TierRare).Rep + 2; r.Rep != want {
			t.Errorf("critic rare rep = %d, want %d", r.Rep, want)
		}
	})

	t.Run("aura granted", func(t *testing.T) {
		in := neutralServe(commonTask())
		in.Arch = catalog.Builtin().Archetypes["celebrity"]
		r := ComputeReward(in)
		if !r.AuraGranted {
			t.Error("celebrity serve should grant the aura")
		}
	})
}

func TestComputeRewardFloorAndAura(t *testing.T) {
	in := neutralServe(commonTask())
	in.Actor.RepFloorPending = true
	if r := ComputeReward(in); r.Rep != 2 {
		t.Errorf("floored rep = %d, want 2", r.Rep)
	}

	in = neutralServe(commonTask())
	in.Actor.AuraRep = 1
	in.Actor.AuraExpiresAt = serveAt.Add(10 * time.Minute)
	if r := ComputeReward(in); r.Rep != 2 {
		t.Errorf("aura rep = %d, want 2", r.Rep)
	}

	in = neutralServe(commonTask())
	in.Actor.AuraRep = 1
	in.Actor.AuraExpiresAt = serveAt.Add(-time.Minute)
	if r := ComputeReward(in); r.Rep != 1 {
		t.Errorf("expired aura rep = %d, want 1", r.Rep)
	}
}

func TestReputationBonus(t *testing.T) {
	tests := []struct {
		rep, flat, tier int64
		percent         float64
		want            int64
	}{
		{1, 0, 0, 0, 1},
		{1, 2, 1, 0.25, 5},
		{0, 0, 0, 0.5, 0},
		{3, 1, 0, 0.10, 4},
	}
	for _, tc := range tests {
		if got := ReputationBonus(tc.rep, tc.flat, tc.tier, tc.percent); got != tc.want {
			t.Errorf("ReputationBonus(%d, %d, %d, %v) = %d, want %d",
				tc.rep, tc.flat, tc.tier, tc.percent, got, tc.want)
		}
	}
}

func TestApplyExperience(t *testing.T) {
	actor := NewActor("corner", "maria", catalog.Builtin(), serveAt)
	levels := actor.ApplyExperience(400)
	// 400 clears level 1 (125) and level 2 (150), leaving 125 toward 175.
	if levels != 2 || actor.Level != 3 {
		t.Fatalf("levels=%d level=%d, want 2 and 3", levels, actor.Level)
	}
	if actor.Progress != 125 {
		t.Errorf("progress = %d, want 125", actor.Progress)
	}
	if actor.XP != 400 {
		t.Errorf("lifetime xp = %d, want 400", actor.XP)
	}

	if lv := actor.ApplyExperience(10); lv != 0 || actor.Level != 3 {
		t.Errorf("small grant changed level: %d gained, level %d", lv, actor.Level)
	}
}

func TestFailStreak(t *testing.T) {
	set := DefaultSettings()
	actor := NewActor("corner", "maria", catalog.Builtin(), serveAt)

	if actor.RecordFailure(set) || actor.RecordFailure(set) {
		t.Fatal("relief granted before the trigger threshold")
	}
	if !actor.RecordFailure(set) {
		t.Fatal("third failure should grant relief")
	}
	if actor.ReliefUses != set.ReliefUses || actor.FailStreak != 0 {
		t.Fatalf("after trigger: uses=%d streak=%d", actor.ReliefUses, actor.FailStreak)
	}

	actor.RecordSuccess()
	if actor.ReliefUses != set.ReliefUses-1 {
		t.Errorf("success should consume one relief use, have %d", actor.ReliefUses)
	}
	actor.FailStreak = 2
	actor.RecordSuccess()
	if actor.FailStreak != 0 {
		t.Errorf("success should reset the streak")
	}
}
