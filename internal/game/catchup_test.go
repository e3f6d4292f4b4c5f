package game

import (
	"reflect"
	"testing"
	"time"

	"bodega/internal/catalog"
)

var catchupAt = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func awayActor(away time.Duration) *ActorState {
	actor := NewActor("corner", "maria", catalog.Builtin(), catchupAt.Add(-away))
	return actor
}

func TestCatchUpTickCap(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	fx := EffectBundle{}

	tests := []struct {
		name string
		away time.Duration
		want int
	}{
		{"no elapsed time", 0, 0},
		{"under one tick", 30 * time.Minute, 0},
		{"three hours", 3 * time.Hour, 3},
		{"capped at max", 50 * time.Hour, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := RunCatchUp(awayActor(tc.away), cat, set, fx, catchupAt)
			if res.Ticks != tc.want {
				t.Errorf("ticks = %d, want %d", res.Ticks, tc.want)
			}
		})
	}
}

func TestCatchUpInactivityTiers(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()

	tests := []struct {
		away time.Duration
		want string
	}{
		{time.Hour, ""},
		{8 * 24 * time.Hour, "7-day"},
		{31 * 24 * time.Hour, "30-day"},
	}
	for _, tc := range tests {
		res := RunCatchUp(awayActor(tc.away), cat, set, EffectBundle{}, catchupAt)
		if res.Inactivity != tc.want {
			t.Errorf("away %v: inactivity = %q, want %q", tc.away, res.Inactivity, tc.want)
		}
	}
}

func TestCatchUpElapsedCooldowns(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	actor := awayActor(2 * time.Hour)
	actor.Cooldowns = map[string]time.Time{
		"zesty-delivery": catchupAt.Add(-time.Minute),
		"apology-card":   catchupAt.Add(-time.Hour),
		"future-promo":   catchupAt.Add(time.Hour),
	}

	res := RunCatchUp(actor, cat, set, EffectBundle{}, catchupAt)
	if want := []string{"apology-card", "zesty-delivery"}; !reflect.DeepEqual(res.ElapsedCooldowns, want) {
		t.Fatalf("elapsed cooldowns = %v, want %v", res.ElapsedCooldowns, want)
	}
	if _, ok := actor.Cooldowns["future-promo"]; !ok {
		t.Error("pending cooldown was dropped")
	}
	if len(actor.Cooldowns) != 1 {
		t.Errorf("cooldowns left = %v", actor.Cooldowns)
	}
}

func TestCatchUpSpoilageCertain(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	set.SpoilChance = 1.0

	actor := awayActor(3 * time.Hour)
	actor.Inventory["milk"] = 5
	actor.Inventory["flour"] = 5 // not spoilable

	res := RunCatchUp(actor, cat, set, EffectBundle{}, catchupAt)
	if res.Ticks != 3 {
		t.Fatalf("ticks = %d", res.Ticks)
	}
	if actor.Inventory["milk"] != 2 || res.Spoiled["milk"] != 3 {
		t.Errorf("milk: held %d spoiled %d, want 2 and 3", actor.Inventory["milk"], res.Spoiled["milk"])
	}
	if actor.Inventory["flour"] != 5 {
		t.Errorf("flour spoiled: %d left", actor.Inventory["flour"])
	}
}

func TestCatchUpSpoilageStopsAtZero(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	set.SpoilChance = 1.0

	actor := awayActor(6 * time.Hour)
	actor.Inventory["eggs"] = 2

	res := RunCatchUp(actor, cat, set, EffectBundle{}, catchupAt)
	if actor.Inventory["eggs"] != 0 {
		t.Errorf("eggs = %d, want 0", actor.Inventory["eggs"])
	}
	if res.Spoiled["eggs"] != 2 {
		t.Errorf("spoiled = %d, want 2", res.Spoiled["eggs"])
	}
}

func TestCatchUpProtectedStorage(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	set.SpoilChance = 1.0
	set.ProtectedSpoilChance = 0.0

	fx := CombineEffects(cat, []string{"walk-in-fridge"}, nil)
	actor := awayActor(4 * time.Hour)
	actor.Inventory["milk"] = 3    // protected by the fridge
	actor.Inventory["peppers"] = 3 // not covered

	res := RunCatchUp(actor, cat, set, fx, catchupAt)
	if actor.Inventory["milk"] != 3 {
		t.Errorf("protected milk spoiled to %d", actor.Inventory["milk"])
	}
	if actor.Inventory["peppers"] != 0 {
		t.Errorf("unprotected peppers = %d, want 0", actor.Inventory["peppers"])
	}
	if res.Spoiled["milk"] != 0 {
		t.Errorf("protected spoilage recorded: %v", res.Spoiled)
	}
}

func TestCatchUpDeterministic(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()

	run := func() (*ActorState, CatchUpResult) {
		actor := awayActor(10 * time.Hour)
		actor.Inventory["milk"] = 10
		actor.Inventory["eggs"] = 10
		res := RunCatchUp(actor, cat, set, EffectBundle{}, catchupAt)
		return actor, res
	}
	actorA, resA := run()
	actorB, resB := run()
	if !reflect.DeepEqual(resA, resB) {
		t.Fatalf("catch-up results differ: %+v vs %+v", resA, resB)
	}
	if !reflect.DeepEqual(actorA.Inventory, actorB.Inventory) {
		t.Fatalf("inventories differ: %v vs %v", actorA.Inventory, actorB.Inventory)
	}
}
