package game

import (
	"reflect"
	"testing"
	"time"

	"bodega/internal/catalog"
)

func boardParams(eligible ...string) BoardParams {
	set := map[string]bool{}
	for _, id := range eligible {
		set[id] = true
	}
	return BoardParams{
		CommunityID: "corner",
		ActorID:     "maria",
		Day:         "2026-03-02",
		Season:      "spring",
		Eligible:    set,
		Effects:     CombineEffects(catalog.Builtin(), nil, nil),
		Now:         time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestGenerateBoardDeterministic(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	p := boardParams("cafecito", "empanada", "pastelito")
	a := GenerateBoard(cat, set, p)
	b := GenerateBoard(cat, set, p)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same inputs produced different boards")
	}
	if a.EligibleCount != 3 {
		t.Fatalf("EligibleCount = %d, want 3", a.EligibleCount)
	}
}

func TestGenerateBoardBaselineGuarantee(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()

	// A fresh shop on its first day: only the baseline recipe is known.
	p := boardParams("cafecito")
	p.Day = "2026-01-01"
	board := GenerateBoard(cat, set, p)
	if len(board.Tasks) == 0 {
		t.Fatal("new shop got an empty board")
	}
	if got := countBaselineTasks(cat, board); got != 1 {
		t.Fatalf("baseline tasks on a fresh board = %d, want exactly 1", got)
	}
	task := board.Tasks[0]
	if task.RecipeID != cat.BaselineRecipe || task.ArchetypeID != cat.BaselineArchetype {
		t.Errorf("guarantee task = %s/%s, want %s/%s",
			task.RecipeID, task.ArchetypeID, cat.BaselineRecipe, cat.BaselineArchetype)
	}

	// The pairing stays unique after the shop learns more recipes.
	grown := GenerateBoard(cat, set, boardParams("cafecito", "cortadito", "empanada", "pastelito", "flan"))
	if got := countBaselineTasks(cat, grown); got != 1 {
		t.Fatalf("baseline tasks on a grown board = %d, want exactly 1", got)
	}
}

func countBaselineTasks(cat *catalog.Catalog, board OrderBoard) int {
	n := 0
	for _, task := range board.Tasks {
		if task.RecipeID == cat.BaselineRecipe {
			n++
		}
	}
	return n
}

func TestGenerateBoardGuaranteeTaskShape(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	set.OrderCount = 0 // force the guarantee path
	board := GenerateBoard(cat, set, boardParams("cafecito"))
	if len(board.Tasks) != 1 {
		t.Fatalf("want exactly the guaranteed task, got %d", len(board.Tasks))
	}
	task := board.Tasks[0]
	if task.ID != "2026-03-02-00" {
		t.Errorf("guarantee task id = %q", task.ID)
	}
	if task.RecipeID != cat.BaselineRecipe || task.ArchetypeID != cat.BaselineArchetype {
		t.Errorf("guarantee task = %s/%s", task.RecipeID, task.ArchetypeID)
	}
	if task.TimeBoxed || task.ExpiresAt != nil {
		t.Errorf("guarantee task must not be time-boxed")
	}
}

func TestGenerateBoardEligibleSetReseeds(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	small := GenerateBoard(cat, set, boardParams("cafecito", "empanada"))
	grown := GenerateBoard(cat, set, boardParams("cafecito", "empanada", "flan"))
	if small.EligibleCount == grown.EligibleCount {
		t.Fatal("eligible counts should differ")
	}
	// The recorded count is what the rotation compares against to decide a
	// same-day regeneration.
	if small.EligibleCount != 2 || grown.EligibleCount != 3 {
		t.Fatalf("eligible counts = %d, %d", small.EligibleCount, grown.EligibleCount)
	}
	again := GenerateBoard(cat, set, boardParams("cafecito", "empanada", "flan"))
	if !reflect.DeepEqual(grown, again) {
		t.Fatal("regeneration with the same eligible set is not stable")
	}
}

func TestRecipePoolGates(t *testing.T) {
	cat := catalog.Builtin()
	p := boardParams("cafecito", "tamale-navideno", "elote-asado", "feria-churro", "pastelito")

	p.Season = "winter"
	pools := recipePools(cat, p)
	if got := pools[catalog.TierSeasonal]; len(got) != 1 || got[0] != "tamale-navideno" {
		t.Errorf("winter seasonal pool = %v", got)
	}

	p.Season = "summer"
	pools = recipePools(cat, p)
	if got := pools[catalog.TierSeasonal]; len(got) != 1 || got[0] != "elote-asado" {
		t.Errorf("summer seasonal pool = %v", got)
	}

	// Event recipes only appear while their event runs.
	if got := pools[catalog.TierRare]; len(got) != 1 || got[0] != "pastelito" {
		t.Errorf("rare pool without event = %v", got)
	}
	p.EventID = "street-feria"
	pools = recipePools(cat, p)
	if got := pools[catalog.TierRare]; !reflect.DeepEqual(got, []string{"feria-churro", "pastelito"}) {
		t.Errorf("rare pool during event = %v", got)
	}

	// Ineligible recipes never enter a pool, and the baseline recipe is
	// reserved for the guarantee slot.
	p.Eligible = map[string]bool{"cafecito": true}
	pools = recipePools(cat, p)
	for tier, pool := range pools {
		if len(pool) != 0 {
			t.Errorf("%s pool should be empty, got %v", tier, pool)
		}
	}
}

func TestArchetypeWeights(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()

	base := archetypeWeights(cat, set, EffectBundle{})
	if base["regular"] != 55 || base["critic"] != 6 {
		t.Fatalf("base weights = %v", base)
	}

	// The promoter's social buff multiplies rare and epic weights.
	fx := CombineEffects(cat, nil, []string{"promoter"})
	buffed := archetypeWeights(cat, set, fx)
	if buffed["critic"] != 6*1.5 {
		t.Errorf("critic weight = %v, want %v", buffed["critic"], 6*1.5)
	}
	if buffed["celebrity"] != 2*2.0 {
		t.Errorf("celebrity weight = %v, want %v", buffed["celebrity"], 2*2.0)
	}
	if buffed["regular"] != 55 {
		t.Errorf("common weight changed: %v", buffed["regular"])
	}

	// The variety upgrade lifts everything above common.
	fx = CombineEffects(cat, []string{"neon-sign"}, nil)
	lifted := archetypeWeights(cat, set, fx)
	if lifted["foodie"] != 12*1.25 {
		t.Errorf("foodie weight = %v, want %v", lifted["foodie"], 12*1.25)
	}
	if lifted["commuter"] != 25 {
		t.Errorf("common commuter weight changed: %v", lifted["commuter"])
	}
}

func TestAlwaysUrgentTasksAreTimeBoxed(t *testing.T) {
	cat := catalog.Builtin()
	set := DefaultSettings()
	set.LimitedChance = 0 // only AlwaysUrgent can produce time-boxed tasks

	days := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}
	sawCommuter := false
	for _, day := range days {
		p := boardParams("cafecito", "empanada", "pastelito", "flan")
		p.Day = day
		board := GenerateBoard(cat, set, p)
		for _, task := range board.Tasks {
			urgent := task.ArchetypeID == "commuter"
			if urgent {
				sawCommuter = true
			}
			if task.TimeBoxed != urgent {
				t.Errorf("day %s task %s: TimeBoxed=%v for archetype %s", day, task.ID, task.TimeBoxed, task.ArchetypeID)
			}
			if task.TimeBoxed && task.ExpiresAt == nil {
				t.Errorf("time-boxed task %s has no expiry", task.ID)
			}
			if urgent && task.SpeedWindow != 5*time.Minute {
				t.Errorf("commuter task %s speed window = %v", task.ID, task.SpeedWindow)
			}
		}
	}
	if !sawCommuter {
		t.Skip("no commuter drawn across sample days")
	}
}
