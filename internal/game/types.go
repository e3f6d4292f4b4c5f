package game

import (
	"time"

	"bodega/internal/catalog"
)

// Task is one order on the daily board. Tasks are created during rotation and
// removed when served, canceled, or swept as expired; they are never mutated
// otherwise, except for the accept timestamp.
type Task struct {
	ID          string        `json:"id"`
	RecipeID    string        `json:"recipe_id"`
	ArchetypeID string        `json:"archetype_id"`
	Tier        catalog.Tier  `json:"tier"`
	TimeBoxed   bool          `json:"time_boxed"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	AcceptedAt  *time.Time    `json:"accepted_at,omitempty"`
	SpeedWindow time.Duration `json:"speed_window"`
}

// OrderBoard is the per-actor daily task list. EligibleCount records the size
// of the actor's eligible recipe set at generation time; a change in that
// size re-triggers generation within the same day.
type OrderBoard struct {
	Day           string `json:"day"`
	EligibleCount int    `json:"eligible_count"`
	Tasks         []Task `json:"tasks"`
}

// TempGrant is a temporary recipe access granted by the safety net. At most
// one fallback grant is active at a time; grants clear once the actor's
// balance is positive again.
type TempGrant struct {
	RecipeID  string    `json:"recipe_id"`
	GrantedAt time.Time `json:"granted_at"`
}

// ActorState is the full per-actor document. The stored representation is a
// flexible JSON document; missing fields are backfilled with defaults on
// load.
type ActorState struct {
	CommunityID string `json:"community_id"`
	ActorID     string `json:"actor_id"`

	Coins      int64 `json:"coins"`
	Reputation int64 `json:"reputation"`
	XP         int64 `json:"xp"`
	Level      int   `json:"level"`
	Progress   int64 `json:"progress"`

	Inventory    map[string]int       `json:"inventory"`
	KnownRecipes map[string]bool      `json:"known_recipes"`
	TempGrants   []TempGrant          `json:"temp_grants,omitempty"`
	Upgrades     []string             `json:"upgrades,omitempty"`
	Staff        []string             `json:"staff,omitempty"`
	Cooldowns    map[string]time.Time `json:"cooldowns,omitempty"`

	DailyQuest  string `json:"daily_quest,omitempty"`
	WeeklyQuest string `json:"weekly_quest,omitempty"`

	FailStreak int `json:"fail_streak"`
	ReliefUses int `json:"relief_uses"`

	LastServedRecipe string    `json:"last_served_recipe,omitempty"`
	LastServeDay     string    `json:"last_serve_day,omitempty"`
	AuraRep          int64     `json:"aura_rep,omitempty"`
	AuraExpiresAt    time.Time `json:"aura_expires_at,omitzero"`
	RepFloorPending  bool      `json:"rep_floor_pending,omitempty"`

	EmergencyDay    string    `json:"emergency_day,omitempty"`
	LastEmergencyAt time.Time `json:"last_emergency_at,omitzero"`
	PityDay         string    `json:"pity_day,omitempty"`
	PityItem        string    `json:"pity_item,omitempty"`
	PityPrice       int64     `json:"pity_price,omitempty"`

	Stock    map[string]int `json:"stock,omitempty"`
	StockDay string         `json:"stock_day,omitempty"`
	Board    OrderBoard     `json:"board"`

	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewActor returns the starting state of a fresh shop: starter coins, the
// baseline recipe, an empty pantry.
func NewActor(communityID, actorID string, cat *catalog.Catalog, now time.Time) *ActorState {
	return &ActorState{
		CommunityID:  communityID,
		ActorID:      actorID,
		Coins:        StarterCoins,
		Level:        1,
		Inventory:    map[string]int{},
		KnownRecipes: map[string]bool{cat.BaselineRecipe: true},
		LastActiveAt: now,
		CreatedAt:    now,
	}
}

// backfill populates defaults for fields absent in older stored documents.
func (a *ActorState) backfill() {
	if a.Inventory == nil {
		a.Inventory = map[string]int{}
	}
	if a.KnownRecipes == nil {
		a.KnownRecipes = map[string]bool{}
	}
	if a.Level == 0 {
		a.Level = 1
	}
}

// Eligible returns the actor's currently fulfillable recipe set: permanently
// known plus temporarily granted.
func (a *ActorState) Eligible() map[string]bool {
	out := make(map[string]bool, len(a.KnownRecipes)+len(a.TempGrants))
	for id, ok := range a.KnownRecipes {
		if ok {
			out[id] = true
		}
	}
	for _, g := range a.TempGrants {
		out[g.RecipeID] = true
	}
	return out
}

func (a *ActorState) hasTempGrant(recipeID string) bool {
	for _, g := range a.TempGrants {
		if g.RecipeID == recipeID {
			return true
		}
	}
	return false
}

// ApplyExperience adds experience and resolves level-ups, looping so one
// large grant can clear several thresholds.
func (a *ActorState) ApplyExperience(xp int64) int {
	a.XP += xp
	a.Progress += xp
	levels := 0
	for a.Progress >= LevelThreshold(a.Level) {
		a.Progress -= LevelThreshold(a.Level)
		a.Level++
		levels++
	}
	return levels
}

// RecordFailure advances the fail streak; at the trigger threshold it grants
// the relief buff and resets the streak. Returns true when relief was
// granted.
func (a *ActorState) RecordFailure(set Settings) bool {
	a.FailStreak++
	if a.FailStreak >= set.FailStreakTrigger {
		a.ReliefUses = set.ReliefUses
		a.FailStreak = 0
		return true
	}
	return false
}

// RecordSuccess resets the fail streak and consumes one relief use if the
// buff is active.
func (a *ActorState) RecordSuccess() {
	a.FailStreak = 0
	if a.ReliefUses > 0 {
		a.ReliefUses--
	}
}

// CommunityState is the shared per-community document: daily market prices,
// staff pool, season, event, and settings overrides.
type CommunityState struct {
	CommunityID string `json:"community_id"`

	Season  string `json:"season,omitempty"`
	EventID string `json:"event_id,omitempty"`

	MarketDay string           `json:"market_day,omitempty"`
	Prices    map[string]int64 `json:"prices,omitempty"`

	StaffDay  string   `json:"staff_day,omitempty"`
	StaffPool []string `json:"staff_pool,omitempty"`

	Overrides map[string]string `json:"overrides,omitempty"`
}

func NewCommunity(communityID string) *CommunityState {
	return &CommunityState{CommunityID: communityID}
}
