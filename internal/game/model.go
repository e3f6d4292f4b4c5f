package game

import (
	"errors"

	"bodega/internal/catalog"
)

// Validation failures are detected before any mutation and returned without
// partial effects. Lock and revision conflicts come from the store package
// and are retryable by the caller.
var (
	ErrRequestIDMissing  = errors.New("request id is required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrInsufficientItems = errors.New("insufficient ingredients")
	ErrInsufficientStock = errors.New("insufficient market stock")
	ErrRecipeUnknown     = errors.New("recipe not known")
	ErrTaskExpired       = errors.New("task has expired")
	ErrNotTradeable      = errors.New("item is not tradeable")
	ErrAlreadyOwned      = errors.New("already owned")

	ErrTaskNotFound   = errors.New("task not found")
	ErrItemNotFound   = errors.New("item not found")
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrActorNotFound  = errors.New("actor not found")
)

// IsValidation reports whether err is a pre-mutation validation failure.
func IsValidation(err error) bool {
	for _, e := range []error{
		ErrRequestIDMissing, ErrInvalidQuantity, ErrInsufficientCoins,
		ErrInsufficientItems, ErrInsufficientStock, ErrRecipeUnknown,
		ErrTaskExpired, ErrNotTradeable, ErrAlreadyOwned,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a missing-reference failure.
func IsNotFound(err error) bool {
	for _, e := range []error{ErrTaskNotFound, ErrItemNotFound, ErrRecipeNotFound, ErrActorNotFound} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// TierReward is the base reward row of one tier. Base coins are rolled around
// Coins; experience and reputation are fixed.
type TierReward struct {
	Coins int64
	XP    int64
	Rep   int64
}

// tierRewards ascends strictly with catalog tier rank.
var tierRewards = map[catalog.Tier]TierReward{
	catalog.TierCommon:   {Coins: 20, XP: 10, Rep: 1},
	catalog.TierUncommon: {Coins: 35, XP: 18, Rep: 2},
	catalog.TierRare:     {Coins: 60, XP: 30, Rep: 3},
	catalog.TierEpic:     {Coins: 100, XP: 50, Rep: 5},
	catalog.TierSeasonal: {Coins: 120, XP: 60, Rep: 6},
}

// BaseReward returns the tier reward row, defaulting to common for unknown
// tiers.
func BaseReward(t catalog.Tier) TierReward {
	if r, ok := tierRewards[t]; ok {
		return r
	}
	return tierRewards[catalog.TierCommon]
}

// LevelThreshold is the experience needed to clear the given level.
func LevelThreshold(level int) int64 {
	return 100 + 25*int64(level)
}

const (
	// StarterCoins is the opening balance of a new shop.
	StarterCoins = int64(50)
	// MaxBoardSlots caps the generated order count regardless of settings.
	MaxBoardSlots = 100
)
