package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"bodega/internal/clock"
	"bodega/internal/store"
)

// Views load state without locks or writes. When a stored document predates
// the current day the daily structures are recomputed in memory from the
// deterministic streams, so readers see exactly what the next command will
// persist.

type ActorView struct {
	ActorID      string         `json:"actor_id"`
	Coins        int64          `json:"coins"`
	Reputation   int64          `json:"reputation"`
	XP           int64          `json:"xp"`
	Level        int            `json:"level"`
	NextLevelXP  int64          `json:"next_level_xp"`
	Inventory    map[string]int `json:"inventory"`
	KnownRecipes []string       `json:"known_recipes"`
	Upgrades     []string       `json:"upgrades"`
	Staff        []string       `json:"staff"`
	FailStreak   int            `json:"fail_streak"`
	ReliefUses   int            `json:"relief_uses"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

type BoardView struct {
	Day     string `json:"day"`
	Season  string `json:"season"`
	EventID string `json:"event_id,omitempty"`
	Tasks   []Task `json:"tasks"`
}

type MarketRow struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	SellPrice  int64  `json:"sell_price"`
	Stock      int    `json:"stock"`
	Discounted bool   `json:"discounted,omitempty"`
}

type LeaderboardRow struct {
	Rank       int    `json:"rank"`
	ActorID    string `json:"actor_id"`
	Reputation int64  `json:"reputation"`
	Level      int    `json:"level"`
	Coins      int64  `json:"coins"`
}

// EnsureActor creates the actor document if it does not exist yet. Racing
// creations converge on the same starter state.
func (s *Service) EnsureActor(ctx context.Context, communityID, actorID string) error {
	now := s.now().UTC()
	_, err := s.store.Get(ctx, store.ActorKey(communityID, actorID))
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	actor := NewActor(communityID, actorID, s.cat, now)
	return s.putActor(ctx, actor, 0)
}

func (s *Service) ActorView(ctx context.Context, communityID, actorID string) (ActorView, error) {
	actor, found, err := s.viewActor(ctx, communityID, actorID)
	if err != nil {
		return ActorView{}, err
	}
	if !found {
		return ActorView{}, ErrActorNotFound
	}
	known := make([]string, 0, len(actor.KnownRecipes))
	for id, ok := range actor.KnownRecipes {
		if ok {
			known = append(known, id)
		}
	}
	sort.Strings(known)
	return ActorView{
		ActorID:      actor.ActorID,
		Coins:        actor.Coins,
		Reputation:   actor.Reputation,
		XP:           actor.XP,
		Level:        actor.Level,
		NextLevelXP:  LevelThreshold(actor.Level),
		Inventory:    actor.Inventory,
		KnownRecipes: known,
		Upgrades:     actor.Upgrades,
		Staff:        actor.Staff,
		FailStreak:   actor.FailStreak,
		ReliefUses:   actor.ReliefUses,
		LastActiveAt: actor.LastActiveAt,
	}, nil
}

func (s *Service) BoardView(ctx context.Context, communityID, actorID string) (BoardView, error) {
	now := s.now().UTC()
	comm, _, err := s.getCommunity(ctx, communityID)
	if err != nil {
		return BoardView{}, err
	}
	set := s.set.ApplyOverrides(comm.Overrides)
	comm.Season = clock.Season(set.Season, now)

	actor, found, err := s.viewActor(ctx, communityID, actorID)
	if err != nil {
		return BoardView{}, err
	}
	if !found {
		return BoardView{}, ErrActorNotFound
	}
	fx := CombineEffects(s.cat, actor.Upgrades, actor.Staff)
	s.rotateActor(actor, comm, set, fx, now)
	return BoardView{
		Day:     actor.Board.Day,
		Season:  comm.Season,
		EventID: comm.EventID,
		Tasks:   actor.Board.Tasks,
	}, nil
}

// MarketView lists today's tradeable items at today's prices against the
// actor's private stock. Stale price or stock days are recomputed in memory.
func (s *Service) MarketView(ctx context.Context, communityID, actorID string) ([]MarketRow, error) {
	now := s.now().UTC()
	day := clock.DayKey(now)
	comm, _, err := s.getCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	set := s.set.ApplyOverrides(comm.Overrides)
	prices := comm.Prices
	if clock.Rollover(comm.MarketDay, now) {
		prices = RollPrices(s.cat, communityID, day)
	}

	actor, found, err := s.viewActor(ctx, communityID, actorID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrActorNotFound
	}
	stock := actor.Stock
	if clock.Rollover(actor.StockDay, now) {
		stock = RollStock(s.cat, set, communityID, actorID, day)
	}

	ids := make([]string, 0, len(prices))
	for id := range prices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]MarketRow, 0, len(ids))
	for _, id := range ids {
		item, ok := s.cat.Items[id]
		if !ok {
			continue
		}
		price := prices[id]
		discounted := false
		if actor.PityDay == day && actor.PityItem == id && actor.PityPrice > 0 && actor.PityPrice < price {
			price = actor.PityPrice
			discounted = true
		}
		rows = append(rows, MarketRow{
			ItemID:     id,
			Name:       item.Name,
			Price:      price,
			SellPrice:  SellPrice(prices[id], set.SellRate),
			Stock:      stock[id],
			Discounted: discounted,
		})
	}
	return rows, nil
}

// Leaderboard ranks a community's actors by reputation, then level, then
// coins, with the actor id as the final tie break.
func (s *Service) Leaderboard(ctx context.Context, communityID string, limit int) ([]LeaderboardRow, error) {
	docs, err := s.store.List(ctx, store.ActorPrefix(communityID))
	if err != nil {
		return nil, err
	}
	rows := make([]LeaderboardRow, 0, len(docs))
	for _, doc := range docs {
		actor := &ActorState{}
		if err := json.Unmarshal(doc.Data, actor); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Key, err)
		}
		rows = append(rows, LeaderboardRow{
			ActorID:    actor.ActorID,
			Reputation: actor.Reputation,
			Level:      actor.Level,
			Coins:      actor.Coins,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Reputation != rows[j].Reputation {
			return rows[i].Reputation > rows[j].Reputation
		}
		if rows[i].Level != rows[j].Level {
			return rows[i].Level > rows[j].Level
		}
		if rows[i].Coins != rows[j].Coins {
			return rows[i].Coins > rows[j].Coins
		}
		return rows[i].ActorID < rows[j].ActorID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *Service) viewActor(ctx context.Context, communityID, actorID string) (*ActorState, bool, error) {
	doc, err := s.store.Get(ctx, store.ActorKey(communityID, actorID))
	if errors.Is(err, store.ErrNotFound) {
		return NewActor(communityID, actorID, s.cat, s.now().UTC()), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	actor := &ActorState{}
	if err := json.Unmarshal(doc.Data, actor); err != nil {
		return nil, false, fmt.Errorf("decode actor %s: %w", actorID, err)
	}
	actor.backfill()
	return actor, true, nil
}
