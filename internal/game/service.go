package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"bodega/internal/catalog"
	"bodega/internal/clock"
	"bodega/internal/rng"
	"bodega/internal/store"
)

// Service runs the economy engine: it deduplicates and serializes commands,
// keeps daily structures current, reconciles offline time, and persists
// results with revision guards. One Service instance is shared by all
// communities.
type Service struct {
	store store.Store
	cat   *catalog.Catalog
	set   Settings
	log   *slog.Logger
	now   func() time.Time
}

func NewService(st store.Store, cat *catalog.Catalog, set Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: st,
		cat:   cat,
		set:   set,
		log:   logger,
		now:   time.Now,
	}
}

// Command identifies the scope and transport request id of one state-changing
// call. The request id drives idempotent replay: reissuing a command with the
// same id returns the cached response without re-executing side effects.
type Command struct {
	CommunityID string `json:"community_id"`
	ActorID     string `json:"actor_id"`
	RequestID   string `json:"request_id"`
}

type ServeOrderInput struct {
	Command
	TaskID string `json:"task_id"`
}

type ServeOrderResult struct {
	TaskID       string           `json:"task_id"`
	Reward       Reward           `json:"reward"`
	Coins        int64            `json:"coins"`
	Reputation   int64            `json:"reputation"`
	Level        int              `json:"level"`
	LevelsGained int              `json:"levels_gained"`
	CatchUp      CatchUpResult    `json:"catch_up"`
	Resilience   ResilienceReport `json:"resilience"`
}

type AcceptOrderInput struct {
	Command
	TaskID string `json:"task_id"`
}

type AcceptOrderResult struct {
	TaskID     string    `json:"task_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type TradeInput struct {
	Command
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type TradeResult struct {
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	Total      int64  `json:"total"`
	Coins      int64  `json:"coins"`
	Discounted bool   `json:"discounted,omitempty"`
}

type CraftInput struct {
	Command
	RecipeID string `json:"recipe_id"`
}

type CraftResult struct {
	RecipeID string `json:"recipe_id"`
	Output   string `json:"output"`
	Yield    int    `json:"yield"`
	Held     int    `json:"held"`
}

type BuyUpgradeInput struct {
	Command
	UpgradeID string `json:"upgrade_id"`
}

type BuyUpgradeResult struct {
	UpgradeID string `json:"upgrade_id"`
	Coins     int64  `json:"coins"`
}

type HireStaffInput struct {
	Command
	StaffID string `json:"staff_id"`
}

type HireStaffResult struct {
	StaffID string `json:"staff_id"`
	Coins   int64  `json:"coins"`
}

type TransferInput struct {
	Command
	ToActorID string `json:"to_actor_id"`
	Amount    int64  `json:"amount"`
}

type TransferResult struct {
	ToActorID  string           `json:"to_actor_id"`
	Amount     int64            `json:"amount"`
	Coins      int64            `json:"coins"`
	CatchUp    CatchUpResult    `json:"catch_up"`
	Resilience ResilienceReport `json:"resilience"`
}

type RefreshBoardInput struct {
	Command
}

type RefreshBoardResult struct {
	Board      OrderBoard       `json:"board"`
	CatchUp    CatchUpResult    `json:"catch_up"`
	Resilience ResilienceReport `json:"resilience"`
}

// cmdEnv is the per-command context threaded into command bodies.
type cmdEnv struct {
	set        Settings
	fx         EffectBundle
	comm       *CommunityState
	swept      []string
	catchUp    CatchUpResult
	resilience ResilienceReport
}

// run is the shared command pipeline: idempotency lookup, actor lock, daily
// rotation, offline catch-up, safety net, the command body, guarded persist,
// response cache. The clock is read exactly once so the whole command
// observes a single instant. Validation and not-found failures abort before
// any write, so commands fully apply or not at all.
func (s *Service) run(ctx context.Context, cmd Command, action string,
	fn func(now time.Time, actor *ActorState, env *cmdEnv) (any, error)) (json.RawMessage, error) {

	if strings.TrimSpace(cmd.RequestID) == "" {
		return nil, ErrRequestIDMissing
	}
	respKey := store.ResponseKey(cmd.CommunityID, cmd.ActorID, action, cmd.RequestID)
	if cached, ok, err := s.store.GetResponse(ctx, respKey); err != nil {
		return nil, err
	} else if ok {
		s.log.Debug("idempotent replay", "action", action, "actor", cmd.ActorID)
		return cached, nil
	}

	lockKey := store.ActorLockKey(cmd.CommunityID, cmd.ActorID)
	owner := uuid.NewString()
	if err := s.store.AcquireLock(ctx, lockKey, owner, s.set.LockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.store.ReleaseLock(ctx, lockKey, owner); err != nil {
			s.log.Warn("lock release failed", "key", lockKey, "err", err)
		}
	}()

	now := s.now().UTC()

	comm, err := s.ensureCommunity(ctx, cmd.CommunityID, now)
	if err != nil {
		return nil, err
	}
	set := s.set.ApplyOverrides(comm.Overrides)

	actor, actorRev, err := s.loadActor(ctx, cmd.CommunityID, cmd.ActorID, now)
	if err != nil {
		return nil, err
	}
	fx := CombineEffects(s.cat, actor.Upgrades, actor.Staff)
	env := &cmdEnv{set: set, fx: fx, comm: comm}

	env.swept = s.rotateActor(actor, comm, set, fx, now)
	env.catchUp = RunCatchUp(actor, s.cat, set, fx, now)
	env.resilience = RunSafetyNet(actor, s.cat, comm, set, now)

	result, err := fn(now, actor, env)
	if err != nil {
		return nil, err
	}

	actor.LastActiveAt = now
	if err := s.putActor(ctx, actor, actorRev); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s response: %w", action, err)
	}
	if err := s.store.PutResponse(ctx, respKey, payload, set.ResponseTTL); err != nil {
		return nil, err
	}
	return payload, nil
}

// ensureCommunity loads the community document and rotates its daily
// structures when the day rolled over. Rotation is read-modify-write under
// the community lock; since a second rotation on the same day is a no-op, a
// race between concurrent triggers is benign.
func (s *Service) ensureCommunity(ctx context.Context, communityID string, now time.Time) (*CommunityState, error) {
	comm, rev, err := s.getCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	set := s.set.ApplyOverrides(comm.Overrides)
	comm.Season = clock.Season(set.Season, now)

	if rev > 0 && !clock.Rollover(comm.MarketDay, now) && !clock.Rollover(comm.StaffDay, now) {
		return comm, nil
	}

	lockKey := store.CommunityLockKey(communityID)
	owner := uuid.NewString()
	if err := s.store.AcquireLock(ctx, lockKey, owner, s.set.LockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.store.ReleaseLock(ctx, lockKey, owner); err != nil {
			s.log.Warn("lock release failed", "key", lockKey, "err", err)
		}
	}()

	// Someone may have rotated while we waited for our first look.
	comm, rev, err = s.getCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	comm.Season = clock.Season(set.Season, now)
	day := clock.DayKey(now)
	dirty := rev == 0
	if clock.Rollover(comm.MarketDay, now) {
		comm.Prices = RollPrices(s.cat, communityID, day)
		comm.MarketDay = day
		dirty = true
	}
	if clock.Rollover(comm.StaffDay, now) {
		comm.StaffPool = rollStaffPool(s.cat, set, communityID, day)
		comm.StaffDay = day
		dirty = true
	}
	if !dirty {
		return comm, nil
	}

	data, err := json.Marshal(comm)
	if err != nil {
		return nil, fmt.Errorf("marshal community: %w", err)
	}
	if _, err := s.store.Put(ctx, store.CommunityKey(communityID), data, rev); err != nil {
		if errors.Is(err, store.ErrRevisionConflict) {
			// Another writer rotated under an overlapping lock window;
			// its result is identical by construction.
			comm, _, err = s.getCommunity(ctx, communityID)
			if err != nil {
				return nil, err
			}
			comm.Season = clock.Season(set.Season, now)
			return comm, nil
		}
		return nil, err
	}
	s.log.Info("community rotated", "community", communityID, "day", day)
	return comm, nil
}

func (s *Service) getCommunity(ctx context.Context, communityID string) (*CommunityState, int64, error) {
	doc, err := s.store.Get(ctx, store.CommunityKey(communityID))
	if errors.Is(err, store.ErrNotFound) {
		return NewCommunity(communityID), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	comm := &CommunityState{}
	if err := json.Unmarshal(doc.Data, comm); err != nil {
		return nil, 0, fmt.Errorf("decode community %s: %w", communityID, err)
	}
	return comm, doc.Revision, nil
}

func (s *Service) loadActor(ctx context.Context, communityID, actorID string, now time.Time) (*ActorState, int64, error) {
	doc, err := s.store.Get(ctx, store.ActorKey(communityID, actorID))
	if errors.Is(err, store.ErrNotFound) {
		return NewActor(communityID, actorID, s.cat, now), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	actor := &ActorState{}
	if err := json.Unmarshal(doc.Data, actor); err != nil {
		return nil, 0, fmt.Errorf("decode actor %s: %w", actorID, err)
	}
	actor.backfill()
	return actor, doc.Revision, nil
}

func (s *Service) putActor(ctx context.Context, actor *ActorState, expected int64) error {
	data, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	_, err = s.store.Put(ctx, store.ActorKey(actor.CommunityID, actor.ActorID), data, expected)
	return err
}

// rotateActor keeps the actor's private daily structures current: market
// stock on day rollover, the order board on day rollover or whenever the
// eligible recipe set changed size, and an expiry sweep over remaining
// tasks. Swept tasks count as tracked failures; their ids are returned so
// a command targeting one can report the expiry instead of a bare miss.
func (s *Service) rotateActor(actor *ActorState, comm *CommunityState, set Settings, fx EffectBundle, now time.Time) []string {
	day := clock.DayKey(now)
	if clock.Rollover(actor.StockDay, now) {
		actor.Stock = RollStock(s.cat, set, actor.CommunityID, actor.ActorID, day)
		actor.StockDay = day
	}
	eligible := actor.Eligible()
	if clock.Rollover(actor.Board.Day, now) || actor.Board.EligibleCount != len(eligible) {
		actor.Board = GenerateBoard(s.cat, set, BoardParams{
			CommunityID: actor.CommunityID,
			ActorID:     actor.ActorID,
			Day:         day,
			Season:      comm.Season,
			EventID:     comm.EventID,
			Eligible:    eligible,
			Effects:     fx,
			Now:         now,
		})
	}
	var swept []string
	kept := actor.Board.Tasks[:0]
	for _, task := range actor.Board.Tasks {
		if task.ExpiresAt != nil && !task.ExpiresAt.After(now) {
			actor.RecordFailure(set)
			swept = append(swept, task.ID)
			continue
		}
		kept = append(kept, task)
	}
	actor.Board.Tasks = kept
	return swept
}

// rollStaffPool picks the staff available for hire today, equally weighted.
func rollStaffPool(cat *catalog.Catalog, set Settings, communityID, day string) []string {
	weights := make(map[string]float64, len(cat.Staff))
	for id := range cat.Staff {
		weights[id] = 1
	}
	stream := rng.New("staff", communityID, day, "", "")
	var pool []string
	for i := 0; i < set.StaffPerDay && len(weights) > 0; i++ {
		id, ok := stream.Pick(weights)
		if !ok {
			break
		}
		pool = append(pool, id)
		delete(weights, id)
	}
	return pool
}

// ServeOrder completes a task from the board: it consumes a prepared good if
// one is on the shelf (otherwise the raw ingredients), runs the reward
// pipeline, applies level-ups, and removes the task.
func (s *Service) ServeOrder(ctx context.Context, in ServeOrderInput) (ServeOrderResult, error) {
	raw, err := s.run(ctx, in.Command, "serve_order", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		idx := findTask(actor.Board, in.TaskID)
		if idx < 0 {
			return nil, missingTaskErr(env.swept, in.TaskID)
		}
		task := actor.Board.Tasks[idx]
		recipe, ok := s.cat.Recipes[task.RecipeID]
		if !ok {
			return nil, ErrRecipeNotFound
		}
		if !actor.Eligible()[recipe.ID] {
			return nil, ErrRecipeUnknown
		}
		fromShelf := actor.Inventory[recipe.Output] > 0
		if !fromShelf && !hasInputs(actor.Inventory, recipe.Inputs) {
			return nil, ErrInsufficientItems
		}
		arch := s.cat.Archetypes[task.ArchetypeID]

		var event *catalog.Event
		if env.comm.EventID != "" {
			if ev, ok := s.cat.Events[env.comm.EventID]; ok {
				event = &ev
			}
		}
		stream := rng.New("reward", in.CommunityID, clock.DayKey(now), in.ActorID, task.ID)
		reward := ComputeReward(ServeContext{
			Task:    task,
			Recipe:  recipe,
			Arch:    arch,
			Actor:   actor,
			Event:   event,
			Effects: env.fx,
			Now:     now,
			Stream:  stream,
			Set:     env.set,
		})

		if fromShelf {
			actor.Inventory[recipe.Output]--
		} else {
			for item, qty := range recipe.Inputs {
				actor.Inventory[item] -= qty
			}
		}
		actor.Coins += reward.Coins
		actor.Reputation += reward.Rep
		levels := actor.ApplyExperience(reward.XP)
		actor.RepFloorPending = false
		if reward.AuraGranted {
			actor.AuraRep = arch.Effects.AuraRep
			actor.AuraExpiresAt = now.Add(arch.Effects.AuraDuration)
		}
		actor.LastServedRecipe = recipe.ID
		actor.LastServeDay = clock.DayKey(now)
		actor.RecordSuccess()
		actor.Board.Tasks = append(actor.Board.Tasks[:idx], actor.Board.Tasks[idx+1:]...)

		return ServeOrderResult{
			TaskID:       task.ID,
			Reward:       reward,
			Coins:        actor.Coins,
			Reputation:   actor.Reputation,
			Level:        actor.Level,
			LevelsGained: levels,
			CatchUp:      env.catchUp,
			Resilience:   env.resilience,
		}, nil
	})
	if err != nil {
		return ServeOrderResult{}, err
	}
	var out ServeOrderResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ServeOrderResult{}, err
	}
	return out, nil
}

// AcceptOrder stamps the accept time a time-boxed bonus is measured from.
// Accepting twice keeps the first stamp.
func (s *Service) AcceptOrder(ctx context.Context, in AcceptOrderInput) (AcceptOrderResult, error) {
	raw, err := s.run(ctx, in.Command, "accept_order", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		idx := findTask(actor.Board, in.TaskID)
		if idx < 0 {
			return nil, missingTaskErr(env.swept, in.TaskID)
		}
		task := &actor.Board.Tasks[idx]
		if task.AcceptedAt == nil {
			stamp := now
			task.AcceptedAt = &stamp
		}
		return AcceptOrderResult{TaskID: task.ID, AcceptedAt: *task.AcceptedAt}, nil
	})
	if err != nil {
		return AcceptOrderResult{}, err
	}
	var out AcceptOrderResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return AcceptOrderResult{}, err
	}
	return out, nil
}

// BuyItem purchases from the actor's private daily stock at today's price,
// honoring an active pity discount. The balance can never go negative.
func (s *Service) BuyItem(ctx context.Context, in TradeInput) (TradeResult, error) {
	raw, err := s.run(ctx, in.Command, "buy_item", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		if in.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		item, ok := s.cat.Items[in.ItemID]
		if !ok {
			return nil, ErrItemNotFound
		}
		if !item.Tradeable {
			return nil, ErrNotTradeable
		}
		price, ok := env.comm.Prices[in.ItemID]
		if !ok {
			return nil, ErrItemNotFound
		}
		unit := price
		discounted := false
		if actor.PityDay == clock.DayKey(now) && actor.PityItem == in.ItemID && actor.PityPrice > 0 && actor.PityPrice < unit {
			unit = actor.PityPrice
			discounted = true
		}
		if actor.Stock[in.ItemID] < in.Quantity {
			return nil, ErrInsufficientStock
		}
		total := unit * int64(in.Quantity)
		if total > actor.Coins {
			return nil, ErrInsufficientCoins
		}
		actor.Coins -= total
		actor.Stock[in.ItemID] -= in.Quantity
		actor.Inventory[in.ItemID] += in.Quantity
		return TradeResult{
			ItemID: in.ItemID, Quantity: in.Quantity,
			UnitPrice: unit, Total: total, Coins: actor.Coins,
			Discounted: discounted,
		}, nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	var out TradeResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return TradeResult{}, err
	}
	return out, nil
}

// SellItem sells held items back to the market at the derived sell price.
func (s *Service) SellItem(ctx context.Context, in TradeInput) (TradeResult, error) {
	raw, err := s.run(ctx, in.Command, "sell_item", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		if in.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		item, ok := s.cat.Items[in.ItemID]
		if !ok {
			return nil, ErrItemNotFound
		}
		if !item.Tradeable {
			return nil, ErrNotTradeable
		}
		price, ok := env.comm.Prices[in.ItemID]
		if !ok {
			return nil, ErrItemNotFound
		}
		if actor.Inventory[in.ItemID] < in.Quantity {
			return nil, ErrInsufficientItems
		}
		unit := SellPrice(price, env.set.SellRate)
		total := unit * int64(in.Quantity)
		actor.Inventory[in.ItemID] -= in.Quantity
		actor.Coins += total
		return TradeResult{
			ItemID: in.ItemID, Quantity: in.Quantity,
			UnitPrice: unit, Total: total, Coins: actor.Coins,
		}, nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	var out TradeResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return TradeResult{}, err
	}
	return out, nil
}

// CraftRecipe turns raw ingredients into prepared goods for the shelf.
func (s *Service) CraftRecipe(ctx context.Context, in CraftInput) (CraftResult, error) {
	raw, err := s.run(ctx, in.Command, "craft_recipe", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		recipe, ok := s.cat.Recipes[in.RecipeID]
		if !ok {
			return nil, ErrRecipeNotFound
		}
		if !actor.Eligible()[recipe.ID] {
			return nil, ErrRecipeUnknown
		}
		if !hasInputs(actor.Inventory, recipe.Inputs) {
			return nil, ErrInsufficientItems
		}
		for item, qty := range recipe.Inputs {
			actor.Inventory[item] -= qty
		}
		actor.Inventory[recipe.Output] += recipe.Yield
		return CraftResult{
			RecipeID: recipe.ID,
			Output:   recipe.Output,
			Yield:    recipe.Yield,
			Held:     actor.Inventory[recipe.Output],
		}, nil
	})
	if err != nil {
		return CraftResult{}, err
	}
	var out CraftResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return CraftResult{}, err
	}
	return out, nil
}

// BuyUpgrade purchases a permanent shop upgrade.
func (s *Service) BuyUpgrade(ctx context.Context, in BuyUpgradeInput) (BuyUpgradeResult, error) {
	raw, err := s.run(ctx, in.Command, "buy_upgrade", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		up, ok := s.cat.Upgrades[in.UpgradeID]
		if !ok {
			return nil, ErrItemNotFound
		}
		for _, owned := range actor.Upgrades {
			if owned == up.ID {
				return nil, ErrAlreadyOwned
			}
		}
		if up.Cost > actor.Coins {
			return nil, ErrInsufficientCoins
		}
		actor.Coins -= up.Cost
		actor.Upgrades = append(actor.Upgrades, up.ID)
		return BuyUpgradeResult{UpgradeID: up.ID, Coins: actor.Coins}, nil
	})
	if err != nil {
		return BuyUpgradeResult{}, err
	}
	var out BuyUpgradeResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return BuyUpgradeResult{}, err
	}
	return out, nil
}

// HireStaff hires from today's community staff pool.
func (s *Service) HireStaff(ctx context.Context, in HireStaffInput) (HireStaffResult, error) {
	raw, err := s.run(ctx, in.Command, "hire_staff", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		st, ok := s.cat.Staff[in.StaffID]
		if !ok {
			return nil, ErrItemNotFound
		}
		inPool := false
		for _, id := range env.comm.StaffPool {
			if id == st.ID {
				inPool = true
				break
			}
		}
		if !inPool {
			return nil, fmt.Errorf("%w: not in today's staff pool", ErrItemNotFound)
		}
		for _, hired := range actor.Staff {
			if hired == st.ID {
				return nil, ErrAlreadyOwned
			}
		}
		if st.Cost > actor.Coins {
			return nil, ErrInsufficientCoins
		}
		actor.Coins -= st.Cost
		actor.Staff = append(actor.Staff, st.ID)
		return HireStaffResult{StaffID: st.ID, Coins: actor.Coins}, nil
	})
	if err != nil {
		return HireStaffResult{}, err
	}
	var out HireStaffResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return HireStaffResult{}, err
	}
	return out, nil
}

// RefreshBoard forces the standard rotation pass and returns the resulting
// board. Within an unchanged day and eligible set this is a no-op.
func (s *Service) RefreshBoard(ctx context.Context, in RefreshBoardInput) (RefreshBoardResult, error) {
	raw, err := s.run(ctx, in.Command, "refresh_board", func(now time.Time, actor *ActorState, env *cmdEnv) (any, error) {
		return RefreshBoardResult{
			Board:      actor.Board,
			CatchUp:    env.catchUp,
			Resilience: env.resilience,
		}, nil
	})
	if err != nil {
		return RefreshBoardResult{}, err
	}
	var out RefreshBoardResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return RefreshBoardResult{}, err
	}
	return out, nil
}

// TransferCoins moves coins from one actor to another in the same community.
// Both actors' locks are taken, in key order, so the transfer serializes
// against commands on either side. The recipient must already exist; a
// transfer never creates an actor. All checks run before either write.
func (s *Service) TransferCoins(ctx context.Context, in TransferInput) (TransferResult, error) {
	if strings.TrimSpace(in.RequestID) == "" {
		return TransferResult{}, ErrRequestIDMissing
	}
	respKey := store.ResponseKey(in.CommunityID, in.ActorID, "transfer_coins", in.RequestID)
	if cached, ok, err := s.store.GetResponse(ctx, respKey); err != nil {
		return TransferResult{}, err
	} else if ok {
		s.log.Debug("idempotent replay", "action", "transfer_coins", "actor", in.ActorID)
		var out TransferResult
		if err := json.Unmarshal(cached, &out); err != nil {
			return TransferResult{}, err
		}
		return out, nil
	}

	if in.Amount <= 0 {
		return TransferResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidQuantity)
	}
	if in.ToActorID == in.ActorID {
		return TransferResult{}, fmt.Errorf("%w: cannot transfer to self", ErrInvalidQuantity)
	}

	keys := []string{
		store.ActorLockKey(in.CommunityID, in.ActorID),
		store.ActorLockKey(in.CommunityID, in.ToActorID),
	}
	sort.Strings(keys)
	owner := uuid.NewString()
	for i, key := range keys {
		if err := s.store.AcquireLock(ctx, key, owner, s.set.LockTTL); err != nil {
			for _, held := range keys[:i] {
				if rerr := s.store.ReleaseLock(ctx, held, owner); rerr != nil {
					s.log.Warn("lock release failed", "key", held, "err", rerr)
				}
			}
			return TransferResult{}, err
		}
	}
	defer func() {
		for _, key := range keys {
			if err := s.store.ReleaseLock(ctx, key, owner); err != nil {
				s.log.Warn("lock release failed", "key", key, "err", err)
			}
		}
	}()

	now := s.now().UTC()
	comm, err := s.ensureCommunity(ctx, in.CommunityID, now)
	if err != nil {
		return TransferResult{}, err
	}
	set := s.set.ApplyOverrides(comm.Overrides)

	sender, senderRev, err := s.loadActor(ctx, in.CommunityID, in.ActorID, now)
	if err != nil {
		return TransferResult{}, err
	}
	recvDoc, err := s.store.Get(ctx, store.ActorKey(in.CommunityID, in.ToActorID))
	if errors.Is(err, store.ErrNotFound) {
		return TransferResult{}, ErrActorNotFound
	}
	if err != nil {
		return TransferResult{}, err
	}
	recipient := &ActorState{}
	if err := json.Unmarshal(recvDoc.Data, recipient); err != nil {
		return TransferResult{}, fmt.Errorf("decode actor %s: %w", in.ToActorID, err)
	}
	recipient.backfill()

	fx := CombineEffects(s.cat, sender.Upgrades, sender.Staff)
	s.rotateActor(sender, comm, set, fx, now)
	catchUp := RunCatchUp(sender, s.cat, set, fx, now)
	resilience := RunSafetyNet(sender, s.cat, comm, set, now)

	if sender.Coins < in.Amount {
		return TransferResult{}, ErrInsufficientCoins
	}
	sender.Coins -= in.Amount
	recipient.Coins += in.Amount
	sender.LastActiveAt = now

	if err := s.putActor(ctx, sender, senderRev); err != nil {
		return TransferResult{}, err
	}
	if err := s.putActor(ctx, recipient, recvDoc.Revision); err != nil {
		return TransferResult{}, err
	}

	result := TransferResult{
		ToActorID:  in.ToActorID,
		Amount:     in.Amount,
		Coins:      sender.Coins,
		CatchUp:    catchUp,
		Resilience: resilience,
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return TransferResult{}, fmt.Errorf("marshal transfer_coins response: %w", err)
	}
	if err := s.store.PutResponse(ctx, respKey, payload, set.ResponseTTL); err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// SweepInfra removes expired locks and idempotency records. Called by the
// maintenance worker.
func (s *Service) SweepInfra(ctx context.Context) (locks, responses int64, err error) {
	return s.store.Sweep(ctx, s.now().UTC())
}

// missingTaskErr distinguishes a task swept as expired during this command's
// rotation pass from one that was never on the board.
func missingTaskErr(swept []string, taskID string) error {
	for _, id := range swept {
		if id == taskID {
			return ErrTaskExpired
		}
	}
	return ErrTaskNotFound
}

func findTask(board OrderBoard, taskID string) int {
	for i, t := range board.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}
