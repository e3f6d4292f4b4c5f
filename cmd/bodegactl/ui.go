package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bodega/internal/game"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

type marketPayload struct {
	Items []game.MarketRow `json:"items"`
}

type leaderboardPayload struct {
	Rows []game.LeaderboardRow `json:"leaderboard"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func renderShop(raw map[string]any) error {
	out, err := decodeInto[game.ActorView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(out.ActorID))
	fmt.Printf("Coins: %d   Reputation: %d   Level: %d (%d/%d xp)\n",
		out.Coins, out.Reputation, out.Level, out.XP, out.NextLevelXP)
	if out.ReliefUses > 0 {
		warn.Printf("Relief buff active: %d boosted serves left.\n", out.ReliefUses)
	}
	if len(out.Inventory) > 0 {
		fmt.Println("Pantry:")
		for _, id := range sortedKeys(out.Inventory) {
			if out.Inventory[id] > 0 {
				fmt.Printf("  %-16s x%d\n", id, out.Inventory[id])
			}
		}
	}
	if len(out.KnownRecipes) > 0 {
		fmt.Printf("Recipes: %s\n", strings.Join(out.KnownRecipes, ", "))
	}
	if len(out.Upgrades) > 0 {
		fmt.Printf("Upgrades: %s\n", strings.Join(out.Upgrades, ", "))
	}
	if len(out.Staff) > 0 {
		fmt.Printf("Staff: %s\n", strings.Join(out.Staff, ", "))
	}
	fmt.Println()
	return nil
}

func renderBoard(raw map[string]any) error {
	out, err := decodeInto[game.BoardView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== ORDER BOARD %s (%s) ==\n", out.Day, out.Season)
	if out.EventID != "" {
		warn.Printf("Event running: %s\n", out.EventID)
	}
	if len(out.Tasks) == 0 {
		printInfo("No open orders. Come back tomorrow.")
		return nil
	}
	fmt.Printf("%-10s %-18s %-14s %-10s %s\n", "TASK", "RECIPE", "CUSTOMER", "TIER", "NOTE")
	for _, t := range out.Tasks {
		note := ""
		if t.TimeBoxed && t.ExpiresAt != nil {
			note = "expires " + t.ExpiresAt.Format("15:04")
		}
		fmt.Printf("%-10s %-18s %-14s %-10s %s\n", t.ID, t.RecipeID, t.ArchetypeID, string(t.Tier), note)
	}
	fmt.Println()
	return nil
}

func renderMarket(raw map[string]any) error {
	out, err := decodeInto[marketPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== MARKET ==\n")
	if len(out.Items) == 0 {
		printInfo("Market closed.")
		return nil
	}
	fmt.Printf("%-12s %-20s %8s %8s %8s\n", "ITEM", "NAME", "BUY", "SELL", "STOCK")
	for _, row := range out.Items {
		marker := ""
		if row.Discounted {
			marker = " *"
		}
		fmt.Printf("%-12s %-20s %8d %8d %8d%s\n",
			row.ItemID, truncate(row.Name, 20), row.Price, row.SellPrice, row.Stock, marker)
	}
	fmt.Println()
	return nil
}

func renderServed(raw map[string]any) error {
	out, err := decodeInto[game.ServeOrderResult](raw)
	if err != nil {
		return err
	}
	success.Printf("Served %s: +%d coins, +%d xp, +%d rep.\n",
		out.TaskID, out.Reward.Coins, out.Reward.XP, out.Reward.Rep)
	if out.Reward.Label != "" {
		warn.Printf("Customer perk: %s\n", out.Reward.Label)
	}
	if out.LevelsGained > 0 {
		success.Printf("Level up! Now level %d.\n", out.Level)
	}
	for _, msg := range out.Resilience.Messages {
		warn.Println(msg)
	}
	fmt.Printf("Balance: %d coins, %d reputation.\n", out.Coins, out.Reputation)
	return nil
}

func renderTrade(raw map[string]any, verb string) error {
	out, err := decodeInto[game.TradeResult](raw)
	if err != nil {
		return err
	}
	note := ""
	if out.Discounted {
		note = " (discounted)"
	}
	printSuccess(fmt.Sprintf("%s %d x %s at %d%s. Balance: %d coins.",
		verb, out.Quantity, out.ItemID, out.UnitPrice, note, out.Coins))
	return nil
}

func renderCrafted(raw map[string]any) error {
	out, err := decodeInto[game.CraftResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Crafted %s: %d x %s on the shelf (%d held).",
		out.RecipeID, out.Yield, out.Output, out.Held))
	return nil
}

func renderLeaderboard(raw map[string]any, title string) error {
	out, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(out.Rows) == 0 {
		printInfo("No shops ranked yet.")
		return nil
	}
	fmt.Printf("%-6s %-18s %12s %8s %10s\n", "RANK", "SHOP", "REPUTATION", "LEVEL", "COINS")
	for _, row := range out.Rows {
		fmt.Printf("%-6d %-18s %12d %8d %10d\n",
			row.Rank, truncate(row.ActorID, 18), row.Reputation, row.Level, row.Coins)
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func numField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return "?"
	}
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%d", int64(t))
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
