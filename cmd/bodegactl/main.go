package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	cl "bodega/internal/cli"
	"bodega/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL
	community := cfg.CommunityID
	actor := cfg.ActorID

	root := &cobra.Command{
		Use:          "bodegactl",
		Short:        "Bodega corner-shop game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")
	root.PersistentFlags().StringVar(&community, "community", community, "community id")
	root.PersistentFlags().StringVar(&actor, "actor", actor, "actor id")

	root.AddCommand(
		newJoinCmd(&apiBase, &community, &actor),
		newShopCmd(&apiBase, &community, &actor),
		newBoardCmd(&apiBase, &community, &actor),
		newMarketCmd(&apiBase, &community, &actor),
		newServeCmd(&apiBase, &community, &actor),
		newAcceptCmd(&apiBase, &community, &actor),
		newBuyCmd(&apiBase, &community, &actor),
		newSellCmd(&apiBase, &community, &actor),
		newCraftCmd(&apiBase, &community, &actor),
		newUpgradeCmd(&apiBase, &community, &actor),
		newHireCmd(&apiBase, &community, &actor),
		newGiveCmd(&apiBase, &community, &actor),
		newTopCmd(&apiBase, &community),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(*apiBase)
}

func newJoinCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Open your shop in a community",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).EnsureActor(ctx, *community, *actor); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Shop open for %s in %s.", *actor, *community))
			return nil
		},
	}
}

func newShopCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "Show your shop state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ActorView(ctx, *community, *actor)
			if err != nil {
				return err
			}
			return renderShop(out)
		},
	}
}

func newBoardCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show today's order board",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).BoardView(ctx, *community, *actor)
			if err != nil {
				return err
			}
			return renderBoard(out)
		},
	}
}

func newMarketCmd(apiBase, community, actor *string) *cobra.Command {
	refresh := false
	c := &cobra.Command{
		Use:   "market",
		Short: "Show today's market",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := newClient(apiBase)
			if refresh {
				if _, err := client.RefreshBoard(ctx, *community, *actor, uuid.NewString()); err != nil {
					return err
				}
			}
			out, err := client.MarketView(ctx, *community, *actor)
			if err != nil {
				return err
			}
			return renderMarket(out)
		},
	}
	c.Flags().BoolVar(&refresh, "refresh", false, "run the daily rotation first")
	return c
}

func newServeCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve <task-id>",
		Short: "Serve an order from the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ServeOrder(ctx, *community, *actor, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			return renderServed(out)
		},
	}
}

func newAcceptCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <task-id>",
		Short: "Accept a time-boxed order to start its speed clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AcceptOrder(ctx, *community, *actor, args[0], uuid.NewString()); err != nil {
				return err
			}
			printSuccess("Order accepted.")
			return nil
		},
	}
}

func newBuyCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item> <qty>",
		Short: "Buy ingredients from the market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).BuyItem(ctx, *community, *actor, args[0], qty, uuid.NewString())
			if err != nil {
				return err
			}
			return renderTrade(out, "Bought")
		},
	}
}

func newSellCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <item> <qty>",
		Short: "Sell items back to the market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).SellItem(ctx, *community, *actor, args[0], qty, uuid.NewString())
			if err != nil {
				return err
			}
			return renderTrade(out, "Sold")
		},
	}
}

func newCraftCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "craft <recipe>",
		Short: "Craft a recipe onto the shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).CraftRecipe(ctx, *community, *actor, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			return renderCrafted(out)
		},
	}
}

func newUpgradeCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <upgrade-id>",
		Short: "Buy a shop upgrade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).BuyUpgrade(ctx, *community, *actor, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Upgrade installed. Balance: %s coins.", numField(out, "coins")))
			return nil
		},
	}
}

func newHireCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hire <staff-id>",
		Short: "Hire from today's staff pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).HireStaff(ctx, *community, *actor, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Staff hired. Balance: %s coins.", numField(out, "coins")))
			return nil
		},
	}
}

func newGiveCmd(apiBase, community, actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "give <actor> <amount>",
		Short: "Send coins to another shopkeeper",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).TransferCoins(ctx, *community, *actor, args[0], amount, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sent %d coins to %s. Balance: %s coins.", amount, args[0], numField(out, "coins")))
			return nil
		},
	}
}

func newTopCmd(apiBase, community *string) *cobra.Command {
	limit := 20
	c := &cobra.Command{
		Use:   "top",
		Short: "Show the community leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, *community, limit)
			if err != nil {
				return err
			}
			return renderLeaderboard(out, *community)
		},
	}
	c.Flags().IntVar(&limit, "limit", limit, "rows to show")
	return c
}
