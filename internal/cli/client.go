package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin HTTP wrapper around the bodega API used by bodegactl.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) actorPath(communityID, actorID, suffix string) string {
	return fmt.Sprintf("/v1/communities/%s/actors/%s%s",
		url.PathEscape(communityID), url.PathEscape(actorID), suffix)
}

func (c *Client) EnsureActor(ctx context.Context, communityID, actorID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, ""), nil, &out, "")
	return out, err
}

func (c *Client) ActorView(ctx context.Context, communityID, actorID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, c.actorPath(communityID, actorID, ""), nil, &out, "")
	return out, err
}

func (c *Client) BoardView(ctx context.Context, communityID, actorID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, c.actorPath(communityID, actorID, "/board"), nil, &out, "")
	return out, err
}

func (c *Client) MarketView(ctx context.Context, communityID, actorID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, c.actorPath(communityID, actorID, "/market"), nil, &out, "")
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, communityID string, limit int) (map[string]any, error) {
	path := fmt.Sprintf("/v1/communities/%s/leaderboard?limit=%d", url.PathEscape(communityID), limit)
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

func (c *Client) RefreshBoard(ctx context.Context, communityID, actorID, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/board/refresh"), nil, &out, idem)
	return out, err
}

func (c *Client) AcceptOrder(ctx context.Context, communityID, actorID, taskID, idem string) (map[string]any, error) {
	path := c.actorPath(communityID, actorID, "/orders/"+url.PathEscape(taskID)+"/accept")
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out, idem)
	return out, err
}

func (c *Client) ServeOrder(ctx context.Context, communityID, actorID, taskID, idem string) (map[string]any, error) {
	path := c.actorPath(communityID, actorID, "/orders/"+url.PathEscape(taskID)+"/serve")
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out, idem)
	return out, err
}

func (c *Client) BuyItem(ctx context.Context, communityID, actorID, itemID string, qty int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/market/buy"), map[string]any{
		"item_id":  itemID,
		"quantity": qty,
	}, &out, idem)
	return out, err
}

func (c *Client) SellItem(ctx context.Context, communityID, actorID, itemID string, qty int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/market/sell"), map[string]any{
		"item_id":  itemID,
		"quantity": qty,
	}, &out, idem)
	return out, err
}

func (c *Client) CraftRecipe(ctx context.Context, communityID, actorID, recipeID, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/craft"), map[string]any{
		"recipe_id": recipeID,
	}, &out, idem)
	return out, err
}

func (c *Client) BuyUpgrade(ctx context.Context, communityID, actorID, upgradeID, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/upgrades/buy"), map[string]any{
		"upgrade_id": upgradeID,
	}, &out, idem)
	return out, err
}

func (c *Client) HireStaff(ctx context.Context, communityID, actorID, staffID, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/staff/hire"), map[string]any{
		"staff_id": staffID,
	}, &out, idem)
	return out, err
}

func (c *Client) TransferCoins(ctx context.Context, communityID, actorID, toActorID string, amount int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, c.actorPath(communityID, actorID, "/transfer"), map[string]any{
		"to_actor_id": toActorID,
		"amount":      amount,
	}, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
