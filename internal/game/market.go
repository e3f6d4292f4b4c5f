package game

import (
	"math"
	"sort"

	"bodega/internal/catalog"
	"bodega/internal/rng"
)

// RollPrices computes the community-wide daily prices. Each tradeable item
// with a base price gets price = max(1, floor(base * uniform(0.85, 1.15))).
// Items are visited in sorted id order so the stream consumption, and
// therefore the whole price map, is a pure function of (community, day).
func RollPrices(cat *catalog.Catalog, communityID, day string) map[string]int64 {
	stream := rng.New("market", communityID, day, "", "")
	prices := make(map[string]int64)
	for _, id := range sortedTradeable(cat) {
		item := cat.Items[id]
		if item.BasePrice <= 0 {
			continue
		}
		p := int64(math.Floor(float64(item.BasePrice) * stream.Uniform(0.85, 1.15)))
		if p < 1 {
			p = 1
		}
		prices[id] = p
	}
	return prices
}

// RollStock computes one actor's private daily stock quantities for every
// tradeable item. Scoped to the actor so shops see different availability.
func RollStock(cat *catalog.Catalog, set Settings, communityID, actorID, day string) map[string]int {
	stream := rng.New("stock", communityID, day, actorID, "")
	stock := make(map[string]int)
	for _, id := range sortedTradeable(cat) {
		stock[id] = stream.Between(set.StockMin, set.StockMax)
	}
	return stock
}

// SellPrice derives what the market pays an actor for one unit: a fixed
// fraction of the rolled buy price, never rolled independently.
func SellPrice(price int64, rate float64) int64 {
	return int64(math.Floor(float64(price) * rate))
}

func sortedTradeable(cat *catalog.Catalog) []string {
	ids := make([]string, 0, len(cat.Items))
	for id, item := range cat.Items {
		if item.Tradeable {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
