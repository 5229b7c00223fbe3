// Package menu holds the read-through catalog cache shared by every
// concurrent call.
package menu

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	contractx "github.com/BrianMwas/vocare/agent/contract"
)

// snapshot is one immutable view of the catalog. Items keeps store order so
// prompt rendering stays deterministic; byID serves point lookups.
type snapshot struct {
	items []contractx.MenuItem
	byID  map[string]contractx.MenuItem
}

var emptySnapshot = &snapshot{byID: map[string]contractx.MenuItem{}}

// Cache is a read-through menu cache. Reads race freely with the single bulk
// refresh; readers always observe a complete snapshot, old or new.
type Cache struct {
	current atomic.Pointer[snapshot]
	loaded  atomic.Bool
}

func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(emptySnapshot)
	return c
}

// Refresh fetches the full catalog and swaps it in atomically. On failure it
// logs and leaves the previous snapshot in place; it never returns an error
// to its caller.
func (c *Cache) Refresh(ctx context.Context, store contractx.Store) {
	items, err := store.ListMenuItems(ctx)
	if err != nil {
		log.Error().Err(err).Msg("menu cache refresh failed, keeping previous snapshot")
		return
	}

	next := &snapshot{
		items: items,
		byID:  make(map[string]contractx.MenuItem, len(items)),
	}
	for _, item := range items {
		next.byID[item.ID] = item
	}
	c.current.Store(next)
	c.loaded.Store(true)
	log.Info().Int("items", len(items)).Msg("menu cache refreshed")
}

// Loaded reports whether at least one refresh has completed successfully.
func (c *Cache) Loaded() bool {
	return c.loaded.Load()
}

// Item looks one catalog entry up by id in the current snapshot.
func (c *Cache) Item(id string) (contractx.MenuItem, bool) {
	item, ok := c.current.Load().byID[id]
	return item, ok
}

// Len reports the size of the current snapshot.
func (c *Cache) Len() int {
	return len(c.current.Load().items)
}

// AvailableItems returns the available entries of the current snapshot in
// store order. The slice is re-derived per call; mutating it does not touch
// the cache.
func (c *Cache) AvailableItems() []contractx.MenuItem {
	snap := c.current.Load()
	out := make([]contractx.MenuItem, 0, len(snap.items))
	for _, item := range snap.items {
		if item.Available {
			out = append(out, item)
		}
	}
	return out
}

// GroupedByCategory maps category name to available items, categories ordered
// by first appearance among AvailableItems. Used only to render prompt text.
func (c *Cache) GroupedByCategory() ([]string, map[string][]contractx.MenuItem) {
	var order []string
	grouped := make(map[string][]contractx.MenuItem)
	for _, item := range c.AvailableItems() {
		if _, seen := grouped[item.Category]; !seen {
			order = append(order, item.Category)
		}
		grouped[item.Category] = append(grouped[item.Category], item)
	}
	return order, grouped
}
