package persona

import (
	"context"
	"fmt"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// Order accumulates the caller's order on the shared session, one item at a
// time, then hands off to confirmation.
type Order struct {
	base
}

func NewOrder(sess *sessionx.Session, cache *menux.Cache, cfg llmx.Config, restaurant string) *Order {
	if restaurant == "" {
		restaurant = defaultRestaurantName
	}
	return &Order{
		base: base{
			name:       sessionx.PersonaOrder,
			sess:       sess,
			cache:      cache,
			cfg:        cfg,
			restaurant: restaurant,
		},
	}
}

func (a *Order) RenderInstructions() string {
	return a.header("You help the caller build their order over the phone.") +
		a.menuSection() +
		a.customerSection() +
		"\nGUIDELINES:\n" +
		"- Use the item id in square brackets when calling add_item.\n" +
		"- Ask about quantities, modifications, and special requests.\n" +
		"- Always confirm allergen information when the caller asks.\n" +
		"- If an item is unavailable, suggest a similar alternative.\n" +
		"- When the order is complete, call request_handoff with target \"confirmation\".\n"
}

func (a *Order) Actions() []contractx.ActionSpec {
	return []contractx.ActionSpec{
		{
			Name: "add_item",
			Desc: "Add a menu item to the order.",
			Params: map[string]contractx.Param{
				"item_id":      {Type: "string", Desc: "Menu item id", Required: true},
				"quantity":     {Type: "integer", Desc: "Positive quantity", Required: true},
				"modification": {Type: "string", Desc: "Special request for this item", Required: false},
			},
		},
		{
			Name: "remove_item",
			Desc: "Remove a menu item from the order.",
			Params: map[string]contractx.Param{
				"item_id": {Type: "string", Desc: "Menu item id", Required: true},
			},
		},
		{
			Name: "set_quantity",
			Desc: "Change the quantity of an item already on the order.",
			Params: map[string]contractx.Param{
				"item_id":  {Type: "string", Desc: "Menu item id", Required: true},
				"quantity": {Type: "integer", Desc: "Positive quantity", Required: true},
			},
		},
		handoffSpec(),
	}
}

func (a *Order) Execute(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	switch call.Name {
	case "add_item":
		return a.addItem(call)
	case "remove_item":
		return a.removeItem(call)
	case "set_quantity":
		return a.setQuantity(call)
	case "request_handoff":
		return a.executeHandoff(call)
	default:
		return unknownAction(call, a.name)
	}
}

func (a *Order) addItem(call contractx.ActionCall) contractx.ActionResult {
	itemID, err := argString(call.Args, "item_id")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	quantity, err := argInt(call.Args, "quantity")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}

	item, err := a.availableItem(itemID)
	if err != nil {
		// Never drop the request silently: offer a substitute alongside the
		// unavailability clarification.
		msg := err.Error()
		if sub, ok := a.suggestSubstitute(itemID); ok {
			msg = fmt.Sprintf("%s; you could suggest %s [%s] instead", msg, sub.Name, sub.ID)
		}
		return contractx.ActionResult{Name: call.Name, Error: msg}
	}

	if err := a.sess.EnsureOrder().AddLine(item, quantity, optionalString(call.Args, "modification")); err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	return contractx.ActionResult{
		Name:   call.Name,
		Result: fmt.Sprintf("added %dx %s", quantity, item.Name),
	}
}

func (a *Order) removeItem(call contractx.ActionCall) contractx.ActionResult {
	itemID, err := argString(call.Args, "item_id")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	if err := a.sess.EnsureOrder().RemoveLine(itemID); err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	return contractx.ActionResult{Name: call.Name, Result: fmt.Sprintf("removed %s", itemID)}
}

func (a *Order) setQuantity(call contractx.ActionCall) contractx.ActionResult {
	itemID, err := argString(call.Args, "item_id")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	quantity, err := argInt(call.Args, "quantity")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	if err := a.sess.EnsureOrder().SetQuantity(itemID, quantity); err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	return contractx.ActionResult{Name: call.Name, Result: fmt.Sprintf("set %s to %d", itemID, quantity)}
}

// availableItem resolves itemID against the current snapshot, requiring the
// item to exist and be available.
func (a *Order) availableItem(itemID string) (contractx.MenuItem, error) {
	item, ok := a.cache.Item(itemID)
	if !ok {
		return contractx.MenuItem{}, fmt.Errorf("%w: no menu item with id %q", contractx.ErrItemUnavailable, itemID)
	}
	if !item.Available {
		return contractx.MenuItem{}, fmt.Errorf("%w: %s is not available today", contractx.ErrItemUnavailable, item.Name)
	}
	return item, nil
}

// suggestSubstitute prefers an available item from the same category, falling
// back to any available item.
func (a *Order) suggestSubstitute(itemID string) (contractx.MenuItem, bool) {
	category := ""
	if item, ok := a.cache.Item(itemID); ok {
		category = item.Category
	}

	available := a.cache.AvailableItems()
	for _, candidate := range available {
		if candidate.ID == itemID {
			continue
		}
		if category == "" || candidate.Category == category {
			return candidate, true
		}
	}
	if len(available) > 0 && available[0].ID != itemID {
		return available[0], true
	}
	return contractx.MenuItem{}, false
}
