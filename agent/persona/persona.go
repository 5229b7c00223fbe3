// Package persona implements the conversational variants that take turns
// owning a call: intent classification, ordering, reservations, and
// confirmation. Each variant renders its own instructions from the shared
// session plus the menu cache and exposes a fixed action set the dialogue
// service may invoke.
package persona

import (
	"fmt"
	"strings"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// EndOfCall is the handoff target that terminates the call. It is not a
// registered persona; the handoff controller recognizes it directly.
const EndOfCall = "end_of_call"

const defaultRestaurantName = "Bella's Italian Kitchen"

// Policy holds the product-level knobs for intent classification. The
// fallback after repeated unknown classifications is deliberately
// configurable rather than a constant.
type Policy struct {
	MaxClassifyAttempts int              `envconfig:"MAX_CLASSIFY_ATTEMPTS" split_words:"true" default:"2"`
	FallbackIntent      contractx.Intent `envconfig:"FALLBACK_INTENT" split_words:"true" default:"order"`
}

func (p Policy) normalized() Policy {
	if p.MaxClassifyAttempts <= 0 {
		p.MaxClassifyAttempts = 2
	}
	switch p.FallbackIntent {
	case contractx.IntentOrder, contractx.IntentReservation:
	default:
		p.FallbackIntent = contractx.IntentOrder
	}
	return p
}

// base carries what every variant needs: the shared session, the menu cache,
// and the dialogue-service tuning for this persona.
type base struct {
	name       string
	sess       *sessionx.Session
	cache      *menux.Cache
	cfg        llmx.Config
	restaurant string
}

func (b *base) Name() string { return b.name }

// ModelConfig resolves the dialogue-model settings for this persona.
func (b *base) ModelConfig() llmx.Config { return b.cfg }

// Execute dispatch shared by all variants: unknown action names become a
// caller-visible error result, never a turn failure.
func unknownAction(call contractx.ActionCall, persona string) contractx.ActionResult {
	return contractx.ActionResult{
		Name:  call.Name,
		Error: fmt.Sprintf("action %q is not available for %s", call.Name, persona),
	}
}

func handoffSpec() contractx.ActionSpec {
	return contractx.ActionSpec{
		Name: "request_handoff",
		Desc: "Hand the conversation to another persona once this step is complete.",
		Params: map[string]contractx.Param{
			"target": {Type: "string", Desc: "Persona name to hand off to", Required: true},
		},
	}
}

func (b *base) executeHandoff(call contractx.ActionCall) contractx.ActionResult {
	target, err := argString(call.Args, "target")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}
	if target != EndOfCall {
		if _, err := b.sess.LookupPersona(target); err != nil {
			return contractx.ActionResult{Name: call.Name, Error: fmt.Sprintf("no persona named %q", target)}
		}
	}
	b.sess.RequestHandoff(target)
	return contractx.ActionResult{Name: call.Name, Result: fmt.Sprintf("handoff to %s recorded", target)}
}

/* ----------------------------- prompt helpers ---------------------------- */

func (b *base) header(role string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a friendly voice assistant for %s. %s\n", b.restaurant, role)
	return sb.String()
}

// menuSection renders the grouped catalog view. An empty cache produces no
// menu section at all; the persona degrades to a menu-less prompt.
func (b *base) menuSection() string {
	order, grouped := b.cache.GroupedByCategory()
	if len(order) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\nCURRENT MENU:\n")
	for _, category := range order {
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(category))
		for _, item := range grouped[category] {
			allergens := ""
			if len(item.Allergens) > 0 {
				allergens = fmt.Sprintf(" (Contains: %s)", strings.Join(item.Allergens, ", "))
			}
			fmt.Fprintf(&sb, "- %s [%s]: $%.2f - %s%s\n", item.Name, item.ID, item.Price, item.Description, allergens)
		}
	}
	return sb.String()
}

func (b *base) customerSection() string {
	if strings.TrimSpace(b.sess.CustomerHistory) == "" {
		return ""
	}
	return fmt.Sprintf("\nCUSTOMER CONTEXT:\n%s\n", b.sess.CustomerHistory)
}

/* ---------------------------- argument helpers ---------------------------- */

func argString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func optionalString(args map[string]any, key string) string {
	if raw, ok := args[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// argInt tolerates JSON numbers arriving as float64.
func argInt(args map[string]any, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
