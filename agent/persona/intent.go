package persona

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// IntentClassifier maps the caller's opening utterances to order or
// reservation and hands the call off accordingly. After the configured number
// of unknown classifications it applies the fallback intent instead of
// looping again.
type IntentClassifier struct {
	base
	policy Policy
}

func NewIntentClassifier(sess *sessionx.Session, cache *menux.Cache, cfg llmx.Config, restaurant string, policy Policy) *IntentClassifier {
	if restaurant == "" {
		restaurant = defaultRestaurantName
	}
	return &IntentClassifier{
		base: base{
			name:       sessionx.PersonaIntentClassifier,
			sess:       sess,
			cache:      cache,
			cfg:        cfg,
			restaurant: restaurant,
		},
		policy: policy.normalized(),
	}
}

func (a *IntentClassifier) RenderInstructions() string {
	return a.header("You answer the phone and work out whether the caller wants to place an order or book a table.") +
		a.customerSection() +
		"\nGUIDELINES:\n" +
		"- Greet the caller warmly and ask how you can help.\n" +
		"- Once their request is clear, call classify_intent with \"order\" or \"reservation\".\n" +
		"- If you genuinely cannot tell, call classify_intent with \"unknown\" and ask one clarifying question.\n" +
		fmt.Sprintf("\nStart each conversation with: \"Hello! Thank you for calling %s. How can I help you today?\"\n", a.restaurant)
}

func (a *IntentClassifier) Actions() []contractx.ActionSpec {
	return []contractx.ActionSpec{
		{
			Name: "classify_intent",
			Desc: "Record what the caller wants: order, reservation, or unknown.",
			Params: map[string]contractx.Param{
				"intent": {Type: "string", Desc: "One of: order, reservation, unknown", Required: true},
				"text":   {Type: "string", Desc: "The caller utterance being classified", Required: false},
			},
		},
	}
}

func (a *IntentClassifier) Execute(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	if call.Name != "classify_intent" {
		return unknownAction(call, a.name)
	}

	raw, err := argString(call.Args, "intent")
	if err != nil {
		return contractx.ActionResult{Name: call.Name, Error: err.Error()}
	}

	switch contractx.Intent(raw) {
	case contractx.IntentOrder:
		return a.resolve(contractx.IntentOrder, sessionx.PersonaOrder)
	case contractx.IntentReservation:
		return a.resolve(contractx.IntentReservation, sessionx.PersonaReservation)
	case contractx.IntentUnknown:
		a.sess.ClassifyAttempts++
		if a.sess.ClassifyAttempts >= a.policy.MaxClassifyAttempts {
			target := sessionx.PersonaOrder
			if a.policy.FallbackIntent == contractx.IntentReservation {
				target = sessionx.PersonaReservation
			}
			log.Info().
				Str("call_id", a.sess.Meta.CallID).
				Int("attempts", a.sess.ClassifyAttempts).
				Str("fallback", string(a.policy.FallbackIntent)).
				Msg("intent classification exhausted, applying fallback")
			return a.resolve(a.policy.FallbackIntent, target)
		}
		return contractx.ActionResult{
			Name:   call.Name,
			Result: fmt.Sprintf("intent still unknown after %d attempt(s), ask again", a.sess.ClassifyAttempts),
		}
	default:
		return contractx.ActionResult{
			Name:  call.Name,
			Error: fmt.Sprintf("intent must be one of order, reservation, unknown; got %q", raw),
		}
	}
}

func (a *IntentClassifier) resolve(intent contractx.Intent, target string) contractx.ActionResult {
	a.sess.Intent = intent
	a.sess.RequestHandoff(target)
	return contractx.ActionResult{
		Name:   "classify_intent",
		Result: fmt.Sprintf("intent=%s, handing off to %s", intent, target),
	}
}
