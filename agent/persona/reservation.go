package persona

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// Reservation collects party size and a concrete future time on the shared
// session, then hands off to confirmation.
type Reservation struct {
	base
}

func NewReservation(sess *sessionx.Session, cache *menux.Cache, cfg llmx.Config, restaurant string) *Reservation {
	if restaurant == "" {
		restaurant = defaultRestaurantName
	}
	return &Reservation{
		base: base{
			name:       sessionx.PersonaReservation,
			sess:       sess,
			cache:      cache,
			cfg:        cfg,
			restaurant: restaurant,
		},
	}
}

func (a *Reservation) RenderInstructions() string {
	return a.header("You help the caller book a table.") +
		a.customerSection() +
		"\nGUIDELINES:\n" +
		"- Collect the party size and the desired date and time.\n" +
		"- Pass times to set_time in RFC 3339 format, e.g. 2025-06-01T19:30:00Z.\n" +
		"- Reservations must be in the future; ask again if the time has already passed.\n" +
		"- When both details are set, call request_handoff with target \"confirmation\".\n"
}

func (a *Reservation) Actions() []contractx.ActionSpec {
	return []contractx.ActionSpec{
		{
			Name: "set_party_size",
			Desc: "Record how many people the reservation is for.",
			Params: map[string]contractx.Param{
				"size": {Type: "integer", Desc: "Positive party size", Required: true},
			},
		},
		{
			Name: "set_time",
			Desc: "Record the reservation time.",
			Params: map[string]contractx.Param{
				"time": {Type: "string", Desc: "RFC 3339 timestamp", Required: true},
			},
		},
		handoffSpec(),
	}
}

func (a *Reservation) Execute(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	switch call.Name {
	case "set_party_size":
		size, err := argInt(call.Args, "size")
		if err != nil {
			return contractx.ActionResult{Name: call.Name, Error: err.Error()}
		}
		if err := a.sess.EnsureReservation().SetPartySize(size); err != nil {
			return contractx.ActionResult{Name: call.Name, Error: err.Error()}
		}
		return contractx.ActionResult{Name: call.Name, Result: fmt.Sprintf("party size set to %d", size)}
	case "set_time":
		raw, err := argString(call.Args, "time")
		if err != nil {
			return contractx.ActionResult{Name: call.Name, Error: err.Error()}
		}
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return contractx.ActionResult{
				Name:  call.Name,
				Error: fmt.Errorf("%w: could not parse %q", contractx.ErrInvalidReservationTime, raw).Error(),
			}
		}
		if err := a.sess.EnsureReservation().SetTime(at, a.sess.StartedAt); err != nil {
			return contractx.ActionResult{Name: call.Name, Error: err.Error()}
		}
		return contractx.ActionResult{Name: call.Name, Result: fmt.Sprintf("time set to %s", at.UTC().Format(time.RFC3339))}
	case "request_handoff":
		return a.executeHandoff(call)
	default:
		return unknownAction(call, a.name)
	}
}
