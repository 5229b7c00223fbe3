package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// Confirmation reads the accumulated order or reservation back to the caller
// and, on their go-ahead, persists it. It never mutates the in-progress
// records except to mark them finalized.
type Confirmation struct {
	base
	store    contractx.Store
	notifier contractx.Notifier
}

func NewConfirmation(
	sess *sessionx.Session,
	cache *menux.Cache,
	cfg llmx.Config,
	restaurant string,
	store contractx.Store,
	notifier contractx.Notifier,
) *Confirmation {
	if restaurant == "" {
		restaurant = defaultRestaurantName
	}
	return &Confirmation{
		base: base{
			name:       sessionx.PersonaConfirmation,
			sess:       sess,
			cache:      cache,
			cfg:        cfg,
			restaurant: restaurant,
		},
		store:    store,
		notifier: notifier,
	}
}

func (a *Confirmation) RenderInstructions() string {
	var sb strings.Builder
	sb.WriteString(a.header("You read the caller's request back to them and finalize it once they confirm."))
	sb.WriteString(a.menuSection())
	sb.WriteString(a.customerSection())

	if o := a.sess.Order; o != nil && len(o.Lines) > 0 {
		sb.WriteString("\nORDER TO CONFIRM:\n")
		for _, line := range o.Lines {
			mod := ""
			if line.Modification != "" {
				mod = fmt.Sprintf(" (%s)", line.Modification)
			}
			fmt.Fprintf(&sb, "- %dx %s%s\n", line.Quantity, line.Name, mod)
		}
	}
	if r := a.sess.Reservation; r != nil && r.PartySize > 0 {
		fmt.Fprintf(&sb, "\nRESERVATION TO CONFIRM:\n- party of %d at %s\n", r.PartySize, r.At.Format(time.RFC3339))
	}

	sb.WriteString("\nGUIDELINES:\n")
	sb.WriteString("- Read the details back clearly before finalizing.\n")
	sb.WriteString("- Call finalize_order or finalize_reservation only after the caller agrees.\n")
	sb.WriteString("- Thank the caller and give an estimated pickup time after finalizing.\n")
	return sb.String()
}

func (a *Confirmation) Actions() []contractx.ActionSpec {
	return []contractx.ActionSpec{
		{Name: "finalize_order", Desc: "Persist the confirmed order."},
		{Name: "finalize_reservation", Desc: "Persist the confirmed reservation."},
	}
}

func (a *Confirmation) Execute(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	switch call.Name {
	case "finalize_order":
		return a.finalizeOrder(ctx, call)
	case "finalize_reservation":
		return a.finalizeReservation(ctx, call)
	default:
		return unknownAction(call, a.name)
	}
}

func (a *Confirmation) finalizeOrder(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	o := a.sess.Order
	if o == nil || len(o.Lines) == 0 {
		return contractx.ActionResult{Name: call.Name, Error: "there is no order to finalize"}
	}
	if o.Finalized {
		return contractx.ActionResult{
			Name:  call.Name,
			Error: fmt.Errorf("%w: order", contractx.ErrAlreadyFinalized).Error(),
		}
	}

	rec := o.Record(a.sess.Meta)
	if err := a.store.SaveOrder(ctx, rec); err != nil {
		log.Error().Err(err).Str("call_id", a.sess.Meta.CallID).Msg("save order failed")
		return contractx.ActionResult{Name: call.Name, Error: "saving the order failed, please try again"}
	}
	o.Finalized = true

	if a.notifier != nil {
		if err := a.notifier.OrderReady(ctx, rec); err != nil {
			log.Warn().Err(err).Str("call_id", a.sess.Meta.CallID).Msg("order notification failed")
		}
	}

	a.sess.RequestHandoff(EndOfCall)
	return contractx.ActionResult{Name: call.Name, Result: "order finalized"}
}

func (a *Confirmation) finalizeReservation(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	r := a.sess.Reservation
	if r == nil || r.PartySize <= 0 || r.At.IsZero() {
		return contractx.ActionResult{Name: call.Name, Error: "the reservation is missing its party size or time"}
	}
	if r.Finalized {
		return contractx.ActionResult{
			Name:  call.Name,
			Error: fmt.Errorf("%w: reservation", contractx.ErrAlreadyFinalized).Error(),
		}
	}

	rec := r.Record(a.sess.Meta)
	if err := a.store.SaveReservation(ctx, rec); err != nil {
		log.Error().Err(err).Str("call_id", a.sess.Meta.CallID).Msg("save reservation failed")
		return contractx.ActionResult{Name: call.Name, Error: "saving the reservation failed, please try again"}
	}
	r.Finalized = true

	if a.notifier != nil {
		if err := a.notifier.ReservationBooked(ctx, rec); err != nil {
			log.Warn().Err(err).Str("call_id", a.sess.Meta.CallID).Msg("reservation notification failed")
		}
	}

	a.sess.RequestHandoff(EndOfCall)
	return contractx.ActionResult{Name: call.Name, Result: "reservation finalized"}
}
