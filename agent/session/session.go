// Package session holds the shared mutable record for one ongoing call.
package session

import (
	"fmt"
	"time"

	contractx "github.com/BrianMwas/vocare/agent/contract"
)

// Persona names as registered on every session. The handoff controller
// resolves targets by these names.
const (
	PersonaIntentClassifier = "intent_classifier"
	PersonaOrder            = "order"
	PersonaReservation      = "reservation"
	PersonaConfirmation     = "confirmation"
)

// Session is the single mutable record for one call. It is owned by the
// call's entrypoint, referenced by every persona and the handoff controller,
// and destroyed when the call ends. One call is driven by a single turn loop,
// so no locking is needed here.
type Session struct {
	Meta      contractx.CallMetadata
	StartedAt time.Time

	// Intent stays empty until classification completes.
	Intent contractx.Intent

	Order       *Order
	Reservation *Reservation

	// CustomerHistory is populated when the caller is recognized.
	CustomerHistory string

	// ClassifyAttempts counts classification turns that returned unknown.
	ClassifyAttempts int

	personas       map[string]contractx.PersonaAgent
	pendingHandoff string
}

func New(meta contractx.CallMetadata, startedAt time.Time) *Session {
	return &Session{
		Meta:      meta,
		StartedAt: startedAt.UTC(),
		personas:  make(map[string]contractx.PersonaAgent, 4),
	}
}

// RegisterPersona adds an agent to the session registry under name.
func (s *Session) RegisterPersona(name string, agent contractx.PersonaAgent) {
	if s.personas == nil {
		s.personas = make(map[string]contractx.PersonaAgent, 4)
	}
	s.personas[name] = agent
}

// LookupPersona resolves a registered agent by name.
func (s *Session) LookupPersona(name string) (contractx.PersonaAgent, error) {
	agent, ok := s.personas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownPersona, name)
	}
	return agent, nil
}

// RequestHandoff records a handoff intent. Activation does not change here;
// the handoff controller consumes the intent after the current turn completes
// so a handoff never lands mid-turn.
func (s *Session) RequestHandoff(target string) {
	s.pendingHandoff = target
}

// TakeHandoff consumes and clears the recorded handoff intent.
func (s *Session) TakeHandoff() (string, bool) {
	target := s.pendingHandoff
	s.pendingHandoff = ""
	return target, target != ""
}

/* --------------------------------- Order --------------------------------- */

// Order is the in-progress order being accumulated across turns.
type Order struct {
	Lines     []contractx.OrderLine
	Finalized bool
}

// EnsureOrder lazily creates the in-progress order.
func (s *Session) EnsureOrder() *Order {
	if s.Order == nil {
		s.Order = &Order{}
	}
	return s.Order
}

// AddLine appends or merges one line. Quantity must be positive.
func (o *Order) AddLine(item contractx.MenuItem, quantity int, modification string) error {
	if o.Finalized {
		return fmt.Errorf("%w: order", contractx.ErrAlreadyFinalized)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", contractx.ErrValidation, quantity)
	}
	for i := range o.Lines {
		if o.Lines[i].ItemID == item.ID && o.Lines[i].Modification == modification {
			o.Lines[i].Quantity += quantity
			return nil
		}
	}
	o.Lines = append(o.Lines, contractx.OrderLine{
		ItemID:       item.ID,
		Name:         item.Name,
		Quantity:     quantity,
		Modification: modification,
	})
	return nil
}

// RemoveLine drops every line for itemID.
func (o *Order) RemoveLine(itemID string) error {
	if o.Finalized {
		return fmt.Errorf("%w: order", contractx.ErrAlreadyFinalized)
	}
	kept := o.Lines[:0]
	found := false
	for _, l := range o.Lines {
		if l.ItemID == itemID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	o.Lines = kept
	if !found {
		return fmt.Errorf("%w: %s is not on the order", contractx.ErrValidation, itemID)
	}
	return nil
}

// SetQuantity replaces the quantity of the first line for itemID.
func (o *Order) SetQuantity(itemID string, quantity int) error {
	if o.Finalized {
		return fmt.Errorf("%w: order", contractx.ErrAlreadyFinalized)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", contractx.ErrValidation, quantity)
	}
	for i := range o.Lines {
		if o.Lines[i].ItemID == itemID {
			o.Lines[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not on the order", contractx.ErrValidation, itemID)
}

// Record converts the in-progress order into the persistence record.
func (o *Order) Record(meta contractx.CallMetadata) contractx.OrderRecord {
	return contractx.OrderRecord{
		CallID:       meta.CallID,
		CallerNumber: meta.CallerNumber,
		Lines:        append([]contractx.OrderLine(nil), o.Lines...),
	}
}

/* ------------------------------ Reservation ------------------------------ */

// Reservation is the in-progress reservation being accumulated across turns.
type Reservation struct {
	PartySize int
	At        time.Time
	Finalized bool
}

// EnsureReservation lazily creates the in-progress reservation.
func (s *Session) EnsureReservation() *Reservation {
	if s.Reservation == nil {
		s.Reservation = &Reservation{}
	}
	return s.Reservation
}

// SetPartySize requires a positive party size.
func (r *Reservation) SetPartySize(n int) error {
	if r.Finalized {
		return fmt.Errorf("%w: reservation", contractx.ErrAlreadyFinalized)
	}
	if n <= 0 {
		return fmt.Errorf("%w: party size must be positive, got %d", contractx.ErrValidation, n)
	}
	r.PartySize = n
	return nil
}

// SetTime requires a concrete time strictly after the call's start.
func (r *Reservation) SetTime(at time.Time, callStart time.Time) error {
	if r.Finalized {
		return fmt.Errorf("%w: reservation", contractx.ErrAlreadyFinalized)
	}
	if at.IsZero() || !at.After(callStart) {
		return fmt.Errorf("%w: %s is not in the future", contractx.ErrInvalidReservationTime, at.Format(time.RFC3339))
	}
	r.At = at.UTC()
	return nil
}

// Record converts the in-progress reservation into the persistence record.
func (r *Reservation) Record(meta contractx.CallMetadata) contractx.ReservationRecord {
	return contractx.ReservationRecord{
		CallID:       meta.CallID,
		CallerNumber: meta.CallerNumber,
		PartySize:    r.PartySize,
		At:           r.At.Format(time.RFC3339),
	}
}
