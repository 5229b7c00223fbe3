package contract

import "context"

// DialogueService is the recognition/generation/synthesis round trip. The
// implementation owns its own timeouts; callers treat a failure as a
// recoverable per-turn error.
type DialogueService interface {
	Turner
}

// Store is the persistent-store collaborator. All calls may fail transiently;
// callers log and degrade rather than aborting the call.
type Store interface {
	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	SaveOrder(ctx context.Context, rec OrderRecord) error
	SaveReservation(ctx context.Context, rec ReservationRecord) error
	LookupCustomer(ctx context.Context, callerNumber string) (string, error)
}

// TransportMetadata is the raw call identity the transport layer supplies
// before normalization.
type TransportMetadata struct {
	RoomID          string
	SIPCallID       string
	SIPCallerNumber string
	SIPCalledNumber string
	IsSIP           bool
}

// Transport supplies call metadata and the text turn boundary. The core
// neither parses nor transports audio. NextUtterance returns ErrCallClosed
// once the caller hangs up.
type Transport interface {
	Metadata() TransportMetadata
	NextUtterance(ctx context.Context) (string, error)
	Say(ctx context.Context, text string) error
}

// PersonaAgent is one variant of conversational behavior. At most one agent
// is active for a given call at any time; activation changes only through a
// handoff.
type PersonaAgent interface {
	Name() string
	RenderInstructions() string
	Actions() []ActionSpec
	Execute(ctx context.Context, call ActionCall) ActionResult
}

// Notifier pushes a best-effort notification once a record is finalized.
type Notifier interface {
	OrderReady(ctx context.Context, rec OrderRecord) error
	ReservationBooked(ctx context.Context, rec ReservationRecord) error
}
