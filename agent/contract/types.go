package contract

import "context"

// CallType distinguishes how the call reached us. Closed set; consumers
// switch exhaustively.
type CallType string

const (
	CallTypeWeb CallType = "web_session"
	CallTypeSIP CallType = "inbound_sip"
)

// Intent is the result of classifying the caller's opening request.
type Intent string

const (
	IntentOrder       Intent = "order"
	IntentReservation Intent = "reservation"
	IntentUnknown     Intent = "unknown"
)

// CallMetadata identifies one call for its whole lifetime. Web sessions carry
// the sentinel caller/called numbers set by the transport layer.
type CallMetadata struct {
	CallID       string   `json:"call_id"`
	CallerNumber string   `json:"caller_number"`
	CalledNumber string   `json:"called_number"`
	CallType     CallType `json:"call_type"`
}

// MenuItem is one catalog entry. Immutable once loaded; the menu cache
// replaces items wholesale on refresh.
type MenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Allergens   []string `json:"allergens,omitempty"`
	Available   bool     `json:"available"`
}

// ActionSpec describes one callable operation a persona exposes to the
// dialogue service.
type ActionSpec struct {
	Name   string           `json:"name"`
	Desc   string           `json:"desc"`
	Params map[string]Param `json:"params,omitempty"`
}

// Param describes a single action argument.
type Param struct {
	Type     string `json:"type"`
	Desc     string `json:"desc"`
	Required bool   `json:"required"`
}

// ActionCall is the dialogue service invoking one persona action.
type ActionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ActionResult carries the outcome of one action. Error is caller-visible
// text the persona can speak back; it is not a turn failure.
type ActionResult struct {
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message is one entry of the conversation history handed to the dialogue
// service.
type Message struct {
	Role    string `json:"role"` // "system" | "assistant" | "user"
	Content string `json:"content"`
}

// TurnRequest is everything the dialogue service needs for one turn of the
// active persona.
type TurnRequest struct {
	Instructions string       `json:"instructions"`
	History      []Message    `json:"history,omitempty"`
	Actions      []ActionSpec `json:"actions,omitempty"`
}

// TurnResponse is the service's next utterance plus any actions it invoked.
type TurnResponse struct {
	Utterance string       `json:"utterance"`
	Actions   []ActionCall `json:"actions,omitempty"`
}

// OrderLine is one item of an in-progress order.
type OrderLine struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Modification string `json:"modification,omitempty"`
}

// OrderRecord is the finalized order handed to the persistent store.
type OrderRecord struct {
	CallID       string      `json:"call_id"`
	CallerNumber string      `json:"caller_number"`
	Lines        []OrderLine `json:"lines"`
}

// ReservationRecord is the finalized reservation handed to the persistent store.
type ReservationRecord struct {
	CallID       string `json:"call_id"`
	CallerNumber string `json:"caller_number"`
	PartySize    int    `json:"party_size"`
	At           string `json:"at"` // RFC 3339
}

// Turner is implemented by anything that can drive one dialogue round trip.
type Turner interface {
	Turn(ctx context.Context, req TurnRequest) (TurnResponse, error)
}
