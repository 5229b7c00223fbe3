package call

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	menux "github.com/BrianMwas/vocare/agent/menu"
	personax "github.com/BrianMwas/vocare/agent/persona"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

type fakeStore struct {
	items        []contractx.MenuItem
	listErr      error
	orders       []contractx.OrderRecord
	reservations []contractx.ReservationRecord
	history      string
	lookupErr    error
}

func (f *fakeStore) ListMenuItems(ctx context.Context) ([]contractx.MenuItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeStore) SaveOrder(ctx context.Context, rec contractx.OrderRecord) error {
	f.orders = append(f.orders, rec)
	return nil
}

func (f *fakeStore) SaveReservation(ctx context.Context, rec contractx.ReservationRecord) error {
	f.reservations = append(f.reservations, rec)
	return nil
}

func (f *fakeStore) LookupCustomer(ctx context.Context, callerNumber string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.history, nil
}

// scriptedService returns canned turn responses in order and records every
// request it saw.
type scriptedService struct {
	responses []contractx.TurnResponse
	err       error
	idx       int
	requests  []contractx.TurnRequest
}

func (s *scriptedService) Turn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return contractx.TurnResponse{}, s.err
	}
	if s.idx >= len(s.responses) {
		return contractx.TurnResponse{}, errors.New("no scripted response left")
	}
	resp := s.responses[s.idx]
	s.idx++
	return resp, nil
}

type fakeTransport struct {
	meta       contractx.TransportMetadata
	utterances []string
	idx        int
	said       []string
}

func (f *fakeTransport) Metadata() contractx.TransportMetadata { return f.meta }

func (f *fakeTransport) NextUtterance(ctx context.Context) (string, error) {
	if f.idx >= len(f.utterances) {
		return "", contractx.ErrCallClosed
	}
	u := f.utterances[f.idx]
	f.idx++
	return u, nil
}

func (f *fakeTransport) Say(ctx context.Context, text string) error {
	f.said = append(f.said, text)
	return nil
}

func webTransport(utterances ...string) *fakeTransport {
	return &fakeTransport{
		meta:       contractx.TransportMetadata{RoomID: "room-1"},
		utterances: utterances,
	}
}

func loadedCache(t *testing.T, store *fakeStore) *menux.Cache {
	t.Helper()
	cache := menux.NewCache()
	cache.Refresh(context.Background(), store)
	return cache
}

func services(classifier, order, reservation, confirmation contractx.DialogueService) map[string]contractx.DialogueService {
	return map[string]contractx.DialogueService{
		sessionx.PersonaIntentClassifier: classifier,
		sessionx.PersonaOrder:            order,
		sessionx.PersonaReservation:      reservation,
		sessionx.PersonaConfirmation:     confirmation,
	}
}

func say(text string) contractx.TurnResponse {
	return contractx.TurnResponse{Utterance: text}
}

func TestNormalizeMetadata(t *testing.T) {
	t.Parallel()

	sip := NormalizeMetadata(contractx.TransportMetadata{
		IsSIP:           true,
		SIPCallID:       "sip-abc",
		SIPCallerNumber: "+15550001111",
		SIPCalledNumber: "+15559998888",
	})
	if sip.CallType != contractx.CallTypeSIP || sip.CallID != "sip-abc" {
		t.Fatalf("unexpected SIP metadata: %#v", sip)
	}
	if sip.CallerNumber != "+15550001111" || sip.CalledNumber != "+15559998888" {
		t.Fatalf("unexpected SIP numbers: %#v", sip)
	}

	web := NormalizeMetadata(contractx.TransportMetadata{RoomID: "room-1"})
	if web.CallType != contractx.CallTypeWeb || web.CallID != "room-1" {
		t.Fatalf("unexpected web metadata: %#v", web)
	}
	if web.CallerNumber != WebNumberSentinel || web.CalledNumber != WebNumberSentinel {
		t.Fatalf("expected sentinel numbers, got %#v", web)
	}

	anon := NormalizeMetadata(contractx.TransportMetadata{})
	if anon.CallID == "" {
		t.Fatal("web session without a room must get a generated call id")
	}
}

func TestNewRequiresEveryPersonaService(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	deps := Deps{
		Cache:    menux.NewCache(),
		Store:    store,
		Services: services(&scriptedService{}, &scriptedService{}, &scriptedService{}, nil),
	}
	if _, err := New(deps, Config{}); err == nil {
		t.Fatal("expected error for missing confirmation service")
	}

	deps.Services = services(&scriptedService{}, &scriptedService{}, &scriptedService{}, &scriptedService{})
	if _, err := New(deps, Config{}); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

// Full order path: greeting, classification, one item, confirmation, persisted
// exactly once.
func TestRunCallOrderScenario(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		items: []contractx.MenuItem{
			{ID: "margherita-pizza", Name: "Margherita Pizza", Category: "pizza", Price: 14, Available: true},
		},
	}

	classifier := &scriptedService{responses: []contractx.TurnResponse{
		say("Hello! Thank you for calling Bella's Italian Kitchen. How can I help you today?"),
		{
			Utterance: "An order, wonderful.",
			Actions: []contractx.ActionCall{
				{Name: "classify_intent", Args: map[string]any{"intent": "order"}},
			},
		},
	}}
	order := &scriptedService{responses: []contractx.TurnResponse{
		{
			Utterance: "Two Margherita pizzas, anything else?",
			Actions: []contractx.ActionCall{
				{Name: "add_item", Args: map[string]any{"item_id": "margherita-pizza", "quantity": float64(2)}},
				{Name: "request_handoff", Args: map[string]any{"target": "confirmation"}},
			},
		},
	}}
	confirmation := &scriptedService{responses: []contractx.TurnResponse{
		{
			Utterance: "Your order is confirmed, see you in twenty minutes!",
			Actions: []contractx.ActionCall{
				{Name: "finalize_order"},
			},
		},
	}}

	entry, err := New(Deps{
		Cache:    loadedCache(t, store),
		Store:    store,
		Services: services(classifier, order, &scriptedService{}, confirmation),
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := webTransport(
		"I'd like to place an order",
		"two margherita pizzas please, that's all",
		"yes that's right",
	)
	entry.RunCall(context.Background(), transport)

	if len(store.orders) != 1 {
		t.Fatalf("persisted orders = %d, want 1", len(store.orders))
	}
	rec := store.orders[0]
	if rec.CallID != "room-1" {
		t.Fatalf("record call id = %s, want room-1", rec.CallID)
	}
	if len(rec.Lines) != 1 || rec.Lines[0].ItemID != "margherita-pizza" || rec.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected order record: %#v", rec)
	}

	if len(transport.said) != 4 {
		t.Fatalf("replies = %d, want 4: %#v", len(transport.said), transport.said)
	}
	if !strings.Contains(transport.said[0], "Bella's Italian Kitchen") {
		t.Fatalf("unexpected greeting: %s", transport.said[0])
	}
	if transport.idx != len(transport.utterances) {
		t.Fatalf("consumed %d utterances, want %d", transport.idx, len(transport.utterances))
	}
}

// A menu load failure degrades the order persona to a menu-less prompt; the
// call itself still runs.
func TestRunCallWithEmptyMenuCache(t *testing.T) {
	t.Parallel()

	store := &fakeStore{listErr: errors.New("connection refused")}
	cache := menux.NewCache()
	cache.Refresh(context.Background(), store)

	classifier := &scriptedService{responses: []contractx.TurnResponse{
		say("Hello! How can I help you today?"),
		{
			Utterance: "Sure, what would you like?",
			Actions: []contractx.ActionCall{
				{Name: "classify_intent", Args: map[string]any{"intent": "order"}},
			},
		},
	}}
	order := &scriptedService{responses: []contractx.TurnResponse{
		say("I'm sorry, I can't pull up the menu right now."),
	}}

	entry, err := New(Deps{
		Cache:    cache,
		Store:    store,
		Services: services(classifier, order, &scriptedService{}, &scriptedService{}),
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := webTransport("I want to order", "a pizza please")
	entry.RunCall(context.Background(), transport)

	if len(order.requests) != 1 {
		t.Fatalf("order persona turns = %d, want 1", len(order.requests))
	}
	if strings.Contains(order.requests[0].Instructions, "CURRENT MENU") {
		t.Fatal("empty cache must render no menu section")
	}
	if len(transport.said) != 3 {
		t.Fatalf("replies = %d, want 3: %#v", len(transport.said), transport.said)
	}
}

// Repeated unknown classifications trigger the configured fallback instead of
// looping forever.
func TestRunCallIntentFallback(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	unknownTurn := contractx.TurnResponse{
		Utterance: "Sorry, could you tell me a bit more?",
		Actions: []contractx.ActionCall{
			{Name: "classify_intent", Args: map[string]any{"intent": "unknown"}},
		},
	}
	classifier := &scriptedService{responses: []contractx.TurnResponse{
		say("Hello! How can I help you today?"),
		unknownTurn, unknownTurn, unknownTurn,
	}}
	order := &scriptedService{responses: []contractx.TurnResponse{
		say("Let's get you an order started. What would you like?"),
	}}

	entry, err := New(Deps{
		Cache:    menux.NewCache(),
		Store:    store,
		Services: services(classifier, order, &scriptedService{}, &scriptedService{}),
		Policy:   personax.Policy{MaxClassifyAttempts: 3, FallbackIntent: contractx.IntentOrder},
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := webTransport("mumble", "static", "mumble", "hello?")
	entry.RunCall(context.Background(), transport)

	if len(classifier.requests) != 4 {
		t.Fatalf("classifier turns = %d, want 4", len(classifier.requests))
	}
	if len(order.requests) != 1 {
		t.Fatalf("order persona turns = %d, want 1 after fallback", len(order.requests))
	}
}

// Consecutive dialogue failures beyond the retry budget end the call with the
// degraded farewell.
func TestRunCallRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	broken := &scriptedService{err: errors.New("upstream timeout")}
	entry, err := New(Deps{
		Cache:    menux.NewCache(),
		Store:    &fakeStore{},
		Services: services(broken, broken, broken, broken),
	}, Config{TurnRetries: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := webTransport("hello", "hello again", "are you there")
	entry.RunCall(context.Background(), transport)

	if len(transport.said) != 1 {
		t.Fatalf("replies = %d, want only the farewell: %#v", len(transport.said), transport.said)
	}
	if transport.said[0] != degradedFarewell {
		t.Fatalf("unexpected farewell: %s", transport.said[0])
	}
	if transport.idx >= len(transport.utterances) {
		t.Fatal("call must end before draining the caller")
	}
}

// A transient failure below the budget is retried and does not end the call.
func TestRunCallRecoversWithinBudget(t *testing.T) {
	t.Parallel()

	classifier := &scriptedService{responses: []contractx.TurnResponse{
		say("Hello! How can I help you today?"),
		say("I did not catch that, could you repeat it?"),
	}}
	// Fail exactly one turn in between.
	flaky := &flakyService{inner: classifier, failOn: 2}

	entry, err := New(Deps{
		Cache:    menux.NewCache(),
		Store:    &fakeStore{},
		Services: services(flaky, &scriptedService{}, &scriptedService{}, &scriptedService{}),
	}, Config{TurnRetries: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := webTransport("hello", "I said hello")
	entry.RunCall(context.Background(), transport)

	if len(transport.said) != 2 {
		t.Fatalf("replies = %d, want 2: %#v", len(transport.said), transport.said)
	}
}

// flakyService fails its nth call and delegates the rest.
type flakyService struct {
	inner  contractx.DialogueService
	failOn int
	calls  int
}

func (f *flakyService) Turn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error) {
	f.calls++
	if f.calls == f.failOn {
		return contractx.TurnResponse{}, errors.New("transient failure")
	}
	return f.inner.Turn(ctx, req)
}

func TestRunCallSIPCustomerLookup(t *testing.T) {
	t.Parallel()

	store := &fakeStore{history: "Regular since 2023. Usually orders the Diavola."}
	classifier := &scriptedService{responses: []contractx.TurnResponse{
		say("Hello again! The usual Diavola?"),
	}}

	entry, err := New(Deps{
		Cache:    menux.NewCache(),
		Store:    store,
		Services: services(classifier, &scriptedService{}, &scriptedService{}, &scriptedService{}),
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := &fakeTransport{meta: contractx.TransportMetadata{
		IsSIP:           true,
		SIPCallID:       "sip-abc",
		SIPCallerNumber: "+15550001111",
	}}
	entry.RunCall(context.Background(), transport)

	if len(classifier.requests) != 1 {
		t.Fatalf("classifier turns = %d, want 1", len(classifier.requests))
	}
	if !strings.Contains(classifier.requests[0].Instructions, "Usually orders the Diavola") {
		t.Fatal("expected recognized customer history in instructions")
	}
}

func TestRunCallLookupFailureDegrades(t *testing.T) {
	t.Parallel()

	store := &fakeStore{lookupErr: errors.New("connection reset")}
	classifier := &scriptedService{responses: []contractx.TurnResponse{
		say("Hello! How can I help you today?"),
	}}

	entry, err := New(Deps{
		Cache:    menux.NewCache(),
		Store:    store,
		Services: services(classifier, &scriptedService{}, &scriptedService{}, &scriptedService{}),
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	transport := &fakeTransport{meta: contractx.TransportMetadata{
		IsSIP:           true,
		SIPCallID:       "sip-abc",
		SIPCallerNumber: "+15550001111",
	}}
	entry.RunCall(context.Background(), transport)

	if len(transport.said) != 1 {
		t.Fatalf("replies = %d, want the greeting despite the failed lookup", len(transport.said))
	}
	if strings.Contains(classifier.requests[0].Instructions, "CUSTOMER CONTEXT") {
		t.Fatal("failed lookup must render no customer section")
	}
}
