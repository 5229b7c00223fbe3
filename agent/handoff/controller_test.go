package handoff

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	personax "github.com/BrianMwas/vocare/agent/persona"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

type stubAgent struct{ name string }

func (s *stubAgent) Name() string                    { return s.name }
func (s *stubAgent) RenderInstructions() string      { return "" }
func (s *stubAgent) Actions() []contractx.ActionSpec { return nil }
func (s *stubAgent) Execute(ctx context.Context, call contractx.ActionCall) contractx.ActionResult {
	return contractx.ActionResult{Name: call.Name}
}

func sessionWithPersonas(names ...string) *sessionx.Session {
	sess := sessionx.New(contractx.CallMetadata{CallID: "call-1"}, time.Now())
	for _, name := range names {
		sess.RegisterPersona(name, &stubAgent{name: name})
	}
	return sess
}

func allPersonas() *sessionx.Session {
	return sessionWithPersonas(
		sessionx.PersonaIntentClassifier,
		sessionx.PersonaOrder,
		sessionx.PersonaReservation,
		sessionx.PersonaConfirmation,
	)
}

func TestNewRequiresIntentClassifier(t *testing.T) {
	t.Parallel()

	_, err := New(sessionWithPersonas(sessionx.PersonaOrder))
	if !errors.Is(err, contractx.ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona, got %v", err)
	}

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if ctrl.ActiveName() != sessionx.PersonaIntentClassifier {
		t.Fatalf("initial active = %s, want intent_classifier", ctrl.ActiveName())
	}
}

func TestApplyFollowsTransitionTable(t *testing.T) {
	t.Parallel()

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	steps := []string{sessionx.PersonaOrder, sessionx.PersonaConfirmation, personax.EndOfCall}
	for _, target := range steps {
		if err := ctrl.Apply(target); err != nil {
			t.Fatalf("Apply(%s) error = %v", target, err)
		}
	}
	if !ctrl.Done() {
		t.Fatal("expected terminal state after end_of_call")
	}
	if ctrl.ActiveName() != "" {
		t.Fatalf("active after end = %q, want empty", ctrl.ActiveName())
	}
}

func TestApplyReservationPath(t *testing.T) {
	t.Parallel()

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := ctrl.Apply(sessionx.PersonaReservation); err != nil {
		t.Fatalf("Apply(reservation) error = %v", err)
	}
	if err := ctrl.Apply(sessionx.PersonaConfirmation); err != nil {
		t.Fatalf("Apply(confirmation) error = %v", err)
	}
}

func TestApplyRejectsOffTableTransitions(t *testing.T) {
	t.Parallel()

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// The classifier may not skip straight to confirmation or end the call.
	for _, target := range []string{sessionx.PersonaConfirmation, personax.EndOfCall} {
		err := ctrl.Apply(target)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Apply(%s): expected ErrInvalidTransition, got %v", target, err)
		}
	}
	if ctrl.ActiveName() != sessionx.PersonaIntentClassifier {
		t.Fatal("rejected transition must not change activation")
	}
}

func TestApplySelfTransitionIsNoOp(t *testing.T) {
	t.Parallel()

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := ctrl.Apply(sessionx.PersonaIntentClassifier); err != nil {
		t.Fatalf("self transition error = %v", err)
	}
	if ctrl.ActiveName() != sessionx.PersonaIntentClassifier {
		t.Fatal("self transition must keep activation")
	}
}

func TestApplyAfterEndRejected(t *testing.T) {
	t.Parallel()

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctrl.End("caller hung up")

	if !ctrl.Done() {
		t.Fatal("End must reach the terminal state")
	}
	if err := ctrl.Apply(sessionx.PersonaOrder); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Apply after end: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := ctrl.Active(); err == nil {
		t.Fatal("Active after end must fail")
	}
}

func TestActiveResolvesRegisteredAgent(t *testing.T) {
	t.Parallel()

	ctrl, err := New(allPersonas())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	agent, err := ctrl.Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if agent.Name() != sessionx.PersonaIntentClassifier {
		t.Fatalf("active agent = %s, want intent_classifier", agent.Name())
	}
}
