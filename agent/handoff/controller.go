// Package handoff drives the persona state machine for one call.
package handoff

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	personax "github.com/BrianMwas/vocare/agent/persona"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

var ErrInvalidTransition = errors.New("invalid persona transition")

// transitions is the default policy: which targets each persona may hand off
// to. The end-of-call target is reachable from confirmation only; the error
// path in the call entrypoint may end the call from anywhere.
var transitions = map[string][]string{
	sessionx.PersonaIntentClassifier: {sessionx.PersonaOrder, sessionx.PersonaReservation},
	sessionx.PersonaOrder:            {sessionx.PersonaConfirmation},
	sessionx.PersonaReservation:      {sessionx.PersonaConfirmation},
	sessionx.PersonaConfirmation:     {personax.EndOfCall},
}

// Controller tracks which persona owns the conversation. At most one persona
// is active at any time; Apply is the only way activation changes.
type Controller struct {
	sess   *sessionx.Session
	active string
	done   bool
}

// New starts the state machine with the intent classifier active.
func New(sess *sessionx.Session) (*Controller, error) {
	if _, err := sess.LookupPersona(sessionx.PersonaIntentClassifier); err != nil {
		return nil, err
	}
	return &Controller{
		sess:   sess,
		active: sessionx.PersonaIntentClassifier,
	}, nil
}

// Active returns the currently active persona.
func (c *Controller) Active() (contractx.PersonaAgent, error) {
	if c.done {
		return nil, fmt.Errorf("%w: call has ended", ErrInvalidTransition)
	}
	return c.sess.LookupPersona(c.active)
}

// ActiveName returns the active persona name, or empty once the call ended.
func (c *Controller) ActiveName() string {
	if c.done {
		return ""
	}
	return c.active
}

// Done reports whether the call reached its terminal state.
func (c *Controller) Done() bool { return c.done }

// Apply transitions activation to target. The target persona starts fresh
// with its own rendered instructions; the shared session carries everything
// else forward. A target equal to the current persona is a no-op.
func (c *Controller) Apply(target string) error {
	if c.done {
		return fmt.Errorf("%w: call has ended", ErrInvalidTransition)
	}
	if target == c.active {
		return nil
	}

	if !allowed(c.active, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.active, target)
	}

	if target != personax.EndOfCall {
		if _, err := c.sess.LookupPersona(target); err != nil {
			return err
		}
	}

	log.Info().
		Str("from", c.active).
		Str("to", target).
		Str("call_id", c.sess.Meta.CallID).
		Msg("persona handoff")

	if target == personax.EndOfCall {
		c.done = true
		c.active = ""
		return nil
	}
	c.active = target
	return nil
}

// End terminates the call regardless of the active persona. Used by the
// entrypoint's error path.
func (c *Controller) End(reason string) {
	if c.done {
		return
	}
	log.Info().
		Str("from", c.active).
		Str("to", personax.EndOfCall).
		Str("call_id", c.sess.Meta.CallID).
		Str("reason", reason).
		Msg("call ended")
	c.done = true
	c.active = ""
}

func allowed(from, to string) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
