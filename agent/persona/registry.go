package persona

import (
	contractx "github.com/BrianMwas/vocare/agent/contract"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// Options bundles what every persona constructor shares.
type Options struct {
	Restaurant string
	Policy     Policy
	Store      contractx.Store
	Notifier   contractx.Notifier
}

// RegisterAll constructs the four persona variants for one call and registers
// them on the session. Personas are created once per call; they stay
// stateless across turns except through the shared session.
func RegisterAll(sess *sessionx.Session, cache *menux.Cache, cfg llmx.Config, opts Options) {
	sess.RegisterPersona(sessionx.PersonaIntentClassifier,
		NewIntentClassifier(sess, cache, cfg, opts.Restaurant, opts.Policy))
	sess.RegisterPersona(sessionx.PersonaOrder,
		NewOrder(sess, cache, cfg, opts.Restaurant))
	sess.RegisterPersona(sessionx.PersonaReservation,
		NewReservation(sess, cache, cfg, opts.Restaurant))
	sess.RegisterPersona(sessionx.PersonaConfirmation,
		NewConfirmation(sess, cache, cfg, opts.Restaurant, opts.Store, opts.Notifier))
}
