// Package call bootstraps one call session and drives its turn loop.
package call

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	handoffx "github.com/BrianMwas/vocare/agent/handoff"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	personax "github.com/BrianMwas/vocare/agent/persona"
	sessionx "github.com/BrianMwas/vocare/agent/session"
)

// WebNumberSentinel stands in for caller/called numbers on web sessions.
const WebNumberSentinel = "web"

const degradedFarewell = "I'm having trouble right now, let me transfer you to a colleague. Thank you for calling."

type Config struct {
	Restaurant  string `envconfig:"RESTAURANT" split_words:"true" default:"Bella's Italian Kitchen"`
	TurnRetries int    `envconfig:"TURN_RETRIES" split_words:"true" default:"2"`
	MaxTurns    int    `envconfig:"MAX_TURNS" split_words:"true" default:"50"`
}

// Deps are the collaborators one Entrypoint serves every call with.
// Services maps persona name to the dialogue service driving its turns.
type Deps struct {
	Cache    *menux.Cache
	Store    contractx.Store
	Notifier contractx.Notifier
	Services map[string]contractx.DialogueService
	Policy   personax.Policy
	LLM      llmx.Config
}

// Entrypoint owns the top-level lifecycle of every call: session bootstrap,
// the turn loop, and the failure boundary that keeps one bad call from
// taking down its neighbors.
type Entrypoint struct {
	deps       Deps
	cfg        Config
	turnRunner compose.Runnable[turnInput, turnOutput]
	now        func() time.Time
}

func New(deps Deps, cfg Config) (*Entrypoint, error) {
	if deps.Cache == nil {
		return nil, errors.New("menu cache is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	for _, name := range []string{
		sessionx.PersonaIntentClassifier,
		sessionx.PersonaOrder,
		sessionx.PersonaReservation,
		sessionx.PersonaConfirmation,
	} {
		if deps.Services[name] == nil {
			return nil, fmt.Errorf("dialogue service for persona %q is required", name)
		}
	}
	if cfg.TurnRetries < 0 {
		cfg.TurnRetries = 0
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 50
	}

	runner, err := compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}

	return &Entrypoint{
		deps:       deps,
		cfg:        cfg,
		turnRunner: runner,
		now:        time.Now,
	}, nil
}

// NormalizeMetadata turns raw transport identity into call metadata. SIP
// calls carry their numbers from signaling; web sessions use the room id as
// call id (or a fresh uuid) and sentinel numbers.
func NormalizeMetadata(t contractx.TransportMetadata) contractx.CallMetadata {
	if t.IsSIP {
		return contractx.CallMetadata{
			CallID:       t.SIPCallID,
			CallerNumber: t.SIPCallerNumber,
			CalledNumber: t.SIPCalledNumber,
			CallType:     contractx.CallTypeSIP,
		}
	}

	callID := strings.TrimSpace(t.RoomID)
	if callID == "" {
		callID = uuid.NewString()
	}
	return contractx.CallMetadata{
		CallID:       callID,
		CallerNumber: WebNumberSentinel,
		CalledNumber: WebNumberSentinel,
		CallType:     contractx.CallTypeWeb,
	}
}

// RunCall drives one call to completion. It never returns a panic or an
// unhandled turn error to the caller; any fatal condition ends this call
// cleanly and is logged with full call context.
func (e *Entrypoint) RunCall(ctx context.Context, transport contractx.Transport) {
	meta := NormalizeMetadata(transport.Metadata())

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("call_id", meta.CallID).
				Str("call_type", string(meta.CallType)).
				Interface("panic", r).
				Msg("call loop panicked, terminating session")
		}
	}()

	sess := e.bootstrapSession(ctx, meta)
	ctrl, err := handoffx.New(sess)
	if err != nil {
		log.Error().Err(err).Str("call_id", meta.CallID).Msg("session bootstrap failed")
		return
	}

	log.Info().
		Str("call_id", meta.CallID).
		Str("call_type", string(meta.CallType)).
		Str("caller", meta.CallerNumber).
		Msg("call started")

	e.runLoop(ctx, transport, sess, ctrl)

	log.Info().Str("call_id", meta.CallID).Msg("call finished")
}

func (e *Entrypoint) bootstrapSession(ctx context.Context, meta contractx.CallMetadata) *sessionx.Session {
	sess := sessionx.New(meta, e.now())

	// Recognize returning SIP callers; web sessions have no number to look up.
	switch meta.CallType {
	case contractx.CallTypeSIP:
		history, err := e.deps.Store.LookupCustomer(ctx, meta.CallerNumber)
		if err != nil {
			log.Warn().Err(err).Str("call_id", meta.CallID).Msg("customer lookup failed, continuing without history")
		} else {
			sess.CustomerHistory = history
		}
	case contractx.CallTypeWeb:
	}

	personax.RegisterAll(sess, e.deps.Cache, e.deps.LLM, personax.Options{
		Restaurant: e.cfg.Restaurant,
		Policy:     e.deps.Policy,
		Store:      e.deps.Store,
		Notifier:   e.deps.Notifier,
	})
	return sess
}

func (e *Entrypoint) runLoop(
	ctx context.Context,
	transport contractx.Transport,
	sess *sessionx.Session,
	ctrl *handoffx.Controller,
) {
	var history []contractx.Message
	failures := 0

	// Greeting turn: the active persona speaks first, no caller utterance.
	e.runTurn(ctx, transport, sess, ctrl, &history, "", &failures)

	for turns := 1; !ctrl.Done() && turns < e.cfg.MaxTurns; turns++ {
		utterance, err := transport.NextUtterance(ctx)
		if err != nil {
			if errors.Is(err, contractx.ErrCallClosed) {
				ctrl.End("caller hung up")
				return
			}
			log.Warn().Err(err).Str("call_id", sess.Meta.CallID).Msg("transport receive failed")
			failures++
			if failures > e.cfg.TurnRetries {
				e.degrade(ctx, transport, ctrl, "transport failures exhausted retry budget")
				return
			}
			continue
		}

		e.runTurn(ctx, transport, sess, ctrl, &history, utterance, &failures)
		if failures > e.cfg.TurnRetries {
			e.degrade(ctx, transport, ctrl, "dialogue failures exhausted retry budget")
			return
		}
	}

	if !ctrl.Done() {
		ctrl.End("turn limit reached")
	}
}

// runTurn executes one turn against the active persona, delivers the reply,
// then applies any handoff the persona recorded. Collaborator failures count
// against the shared retry budget; domain errors never do.
func (e *Entrypoint) runTurn(
	ctx context.Context,
	transport contractx.Transport,
	sess *sessionx.Session,
	ctrl *handoffx.Controller,
	history *[]contractx.Message,
	utterance string,
	failures *int,
) {
	active, err := ctrl.Active()
	if err != nil {
		return
	}

	out, err := e.turnRunner.Invoke(ctx, turnInput{
		Active:    active,
		Service:   e.deps.Services[active.Name()],
		History:   *history,
		Utterance: utterance,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("call_id", sess.Meta.CallID).
			Str("persona", active.Name()).
			Msg("turn failed, will retry with clarification")
		*failures++
		return
	}
	*failures = 0

	if err := transport.Say(ctx, out.Reply); err != nil {
		log.Warn().Err(err).Str("call_id", sess.Meta.CallID).Msg("transport deliver failed")
		*failures++
		return
	}

	if utterance != "" {
		*history = append(*history, contractx.Message{Role: "user", Content: utterance})
	}
	*history = append(*history, contractx.Message{Role: "assistant", Content: out.Reply})

	// Handoffs apply strictly between turns so a single utterance is never
	// split across two personas. The new persona starts with fresh
	// instructions; the session record carries every detail forward.
	if target, ok := sess.TakeHandoff(); ok {
		if err := ctrl.Apply(target); err != nil {
			log.Warn().Err(err).
				Str("call_id", sess.Meta.CallID).
				Str("target", target).
				Msg("handoff rejected")
		}
	}
}

func (e *Entrypoint) degrade(ctx context.Context, transport contractx.Transport, ctrl *handoffx.Controller, reason string) {
	_ = transport.Say(ctx, degradedFarewell)
	ctrl.End(reason)
}
