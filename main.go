package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	callx "github.com/BrianMwas/vocare/agent/call"
	contractx "github.com/BrianMwas/vocare/agent/contract"
	dialoguex "github.com/BrianMwas/vocare/agent/dialogue"
	llmx "github.com/BrianMwas/vocare/agent/llm"
	menux "github.com/BrianMwas/vocare/agent/menu"
	personax "github.com/BrianMwas/vocare/agent/persona"
	sessionx "github.com/BrianMwas/vocare/agent/session"
	storex "github.com/BrianMwas/vocare/agent/store"
	configx "github.com/BrianMwas/vocare/pkg/config"
	healthx "github.com/BrianMwas/vocare/pkg/health"
	_ "github.com/BrianMwas/vocare/pkg/logger/autoload"
	notifyx "github.com/BrianMwas/vocare/pkg/notify"
	openaix "github.com/BrianMwas/vocare/pkg/openaix"
	speechx "github.com/BrianMwas/vocare/pkg/speech"
	transportx "github.com/BrianMwas/vocare/pkg/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmCfg := configx.MustNew[llmx.Config]("OPENAI")
	if err := llmCfg.Validate(); err != nil {
		panic(err)
	}
	storeCfg := configx.MustNew[storex.Config]("POSTGRES")
	healthCfg := configx.MustNew[healthx.Config]("HEALTH")
	callCfg := configx.MustNew[callx.Config]("CALL")
	policy := configx.MustNew[personax.Policy]("INTENT")

	store, err := storex.NewPostgresStore(*storeCfg)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	// The notifier is optional; without a webhook the finalize path just
	// skips the push.
	var notifier contractx.Notifier
	if notifyCfg, err := configx.New[notifyx.Config]("NOTIFY"); err == nil {
		notifier = notifyx.MustNew(*notifyCfg)
	} else {
		log.Warn().Err(err).Msg("notify webhook not configured, notifications disabled")
	}

	tracker := healthx.NewTracker(healthCfg.Version)
	cache := menux.NewCache()

	// Best-effort startup load. An empty cache degrades personas to a
	// menu-less prompt; it never blocks taking calls.
	go func() {
		cache.Refresh(ctx, store)
		if cache.Loaded() {
			tracker.AddCheck("menu_cache", true, "menu loaded")
		} else {
			tracker.AddCheck("menu_cache", false, "menu load failed, cache empty")
			tracker.SetHealthy(false)
		}
		tracker.SetReady(true)
	}()

	services := make(map[string]contractx.DialogueService, 4)
	for _, name := range []string{
		sessionx.PersonaIntentClassifier,
		sessionx.PersonaOrder,
		sessionx.PersonaReservation,
		sessionx.PersonaConfirmation,
	} {
		modelCfg := llmCfg.OpenAIFor(name)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			panic(err)
		}
		svc, err := dialoguex.New(chatModel)
		if err != nil {
			panic(err)
		}
		services[name] = svc
	}

	entrypoint, err := callx.New(callx.Deps{
		Cache:    cache,
		Store:    store,
		Notifier: notifier,
		Services: services,
		Policy:   *policy,
		LLM:      *llmCfg,
	}, *callCfg)
	if err != nil {
		panic(err)
	}

	pipe, err := speechx.NewPipe(openaix.NewClient(llmCfg.OpenAIFor("")), speechx.Config{
		Voice:            llmCfg.Voice,
		RecognitionHints: llmCfg.RecognitionHints,
	})
	if err != nil {
		panic(err)
	}

	log.Info().Int("port", healthCfg.Port).Msg("vocare assistant listening")
	err = healthx.Serve(ctx, *healthCfg, tracker, func(router *gin.Engine) {
		router.GET("/call", transportx.Handler(pipe, entrypoint.RunCall))
	})
	if err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
