// Package health tracks process readiness and serves the /health and /ready
// endpoints. The tracker is explicit state created at startup and injected
// into whatever needs to report status; there is no package-level singleton.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "vocare-restaurant-assistant"

type Config struct {
	Port    int    `envconfig:"PORT" split_words:"true" default:"8000"`
	Version string `envconfig:"VERSION" split_words:"true" default:"1.0.0"`
}

type check struct {
	Status    bool    `json:"status"`
	Message   string  `json:"message,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

// Tracker is written rarely (startup, failures) and read on every probe.
type Tracker struct {
	mu        sync.RWMutex
	startTime time.Time
	ready     bool
	healthy   bool
	checks    map[string]check
	version   string
	now       func() time.Time
}

func NewTracker(version string) *Tracker {
	return &Tracker{
		startTime: time.Now(),
		healthy:   true,
		checks:    make(map[string]check),
		version:   version,
		now:       time.Now,
	}
}

// SetReady marks the process ready to take calls.
func (t *Tracker) SetReady(ready bool) {
	t.mu.Lock()
	t.ready = ready
	t.mu.Unlock()
}

// SetHealthy marks the overall process health.
func (t *Tracker) SetHealthy(healthy bool) {
	t.mu.Lock()
	t.healthy = healthy
	t.mu.Unlock()
}

// AddCheck records one named check result.
func (t *Tracker) AddCheck(name string, status bool, message string) {
	t.mu.Lock()
	t.checks[name] = check{
		Status:    status,
		Message:   message,
		Timestamp: float64(t.now().UnixMilli()) / 1000,
	}
	t.mu.Unlock()
}

func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.healthy
}

func (t *Tracker) status() gin.H {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state := "healthy"
	if !t.healthy {
		state = "unhealthy"
	}
	checks := make(map[string]check, len(t.checks))
	for name, c := range t.checks {
		checks[name] = c
	}
	return gin.H{
		"status":         state,
		"ready":          t.ready,
		"uptime_seconds": time.Since(t.startTime).Seconds(),
		"checks":         checks,
		"service":        serviceName,
		"version":        t.version,
	}
}

// Routes registers the probe endpoints on router.
func Routes(router gin.IRoutes, tracker *Tracker) {
	router.GET("/health", func(c *gin.Context) {
		code := http.StatusOK
		if !tracker.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, tracker.status())
	})

	router.GET("/ready", func(c *gin.Context) {
		if tracker.Ready() {
			c.JSON(http.StatusOK, gin.H{"status": "ready", "message": "ready to take calls"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "message": "still starting up"})
	})
}

// Serve runs the probe server until ctx is cancelled. Extra mounts let the
// process host its call endpoints on the same listener.
func Serve(ctx context.Context, cfg Config, tracker *Tracker, mounts ...func(*gin.Engine)) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	Routes(router, tracker)
	for _, mount := range mounts {
		mount(router)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
