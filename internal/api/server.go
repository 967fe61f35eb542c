package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"emolens/internal/auth"
	"emolens/internal/config"
	"emolens/internal/database"
	"emolens/internal/detection"
	"emolens/internal/logger"
	"emolens/internal/middleware"
	"emolens/internal/pipeline"
)

// SessionController is the control surface of the detection pipeline
type SessionController interface {
	Start() error
	Stop()
	Reset()
	Finalize() pipeline.FinalizeResult
	Snapshot() *pipeline.Snapshot
	LoopConfig() config.LoopConfig
	SetLoopConfig(cfg config.LoopConfig)
}

// StatusProvider reports the inference service status
type StatusProvider interface {
	Status() detection.Status
	LastProbe() time.Time
}

// EmotionCatalog reports the labels the inference service supports
type EmotionCatalog interface {
	SupportedEmotions() []string
}

// SettingsStore persists loop tunables
type SettingsStore interface {
	SaveLoopSettings(s database.LoopSettings) error
}

// Options wires the router. Nil handlers leave their routes unmounted.
type Options struct {
	Controller SessionController
	Status     StatusProvider
	Catalog    EmotionCatalog
	Settings   SettingsStore
	Auth       *auth.Authenticator
	RateLimit  config.RateLimitConfig

	Metrics       http.Handler
	VideoStream   http.Handler
	VideoSnapshot http.Handler
	VideoSocket   http.Handler
	SessionSocket http.Handler

	Debug bool
	Log   logrus.FieldLogger
}

// Server holds the handler dependencies
type Server struct {
	ctrl     SessionController
	status   StatusProvider
	catalog  EmotionCatalog
	settings SettingsStore
	auth     *auth.Authenticator
	log      *logrus.Entry
}

// NewRouter builds the HTTP router
func NewRouter(opts Options) http.Handler {
	s := &Server{
		ctrl:     opts.Controller,
		status:   opts.Status,
		catalog:  opts.Catalog,
		settings: opts.Settings,
		auth:     opts.Auth,
		log:      logger.Component(opts.Log, "API"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.RateLimit.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logger(s.log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	mount(r, "/metrics", opts.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/status", s.handleAuthStatus)

		r.Get("/status", s.handleStatus)
		r.Get("/emotions", s.handleEmotions)
		r.Get("/suggestions/{label}", s.handleSuggestions)
		r.Get("/settings", s.handleGetSettings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRateLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst, s.log).Handler)
			if s.auth != nil {
				r.Use(middleware.AuthMiddleware(s.auth))
			}

			r.Post("/session/start", s.handleStart)
			r.Post("/session/stop", s.handleStop)
			r.Post("/session/reset", s.handleReset)
			r.Post("/session/finalize", s.handleFinalize)
			r.Put("/settings", s.handlePutSettings)
		})
	})

	mount(r, "/video/stream", opts.VideoStream)
	mount(r, "/video/snapshot", opts.VideoSnapshot)
	mount(r, "/ws/video", opts.VideoSocket)
	mount(r, "/ws/session", opts.SessionSocket)

	if opts.Debug {
		chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			s.log.Debugf("%s %s mounted", method, route)
			return nil
		})
	}

	return r
}

func mount(r chi.Router, pattern string, h http.Handler) {
	if h != nil {
		r.Method(http.MethodGet, pattern, h)
	}
}
