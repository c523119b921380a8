package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/worldclock/apiserver/config"
	"github.com/worldclock/apiserver/internal/db"
	"github.com/worldclock/apiserver/internal/events"
	"github.com/worldclock/apiserver/internal/graphql"
	"github.com/worldclock/apiserver/internal/handlers"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/metrics"
	"github.com/worldclock/apiserver/internal/mq"
	"github.com/worldclock/apiserver/internal/services"
	"github.com/worldclock/apiserver/internal/store"
	"github.com/worldclock/apiserver/internal/tz"
	"gorm.io/gorm"
)

const minJWTSecretLength = 32

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	events     mq.Backend
	log        logger.Logger
}

// Deps are the collaborators the router is built from.
type Deps struct {
	DB       *gorm.DB
	Cities   tz.Cities
	Events   mq.Backend
	Registry *prometheus.Registry
	Log      logger.Logger
	Config   config.Config

	// Clock overrides the resolver's wall clock when set.
	Clock func() time.Time
}

// New connects every backend named in cfg and builds the server.
func New(ctx context.Context, cfg config.Config, log logger.Logger) (*Server, error) {
	if len(cfg.Auth.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET is required and must be at least %d characters", minJWTSecretLength)
	}

	cities, err := LoadCities(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	log.Info("city table loaded", "source", cfg.Cities.Source, "cities", cities.Cities(), "rows", cities.Rows())

	sqlDB, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gormDB, err := db.OpenGorm(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	backend, err := NewEventsBackend(ctx, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	router, err := NewRouter(ctx, Deps{
		DB:       gormDB,
		Cities:   cities,
		Events:   backend,
		Registry: prometheus.NewRegistry(),
		Log:      log,
		Config:   cfg,
	})
	if err != nil {
		_ = backend.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         sqlDB,
		events:     backend,
		log:        log,
	}, nil
}

// NewRouter wires repositories, services and handlers onto a chi router.
func NewRouter(ctx context.Context, deps Deps) (*chi.Mux, error) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var opts []tz.Option
	if deps.Clock != nil {
		opts = append(opts, tz.WithClock(deps.Clock))
	}
	resolver := tz.NewResolver(deps.Cities, opts...)

	userRepo := store.NewUserRepository(deps.DB)
	timezoneRepo := store.NewTimezoneRepository(deps.DB)

	publisher := events.NewPublisher(deps.Events, deps.Config.Events.Channel, log, m)
	userService := services.NewUserService(userRepo, deps.Config.Auth.BcryptCost, log)
	authService := services.NewAuthService(userService, deps.Config.Auth.JWTSecret, deps.Config.Auth.TokenTTL)
	timezoneService := services.NewTimezoneService(timezoneRepo, userRepo, resolver,
		services.WithEvents(publisher),
		services.WithLogger(log),
		services.WithMetrics(m),
	)

	if email := deps.Config.Auth.AdminEmail; email != "" {
		if deps.Config.Auth.AdminPassword == "" {
			return nil, errors.New("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
		}
		admin, err := authService.EnsureAdmin(ctx, email, deps.Config.Auth.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("admin account ready", "id", admin.ID, "email", admin.Email)
	}

	gqlHandler, err := graphql.NewHandler(graphql.Services{
		Auth:      authService,
		Users:     userService,
		Timezones: timezoneService,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(log, m),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.With(handlers.OptionalAuth(authService)).Post("/graphql", gqlHandler.ServeHTTP)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, userService, log)
	})
	router.Route("/timezones", func(r chi.Router) {
		handlers.TimezoneRouter(r, timezoneService, authService, log)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, timezoneService, authService, log)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, timezoneService, authService, log)
	})

	return router, nil
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		if closeErr := s.events.Close(); closeErr != nil {
			s.log.Warn("failed to close events backend", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
