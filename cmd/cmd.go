package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/config"
	"disco-backend/internal/handlers"
	"disco-backend/internal/middleware"
	"disco-backend/internal/push"
	"disco-backend/internal/repository"
	"disco-backend/internal/scheduler"
	"disco-backend/internal/services"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	zoneRepo := repository.NewPrivacyZoneRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	safetyRepo := repository.NewSafetyRepository(db)
	contactRepo := repository.NewContactRepository(db)
	reportRepo := repository.NewReportRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	hub := services.NewHub()
	locationService := services.NewLocationService(locationRepo)
	privacyService := services.NewPrivacyService(zoneRepo)
	limiter := services.NewRateLimiter(rateLimitRepo)

	var pushSender services.PushSender = push.LogSender{}
	if cfg.APNS.Enabled {
		apnsSender, err := push.NewAPNSSender(cfg.APNS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs sender")
		}
		pushSender = apnsSender
	}
	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub, pushSender)

	matchingService := services.NewMatchingService(
		matchRepo,
		userRepo,
		reportRepo,
		locationService,
		privacyService,
		limiter,
		hub,
		cfg.Matching.DefaultMaxDistanceKm,
		cfg.Matching.MaxResults,
	)
	safetyService := services.NewSafetyService(
		safetyRepo,
		contactRepo,
		notificationService,
		push.LogContactSender{},
		hub,
		time.Duration(cfg.Scheduler.MissedGraceMins)*time.Minute,
	)
	evidenceService, err := services.NewEvidenceService(reportRepo, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create evidence service")
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	locationHandler := handlers.NewLocationHandler(locationService, privacyService)
	matchHandler := handlers.NewMatchHandler(matchingService)
	safetyHandler := handlers.NewSafetyHandler(safetyService, evidenceService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	wsHandler := handlers.NewWebSocketHandler(hub, userService, matchingService)

	// Start background jobs
	sched := scheduler.New(cfg.Scheduler, scheduler.Jobs{
		ReplayQueue:       notificationService.ProcessOfflineQueue,
		SweepMissedChecks: safetyService.SweepMissedChecks,
		PruneLocations: func(ctx context.Context, cutoff time.Time) error {
			_, err := locationRepo.PruneAllOlderThan(ctx, cutoff)
			return err
		},
		PruneRateLimits: func(ctx context.Context, cutoff time.Time) error {
			_, err := rateLimitRepo.PruneOlderThan(ctx, cutoff)
			return err
		},
	})
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Put("/users/push-token", userHandler.UpdatePushToken)

			r.Route("/location", func(r chi.Router) {
				r.Get("/", locationHandler.CurrentLocation)
				r.Post("/", locationHandler.RecordLocation)
				r.Patch("/", locationHandler.UpdateSharingState)
				r.Route("/zones", func(r chi.Router) {
					r.Get("/", locationHandler.ListZones)
					r.Post("/", locationHandler.CreateZone)
					r.Put("/{zoneID}", locationHandler.UpdateZone)
					r.Delete("/{zoneID}", locationHandler.DeleteZone)
				})
			})

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", matchHandler.FindMatches)
				r.Post("/", matchHandler.CreateMatch)
				r.Get("/history", matchHandler.ListMatches)
				r.Get("/preferences", matchHandler.GetPreferences)
				r.Post("/preferences", matchHandler.UpdatePreferences)
				r.Get("/{matchID}", matchHandler.GetMatch)
				r.Post("/{matchID}", matchHandler.ActOnMatch)
			})

			r.Route("/safety", func(r chi.Router) {
				r.Get("/alerts", safetyHandler.ListAlerts)
				r.Post("/alerts", safetyHandler.CreateAlert)
				r.Put("/alerts/{alertID}", safetyHandler.UpdateAlert)

				r.Get("/checks", safetyHandler.ListChecks)
				r.Post("/checks", safetyHandler.CreateCheck)
				r.Post("/checks/{checkID}/complete", safetyHandler.CompleteCheck)

				r.Get("/contacts", safetyHandler.ListContacts)
				r.Post("/contacts", safetyHandler.AddContact)
				r.Delete("/contacts/{contactID}", safetyHandler.RemoveContact)

				r.Post("/reports/{reportID}/evidence", safetyHandler.GetEvidenceUploadURL)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/preferences", notificationHandler.GetPreferences)
				r.Put("/preferences", notificationHandler.UpdatePreferences)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
