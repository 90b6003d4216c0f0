package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rachelandtim/wedding-api/internal/http/handlers"
	"github.com/rachelandtim/wedding-api/internal/platform/mailer"
	"github.com/rachelandtim/wedding-api/internal/ratelimit"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/internal/service"
	"github.com/rachelandtim/wedding-api/pkg/config"
	"github.com/rachelandtim/wedding-api/pkg/database"
	"github.com/rachelandtim/wedding-api/pkg/events"
	"github.com/rachelandtim/wedding-api/pkg/logger"
	mw "github.com/rachelandtim/wedding-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Event bus is optional; local runs work without NATS.
	var eventBus events.EventBus
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	} else {
		eventBus = events.NewNoopEventBus()
	}
	defer eventBus.Close()

	// Redis backs the rate limiters when configured, so limits hold
	// across instances. Otherwise each instance counts on its own.
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}
	newLimiter := func(scope string, requests int, window time.Duration) ratelimit.Limiter {
		if rdb != nil {
			return ratelimit.NewRedisLimiter(rdb, scope, requests, window)
		}
		return ratelimit.NewMemoryLimiter(requests, window)
	}

	var mailSvc mailer.Service
	switch {
	case cfg.Email.DevMode:
		mailSvc = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mailSvc = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	default:
		mailSvc = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.FromEmail, cfg.Email.SMTPUser, cfg.Email.SMTPPass, false)
	}

	rsvpRepo := postgres.NewRSVPRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	guestRepo := postgres.NewGuestRepository(pool)
	guestbookRepo := postgres.NewGuestbookRepository(pool)
	scoreRepo := postgres.NewScoreRepository(pool)
	counterRepo := postgres.NewCounterRepository(pool)

	modifyService := service.NewModifyService(tokenRepo, rsvpRepo, mailSvc, eventBus, cfg)
	rsvpService := service.NewRSVPService(rsvpRepo, guestRepo, mailSvc, eventBus, cfg)
	guestbookService := service.NewGuestbookService(guestbookRepo, mailSvc, eventBus, cfg)

	h := handlers.New(modifyService, rsvpService, guestbookService, guestRepo, scoreRepo, counterRepo, cfg)

	// Expiry is enforced at read time; this just keeps the table small.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			n, err := tokenRepo.DeleteExpired(ctx)
			cancel()
			if err != nil {
				logger.Error("Token cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("Pruned expired modification tokens", "count", n)
			}
		}
	}()

	rl := cfg.RateLimit
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("wedding-api"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Site.BaseURL, "http://localhost:4321", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/rsvp", func(r chi.Router) {
			r.With(handlers.RateLimit(newLimiter("rsvp", rl.RSVPRequests, rl.RSVPWindow), "rsvp")).
				Post("/", h.CreateRSVP)
			r.With(handlers.RateLimit(newLimiter("lookup", rl.SearchRequests, rl.SearchWindow), "lookup")).
				Get("/lookup", h.LookupRSVP)

			r.With(handlers.RateLimit(newLimiter("modify", rl.ModifyRequests, rl.ModifyWindow), "modify")).
				Post("/modify-request", h.RequestModification)
			r.With(handlers.RateLimit(newLimiter("verify", rl.VerifyRequests, rl.VerifyWindow), "verify")).
				Get("/verify-token", h.VerifyToken)
			r.Put("/", h.UpdateRSVP)
		})

		r.Route("/guestbook", func(r chi.Router) {
			r.Get("/", h.ListGuestbook)
			r.Get("/stats", h.GuestbookStats)
			r.With(handlers.RateLimit(newLimiter("guestbook", rl.GuestbookLimit, rl.GuestbookWindow), "guestbook")).
				Post("/", h.CreateGuestbookEntry)
		})

		r.With(handlers.RateLimit(newLimiter("search", rl.SearchRequests, rl.SearchWindow), "search")).
			Get("/guests/search", h.SearchGuests)

		r.Route("/counter", func(r chi.Router) {
			r.Get("/", h.GetCounter)
			r.With(handlers.RateLimit(newLimiter("counter", rl.CounterRequests, rl.CounterWindow), "counter")).
				Post("/", h.IncrementCounter)
		})

		r.Route("/scores", func(r chi.Router) {
			r.Get("/", h.Leaderboard)
			r.With(handlers.RateLimit(newLimiter("scores", rl.ScoreRequests, rl.ScoreWindow), "scores")).
				Post("/", h.SubmitScore)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Get("/guests", h.ListGuests)
				r.Post("/guests", h.CreateGuest)
				r.Put("/guests/{id}", h.UpdateGuest)
				r.Delete("/guests/{id}", h.DeleteGuest)
				r.Get("/rsvps", h.ListRSVPs)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down wedding api...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting wedding api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
