// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"eventsignup/internal/auth"
	"eventsignup/internal/cache"
	"eventsignup/internal/config"
	"eventsignup/internal/database"
	"eventsignup/internal/handler"
	"eventsignup/internal/maintenance"
	"eventsignup/internal/mail"
	"eventsignup/internal/repository"
	"eventsignup/internal/service"
	"eventsignup/internal/token"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load("./config")
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer pool.Close()
	logrus.Info("connected to PostgreSQL")

	store := repository.New(pool, cfg.App.TxRetries)

	// ── Collaborators ────────────────────────────────────────────────────
	var eventCache service.EventCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("redis unavailable, caching disabled")
		} else {
			eventCache = cache.New(client, cfg.Redis.CacheTTL)
			logrus.Info("connected to redis")
		}
	}

	var notifier service.Notifier = mail.LogNotifier{}
	if cfg.Mail.Enabled {
		notifier = mail.New(cfg.Mail)
	}

	svc := service.New(store, store, notifier, token.New(cfg.App.EditTokenSecret), eventCache, nil)
	h := handler.New(svc)

	// ── Maintenance ──────────────────────────────────────────────────────
	purger := maintenance.New(store, svc, cfg.App.PurgeInterval, nil)
	go purger.Run(ctx)

	// ── Router ───────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.ListEvents)
		r.Get("/events/{id}", h.GetEvent)

		r.Post("/signups", h.CreateSignup)
		r.Get("/signups/{id}", h.GetSignup)
		r.Patch("/signups/{id}", h.UpdateSignup)
		r.Delete("/signups/{id}", h.DeleteSignup)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(cfg.App.AdminJWTSecret, handler.WriteErrorResponse))
			r.Get("/events/{id}", h.GetAdminEvent)
			r.Post("/events", h.CreateEvent)
			r.Put("/events/{id}", h.UpdateEvent)
			r.Post("/events/{id}/recompute", h.RecomputeEvent)
			r.Delete("/signups/{id}", h.DeleteSignupAsAdmin)
		})
	})

	// ── Server with graceful shutdown ────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logrus.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	logrus.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("graceful shutdown failed: %v", err)
	}
	logrus.Info("server stopped")
}
