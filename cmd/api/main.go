// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/liminalhq/liminal/internal/auth"
	"github.com/liminalhq/liminal/internal/cache"
	"github.com/liminalhq/liminal/internal/config"
	"github.com/liminalhq/liminal/internal/email"
	"github.com/liminalhq/liminal/internal/handler"
	"github.com/liminalhq/liminal/internal/middleware"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/realtime"
	"github.com/liminalhq/liminal/internal/repository"
	"github.com/liminalhq/liminal/internal/service"
	"github.com/liminalhq/liminal/internal/tenancy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := setupDatabase(cfg)
	if err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	invRepo := repository.NewInvitationRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	entryStores := repository.NewEntryStores(db)

	// Auth primitives
	passwordHasher := auth.NewPasswordHasher(auth.PasswordParams{
		Time:    cfg.Auth.ArgonTime,
		Memory:  cfg.Auth.ArgonMemory,
		Threads: cfg.Auth.ArgonThreads,
		KeyLen:  cfg.Auth.ArgonKeyLen,
	})
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod)

	// Email; sendgrid when configured, smtp otherwise
	provider := email.ProviderSMTP
	if cfg.Sendgrid.APIKey != "" {
		provider = email.ProviderSendgrid
	}
	mailService, err := email.NewService(cfg, provider)
	if err != nil {
		return fmt.Errorf("initializing email service: %w", err)
	}

	// Tenancy resolvers, one per signed-in user
	tenants := tenancy.NewManager(orgRepo, selectionRepo, logger)

	// Entry list cache
	entryCache := cache.NewInMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupFreq)
	defer entryCache.StopCleanup()

	// Services
	userService := service.NewUserService(userRepo, passwordHasher, tokenManager)
	orgService := service.NewOrganizationService(orgRepo, tenants)
	invService := service.NewInvitationService(invRepo, orgRepo, userRepo, tenants, mailService, cfg)
	entryService := service.NewEntryService(entryStores, orgRepo, tenants, entryCache)

	// Realtime change feed: the database notifies on every entry write and
	// the hub fans events out. The cache subscribes per table so writes
	// from other server processes also invalidate.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entryCache.StartCleanup(ctx)

	hub := realtime.NewHub(logger)
	for _, kind := range model.Kinds() {
		// Scope-agnostic subscription: nil filter and liveness, every write
		// invalidates the table's cache entries.
		hub.Subscribe(string(kind), nil, nil, func(ev realtime.Event) {
			entryService.InvalidateTable(ctx, ev.Table)
		})
	}

	listener := realtime.NewListener(cfg.Database.URL, cfg.Realtime.Channel, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime listener stopped", "error", err)
		}
	}()

	// Handlers
	authHandler := handler.NewAuthHandler(userService)
	orgHandler := handler.NewOrganizationHandler(orgService)
	invHandler := handler.NewInvitationHandler(invService)
	tenancyHandler := handler.NewTenancyHandler(tenants)
	entryHandler := handler.NewEntryHandler(entryService)

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(recoveryMiddleware(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(tokenManager))

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", orgHandler.List)
				r.Post("/", orgHandler.Create)
				r.Route("/{orgID}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)
					r.Put("/", orgHandler.Update)
					r.Delete("/", orgHandler.Delete)
					r.Get("/members", orgHandler.Members)
					r.Put("/members/{userID}", orgHandler.UpdateMemberRole)
					r.Delete("/members/{userID}", orgHandler.RemoveMember)
					r.Get("/invitations", invHandler.List)
					r.Post("/invitations", invHandler.Invite)
					r.Delete("/invitations/{invitationID}", invHandler.Revoke)
				})
			})

			r.Post("/invitations/accept", invHandler.Accept)

			r.Route("/tenancy", func(r chi.Router) {
				r.Get("/", tenancyHandler.Current)
				r.Put("/", tenancyHandler.Switch)
			})

			r.Route("/entries/{kind}", func(r chi.Router) {
				r.Get("/", entryHandler.List)
				r.Post("/", entryHandler.Create)
				r.Get("/{entryID}", entryHandler.Get)
				r.Put("/{entryID}", entryHandler.Update)
				r.Delete("/{entryID}", entryHandler.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("shutdown started", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func setupDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start),
					"status", ww.Status(),
					"size", ww.BytesWritten(),
					"requestID", chimw.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						"panic", rvr,
						"stack", string(debug.Stack()),
						"requestID", chimw.GetReqID(r.Context()),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal server error"}`))
					return
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
