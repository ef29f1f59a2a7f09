package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/background"
	"github.com/BradenHooton/gatekeeper/internal/config"
	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/handlers"
	middlewareCustom "github.com/BradenHooton/gatekeeper/internal/middleware"
	"github.com/BradenHooton/gatekeeper/internal/repositories"
	"github.com/BradenHooton/gatekeeper/internal/routes"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// store bundles the repositories of whichever backend DB_DRIVER selected
type store struct {
	bans   services.BanRepository
	admins services.AdminRepository
	health database.HealthChecker
	close  func()
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver),
		slog.Int("max_failures", cfg.Guard.MaxFailures),
		slog.Duration("ban_duration", cfg.Guard.BanDuration))

	// Initialize database
	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	// Bootstrap the admin credential if configured
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := services.EnsurePrimaryAdmin(bootstrapCtx, st.admins, os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD"))
	cancel()
	switch {
	case err != nil:
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	case created:
		logger.Info("admin user created successfully")
	}

	// Guard components
	tracker, err := services.NewAttemptTracker(cfg.Guard.TrackerCapacity, cfg.Guard.BanDuration)
	if err != nil {
		logger.Error("failed to create attempt tracker", slog.Any("error", err))
		os.Exit(1)
	}
	ledger := services.NewBanLedger(st.bans, cfg.Guard.BanDuration, logger)
	sessionManager := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.Expiry)
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)

	guard := services.NewLoginGuard(
		ledger,
		tracker,
		services.NewAdminCredentialVerifier(st.admins),
		sessionManager,
		auditLogger,
		services.GuardConfig{
			MaxFailures: cfg.Guard.MaxFailures,
			BanDuration: cfg.Guard.BanDuration,
		},
		logger,
	)

	if cfg.Notify.Enabled() {
		notifier, err := services.NewSESBanNotifier(cfg.Notify.AWSRegion, cfg.Notify.FromAddress, cfg.Notify.ToAddress, logger)
		if err != nil {
			logger.Error("failed to initialize ban notifier", slog.Any("error", err))
			os.Exit(1)
		}
		guard.SetNotifier(notifier)
	}

	ipConfig := &pkghttp.IPConfig{
		TrustForwardedFor: cfg.Guard.TrustForwardedFor,
		TrustedProxies:    cfg.Guard.TrustedProxies,
	}

	adminHandler := handlers.NewAdminAuthHandler(guard, ipConfig, auth.CookieConfig{
		Secure:   cfg.Server.Env == "production",
		SameSite: "strict",
	}, logger)

	cleanupManager := background.NewCleanupManager(ledger, tracker, logger, cfg.Guard.SweepInterval)

	// Setup router. chi's RealIP is not used: it would overwrite RemoteAddr,
	// which the trusted proxy check relies on.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	routes.RegisterRoutes(router, adminHandler, sessionManager, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Guard.LoginRatePerMinute,
		IPConfig:          ipConfig,
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.health.HealthCheck(r.Context()); err != nil {
			logger.Error("health check failed", slog.Any("error", err))
			pkghttp.WriteServiceUnavailable(w, "database unavailable")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cleanupManager.Start(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		guard.Wait()
		st.close()
		os.Exit(1)
	}

	guard.Wait()
	logger.Info("server stopped gracefully")
}

// openStore connects the configured backend and returns its repositories
func openStore(cfg *config.Config, logger *slog.Logger) (*store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &store{
			bans:   repositories.NewSQLiteBanRepository(db),
			admins: repositories.NewSQLiteAdminRepository(db),
			health: db,
			close:  db.Close,
		}, nil

	default:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}

		return &store{
			bans:   repositories.NewBanRepository(db),
			admins: repositories.NewAdminRepository(db),
			health: db,
			close:  db.Close,
		}, nil
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
