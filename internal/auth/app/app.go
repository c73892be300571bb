package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/plateful/auth/internal/auth/http"
	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/internal/auth/store"
	"github.com/plateful/auth/internal/auth/store/drivers/sqlite"
	"github.com/plateful/auth/pkg/cryptox"
	"github.com/plateful/auth/pkg/jwtx"
	"github.com/plateful/auth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager

	// Services
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: app.cfg.Algorithm,
		Issuer:    app.cfg.Issuer,
		Audience:  app.cfg.Audience,
		RSABits:   app.cfg.RSABits,
		NumKeys:   app.cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager
	app.logger.Info("signing keys generated",
		"algorithm", app.cfg.Algorithm,
		"keys", keyManager.NumSigners(),
	)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	verifiers := map[string]service.StepUpVerifier{
		"two_factor": service.TOTPVerifier{},
	}
	if app.cfg.BiometricAssertion != "" {
		verifiers["biometric"] = service.BiometricVerifier{
			Check: service.StaticAssertionCheck(app.cfg.BiometricAssertion),
		}
		app.logger.Info("biometric step-up enabled")
	} else {
		// Registered but unconfigured so attempts fail closed rather
		// than reporting an unknown method.
		verifiers["biometric"] = service.BiometricVerifier{}
	}

	app.sessionService = &service.SessionService{
		KeyManager:    app.keyManager,
		Store:         app.db,
		Issuer:        app.cfg.Issuer,
		Audience:      app.cfg.Audience,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		RotateRefresh: app.cfg.RotateRefresh,
		Verifiers:     verifiers,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Sessions = app.sessionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
