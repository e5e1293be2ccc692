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

	httpapi "github.com/sysdesk/sysdesk/internal/auth/http"
	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/internal/auth/store/drivers/sqlite"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
	"github.com/sysdesk/sysdesk/pkg/jwtx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application wires the auth service together: store, services, router,
// HTTP server, and the housekeeping worker.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	hasher *cryptox.Hasher

	credentialService   *service.CredentialService
	tokenService        *service.TokenService
	sessionService      *service.SessionService
	inviteService       *service.InviteService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sysdesk-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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

// Shutdown drains the HTTP server, stops housekeeping, and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

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

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

func (app *Application) initServices() error {
	accessSigner, err := jwtx.NewSigner([]byte(app.cfg.AccessSecret), jwtx.ClassAccess, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("access signer: %w", err)
	}
	refreshSigner, err := jwtx.NewSigner([]byte(app.cfg.RefreshSecret), jwtx.ClassRefresh, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("refresh signer: %w", err)
	}

	app.hasher = cryptox.NewHasher(app.cfg.BcryptCost, app.cfg.HashWorkers)

	app.credentialService = &service.CredentialService{
		Store:           app.db,
		Hasher:          app.hasher,
		MaxAttempts:     app.cfg.MaxLoginAttempts,
		LockoutDuration: app.cfg.LockoutDuration,
	}
	app.tokenService = &service.TokenService{
		Store:         app.db,
		Credentials:   app.credentialService,
		AccessSigner:  accessSigner,
		RefreshSigner: refreshSigner,
		Issuer:        app.cfg.Issuer,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	}
	app.sessionService = &service.SessionService{
		Store:        app.db,
		AccessSigner: accessSigner,
	}
	app.inviteService = &service.InviteService{
		Store:     app.db,
		Hasher:    app.hasher,
		InviteTTL: app.cfg.InviteTTL,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Hasher: app.hasher,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) initHTTP() {
	mode, _ := parseAuthzMode(app.cfg.AuthzMode)

	router := httpapi.NewRouter(BuildVersion, mode, app.db, app.logger)
	router.TokenService = app.tokenService
	router.SessionService = app.sessionService
	router.InviteService = app.inviteService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
