// Package server wires the account service together: logger, record store,
// auth components, mail queue, and the HTTP and gRPC servers.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/accountsvc/internal/dbx"
	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"github.com/dmitrijs2005/accountsvc/internal/server/auth"
	"github.com/dmitrijs2005/accountsvc/internal/server/config"
	"github.com/dmitrijs2005/accountsvc/internal/server/mailer"
	"github.com/dmitrijs2005/accountsvc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountsvc/internal/server/rest"
	"github.com/dmitrijs2005/accountsvc/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/accountsvc/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      *logging.ZapLogger
	db          *sql.DB
	userService *services.UserService
	mailQueue   *mailer.Queue
	httpServer  *rest.Server
	grpcServer  *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: c.LogLevel, Development: c.IsDevelopment()})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	if c.UsesDefaultSecrets() {
		logger.Warn(ctx, "using default secret key or pepper, do not run like this outside development")
	}

	db, rm, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	app.db = db

	m, err := mailer.New(ctx, c, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("mailer init error: %w", err)
	}
	app.mailQueue = mailer.NewQueue(m, logger, c.MailQueueSize, c.MailWorkers)

	tokens := auth.NewTokenService(c.SecretKey, c.TokenValidityDuration, auth.WithIssuer(c.ProjectName))
	creds := auth.NewCredentialVerifier(c.Pepper)

	var conn dbx.DBTX
	if db != nil {
		conn = db
	}
	app.userService = services.NewUserService(conn, rm, creds, tokens, app.mailQueue, logger, services.Options{
		StoreTimeout: c.StoreTimeout,
		ProjectName:  c.ProjectName,
	})

	app.httpServer = rest.NewServer(rest.Options{
		Address:     c.HTTPAddr,
		ProjectName: c.ProjectName,
		Version:     c.Version,
		Development: c.IsDevelopment(),
	}, app.userService, tokens, logger)

	var grpcOpts []gs.Option
	if db != nil {
		grpcOpts = append(grpcOpts, gs.WithProbe(db, 0))
	}
	app.grpcServer = gs.NewGRPCServer(c.GRPCAddr, c.ProjectName, logger, grpcOpts...)

	return app, nil
}

// UserService exposes the wired service to tools sharing the app setup.
func (app *App) UserService() *services.UserService {
	return app.userService
}

// openStore connects to PostgreSQL and migrates it, or falls back to the
// in-memory store when no DSN is configured.
func (app *App) openStore(ctx context.Context) (*sql.DB, repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, using in-memory store")
		return nil, repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	return db, rm, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts every component and blocks until ctx is cancelled, a signal
// arrives, or a component fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", app.config.Version, "mode", app.config.Mode)

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.httpServer.Run(ctx) })
	g.Go(func() error { return app.grpcServer.Run(ctx) })
	g.Go(func() error { return app.mailQueue.Run(ctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	} else {
		app.logger.Info(ctx, "App stopped")
	}

	app.Close()
	return err
}

// Close releases the database connection and flushes the logger.
func (app *App) Close() {
	if app.db != nil {
		app.db.Close()
	}
	_ = app.logger.Sync()
}
