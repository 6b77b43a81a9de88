// Package server wires configuration, storage backends and the REST API
// into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/idgate/internal/logging"
	"github.com/dmitrijs2005/idgate/internal/server/auth"
	"github.com/dmitrijs2005/idgate/internal/server/config"
	"github.com/dmitrijs2005/idgate/internal/server/httpapi"
	"github.com/dmitrijs2005/idgate/internal/server/metrics"
	"github.com/dmitrijs2005/idgate/internal/server/passwords"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idgate/internal/server/services"
	"github.com/dmitrijs2005/idgate/internal/server/storage"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	openDB         = repomanager.OpenDB
	newObjectStore = func(ctx context.Context, opts storage.S3Options) (storage.ObjectStore, error) {
		return storage.NewS3Store(ctx, opts)
	}
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

// NewApp connects to PostgreSQL, applies migrations, makes sure both
// buckets exist and assembles the services behind the REST API.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := assemble(ctx, c, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return app, nil
}

func assemble(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := newObjectStore(ctx, storage.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	for _, bucket := range []string{c.S3ProofBucket, c.S3DocumentBucket} {
		if err := store.EnsureBucket(ctx, bucket); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", bucket, err)
		}
	}

	m := metrics.New()
	issuer := auth.NewIssuer(c.SecretKey, c.TokenValidityDuration)

	identity := services.NewIdentityService(db, rm, store, passwords.NewBcryptHasher(bcrypt.DefaultCost), issuer, c,
		services.WithLogger(logger), services.WithMetrics(m))
	documents := services.NewDocumentService(db, rm, store, c,
		services.WithLogger(logger), services.WithMetrics(m))

	h := httpapi.New(identity, documents, issuer,
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(m),
		httpapi.WithMaxUploadBytes(c.MaxUploadBytes),
		httpapi.WithHealthCheck(db.PingContext),
	)

	return &App{config: c, logger: logger, db: db, handler: h.Router()}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info(gctx, "starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(context.Background(), "shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(context.Background(), "closing db", "error", cerr)
		}
	}

	return err
}
