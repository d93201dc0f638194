// Package app wires the taskman server runtime: config, logging, storage,
// HTTP routes, and outbound mail.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"taskman/cmd/identity"
	authapi "taskman/cmd/internal/auth/api"
	"taskman/cmd/internal/auth/session"
	"taskman/cmd/internal/mailer"
	"taskman/cmd/internal/task"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the HTTP server wiring and the database pool lifecycle.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool

	metrics *Metrics
	auth    *authapi.Handler
	tasks   *task.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := RunMigrations(ctx, cfg); err != nil {
			return nil, err
		}
		log.Info("db.migrations.applied")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	accounts, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	tokens, err := session.NewJWTManager(session.Config{
		Issuer:        cfg.TokenIssuer,
		SigningSecret: cfg.TokenSecret,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	sessions := session.NewService(session.NewPostgresStore(pool), tokens)

	guard := authapi.NewGuard(log, sessions, accounts)
	notify := mailer.NewNotifier(log, newMailer(cfg, log))
	auth := authapi.NewHandler(log, authapi.DefaultConfig(), accounts, sessions, guard, notify)

	taskStore, err := task.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	tasks := task.NewHandler(log, taskStore, guard)

	return &App{
		cfg:     cfg,
		log:     log,
		dbPool:  pool,
		metrics: NewMetrics(),
		auth:    auth,
		tasks:   tasks,
	}, nil
}

// newMailer picks the outbound mail transport.
func newMailer(cfg Config, log Logger) mailer.Mailer {
	if cfg.MailDisabled {
		log.Info("mail.disabled.noop")
		return mailer.Noop{}
	}
	log.Info("mail.enabled.sendgrid", "from", cfg.MailFromEmail)
	return mailer.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFromEmail, cfg.MailFromName)
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.dbPool, a.metrics, a.auth, a.tasks)

	handler := WithRequestLogging(WithMetrics(mux, a.metrics), a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.dbPool.Close()

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
