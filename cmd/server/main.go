package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"treetrack/internal/config"
	"treetrack/internal/db"
	"treetrack/internal/db/mock"
	applog "treetrack/internal/log"
	"treetrack/internal/server"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

// Seams for the run loop so tests can substitute collaborators.
var (
	loadConfigFunc       = config.Load
	setLogLevelFunc      = applog.SetLevel
	newMockDatabaseFunc  = mock.New
	configureDatabase    = db.Configure
	newServerFunc        = func(cfg server.Config) (serverLifecycle, error) { return server.New(cfg) }
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		return sigCh, func() { signal.Stop(sigCh) }
	}
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}

	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "error", err, "level", cfg.Logging.Level)
		return 1
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		applog.Info(ctx, "using in-memory mock database")
		database, err = newMockDatabaseFunc(ctx)
	} else {
		database, err = configureDatabase(cfg.Database)
	}
	if err != nil {
		applog.Error(ctx, "failed to initialize database", "error", err)
		return 1
	}

	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
		Imgur:    cfg.Imgur,
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	sigCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	startErr := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		startErr <- srv.Start()
	}()

	select {
	case err := <-startErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
	case <-sigCh:
		applog.Info(ctx, "shutting down http server")
		if err := srv.Stop(); err != nil {
			applog.Error(ctx, "graceful shutdown failed", "error", err)
			return 1
		}
		if err := <-startErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
	}

	return 0
}
