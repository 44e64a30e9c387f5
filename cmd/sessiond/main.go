// Command sessiond is a small HTTP service that shows the session
// middleware on every supported store.
//
// Configuration comes from the environment (and an optional .env file).
// SESSION_STORE picks the backend: memory, redis, bolt, pg or mongo.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/environment"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/trustproxy"
)

type appConfig struct {
	Environment environment.Environment `env:"APP_ENV" envDefault:"development"`
	Store       string                  `env:"SESSION_STORE" envDefault:"memory"`
	PrefsCookie string                  `env:"PREFS_COOKIE_NAME" envDefault:"prefs"`
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		app      appConfig
		logCfg   logger.Config
		httpCfg  httpserver.Config
		proxyCfg trustproxy.Config
	)
	config.MustLoad(&app)
	config.MustLoad(&logCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&proxyCfg)

	log := logger.NewFromConfig(logCfg,
		logger.WithEnvironment(app.Environment, logCfg.Service),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			environment.LoggerExtractor(),
		),
	)

	resolver, err := trustproxy.NewFromConfig(proxyCfg)
	if err != nil {
		log.Error("invalid proxy configuration", logger.Error(err))
		return err
	}

	bs, err := openStore(ctx, app.Store, log)
	if err != nil {
		log.Error("failed to open session store", logger.Store(app.Store), logger.Error(err))
		return err
	}

	sessions, err := session.NewFromEnv(
		session.WithStore(bs.store),
		session.WithLogger(log),
	)
	if err != nil {
		log.Error("invalid session configuration", logger.Error(err))
		_ = bs.Close()
		return err
	}

	prefs, err := cookie.New(sessions.Config().Secrets,
		cookie.WithMaxAge(int((365 * 24 * time.Hour).Seconds())),
		cookie.WithSameSite(sessions.Config().Cookie.SameSite),
	)
	if err != nil {
		log.Error("invalid cookie configuration", logger.Error(err))
		_ = bs.Close()
		return err
	}

	router := newRouter(routerDeps{
		env:         app.Environment,
		log:         log,
		resolver:    resolver,
		sessions:    sessions,
		prefs:       prefs,
		prefsCookie: app.PrefsCookie,
		checks:      bs.checks,
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithCloser(sessions),
		httpserver.WithCloser(bs),
	)

	log.Info("starting sessiond", logger.Store(app.Store), logger.Component("sessiond"))
	if err := srv.Run(ctx, router); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		return err
	}
	return nil
}
