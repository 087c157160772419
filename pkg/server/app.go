package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"AxPredict/internal/service/stream"
	pkgch "AxPredict/pkg/clickhouse"
	"AxPredict/pkg/config"
	xhttp "AxPredict/pkg/http"
	pkgkafka "AxPredict/pkg/kafka"
	applogger "AxPredict/pkg/logger"
)

// App encapsulates the application lifecycle: the optional stream feed, the
// HTTP server, and infrastructure clients that need orderly shutdown.
type App struct {
	cfg        *config.Config
	handler    xhttp.Handler
	feed       *stream.Feed
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	httpServer *xhttp.Server
	l          *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	handler xhttp.Handler,
	feed *stream.Feed,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:      cfg,
		handler:  handler,
		feed:     feed,
		chClient: chClient,
		producer: producer,
		l:        l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.feed != nil {
		go a.feed.Run(ctx)
		a.l.Info("stream feed started",
			applogger.String("url", a.cfg.Stream.URL),
			applogger.Int("symbols", len(a.cfg.Stream.Symbols)),
		)
	}

	a.httpServer = xhttp.NewServer(a.handler, a.l,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
