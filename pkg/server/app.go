package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Aegis/internal/handler/api"
	"Aegis/internal/usecase"
	pkgch "Aegis/pkg/clickhouse"
	"Aegis/pkg/config"
	xhttp "Aegis/pkg/http"
	pkgkafka "Aegis/pkg/kafka"
	applogger "Aegis/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	collector  *usecase.MarketCollector
	engine     *usecase.DecisionEngine
	processor  *usecase.DecisionProcessor
	handler    *api.OpsHandler
	chClient   *pkgch.Client
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.MarketCollector,
	engine *usecase.DecisionEngine,
	processor *usecase.DecisionProcessor,
	handler *api.OpsHandler,
	chClient *pkgch.Client,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		engine:    engine,
		processor: processor,
		handler:   handler,
		chClient:  chClient,
		consumer:  consumer,
		kh:        kh,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the tick collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Engine.Symbols))

	// Start the decision loop
	go a.engine.Run(ctx)
	l.Info("decision engine started",
		applogger.String("interval", a.cfg.Engine.CycleInterval.String()),
		applogger.String("backend", a.cfg.Backend.Type))

	// When kafka is the primary backend, the consumer lands decision events
	// into ClickHouse so the audit trail stays queryable.
	if a.cfg.Backend.Type == "kafka" && a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger
	l.Info("shutting down...")

	// Stop the tick stream
	if err := a.collector.Stop(); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close persistence resources (publisher/storage)
	if a.processor != nil {
		a.processor.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
