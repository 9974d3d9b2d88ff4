// Package main starts the calendar API server: it loads configuration,
// connects to PostgreSQL, wires repositories, sessions and handlers, and
// serves HTTP until interrupted.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	nethttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/atinyakov/calendar/internal/config"
	"github.com/atinyakov/calendar/internal/db"
	"github.com/atinyakov/calendar/internal/logger"
	"github.com/atinyakov/calendar/internal/metrics"
	"github.com/atinyakov/calendar/internal/repository"
	"github.com/atinyakov/calendar/internal/request"
	"github.com/atinyakov/calendar/internal/server/handler/http"
	"github.com/atinyakov/calendar/internal/service"
	"github.com/atinyakov/calendar/internal/session"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Bootstrap logging so configuration errors are reported as JSON too.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("info"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Log.Fatal("invalid configuration", zap.Error(err))
	}
	if err := log.Init(cfg.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and make sure the tables exist. No retry.
	zapLogger.Info("connecting to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	postgresDB, err := db.InitPostgres(ctx, cfg.DSN(), cfg.Database.MaxOpenConns)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer func() {
		_ = postgresDB.Close()
		zapLogger.Info("database connection closed")
	}()
	zapLogger.Info("database connection established")

	// Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// Repositories, sessions and operations.
	client := db.NewClient(postgresDB, zapLogger)
	userRepo := repository.NewPostgresUserRepository(client)
	eventRepo := repository.NewPostgresEventRepository(client)

	sessions := session.NewStore(cfg.Session.TTL)
	if cfg.Session.TTL > 0 {
		session.StartReaper(ctx, sessions, cfg.Session.ReapInterval, zapLogger)
	}

	calendar := service.NewCalendar(userRepo, eventRepo, sessions, zapLogger,
		service.WithMetrics(collector),
	)

	dispatcher := &http.Dispatcher{
		Validator:     request.NewValidator(sessions),
		Operations:    calendar,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Logger:        zapLogger,
		Metrics:       collector,
	}
	router := http.NewRouter(dispatcher, zapLogger)

	server := &nethttp.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	var metricsServer *nethttp.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = &nethttp.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics.Handler(registry),
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
		go func() {
			zapLogger.Info("starting metrics server", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				zapLogger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server", zap.String("addr", server.Addr), zap.Bool("tls", cfg.TLSEnabled()))
	if cfg.TLSEnabled() {
		err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
	<-shutdownDone
	zapLogger.Info("server shut down")
}
