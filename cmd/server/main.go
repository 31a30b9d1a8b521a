package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linksight/gateway/internal/config"
	"github.com/linksight/gateway/internal/infra"
	"github.com/linksight/gateway/internal/observability"
	"github.com/linksight/gateway/internal/server"
	"github.com/linksight/gateway/internal/service"
	"github.com/linksight/gateway/migrations"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	obs, err := observability.Setup(ctx, observability.Config{
		ServiceName:  "linksight-gateway",
		Environment:  cfg.Server.Environment,
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
	})
	if err != nil {
		log.Fatalf("Failed to setup observability: %v", err)
	}
	logger := obs.Logger

	connString := cfg.Database.ConnectionString()
	if err := migrations.Up(connString); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	logger.Info("database schema up to date")

	db, err := infra.NewPostgresPool(ctx, connString)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	cache, err := infra.NewCacheClient(ctx, cfg.Cache.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer cache.Close()

	// Click-event fan-out is optional; without a broker the gateway
	// still records visits in postgres.
	var publisher service.ClickPublisher
	if cfg.Broker.URL != "" {
		var conn *amqp.Connection
		var ch *amqp.Channel
		conn, ch, err = infra.NewBrokerChannel(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			log.Fatalf("Failed to connect to broker: %v", err)
		}
		defer conn.Close()
		defer ch.Close()
		publisher = ch
	}

	srv, visitLogger, err := server.NewServer(cfg, logger, db, cache, publisher)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
			return gctx.Err()
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Let in-flight visit writes land before the pool closes.
		if err := visitLogger.Drain(shutdownCtx); err != nil {
			logger.Warn("visit logger drain timed out", slog.String("error", err.Error()))
		}
		obs.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("server exited gracefully")
}
