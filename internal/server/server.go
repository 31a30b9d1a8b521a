package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linksight/gateway/internal/api"
	"github.com/linksight/gateway/internal/collaborator"
	"github.com/linksight/gateway/internal/config"
	"github.com/linksight/gateway/internal/middleware"
	"github.com/linksight/gateway/internal/repository"
	"github.com/linksight/gateway/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// serviceName is used for tracing and in the otelgin middleware.
const serviceName = "linksight-gateway"

// redisPinger adapts *redis.Client to api.CacheInterface.
type redisPinger struct{ client *redis.Client }

func (r *redisPinger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// NewRouter initializes all dependencies and returns a configured Gin
// router plus the visit logger, which the caller drains on shutdown.
// Useful directly in tests where the full HTTP server is not needed.
func NewRouter(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, cache *redis.Client, publisher service.ClickPublisher) (*gin.Engine, *service.VisitLogger, error) {
	urlRepo := repository.NewURLRepository(db)
	userRepo := repository.NewUserRepository(db)
	visitRepo := repository.NewVisitRepository(db)

	urlService := service.NewURLService(urlRepo, cfg.App.ShortCodeLen, cfg.App.ShortCodeRetries)
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	visitLogger := service.NewVisitLogger(visitRepo, publisher, cfg.Broker.Exchange, logger, cfg.App.VisitLogTimeout)
	collab := collaborator.NewClient(cfg.Collaborator, logger)

	loginStore, err := middleware.NewRedisLimiterStore(cache, "limiter:login")
	if err != nil {
		return nil, nil, err
	}
	insightStore, err := middleware.NewRedisLimiterStore(cache, "limiter:insight")
	if err != nil {
		return nil, nil, err
	}
	loginLimiter := middleware.RateLimit(loginStore, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginPeriod)
	insightLimiter := middleware.RateLimit(insightStore, cfg.RateLimit.InsightLimit, cfg.RateLimit.InsightPeriod)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.Logging(logger))

	handler := api.NewHandler(urlService, authService, visitLogger, collab, db, &redisPinger{client: cache}, logger)
	handler.RegisterRoutes(router, loginLimiter, insightLimiter)

	return router, visitLogger, nil
}

// NewServer initializes all dependencies and returns a configured HTTP
// server along with the visit logger for shutdown draining.
func NewServer(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, cache *redis.Client, publisher service.ClickPublisher) (*http.Server, *service.VisitLogger, error) {
	router, visitLogger, err := NewRouter(cfg, logger, db, cache, publisher)
	if err != nil {
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, visitLogger, nil
}
