package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/tirthgodhni98/giftcard-api/internal/giftcards"
	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
	"github.com/tirthgodhni98/giftcard-api/internal/shops"
	"github.com/tirthgodhni98/giftcard-api/pkg/common"
	"github.com/tirthgodhni98/giftcard-api/pkg/config"
	"github.com/tirthgodhni98/giftcard-api/pkg/database"
	"github.com/tirthgodhni98/giftcard-api/pkg/eventbus"
	"github.com/tirthgodhni98/giftcard-api/pkg/health"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"github.com/tirthgodhni98/giftcard-api/pkg/middleware"
	"github.com/tirthgodhni98/giftcard-api/pkg/monitoring"
	"github.com/tirthgodhni98/giftcard-api/pkg/redis"
	"github.com/tirthgodhni98/giftcard-api/pkg/resilience"
	"github.com/tirthgodhni98/giftcard-api/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "giftcards"
	maxBodySize = 1 << 20
)

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.Server.Version, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	if err := monitoring.InitSentry(cfg.Sentry, cfg.Server.Environment, cfg.Server.Version); err != nil {
		logger.Warn("Sentry disabled", zap.Error(err))
	}
	defer monitoring.Flush(2 * time.Second)

	// Connect to PostgreSQL
	db, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(cfg.Database.MigrationURL()); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Redis only backs the shop credential cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.RedisAddr()))
	}

	resolver, err := buildResolver(cfg, db, redisClient)
	if err != nil {
		logger.Fatal("Failed to configure shop resolution", zap.Error(err))
	}

	publisher, closePublisher := buildPublisher(cfg)
	defer closePublisher()

	serviceConfig, err := giftCardConfig(cfg)
	if err != nil {
		logger.Fatal("Invalid gift card configuration", zap.Error(err))
	}

	service := giftcards.NewService(
		giftcards.NewRepository(db),
		ledger.NewClient(ledgerConfig(cfg)),
		resolver,
		publisher,
		serviceConfig,
	)
	handler := giftcards.NewHandler(service)

	checks := map[string]func() error{
		"database": health.NewCachedChecker(health.DatabaseChecker(db), 5*time.Second).Check,
	}
	if redisClient != nil {
		checks["redis"] = health.RedisChecker(redisClient.Client)
	}

	router := setupRouter(cfg, handler, checks)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Gift card service starting",
			zap.String("port", cfg.Server.Port),
			zap.String("shops_mode", cfg.Shops.Mode),
			zap.String("api_version", cfg.Shopify.APIVersion),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gift card service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Gift card service stopped")
}

// setupRouter builds the HTTP router with the full middleware chain
func setupRouter(cfg *config.Config, handler *giftcards.Handler, checks map[string]func() error) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Card ids may arrive as URL-escaped global ids containing slashes
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(middleware.Recovery())
	router.Use(monitoring.Middleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.IdentityResolver())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.MaxBodySize(maxBodySize))
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// Health check and metrics
	router.GET("/healthz", common.HealthCheck(serviceName, cfg.Server.Version))
	router.GET("/health/live", common.HealthCheck(serviceName, cfg.Server.Version))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, cfg.Server.Version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router.Group("/api/v1"))

	router.NoRoute(common.NotFoundHandler())

	return router
}

func corsConfig(origins string) cors.Config {
	corsCfg := cors.DefaultConfig()

	allowed := make([]string, 0)
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowed
	}

	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsCfg.AllowHeaders = []string{
		"Origin", "Content-Type",
		middleware.CorrelationIDHeader,
		middleware.UserEmailHeader,
		middleware.UserNameHeader,
		giftcards.ShopDomainHeader,
	}
	corsCfg.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	return corsCfg
}

// buildResolver picks the credential source for the configured mode and puts
// the Redis cache in front of it when Redis is enabled
func buildResolver(cfg *config.Config, db *pgxpool.Pool, redisClient *redis.Client) (shops.Resolver, error) {
	defaultDomain := shops.NormalizeDomain(cfg.Shopify.Domain)

	var resolver shops.Resolver
	switch cfg.Shops.Mode {
	case config.ShopsModeStore:
		if db == nil {
			return nil, errors.New("store mode requires a database")
		}
		resolver = shops.NewStoreResolver(db, defaultDomain)
	default:
		static, err := shops.NewStaticResolver(shops.ShopCredential{
			Domain:      cfg.Shopify.Domain,
			AccessToken: cfg.Shopify.AccessToken,
			APIVersion:  cfg.Shopify.APIVersion,
		}, cfg.Shops.File)
		if err != nil {
			return nil, err
		}
		defaultDomain = static.DefaultDomain()
		resolver = static
	}

	if redisClient != nil {
		ttl := time.Duration(cfg.Shops.CacheTTLSeconds) * time.Second
		resolver = shops.NewCachedResolver(resolver, redisClient.Client, ttl, defaultDomain)
	}

	return resolver, nil
}

// buildPublisher connects to NATS when enabled. A broker that is down at boot
// disables events instead of the service.
func buildPublisher(cfg *config.Config) (eventbus.Publisher, func()) {
	if !cfg.NATS.Enabled {
		return eventbus.NoopPublisher{}, func() {}
	}

	bus, err := eventbus.New(eventbus.Config{
		URL:           cfg.NATS.URL,
		Name:          serviceName,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
	})
	if err != nil {
		logger.Warn("NATS unavailable, gift card events disabled", zap.Error(err))
		return eventbus.NoopPublisher{}, func() {}
	}

	logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
	return bus, bus.Close
}

func ledgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		BaseURLTemplate: cfg.Shopify.BaseURLTemplate,
		APIVersion:      cfg.Shopify.APIVersion,
		Timeout:         time.Duration(cfg.Shopify.TimeoutSeconds) * time.Second,
		RatePerSecond:   cfg.Shopify.RatePerSecond,
		RateBurst:       cfg.Shopify.RateBurst,
		BreakerEnabled:  cfg.Breaker.Enabled,
		Breaker:         resilience.SettingsFromConfig("ledger", cfg.Breaker, ledger.CountsAgainstBreaker),
	}
}

func giftCardConfig(cfg *config.Config) (giftcards.Config, error) {
	defaultAmount, err := decimal.NewFromString(cfg.GiftCard.DefaultAmount)
	if err != nil {
		return giftcards.Config{}, fmt.Errorf("invalid DEFAULT_GIFT_CARD_AMOUNT %q: %w", cfg.GiftCard.DefaultAmount, err)
	}
	if defaultAmount.IsNegative() {
		return giftcards.Config{}, fmt.Errorf("DEFAULT_GIFT_CARD_AMOUNT must not be negative")
	}

	return giftcards.Config{
		DefaultAmount:    defaultAmount,
		Currency:         cfg.GiftCard.Currency,
		TransactionsPage: cfg.GiftCard.TransactionsPage,
		MaxTransactions:  cfg.GiftCard.MaxTransactions,
		Source:           cfg.Server.ServiceName,
	}, nil
}
