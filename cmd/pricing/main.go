package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/richxcame/carwash-pricing/internal/payments"
	"github.com/richxcame/carwash-pricing/internal/pricing"
	"github.com/richxcame/carwash-pricing/internal/zones"
	"github.com/richxcame/carwash-pricing/pkg/cache"
	"github.com/richxcame/carwash-pricing/pkg/common"
	"github.com/richxcame/carwash-pricing/pkg/config"
	"github.com/richxcame/carwash-pricing/pkg/database"
	"github.com/richxcame/carwash-pricing/pkg/health"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/middleware"
	"github.com/richxcame/carwash-pricing/pkg/redis"
	"github.com/richxcame/carwash-pricing/pkg/resilience"
	"github.com/richxcame/carwash-pricing/pkg/secrets"
	"github.com/richxcame/carwash-pricing/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName    = "pricing"
	serviceVersion = "1.0.0"
	maxBodyBytes   = 1 << 20
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pricing service",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Environment()),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	secretResolver, err := secrets.NewResolver(rootCtx, cfg.Secrets)
	if err != nil {
		logger.Fatal("Failed to initialize secret store", zap.Error(err))
	}
	defer func() { _ = secretResolver.Close() }()

	if err := secretResolver.ResolveAll(rootCtx, map[string]*string{
		"JWT_SECRET":        &cfg.JWT.Secret,
		"STRIPE_SECRET_KEY": &cfg.Stripe.SecretKey,
		"DB_PASSWORD":       &cfg.Database.Password,
		"REDIS_PASSWORD":    &cfg.Redis.Password,
		"SENTRY_DSN":        &cfg.Sentry.DSN,
	}); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Environment(),
			Release:          serviceName + "@" + serviceVersion,
			EnableTracing:    true,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := tracing.Init(rootCtx, cfg.Tracing, serviceName, cfg.Environment())
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(cfg.Database.URL()); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	pool, err := database.NewPostgresPool(&cfg.Database, cfg.Timeout.DatabaseQueryTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	sqlDB, err := database.NewSQLDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open settings connection", zap.Error(err))
	}
	defer sqlDB.Close()

	zoneRepo := zones.NewRepository(pool)
	if n, err := zoneRepo.SyncBoundaries(rootCtx); err != nil {
		logger.Warn("Failed to sync zone boundaries, spatial queries may use stale geometry", zap.Error(err))
	} else {
		logger.Info("Zone boundaries synced", zap.Int("zones", n))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis, cfg.Timeout)
		if err != nil {
			logger.Warn("Redis unavailable, caching in memory only", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	var broadcaster *cache.Broadcaster
	if cfg.NATS.Enabled {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.Name(serviceName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			logger.Warn("NATS unavailable, cache invalidation stays local", zap.Error(err))
		} else {
			defer natsConn.Close()
			broadcaster = cache.NewBroadcaster(natsConn, cfg.NATS.Subject)
		}
	}

	caches := newCacheFactory(redisClient, broadcaster, cfg)
	locationCache := newCache[zones.LocationEntry](caches, "zone_locations")
	zoneListCache := newCache[[]zones.Zone](caches, "zone_list")
	servicePriceCache := newCache[pricing.ServiceBasePrice](caches, "service_prices")
	quoteCache := newCache[pricing.PriceByLocationResponse](caches, "pricing_quotes")

	if broadcaster != nil {
		if err := broadcaster.Start(); err != nil {
			logger.Warn("Failed to subscribe to cache invalidations", zap.Error(err))
		} else {
			defer broadcaster.Stop()
		}
	}

	for _, sweeper := range []struct {
		name  string
		start func(context.Context, string, time.Duration)
	}{
		{locationCache.Name(), locationCache.Memory().StartSweeper},
		{zoneListCache.Name(), zoneListCache.Memory().StartSweeper},
		{servicePriceCache.Name(), servicePriceCache.Memory().StartSweeper},
		{quoteCache.Name(), quoteCache.Memory().StartSweeper},
	} {
		sweeper.start(rootCtx, sweeper.name, cfg.Cache.SweepInterval)
	}

	zoneCatalog := zones.NewCatalog(zoneRepo, zoneListCache, cfg.Cache.ZoneListTTL)
	spatialBreaker := resilience.NewCircuitBreaker(resilience.SpatialSettings(), resilience.GracefulDegradation("zone-spatial"))
	resolver := zones.NewFallbackResolver(
		zones.NewSpatialResolver(zoneRepo),
		zones.NewLocatorResolver(zoneCatalog),
		spatialBreaker,
	)
	zoneService := zones.NewService(zoneCatalog, resolver, locationCache, cfg.Cache.ZoneResolutionTTL)

	settingsRepo := pricing.NewSettingsRepository(sqlDB)
	pricingService := pricing.NewService(
		zoneService,
		zones.NewPriceResolver(zoneRepo),
		pricing.NewCatalog(pricing.NewCatalogRepository(pool), servicePriceCache, cfg.Cache.ServicePriceTTL),
		settingsRepo,
		quoteCache,
		cfg.Cache.PricingTTL,
		cfg.Business.CurrencyCode,
	)

	var stripeClient payments.StripeClientInterface
	if cfg.Stripe.SecretKey != "" {
		stripeClient = payments.NewStripeClient(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, card settlement disabled")
	}
	paymentsService := payments.NewService(payments.NewRepository(pool), stripeClient, settingsRepo, cfg.Stripe.Currency)

	deps := common.DependencyChecks{
		Required: map[string]common.Check{
			"database": health.PoolChecker(pool),
			"settings": health.DatabaseChecker(sqlDB),
		},
		Optional: map[string]common.Check{},
	}
	if redisClient != nil {
		deps.Optional["redis"] = health.RedisChecker(redisClient.Client)
	}
	if natsConn != nil {
		deps.Optional["nats"] = health.NATSChecker(natsConn)
	}

	router := setupRouter(cfg, routerDeps{
		zones:    zones.NewHandler(zoneService),
		pricing:  pricing.NewHandler(pricingService),
		payments: payments.NewHandler(paymentsService),
		health:   deps,
		sentry:   cfg.Sentry.DSN != "",
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server exited")
}

type routerDeps struct {
	zones    *zones.Handler
	pricing  *pricing.Handler
	payments *payments.Handler
	health   common.DependencyChecks
	sentry   bool
}

func setupRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	if cfg.Environment() == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	if deps.sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Tracing(serviceName))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.MaxBodySize(maxBodyBytes))
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, serviceVersion, deps.health))
	router.GET("/health/live", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(requestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	deps.zones.RegisterRoutes(api)
	deps.pricing.RegisterRoutes(api, cfg.JWT.Secret)
	deps.payments.RegisterRoutes(api, cfg.JWT.Secret)

	return router
}

func corsConfig(origins string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	c.ExposeHeaders = []string{"X-Request-ID"}

	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = allowed
	}
	return c
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		d = 5 * time.Second
	}
	return timeout.New(
		timeout.WithTimeout(d),
		timeout.WithHandler(func(c *gin.Context) { c.Next() }),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	)
}

// cacheFactory builds two-tier caches sharing one Redis client, one breaker
// per cache, and the invalidation broadcaster.
type cacheFactory struct {
	client      goredis.UniversalClient
	broadcaster *cache.Broadcaster
	namespace   string
	opTimeout   time.Duration
}

func newCacheFactory(client *redis.Client, broadcaster *cache.Broadcaster, cfg *config.Config) *cacheFactory {
	f := &cacheFactory{
		broadcaster: broadcaster,
		namespace:   cfg.Cache.KeyPrefix,
		opTimeout:   cfg.Timeout.CacheOperationTimeout(),
	}
	if client != nil {
		f.client = client.Client
	}
	return f
}

func newCache[V any](f *cacheFactory, name string) *cache.Tiered[V] {
	var primary cache.Store[V]
	var breaker *resilience.CircuitBreaker
	if f.client != nil {
		primary = cache.NewRedisCache[V](f.client, f.namespace, f.opTimeout)
		breaker = resilience.NewCircuitBreaker(resilience.CacheSettings(name), resilience.NoopFallback)
	}

	t := cache.NewTiered[V](name, primary, nil, breaker)
	if f.broadcaster != nil {
		t.WithPublisher(f.broadcaster.Register(t))
	}
	return t
}
