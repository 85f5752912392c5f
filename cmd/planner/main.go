package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/internal/maps"
	"github.com/richxcame/rideplanner/internal/planner"
	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/internal/simulation"
	"github.com/richxcame/rideplanner/pkg/common"
	"github.com/richxcame/rideplanner/pkg/config"
	"github.com/richxcame/rideplanner/pkg/errors"
	"github.com/richxcame/rideplanner/pkg/eventbus"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/middleware"
	"github.com/richxcame/rideplanner/pkg/ratelimit"
	redisClient "github.com/richxcame/rideplanner/pkg/redis"
	"github.com/richxcame/rideplanner/pkg/tracing"
	"github.com/richxcame/rideplanner/pkg/websocket"
)

const (
	serviceName = "ride-planner"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting ride planner",
		zap.String("service", serviceName),
		zap.String("version", version),
	)

	// Initialize Sentry for error tracking
	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	// Initialize OpenTelemetry tracer
	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    cfg.Server.Environment,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
			SampleRate:     cfg.Tracing.SampleRate,
			Enabled:        true,
		}, logger.Get())
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else if tp != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracing.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shutdown tracer", zap.Error(err))
				}
			}()
			logger.Info("OpenTelemetry tracing initialized successfully")
		}
	}

	healthChecks := make(map[string]func() error)

	// Redis backs the maps response cache and the rate limiter; the service runs without it
	var cache redisClient.ClientInterface
	var limiter *ratelimit.Limiter
	if cfg.Redis.Enabled {
		redis, err := redisClient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, maps responses will not be cached", zap.Error(err))
		} else {
			defer redis.Close()
			cache = redis
			limiter = ratelimit.NewLimiter(redis.Client, cfg.RateLimit)
			healthChecks["redis"] = func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return redis.Ping(ctx)
			}
			logger.Info("Connected to Redis")
		}
	}

	if cfg.Maps.ORSAPIKey == "" {
		logger.Warn("ORS_API_KEY not set, routing and geocoding requests will be rejected")
	}
	mapsService, err := maps.NewService(maps.ConfigFromEnv(cfg.Maps, cfg.Resilience.CircuitBreaker), cache)
	if err != nil {
		logger.Fatal("Failed to initialize maps service", zap.Error(err))
	}
	selector := routing.NewSelector(mapsService)

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	machine := simulation.NewMachine(simulationConfig(cfg.Simulation), mapsService, rand.New(rand.NewSource(seed)))

	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.StreamName = cfg.NATS.StreamName
		bus, err := eventbus.New(busCfg)
		if err != nil {
			logger.Warn("Failed to connect to NATS, ride events will not be published", zap.Error(err))
		} else {
			defer bus.Close()
			machine.SetPublisher(bus)
			healthChecks["nats"] = func() error {
				if !bus.Connected() {
					return fmt.Errorf("nats connection lost")
				}
				return nil
			}
			logger.Info("Publishing ride events to NATS", zap.String("stream", busCfg.StreamName))
		}
	}

	hub := websocket.NewHub(logger.Get())
	go hub.Run(rootCtx)

	store := planner.NewStore(mapsService, selector, machine)
	broadcaster := planner.NewBroadcaster(hub, store)
	machine.SetTripSource(store)
	machine.SetOnReset(store.OnReset)
	machine.SetOnError(store.OnOfferError)
	machine.AddListener(broadcaster)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(common.NoRouteHandler())
	router.NoMethod(common.NoMethodHandler())
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName, "/healthz", "/health/live", "/health/ready", "/metrics"))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.SanitizeRequest())
	router.Use(middleware.Metrics(serviceName))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(middleware.ErrorHandler())

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	throttle := middleware.RateLimit(limiter)
	api := router.Group("/api/v1")
	planner.NewHandler(store, hub, websocket.NewUpgrader(cfg.Server.CORSOrigins)).RegisterRoutes(api, throttle)
	maps.NewHandler(mapsService).RegisterRoutes(api, throttle)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	machine.Reset()
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func simulationConfig(sc config.SimulationConfig) simulation.Config {
	return simulation.Config{
		DriverCount:       sc.DriverCount,
		SearchRadius:      sc.SearchRadiusMeters,
		MinDriverDistance: sc.MinDistanceMeters,
		SearchDelayMin:    sc.SearchDelayMin,
		SearchDelayMax:    sc.SearchDelayMax,
		SettleDelay:       sc.SettleDelay,
		FrameInterval:     sc.FrameInterval,
		TimeScale:         sc.TimeScale,
		CancelPolicy:      simulation.CancelPolicy{AllowJourneyCancel: sc.AllowJourneyCancel},
	}
}
