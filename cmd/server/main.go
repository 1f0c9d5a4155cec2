package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/cache"
	"github.com/smarttransit/seat-booking-engine/internal/config"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/events"
	"github.com/smarttransit/seat-booking-engine/internal/handlers"
	"github.com/smarttransit/seat-booking-engine/internal/middleware"
	"github.com/smarttransit/seat-booking-engine/internal/services"
	"github.com/smarttransit/seat-booking-engine/pkg/jwt"
	"github.com/smarttransit/seat-booking-engine/pkg/validator"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit Seat Booking Engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Redis: schedule cache and event stream transport
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("Failed to ping redis: %v", err)
		}
		logger.Info("Redis connection established")
	}

	// Store and schedule catalog
	var (
		store   database.InventoryStore
		catalog database.ScheduleCatalog
	)
	switch cfg.Booking.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.NewConnection(cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		if err := database.InitialiseSchema(ctx, db.DB); err != nil {
			logger.Fatalf("Failed to initialise schema: %v", err)
		}
		store = database.NewPostgresStore(db.DB)
		catalog = database.NewScheduledTripRepository(db.DB, time.Local)
	default:
		store = database.NewMemoryStore()
		if cfg.Booking.CatalogSeedFile == "" {
			catalog = database.NewMemoryCatalog()
			logger.Warn("No CATALOG_SEED_FILE set, schedule catalog is empty")
		} else {
			memoryCatalog, err := database.LoadMemoryCatalog(cfg.Booking.CatalogSeedFile)
			if err != nil {
				logger.Fatalf("Failed to load schedule catalog: %v", err)
			}
			catalog = memoryCatalog
		}
	}
	if redisClient != nil {
		catalog = cache.NewScheduleCache(redisClient, catalog, cfg.Redis.ScheduleCacheTTL, logger)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.BoardingTokenSecret, cfg.JWT.AccessTokenExpiry)
	engineConfig := services.EngineConfig{
		HoldDuration:       cfg.Booking.HoldDuration,
		HoldMaxDuration:    cfg.Booking.HoldMaxDuration,
		PendingBookingTTL:  cfg.Booking.PendingBookingTTL,
		MaxSeatsPerBooking: cfg.Booking.MaxSeatsPerBooking,
		DefaultCurrency:    cfg.Booking.DefaultCurrency,
	}
	locks := services.NewScheduleLocks()
	inventoryService := services.NewInventoryService(store, catalog, locks)
	holdService := services.NewHoldService(store, inventoryService, locks, engineConfig, logger)
	bookingService := services.NewBookingService(store, inventoryService, locks, jwtService, nil, engineConfig, logger)
	sweepService := services.NewExpirySweepService(store, locks, cfg.Booking.SweepInterval, cfg.Booking.SweepBatchSize, logger)

	// Payment outcome events
	watermillLogger := events.NewLogrusAdapter(logger)
	pubSub, err := events.NewPubSub(cfg.Payment, redisClient, watermillLogger)
	if err != nil {
		logger.Fatalf("Failed to create event transport: %v", err)
	}
	defer pubSub.Close()

	bus, err := events.NewBus(pubSub.Publisher, watermillLogger)
	if err != nil {
		logger.Fatalf("Failed to create event bus: %v", err)
	}
	bookingService.SetRefundRequester(bus)

	eventRouter, err := events.NewRouter(events.RouterDeps{
		Logger:        logger,
		Adapter:       watermillLogger,
		NewSubscriber: pubSub.NewSubscriber,
		Bookings:      bookingService,
	})
	if err != nil {
		logger.Fatalf("Failed to create event router: %v", err)
	}

	if err := sweepService.Start(); err != nil {
		logger.Fatalf("Failed to start expiry sweep: %v", err)
	}
	defer sweepService.Stop()

	// HTTP
	if err := validator.RegisterGinValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, "Correlation-ID"),
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(router, handlers.RouteDeps{
		Inventory:   inventoryService,
		Holds:       holdService,
		Bookings:    bookingService,
		Publisher:   bus,
		Store:       store,
		JWT:         jwtService,
		AuthEnabled: cfg.JWT.AuthEnabled,
		Logger:      logger,
	})
	if !cfg.JWT.AuthEnabled {
		logger.Warn("Authentication disabled, owners are taken from requests")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eventRouter.Run(gctx)
	})

	g.Go(func() error {
		select {
		case <-eventRouter.Running():
		case <-gctx.Done():
			return nil
		}
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return eventRouter.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
	}

	logger.Info("Server exited successfully")
}
