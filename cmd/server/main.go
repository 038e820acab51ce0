package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/adapter"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/config"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	bookingEvents "github.com/Arcadia-Gaming-Lounge/service-booking/internal/events"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/handler"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/jobs"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/database"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/health"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/kafka"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/logger"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/middleware"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/repository"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/saga"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("payment_provider", cfg.PaymentConfig.Provider),
	)

	// Connect to database and apply migrations
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), zapLogger); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Connect to redis for booking drafts and the slot cache
	redisOpts, err := redis.ParseURL(cfg.RedisConfig.URL)
	if err != nil {
		zapLogger.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Select payment gateway
	gateway := newGateway(cfg.PaymentConfig, zapLogger)

	// Initialize repositories
	resourceRepo := repository.NewResourceRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	attemptRepo := repository.NewPaymentAttemptRepository(db)
	draftStore := repository.NewRedisDraftStore(rdb)
	slotCache := repository.NewRedisSlotCache(rdb, cfg.AvailabilityCacheTTL, zapLogger)

	// Initialize application services
	loc, err := cfg.VenueConfig.Location()
	if err != nil {
		zapLogger.Fatal("invalid venue timezone", zap.String("timezone", cfg.VenueConfig.Timezone), zap.Error(err))
	}
	schedule := reservation.NewSchedule(loc, cfg.VenueConfig.OpenHour, cfg.VenueConfig.CloseHour)
	clk := clock.NewRealClock()
	registry := coupon.DefaultRegistry()

	notifier := application.NewChangeNotifier(slotCache, bookingEvents.NewReservationPublisher(kafkaProducer), zapLogger)
	selector := application.NewSelector(resourceRepo, schedule, cfg.VenueConfig.SlotMinutes)
	availabilityService := application.NewAvailabilityService(selector, resourceRepo, reservationRepo, slotCache, clk, zapLogger)
	pricingService := application.NewPricingService(selector, registry, zapLogger)
	couponService := application.NewCouponService(selector, pricingService, registry, zapLogger)
	bookingService := application.NewBookingService(selector, pricingService, resourceRepo, reservationRepo, notifier, clk, zapLogger)
	adminService := application.NewReservationAdminService(reservationRepo, notifier, clk, zapLogger)

	checkoutSaga := saga.NewCheckoutSagaService(draftStore, attemptRepo, gateway, cfg.DraftTTL, zapLogger)
	reconciler := application.NewPaymentReconciler(
		application.ReconcilerConfig{
			Currency:    cfg.PaymentConfig.Currency,
			RedirectURL: cfg.PaymentConfig.RedirectURL,
			DraftTTL:    cfg.DraftTTL,
		},
		selector, pricingService, availabilityService, bookingService,
		reservationRepo, attemptRepo, draftStore, gateway, checkoutSaga,
		clk, zapLogger,
	)

	// Initialize Kafka consumer for reservation changes. Every instance gets
	// its own group so every instance drops its stale slots.
	changeBroker := bookingEvents.NewChangeBroker(zapLogger)
	reservationConsumer := bookingEvents.NewReservationEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-availability-"+instanceID(),
		slotCache,
		changeBroker,
		zapLogger,
	)
	defer reservationConsumer.Close()

	// Start Kafka consumer in a goroutine
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go func() {
		zapLogger.Info("starting reservation event consumer")
		if err := reservationConsumer.Start(bgCtx); err != nil {
			if bgCtx.Err() == nil {
				zapLogger.Error("reservation event consumer failed", zap.Error(err))
			}
		}
	}()

	// Start the pending payment sweeper
	sweeper, err := jobs.NewPaymentSweeper(reconciler, cfg.PendingRecheckInterval, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create payment sweeper", zap.Error(err))
	}
	if err := sweeper.Start(bgCtx); err != nil {
		zapLogger.Fatal("failed to start payment sweeper", zap.Error(err))
	}

	// Setup Gin router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(db, rdb, serviceName).RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	handler.NewAvailabilityHandler(availabilityService, changeBroker, zapLogger).RegisterRoutes(apiV1)
	handler.NewCouponHandler(couponService, pricingService).RegisterRoutes(apiV1)
	handler.NewBookingHandler(bookingService, adminService).RegisterRoutes(apiV1)
	handler.NewPaymentHandler(reconciler).RegisterRoutes(apiV1)

	// Create HTTP server. No write timeout: the availability stream stays open.
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName + "...")

	// Cancel Kafka consumer and background jobs
	bgCancel()
	if err := sweeper.Shutdown(); err != nil {
		zapLogger.Error("payment sweeper shutdown failed", zap.Error(err))
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info(serviceName + " stopped")
}

// newGateway builds the configured payment gateway. Config validation has
// already rejected unknown providers.
func newGateway(cfg config.PaymentConfig, logger *zap.Logger) adapter.PaymentGateway {
	switch cfg.Provider {
	case "hosted":
		return adapter.NewHostedGateway(adapter.HostedConfig{
			BaseURL:    cfg.BaseURL,
			MerchantID: cfg.MerchantID,
			SaltKey:    cfg.SaltKey,
			SaltIndex:  cfg.SaltIndex,
		}, nil, logger)
	case "stripe":
		return adapter.NewStripeGateway(cfg.StripeKey, logger)
	default:
		return adapter.NewMockGateway(logger)
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "local"
	}
	return host
}
