//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/adapter"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	bookingEvents "github.com/Arcadia-Gaming-Lounge/service-booking/internal/events"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/database"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/kafka"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/repository"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/saga"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeded stations from the migrations.
var (
	seedPC1     = uuid.MustParse("6f1c2a10-0000-4000-8000-000000000001")
	seedPC2     = uuid.MustParse("6f1c2a10-0000-4000-8000-000000000002")
	seedConsole = uuid.MustParse("6f1c2a10-0000-4000-8000-000000000004")
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	Redis        *redis.Client
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Availability *application.AvailabilityService
	Pricing      *application.PricingService
	Booking      *application.BookingService
	Admin        *application.ReservationAdminService
	Reconciler   *application.PaymentReconciler
	Gateway      *adapter.MockGateway
	Consumer     *bookingEvents.ReservationEventConsumer
	Broker       *bookingEvents.ChangeBroker
	Location     *time.Location
	Cleanup      func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers plus an
// in-process redis, and applies the migrations.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbCfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_booking",
		SSLMode:  "disable",
	}

	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(dbCfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")
	require.NoError(t, database.RunMigrations(dbCfg.DatabaseURL(), logger))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, reservation.TopicReservationEvents)

	cleanup := func() {
		_ = rdb.Close()
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		Redis:        rdb,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires the services the way cmd/server does, with the mock
// gateway standing in for the provider.
func setupBookingStack(t *testing.T, infra *testInfra) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	schedule := reservation.NewSchedule(loc, 10, 23)
	clk := clock.NewRealClock()
	registry := coupon.DefaultRegistry()
	draftTTL := 30 * time.Minute

	resourceRepo := repository.NewResourceRepository(infra.DB)
	reservationRepo := repository.NewReservationRepository(infra.DB)
	attemptRepo := repository.NewPaymentAttemptRepository(infra.DB)
	drafts := repository.NewRedisDraftStore(infra.Redis)
	cache := repository.NewRedisSlotCache(infra.Redis, 30*time.Second, logger)

	producer := kafka.NewProducer(infra.KafkaBrokers, logger)
	notifier := application.NewChangeNotifier(cache, bookingEvents.NewReservationPublisher(producer), logger)
	gateway := adapter.NewMockGateway(logger)

	selector := application.NewSelector(resourceRepo, schedule, 60)
	availability := application.NewAvailabilityService(selector, resourceRepo, reservationRepo, cache, clk, logger)
	pricing := application.NewPricingService(selector, registry, logger)
	booking := application.NewBookingService(selector, pricing, resourceRepo, reservationRepo, notifier, clk, logger)
	admin := application.NewReservationAdminService(reservationRepo, notifier, clk, logger)
	checkout := saga.NewCheckoutSagaService(drafts, attemptRepo, gateway, draftTTL, logger)
	reconciler := application.NewPaymentReconciler(
		application.ReconcilerConfig{Currency: "INR", RedirectURL: "http://localhost/return", DraftTTL: draftTTL},
		selector, pricing, availability, booking, reservationRepo, attemptRepo, drafts, gateway, checkout, clk, logger,
	)

	broker := bookingEvents.NewChangeBroker(logger)
	groupID := fmt.Sprintf("test-availability-%s", uuid.New().String()[:8])
	consumer := bookingEvents.NewReservationEventConsumer(infra.KafkaBrokers, groupID, cache, broker, logger)

	return &bookingStack{
		Availability: availability,
		Pricing:      pricing,
		Booking:      booking,
		Admin:        admin,
		Reconciler:   reconciler,
		Gateway:      gateway,
		Consumer:     consumer,
		Broker:       broker,
		Location:     loc,
		Cleanup: func() {
			_ = consumer.Close()
			_ = producer.Close()
		},
	}
}

// tomorrow returns the venue date one day ahead so every slot is bookable.
func (s *bookingStack) tomorrow() string {
	return time.Now().In(s.Location).AddDate(0, 0, 1).Format(reservation.DateLayout)
}

func guest(n int) customer.Info {
	return customer.Info{Name: fmt.Sprintf("Guest %d", n), Phone: fmt.Sprintf("98765%05d", n)}
}

// countReservations counts rows of a group.
func countReservations(t *testing.T, db *gorm.DB, groupID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&repository.ReservationModel{}).Where("group_id = ?", groupID).Count(&n).Error)
	return n
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
