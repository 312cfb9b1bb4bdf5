package main

import (
	"context"
	"time"

	authhandler "expobook/internal/auth/handler"
	authrepository "expobook/internal/auth/repository"
	authservice "expobook/internal/auth/service"
	"expobook/internal/auth/token"
	authvalidator "expobook/internal/auth/validator"
	bookinghandler "expobook/internal/bookings/handler"
	bookingrepository "expobook/internal/bookings/repository"
	bookingservice "expobook/internal/bookings/service"
	bookingvalidator "expobook/internal/bookings/validator"
	"expobook/internal/events"
	exhibitionhandler "expobook/internal/exhibitions/handler"
	exhibitionrepository "expobook/internal/exhibitions/repository"
	exhibitionservice "expobook/internal/exhibitions/service"
	exhibitionvalidator "expobook/internal/exhibitions/validator"
	"expobook/internal/quota"
	"expobook/internal/storage/memory"
	"expobook/pkg/app"
	"expobook/pkg/clock"
	"expobook/pkg/config"
	"expobook/pkg/contracts"
	"expobook/pkg/db"
	mongotx "expobook/pkg/db/mongo"
	"expobook/pkg/kafka"
	"expobook/pkg/middleware"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const ServiceName = "expobook-api"

type repositories struct {
	exhibitions exhibitionrepository.ExhibitionRepository
	bookings    bookingrepository.BookingRepository
	users       authrepository.UserRepository
	pinger      db.Pinger
}

type api struct {
	handlers contracts.Handlers
	auth     authservice.AuthService
	tokens   *token.Manager
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Expobook API")

	repos := initRepositories(cfg)
	publisher, closePublisher := initPublisher(cfg)
	built := initAPI(cfg, repos, publisher, clock.Real())

	if cfg.AdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := built.auth.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			cancel()
			cfg.Log.Fatal("Failed to seed admin account", "error", err)
		}
		cancel()
	}

	serverApp := app.NewApplication(cfg)
	if cfg.RedisEnabled() {
		rdb := initRedis(cfg)
		serverApp.UseIdempotencyStore(middleware.NewRedisIdempotencyStore(rdb, cfg.IdempotencyTTL, cfg.Log))
		serverApp.OnShutdown(func() {
			if err := rdb.Close(); err != nil {
				cfg.Log.Error("Failed to close Redis client", "error", err)
			}
		})
	}
	serverApp.SetApp(repos.pinger, built.tokens, built.handlers)
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.OnShutdown(closePublisher)
	serverApp.Run()
}

func initRedis(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		cfg.Log.Fatal("Failed to ping Redis", "addr", cfg.RedisAddr, "error", err)
	}

	cfg.Log.Info("Shared idempotency store enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return rdb
}

func initRepositories(cfg *config.Config) repositories {
	if !cfg.UsesMongo() {
		store := memory.NewStore()
		cfg.Log.Info("Using in-memory storage")
		return repositories{
			exhibitions: store.Exhibitions(),
			bookings:    store.Bookings(),
			users:       store.Users(),
			pinger:      store,
		}
	}

	cfg.SetMongo()
	cfg.Log.Info("Using Mongo storage", "database", cfg.MongoDatabaseName)
	return repositories{
		exhibitions: exhibitionrepository.NewMongoExhibitionRepository(cfg),
		bookings:    bookingrepository.NewMongoBookingRepository(cfg),
		users:       authrepository.NewMongoUserRepository(cfg),
		pinger:      mongotx.NewPinger(cfg.Client.Mongo),
	}
}

func initPublisher(cfg *config.Config) (events.Publisher, func()) {
	switch {
	case cfg.KafkaEnabled():
		return initKafkaPublisher(cfg)
	case cfg.AMQPEnabled():
		return initAMQPPublisher(cfg)
	default:
		cfg.Log.Info("No event broker configured, booking events disabled")
		return events.NoopPublisher{}, func() {}
	}
}

func initKafkaPublisher(cfg *config.Config) (events.Publisher, func()) {

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaBookingTopic,
		DLQTopic:     cfg.KafkaDLQTopic,
		MaxAttempts:  cfg.KafkaMaxAttempts,
		BatchTimeout: cfg.KafkaBatchTimeout,
		RequireAcks:  cfg.KafkaRequireAcks,
		Compression:  cfg.KafkaCompression,
	}, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka.LoggingMiddleware(cfg.Log))

	cfg.Log.Info("Booking events enabled", "topic", cfg.KafkaBookingTopic)
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

func initAMQPPublisher(cfg *config.Config) (events.Publisher, func()) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		cfg.Log.Fatal("Failed to connect to AMQP broker", "error", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		cfg.Log.Fatal("Failed to open AMQP channel", "error", err)
	}
	if err := ch.ExchangeDeclare(cfg.AMQPExchange, events.ExchangeKind, true, false, false, false, nil); err != nil {
		cfg.Log.Fatal("Failed to declare AMQP exchange", "exchange", cfg.AMQPExchange, "error", err)
	}

	cfg.Log.Info("Booking events enabled", "exchange", cfg.AMQPExchange)
	return events.NewAMQPPublisher(ch, cfg.AMQPExchange, ServiceName, cfg.Log), func() {
		if err := ch.Close(); err != nil {
			cfg.Log.Error("Failed to close AMQP channel", "error", err)
		}
		if err := conn.Close(); err != nil {
			cfg.Log.Error("Failed to close AMQP connection", "error", err)
		}
	}
}

func initAPI(cfg *config.Config, repos repositories, publisher events.Publisher, clk clock.Clock) api {
	ledger := quota.NewLedger(repos.bookings, repos.exhibitions)
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL, clk)

	authService := authservice.NewAuthService(
		repos.users,
		tokens,
		authvalidator.NewUserValidator(cfg.Log),
		cfg,
	)
	exhibitionService := exhibitionservice.NewExhibitionService(
		repos.exhibitions,
		repos.bookings,
		ledger,
		exhibitionvalidator.NewExhibitionValidator(cfg.Log),
		clk,
		cfg,
	)
	bookingService := bookingservice.NewBookingService(
		repos.bookings,
		repos.exhibitions,
		repos.users,
		ledger,
		bookingvalidator.NewBookingValidator(cfg.Log),
		publisher,
		clk,
		cfg,
	)
	cfg.Log.Info("Services initialized")

	return api{
		handlers: contracts.Handlers{
			authhandler.NewAuthHandler(authService, cfg.Log),
			exhibitionhandler.NewExhibitionHandler(exhibitionService, cfg.Log),
			bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		},
		auth:   authService,
		tokens: tokens,
	}
}
