package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/busbooking/api"
	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/bootstrap"
	"github.com/Domenick1991/busbooking/internal/email"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/logger"
	"github.com/Domenick1991/busbooking/internal/notification"
	"github.com/Domenick1991/busbooking/internal/risk"
	"github.com/Domenick1991/busbooking/internal/service/reservation"
	"github.com/Domenick1991/busbooking/internal/service/seats"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log, "busbooking-api")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	itinerary, err := cfg.Itinerary.Build()
	if err != nil {
		return err
	}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := bootstrap.CheckReferenceData(ctx, store, itinerary, cfg.Meals, zl); err != nil {
		return err
	}

	redisCache, closeCache := bootstrap.OpenCache(ctx, cfg, zl)
	defer closeCache()

	var (
		seatCache  seats.Cache
		scoreCache risk.ScoreCache
	)
	if redisCache != nil {
		seatCache, scoreCache = redisCache, redisCache
	}
	catalog := seats.NewCatalog(store.Seats(), seatCache, zl)

	opts := []reservation.Option{
		reservation.WithLogger(zl),
		reservation.WithMeals(cfg.Meals, cfg.Itinerary.MealStopIndex),
		reservation.WithRetry(cfg.Booking.MaxAttempts, time.Duration(cfg.Booking.InitialBackoffMs)*time.Millisecond),
		reservation.WithPublishTimeout(time.Duration(cfg.Notifications.PublishTimeoutMs) * time.Millisecond),
		reservation.WithEstimator(bootstrap.NewEstimator(cfg, scoreCache, zl), time.Duration(cfg.Risk.TimeoutMs)*time.Millisecond),
	}

	switch cfg.Notifications.Transport {
	case config.TransportKafka:
		producer := kafka.NewProducer(cfg.Kafka.Brokers, zl)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			zl.Warn("kafka not reachable yet, events may be lost", zap.Error(err))
		}
		opts = append(opts, reservation.WithDispatcher(notification.NewKafkaDispatcher(producer, cfg.Kafka.NotificationsTopic)))
	case config.TransportChannel:
		dispatcher := notification.NewChannelDispatcher(cfg.Kafka.NotificationsTopic, zl)
		defer dispatcher.Close()
		if _, err := dispatcher.Start(ctx, email.NewSender(cfg.SMTP, zl).Send); err != nil {
			return err
		}
		opts = append(opts, reservation.WithDispatcher(dispatcher))
	}

	engine := reservation.NewEngine(store, catalog, itinerary, opts...)

	return bootstrap.Run(ctx, cfg, bootstrap.Handlers{
		Bookings: api.NewBookingHandler(engine, itinerary, zl),
		Catalog:  api.NewCatalogHandler(engine, catalog, itinerary, cfg.Meals, cfg.Itinerary.MealStopIndex, zl),
	}, zl)
}
