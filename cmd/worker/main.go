package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/email"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/logger"
	"github.com/Domenick1991/busbooking/internal/notification"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
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

	zl, err := logger.New(cfg.Log, "busbooking-worker")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		zl.Fatal("worker needs kafka.brokers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zl)
	defer consumer.Close()

	sender := email.NewSender(cfg.SMTP, zl)

	zl.Info("worker consuming", zap.String("topic", cfg.Kafka.NotificationsTopic), zap.String("group", cfg.Kafka.GroupID))
	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		var event notification.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			zl.Error("decode event", zap.ByteString("key", msg.Key), zap.Error(err))
			return nil
		}
		if err := sender.Send(ctx, event); err != nil {
			zl.Error("send receipt",
				zap.String("type", string(event.Type)),
				zap.Int64("reservation_id", event.ReservationID),
				zap.Error(err))
		}
		return nil
	})
	if err != nil {
		zl.Error("consumer stopped", zap.Error(err))
		return
	}
	zl.Info("worker stopped")
}
