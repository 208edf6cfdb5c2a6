package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/airbroker/config"
	"github.com/Domenick1991/airbroker/internal/email"
	"github.com/Domenick1991/airbroker/internal/kafka"
	"github.com/Domenick1991/airbroker/internal/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("load config")
	}
	logger.Setup(cfg.Log, "airbroker-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topic := cfg.Kafka.NotificationsTopic
	if topic == "" {
		topic = cfg.Kafka.BookingTopic
	}
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, topic)
	defer consumer.Close()

	emailSender := email.NewSender()

	log.Info().Str("topic", topic).Str("group", cfg.Kafka.GroupID).Msg("worker started")
	err = consumer.ConsumeBookingEvents(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
		if err := emailSender.Send(ctx, event); err != nil {
			// Undeliverable notifications are dropped; the booking itself is stored.
			log.Warn().Err(err).Str("event_id", event.EventID).Msg("notification not sent")
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer stopped")
		return
	}
	log.Info().Msg("worker stopped")
}
