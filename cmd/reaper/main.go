package main

import (
	"context"

	bookingrepository "staybook/internal/bookings/repository"
	bookingservice "staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	commissionrepository "staybook/internal/commissions/repository"
	commissionservice "staybook/internal/commissions/service"
	directory "staybook/internal/directory/repository"
	"staybook/internal/notify"
	reaperservice "staybook/internal/reaper/service"
	"staybook/pkg/config"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
)

const JobName = "stale-booking-reaper"

// A single sweep, for deployments that trigger expiry from an external cron
// instead of the in-process scheduler.
func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()

	publisher, closePublisher := newPublisher(cfg)
	store := notify.NewMongoStore(cfg)
	dispatcher := notify.NewSink(cfg, store, store, notify.NewMailer(cfg), publisher)

	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	dir := directory.NewMongoDirectory(cfg)
	commissions := commissionservice.NewCommissionService(
		commissionrepository.NewMongoCommissionRepository(cfg), bookingRepo, dir, dispatcher, cfg,
	)
	bookings := bookingservice.NewBookingService(bookingRepo, dir, commissions, dispatcher, validator.NewBookingValidator(cfg.Log), cfg)

	cancelled, err := reaperservice.NewReaper(bookingRepo, bookings, cfg).Sweep(context.Background())
	closePublisher()
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Reaper run failed", "error", err)
	}
	cfg.Log.Info("Reaper run completed", "cancelled", cancelled)
}

func newPublisher(cfg *config.Config) (notify.Publisher, func()) {
	if !cfg.KafkaEnabled {
		return notify.NopPublisher{}, func() {}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.KafkaEventsTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	return notify.NewKafkaPublisher(producer), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
