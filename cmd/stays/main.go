package main

import (
	bookinghandler "staybook/internal/bookings/handler"
	bookingrepository "staybook/internal/bookings/repository"
	bookingservice "staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	commissionhandler "staybook/internal/commissions/handler"
	commissionrepository "staybook/internal/commissions/repository"
	commissionservice "staybook/internal/commissions/service"
	directory "staybook/internal/directory/repository"
	"staybook/internal/notify"
	paymenthandler "staybook/internal/payments/handler"
	paymentservice "staybook/internal/payments/service"
	reaperhandler "staybook/internal/reaper/handler"
	reaperservice "staybook/internal/reaper/service"
	"staybook/pkg/app"
	"staybook/pkg/config"
	"staybook/pkg/contracts"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	kafkamiddleware "staybook/pkg/kafka/middleware"
)

const ServiceName = "stays"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Stays service")
	serverApp := app.NewApplication(cfg)

	handlers, scheduler := initServices(cfg, serverApp)
	serverApp.AddWorker(scheduler)
	serverApp.SetApp(handlers...)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) ([]contracts.Handler, contracts.Worker) {
	dispatcher := initDispatcher(cfg, serverApp)

	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	commissionRepo := commissionrepository.NewMongoCommissionRepository(cfg)
	dir := directory.NewMongoDirectory(cfg)

	var statusCache paymentservice.StatusCache = paymentservice.NopStatusCache{}
	if cfg.Client.Redis != nil && cfg.StatusCacheTTL > 0 {
		statusCache = paymentservice.NewRedisStatusCache(cfg.Client.Redis, cfg.StatusCacheTTL, cfg.Log.Component("status-cache"))
	}

	commissionService := commissionservice.NewCommissionService(commissionRepo, bookingRepo, dir, dispatcher, cfg)
	bookingService := bookingservice.NewBookingService(
		bookingRepo,
		dir,
		commissionService,
		dispatcher,
		validator.NewBookingValidator(cfg.Log),
		cfg,
		bookingservice.WithTransitionListener(paymentservice.InvalidateOnTransition(statusCache)),
	)

	paymentService := paymentservice.NewPaymentService(bookingService, bookingRepo, statusCache, cfg)

	reaper := reaperservice.NewReaper(bookingRepo, bookingService, cfg)
	scheduler := reaperservice.NewScheduler(reaper, cfg.ReaperInterval, cfg.Log.Component("reaper"))

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		commissionhandler.NewCommissionHandler(commissionService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, cfg.PaymentWebhookSecret, cfg.Log),
		reaperhandler.NewReaperHandler(reaper, cfg.ReaperSecret, cfg.Log),
	}, scheduler
}

func initDispatcher(cfg *config.Config, serverApp *app.Application) notify.Dispatcher {
	var publisher notify.Publisher = notify.NopPublisher{}

	if cfg.KafkaEnabled {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.KafkaEventsTopic, kafkaCfg.DLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		}
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
		publisher = notify.NewKafkaPublisher(producer)
		cfg.Log.Info("Domain events published to Kafka", "topic", cfg.KafkaEventsTopic)
	}

	store := notify.NewMongoStore(cfg)
	return notify.NewSink(cfg, store, store, notify.NewMailer(cfg), publisher)
}
