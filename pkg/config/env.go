package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvActorTokenSecret = "ACTOR_TOKEN_SECRET"

	EnvPaymentWebhookSecret     = "PAYMENT_WEBHOOK_SECRET"
	EnvWebhookProcessingTimeout = "WEBHOOK_PROCESSING_TIMEOUT"

	EnvReaperSecret      = "REAPER_SECRET"
	EnvReaperInterval    = "REAPER_INTERVAL"
	EnvReaperItemTimeout = "REAPER_ITEM_TIMEOUT"
	EnvReaperBatchSize   = "REAPER_BATCH_SIZE"
	EnvStaleBookingAfter = "STALE_BOOKING_AFTER"

	EnvClaimWindow         = "COMMISSION_CLAIM_WINDOW"
	EnvNotificationTimeout = "NOTIFICATION_TIMEOUT"
	EnvStatusCacheTTL      = "PAYMENT_STATUS_CACHE_TTL"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSMTPSender   = "SMTP_SENDER"

	EnvKafkaEnabled     = "KAFKA_ENABLED"
	EnvKafkaEventsTopic = "KAFKA_EVENTS_TOPIC"

	EnvPublicBaseURL = "PUBLIC_BASE_URL"
)
