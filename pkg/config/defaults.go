package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "staybook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultWebhookProcessingTimeout = 8 * time.Second

	DefaultReaperInterval    = 1 * time.Hour
	DefaultReaperItemTimeout = 10 * time.Second
	DefaultReaperBatchSize   = 500
	DefaultStaleBookingAfter = 24 * time.Hour

	DefaultClaimWindow         = 30 * 24 * time.Hour
	DefaultOrphanSearchLimit   = 20
	DefaultNotificationTimeout = 5 * time.Second
	DefaultStatusCacheTTL      = 5 * time.Second

	DefaultRedisConnTimeout = 3 * time.Second

	DefaultSMTPPort   = 587
	DefaultSMTPSender = "reservations@staybook.local"

	DefaultKafkaEventsTopic = "staybook.events"
	DefaultPublicBaseURL    = "http://localhost:3000"
)
