package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"staybook/pkg/client"
	"staybook/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ActorTokenSecret string

	PaymentWebhookSecret     string
	WebhookProcessingTimeout time.Duration

	ReaperSecret      string
	ReaperInterval    time.Duration
	ReaperItemTimeout time.Duration
	ReaperBatchSize   int
	StaleBookingAfter time.Duration

	ClaimWindow         time.Duration
	OrphanSearchLimit   int
	NotificationTimeout time.Duration
	StatusCacheTTL      time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPSender   string

	KafkaEnabled     bool
	KafkaEventsTopic string

	PublicBaseURL string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ActorTokenSecret: getEnvStr(EnvActorTokenSecret, ""),

		PaymentWebhookSecret:     getEnvStr(EnvPaymentWebhookSecret, ""),
		WebhookProcessingTimeout: getEnvDuration(EnvWebhookProcessingTimeout, DefaultWebhookProcessingTimeout),

		ReaperSecret:      getEnvStr(EnvReaperSecret, ""),
		ReaperInterval:    getEnvDuration(EnvReaperInterval, DefaultReaperInterval),
		ReaperItemTimeout: getEnvDuration(EnvReaperItemTimeout, DefaultReaperItemTimeout),
		ReaperBatchSize:   getEnvNum(EnvReaperBatchSize, DefaultReaperBatchSize),
		StaleBookingAfter: getEnvDuration(EnvStaleBookingAfter, DefaultStaleBookingAfter),

		ClaimWindow:         getEnvDuration(EnvClaimWindow, DefaultClaimWindow),
		OrphanSearchLimit:   DefaultOrphanSearchLimit,
		NotificationTimeout: getEnvDuration(EnvNotificationTimeout, DefaultNotificationTimeout),
		StatusCacheTTL:      getEnvDuration(EnvStatusCacheTTL, DefaultStatusCacheTTL),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, 0),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername: getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		SMTPSender:   getEnvStr(EnvSMTPSender, DefaultSMTPSender),

		KafkaEnabled:     getEnvBool(EnvKafkaEnabled, false),
		KafkaEventsTopic: getEnvStr(EnvKafkaEventsTopic, DefaultKafkaEventsTopic),

		PublicBaseURL: getEnvStr(EnvPublicBaseURL, DefaultPublicBaseURL),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, DefaultRedisConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"WebhookProcessingTimeout", cfg.WebhookProcessingTimeout},
		{"ReaperItemTimeout", cfg.ReaperItemTimeout},
		{"StaleBookingAfter", cfg.StaleBookingAfter},
		{"ClaimWindow", cfg.ClaimWindow},
		{"NotificationTimeout", cfg.NotificationTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.ReaperInterval < 0 {
		errors = append(errors, fmt.Sprintf("ReaperInterval cannot be negative, got: %s", cfg.ReaperInterval))
	}
	if cfg.StatusCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("StatusCacheTTL cannot be negative, got: %s", cfg.StatusCacheTTL))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReaperBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("ReaperBatchSize must be positive, got: %d", cfg.ReaperBatchSize))
	}
	if cfg.SMTPHost != "" && (cfg.SMTPPort < 1 || cfg.SMTPPort > 65535) {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}
	if cfg.KafkaEnabled && cfg.KafkaEventsTopic == "" {
		errors = append(errors, "KafkaEventsTopic cannot be empty when Kafka is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"actor_token_secret_set", cfg.ActorTokenSecret != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"webhook_processing_timeout", cfg.WebhookProcessingTimeout,
		"reaper_secret_set", cfg.ReaperSecret != "",
		"reaper_interval", cfg.ReaperInterval,
		"reaper_item_timeout", cfg.ReaperItemTimeout,
		"stale_booking_after", cfg.StaleBookingAfter,
		"claim_window", cfg.ClaimWindow,
		"notification_timeout", cfg.NotificationTimeout,
		"status_cache_ttl", cfg.StatusCacheTTL,
		"redis_addr", cfg.RedisAddr,
		"smtp_host", cfg.SMTPHost,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_events_topic", cfg.KafkaEventsTopic,
	)

	if cfg.PaymentWebhookSecret == "" {
		cfg.Log.Warn("PAYMENT_WEBHOOK_SECRET is not set: payment webhook signatures are NOT verified. Use this only for local development")
	}
	if cfg.ActorTokenSecret == "" {
		cfg.Log.Warn("ACTOR_TOKEN_SECRET is not set: all requests are treated as anonymous")
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return min(limit, DefaultPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
