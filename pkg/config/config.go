package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gymflow/pkg/client"
	"gymflow/pkg/logger"
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

	ApprovalWindow time.Duration
	QueueLockTTL   time.Duration
	SweepInterval  time.Duration

	PriorityVIPScore    int
	PriorityActiveScore int

	HighDemandMinWaiting      int
	HighDemandMinWaitingHours int

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
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

		ApprovalWindow: getEnvDuration(EnvApprovalWindow, DefaultApprovalWindow),
		QueueLockTTL:   getEnvDuration(EnvQueueLockTTL, DefaultQueueLockTTL),
		SweepInterval:  getEnvDuration(EnvSweepInterval, DefaultSweepInterval),

		PriorityVIPScore:    getEnvNum(EnvPriorityVIPScore, DefaultPriorityVIPScore),
		PriorityActiveScore: getEnvNum(EnvPriorityActiveScore, DefaultPriorityActiveScore),

		HighDemandMinWaiting:      getEnvNum(EnvHighDemandMinWaiting, DefaultHighDemandMinWaiting),
		HighDemandMinWaitingHours: getEnvNum(EnvHighDemandMinWaitingHours, DefaultHighDemandMinWaitingHours),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.LevelInfo),
			Format:    logger.FormatJSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.ApprovalWindow <= 0 {
		errors = append(errors, fmt.Sprintf("ApprovalWindow must be positive, got: %s", cfg.ApprovalWindow))
	}
	if cfg.QueueLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("QueueLockTTL must be positive, got: %s", cfg.QueueLockTTL))
	}
	if cfg.SweepInterval < 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval cannot be negative, got: %s", cfg.SweepInterval))
	}

	if cfg.PriorityVIPScore < 0 {
		errors = append(errors, fmt.Sprintf("PriorityVIPScore cannot be negative, got: %d", cfg.PriorityVIPScore))
	}
	if cfg.PriorityActiveScore < 0 {
		errors = append(errors, fmt.Sprintf("PriorityActiveScore cannot be negative, got: %d", cfg.PriorityActiveScore))
	}
	if cfg.PriorityVIPScore < cfg.PriorityActiveScore {
		errors = append(errors, fmt.Sprintf("PriorityVIPScore (%d) must be >= PriorityActiveScore (%d)", cfg.PriorityVIPScore, cfg.PriorityActiveScore))
	}

	if cfg.HighDemandMinWaiting <= 0 {
		errors = append(errors, fmt.Sprintf("HighDemandMinWaiting must be positive, got: %d", cfg.HighDemandMinWaiting))
	}
	if cfg.HighDemandMinWaitingHours <= 0 {
		errors = append(errors, fmt.Sprintf("HighDemandMinWaitingHours must be positive, got: %d", cfg.HighDemandMinWaitingHours))
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
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"approval_window", cfg.ApprovalWindow,
		"queue_lock_ttl", cfg.QueueLockTTL,
		"sweep_interval", cfg.SweepInterval,
		"priority_vip_score", cfg.PriorityVIPScore,
		"priority_active_score", cfg.PriorityActiveScore,
		"high_demand_min_waiting", cfg.HighDemandMinWaiting,
		"high_demand_min_waiting_hours", cfg.HighDemandMinWaitingHours,
	)
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
