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

	EnvApprovalWindow = "APPROVAL_WINDOW"
	EnvQueueLockTTL   = "QUEUE_LOCK_TTL"
	EnvSweepInterval  = "SWEEP_INTERVAL"

	EnvPriorityVIPScore    = "PRIORITY_VIP_SCORE"
	EnvPriorityActiveScore = "PRIORITY_ACTIVE_SCORE"

	EnvHighDemandMinWaiting      = "HIGH_DEMAND_MIN_WAITING"
	EnvHighDemandMinWaitingHours = "HIGH_DEMAND_MIN_WAITING_HOURS"
)
