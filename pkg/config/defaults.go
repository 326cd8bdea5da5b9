package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "gymflow"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

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

	// Assigned waiting-list entries must be confirmed within this window.
	DefaultApprovalWindow = 24 * time.Hour
	// Advisory lock lifetime for a session queue. Long enough to cover a
	// transaction, short enough that a crashed holder does not wedge the queue.
	DefaultQueueLockTTL = 10 * time.Second
	// 0 disables the background expiry sweep; expiry then happens lazily on
	// reads, confirms and explicit check-expired calls.
	DefaultSweepInterval = time.Duration(0)

	DefaultPriorityVIPScore    = 1000
	DefaultPriorityActiveScore = 100

	DefaultHighDemandMinWaiting      = 3
	DefaultHighDemandMinWaitingHours = 24
)
