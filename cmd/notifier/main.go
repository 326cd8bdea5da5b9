package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	waitlistservice "gymflow/internal/waitlist/service"
	"gymflow/pkg/config"
	"gymflow/pkg/kafka"
	kafka_config "gymflow/pkg/kafka/config"
	kafka_middleware "gymflow/pkg/kafka/middleware"
	"gymflow/pkg/logger"
)

const (
	ServiceName   = "notifier"
	consumerGroup = "gymflow-notifier"
)

// The notifier turns queue transitions into member-facing notifications.
// Delivery here is a structured log line; a real channel (push, SMS, email)
// plugs in behind notify without touching the consumer.
func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Notifier service")

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		waitlistservice.TopicWaitlistEvents,
		consumerGroup,
		waitlistservice.TopicWaitlistEventsDLQ,
		handleEvent(cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}

func handleEvent(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event waitlistservice.WaitlistEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}

		notify(log, msg.GetEventType(), event)
		return nil
	}
}

func notify(log *logger.Logger, eventType string, event waitlistservice.WaitlistEvent) {
	switch eventType {
	case waitlistservice.EventWaitlistAdded:
		log.Info("Notify: added to waiting list",
			"member_id", event.MemberID,
			"session_id", event.SessionID,
			"position", event.Position,
		)
	case waitlistservice.EventWaitlistPromoted:
		log.Info("Notify: spot offered, confirm before the deadline",
			"member_id", event.MemberID,
			"session_id", event.SessionID,
		)
	case waitlistservice.EventWaitlistConfirmed:
		log.Info("Notify: enrollment confirmed",
			"member_id", event.MemberID,
			"session_id", event.SessionID,
		)
	case waitlistservice.EventWaitlistExpired:
		log.Info("Notify: offer expired",
			"member_id", event.MemberID,
			"session_id", event.SessionID,
		)
	case waitlistservice.EventWaitlistCancelled:
		log.Info("Notify: waiting list entry cancelled",
			"member_id", event.MemberID,
			"session_id", event.SessionID,
		)
	default:
		log.Warn("Unknown waitlist event type", "event_type", eventType, "entry_id", event.EntryID)
	}
}
