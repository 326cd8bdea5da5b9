package main

import (
	"context"
	"time"

	checkinhandler "gymflow/internal/checkins/handler"
	checkinrepository "gymflow/internal/checkins/repository"
	checkinservice "gymflow/internal/checkins/service"
	financialhandler "gymflow/internal/financial/handler"
	memberhandler "gymflow/internal/members/handler"
	memberrepository "gymflow/internal/members/repository"
	memberservice "gymflow/internal/members/service"
	membervalidator "gymflow/internal/members/validator"
	sessionhandler "gymflow/internal/sessions/handler"
	sessionrepository "gymflow/internal/sessions/repository"
	sessionservice "gymflow/internal/sessions/service"
	sessionvalidator "gymflow/internal/sessions/validator"
	subscriptionhandler "gymflow/internal/subscriptions/handler"
	subscriptionrepository "gymflow/internal/subscriptions/repository"
	subscriptionservice "gymflow/internal/subscriptions/service"
	trainerhandler "gymflow/internal/trainers/handler"
	trainerrepository "gymflow/internal/trainers/repository"
	trainerservice "gymflow/internal/trainers/service"
	waitlisthandler "gymflow/internal/waitlist/handler"
	waitlistrepository "gymflow/internal/waitlist/repository"
	waitlistservice "gymflow/internal/waitlist/service"
	"gymflow/pkg/app"
	"gymflow/pkg/config"
	"gymflow/pkg/contracts"
	"gymflow/pkg/kafka"
	kafka_config "gymflow/pkg/kafka/config"
	kafka_middleware "gymflow/pkg/kafka/middleware"

	"github.com/julienschmidt/httprouter"
)

const ServiceName = "gym"

// apiHandlers bundles every domain handler behind a single route registrar.
type apiHandlers []contracts.Handler

func (hs apiHandlers) RegisterRoutes(router *httprouter.Router) {
	for _, h := range hs {
		h.RegisterRoutes(router)
	}
}

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Gym service")
	cfg.SetMongo()

	producer := initProducer(cfg)

	handlers, waitlistSvc := initServices(cfg, producer)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handlers)

	if producer != nil {
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}

	if cfg.SweepInterval > 0 {
		stopSweeper := startSweeper(cfg, waitlistSvc)
		serverApp.OnShutdown(stopSweeper)
	}

	serverApp.Run()
}

// initProducer builds the waitlist event producer. The service runs without
// one when the brokers are unreachable at startup; events are best effort.
func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(
		kafkaCfg,
		waitlistservice.TopicWaitlistEvents,
		waitlistservice.TopicWaitlistEventsDLQ,
	)
	if err != nil {
		cfg.Log.Error("Failed to create Kafka producer, waitlist events disabled", "error", err)
		return nil
	}

	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	return producer
}

func initServices(cfg *config.Config, producer *kafka.Producer) (apiHandlers, waitlistservice.WaitlistService) {
	memberRepo := memberrepository.NewMongoMemberRepository(cfg)
	memberSvc := memberservice.NewMemberService(
		memberRepo,
		membervalidator.NewMemberValidator(cfg.Log),
		cfg,
	)

	trainerRepo := trainerrepository.NewMongoTrainerRepository(cfg)
	trainerSvc := trainerservice.NewTrainerService(trainerRepo, cfg)

	planRepo := subscriptionrepository.NewMongoPlanRepository(cfg)
	subRepo := subscriptionrepository.NewMongoSubscriptionRepository(cfg)
	subscriptionSvc := subscriptionservice.NewSubscriptionService(subRepo, planRepo, memberSvc, cfg)

	sessionRepo := sessionrepository.NewMongoClassSessionRepository(cfg)
	enrollRepo := sessionrepository.NewMongoEnrollmentRepository(cfg)
	sessionSvc := sessionservice.NewSessionService(
		sessionRepo,
		enrollRepo,
		sessionvalidator.NewClassSessionValidator(cfg.Log),
		memberSvc,
		trainerSvc,
		cfg,
	)

	var publisher waitlistservice.EventPublisher
	if producer != nil {
		publisher = producer
	}

	waitlistRepo := waitlistrepository.NewMongoWaitingListRepository(cfg)
	lockRepo := waitlistrepository.NewQueueLockRepository(cfg)
	waitlistSvc := waitlistservice.NewWaitlistService(
		waitlistRepo,
		lockRepo,
		sessionSvc,
		memberSvc,
		subscriptionSvc,
		publisher,
		cfg,
	)

	// Sessions enqueue and promote through the waitlist; wired last to close
	// the loop between the two services.
	sessionSvc.SetWaitlist(waitlistSvc)

	checkinRepo := checkinrepository.NewMongoCheckinRepository(cfg)
	checkinSvc := checkinservice.NewCheckinService(checkinRepo, memberSvc, subscriptionSvc, cfg)

	cfg.Log.Info("Gym services initialized", "database", cfg.MongoDatabaseName)

	return apiHandlers{
		memberhandler.NewMemberHandler(memberSvc, cfg.Log),
		trainerhandler.NewTrainerHandler(trainerSvc, cfg.Log),
		subscriptionhandler.NewSubscriptionHandler(subscriptionSvc, cfg.Log),
		sessionhandler.NewSessionHandler(sessionSvc, cfg.Log),
		waitlisthandler.NewWaitlistHandler(waitlistSvc, cfg.Log),
		checkinhandler.NewCheckinHandler(checkinSvc, cfg.Log),
		financialhandler.NewFinancialHandler(waitlistSvc, cfg.Log),
	}, waitlistSvc
}

// startSweeper reaps overdue assigned entries in the background. Expiry is
// otherwise lazy, evaluated when an entry is touched; the sweeper bounds how
// long an abandoned offer can block a queue.
func startSweeper(cfg *config.Config, waitlist waitlistservice.WaitlistService) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(cfg.SweepInterval)

	go func() {
		cfg.Log.Info("Waitlist sweeper started", "interval", cfg.SweepInterval)
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
				if _, err := waitlist.SweepExpired(ctx, ""); err != nil {
					cfg.Log.Error("Waitlist sweep failed", "error", err)
				}
				cancel()
			case <-done:
				ticker.Stop()
				cfg.Log.Info("Waitlist sweeper stopped")
				return
			}
		}
	}()

	return func() { close(done) }
}
