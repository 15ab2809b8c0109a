package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"salespipe/config"
	"salespipe/internal/consumers"
	"salespipe/internal/events"
	"salespipe/internal/handler"
	"salespipe/internal/outbox"
	"salespipe/internal/publisher"
	"salespipe/internal/repository"
	"salespipe/internal/server"
	"salespipe/internal/services"
	"salespipe/pkg/database"
	"salespipe/pkg/logger"
	"salespipe/pkg/tasks"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := repository.InitSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	outboxRepo := repository.NewOutboxRepository(pool)
	idemRepo := repository.NewIdempotencyRepository(pool)
	contactRepo := repository.NewContactRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	engagementRepo := repository.NewEngagementRepository(pool)

	registry := events.NewRegistry()
	deps := consumers.Deps{
		Activity:   consumers.NewActivityHandler(activityRepo, l),
		Engagement: consumers.NewEngagementHandler(engagementRepo, l),
	}
	if cfg.KafkaEnabled {
		kp := publisher.NewKafkaPublisher(publisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		deps.FanOut = append(deps.FanOut, kp.Handle)
	}
	if cfg.RedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rp := publisher.NewRedisPublisher(client)
		deps.FanOut = append(deps.FanOut, rp.Handle)
	}
	consumers.RegisterAll(registry, deps)

	dispatcher := outbox.NewDispatcher(outboxRepo, registry, l, outbox.Options{
		BatchSize:         cfg.DispatcherBatchSize,
		PollInterval:      cfg.DispatcherPollInterval,
		HandlerTimeout:    cfg.HandlerTimeout,
		SweepInterval:     cfg.SweepInterval,
		MaxRetries:        cfg.DispatcherMaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		StaleClaimTimeout: cfg.StaleClaimTimeout,
		RetentionPeriod:   cfg.RetentionPeriod,
	})
	go dispatcher.Run(ctx)
	go dispatcher.RunSweeps(ctx)

	// Expired keys are already treated as absent by the gate; this just keeps
	// the table from growing without bound.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := idemRepo.DeleteExpired(ctx); err != nil {
					l.Errorf("prune expired idempotency keys: %s", err)
				} else if n > 0 {
					l.Infof("pruned %d expired idempotency keys", n)
				}
			}
		}
	}()

	writer := outbox.NewWriter(outboxRepo)
	contactService := services.NewContactService(pool, contactRepo, writer)

	tracker := tasks.NewTracker()
	srv := server.New(cfg, l, pool, tracker)
	srv.SetupRoutes(&server.Handlers{
		Contacts: handler.NewContactHandler(contactService),
	}, idemRepo)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
