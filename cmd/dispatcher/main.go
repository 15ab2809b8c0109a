package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"salespipe/config"
	"salespipe/internal/consumers"
	"salespipe/internal/events"
	"salespipe/internal/outbox"
	"salespipe/internal/publisher"
	"salespipe/internal/repository"
	"salespipe/internal/server"
	"salespipe/pkg/database"
	"salespipe/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Standalone dispatcher process, for deployments that separate the HTTP
// surface from event processing. The claim step keeps multiple instances
// correct against one outbox.
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

	outboxRepo := repository.NewOutboxRepository(pool)
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

	go dispatcher.RunSweeps(ctx)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
		<-quit
		l.Infof("Shutdown signal received, finishing current cycle")
		cancel()
	}()

	dispatcher.Run(ctx)
}
