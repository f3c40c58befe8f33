// Package main is the entry point for the campaign dispatch worker. It
// consumes per-recipient jobs from the broker and sends them over WhatsApp.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/queue"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	publisher, err := queue.NewPublisher(&cfg.Broker, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message broker", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close broker connection", zap.Error(err))
		}
	}()

	repo := repository.NewRepository(db)
	services := service.NewService(cfg, repo, redisClient, publisher, nil, logger)

	consumer, err := queue.NewConsumer(&cfg.Broker, services.Campaign.HandleDispatchJob, logger)
	if err != nil {
		logger.Fatal("Failed to create dispatch consumer", zap.Error(err))
	}

	if err := consumer.Start(); err != nil {
		logger.Fatal("Failed to start dispatch consumer", zap.Error(err))
	}
	logger.Info("Worker started", zap.String("queue", cfg.Broker.DispatchQueue))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")

	if err := consumer.Close(); err != nil {
		logger.Error("Failed to close dispatch consumer", zap.Error(err))
	}

	logger.Info("Worker exited")
}
