// Package main is the entry point for the commhub API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/handler"
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

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
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

	brokerCheck := func() error {
		conn, err := amqp091.Dial(cfg.Broker.URL)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	repo := repository.NewRepository(db)
	services := service.NewService(cfg, repo, redisClient, publisher, brokerCheck, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.NewHandler(services, logger).Router(cfg),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := services.Scheduler.Start(); err != nil {
		logger.Error("Failed to start campaign scheduler", zap.Error(err))
	} else {
		logger.Info("Campaign scheduler started")
	}

	go func() {
		logger.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if services.Scheduler.IsRunning() {
		if err := services.Scheduler.Stop(); err != nil {
			logger.Error("Failed to stop campaign scheduler", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
