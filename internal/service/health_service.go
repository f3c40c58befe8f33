package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/repository"
)

type healthService struct {
	repo        repository.Repository
	redisClient *redis.Client
	brokerCheck func() error
	messages    MessageService
	scheduler   SchedulerService
	logger      *zap.Logger
}

// NewHealthService aggregates component probes. brokerCheck may be nil when
// no broker is configured.
func NewHealthService(
	repo repository.Repository,
	redisClient *redis.Client,
	brokerCheck func() error,
	messages MessageService,
	schedulerSvc SchedulerService,
	logger *zap.Logger,
) HealthService {
	return &healthService{
		repo:        repo,
		redisClient: redisClient,
		brokerCheck: brokerCheck,
		messages:    messages,
		scheduler:   schedulerSvc,
		logger:      logger,
	}
}

func (s *healthService) GetHealth() *HealthStatus {
	status := &HealthStatus{
		DatabaseStatus: ComponentConnected,
		RedisStatus:    ComponentConnected,
		BrokerStatus:   ComponentConnected,
	}

	if err := s.repo.Ping(); err != nil {
		s.logger.Error("Database health check failed", zap.Error(err))
		status.DatabaseStatus = ComponentDisconnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.logger.Error("Redis health check failed", zap.Error(err))
		status.RedisStatus = ComponentDisconnected
	}

	if s.brokerCheck != nil {
		if err := s.brokerCheck(); err != nil {
			s.logger.Error("Broker health check failed", zap.Error(err))
			status.BrokerStatus = ComponentDisconnected
		}
	}

	status.SchedulerRunning = s.scheduler.IsRunning()

	state, requests, failures := s.messages.BreakerStatus()
	status.CircuitBreakerState = state
	status.CircuitBreakerStatus = fmt.Sprintf("requests=%d failures=%d", requests, failures)

	switch {
	case status.DatabaseStatus == ComponentDisconnected:
		status.Status = StatusUnhealthy
	case status.RedisStatus == ComponentDisconnected,
		status.BrokerStatus == ComponentDisconnected,
		state == BreakerOpen:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}

	return status
}
