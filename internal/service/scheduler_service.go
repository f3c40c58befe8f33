package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/scheduler"
)

type schedulerService struct {
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// NewSchedulerService wires the interval scheduler to the campaign due-check.
func NewSchedulerService(cfg *config.Config, campaigns CampaignService, logger *zap.Logger) SchedulerService {
	interval := time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}
	return &schedulerService{
		scheduler: scheduler.NewScheduler(logger, interval, campaigns.DispatchDue),
		logger:    logger,
	}
}

func (s *schedulerService) Start() error {
	return s.scheduler.Start(context.Background())
}

func (s *schedulerService) Stop() error {
	return s.scheduler.Stop()
}

func (s *schedulerService) IsRunning() bool {
	return s.scheduler.IsRunning()
}
