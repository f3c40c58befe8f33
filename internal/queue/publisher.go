// Package queue carries campaign dispatch jobs over RabbitMQ so the API
// process can enqueue recipients and workers can send them independently.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
)

// DispatchRoutingKey routes per-recipient campaign sends.
const DispatchRoutingKey = "campaign.dispatch"

// DispatchJob is one recipient of one campaign.
type DispatchJob struct {
	CampaignID string `json:"campaign_id"`
	CustomerID string `json:"customer_id"`
}

// Publisher pushes dispatch jobs to the broker.
type Publisher interface {
	PublishDispatch(ctx context.Context, job DispatchJob) error
	Close() error
}

type publisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

func NewPublisher(cfg *config.BrokerConfig, logger *zap.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() {
		_ = ch.Close()
	}()

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &publisher{
		conn:     conn,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

func (p *publisher) PublishDispatch(ctx context.Context, job DispatchJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() {
		_ = ch.Close()
	}()

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, DispatchRoutingKey, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish dispatch job: %w", err)
	}

	p.logger.Debug("Published dispatch job",
		zap.String("campaignID", job.CampaignID),
		zap.String("customerID", job.CustomerID))
	return nil
}

func (p *publisher) Close() error {
	return p.conn.Close()
}
