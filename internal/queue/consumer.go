package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
)

// DispatchHandler processes one dispatch job. Returning an error requeues the
// delivery once; a second failure drops it.
type DispatchHandler func(ctx context.Context, job DispatchJob) error

// Consumer drains the dispatch queue with a bounded worker pool.
type Consumer struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	queue    string
	exchange string
	prefetch int
	handler  DispatchHandler
	logger   *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewConsumer(cfg *config.BrokerConfig, handler DispatchHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Consumer{
		conn:     conn,
		ch:       ch,
		queue:    cfg.DispatchQueue,
		exchange: cfg.Exchange,
		prefetch: cfg.Prefetch,
		handler:  handler,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start declares and binds the queue, then consumes until Close.
func (c *Consumer) Start() error {
	var startErr error
	c.once.Do(func() {
		if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
			startErr = fmt.Errorf("failed to set qos: %w", err)
			return
		}

		q, err := c.ch.QueueDeclare(c.queue, true, false, false, false, nil)
		if err != nil {
			startErr = fmt.Errorf("failed to declare queue: %w", err)
			return
		}
		if err := c.ch.QueueBind(q.Name, DispatchRoutingKey, c.exchange, false, nil); err != nil {
			startErr = fmt.Errorf("failed to bind queue: %w", err)
			return
		}

		deliveries, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			startErr = fmt.Errorf("failed to start consuming: %w", err)
			return
		}

		c.wg.Add(1)
		go c.loop(deliveries)
		c.logger.Info("Dispatch consumer started", zap.String("queue", c.queue))
	})
	return startErr
}

func (c *Consumer) loop(deliveries <-chan amqp091.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(delivery)
		}
	}
}

func (c *Consumer) handle(delivery amqp091.Delivery) {
	var job DispatchJob
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		c.logger.Warn("Dropping malformed dispatch job", zap.Error(err))
		_ = delivery.Ack(false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := c.handler(ctx, job)
	cancel()

	if err != nil {
		c.logger.Error("Dispatch job failed",
			zap.String("campaignID", job.CampaignID),
			zap.String("customerID", job.CustomerID),
			zap.Error(err))
		// One redelivery attempt, then drop.
		_ = delivery.Nack(false, !delivery.Redelivered)
		return
	}

	_ = delivery.Ack(false)
}

// Close stops consumption and tears down the connection.
func (c *Consumer) Close() error {
	close(c.done)
	c.wg.Wait()
	_ = c.ch.Close()
	return c.conn.Close()
}
