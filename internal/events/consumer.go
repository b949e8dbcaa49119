package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"
)

// OrderEventType identifies an order lifecycle event from the orders
// service.
type OrderEventType string

const (
	OrderEventCompleted OrderEventType = "order.completed"
	OrderEventRefunded  OrderEventType = "order.refunded"
)

// OrderEvent is the subset of the orders topic envelope this service
// cares about.
type OrderEvent struct {
	ID        string          `json:"id"`
	Type      OrderEventType  `json:"type"`
	OrderID   string          `json:"order_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// KafkaConsumer consumes order lifecycle events and drives capture and
// refund reporting from the persisted package results.
type KafkaConsumer struct {
	reader   *kafka.Reader
	reporter *tax.Reporter
	logger   *logging.Logger
	stopCh   chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based order event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, reporter *tax.Reporter, logger *logging.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.OrdersTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader:   reader,
		reporter: reporter,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start consumes until the context is cancelled or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting order event consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Order event consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}
			c.handleMessage(ctx, msg)
		}
	}
}

// Stop signals the consume loop to exit and closes the reader.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close reader", logging.Fields{"error": err.Error()})
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal order event", logging.Fields{
			"offset": msg.Offset,
			"error":  err.Error(),
		})
		return
	}

	if event.OrderID == "" {
		c.logger.Warn("Order event without order_id", logging.Fields{"event_id": event.ID})
		return
	}

	when := event.Timestamp
	if when.IsZero() {
		when = time.Now().UTC()
	}

	switch event.Type {
	case OrderEventCompleted:
		if err := c.reporter.Capture(ctx, event.OrderID, when); err != nil {
			c.logger.Error("Capture failed for order event", logging.Fields{
				"order_id": event.OrderID,
				"error":    err.Error(),
			})
		}
	case OrderEventRefunded:
		if err := c.reporter.Refund(ctx, event.OrderID, when); err != nil {
			c.logger.Error("Refund failed for order event", logging.Fields{
				"order_id": event.OrderID,
				"error":    err.Error(),
			})
		}
	default:
		// Other order events are not ours to handle.
	}
}
