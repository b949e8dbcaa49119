package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"
)

// Compile-time interface checks.
var (
	_ tax.EventSink       = (*KafkaPublisher)(nil)
	_ tax.ReportEventSink = (*KafkaPublisher)(nil)
)

// EventType identifies a tax lifecycle event.
type EventType string

const (
	EventTypeTaxCalculated        EventType = "tax.calculated"
	EventTypeTaxCalculationFailed EventType = "tax.calculation_failed"
	EventTypeTaxCaptured          EventType = "tax.captured"
	EventTypeTaxRefunded          EventType = "tax.refunded"
)

// TaxEvent is the envelope published for every tax lifecycle event.
type TaxEvent struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	CartID     string          `json:"cart_id"`
	CustomerID string          `json:"customer_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// KafkaPublisher publishes tax events to Kafka. Publishing is
// best-effort: a broker outage must never fail a checkout, so errors
// are logged and swallowed.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TaxTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.TaxTopic,
		logger: logger,
	}
}

// TaxCalculated publishes a successful calculation pass.
func (p *KafkaPublisher) TaxCalculated(ctx context.Context, cartID, customerID string, results []*models.PackageResult) {
	data, err := json.Marshal(struct {
		Packages []*models.PackageResult `json:"packages"`
	}{Packages: results})
	if err != nil {
		p.logger.Error("Failed to marshal tax calculated event", logging.Fields{"error": err.Error()})
		return
	}
	p.publish(ctx, EventTypeTaxCalculated, cartID, customerID, data)
}

// TaxCalculationFailed publishes an aborted calculation pass.
func (p *KafkaPublisher) TaxCalculationFailed(ctx context.Context, cartID, customerID string, calcErr error) {
	data, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: calcErr.Error()})
	p.publish(ctx, EventTypeTaxCalculationFailed, cartID, customerID, data)
}

// TaxCaptured publishes a completed capture report.
func (p *KafkaPublisher) TaxCaptured(ctx context.Context, orderID string, results []*models.PackageResult) {
	data, _ := json.Marshal(struct {
		Packages []*models.PackageResult `json:"packages"`
	}{Packages: results})
	p.publish(ctx, EventTypeTaxCaptured, orderID, "", data)
}

// TaxRefunded publishes a completed refund report.
func (p *KafkaPublisher) TaxRefunded(ctx context.Context, orderID string, results []*models.PackageResult) {
	data, _ := json.Marshal(struct {
		Packages []*models.PackageResult `json:"packages"`
	}{Packages: results})
	p.publish(ctx, EventTypeTaxRefunded, orderID, "", data)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType EventType, cartID, customerID string, data json.RawMessage) {
	event := TaxEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		CartID:     cartID,
		CustomerID: customerID,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", logging.Fields{"error": err.Error()})
		return
	}

	msg := kafka.Message{
		Key:   []byte(cartID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"type":    string(eventType),
			"cart_id": cartID,
			"error":   err.Error(),
		})
		return
	}

	p.logger.Debug("Event published", logging.Fields{
		"type":    string(eventType),
		"cart_id": cartID,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
