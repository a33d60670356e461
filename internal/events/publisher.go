// Package events publishes domain events to Kafka for downstream consumers
// such as analytics and fulfilment.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/checkout"
	"github.com/gigstastore/marketplace/internal/domain/order"
)

// Topics carrying marketplace events.
const (
	TopicOrders  = "marketplace.orders"
	TopicSellers = "marketplace.sellers"
)

// Event types emitted by this service.
const (
	TypeOrderCompleted  = "order.completed"
	TypeSellerActivated = "seller.activated"
)

// Envelope is the wire format shared by every published event.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// OrderCompletedData is the payload of order.completed.
type OrderCompletedData struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	SellerID    string `json:"seller_id"`
	TotalAmount string `json:"total_amount"`
	PlatformFee string `json:"platform_fee"`
	IsRecurring bool   `json:"is_recurring"`
}

// SellerActivatedData is the payload of seller.activated.
type SellerActivatedData struct {
	SellerID string `json:"seller_id"`
}

var _ checkout.EventPublisher = (*Publisher)(nil)

// Publisher writes domain events to Kafka.
type Publisher struct {
	writer  *kafka.Writer
	brokers []string
	lg      *zap.Logger
}

// NewPublisher creates a Publisher for the given brokers.
func NewPublisher(brokers []string, lg *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Publisher{writer: w, brokers: brokers, lg: lg}
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal event data")
	}

	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s to %s", eventType, topic)
	}

	p.lg.Debug("Event published",
		zap.String("topic", topic),
		zap.String("event_type", eventType),
		zap.String("key", key))
	return nil
}

// OrderCompleted emits order.completed keyed by the order id.
func (p *Publisher) OrderCompleted(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, TopicOrders, TypeOrderCompleted, o.ID, OrderCompletedData{
		OrderID:     o.ID,
		UserID:      o.UserID,
		SellerID:    o.SellerID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		PlatformFee: o.PlatformFeeAmount.StringFixed(2),
		IsRecurring: o.IsRecurring,
	})
}

// SellerActivated emits seller.activated keyed by the seller id.
func (p *Publisher) SellerActivated(ctx context.Context, sellerID string) error {
	return p.publish(ctx, TopicSellers, TypeSellerActivated, sellerID, SellerActivatedData{
		SellerID: sellerID,
	})
}

// Ping dials the brokers as a readiness probe.
func (p *Publisher) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no brokers configured")
	}
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return errors.Wrap(lastErr, "all brokers unreachable")
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
