package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopPublisher is used when no event bus is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped (no bus configured)", "subject", subject)
	return nil
}

func (NoopPublisher) Close() error { return nil }

// Subjects
const (
	LoginCodeIssued = "auth.code.issued"
	UserLoggedIn    = "auth.login.success"
	OrderPlaced     = "order.placed"
	OrderDelivered  = "order.delivered"
	NotifySend      = "notify.send"
)

type LoginCodeIssuedEvent struct {
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IssuedAt time.Time `json:"issued_at"`
}

type UserLoggedInEvent struct {
	UserID   int64     `json:"user_id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	LoggedAt time.Time `json:"logged_at"`
}

type OrderPlacedEvent struct {
	OrderID       int64     `json:"order_id"`
	PatientID     int64     `json:"patient_id"`
	TotalAmount   string    `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
	PlacedAt      time.Time `json:"placed_at"`
}

type OrderDeliveredEvent struct {
	OrderID     int64     `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// NotifySendEvent records a delivered (or requested) notification so
// downstream consumers can audit or fan out to other channels.
type NotifySendEvent struct {
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Template  string    `json:"template"`
	QueuedAt  time.Time `json:"queued_at"`
}
