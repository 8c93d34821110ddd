package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/shared/rabbitmq"
	"github.com/google/uuid"
)

var (
	_ domain.MessageTransport = (*Publisher)(nil)
	_ domain.EventSink        = (*Publisher)(nil)
)

// Broker is the part of the RabbitMQ client the publisher needs
type Broker interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// Publisher implements MessageTransport and EventSink on top of a Broker
type Publisher struct {
	broker Broker
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher
func NewPublisher(broker Broker, logger *slog.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Publisher) SendEmail(ctx context.Context, email domain.Email) error {
	return p.send(ctx, &Message{Kind: KindEmail, Email: &email})
}

func (p *Publisher) SendPush(ctx context.Context, env domain.Envelope) error {
	return p.send(ctx, &Message{Kind: KindPush, Push: &env})
}

func (p *Publisher) SendSMS(ctx context.Context, sms domain.SMS) error {
	return p.send(ctx, &Message{Kind: KindSMS, SMS: &sms})
}

// Publish sends a domain event under event.<Name>
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	return p.send(ctx, &Message{Kind: KindEvent, Event: &event})
}

func (p *Publisher) send(ctx context.Context, m *Message) error {
	m.ID = uuid.NewString()
	m.CreatedAt = p.now()

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", m.Kind, err)
	}

	out := rabbitmq.Message{
		RoutingKey:  m.RoutingKey(),
		MessageID:   m.ID,
		Type:        string(m.Kind),
		ContentType: contentTypeJSON,
		Headers:     map[string]any{"kind": string(m.Kind)},
		Body:        body,
	}
	if err := p.broker.Publish(ctx, out); err != nil {
		return fmt.Errorf("failed to publish %s message: %w", m.Kind, err)
	}

	p.logger.Debug("Message queued",
		slog.String("kind", string(m.Kind)),
		slog.String("message_id", m.ID),
		slog.String("routing_key", out.RoutingKey),
	)
	return nil
}
