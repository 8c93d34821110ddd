// Package transport publishes outbound notifications and domain events to
// RabbitMQ and decodes them again on the consuming side.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

// Kind tags the payload carried by a Message
type Kind string

const (
	KindEmail Kind = "email"
	KindPush  Kind = "push"
	KindSMS   Kind = "sms"
	KindEvent Kind = "event"
)

// Routing keys on the notifications exchange
const (
	RoutingKeyEmail    = "notify.email"
	RoutingKeyPush     = "notify.push"
	RoutingKeySMS      = "notify.sms"
	routingPrefixEvent = "event."
)

const contentTypeJSON = "application/json"

// ErrUnknownKind is returned when a message carries no recognised payload
var ErrUnknownKind = errors.New("unknown message kind")

// Message is the JSON body published for every outbound item
type Message struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
	Email     *domain.Email    `json:"email,omitempty"`
	Push      *domain.Envelope `json:"push,omitempty"`
	SMS       *domain.SMS      `json:"sms,omitempty"`
	Event     *domain.Event    `json:"event,omitempty"`
}

// EventRoutingKey returns the routing key for a named domain event
func EventRoutingKey(name string) string {
	return routingPrefixEvent + name
}

// RoutingKey returns the key the message is published under
func (m *Message) RoutingKey() string {
	switch m.Kind {
	case KindEmail:
		return RoutingKeyEmail
	case KindPush:
		return RoutingKeyPush
	case KindSMS:
		return RoutingKeySMS
	case KindEvent:
		if m.Event != nil {
			return EventRoutingKey(m.Event.Name)
		}
	}
	return ""
}

// Validate checks that the payload matching Kind is present
func (m *Message) Validate() error {
	var ok bool
	switch m.Kind {
	case KindEmail:
		ok = m.Email != nil
	case KindPush:
		ok = m.Push != nil
	case KindSMS:
		ok = m.SMS != nil
	case KindEvent:
		ok = m.Event != nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	if !ok {
		return fmt.Errorf("%s message has no payload", m.Kind)
	}
	return nil
}

// Decode parses and validates a message body
func Decode(body []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
