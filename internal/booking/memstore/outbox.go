package memstore

import (
	"context"
	"sync"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

// Outbox records outbound messages and events instead of delivering them
type Outbox struct {
	mu     sync.Mutex
	emails []domain.Email
	pushes []domain.Envelope
	sms    []domain.SMS
	events []domain.Event

	// Err, when set, is returned by every send
	Err error
}

// NewOutbox creates an empty outbox
func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) SendEmail(_ context.Context, email domain.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return o.Err
	}
	o.emails = append(o.emails, email)
	return nil
}

func (o *Outbox) SendPush(_ context.Context, env domain.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return o.Err
	}
	o.pushes = append(o.pushes, env)
	return nil
}

func (o *Outbox) SendSMS(_ context.Context, sms domain.SMS) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return o.Err
	}
	o.sms = append(o.sms, sms)
	return nil
}

func (o *Outbox) Publish(_ context.Context, event domain.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, event)
	return nil
}

// Emails returns a copy of the recorded emails
func (o *Outbox) Emails() []domain.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Email(nil), o.emails...)
}

// Pushes returns a copy of the recorded push envelopes
func (o *Outbox) Pushes() []domain.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Envelope(nil), o.pushes...)
}

// SMS returns a copy of the recorded text messages
func (o *Outbox) SMS() []domain.SMS {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.SMS(nil), o.sms...)
}

// Events returns a copy of the recorded events
func (o *Outbox) Events() []domain.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Event(nil), o.events...)
}

// EmailsByTemplate filters recorded emails by template key
func (o *Outbox) EmailsByTemplate(template string) []domain.Email {
	var out []domain.Email
	for _, e := range o.Emails() {
		if e.Template == template {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets everything recorded so far
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.emails, o.pushes, o.sms, o.events = nil, nil, nil, nil
}
