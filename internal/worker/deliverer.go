package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-core/internal/booking/transport"
)

// Deliverer hands a decoded message to the outside world
type Deliverer interface {
	Deliver(ctx context.Context, msg *transport.Message) error
}

// LogDeliverer writes every message to the log instead of a provider
type LogDeliverer struct {
	Logger *slog.Logger
}

func (d LogDeliverer) Deliver(_ context.Context, msg *transport.Message) error {
	attrs := []any{
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
	}

	switch msg.Kind {
	case transport.KindEmail:
		attrs = append(attrs,
			slog.String("to", msg.Email.To),
			slog.String("subject", msg.Email.Subject),
			slog.String("template", msg.Email.Template),
		)
	case transport.KindPush:
		attrs = append(attrs,
			slog.Int64("job_id", msg.Push.JobID),
			slog.String("channel", string(msg.Push.Channel)),
			slog.Int("recipients", len(msg.Push.Recipients)),
		)
		if msg.Push.SendAfter != nil {
			attrs = append(attrs, slog.Time("send_after", *msg.Push.SendAfter))
		}
	case transport.KindSMS:
		attrs = append(attrs,
			slog.String("from", msg.SMS.From),
			slog.String("to", msg.SMS.To),
		)
	case transport.KindEvent:
		attrs = append(attrs,
			slog.String("event", msg.Event.Name),
			slog.Int64("job_id", msg.Event.JobID),
		)
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidMessage, msg.Kind)
	}

	d.Logger.Info("Message delivered", attrs...)
	return nil
}
