package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/metrics"
)

const opCreate = "create"

// CreateResult is returned by CreateJob
type CreateResult struct {
	Job      *domain.Job
	Notified notify.Summary
}

// CreateJob validates and stores a new pending job, then alerts matching translators
func (m *Manager) CreateJob(ctx context.Context, customerID int64, req intake.Request) (*CreateResult, error) {
	customer, err := m.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}
	profile, err := m.profile(ctx, customerID)
	if err != nil {
		return nil, err
	}

	job, err := m.builder.Build(customer, profile, req, m.clock.Now())
	if err != nil {
		return nil, m.rejected(opCreate, err)
	}
	if job.JobType == domain.JobTypeNone {
		consumer := ""
		if profile != nil {
			consumer = profile.ConsumerType
		}
		return nil, m.rejected(opCreate, fmt.Errorf("%w: %q", domain.ErrUnknownConsumerType, consumer))
	}

	if err := m.jobs.CreateJob(ctx, job); err != nil {
		m.metrics.Transition(opCreate, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to store job: %w", err)
	}
	m.metrics.JobCreated(string(job.JobType))
	m.metrics.Transition(opCreate, metrics.OutcomeSuccess)

	m.logger.Info("Booking created",
		slog.Int64("job_id", job.ID),
		slog.Int64("customer_id", customer.ID),
		slog.Bool("immediate", job.Immediate),
		slog.Time("due", job.Due),
	)

	summary, err := m.dispatcher.NotifyTranslatorsOfJob(ctx, job, intake.JobToData(job, profile), 0)
	if err != nil {
		m.logger.Error("Failed to notify translators of new booking",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
	}

	return &CreateResult{Job: job, Notified: summary}, nil
}

// StoreJobEmail attaches contact details to a new job, emails the customer a
// receipt and publishes JobWasCreated.
func (m *Manager) StoreJobEmail(ctx context.Context, jobID int64, details intake.EmailDetails) (*domain.Job, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	owner, err := m.users.FindByID(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", job.UserID, err)
	}
	profile, err := m.profile(ctx, job.UserID)
	if err != nil {
		return nil, err
	}

	intake.ApplyEmailDetails(job, details, profile)
	if err := m.commit(ctx, "store_email", domain.JobUpdate{Job: job, ExpectedStatus: job.Status, At: m.clock.Now()}, domain.ErrTransitionNoOp); err != nil {
		return nil, err
	}

	subject := m.subject(notify.SubjectJobCreated, notify.BookingRef(job.ID))
	m.dispatcher.SendEmails(ctx, job.ID, customerEmail(job, owner, subject, TemplateJobCreated, nil))
	m.publish(ctx, domain.EventJobWasCreated, job, intake.JobToData(job, profile))

	return job, nil
}
