// Package lifecycle is the booking state machine. It validates transitions,
// commits them with a compare-and-set on status and fans out notifications
// once the write has succeeded.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/matching"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
	"github.com/cuongbtq/booking-core/internal/metrics"
)

// Email templates
const (
	TemplateJobCreated                = "emails.job-created"
	TemplateJobAccepted               = "emails.job-accepted"
	TemplateSessionEnded              = "emails.session-ended"
	TemplateJobChangedDate            = "emails.job-changed-date"
	TemplateJobChangedLang            = "emails.job-changed-lang"
	TemplateTranslatorChangedCustomer = "emails.job-changed-translator-customer"
	TemplateTranslatorChangedOld      = "emails.job-changed-translator-old-translator"
	TemplateTranslatorChangedNew      = "emails.job-changed-translator-new-translator"
	TemplateStatusChangedCustomer     = "emails.status-changed-from-pending-or-assigned-customer"
	TemplateJobCancelTranslator       = "emails.job-cancel-translator"
	TemplateStatusChangedToCustomer   = "emails.job-change-status-to-customer"
)

// Config holds lifecycle settings
type Config struct {
	CancelWindow    time.Duration
	HistoryPageSize int
}

// Deps groups the collaborators of a Manager
type Deps struct {
	Users      domain.UserDirectory
	Jobs       domain.JobStore
	Engine     *matching.Engine
	Dispatcher *notify.Dispatcher
	Builder    *intake.Builder
	Events     domain.EventSink
	Clock      domain.Clock
	Metrics    metrics.Recorder
	Logger     *slog.Logger
}

// Manager orchestrates every booking operation
type Manager struct {
	users      domain.UserDirectory
	jobs       domain.JobStore
	engine     *matching.Engine
	dispatcher *notify.Dispatcher
	builder    *intake.Builder
	events     domain.EventSink
	clock      domain.Clock
	metrics    metrics.Recorder
	config     Config
	logger     *slog.Logger
}

// NewManager creates a new lifecycle manager
func NewManager(deps Deps, config Config) *Manager {
	if config.CancelWindow <= 0 {
		config.CancelWindow = timeutil.CancelWindow
	}
	if config.HistoryPageSize <= 0 {
		config.HistoryPageSize = 15
	}
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Manager{
		users:      deps.Users,
		jobs:       deps.Jobs,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		builder:    deps.Builder,
		events:     deps.Events,
		clock:      deps.Clock,
		metrics:    rec,
		config:     config,
		logger:     deps.Logger,
	}
}

// loadJob fetches a job and its assignment history
func (m *Manager) loadJob(ctx context.Context, jobID int64) (*domain.Job, []domain.Assignment, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	assignments, err := m.jobs.Assignments(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load assignments for job %d: %w", jobID, err)
	}
	return job, assignments, nil
}

// commit applies the update, mapping a lost compare-and-set to conflictErr
func (m *Manager) commit(ctx context.Context, op string, u domain.JobUpdate, conflictErr error) error {
	err := m.jobs.ApplyUpdate(ctx, u)
	switch {
	case err == nil:
		m.metrics.Transition(op, metrics.OutcomeSuccess)
		return nil
	case errors.Is(err, domain.ErrStatusConflict):
		m.metrics.Transition(op, metrics.OutcomeConflict)
		m.logger.Warn("Lost concurrent update",
			slog.String("operation", op),
			slog.Int64("job_id", u.Job.ID),
			slog.String("expected_status", string(u.ExpectedStatus)),
		)
		return conflictErr
	default:
		m.metrics.Transition(op, metrics.OutcomeError)
		return fmt.Errorf("failed to update job %d: %w", u.Job.ID, err)
	}
}

func (m *Manager) rejected(op string, err error) error {
	m.metrics.Transition(op, metrics.OutcomeRejected)
	return err
}

// user looks up a user for notification purposes; failures are logged
func (m *Manager) user(ctx context.Context, id int64) *domain.User {
	if id == 0 {
		return nil
	}
	u, err := m.users.FindByID(ctx, id)
	if err != nil {
		m.logger.Error("Failed to load user for notification",
			slog.Int64("user_id", id),
			slog.Any("error", err),
		)
		return nil
	}
	return u
}

// profile returns nil when the user has no profile
func (m *Manager) profile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, err := m.users.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %d: %w", userID, err)
	}
	return p, nil
}

func (m *Manager) publish(ctx context.Context, name string, job *domain.Job, payload map[string]any) {
	event := domain.Event{Name: name, JobID: job.ID, Payload: payload, At: m.clock.Now()}
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Error("Failed to publish event",
			slog.String("event", name),
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
	}
}

func (m *Manager) subject(key string, args ...any) string {
	return m.dispatcher.Printers().Sprintf(key, args...)
}

// customerEmail addresses the job's customer, preferring the booking's contact email
func customerEmail(job *domain.Job, owner *domain.User, subject, template string, extra map[string]any) domain.Email {
	return domain.Email{
		To:       domain.EmailAddress(job, owner),
		Name:     owner.Name,
		Subject:  subject,
		Template: template,
		Data:     emailData(job, owner, extra),
	}
}

func userEmail(job *domain.Job, to *domain.User, subject, template string, extra map[string]any) domain.Email {
	return domain.Email{
		To:       to.Email,
		Name:     to.Name,
		Subject:  subject,
		Template: template,
		Data:     emailData(job, to, extra),
	}
}

func emailData(job *domain.Job, to *domain.User, extra map[string]any) map[string]any {
	data := map[string]any{
		"user_name": to.Name,
		"job":       intake.JobToData(job, nil),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// jobLabel is the short "language, duration, due" description used in replies
func (m *Manager) jobLabel(job *domain.Job) (string, int, string) {
	return m.dispatcher.LanguageName(job.FromLanguageID), job.Duration, job.Due.Format("2006-01-02 15:04")
}
