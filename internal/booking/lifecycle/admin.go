package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
	"github.com/cuongbtq/booking-core/internal/metrics"
)

const (
	opReopen   = "reopen"
	opDistance = "distance_feed"
)

// ReopenResult names the job that is pending again
type ReopenResult struct {
	JobID    int64          `json:"job_id"`
	Created  bool           `json:"created"`
	Notified notify.Summary `json:"-"`
}

// Reopen puts a booking back on the market. A timed out booking is copied
// into a new pending job; a live one is reset in place. Terminal bookings
// cannot be reopened.
func (m *Manager) Reopen(ctx context.Context, jobID, actorID int64) (*ReopenResult, error) {
	actor, err := m.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	job, assignments, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != job.UserID {
		return nil, m.rejected(opReopen, domain.ErrRole)
	}
	if job.Status.IsTerminal() {
		return nil, m.rejected(opReopen, fmt.Errorf("%w: job %d is %s", domain.ErrTransitionNoOp, jobID, job.Status))
	}

	now := m.clock.Now()
	conflict := fmt.Errorf("%w: job %d changed status concurrently", domain.ErrTransitionNoOp, jobID)
	update := domain.JobUpdate{
		ExpectedStatus: job.Status,
		NewAssignment:  &domain.Assignment{JobID: jobID, UserID: actor.ID, CreatedAt: now, CancelAt: &now},
		At:             now,
	}
	if active := domain.ActiveAssignment(assignments); active != nil {
		update.CancelAssignmentID = active.ID
	}

	result := &ReopenResult{JobID: jobID}
	original := *job

	timedOut := job.Status == domain.StatusTimedOut
	if timedOut {
		original.CancelAt = &now
	} else {
		original.Status = domain.StatusPending
		original.CreatedAt = now
		original.WillExpireAt = timeutil.WillExpireAt(original.Due, now)
		original.PinnedTranslatorID = nil
	}

	update.Job = &original
	if err := m.commit(ctx, opReopen, update, conflict); err != nil {
		return nil, err
	}

	if timedOut {
		copied := reopenedCopy(*job, now)
		if err := m.jobs.CreateJob(ctx, &copied); err != nil {
			return nil, fmt.Errorf("failed to create reopened job: %w", err)
		}
		result.JobID = copied.ID
		result.Created = true
	}

	m.logger.Info("Booking reopened",
		slog.Int64("job_id", jobID),
		slog.Int64("new_job_id", result.JobID),
		slog.Int64("actor_id", actor.ID),
	)

	summary, err := m.NotifyByAdminCancelJob(ctx, result.JobID)
	if err != nil {
		m.logger.Error("Failed to notify translators of reopened booking",
			slog.Int64("job_id", result.JobID),
			slog.Any("error", err),
		)
	}
	result.Notified = summary
	return result, nil
}

func reopenedCopy(job domain.Job, now time.Time) domain.Job {
	copied := job
	copied.ID = 0
	copied.Status = domain.StatusPending
	copied.CreatedAt = now
	copied.WillExpireAt = timeutil.WillExpireAt(job.Due, now)
	copied.EndAt = nil
	copied.CancelAt = nil
	copied.WithdrawAt = nil
	copied.SessionTime = ""
	copied.EmailSent = false
	copied.EmailSentToVirpal = false
	copied.PinnedTranslatorID = nil
	copied.Version = 0
	copied.AdminComments = "This booking is a reopening of booking #" + notify.BookingRef(job.ID)
	return copied
}

// NotifyByAdminCancelJob alerts translators about a booking an admin put back
// on the market, locating it in the customer's home town.
func (m *Manager) NotifyByAdminCancelJob(ctx context.Context, jobID int64) (notify.Summary, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return notify.Summary{}, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	profile, err := m.profile(ctx, job.UserID)
	if err != nil {
		return notify.Summary{}, err
	}

	data := intake.JobToData(job, profile)
	if profile != nil && profile.City != "" {
		data["customer_town"] = profile.City
	}
	return m.dispatcher.NotifyTranslatorsOfJob(ctx, job, data, 0)
}

// ResendNotifications pushes the suitable-job alert for a job again
func (m *Manager) ResendNotifications(ctx context.Context, jobID int64) (notify.Summary, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return notify.Summary{}, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	profile, err := m.profile(ctx, job.UserID)
	if err != nil {
		return notify.Summary{}, err
	}
	return m.dispatcher.NotifyTranslatorsOfJob(ctx, job, intake.JobToData(job, profile), 0)
}

// ResendSMSNotifications texts every matching translator and returns how many matched
func (m *Manager) ResendSMSNotifications(ctx context.Context, jobID int64) (int, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	return m.dispatcher.SendSMSToTranslators(ctx, job)
}

// UpdateDistanceFeed records the admin's post-session bookkeeping. Flagging a
// job requires a comment.
func (m *Manager) UpdateDistanceFeed(ctx context.Context, feed domain.DistanceFeed) error {
	if feed.Flagged && strings.TrimSpace(feed.AdminComment) == "" {
		return m.rejected(opDistance, domain.NewPreconditionError("Please, add comment"))
	}
	if _, err := m.jobs.GetJob(ctx, feed.JobID); err != nil {
		return fmt.Errorf("failed to load job %d: %w", feed.JobID, err)
	}
	if err := m.jobs.UpdateDistance(ctx, feed); err != nil {
		m.metrics.Transition(opDistance, metrics.OutcomeError)
		return fmt.Errorf("failed to update distance for job %d: %w", feed.JobID, err)
	}
	m.metrics.Transition(opDistance, metrics.OutcomeSuccess)
	return nil
}
