package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
	"github.com/cuongbtq/booking-core/internal/metrics"
)

const (
	opEnd     = "end"
	opNotCall = "customer_not_call"
)

// SessionResult is returned by EndJob and CustomerNotCall
type SessionResult struct {
	Changed bool        `json:"changed"`
	Job     *domain.Job `json:"job"`
	Elapsed string      `json:"elapsed,omitempty"`
}

// EndJob completes a started session. Jobs in any other status are left as
// they are and reported unchanged.
func (m *Manager) EndJob(ctx context.Context, jobID, actorID int64) (*SessionResult, error) {
	job, assignments, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusStarted {
		m.metrics.Transition(opEnd, metrics.OutcomeNoOp)
		return &SessionResult{Job: job}, nil
	}

	active := domain.ActiveAssignment(assignments)
	actor, err := m.sessionActor(ctx, job, active, actorID)
	if err != nil {
		return nil, m.rejected(opEnd, err)
	}

	now := m.clock.Now()
	elapsed := now.Sub(job.Due)
	minutes := timeutil.ElapsedMinutes(job.Due, now)

	next := *job
	next.Status = domain.StatusCompleted
	next.EndAt = &now
	next.SessionTime = fmt.Sprintf("%d:%02d", minutes/60, minutes%60)

	update := domain.JobUpdate{Job: &next, ExpectedStatus: domain.StatusStarted, At: now}
	if active != nil {
		update.CompleteAssignmentID = active.ID
		update.CompletedBy = actor.ID
	}
	conflict := fmt.Errorf("%w: job %d changed status concurrently", domain.ErrTransitionNoOp, jobID)
	if err := m.commit(ctx, opEnd, update, conflict); err != nil {
		return nil, err
	}

	m.logger.Info("Session ended",
		slog.Int64("job_id", jobID),
		slog.Int64("actor_id", actor.ID),
		slog.String("elapsed", timeutil.FormatElapsed(elapsed)),
	)

	var translatorID int64
	if active != nil {
		translatorID = active.UserID
	}
	m.sendSessionEnded(ctx, &next, translatorID, nil)

	other := next.UserID
	if actor.ID == next.UserID {
		other = translatorID
	}
	m.publish(ctx, domain.EventSessionEnded, &next, map[string]any{"user_id": other})

	return &SessionResult{Changed: true, Job: &next, Elapsed: next.SessionTime}, nil
}

// CustomerNotCall closes a booking whose customer never showed up
func (m *Manager) CustomerNotCall(ctx context.Context, jobID, actorID int64) (*SessionResult, error) {
	job, assignments, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, m.rejected(opNotCall, fmt.Errorf("%w: job %d is %s", domain.ErrTransitionNoOp, jobID, job.Status))
	}

	active := domain.ActiveAssignment(assignments)
	actor, err := m.sessionActor(ctx, job, active, actorID)
	if err != nil {
		return nil, m.rejected(opNotCall, err)
	}

	now := m.clock.Now()
	minutes := timeutil.ElapsedMinutes(job.Due, now)

	next := *job
	next.Status = domain.StatusNotCarriedOutCustomer
	next.EndAt = &now

	update := domain.JobUpdate{Job: &next, ExpectedStatus: job.Status, At: now}
	if active != nil {
		update.CompleteAssignmentID = active.ID
		update.CompletedBy = actor.ID
	}
	conflict := fmt.Errorf("%w: job %d changed status concurrently", domain.ErrTransitionNoOp, jobID)
	if err := m.commit(ctx, opNotCall, update, conflict); err != nil {
		return nil, err
	}

	m.logger.Info("Booking not carried out by customer",
		slog.Int64("job_id", jobID),
		slog.Int64("actor_id", actor.ID),
	)

	var translatorID int64
	if active != nil {
		translatorID = active.UserID
	}
	m.sendSessionEnded(ctx, &next, translatorID, map[string]any{"not_carried_out": true})

	return &SessionResult{
		Changed: true,
		Job:     &next,
		Elapsed: timeutil.FormatElapsed(time.Duration(minutes) * time.Minute),
	}, nil
}

// sessionActor allows the customer, the active translator and admins
func (m *Manager) sessionActor(ctx context.Context, job *domain.Job, active *domain.Assignment, actorID int64) (*domain.User, error) {
	actor, err := m.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	switch {
	case actor.ID == job.UserID, actor.IsAdmin():
		return actor, nil
	case active != nil && active.UserID == actor.ID:
		return actor, nil
	}
	return nil, domain.ErrRole
}

// sendSessionEnded emails the customer an invoice note and the translator a payroll note
func (m *Manager) sendSessionEnded(ctx context.Context, job *domain.Job, translatorID int64, extra map[string]any) {
	sessionTime, err := timeutil.FormatSessionTime(job.SessionTime)
	if err != nil {
		sessionTime = job.SessionTime
	}
	subject := m.subject(notify.SubjectSessionEnded, notify.BookingRef(job.ID))

	data := func(forText string) map[string]any {
		out := map[string]any{"session_time": sessionTime, "for_text": forText}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	var emails []domain.Email
	if owner := m.user(ctx, job.UserID); owner != nil {
		emails = append(emails, customerEmail(job, owner, subject, TemplateSessionEnded, data("faktura")))
	}
	if translator := m.user(ctx, translatorID); translator != nil {
		emails = append(emails, userEmail(job, translator, subject, TemplateSessionEnded, data("lön")))
	}
	m.dispatcher.SendEmails(ctx, job.ID, emails...)
}
