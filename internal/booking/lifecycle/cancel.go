package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
)

const opCancel = "cancel"

// CancelJob withdraws a booking on behalf of its customer, or drops the
// acting translator from it and puts it back on the market.
func (m *Manager) CancelJob(ctx context.Context, jobID, actorID int64) (*domain.Job, error) {
	actor, err := m.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	job, assignments, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, m.rejected(opCancel, fmt.Errorf("%w: job %d is %s", domain.ErrTransitionNoOp, jobID, job.Status))
	}

	active := domain.ActiveAssignment(assignments)
	switch {
	case actor.Is(domain.RoleCustomer) && job.UserID == actor.ID:
		return m.cancelByCustomer(ctx, job, active)
	case actor.Is(domain.RoleTranslator) && active != nil && active.UserID == actor.ID:
		return m.cancelByTranslator(ctx, job, actor)
	}
	return nil, m.rejected(opCancel, domain.ErrRole)
}

func (m *Manager) cancelByCustomer(ctx context.Context, job *domain.Job, active *domain.Assignment) (*domain.Job, error) {
	now := m.clock.Now()
	next := *job
	next.WithdrawAt = &now
	if job.Due.Sub(now) >= m.config.CancelWindow {
		next.Status = domain.StatusWithdrawnBefore24
	} else {
		next.Status = domain.StatusWithdrawnAfter24
	}

	conflict := fmt.Errorf("%w: job %d changed status concurrently", domain.ErrTransitionNoOp, job.ID)
	if err := m.commit(ctx, opCancel, domain.JobUpdate{Job: &next, ExpectedStatus: job.Status, At: now}, conflict); err != nil {
		return nil, err
	}

	m.logger.Info("Booking withdrawn by customer",
		slog.Int64("job_id", next.ID),
		slog.String("status", string(next.Status)),
	)

	m.publish(ctx, domain.EventJobWasCanceled, &next, intake.JobToData(&next, nil))
	if active != nil {
		m.dispatcher.NotifyJobCancelled(ctx, m.user(ctx, active.UserID), &next, true)
	}
	return &next, nil
}

func (m *Manager) cancelByTranslator(ctx context.Context, job *domain.Job, translator *domain.User) (*domain.Job, error) {
	now := m.clock.Now()
	if job.Due.Sub(now) <= m.config.CancelWindow {
		msg := m.dispatcher.Printers().Sprintf(notify.MsgTranslatorCancelWindow)
		return nil, m.rejected(opCancel, domain.NewPreconditionError(msg))
	}

	next := *job
	next.Status = domain.StatusPending
	next.CreatedAt = now
	next.WillExpireAt = timeutil.WillExpireAt(next.Due, now)
	next.PinnedTranslatorID = nil

	update := domain.JobUpdate{
		Job:                  &next,
		ExpectedStatus:       job.Status,
		DeleteAssignmentUser: translator.ID,
		At:                   now,
	}
	conflict := fmt.Errorf("%w: job %d changed status concurrently", domain.ErrTransitionNoOp, job.ID)
	if err := m.commit(ctx, opCancel, update, conflict); err != nil {
		return nil, err
	}

	m.logger.Info("Translator dropped booking",
		slog.Int64("job_id", next.ID),
		slog.Int64("translator_id", translator.ID),
	)

	m.dispatcher.NotifyJobCancelled(ctx, m.user(ctx, next.UserID), &next, false)
	m.renotify(ctx, &next, translator.ID)
	return &next, nil
}
