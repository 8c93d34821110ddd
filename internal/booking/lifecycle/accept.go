package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
)

const opAccept = "accept"

// AcceptResult is returned to a translator who won a booking
type AcceptResult struct {
	Job           *domain.Job  `json:"job"`
	Message       string       `json:"message"`
	PotentialJobs []domain.Job `json:"potential_jobs,omitempty"`
}

// AcceptJob assigns the job to the translator and returns their remaining potential jobs
func (m *Manager) AcceptJob(ctx context.Context, jobID, translatorID int64) (*AcceptResult, error) {
	result, err := m.AcceptJobWithID(ctx, jobID, translatorID)
	if err != nil {
		return nil, err
	}
	potential, err := m.GetPotentialJobs(ctx, translatorID)
	if err != nil {
		m.logger.Error("Failed to list potential jobs after accept",
			slog.Int64("job_id", jobID),
			slog.Int64("translator_id", translatorID),
			slog.Any("error", err),
		)
	}
	result.PotentialJobs = potential
	return result, nil
}

// AcceptJobWithID assigns the job to the translator. Of several concurrent
// accepts exactly one wins; the others get ErrAlreadyTaken. A job pinned to a
// translator can only be accepted by that translator.
func (m *Manager) AcceptJobWithID(ctx context.Context, jobID, translatorID int64) (*AcceptResult, error) {
	translator, err := m.users.FindByID(ctx, translatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translator %d: %w", translatorID, err)
	}
	if !translator.Is(domain.RoleTranslator) {
		return nil, m.rejected(opAccept, domain.ErrRole)
	}

	job, assignments, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	active := domain.ActiveAssignment(assignments)

	lang, duration, due := m.jobLabel(job)
	printers := m.dispatcher.Printers()
	taken := domain.WithMessage(domain.ErrAlreadyTaken, printers.Sprintf(notify.MsgAlreadyTakenBy, lang, duration, due))

	if job.Status != domain.StatusPending {
		return nil, m.rejected(opAccept, taken)
	}
	if pinned := job.PinnedTo(active); pinned != 0 && pinned != translatorID {
		return nil, m.rejected(opAccept, taken)
	}

	ok, err := m.engine.CanAccept(ctx, translatorID, job)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, m.rejected(opAccept, domain.WithMessage(domain.ErrAlreadyBooked, printers.Sprintf(notify.MsgAlreadyBookedAt, due)))
	}

	now := m.clock.Now()
	next := *job
	next.Status = domain.StatusAssigned
	update := domain.JobUpdate{
		Job:            &next,
		ExpectedStatus: domain.StatusPending,
		At:             now,
	}
	// the pinned translator already holds the assignment
	if active == nil {
		update.NewAssignment = &domain.Assignment{JobID: job.ID, UserID: translatorID, CreatedAt: now}
	}
	if err := m.commit(ctx, opAccept, update, taken); err != nil {
		return nil, err
	}

	m.logger.Info("Booking accepted",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", translatorID),
	)

	if owner := m.user(ctx, next.UserID); owner != nil {
		subject := m.subject(notify.SubjectJobAccepted, notify.BookingRef(next.ID))
		m.dispatcher.SendEmails(ctx, next.ID, customerEmail(&next, owner, subject, TemplateJobAccepted, nil))
		m.dispatcher.NotifyJobAccepted(ctx, owner, &next)
	}

	return &AcceptResult{
		Job:     &next,
		Message: printers.Sprintf(notify.MsgAcceptedByYou, lang, duration, due),
	}, nil
}
